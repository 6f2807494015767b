// Package commands implements the chunkstore CLI.
package commands

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/marmos91/chunkstore/pkg/config"
	"github.com/marmos91/chunkstore/pkg/engine"
)

// Version information injected at build time.
var (
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "chunkstore",
	Short: "Chunked, content-addressed file storage",
	Long: `chunkstore splits files into compressed, checksummed chunks and
distributes them across configured storage backends (filesystem, S3,
GridFS, Badger). Metadata lives in MongoDB or in memory, fronted by a
write-through cache.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to config file")

	rootCmd.AddCommand(uploadCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(downloadCmd)
	rootCmd.AddCommand(deleteCmd)
	rootCmd.AddCommand(verifyCmd)
	rootCmd.AddCommand(seekCmd)
	rootCmd.AddCommand(versionCmd)
}

// Execute runs the CLI. Errors are printed by cobra; the caller maps a
// non-nil return to exit code 1.
func Execute() error {
	return rootCmd.Execute()
}

// newEngine loads configuration and assembles the core.
func newEngine(ctx context.Context) (*engine.Engine, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	e, err := engine.New(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return e, nil
}

func printErr(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
}
