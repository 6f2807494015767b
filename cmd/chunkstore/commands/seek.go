package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/marmos91/chunkstore/internal/cli/output"
	"github.com/marmos91/chunkstore/pkg/command"
	"github.com/marmos91/chunkstore/pkg/scanner"
)

var (
	seekPath        string
	seekRecursive   bool
	seekProcess     bool
	seekParallelism int
)

var seekCmd = &cobra.Command{
	Use:   "seek",
	Short: "Scan a directory tree and register its files",
	Long: `seek walks a directory, registers every file and subdirectory in the
metadata store, and with --process uploads file contents through the
chunk pipeline.`,
	Args: cobra.NoArgs,
	RunE: runSeek,
}

func init() {
	seekCmd.Flags().StringVar(&seekPath, "path", ".", "Directory to scan")
	seekCmd.Flags().BoolVarP(&seekRecursive, "recursive", "r", false, "Descend into subdirectories")
	seekCmd.Flags().BoolVar(&seekProcess, "process", false, "Upload file contents, not just metadata")
	seekCmd.Flags().IntVar(&seekParallelism, "parallelism", 0, "Concurrent file workers (0 selects a default)")
}

func runSeek(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	eng, err := newEngine(ctx)
	if err != nil {
		return err
	}
	defer eng.Close()

	result, err := eng.Dispatcher.Dispatch(ctx, &command.ScanDirectoryCommand{
		RootPath:       seekPath,
		Recursive:      seekRecursive,
		ProcessContent: seekProcess,
		Parallelism:    seekParallelism,
	})
	if err != nil {
		return err
	}

	progress := result.(*scanner.ScanProgress)
	output.KeyValue(os.Stdout, [][2]string{
		{"Directories scanned", fmt.Sprintf("%d", progress.DirectoriesScanned)},
		{"Files discovered", fmt.Sprintf("%d", progress.FilesDiscovered)},
		{"Files processed", fmt.Sprintf("%d", progress.FilesProcessed)},
		{"Bytes processed", fmt.Sprintf("%d", progress.BytesProcessed)},
		{"Errors", fmt.Sprintf("%d", len(progress.Errors))},
		{"Duration", progress.FinishedAt.Sub(progress.StartedAt).String()},
	})

	for _, scanErr := range progress.Errors {
		printErr("  %s: %v", scanErr.Path, scanErr.Err)
	}
	if len(progress.Errors) > 0 {
		return fmt.Errorf("scan finished with %d errors", len(progress.Errors))
	}
	return nil
}
