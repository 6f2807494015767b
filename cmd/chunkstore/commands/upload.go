package commands

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/marmos91/chunkstore/internal/cli/output"
	"github.com/marmos91/chunkstore/pkg/command"
)

var uploadName string

var uploadCmd = &cobra.Command{
	Use:   "upload <path>",
	Short: "Upload a file, chunking it across the configured providers",
	Args:  cobra.ExactArgs(1),
	RunE:  runUpload,
}

func init() {
	uploadCmd.Flags().StringVar(&uploadName, "name", "", "Stored file name (defaults to the source file name)")
}

func runUpload(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	eng, err := newEngine(ctx)
	if err != nil {
		return err
	}
	defer eng.Close()

	name := uploadName
	if name == "" {
		name = filepath.Base(args[0])
	}

	result, err := eng.Dispatcher.Dispatch(ctx, &command.UploadFileCommand{
		FilePath: args[0],
		FileName: name,
	})
	if err != nil {
		return err
	}

	descriptor := result.(*command.UploadResult).File
	output.KeyValue(os.Stdout, [][2]string{
		{"ID", descriptor.ID},
		{"Name", descriptor.Name},
		{"Size", formatSize(descriptor.Size)},
		{"Chunks", fmt.Sprintf("%d", descriptor.ChunkCount)},
		{"Checksum", descriptor.Checksum},
		{"Status", string(descriptor.Status)},
	})
	return nil
}
