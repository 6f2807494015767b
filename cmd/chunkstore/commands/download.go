package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/marmos91/chunkstore/pkg/command"
)

var downloadOutput string

var downloadCmd = &cobra.Command{
	Use:   "download <id>",
	Short: "Download a file, reassembling and verifying its chunks",
	Args:  cobra.ExactArgs(1),
	RunE:  runDownload,
}

func init() {
	downloadCmd.Flags().StringVarP(&downloadOutput, "output", "o", "", "Output path (defaults to the file ID in the working directory)")
}

func runDownload(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	eng, err := newEngine(ctx)
	if err != nil {
		return err
	}
	defer eng.Close()

	outputPath := downloadOutput
	if outputPath == "" {
		outputPath = args[0]
	}

	if _, err := eng.Dispatcher.Dispatch(ctx, &command.DownloadFileCommand{
		FileID:     args[0],
		OutputPath: outputPath,
	}); err != nil {
		return err
	}

	fmt.Printf("Downloaded %s to %s\n", args[0], outputPath)
	return nil
}
