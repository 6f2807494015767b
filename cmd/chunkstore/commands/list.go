package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/marmos91/chunkstore/internal/cli/output"
	"github.com/marmos91/chunkstore/pkg/command"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored files",
	Args:  cobra.NoArgs,
	RunE:  runList,
}

func runList(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	eng, err := newEngine(ctx)
	if err != nil {
		return err
	}
	defer eng.Close()

	result, err := eng.Dispatcher.Dispatch(ctx, &command.ListFilesCommand{})
	if err != nil {
		return err
	}

	files := result.(*command.ListResult).Files
	if len(files) == 0 {
		fmt.Println("No files stored.")
		return nil
	}

	rows := make([][]string, 0, len(files))
	for _, f := range files {
		rows = append(rows, []string{
			f.ID,
			f.Name,
			string(f.Type),
			formatSize(f.Size),
			fmt.Sprintf("%d", f.ChunkCount),
			string(f.Status),
			f.ModifiedAt.Format("2006-01-02 15:04:05"),
		})
	}
	output.PrintTable(os.Stdout, []string{"ID", "Name", "Type", "Size", "Chunks", "Status", "Modified"}, rows)
	return nil
}
