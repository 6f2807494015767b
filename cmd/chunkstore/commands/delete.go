package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/marmos91/chunkstore/internal/cli/prompt"
	"github.com/marmos91/chunkstore/pkg/command"
)

var deleteForce bool

var deleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete a file and all of its chunks",
	Args:  cobra.ExactArgs(1),
	RunE:  runDelete,
}

func init() {
	deleteCmd.Flags().BoolVarP(&deleteForce, "force", "f", false, "Skip the confirmation prompt")
}

func runDelete(cmd *cobra.Command, args []string) error {
	ok, err := prompt.ConfirmWithForce(fmt.Sprintf("Delete file %s and all of its chunks?", args[0]), deleteForce)
	if err != nil {
		return err
	}
	if !ok {
		fmt.Println("Cancelled.")
		return nil
	}

	ctx := cmd.Context()

	eng, err := newEngine(ctx)
	if err != nil {
		return err
	}
	defer eng.Close()

	if _, err := eng.Dispatcher.Dispatch(ctx, &command.DeleteFileCommand{FileID: args[0]}); err != nil {
		return err
	}

	fmt.Printf("Deleted %s\n", args[0])
	return nil
}
