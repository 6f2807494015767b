package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/marmos91/chunkstore/internal/cli/output"
	"github.com/marmos91/chunkstore/pkg/command"
)

var verifyDeep bool

var verifyCmd = &cobra.Command{
	Use:   "verify <id>",
	Short: "Check the integrity of a stored file",
	Long: `verify checks that every chunk of a file is present. With --deep it
also reads every chunk back and re-validates its checksum, plus the
whole-file checksum.`,
	Args: cobra.ExactArgs(1),
	RunE: runVerify,
}

func init() {
	verifyCmd.Flags().BoolVar(&verifyDeep, "deep", false, "Read every chunk back and re-validate checksums")
}

func runVerify(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	eng, err := newEngine(ctx)
	if err != nil {
		return err
	}
	defer eng.Close()

	result, err := eng.Dispatcher.Dispatch(ctx, &command.VerifyFileCommand{
		FileID: args[0],
		Deep:   verifyDeep,
	})
	if err != nil {
		return err
	}

	report := result.(*command.VerifyResult).Report
	status := "OK"
	if !report.OK {
		status = "FAILED"
	}
	output.KeyValue(os.Stdout, [][2]string{
		{"File", report.FileID},
		{"Chunks expected", fmt.Sprintf("%d", report.ChunksExpected)},
		{"Chunks checked", fmt.Sprintf("%d", report.ChunksChecked)},
		{"Missing", fmt.Sprintf("%v", report.Missing)},
		{"Duplicates", fmt.Sprintf("%v", report.Duplicates)},
		{"Mismatched", fmt.Sprintf("%v", report.Mismatched)},
		{"Result", status},
	})

	if !report.OK {
		return fmt.Errorf("integrity check failed for %s", report.FileID)
	}
	return nil
}
