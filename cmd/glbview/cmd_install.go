package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var cmdInstall = &cobra.Command{
	Use:   "install",
	Short: "Fill the store of the configured version",
	Long: `
The "install" command fetches every manifest entry into the store of the
configured version and prints which entries were stored. The version is
not activated, older stores are kept.

EXIT STATUS
===========

Exit status is 0 if the install finished, even when some entries could not
be fetched, and non-zero if it was interrupted.
`,
	DisableAutoGenTag: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runInstall(cmd.Context(), globalOptions)
	},
}

func init() {
	cmdRoot.AddCommand(cmdInstall)
}

func runInstall(ctx context.Context, gopts GlobalOptions) error {
	_, c, err := openGeneration(gopts.cfg)
	if err != nil {
		return err
	}

	report, err := c.Install(ctx)
	if err != nil {
		return err
	}

	for _, key := range report.Stored {
		fmt.Printf("stored  %v\n", key)
	}
	for _, key := range report.Failed {
		fmt.Printf("failed  %v\n", key)
	}
	fmt.Printf("%v: %d stored, %d failed\n", c.StoreName(), len(report.Stored), len(report.Failed))
	return nil
}
