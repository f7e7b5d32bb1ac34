package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/skyline93/glbview/internal/cache"
)

var cmdStores = &cobra.Command{
	Use:   "stores [flags]",
	Short: "List cache stores",
	Long: `
The "stores" command lists the stores in the cache directory with the
number of entries in each. With --prune every store except the one of the
configured version and the hand-off store is deleted first.

EXIT STATUS
===========

Exit status is 0 if the command was successful, and non-zero if there was any error.
`,
	DisableAutoGenTag: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runStores(cmd.Context(), storesOptions, globalOptions)
	},
}

// StoresOptions bundles all options for the stores command.
type StoresOptions struct {
	Prune bool
}

var storesOptions StoresOptions

func init() {
	cmdRoot.AddCommand(cmdStores)

	f := cmdStores.Flags()
	f.BoolVar(&storesOptions.Prune, "prune", false, "delete the stores of other versions")
}

func runStores(ctx context.Context, opts StoresOptions, gopts GlobalOptions) error {
	storage, c, err := openGeneration(gopts.cfg)
	if err != nil {
		return err
	}

	if opts.Prune {
		deleted, err := c.Prune(ctx)
		if err != nil {
			return err
		}
		for _, name := range deleted {
			fmt.Printf("deleted %v\n", name)
		}
	}

	names, err := storage.Names()
	if err != nil {
		return err
	}
	for _, name := range names {
		if err := printStore(storage, name, c.StoreName()); err != nil {
			return err
		}
	}
	return nil
}

func printStore(storage *cache.Storage, name, current string) error {
	store, err := storage.Open(name)
	if err != nil {
		return err
	}
	keys, err := store.Keys()
	if err != nil {
		return err
	}

	mark := " "
	if name == current {
		mark = "*"
	}
	fmt.Printf("%s %-32s %d entries\n", mark, name, len(keys))
	return nil
}
