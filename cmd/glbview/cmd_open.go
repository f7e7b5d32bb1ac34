package main

import (
	"context"
	"fmt"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/skyline93/glbview/internal/server"
	"github.com/skyline93/glbview/internal/viewer"
)

var cmdOpen = &cobra.Command{
	Use:   "open [flags] [FILE]",
	Short: "Load a model and print what it contains",
	Long: `
The "open" command loads FILE the way the viewer does and prints a summary
of the model. With --shared the pending shared model is consumed from a
running server instead.

EXIT STATUS
===========

Exit status is 0 if a model was loaded or nothing was pending, and non-zero
if the model could not be loaded.
`,
	Args:              cobra.MaximumNArgs(1),
	DisableAutoGenTag: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runOpen(cmd.Context(), openOptions, globalOptions, args)
	},
}

// OpenOptions bundles all options for the open command.
type OpenOptions struct {
	Shared bool
}

var openOptions OpenOptions

func init() {
	cmdRoot.AddCommand(cmdOpen)

	f := cmdOpen.Flags()
	f.BoolVar(&openOptions.Shared, "shared", false, "consume the pending shared model from the server")
}

func runOpen(ctx context.Context, opts OpenOptions, gopts GlobalOptions, args []string) error {
	v := viewer.New()

	var (
		m   *viewer.Model
		err error
	)
	switch {
	case opts.Shared && len(args) > 0:
		return errors.New("either FILE or --shared, not both")
	case opts.Shared:
		var ok bool
		src := &viewer.Remote{Endpoint: serverURL(gopts.cfg, server.SharedPath)}
		m, ok, err = v.Startup(ctx, src)
		if err == nil && !ok {
			fmt.Println("no shared model pending")
			return nil
		}
	case len(args) == 1:
		m, err = v.OpenFile(args[0])
	default:
		return errors.New("no model given")
	}
	if err != nil {
		return err
	}

	printModel(m)
	return nil
}

func printModel(m *viewer.Model) {
	s := m.Summary()
	fmt.Printf("%v (%d bytes)\n", m.Name, m.Size)
	fmt.Printf("  glTF %v", s.Version)
	if s.Generator != "" {
		fmt.Printf(", generated by %v", s.Generator)
	}
	fmt.Println()
	fmt.Printf("  %d scenes, %d nodes, %d meshes, %d materials, %d animations\n",
		s.Scenes, s.Nodes, s.Meshes, s.Materials, s.Animations)
}
