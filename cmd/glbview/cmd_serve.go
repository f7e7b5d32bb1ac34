package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/skyline93/glbview/internal/controller"
	"github.com/skyline93/glbview/internal/handoff"
	"github.com/skyline93/glbview/internal/server"
)

var cmdServe = &cobra.Command{
	Use:   "serve",
	Short: "Install the configured version and serve the viewer",
	Long: `
The "serve" command installs the configured cache version, activates it,
removes the stores of older versions and serves the viewer until it is
interrupted.

EXIT STATUS
===========

Exit status is 0 if the server shut down cleanly, and non-zero otherwise.
`,
	DisableAutoGenTag: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		return runServe(ctx, globalOptions)
	},
}

func init() {
	cmdRoot.AddCommand(cmdServe)
}

func runServe(ctx context.Context, gopts GlobalOptions) error {
	cfg := gopts.cfg

	storage, c, err := openGeneration(cfg)
	if err != nil {
		return err
	}
	slot, err := handoff.Open(storage)
	if err != nil {
		return err
	}

	reg := controller.NewRegistration()
	report, err := reg.Update(ctx, c)
	if err != nil {
		return err
	}
	if len(report.Failed) > 0 {
		log.Warnf("%d manifest entries are not available offline", len(report.Failed))
	}

	srv, err := server.New(server.Config{Addr: cfg.Addr, Root: cfg.Root()}, reg, slot)
	if err != nil {
		return err
	}
	return srv.ListenAndServe(ctx)
}
