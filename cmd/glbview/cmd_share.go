package main

import (
	"bytes"
	"context"
	"fmt"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

var cmdShare = &cobra.Command{
	Use:   "share FILE",
	Short: "Share a model with a running server",
	Long: `
The "share" command submits FILE to the share target of a running server,
the same way the system share sheet does. The viewer opens it on its next
start.

EXIT STATUS
===========

Exit status is 0 if the server accepted the submission, and non-zero otherwise.
`,
	Args:              cobra.ExactArgs(1),
	DisableAutoGenTag: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runShare(cmd.Context(), globalOptions, args[0])
	},
}

func init() {
	cmdRoot.AddCommand(cmdShare)
}

func runShare(ctx context.Context, gopts GlobalOptions, filename string) error {
	data, err := os.ReadFile(filename)
	if err != nil {
		return errors.WithStack(err)
	}

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", filepath.Base(filename))
	if err != nil {
		return errors.WithStack(err)
	}
	if _, err := fw.Write(data); err != nil {
		return errors.WithStack(err)
	}
	if err := mw.Close(); err != nil {
		return errors.WithStack(err)
	}

	target := serverURL(gopts.cfg, "")
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, target, &buf)
	if err != nil {
		return errors.WithStack(err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	client := &http.Client{
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
	resp, err := client.Do(req)
	if err != nil {
		return errors.Wrapf(err, "share with %v", target)
	}
	_ = resp.Body.Close()

	if resp.StatusCode != http.StatusSeeOther {
		return errors.Errorf("share with %v: unexpected status %v", target, resp.Status)
	}
	fmt.Printf("shared %v (%d bytes)\n", filepath.Base(filename), len(data))
	return nil
}
