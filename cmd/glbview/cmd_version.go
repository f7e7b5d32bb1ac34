package main

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"
)

var cmdVersion = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Long: `
The "version" command prints the build version and the cache version that
would be installed.
`,
	DisableAutoGenTag: true,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("glbview %s compiled with %v on %v/%v\n",
			version, runtime.Version(), runtime.GOOS, runtime.GOARCH)
		fmt.Printf("cache store %v\n", globalOptions.cfg.StoreName())
	},
}

func init() {
	cmdRoot.AddCommand(cmdVersion)
}
