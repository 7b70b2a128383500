// Command wizard is the operator CLI for the wizard form engine.
package main

import (
	"fmt"
	"os"

	"github.com/roach88/wizard/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(cli.GetExitCode(err))
	}
}
