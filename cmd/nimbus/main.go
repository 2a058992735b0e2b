// Command nimbus smooths mouse wheel scrolling.
package main

import (
	"fmt"
	"os"

	"github.com/roach88/nimbus/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(cli.GetExitCode(err))
	}
}
