// Command guardloop runs and inspects the table-driven actuator controller.
package main

import (
	"fmt"
	"os"

	"github.com/roach88/guardloop/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(cli.GetExitCode(err))
	}
}
