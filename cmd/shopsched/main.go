// Command shopsched solves job-shop instances and propagates time windows
// across production lines.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/roach88/shopsched/internal/cli"
)

func main() {
	root := cli.NewRootCommand()
	err := root.ExecuteContext(context.Background())
	if err != nil {
		// Commands report through their formatter and still return the
		// error to carry the exit code.
		fmt.Fprintln(os.Stderr, "Error:", err)
	}
	os.Exit(cli.GetExitCode(err))
}
