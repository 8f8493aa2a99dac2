// Command jane is the JANE assistant: an interactive front end, a daemon and
// the clients that talk to it.
package main

import (
	"fmt"
	"os"

	"github.com/emty-pyie/Jane/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
