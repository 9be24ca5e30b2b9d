// Command tmplbind generates typed Go constructors for placeholder templates.
package main

import (
	"fmt"
	"os"

	"github.com/opencode-ai/tmplbind/internal/cli"
)

// Set via -ldflags at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	if err := cli.Execute(version, commit, date); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
