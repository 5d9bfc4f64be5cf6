// Command laurus is a thin CLI over the laurus library: put, search,
// commit, and stats against a file-backed index.
package main

import (
	"fmt"
	"os"

	"github.com/Aman-CERP/laurus/cmd/laurus/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
