// Command seauto-probe checks a running browser from the command line: it
// waits for the active page to finish loading, dumps the browser version or
// saves a screenshot.
package main

import (
	"os"

	"github.com/fatih/color"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		color.New(color.FgRed).Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
