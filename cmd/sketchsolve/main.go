// Command sketchsolve runs sketch scripts from the command line and prints
// the solved sketch.
//
//	sketchsolve run bracket.sketch --format yaml
//	sketchsolve run plate.sketch --extrude 6
//	sketchsolve check bracket.sketch
package main

import (
	"fmt"
	"os"
)

// Exit codes.
const (
	exitOK       = 0
	exitError    = 1 // bad input, config or script
	exitUnsolved = 2 // the script ran but the final solve failed
)

func main() {
	cmd := newRootCmd()
	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(exitCode(err))
	}
}
