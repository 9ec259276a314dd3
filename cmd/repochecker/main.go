// Command repochecker runs the repository-closure audit daemon: a
// scheduler that periodically regenerates per-release broken-dependency
// reports and serves them over HTTP, plus a one-shot configuration
// validator for CI and pre-deploy checks.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := rootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
