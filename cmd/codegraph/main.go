// Command codegraph is the standalone CLI: it opens a project's store,
// graph, and embedder directly and runs one operation per invocation,
// without going through the codegraphd daemon.
package main

import (
	"fmt"
	"os"

	"github.com/codegraph-dev/codegraph/cmd/codegraph/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "codegraph:", err)
		os.Exit(1)
	}
}
