// Command scenesyncd runs one participant's side of a real-time scene
// editing session: either hosting (spec.md §4.7 host path) over a
// wsrelay hub, or joining an already-running one.
package main

import (
	"fmt"
	"os"

	"github.com/scenesync/core/cmd/scenesyncd/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
