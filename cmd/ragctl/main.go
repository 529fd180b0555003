// Command ragctl is the CLI front end for the ragkit indexing/search
// toolkit: index and search folders from a terminal, inspect status,
// clear a folder's index, watch it for changes, or serve it over MCP.
package main

import (
	"os"

	"github.com/hieutran512/ragkit/cmd/ragctl/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
