// Package main provides the simvec CLI.
//
// Usage:
//
//	simvec [flags] <command> [args]
//
// Commands:
//
//	ingest  - Ingest vector records or text documents into a snapshot
//	search  - Query a snapshot for nearest neighbors
//	rebuild - Compact tombstones out of a snapshot's index
//	info    - Print snapshot statistics
//
// Configuration:
//
//	Flags can be set in $HOME/.simvec.yaml or via SIMVEC_* environment
//	variables (e.g. SIMVEC_OPENAI_API_KEY).
package main

import (
	"fmt"
	"os"

	"github.com/simvec/simvec/cmd/simvec/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
