// Package main provides the meeting-flow CLI.
//
// Usage:
//
//	meeting [--config config.yaml] <command> [args]
//
// Commands:
//
//	process         - Transcribe, attribute and summarize one recording
//	watch           - Process recordings dropped into the input folder
//	enroll          - Enroll speakers from a directory of samples
//	list-speakers   - List enrolled speakers
//	remove-speaker  - Remove an enrolled speaker
//	rename-speaker  - Rename an enrolled speaker
//	clear-db        - Delete every enrolled speaker
//	cache-info      - Show model cache state
//	cache-clear     - Clear one cached model or all of them
//	jobs            - List processing jobs
package main

import (
	"fmt"
	"os"

	"github.com/nguyentantai21042004/meeting-flow/cmd/meeting/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
