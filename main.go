// Command livetrans serves a browser-based Chinese/English translator.
//
// Usage:
//
//	livetrans [flags] <command> [args]
//
// Commands:
//
//	serve      - start the HTTP and WebSocket server
//	translate  - translate text once
//	speak      - synthesize speech to a file
//	config     - manage credentials and profiles
//	version    - show version information
package main

import (
	"fmt"
	"os"

	"go.aimuz.me/livetrans/internal/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
