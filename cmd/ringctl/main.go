// Command ringctl exercises and inspects real-time ring buffers.
//
// Usage:
//
//	ringctl [flags] <command> [subcommand] [args]
//
// Commands:
//
//	events    - Push control events through a ring and decode them again
//	bench     - Run a producer/worker pump and report throughput and failures
//	snapshot  - Capture, list, show, export and import ring snapshots
//	monitor   - Serve or watch live ring fill levels over WebSocket
//	config    - Manage contexts
//	version   - Show version information
package main

import (
	"fmt"
	"os"

	"github.com/haivivi/rtring/cmd/ringctl/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
