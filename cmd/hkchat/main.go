// Command hkchat is a terminal client for the Hong Kong travel assistant.
//
// Usage:
//
//	hkchat [flags] <command> [args]
//
// Commands:
//
//	login, signup, logout, whoami - account and local session
//	expenses                      - today's spending and totals per category
//	itinerary                     - planned activities
//	saved                         - saved destinations with filters
//	voices                        - synthesis voices offered by the gateway
//	speak                         - synthesize text to an mp3 file
//	chat                          - talk to the assistant over the gateway
//
// The signed-in user and gateway token are kept in ~/.hkchat.
package main

import (
	"fmt"
	"os"

	"github.com/hkguide/server/cmd/hkchat/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
