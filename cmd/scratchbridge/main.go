// scratchbridge relays lamp commands from Scratch-style command sources to
// zigbee2mqtt over an MQTT broker.
//
// Usage:
//
//	scratchbridge [flags] <command> [args]
//
// Commands:
//
//	serve      - run the HTTP/WebSocket command API
//	lamp       - send one lamp command and exit
//	publish    - publish one raw message and exit
//	watch      - print lamp state messages
//	token      - mint an API bearer token
//
// Configuration is read from configs/config.yaml (or SCRATCH2_CONFIG, or
// --config) and overridden by SCRATCH2_* environment variables.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
)

// Version information - set at build time via ldflags
// Example: go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"     // Semantic version (e.g., "1.0.0")
	commit  = "unknown" // Git commit hash
	date    = "unknown" // Build date
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		cancel()
		os.Exit(1)
	}
}
