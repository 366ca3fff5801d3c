//go:build windows

package main

import (
	"os"
	"os/signal"
)

// notifySignals delivers the signals that cancel a running batch or MCP server.
// On Windows, only os.Interrupt (Ctrl+C) is supported; SIGTERM does not exist.
func notifySignals(ch chan<- os.Signal) {
	signal.Notify(ch, os.Interrupt)
}
