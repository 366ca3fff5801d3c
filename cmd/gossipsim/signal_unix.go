//go:build !windows

package main

import (
	"os"
	"os/signal"
	"syscall"
)

// notifySignals delivers the signals that cancel a running batch or MCP server.
// On Unix that is SIGINT and SIGTERM.
func notifySignals(ch chan<- os.Signal) {
	signal.Notify(ch, os.Interrupt, syscall.SIGTERM)
}
