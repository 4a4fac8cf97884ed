//go:build windows

package main

import (
	"os"
	"os/signal"
)

// notifySignals routes interrupt signals to ch so running trials are cancelled.
// On Windows, only os.Interrupt (Ctrl+C) is supported; SIGTERM does not exist.
func notifySignals(ch chan<- os.Signal) {
	signal.Notify(ch, os.Interrupt)
}
