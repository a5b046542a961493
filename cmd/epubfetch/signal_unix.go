//go:build !windows

package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
)

// withSignals returns a context canceled on interrupt or termination, so
// in-flight fetches and browser renders stop early.
func withSignals(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}
