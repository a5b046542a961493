//go:build windows

package main

import (
	"context"
	"os"
	"os/signal"
)

// withSignals returns a context canceled on interrupt. SIGTERM does not
// exist on Windows.
func withSignals(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, os.Interrupt)
}
