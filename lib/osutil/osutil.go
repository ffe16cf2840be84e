package osutil

import (
	"context"
	"os"
	"os/signal"
	"syscall"
)

// Returns a context that is cancelled on Ctrl+C or SIGTERM.
func SignalContext(parent context.Context) context.Context {
	ctx, _ := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	return ctx
}
