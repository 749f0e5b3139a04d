package util

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
)

// ExitInterrupted is the exit status after a second interrupt
const ExitInterrupted = 130

// SetupSignalHandler returns a context cancelled by the first SIGINT or
// SIGTERM. Cancelling it kills the process group of every running job. A
// second signal exits immediately without waiting for the jobs.
func SetupSignalHandler() context.Context {
	return notifyContext(os.Exit, syscall.SIGINT, syscall.SIGTERM)
}

func notifyContext(exit func(int), sigs ...os.Signal) context.Context {
	ctx, cancel := context.WithCancel(context.Background())

	ch := make(chan os.Signal, 2)
	signal.Notify(ch, sigs...)

	go func() {
		sig := <-ch
		slog.Warn("interrupted, terminating running jobs (repeat to exit now)", "signal", sig.String())
		cancel()

		sig = <-ch
		slog.Warn("interrupted again, exiting", "signal", sig.String())
		signal.Stop(ch)
		exit(ExitInterrupted)
	}()

	return ctx
}
