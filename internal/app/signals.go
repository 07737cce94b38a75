package app

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
)

var (
	osExit = os.Exit
	// exit is replaced in tests
	exit = osExit
)

// SetupSignalHandler creates a context that is canceled on SIGINT or SIGTERM.
// Cancellation starts the drain; a second signal, or a drain that outlasts
// forceAfter, terminates the process with status 1.
func SetupSignalHandler(forceAfter time.Duration) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())

	sigChan := make(chan os.Signal, 2)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		select {
		case sig := <-sigChan:
			log.Warn().Str("signal", sig.String()).Msg("received signal, draining virtual users")
			cancel()
		case <-ctx.Done():
			signal.Stop(sigChan)
			return
		}

		timer := time.NewTimer(forceAfter)
		defer timer.Stop()

		select {
		case sig := <-sigChan:
			log.Error().Str("signal", sig.String()).Msg("second signal, forcing shutdown")
		case <-timer.C:
			log.Error().Dur("after", forceAfter).Msg("drain did not finish in time, forcing shutdown")
		}
		exit(1)
	}()

	return ctx, cancel
}
