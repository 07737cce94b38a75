package main

import (
	"errors"
	"os"

	"github.com/erfi/goload/internal/app"
	"github.com/erfi/goload/internal/config"
)

func main() {
	err := Execute()
	if err != nil && !errors.Is(err, app.ErrThresholdsFailed) {
		printError(err)
	}
	os.Exit(exitCode(err))
}

// exitCode maps a run error to the process status: 0 pass, 1 threshold
// violation or aborted run, 2 configuration error
func exitCode(err error) int {
	var cfgErr *config.Error
	var thErr *app.ThresholdsError
	switch {
	case err == nil:
		return 0
	case errors.As(err, &cfgErr):
		return 2
	case errors.As(err, &thErr):
		return thErr.ExitCode()
	default:
		return 1
	}
}
