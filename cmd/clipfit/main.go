package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"clipfit/internal/services"
)

func main() {
	cmd := newRootCommand()
	err := cmd.Execute()
	if err == nil {
		return
	}
	if !errors.Is(err, context.Canceled) {
		fmt.Fprintln(os.Stderr, err)
	}
	os.Exit(exitCode(err))
}

// exitCode distinguishes runs that could not fit the target from bad input
// and from interrupted runs.
func exitCode(err error) int {
	var runErr *runError
	switch {
	case errors.Is(err, context.Canceled):
		return 130
	case errors.As(err, &runErr):
		switch runErr.Kind {
		case kindCancelled:
			return 130
		case services.KindConvergence:
			return 2
		case services.KindInput, services.KindCapability:
			return 3
		}
	}
	return 1
}
