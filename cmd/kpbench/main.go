package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/cognicore/kpbench/pkg/kpbench/internalerr"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := newRootCmd().ExecuteContext(ctx)
	stop()
	if err != nil {
		if errors.Is(err, internalerr.ErrInvalidConfig) {
			os.Exit(2)
		}
		os.Exit(1)
	}
}
