// Command audit runs the offline fairness audit over a labelled dataset.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := newRootCmd().ExecuteContext(ctx)
	stop()

	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		var ve *verdictError
		if errors.As(err, &ve) {
			os.Exit(3)
		}
		os.Exit(1)
	}
}
