// Command pupstore administers the event store tables.
//
// Usage:
//
//	pupstore --config pupstore.json schema create
//	pupstore --config pupstore.json schema drop --yes
//	PUPSTORE_DRIVER=postgres PUPSTORE_HOST=localhost pupstore schema sql --model commit
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/getpup/pupstore/internal/cmd"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := cmd.Execute(ctx); err != nil {
		cancel()
		os.Exit(1)
	}
}
