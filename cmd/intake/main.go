// Command intake validates uploads and bulk order spreadsheets, serves the
// HTTP API and runs hot folders.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/afero"

	_ "github.com/gobeaver/intake/driver/local"
	_ "github.com/gobeaver/intake/driver/memory"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCommand(afero.NewOsFs()).ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}
