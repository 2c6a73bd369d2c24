// Command provenance writes build provenance facts for a Go package into a
// generated source file. It is meant to run from a go:generate directive:
//
//	//go:generate go run provenance/cmd/provenance
package main

import (
	"context"
	"os"
	"os/signal"

	"provenance/internal/output"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	log := output.NewLogger()
	if err := newRootCmd(log).ExecuteContext(ctx); err != nil {
		log.Error("%v", err)
		stop()
		os.Exit(1)
	}
}
