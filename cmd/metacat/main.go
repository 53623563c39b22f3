package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/mwantia/metacat/cmd"
	"github.com/mwantia/metacat/cmd/builtin"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	manager := cmd.NewManager("metacat")
	if err := builtin.InitBuiltin(manager); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to setup commands: %v\n", err)
		os.Exit(1)
	}

	code, err := manager.Execute(ctx, os.Stdout, os.Args[1:]...)
	if err != nil {
		fmt.Fprintf(os.Stderr, "metacat: %v\n", err)
	}

	stop()
	os.Exit(code)
}
