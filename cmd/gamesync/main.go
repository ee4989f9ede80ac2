// Package main provides the gamesync command: it installs the game's Java
// runtime and keeps the game assets in sync with a remote manifest.
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/clean-dependency-project/gamesync/internal/cli"
)

func main() {
	// Variables from .env never override the real environment.
	if err := cli.LoadEnv(".env"); err != nil {
		log.Fatal(err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app := cli.NewApp()
	if err := app.RunContext(ctx, os.Args); err != nil {
		stop()
		log.Fatal(err)
	}
}
