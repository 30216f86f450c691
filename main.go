package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/dmorgan81/imagegen/internal/cli"
	"github.com/joho/godotenv"
)

func main() {
	// Load never overrides, so .env.local wins over .env and the real
	// environment wins over both.
	for _, name := range []string{".env.local", ".env"} {
		_ = godotenv.Load(name)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := cli.Run(ctx, os.Args[1:], cli.Options{
		Lookup: os.LookupEnv,
		Stdout: os.Stdout,
		Stderr: os.Stderr,
	})
	stop()
	os.Exit(code)
}
