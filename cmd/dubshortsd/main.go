// Command dubshortsd runs the dubshorts daemon with the default config
// location, for service managers that should not go through the CLI.
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"dubshorts/internal/config"
	"dubshorts/internal/daemonrun"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg, _, _, err := config.Load(os.Getenv("DUBSHORTS_CONFIG"))
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	if err := daemonrun.Run(ctx, cfg, daemonrun.Options{LogLevel: cfg.Logging.Level}); err != nil {
		log.Printf("dubshortsd: %v", err)
		cancel()
		os.Exit(1)
	}
}
