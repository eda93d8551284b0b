// Command server runs the Concord classification API.
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/JaimeStill/concord/internal/config"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	srv, err := NewServer(ctx, cfg)
	if err != nil {
		log.Fatalf("init server: %v", err)
	}
	if err := srv.Start(); err != nil {
		log.Fatalf("start server: %v", err)
	}

	<-ctx.Done()
	stop()

	if err := srv.Shutdown(cfg.ShutdownTimeoutDuration()); err != nil {
		log.Fatalf("shutdown: %v", err)
	}
}
