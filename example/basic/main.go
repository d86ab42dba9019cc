package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	"github.com/ghalamif/TagSync"
)

func main() {
	flow, err := tagsync.Conf("../../data/config.yaml")
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := flow.Run(ctx); err != nil && err != context.Canceled {
		log.Fatalf("tagsync runtime exited: %v", err)
	}
}
