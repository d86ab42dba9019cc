package main

import (
	"context"
	"fmt"
	"log"
	"os/signal"
	"syscall"
	"time"

	"github.com/ghalamif/TagSync"
)

func main() {
	flow, err := tagsync.Conf("../../data/config.yaml")
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	sink, batches, closeBatches := tagsync.NewChannelSink("markers", 32)
	defer closeBatches()

	go lateMarkerWorker(batches)

	if err := flow.Run(ctx, tagsync.StimulationsOutSink(sink)); err != nil && err != context.Canceled {
		log.Fatalf("runtime error: %v", err)
	}
}

// lateMarkerWorker reports stimulations whose date had to be corrected.
func lateMarkerWorker(batches <-chan []tagsync.Event) {
	for batch := range batches {
		for _, ev := range batch {
			if ev.Identifier != tagsync.StimulationIncorrect {
				continue
			}
			fmt.Printf("[%s] late tag corrected by %s\n", time.Now().Format(time.RFC3339), ev.Duration.Duration())
		}
	}
}
