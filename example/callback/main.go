package main

import (
	"context"
	"fmt"
	"log"
	"os/signal"
	"syscall"

	"github.com/ghalamif/TagSync/pkg/tagsync"
)

func main() {
	flow, err := tagsync.Conf("../../data/config.yaml")
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	callback := func(batch []tagsync.Event) error {
		for _, ev := range batch {
			fmt.Printf("run=%s seq=%d id=0x%x date=%.6fs duration=%.6fs\n",
				ev.RunID,
				ev.Seq,
				ev.Identifier,
				ev.Date.Seconds(),
				ev.Duration.Seconds(),
			)
		}
		return nil
	}

	if err := flow.Run(ctx, tagsync.StimulationsOutCallback("stdout", callback)); err != nil && err != context.Canceled {
		log.Fatalf("runtime error: %v", err)
	}
}
