package main

import (
	"context"
	"fmt"
	"log"
	"time"

	"opcflux"
)

func main() {
	flow, err := opcflux.Conf("../../data/config.yaml")
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sink, batches, closeBatches := opcflux.NewChannelSink("fanout", 32)
	defer closeBatches()

	go fanoutWorker("ingest", batches)

	if err := flow.Run(ctx, opcflux.StreamOutSink(sink)); err != nil && err != context.Canceled {
		log.Fatalf("runtime error: %v", err)
	}
}

func fanoutWorker(name string, batches <-chan []opcflux.Point) {
	for batch := range batches {
		fmt.Printf("[%s] forwarding %d points at %s\n", name, len(batch), time.Now().Format(time.RFC3339))
	}
}
