package main

import (
	"context"
	"fmt"
	"log"
	"time"

	"opcflux"
)

func main() {
	cfg, err := opcflux.LoadConfig("../../data/config.yaml")
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	// No subscriptions needed for a pure discovery walk.
	cfg.Subscriptions = nil
	discard := opcflux.NewCallbackSink("discard", func([]opcflux.Point) error { return nil })

	rt, err := opcflux.NewRuntime(cfg, opcflux.WithSink(discard))
	if err != nil {
		log.Fatalf("new runtime: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := rt.Start(ctx); err != nil {
		log.Fatalf("start: %v", err)
	}
	defer rt.Shutdown(context.Background())

	err = rt.Discover(ctx, "", 2, func(n opcflux.DiscoveredNode) {
		fmt.Printf("%-8s %-40s %s\n", n.Classification, n.NodeID, n.DisplayName)
	})
	if err != nil {
		log.Fatalf("discover: %v", err)
	}
}
