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

	callback := func(batch []opcflux.Point) error {
		for _, p := range batch {
			fmt.Printf("%s node=%s seq=%d value=%v\n",
				p.Timestamp.Format(time.RFC3339Nano),
				p.NodeID,
				p.Seq,
				p.Value,
			)
		}
		return nil
	}

	if err := flow.Run(ctx, opcflux.StreamOutCallback("stdout", callback)); err != nil && err != context.Canceled {
		log.Fatalf("runtime error: %v", err)
	}
}
