package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"opcflux"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	cmd := os.Args[1]
	var err error

	switch cmd {
	case "run":
		err = runCommand(os.Args[2:])
	case "validate":
		err = validateCommand(os.Args[2:])
	case "discover":
		err = discoverCommand(os.Args[2:])
	case "stats":
		err = statsCommand(os.Args[2:])
	case "help", "-h", "--help":
		printUsage()
		return
	default:
		printUsage()
		err = fmt.Errorf("unknown command %q", cmd)
	}

	if err != nil {
		log.Fatalf("opcflux %s: %v", cmd, err)
	}
}

func runCommand(args []string) error {
	fs := flag.NewFlagSet("run", flag.ExitOnError)
	cfgPath := fs.String("config", "./data/config.yaml", "Path to configuration file")
	if err := fs.Parse(args); err != nil {
		return err
	}

	flow, err := opcflux.Conf(*cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	return flow.Run(ctx)
}

func validateCommand(args []string) error {
	fs := flag.NewFlagSet("validate", flag.ExitOnError)
	cfgPath := fs.String("config", "./data/config.yaml", "Path to configuration file to validate")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if _, err := opcflux.LoadConfig(*cfgPath); err != nil {
		return err
	}
	fmt.Printf("config %s looks good\n", *cfgPath)
	return nil
}

func discoverCommand(args []string) error {
	fs := flag.NewFlagSet("discover", flag.ExitOnError)
	cfgPath := fs.String("config", "./data/config.yaml", "Path to configuration file")
	root := fs.String("root", "", "Root node id (defaults to discovery.root or the Objects folder)")
	depth := fs.Int("depth", 0, "Browse depth (defaults to discovery.depth)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := opcflux.LoadConfig(*cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if *root == "" {
		*root = cfg.Discovery.Root
	}
	if *depth == 0 {
		*depth = cfg.Discovery.Depth
	}

	// Discovery only needs the transport; skip subscriptions and the
	// Timescale sink entirely.
	cfg.Subscriptions = nil
	discard := opcflux.NewCallbackSink("discard", func([]opcflux.Point) error { return nil })

	rt, err := opcflux.NewRuntime(cfg, opcflux.WithSink(discard))
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := rt.Start(ctx); err != nil {
		return err
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = rt.Shutdown(shutdownCtx)
	}()

	var count int
	err = rt.Discover(ctx, *root, *depth, func(n opcflux.DiscoveredNode) {
		count++
		class := string(n.Classification)
		if class == "" {
			class = "-"
		}
		fmt.Printf("%-8s %-40s %s\n", class, n.NodeID, n.DisplayName)
	})
	if err != nil {
		return err
	}
	fmt.Printf("%d nodes discovered\n", count)
	return nil
}

func statsCommand(args []string) error {
	fs := flag.NewFlagSet("stats", flag.ExitOnError)
	url := fs.String("url", "http://localhost:9100/metrics", "Prometheus metrics endpoint")
	interval := fs.Duration("interval", 2*time.Second, "Refresh interval")
	if err := fs.Parse(args); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	ticker := time.NewTicker(*interval)
	defer ticker.Stop()

	fmt.Printf("Streaming metrics from %s (Ctrl+C to stop)\n", *url)
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if err := printMetricsSnapshot(*url); err != nil {
				fmt.Fprintf(os.Stderr, "stats error: %v\n", err)
			}
		}
	}
}

func printMetricsSnapshot(url string) error {
	resp, err := http.Get(url)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %s", resp.Status)
	}

	targets := map[string]float64{
		"opcflux_points_published_total": 0,
		"opcflux_queue_length":           0,
		"opcflux_wal_size_bytes":         0,
	}

	scanner := bufio.NewScanner(resp.Body)
	for scanner.Scan() {
		line := scanner.Text()
		if strings.HasPrefix(line, "#") {
			continue
		}
		for key := range targets {
			if strings.HasPrefix(line, key+" ") {
				var value float64
				if _, err := fmt.Sscanf(line, key+" %f", &value); err == nil {
					targets[key] = value
				}
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return err
	}

	fmt.Printf("[%s] published=%f queue=%f wal_bytes=%f\n",
		time.Now().Format(time.RFC3339),
		targets["opcflux_points_published_total"],
		targets["opcflux_queue_length"],
		targets["opcflux_wal_size_bytes"],
	)
	return nil
}

func printUsage() {
	fmt.Printf(`opcflux CLI

Usage:
  opcflux <command> [flags]

Commands:
  run        Start the bridge runtime using the provided config
  validate   Load and validate a config file without starting the runtime
  discover   Walk the server address space and print discovered nodes
  stats      Poll the Prometheus metrics endpoint and print live counters

Examples:
  opcflux run -config ./data/config.yaml
  opcflux validate -config ./data/config.yaml
  opcflux discover -config ./data/config.yaml -root "i=85" -depth 2
  opcflux stats -url http://localhost:9100/metrics -interval 1s
`)
}
