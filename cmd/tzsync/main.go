// Command tzsync resolves the time zones of the reservation server's
// airports into the offset cache file.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/gilby125/cs509-reservation-client/app"
	"github.com/gilby125/cs509-reservation-client/config"
	"github.com/gilby125/cs509-reservation-client/pkg/logger"
	"github.com/gilby125/cs509-reservation-client/timezone"
)

func main() {
	all := flag.Bool("all", false, "re-resolve every airport, not only those missing from the cache")
	list := flag.Bool("list", false, "print the cached zones and exit")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal(err, "Failed to load configuration")
	}
	logger.Init(logger.Config{Level: cfg.LoggingConfig.Level, Format: cfg.LoggingConfig.Format})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	services, err := app.New(ctx, cfg)
	if err != nil {
		logger.Fatal(err, "Failed to initialize services")
	}
	defer services.Close()

	if *list {
		for _, entry := range services.Zones.Entries() {
			fmt.Println(entry.String())
		}
		return
	}

	airports, err := services.Client.Airports(ctx)
	if err != nil {
		logger.Fatal(err, "Failed to list airports")
	}

	var result timezone.BatchResult
	if *all {
		result = services.Resolver.ResolveAll(ctx, airports.Records())
	} else {
		result = services.Resolver.ResolveMissing(ctx, airports.Records())
	}

	fmt.Printf("resolved %d, skipped %d, failed %d\n", len(result.Resolved), len(result.Skipped), len(result.Failed))
	for code, err := range result.Failed {
		fmt.Fprintf(os.Stderr, "%s: %v\n", code, err)
	}
	if len(result.Failed) > 0 {
		os.Exit(1)
	}
}
