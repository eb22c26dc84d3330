package main

import (
	"context"
	"fmt"
	"os"

	"github.com/mark3labs/mcp-go/server"

	"github.com/gilby125/cs509-reservation-client/app"
	"github.com/gilby125/cs509-reservation-client/config"
	"github.com/gilby125/cs509-reservation-client/pkg/buildinfo"
	"github.com/gilby125/cs509-reservation-client/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading configuration: %v\n", err)
		os.Exit(1)
	}
	// stdout carries the MCP protocol.
	logger.Init(logger.Config{Level: cfg.LoggingConfig.Level, Format: cfg.LoggingConfig.Format, Output: os.Stderr})

	services, err := app.New(context.Background(), cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error initializing services: %v\n", err)
		os.Exit(1)
	}
	defer services.Close()

	s := server.NewMCPServer(
		"cs509-reservation-mcp",
		buildinfo.Version,
		server.WithLogging(),
	)
	tools := &toolset{conv: services.Converter, flights: services.Client}
	tools.register(s)

	if err := server.ServeStdio(s); err != nil {
		fmt.Fprintf(os.Stderr, "Server error: %v\n", err)
		os.Exit(1)
	}
}
