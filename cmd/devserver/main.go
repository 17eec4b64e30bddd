package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"noote/client/internal/devserver"
	"noote/client/internal/logging"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	configPath := flag.String("config", "devserver.yaml", "path to server config file")
	logLevel := flag.String("log-level", "info", "debug, info or error")
	flag.Parse()

	logger := logging.NewWriter(os.Stderr, logging.ParseLevel(*logLevel))
	logger.Infof("noote dev server starting")

	cfg, err := devserver.LoadServerConfig(*configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	logger.Infof("loaded config from %s", *configPath)

	server, err := devserver.New(cfg, logger)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return server.ListenAndServe(ctx)
}
