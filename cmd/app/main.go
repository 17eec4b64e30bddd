package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"noote/client/internal/app"
	"noote/client/internal/config"
	"noote/client/internal/logging"
	"noote/client/internal/router"
	"noote/client/internal/ui"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	appDir, err := config.DetectAppDir()
	if err != nil {
		return fmt.Errorf("determine app directory: %w", err)
	}
	defaultConfig := config.DefaultPath(appDir)
	configPath := flag.String("config", defaultConfig, "path to config.yaml")
	startPath := flag.String("open", router.PathHome, "route to show at startup")
	flag.Parse()

	cfg, err := config.Load(*configPath, appDir)
	if err != nil {
		return err
	}

	logLevel := logging.ParseLevel(cfg.LogLevel)
	logger, err := logging.New(cfg.LogFile, logLevel)
	if err != nil {
		return fmt.Errorf("initialize logger: %w", err)
	}
	defer logger.Close()

	baseCtx := logging.WithContext(context.Background(), logger)
	ctx, stop := signal.NotifyContext(baseCtx, os.Interrupt, syscall.SIGTERM)
	defer stop()
	logger.Infof("noote client starting (config: %s)", *configPath)
	logger.Debugf("api base url: %s", cfg.APIBaseURL)
	logger.Debugf("token backend: %s", cfg.TokenBackend)

	return startApp(ctx, cfg, *startPath)
}

func startApp(ctx context.Context, cfg *config.Config, startPath string) error {
	logger, ok := logging.FromContext(ctx)
	if !ok {
		return fmt.Errorf("logger not found in context")
	}
	application, err := app.New(ctx, cfg, logger, app.Options{})
	if err != nil {
		return err
	}
	defer application.Close()

	manager, err := ui.NewManager(ui.Options{AppName: "Noote", Logger: logger, App: application})
	if err != nil {
		return err
	}
	manager.Start(startPath)
	logger.Infof("entering UI loop")

	done := make(chan struct{})
	go func() {
		select {
		case <-ctx.Done():
			logger.Infof("shutdown requested")
			manager.Shutdown()
		case <-manager.Done():
			logger.Infof("window closed")
		}
		close(done)
	}()
	manager.RunMainLoop()
	logger.Infof("UI loop exited")
	manager.Shutdown()
	<-done
	if !manager.WaitAsync(3 * time.Second) {
		logger.Errorf("background requests did not finish in time")
	}
	return nil
}
