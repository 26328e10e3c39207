// Command chunkmgrd runs the chunk manager: it loads its configured foreign
// tables, opens the chunk cache, and serves the line-framed TCP front-end
// of §6 until interrupted.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/chandrudp29/omniscidb/internal/logger"
	"github.com/chandrudp29/omniscidb/pkg/config"
)

func main() {
	configPath := flag.String("config", "", "Path to config file (default: XDG config dir)")
	initConfig := flag.Bool("init-config", false, "Write a sample config file to the default path and exit")
	force := flag.Bool("force", false, "With -init-config, overwrite an existing config file")
	flag.Parse()

	if *initConfig {
		path, err := config.InitConfig(*force)
		if err != nil {
			log.Fatalf("chunkmgrd: %v", err)
		}
		fmt.Printf("wrote sample config to %s\n", path)
		return
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("chunkmgrd: loading config: %v", err)
	}
	logger.SetLevel(cfg.Logging.Level)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	rt, err := config.BuildRuntime(ctx, cfg)
	if err != nil {
		log.Fatalf("chunkmgrd: building runtime: %v", err)
	}
	defer func() {
		if err := rt.Close(); err != nil {
			logger.Warn("chunkmgrd: closing cache index: %v", err)
		}
	}()

	if rt.Metrics.Server != nil {
		go func() {
			if err := rt.Metrics.Server.Start(ctx); err != nil {
				logger.Error("chunkmgrd: metrics server error: %v", err)
			}
		}()
	}

	rt.Scheduler.Start(ctx)

	errCh := make(chan error, 1)
	go func() { errCh <- rt.Server.Serve(ctx) }()

	logger.Info("chunkmgrd: serving %d table(s) on port %s", len(cfg.Tables), cfg.Server.Port)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-sigChan:
		logger.Info("chunkmgrd: shutting down...")
	case err := <-errCh:
		if err != nil {
			logger.Error("chunkmgrd: server error: %v", err)
		}
	}

	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := rt.Scheduler.Stop(shutdownCtx); err != nil {
		logger.Warn("chunkmgrd: scheduler shutdown: %v", err)
	}
	if rt.Metrics.Server != nil {
		if err := rt.Metrics.Server.Stop(shutdownCtx); err != nil {
			logger.Warn("chunkmgrd: metrics server shutdown: %v", err)
		}
	}
}
