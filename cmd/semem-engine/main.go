// Command semem-engine wires the core verb engine together and drives it
// from stdin/stdout. It is a minimal wiring binary (not a CLI shell): its
// only job is to show a realistic construction path for internal/engine and
// internal/dispatch, mirroring cmd/contextd/main.go's load-config /
// init-logger / init-dependencies / run shape.
//
// Usage:
//
//	semem-engine
//	SEMEM_CONFIG=/etc/semem/config.yaml semem-engine
package main

import (
	"bufio"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/danja/semem/internal/config"
	"github.com/danja/semem/internal/dispatch"
	"github.com/danja/semem/internal/engine"
	"github.com/danja/semem/internal/logging"
)

var (
	version   = "dev"
	gitCommit = "unknown"
)

func main() {
	configPath := flag.String("config", os.Getenv("SEMEM_CONFIG"), "path to config.yaml")
	flag.Parse()

	if len(flag.Args()) > 0 && flag.Args()[0] == "version" {
		fmt.Printf("semem-engine %s (%s)\n", version, gitCommit)
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		log.Printf("received signal %v, shutting down", sig)
		cancel()
	}()

	if err := run(ctx, *configPath); err != nil {
		log.Fatalf("semem-engine: %v", err)
	}
}

// run loads configuration, constructs the Engine and Dispatcher, and serves
// newline-delimited JSON dispatch.Request/Envelope pairs over stdin/stdout
// until ctx is cancelled. This stands in for a real transport (explicitly
// out of scope for this module, §1).
func run(ctx context.Context, configPath string) error {
	cfg, err := config.LoadWithFile(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	slog, err := logging.NewLogger(logging.NewDefaultConfig(), nil)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer func() { _ = slog.Sync() }()
	logger := slog.Underlying()

	eng, err := engine.New(cfg, logger)
	if err != nil {
		return fmt.Errorf("construct engine: %w", err)
	}
	if err := eng.Start(ctx); err != nil {
		return fmt.Errorf("start engine: %w", err)
	}
	defer eng.Stop()

	d := dispatch.New(eng)
	logger.Info("semem-engine ready", zap.String("version", version))

	return serveStdio(ctx, d, logger)
}

// serveStdio reads one JSON dispatch.Request per line and writes one JSON
// dispatch.Envelope per line in response, until ctx is cancelled or stdin
// is closed.
func serveStdio(ctx context.Context, d *dispatch.Dispatcher, logger *zap.Logger) error {
	scanner := bufio.NewScanner(os.Stdin)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	enc := json.NewEncoder(os.Stdout)

	for scanner.Scan() {
		if ctx.Err() != nil {
			return nil
		}

		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var req dispatch.Request
		if err := json.Unmarshal(line, &req); err != nil {
			logger.Warn("semem-engine: malformed request", zap.Error(err))
			continue
		}

		env := d.Dispatch(ctx, req)
		if err := enc.Encode(env); err != nil {
			return fmt.Errorf("encode envelope: %w", err)
		}
	}
	return scanner.Err()
}
