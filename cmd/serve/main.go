package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/pflag"

	"github.com/3-lines-studio/assetrev"
	"github.com/3-lines-studio/assetrev/internal/adapters/cli"
	"github.com/3-lines-studio/assetrev/internal/adapters/env"
	"github.com/3-lines-studio/assetrev/internal/config"
)

func main() {
	if err := run(); err != nil {
		os.Exit(1)
	}
}

func run() error {
	var configPath, addr, prefix string
	var verbose bool

	flagSet := pflag.NewFlagSet("assetrev-serve", pflag.ContinueOnError)
	flagSet.StringVarP(&configPath, "config", "c", "", "config file (default $ASSETREV_CONFIG or "+config.DefaultFile+")")
	flagSet.StringVar(&addr, "addr", "127.0.0.1:8080", "listen address")
	flagSet.StringVar(&prefix, "prefix", "/static/", "URL prefix the output root is mounted at")
	flagSet.BoolVarP(&verbose, "verbose", "v", false, "log diagnostics to stderr")
	if err := flagSet.Parse(os.Args[1:]); err != nil {
		if err == pflag.ErrHelp {
			return nil
		}
		return err
	}

	output := cli.NewOutput()
	if env.ColorDisabled() {
		output.DisableColors()
	}
	logger := cli.SetupLogger(os.Stderr, verbose)

	cfg, err := config.Load(env.ConfigPath(configPath))
	if err != nil {
		output.PrintHeader("assetrev serve")
		output.PrintError("%v", err)
		return err
	}

	app, err := assetrev.New(os.DirFS(cfg.OutputRoot),
		assetrev.WithManifest(os.DirFS(filepath.Dir(cfg.Manifest)), filepath.Base(cfg.Manifest)),
		assetrev.WithPrefix(prefix),
	)
	if err != nil {
		output.PrintHeader("assetrev serve")
		output.PrintError("%v", err)
		return err
	}

	server := &http.Server{
		Addr:              addr,
		Handler:           app.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ErrorLog:          slog.NewLogLogger(logger.Handler(), slog.LevelError),
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()

	output.PrintHeader("assetrev serve")
	output.PrintStep("Serving %s at http://%s%s", cfg.OutputRoot, addr, prefix)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		output.PrintError("%v", err)
		return fmt.Errorf("serve: %w", err)
	}
	return nil
}
