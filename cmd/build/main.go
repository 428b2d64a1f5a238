package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"

	"github.com/3-lines-studio/assetrev/internal/adapters/cli"
	"github.com/3-lines-studio/assetrev/internal/adapters/env"
	"github.com/3-lines-studio/assetrev/internal/adapters/fs"
	"github.com/3-lines-studio/assetrev/internal/cache"
	"github.com/3-lines-studio/assetrev/internal/config"
	"github.com/3-lines-studio/assetrev/internal/transform"
	"github.com/3-lines-studio/assetrev/internal/usecase"
)

const watchTarget = "watch"

func main() {
	if err := run(); err != nil {
		os.Exit(1)
	}
}

func run() error {
	var configPath string
	var verbose, noColor, watch bool

	flagSet := pflag.NewFlagSet("assetrev-build", pflag.ContinueOnError)
	flagSet.StringVarP(&configPath, "config", "c", "", "config file (default $ASSETREV_CONFIG or "+config.DefaultFile+")")
	flagSet.BoolVarP(&verbose, "verbose", "v", false, "log diagnostics to stderr")
	flagSet.BoolVar(&noColor, "no-color", false, "disable colored output")
	flagSet.BoolVarP(&watch, "watch", "w", false, "rebuild when sources change")
	flagSet.Usage = func() {
		fmt.Fprintln(os.Stderr, "Usage: assetrev-build [flags] [target...]")
		fmt.Fprintln(os.Stderr)
		fmt.Fprintln(os.Stderr, "Targets default to \"default\". The target \"watch\" is the same as --watch.")
		fmt.Fprintln(os.Stderr)
		flagSet.PrintDefaults()
	}

	if err := flagSet.Parse(os.Args[1:]); err != nil {
		if err == pflag.ErrHelp {
			return nil
		}
		return err
	}

	output := cli.NewOutput()
	if noColor || env.ColorDisabled() {
		output.DisableColors()
	}
	cli.SetupLogger(os.Stderr, verbose)

	var targets []string
	for _, arg := range flagSet.Args() {
		if arg == watchTarget {
			watch = true
			continue
		}
		targets = append(targets, arg)
	}

	cfg, err := config.Load(env.ConfigPath(configPath))
	if err != nil {
		output.PrintHeader("assetrev build")
		output.PrintError("%v", err)
		return err
	}

	store, err := cache.New(cfg.CacheFile)
	if err != nil {
		output.PrintError("Failed to open transform cache: %v", err)
		return err
	}
	defer store.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	buildService := usecase.NewBuildService(cfg, transform.NewMinifier(), fs.NewOSFileSystem(), output, store)
	input := usecase.BuildInput{Targets: targets}

	if watch {
		watchService := usecase.NewWatchService(cfg, buildService, output)
		if err := watchService.Watch(ctx, input); err != nil {
			output.PrintError("%v", err)
			return err
		}
		return nil
	}

	if _, err := buildService.Run(ctx, input); err != nil {
		output.PrintError("%v", err)
		return err
	}

	output.PrintDone("Build completed successfully")
	return nil
}
