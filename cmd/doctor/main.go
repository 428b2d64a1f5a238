package main

import (
	"fmt"
	"os"

	"github.com/spf13/pflag"

	"github.com/3-lines-studio/assetrev/internal/adapters/cli"
	"github.com/3-lines-studio/assetrev/internal/adapters/env"
	"github.com/3-lines-studio/assetrev/internal/adapters/fs"
	"github.com/3-lines-studio/assetrev/internal/config"
	"github.com/3-lines-studio/assetrev/internal/usecase"
)

func main() {
	if err := run(); err != nil {
		os.Exit(1)
	}
}

func run() error {
	var configPath string
	var verbose, noColor bool

	flagSet := pflag.NewFlagSet("assetrev-doctor", pflag.ContinueOnError)
	flagSet.StringVarP(&configPath, "config", "c", "", "config file (default $ASSETREV_CONFIG or "+config.DefaultFile+")")
	flagSet.BoolVarP(&verbose, "verbose", "v", false, "log diagnostics to stderr")
	flagSet.BoolVar(&noColor, "no-color", false, "disable colored output")
	flagSet.Usage = func() {
		fmt.Fprintln(os.Stderr, "Usage: assetrev-doctor [flags]")
		fmt.Fprintln(os.Stderr)
		fmt.Fprintln(os.Stderr, "Checks that every manifest entry exists and matches its fingerprint.")
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

	cfg, err := config.Load(env.ConfigPath(configPath))
	if err != nil {
		output.PrintHeader("assetrev doctor")
		output.PrintError("%v", err)
		return err
	}

	verifier := usecase.NewVerifyService(cfg, fs.NewOSFileSystem(), output)
	result, err := verifier.Verify()
	if err != nil {
		output.PrintHeader("assetrev doctor")
		output.PrintError("%v", err)
		return err
	}
	return verifier.Report(result)
}
