package main

import (
	"fmt"
	"os"
	"path/filepath"

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
	var configName string
	var noColor bool

	flagSet := pflag.NewFlagSet("assetrev-init", pflag.ContinueOnError)
	flagSet.StringVar(&configName, "name", config.DefaultFile, "config file name to create")
	flagSet.BoolVar(&noColor, "no-color", false, "disable colored output")
	flagSet.Usage = func() {
		fmt.Fprintln(os.Stderr, "Usage: assetrev-init [flags] [project-dir]")
		fmt.Fprintln(os.Stderr)
		fmt.Fprintln(os.Stderr, "Writes a default config and source directories. Existing configs are kept.")
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

	projectDir := "."
	if flagSet.NArg() > 0 {
		projectDir = flagSet.Arg(0)
	}
	absProjectDir, err := filepath.Abs(projectDir)
	if err != nil {
		output.PrintHeader("assetrev init")
		output.PrintError("Failed to resolve project directory: %v", err)
		return err
	}

	service := usecase.NewInitService(fs.NewOSFileSystem(), output)
	if _, err := service.InitProject(usecase.InitInput{ProjectDir: absProjectDir, ConfigName: configName}); err != nil {
		output.PrintError("%v", err)
		return err
	}
	return nil
}
