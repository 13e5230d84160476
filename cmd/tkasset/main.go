package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/rpgtoolkit/toolkit/pkg/assets"
	"github.com/rpgtoolkit/toolkit/pkg/config"
	"github.com/rpgtoolkit/toolkit/pkg/toolkit"

	"github.com/alecthomas/kong"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

var CLI struct {
	Debug bool `help:"Whether to enable debug logging."`

	Dump struct {
		Descriptor string   `arg:"" name:"descriptor" help:"Asset to load, e.g. file:StatusEffects/poison.ste."`
		Configs    []string `arg:"" optional:"" name:"configs" help:"Configuration files for the project." type:"existingfile"`
	} `cmd:"" help:"Load an asset and write it to standard output as JSON."`

	Config struct {
	} `cmd:"" help:"Write the default configuration to standard output."`

	Dirs struct {
		Configs []string `arg:"" optional:"" name:"configs" help:"Configuration files for the project." type:"existingfile"`
	} `cmd:"" help:"List the directory used for each asset kind."`
}

func writeError(err error) {
	fmt.Fprintf(os.Stderr, "%s\n", err)
	os.Exit(1)
}

type dump struct {
	Descriptor string       `json:"descriptor"`
	Type       string       `json:"type"`
	Size       int64        `json:"size"`
	Asset      assets.Asset `json:"asset"`
}

func dumpCommand(uri string, configs []string) error {
	settings, err := config.Process(configs)
	if err != nil {
		return err
	}

	if settings.Log.Debug {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}

	descriptor, err := assets.ParseDescriptor(uri)
	if err != nil {
		return err
	}

	ctx := context.Background()
	registry, err := toolkit.Setup(ctx, settings)
	if err != nil {
		return err
	}

	handle, err := registry.Deserialize(ctx, descriptor)
	if err != nil {
		return err
	}

	size, err := handle.Size(ctx)
	if err != nil {
		return err
	}

	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	return encoder.Encode(dump{
		Descriptor: descriptor.String(),
		Type:       fmt.Sprintf("%T", handle.Asset()),
		Size:       size,
		Asset:      handle.Asset(),
	})
}

func dirsCommand(configs []string) error {
	settings, err := config.Process(configs)
	if err != nil {
		return err
	}

	fmt.Printf("%-14s %s\n", "project", settings.ProjectDirectory())
	for _, kind := range settings.Directories.Kinds() {
		fmt.Printf("%-14s %s\n", kind, settings.Directory(kind))
	}
	for _, root := range settings.Roots()[1:] {
		fmt.Printf("%-14s %s\n", "root", root)
	}
	return nil
}

func main() {
	consoleWriter := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}
	log.Logger = log.Output(consoleWriter)

	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	ctx := kong.Parse(&CLI,
		kong.Name("tkasset"),
		kong.Description("inspect RPG Toolkit project assets"),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{
			Compact: true,
			Summary: true,
		}))

	if CLI.Debug {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
		log.Warn().Msg("debug logging enabled")
	}

	switch ctx.Command() {
	case "dump <descriptor>", "dump <descriptor> <configs>":
		err := dumpCommand(CLI.Dump.Descriptor, CLI.Dump.Configs)
		if err != nil {
			writeError(err)
		}
	case "config":
		os.Stdout.Write(config.DEFAULT)
	case "dirs", "dirs <configs>":
		err := dirsCommand(CLI.Dirs.Configs)
		if err != nil {
			writeError(err)
		}
	}
}
