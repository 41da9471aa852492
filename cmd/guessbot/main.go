package main

import (
	"fmt"

	"github.com/alecthomas/kong"
)

// version is set by ldflags during build
var version = "dev"

type CLI struct {
	Version  kong.VersionFlag `short:"v" help:"Show version"`
	Server   ServerCmd        `cmd:"" help:"Run the websocket gateway"`
	Telegram TelegramCmd      `cmd:"" help:"Run the Telegram bot"`
	Play     PlayCmd          `cmd:"" help:"Play against a running gateway in the terminal"`
	Info     InfoCmd          `cmd:"" help:"Show version and effective configuration"`
}

// InfoCmd prints the version and the configuration a server would run with.
type InfoCmd struct {
	Config string `kong:"help='HCL config file'"`
}

func (c *InfoCmd) Run() error {
	cfg, err := loadConfig(c.Config)
	if err != nil {
		return err
	}
	fmt.Printf("guessbot %s\n", version)
	fmt.Printf("address:           %s\n", cfg.Server.Address)
	fmt.Printf("max attempts:      %d\n", cfg.Game.MaxAttempts)
	fmt.Printf("holder policy:     %s\n", cfg.HolderPolicy())
	fmt.Printf("events per second: %g (burst %d)\n", cfg.Limits.EventsPerSecond, cfg.Limits.Burst)
	return nil
}

func main() {
	var cli CLI
	ctx := kong.Parse(&cli,
		kong.Name("guessbot"),
		kong.Description("Number guessing chat bot"),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{
			Compact: true,
		}),
		kong.Vars{
			"version": version,
		},
	)
	err := ctx.Run()
	ctx.FatalIfErrorf(err)
}
