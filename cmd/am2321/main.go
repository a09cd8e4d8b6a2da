package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"os"
	"time"

	chlog "github.com/charmbracelet/log"
	"github.com/muesli/termenv"
	"github.com/urfave/cli/v2"

	"github.com/ktooi/am2321"
	"github.com/ktooi/am2321/adapter"
	"github.com/ktooi/am2321/cmd/am2321/console"
	"github.com/ktooi/am2321/i2c"
	"github.com/ktooi/am2321/pkg/config"
)

func main() {
	os.Exit(run())
}

func run() int {
	app := cli.NewApp()
	app.Name = "am2321"
	app.EnableBashCompletion = true
	app.Version = config.Version
	app.Usage = "read temperature, humidity and discomfort index from an AM2321 sensor"
	app.Flags = []cli.Flag{
		&cli.BoolFlag{
			Name:  "verbose",
			Usage: "enable verbose logging",
		},
	}
	app.Before = func(ctx *cli.Context) error {
		charm := chlog.NewWithOptions(os.Stderr, chlog.Options{
			ReportCaller:    true,
			ReportTimestamp: true,
			TimeFormat:      time.DateTime,
		})
		charm.SetColorProfile(termenv.TrueColor)
		charm.SetLevel(chlog.InfoLevel)
		if ctx.Bool("verbose") {
			charm.SetLevel(chlog.DebugLevel)
		}
		slog.SetDefault(slog.New(charm))
		return nil
	}
	app.Commands = cli.Commands{
		&readCmd,
		&monitorCmd,
	}
	err := app.Run(os.Args)
	if err != nil {
		var exerr cli.ExitCoder
		if errors.As(err, &exerr) {
			log.Printf("unexpected error: %v", err)
			return exerr.ExitCode()
		}
		return 1
	}
	return 0
}

// verboseContext propagates a command's verbose flag and raises the log
// level to debug when it is set after the app-level Before has run.
func verboseContext(parent context.Context, c *cli.Context) context.Context {
	verbose := c.Bool("verbose")
	if verbose {
		charm := chlog.NewWithOptions(os.Stderr, chlog.Options{
			ReportCaller:    true,
			ReportTimestamp: true,
			TimeFormat:      time.DateTime,
		})
		charm.SetColorProfile(termenv.TrueColor)
		charm.SetLevel(chlog.DebugLevel)
		slog.SetDefault(slog.New(charm))
	}
	return console.SetVerbose(parent, verbose)
}

// loadConfig merges the optional config file with command line flags, flags
// win over file values.
func loadConfig(c *cli.Context) (config.Config, error) {
	cfg := config.Default()
	if path := c.String("config"); path != "" {
		var err error
		cfg, err = config.Load(path)
		if err != nil {
			return cfg, err
		}
	}
	if c.IsSet("adapter") {
		cfg.Adapter = c.String("adapter")
	}
	if c.IsSet("device") {
		cfg.Device = c.String("device")
	}
	if c.IsSet("bus") {
		cfg.Bus = c.Int("bus")
	}
	return cfg, nil
}

func newOpener(cfg config.Config) (am2321.BusOpener, error) {
	switch cfg.Adapter {
	case "generic":
		return i2c.NewOpener(cfg.Device), nil
	case "nanopi":
		return adapter.NewNanoPiOpener(cfg.Bus), nil
	case "raspi":
		return adapter.NewRaspiOpener(cfg.Bus), nil
	default:
		return nil, fmt.Errorf("unknown adapter %q", cfg.Adapter)
	}
}

func newSensor(cfg config.Config) (*am2321.AM2321, error) {
	opener, err := newOpener(cfg)
	if err != nil {
		return nil, err
	}
	return am2321.NewAM2321(opener,
		am2321.WithMaxRetries(cfg.MaxRetries),
		am2321.WithRetryInterval(time.Duration(cfg.RetryInterval)),
	), nil
}
