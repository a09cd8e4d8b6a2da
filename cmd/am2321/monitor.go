package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/ktooi/am2321"
	"github.com/ktooi/am2321/cmd/am2321/console"
	"github.com/ktooi/am2321/pkg/config"
)

var monitorCmd = cli.Command{
	Name:    "monitor",
	Aliases: []string{"mon"},
	Usage:   "keep measuring on an interval and print the latest reading",
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:    "adapter",
			Aliases: []string{"a"},
			Value:   "generic",
		},
		&cli.StringFlag{
			Name:    "device",
			Aliases: []string{"d"},
			Value:   "/dev/i2c-1",
		},
		&cli.IntFlag{
			Name:  "bus",
			Value: -1,
		},
		&cli.StringFlag{
			Name:  "config",
			Usage: "path to a YAML config file",
		},
		&cli.DurationFlag{
			Name:    "interval",
			Aliases: []string{"i"},
			Value:   10 * time.Second,
			Usage:   "measurement interval, at least the sensor's 2s refresh",
		},
		&cli.BoolFlag{
			Name:    "csv",
			Aliases: []string{"c"},
			Usage:   "print the values in CSV format",
		},
		&cli.BoolFlag{Name: "verbose", Aliases: []string{"v"}},
	},
	Action: func(c *cli.Context) error {
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		ctx = verboseContext(ctx, c)

		cfg, err := loadConfig(c)
		if err != nil {
			return console.Exit(1, "configuration error: %s", console.Red(err))
		}
		if c.Bool("csv") {
			cfg.Format = "csv"
		}
		if c.IsSet("interval") || cfg.MonitorInterval == 0 {
			cfg.MonitorInterval = config.Duration(c.Duration("interval"))
		}

		sensor, err := newSensor(cfg)
		if err != nil {
			return console.Exit(1, "adapter initialization error: %s", console.Red(err))
		}

		console.Debugf(ctx, "measuring every %s over %s adapter", time.Duration(cfg.MonitorInterval), cfg.Adapter)

		monitor := am2321.NewMonitor(sensor, time.Duration(cfg.MonitorInterval))
		if err := monitor.Start(ctx); err != nil {
			console.Warnf("initial measurement failed: %s", console.Red(err))
		}
		defer monitor.Stop()

		ticker := time.NewTicker(time.Duration(cfg.MonitorInterval))
		defer ticker.Stop()
		printLatest(cfg.Format, monitor)
		for {
			select {
			case <-ctx.Done():
				console.PInfof(console.PictoStop, "%s", console.Bold("monitor stopped"))
				return nil
			case <-ticker.C:
				printLatest(cfg.Format, monitor)
			}
		}
	},
}

func printLatest(format string, monitor *am2321.Monitor) {
	reading, updatedAt, err := monitor.Latest()
	if err != nil {
		console.Warnf("no reading available: %s", console.Red(err))
		return
	}
	if format == "csv" {
		console.Printf("%s,%.1f,%.1f,%.1f\n", updatedAt.Format(time.RFC3339),
			reading.Temperature, reading.Humidity, reading.Discomfort)
		return
	}
	console.PInfof(console.PictoThermometer, "%s °C", console.White(reading.Temperature))
	console.PInfof(console.PictoHumidity, "%s %%RH", console.White(reading.Humidity))
	console.PInfof(console.PictoSweat, "discomfort %s (updated %s)",
		console.White(reading.Discomfort), console.Green(updatedAt.Format(time.DateTime)))
}
