package main

import (
	"context"

	"github.com/urfave/cli/v2"

	"github.com/ktooi/am2321"
	"github.com/ktooi/am2321/cmd/am2321/console"
)

var readCmd = cli.Command{
	Name:    "read",
	Aliases: []string{"rd"},
	Usage:   "take a single measurement and print it",
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
			Usage: "bus number for gobot adapters, -1 for platform default",
		},
		&cli.StringFlag{
			Name:  "config",
			Usage: "path to a YAML config file",
		},
		&cli.BoolFlag{
			Name:    "csv",
			Aliases: []string{"c"},
			Usage:   "print the values in CSV format",
		},
		&cli.BoolFlag{
			Name:    "json",
			Aliases: []string{"j"},
			Usage:   "print the values in JSON format",
		},
		&cli.BoolFlag{
			Name:    "readable",
			Aliases: []string{"r"},
			Usage:   "print the values in human readable format (default)",
		},
		&cli.BoolFlag{Name: "verbose", Aliases: []string{"v"}},
	},
	Action: func(c *cli.Context) error {
		ctx := verboseContext(context.Background(), c)

		cfg, err := loadConfig(c)
		if err != nil {
			return console.Exit(1, "configuration error: %s", console.Red(err))
		}
		switch {
		case c.Bool("csv"):
			cfg.Format = "csv"
		case c.Bool("json"):
			cfg.Format = "json"
		case c.Bool("readable"):
			cfg.Format = "readable"
		}
		console.Debugf(ctx, "reading %s over %s adapter in %s format", cfg.Device, cfg.Adapter, cfg.Format)

		sensor, err := newSensor(cfg)
		if err != nil {
			return console.Exit(1, "adapter initialization error: %s", console.Red(err))
		}

		// The first reading after a long sleep returns stale registers, so it
		// is discarded. The driver paces the second one past the sensor's
		// internal refresh.
		if _, err := sensor.MeasureWithRetry(ctx); err != nil {
			console.Warnf("warm-up measurement failed: %s", console.Red(err))
		}
		reading, err := sensor.MeasureWithRetry(ctx)
		if err != nil {
			return console.Exit(1, "failed to measure data from AM2321: %s", console.Red(err))
		}
		printReading(cfg.Format, reading)
		return nil
	},
}

func printReading(format string, reading am2321.Reading) {
	switch format {
	case "csv":
		console.Printf("%.1f,%.1f,%.1f\n", reading.Temperature, reading.Humidity, reading.Discomfort)
	case "json":
		// "Templature" is the key the original tool emitted, kept verbatim so
		// downstream consumers keep parsing.
		console.Printf("{\"Templature\":%.1f,\"Humidity\":%.1f,\"Discomfort\":%.1f}\n",
			reading.Temperature, reading.Humidity, reading.Discomfort)
	default:
		console.Printf("Templature : %.1f\nHumidity   : %.1f\nDiscomfort : %.1f\n",
			reading.Temperature, reading.Humidity, reading.Discomfort)
	}
}
