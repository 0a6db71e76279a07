package main

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"

	"TrendBands/internal/config"
	"TrendBands/internal/logging"
)

var (
	configPath string
	logLevel   string
)

func main() {
	if err := newApp().Run(os.Args); err != nil {
		logrus.WithError(err).Fatal("trendbands failed")
	}
}

func newApp() *cli.App {
	app := cli.NewApp()
	app.Name = "trendbands"
	app.Usage = "fit quantile trend bands to daily close history"
	app.Flags = []cli.Flag{
		&cli.StringFlag{
			Name:        "config",
			Value:       "configs/config.yaml",
			Usage:       "path to the YAML config file",
			EnvVars:     []string{"CONFIG_PATH"},
			Destination: &configPath,
		},
		&cli.StringFlag{
			Name:        "log-level",
			Usage:       "override the configured log level",
			Destination: &logLevel,
		},
	}
	app.Commands = []*cli.Command{
		fitCommand,
		predictCommand,
		refreshCommand,
		runCommand,
	}
	return app
}

// loadConfig reads and validates the config and sets up logging.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if logLevel != "" {
		cfg.Log.Level = logLevel
	}
	logging.Setup(cfg.Log.Level, cfg.Log.Format)
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}
	return cfg, nil
}
