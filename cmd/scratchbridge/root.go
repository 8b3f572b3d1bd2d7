package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/pbel78/scratch2/internal/infrastructure/config"
	"github.com/pbel78/scratch2/internal/infrastructure/logging"
)

// defaultConfigPath is used when neither --config nor SCRATCH2_CONFIG is set.
const defaultConfigPath = "configs/config.yaml"

// globalFlags are the persistent flags shared by every command.
type globalFlags struct {
	configPath string
	url        string
	username   string
	password   string
	skipVerify bool
}

func newRootCmd() *cobra.Command {
	flags := &globalFlags{}

	root := &cobra.Command{
		Use:           "scratchbridge",
		Short:         "Bridge Scratch lamp commands to zigbee2mqtt over MQTT",
		Version:       fmt.Sprintf("%s (commit %s, built %s)", version, commit, date),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := root.PersistentFlags()
	pf.StringVarP(&flags.configPath, "config", "c", "", "config file (default $SCRATCH2_CONFIG or "+defaultConfigPath+")")
	pf.StringVar(&flags.url, "url", "", "broker URL, e.g. wss://myserver:8883 (overrides mqtt.broker.url)")
	pf.StringVarP(&flags.username, "username", "u", "", "broker username (overrides mqtt.auth.username)")
	pf.StringVarP(&flags.password, "password", "p", "", "broker password (overrides mqtt.auth.password)")
	pf.BoolVar(&flags.skipVerify, "skip-verify", false, "do not verify the broker's TLS certificate")

	root.AddCommand(
		newServeCmd(flags),
		newLampCmd(flags),
		newPublishCmd(flags),
		newWatchCmd(flags),
		newTokenCmd(flags),
	)

	return root
}

// loadConfig resolves the config path, loads it and applies flag overrides.
// A missing default config file is not an error; an explicit one is.
func (f *globalFlags) loadConfig() (*config.Config, error) {
	path := f.configPath
	if path == "" {
		path = os.Getenv("SCRATCH2_CONFIG")
	}
	if path == "" {
		if _, err := os.Stat(defaultConfigPath); err == nil {
			path = defaultConfigPath
		}
	}

	cfg, err := config.Load(path)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	if f.url != "" {
		cfg.MQTT.Broker.URL = f.url
	}
	if f.username != "" {
		cfg.MQTT.Auth.Username = f.username
	}
	if f.password != "" {
		cfg.MQTT.Auth.Password = f.password
	}
	if f.skipVerify {
		cfg.MQTT.TLS.SkipVerify = true
	}

	return cfg, nil
}

// newLogger builds the configured logger.
func newLogger(cfg *config.Config) *logging.Logger {
	return logging.New(cfg.Logging, version)
}
