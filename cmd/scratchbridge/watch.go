package main

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pbel78/scratch2/internal/bridges/zigbee"
)

func newWatchCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "watch [device]",
		Short: "Print lamp state messages until interrupted",
		Long: `Connect, subscribe to the state topic of one device (or of every device
when none is given) and print each message as "<topic> <payload>".`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			device := ""
			if len(args) == 1 {
				device = args[0]
			}
			return watch(cmd.Context(), flags, cmd.OutOrStdout(), device)
		},
	}
}

// watchFilter returns the subscription filter for device, or for every
// device when it is empty.
func watchFilter(topics zigbee.Topics, device string) (string, error) {
	if device == "" {
		return topics.AllDevices(), nil
	}
	return topics.Device(device)
}

func watch(ctx context.Context, flags *globalFlags, out io.Writer, device string) error {
	cfg, err := flags.loadConfig()
	if err != nil {
		return err
	}
	if cfg.Logging.Output == "" || strings.EqualFold(cfg.Logging.Output, "stdout") {
		cfg.Logging.Output = "stderr"
	}
	log := newLogger(cfg)

	filter, err := watchFilter(zigbee.Topics{Namespace: cfg.Bridge.Namespace, Suffix: cfg.Bridge.CommandSuffix}, device)
	if err != nil {
		return err
	}

	b, err := newBridge(cfg, log)
	if err != nil {
		return err
	}
	defer b.close()

	b.manager.OnMessage(func(topic string, payload []byte) {
		fmt.Fprintf(out, "%s %s\n", topic, payload)
	})

	if err := b.connectAndWait(ctx); err != nil {
		return err
	}

	res := b.dispatcher.Subscribe(filter).Await(defaultOutcomeWait)
	if res.Err != nil {
		return fmt.Errorf("subscribing to %s: %w", filter, res.Err)
	}
	log.Info("watching", "filter", filter)

	<-ctx.Done()
	return nil
}
