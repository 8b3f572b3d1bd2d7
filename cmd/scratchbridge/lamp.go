package main

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/pbel78/scratch2/internal/bridges/zigbee"
	"github.com/pbel78/scratch2/internal/command"
)

// cliSource tags commands issued from the command line.
const cliSource = "cli"

// defaultOutcomeWait bounds how long one-shot commands wait for the broker.
const defaultOutcomeWait = 5 * time.Second

func newLampCmd(flags *globalFlags) *cobra.Command {
	var transition string

	cmd := &cobra.Command{
		Use:   "lamp",
		Short: "Send one command to a zigbee2mqtt lamp",
		Long: `Connect to the configured broker, send one lamp command and print
the status token (Sent or Error).

Device IDs are zigbee2mqtt friendly names and may contain spaces:

  scratchbridge lamp on "Wohnzimmer QRB111 01" --transition 2
  scratchbridge lamp brightness qrb 50%
  scratchbridge lamp brightness qrb 128
  scratchbridge lamp color qrb red
  scratchbridge lamp color qrb 255,128,0`,
	}
	cmd.PersistentFlags().StringVarP(&transition, "transition", "t", "", "fade time in seconds")

	lampRun := func(action command.Action, paramArg bool) func(*cobra.Command, []string) error {
		return func(c *cobra.Command, args []string) error {
			seconds, err := zigbee.ParseTransition(transition)
			if err != nil {
				return err
			}

			lc := command.Command{
				DeviceID:          args[0],
				Action:            action,
				TransitionSeconds: seconds,
				Source:            cliSource,
			}
			if paramArg {
				if lc.Parameter, err = parseParameter(action, args[1]); err != nil {
					return err
				}
			}

			return sendOnce(c.Context(), flags, c.OutOrStdout(), func(d *command.Dispatcher) command.Result {
				return d.Dispatch(lc)
			})
		}
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "on <device>",
			Short: "Switch a lamp on",
			Args:  cobra.ExactArgs(1),
			RunE:  lampRun(command.ActionPowerOn, false),
		},
		&cobra.Command{
			Use:   "off <device>",
			Short: "Switch a lamp off",
			Args:  cobra.ExactArgs(1),
			RunE:  lampRun(command.ActionPowerOff, false),
		},
		&cobra.Command{
			Use:   "brightness <device> <level|preset|state>",
			Short: "Set a lamp's brightness (0-255, a preset, or a JSON state)",
			Long:  "Presets: " + strings.Join(zigbee.PresetNames(zigbee.BrightnessPresets), ", "),
			Args:  cobra.ExactArgs(2),
			RunE:  lampRun(command.ActionSetBrightness, true),
		},
		&cobra.Command{
			Use:   "color <device> <r,g,b|preset|state>",
			Short: "Set a lamp's color (r,g,b, a preset, or a JSON state)",
			Long:  "Presets: " + strings.Join(zigbee.PresetNames(zigbee.ColorPresets), ", "),
			Args:  cobra.ExactArgs(2),
			RunE:  lampRun(command.ActionSetColor, true),
		},
	)

	return cmd
}

// parseParameter turns a CLI argument into a base state.
//
// Brightness: a JSON object is used as-is, an integer is a raw level, and
// anything else is a preset name. Color: a JSON object, "r,g,b", or a preset.
func parseParameter(action command.Action, arg string) (string, error) {
	arg = strings.TrimSpace(arg)
	if strings.HasPrefix(arg, "{") {
		return arg, nil
	}

	switch action {
	case command.ActionSetBrightness:
		if level, err := strconv.ParseUint(arg, 10, 8); err == nil {
			return zigbee.BrightnessState(uint8(level)), nil
		}
		return zigbee.BrightnessPreset(arg)
	case command.ActionSetColor:
		if parts := strings.Split(arg, ","); len(parts) == 3 {
			var rgb [3]uint8
			for i, p := range parts {
				v, err := strconv.ParseUint(strings.TrimSpace(p), 10, 8)
				if err != nil {
					return "", fmt.Errorf("%w: color channel %q must be 0-255", zigbee.ErrMalformedCommandPayload, p)
				}
				rgb[i] = uint8(v)
			}
			return zigbee.ColorState(zigbee.RGB{R: rgb[0], G: rgb[1], B: rgb[2]}), nil
		}
		return zigbee.ColorPreset(arg)
	default:
		return "", fmt.Errorf("%w: %s takes no parameter", command.ErrInvalidCommand, action)
	}
}

// sendOnce connects, issues one request through send, waits for the
// broker's verdict and prints the status token. A result of Error is
// returned as an error so the process exits non-zero.
func sendOnce(ctx context.Context, flags *globalFlags, out io.Writer, send func(*command.Dispatcher) command.Result) error {
	cfg, err := flags.loadConfig()
	if err != nil {
		return err
	}
	if cfg.Logging.Output == "" || strings.EqualFold(cfg.Logging.Output, "stdout") {
		cfg.Logging.Output = "stderr"
	}
	log := newLogger(cfg)

	b, err := newBridge(cfg, log)
	if err != nil {
		return err
	}
	defer b.close()

	if err := b.connectAndWait(ctx); err != nil {
		fmt.Fprintln(out, command.StatusError)
		return err
	}

	res := send(b.dispatcher).Await(defaultOutcomeWait)
	return printResult(out, res)
}

// printResult writes the status token and, for failures, returns the cause.
func printResult(out io.Writer, res command.Result) error {
	fmt.Fprintln(out, res.Status)
	if res.Err != nil {
		return res.Err
	}
	if res.Outcome != nil {
		return fmt.Errorf("no broker acknowledgement for %s within %s", res.CommandID, defaultOutcomeWait)
	}
	return nil
}
