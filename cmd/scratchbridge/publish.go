package main

import (
	"github.com/spf13/cobra"

	"github.com/pbel78/scratch2/internal/command"
)

func newPublishCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "publish <topic> <message>",
		Short: "Publish one raw message and print Sent or Error",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return sendOnce(cmd.Context(), flags, cmd.OutOrStdout(), func(d *command.Dispatcher) command.Result {
				return d.Send(args[0], args[1])
			})
		},
	}
}
