package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"go.klb.dev/keepclip/internal/message"
)

func newDeleteCmd() *cobra.Command {
	v := viper.New()

	cmd := &cobra.Command{
		Use:     "delete <position|id>",
		Aliases: []string{"rm"},
		Short:   "Remove one entry from the history",
		Args:    cobra.ExactArgs(1),
		PreRunE: func(cmd *cobra.Command, _ []string) error { return bindViper(cmd, v) },
		RunE: func(cmd *cobra.Command, args []string) error {
			resp, err := request(&message.Message{Type: message.TypeDelete, Ref: args[0]})
			if err != nil {
				return err
			}
			if len(resp.Entries) == 1 {
				fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s\n", resp.Entries[0].Title)
			}
			return nil
		},
	}
	addConfigFlag(cmd)
	return cmd
}

func newClearCmd() *cobra.Command {
	v := viper.New()

	cmd := &cobra.Command{
		Use:     "clear",
		Short:   "Remove every entry from the history",
		Args:    cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, _ []string) error { return bindViper(cmd, v) },
		RunE: func(cmd *cobra.Command, _ []string) error {
			if _, err := request(&message.Message{Type: message.TypeClear}); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "History cleared.")
			return nil
		},
	}
	addConfigFlag(cmd)
	return cmd
}

func newCapacityCmd() *cobra.Command {
	v := viper.New()

	cmd := &cobra.Command{
		Use:   "capacity [n]",
		Short: "Show or set how many entries are kept",
		Long: `Without an argument, prints the current capacity. With one, sets it.
Values are clamped to 1..100; lowering the capacity drops the oldest entries
immediately.`,
		Args:    cobra.MaximumNArgs(1),
		PreRunE: func(cmd *cobra.Command, _ []string) error { return bindViper(cmd, v) },
		RunE: func(cmd *cobra.Command, args []string) error {
			req := &message.Message{Type: message.TypeSettings}
			if len(args) == 1 {
				req = &message.Message{Type: message.TypeSetCapacity, Capacity: args[0]}
			}
			resp, err := request(req)
			if err != nil {
				return err
			}
			return printSettings(cmd.OutOrStdout(), resp.Settings)
		},
	}
	addConfigFlag(cmd)
	return cmd
}

func newAutostartCmd() *cobra.Command {
	v := viper.New()

	cmd := &cobra.Command{
		Use:       "autostart [on|off]",
		Short:     "Show or set the start-at-login preference",
		Args:      cobra.MatchAll(cobra.MaximumNArgs(1), cobra.OnlyValidArgs),
		ValidArgs: []string{"on", "off", "true", "false"},
		PreRunE:   func(cmd *cobra.Command, _ []string) error { return bindViper(cmd, v) },
		RunE: func(cmd *cobra.Command, args []string) error {
			req := &message.Message{Type: message.TypeSettings}
			if len(args) == 1 {
				on := parseOnOff(args[0])
				req = &message.Message{Type: message.TypeSetAutostart, Autostart: &on}
			}
			resp, err := request(req)
			if err != nil {
				return err
			}
			return printSettings(cmd.OutOrStdout(), resp.Settings)
		},
	}
	addConfigFlag(cmd)
	return cmd
}

func parseOnOff(s string) bool {
	switch strings.ToLower(s) {
	case "on", "true":
		return true
	}
	return false
}

func printSettings(out io.Writer, s *message.Settings) error {
	if s == nil {
		return fmt.Errorf("daemon returned no settings")
	}
	autostart := "off"
	if s.Autostart {
		autostart = "on"
	}
	_, err := fmt.Fprintf(out, "capacity:  %d\nautostart: %s\n", s.Capacity, autostart)
	return err
}
