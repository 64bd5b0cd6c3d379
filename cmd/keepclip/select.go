package main

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"go.klb.dev/keepclip/internal/entry"
	"go.klb.dev/keepclip/internal/message"
)

func newSelectCmd() *cobra.Command {
	v := viper.New()

	cmd := &cobra.Command{
		Use:   "select <position|id>",
		Short: "Put a history entry back on the pasteboard",
		Long: `Copies the referenced entry back onto the system pasteboard. The history
order does not change.

With --print the entry is written to stdout instead (text as-is, files one
path per line) and the pasteboard is left alone.`,
		Args:    cobra.ExactArgs(1),
		PreRunE: func(cmd *cobra.Command, _ []string) error { return bindViper(cmd, v) },
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSelect(cmd.OutOrStdout(), v, args[0])
		},
	}

	cmd.Flags().Bool("print", false, "write the entry to stdout instead of the pasteboard")
	addConfigFlag(cmd)

	return cmd
}

func runSelect(out io.Writer, v *viper.Viper, ref string) error {
	if v.GetBool("print") {
		resp, err := request(&message.Message{Type: message.TypeList})
		if err != nil {
			return err
		}
		e, err := findEntry(resp.Entries, ref)
		if err != nil {
			return err
		}
		return printPayload(out, e)
	}

	resp, err := request(&message.Message{Type: message.TypeSelect, Ref: ref})
	if err != nil {
		return err
	}
	if len(resp.Entries) == 1 {
		fmt.Fprintf(out, "Copied %s\n", resp.Entries[0].Title)
	}
	return nil
}

func printPayload(out io.Writer, e message.Entry) error {
	switch e.Kind {
	case entry.KindText:
		_, err := io.WriteString(out, e.Text)
		return err
	case entry.KindFiles:
		_, err := fmt.Fprintln(out, strings.Join(e.Files, "\n"))
		return err
	default:
		return errors.New("image entries cannot be printed; select them instead")
	}
}
