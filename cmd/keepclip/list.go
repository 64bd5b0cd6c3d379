package main

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"go.klb.dev/keepclip/internal/message"
)

func newListCmd() *cobra.Command {
	v := viper.New()

	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "Show the clipboard history, newest first",
		Long: `Prints the clipboard history held by the running daemon. Position 1 is the
most recent entry; positions and IDs can be passed to "select" and "delete".

With --follow the history is printed again after every change until
interrupted.`,
		Args:    cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, _ []string) error { return bindViper(cmd, v) },
		RunE:    func(cmd *cobra.Command, _ []string) error { return runList(cmd.OutOrStdout(), v) },
	}

	f := cmd.Flags()
	f.Bool("json", false, "output raw JSON")
	f.BoolP("follow", "f", false, "keep printing the history as it changes")
	addConfigFlag(cmd)

	return cmd
}

func runList(out io.Writer, v *viper.Viper) error {
	jsonOut := v.GetBool("json")

	if !v.GetBool("follow") {
		resp, err := request(&message.Message{Type: message.TypeList})
		if err != nil {
			return err
		}
		return printHistory(out, resp.Entries, jsonOut)
	}

	wc, err := dialDaemon()
	if err != nil {
		return err
	}
	defer wc.Close()
	if err := wc.WriteMsg(&message.Message{Type: message.TypeWatch}); err != nil {
		return fmt.Errorf("watch: %w", err)
	}
	for {
		msg, err := wc.ReadMsg()
		if err != nil {
			return fmt.Errorf("watch: %w", err)
		}
		if err := msg.Err(); err != nil {
			return err
		}
		if !jsonOut {
			fmt.Fprintf(out, "── %s ──\n", time.Now().Format("15:04:05"))
		}
		if err := printHistory(out, msg.Entries, jsonOut); err != nil {
			return err
		}
	}
}

func printHistory(out io.Writer, entries []message.Entry, jsonOut bool) error {
	if jsonOut {
		enc := json.NewEncoder(out)
		if entries == nil {
			entries = []message.Entry{}
		}
		return enc.Encode(entries)
	}

	if len(entries) == 0 {
		fmt.Fprintln(out, "History is empty.")
		return nil
	}

	tw := tabwriter.NewWriter(out, 1, 0, 2, ' ', 0)
	_, _ = fmt.Fprintf(tw, "#\tKIND\tCOPIED\tSIZE\tENTRY\tID\n")
	for _, e := range entries {
		_, _ = fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%s\n",
			e.Position, e.Kind, humanize.Time(e.Time()), entrySize(e), e.Title, e.ID)
	}
	return tw.Flush()
}

func entrySize(e message.Entry) string {
	switch {
	case e.ImageSize > 0:
		return humanize.Bytes(uint64(e.ImageSize))
	case len(e.Files) > 0:
		return fmt.Sprintf("%d %s", len(e.Files), plural(len(e.Files), "file", "files"))
	default:
		return humanize.Bytes(uint64(len(e.Text)))
	}
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}
