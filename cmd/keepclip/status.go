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

	"go.klb.dev/keepclip/internal/ipc"
	"go.klb.dev/keepclip/internal/message"
)

func newStatusCmd() *cobra.Command {
	v := viper.New()

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show the daemon state",
		Long: `Displays the running daemon's pasteboard backend, data directory, history
size and the most recent persistence error, if any.`,
		Args:    cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, _ []string) error { return bindViper(cmd, v) },
		RunE:    func(cmd *cobra.Command, _ []string) error { return runStatus(cmd.OutOrStdout(), v) },
	}

	cmd.Flags().Bool("json", false, "output raw JSON")
	addConfigFlag(cmd)

	return cmd
}

func runStatus(out io.Writer, v *viper.Viper) error {
	resp, err := request(&message.Message{Type: message.TypeStatus})
	if err != nil {
		return err
	}
	if resp.Status == nil {
		return fmt.Errorf("status: empty response")
	}

	if v.GetBool("json") {
		enc, _ := json.MarshalIndent(resp.Status, "", "  ")
		fmt.Fprintln(out, string(enc))
		return nil
	}

	printStatus(out, resp.Status)
	return nil
}

func printStatus(out io.Writer, st *message.Status) {
	w := tabwriter.NewWriter(out, 1, 0, 2, ' ', 0)
	fmt.Fprintf(w, "Version:\t%s\n", st.Version)
	fmt.Fprintf(w, "Socket:\t%s\n", ipc.SocketPath())
	fmt.Fprintf(w, "Backend:\t%s\n", st.Backend)
	fmt.Fprintf(w, "Data dir:\t%s\n", st.DataDir)
	if !st.StartedAt.IsZero() {
		fmt.Fprintf(w, "Started:\t%s (%s)\n", st.StartedAt.Format(time.RFC3339), humanize.Time(st.StartedAt))
	}
	fmt.Fprintf(w, "Entries:\t%d of %d\n", st.Entries, st.Capacity)
	fmt.Fprintf(w, "Autostart:\t%t\n", st.Autostart)
	fmt.Fprintf(w, "Change count:\t%d\n", st.LastChange)
	if st.LastSaveError != "" {
		fmt.Fprintf(w, "Last save error:\t%s\n", st.LastSaveError)
	}
	_ = w.Flush()
}
