// keepclip: clipboard history for the desktop.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Version is set at build time via -ldflags "-X main.Version=x.y.z".
var Version = "dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "keepclip",
		Short: "Clipboard history",
		Long: `keepclip remembers what you copy. The daemon watches the system pasteboard
and keeps a bounded, de-duplicated, newest-first history that survives
restarts.

Run "keepclip daemon" once per login session (or enable autostart). The
other commands talk to the running daemon over a local socket.

Entries are referred to by their position in "keepclip list" (1 is the
newest) or by their ID.

Config file search order (first found wins):
  /etc/keepclip/keepclip.toml
  $HOME/.config/keepclip/keepclip.toml
  path supplied via --config

All flags can be set via KEEPCLIP_<FLAG> env vars or config-file keys.`,
		SilenceUsage: true,
	}

	root.AddCommand(
		newDaemonCmd(),
		newListCmd(),
		newSelectCmd(),
		newDeleteCmd(),
		newClearCmd(),
		newCapacityCmd(),
		newAutostartCmd(),
		newStatusCmd(),
		newVersionCmd(),
	)
	return root
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "keepclip %s\n", Version)
		},
	}
}
