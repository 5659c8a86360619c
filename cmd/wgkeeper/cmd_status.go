package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show server status and traffic stats",
	Long:  `Print the interface state and the verbatim wg show output with per-peer handshakes and transfer counters.`,
	RunE:  runStatus,
}

func runStatus(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	mgr, err := newManager(cfg)
	if err != nil {
		return err
	}
	ctx := cmd.Context()

	fmt.Fprintf(os.Stdout, "%s %s\n", styleKey.Render("Interface:"), cfg.Server.Interface)
	fmt.Fprintf(os.Stdout, "%s %s\n", styleKey.Render("Subnet:"), cfg.Server.Subnet)

	if !mgr.Ready(ctx) {
		fmt.Fprintf(os.Stdout, "%s %s\n", styleKey.Render("State:"), styleProblem.Render("not installed"))
		fmt.Fprintln(os.Stdout, "Run 'wgkeeper install' first.")
		return nil
	}
	fmt.Fprintf(os.Stdout, "%s %s\n", styleKey.Render("State:"), styleActive.Render("ready"))

	stats, err := mgr.Stats(ctx)
	if err != nil {
		return err
	}
	if strings.TrimSpace(stats) != "" {
		fmt.Fprintln(os.Stdout)
		fmt.Fprintln(os.Stdout, stats)
	}
	return nil
}
