package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var revokeCmd = &cobra.Command{
	Use:   "revoke <name>",
	Short: "Revoke a peer",
	Long: `Remove a peer's access: drop the live binding, delete its block from
the interface config, and remove the client .conf.`,
	Args: cobra.ExactArgs(1),
	RunE: runRevoke,
}

func runRevoke(cmd *cobra.Command, args []string) error {
	if err := requireRoot(); err != nil {
		return err
	}
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	mgr, err := newManager(cfg)
	if err != nil {
		return err
	}

	if err := mgr.RevokePeer(cmd.Context(), args[0]); err != nil {
		return err
	}
	fmt.Fprintf(os.Stdout, "%s %s\n", styleActive.Render("revoked"), args[0])
	return nil
}
