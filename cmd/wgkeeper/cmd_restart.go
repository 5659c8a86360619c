package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var restartCmd = &cobra.Command{
	Use:   "restart",
	Short: "Restart the WireGuard interface",
	Long: `Persist the running configuration, then cycle the interface with
wg-quick down/up. Use after changing the endpoint or DNS settings.`,
	RunE: runRestart,
}

func runRestart(cmd *cobra.Command, args []string) error {
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

	if err := mgr.Restart(cmd.Context()); err != nil {
		return err
	}
	fmt.Println(styleActive.Render("Interface restarted."))
	return nil
}
