package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var installCmd = &cobra.Command{
	Use:   "install",
	Short: "Install and start the WireGuard server",
	Long: `Install WireGuard, enable IPv4 forwarding, generate the server
identity, write the interface config, set up NAT, and start the
wg-quick service. Safe to re-run; an already-installed server is left
untouched.`,
	RunE: runInstall,
}

var installSkipPackages bool

func init() {
	installCmd.Flags().BoolVar(&installSkipPackages, "skip-packages", false, "assume WireGuard is already installed")
}

func runInstall(cmd *cobra.Command, args []string) error {
	if err := requireRoot(); err != nil {
		return err
	}
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	inst := newInstaller(cfg)
	inst.SkipPackages = installSkipPackages

	rep, err := inst.Install(cmd.Context())
	if err != nil {
		return err
	}

	if rep.AlreadyInstalled {
		fmt.Fprintln(os.Stdout, styleActive.Render("WireGuard already installed and running."))
	} else {
		fmt.Fprintln(os.Stdout, styleActive.Render("WireGuard installed and running."))
	}
	fmt.Fprintf(os.Stdout, "%s %s\n", styleKey.Render("Interface:"), cfg.Server.Interface)
	fmt.Fprintf(os.Stdout, "%s %s\n", styleKey.Render("Public key:"), rep.ServerPublicKey)
	if rep.Endpoint != "" {
		fmt.Fprintf(os.Stdout, "%s %s\n", styleKey.Render("Endpoint:"), rep.Endpoint)
	}
	return nil
}
