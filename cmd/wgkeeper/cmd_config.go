package main

import (
	"fmt"
	"os"
	"os/exec"

	"github.com/spf13/cobra"

	"github.com/RajshekharX12/vpn/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show config file paths",
	Long: `Print the paths wgkeeper reads and writes.

  wgkeeper config          Print the paths
  wgkeeper config init     Write a default config file
  wgkeeper config edit     Open the config in $EDITOR`,
	RunE: runConfig,
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a default config file",
	RunE:  runConfigInit,
}

var configEditCmd = &cobra.Command{
	Use:   "edit",
	Short: "Open the config in $EDITOR",
	RunE:  runConfigEdit,
}

func init() {
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configEditCmd)
}

func runConfig(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	fmt.Fprintf(os.Stdout, "%s %s\n", styleKey.Render("Config:"), resolvedConfigPath())
	fmt.Fprintf(os.Stdout, "%s %s\n", styleKey.Render("Interface file:"), cfg.InterfaceFile())
	fmt.Fprintf(os.Stdout, "%s %s\n", styleKey.Render("Clients dir:"), cfg.ClientsDir())
	fmt.Fprintf(os.Stdout, "%s %s\n", styleKey.Render("State file:"), cfg.StateFile())

	if _, err := os.Stat(resolvedConfigPath()); err != nil {
		fmt.Fprintln(os.Stdout, "\nNo config file yet; defaults are in effect. Run 'wgkeeper config init'.")
	}
	return nil
}

func runConfigInit(cmd *cobra.Command, args []string) error {
	target := resolvedConfigPath()
	if _, err := os.Stat(target); err == nil {
		return fmt.Errorf("%s already exists", target)
	}
	if err := config.SaveConfig(target, config.DefaultConfig()); err != nil {
		return err
	}
	fmt.Fprintf(os.Stdout, "Wrote %s\n", target)
	return nil
}

func runConfigEdit(cmd *cobra.Command, args []string) error {
	editor := os.Getenv("EDITOR")
	if editor == "" {
		editor = "vi"
	}
	c := exec.CommandContext(cmd.Context(), editor, resolvedConfigPath())
	c.Stdin = os.Stdin
	c.Stdout = os.Stdout
	c.Stderr = os.Stderr
	return c.Run()
}
