package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"
)

var peersCmd = &cobra.Command{
	Use:   "peers",
	Short: "List peers",
	Long: `List the active peers with their addresses and public key prefixes.

Use 'wgkeeper peers revoke' to interactively pick peers to revoke.`,
	RunE: runPeers,
}

var peersRevokeCmd = &cobra.Command{
	Use:   "revoke",
	Short: "Interactively revoke peers",
	Long: `Open an interactive picker to select peers whose access should be
removed. Revocation removes the live binding, the interface config
block and the client .conf.`,
	RunE: runPeersRevoke,
}

func init() {
	peersCmd.AddCommand(peersRevokeCmd)
}

func runPeers(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	mgr, err := newManager(cfg)
	if err != nil {
		return err
	}

	peers := mgr.ListPeers()
	if len(peers) == 0 {
		fmt.Println("No peers yet. Run 'wgkeeper add <name>'.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, styleHeader.Render("NAME")+"\t"+styleHeader.Render("ADDRESS")+"\t"+styleHeader.Render("PUBLIC KEY"))
	for _, p := range peers {
		fmt.Fprintf(w, "%s\t%s\t%s\n", p.Name, p.Address, p.KeyPrefix)
	}
	return w.Flush()
}

func runPeersRevoke(cmd *cobra.Command, args []string) error {
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

	peers := mgr.ListPeers()
	if len(peers) == 0 {
		fmt.Println("No peers to revoke.")
		return nil
	}

	options := make([]huh.Option[string], len(peers))
	for i, p := range peers {
		options[i] = huh.NewOption(fmt.Sprintf("%s (%s)", p.Name, p.Address), p.Name)
	}

	var selected []string
	form := huh.NewForm(huh.NewGroup(
		huh.NewMultiSelect[string]().
			Title("Revoke peers").
			Description("Selected peers lose access immediately.").
			Options(options...).
			Value(&selected),
	))
	if err := form.Run(); err != nil {
		return err
	}
	if len(selected) == 0 {
		fmt.Println("Nothing selected.")
		return nil
	}

	for _, name := range selected {
		if err := mgr.RevokePeer(cmd.Context(), name); err != nil {
			fmt.Fprintf(os.Stderr, "%s %s: %v\n", styleProblem.Render("failed:"), name, err)
			continue
		}
		fmt.Fprintf(os.Stdout, "%s %s\n", styleActive.Render("revoked"), name)
	}
	return nil
}
