package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var addCmd = &cobra.Command{
	Use:   "add <name>",
	Short: "Add a peer",
	Long: `Create a new peer: allocate an address, register it on the live
interface, append it to the interface config, and write the client
.conf under the clients directory. Names are sanitized to
[a-zA-Z0-9_-] and truncated to 32 characters.`,
	Args: cobra.ExactArgs(1),
	RunE: runAdd,
}

var addShowQR bool

func init() {
	addCmd.Flags().BoolVar(&addShowQR, "qr", false, "also print the config as a QR code")
}

func runAdd(cmd *cobra.Command, args []string) error {
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

	res, err := mgr.AddPeer(cmd.Context(), args[0])
	if err != nil {
		return err
	}

	fmt.Fprintf(os.Stdout, "%s %s\n", styleActive.Render("Added peer"), res.Peer.Name)
	fmt.Fprintf(os.Stdout, "%s %s\n", styleKey.Render("Address:"), res.Peer.Address)
	fmt.Fprintf(os.Stdout, "%s %s\n", styleKey.Render("Config:"), res.ArtifactPath)

	if addShowQR {
		return printArtifactQR(res.ArtifactPath)
	}
	return nil
}
