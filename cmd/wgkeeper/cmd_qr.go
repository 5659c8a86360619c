package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/RajshekharX12/vpn/internal/wgadmin"
)

var qrCmd = &cobra.Command{
	Use:   "qr <name>",
	Short: "Print a peer's config as a QR code",
	Long: `Render the peer's client config as terminal QR art, scannable with
the WireGuard mobile apps.`,
	Args: cobra.ExactArgs(1),
	RunE: runQR,
}

func runQR(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	mgr, err := newManager(cfg)
	if err != nil {
		return err
	}

	path, err := mgr.ArtifactPath(args[0])
	if err != nil {
		return fmt.Errorf("no such peer: %s", args[0])
	}
	return printArtifactQR(path)
}

func printArtifactQR(path string) error {
	art, err := wgadmin.ArtifactQRText(path)
	if err != nil {
		return err
	}
	fmt.Fprintln(os.Stderr, art)
	fmt.Fprintln(os.Stderr, "Scan with the WireGuard app: Add tunnel -> Create from QR code.")
	return nil
}
