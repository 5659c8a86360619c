//go:build !linux

package bootstrap

import (
	"errors"
	"log/slog"
)

// NATManager is only implemented on Linux; the server this tool manages
// is a Linux host.
type NATManager struct{}

func NewNATManager(_ *slog.Logger) *NATManager {
	return &NATManager{}
}

func (n *NATManager) SetupMasquerade(subnet string, outIface string) error {
	return errors.New("NAT management is only supported on linux")
}

func (n *NATManager) Cleanup() error {
	return nil
}
