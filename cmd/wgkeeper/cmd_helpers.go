package main

import (
	"context"
	"fmt"
	"os"

	"github.com/RajshekharX12/vpn/internal/bootstrap"
	"github.com/RajshekharX12/vpn/internal/config"
	"github.com/RajshekharX12/vpn/internal/sysrun"
	"github.com/RajshekharX12/vpn/internal/wgadmin"
)

// resolvedConfigPath returns the --config flag value or the default
// location.
func resolvedConfigPath() string {
	if globalConfigPath != "" {
		return globalConfigPath
	}
	return config.DefaultConfigPath()
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.LoadOrDefault(resolvedConfigPath())
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// requireRoot fails early for commands that drive wg(8) and the
// filesystem under /etc/wireguard.
func requireRoot() error {
	if os.Geteuid() != 0 {
		return fmt.Errorf("this command must run as root")
	}
	return nil
}

// newManager wires the full peer-management stack from the config.
func newManager(cfg *config.Config) (*wgadmin.Manager, error) {
	run := sysrun.New()
	ctrl := wgadmin.NewWGQuick(run, cfg.Server.Interface, cfg.ServerPublicKeyFile())
	store, err := wgadmin.OpenStore(cfg.StateFile())
	if err != nil {
		return nil, err
	}
	endpoint := func(ctx context.Context) (string, error) {
		g := &bootstrap.EndpointGuesser{Run: run, Port: cfg.Server.ListenPort}
		return g.Guess(ctx)
	}
	return wgadmin.NewManager(globalLogger, cfg, ctrl, store, endpoint)
}

func newInstaller(cfg *config.Config) *bootstrap.Installer {
	run := sysrun.New()
	return bootstrap.NewInstaller(globalLogger, cfg, run, bootstrap.NewNATManager(globalLogger))
}
