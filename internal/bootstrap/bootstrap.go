// Package bootstrap performs the one-time installation of the WireGuard
// server: packages, kernel forwarding, server identity, the interface
// file, NAT, and the wg-quick service. Re-running is idempotent; a
// partially failed install is retried manually, never rolled back.
package bootstrap

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"os"
	"regexp"
	"strings"

	"github.com/RajshekharX12/vpn/internal/config"
	"github.com/RajshekharX12/vpn/internal/sysrun"
)

// State of the interface bootstrap machine. There is no persisted
// Installing state: installation is synchronous, so an observer only
// ever sees the two stable states.
type State string

const (
	StateNotInstalled State = "not installed"
	StateReady        State = "ready"
)

// NATSetup abstracts masquerade programming so tests don't need
// CAP_NET_ADMIN.
type NATSetup interface {
	SetupMasquerade(subnet string, outIface string) error
}

// Report summarizes a completed install for display to the operator.
type Report struct {
	AlreadyInstalled bool
	ServerPublicKey  config.Key
	Endpoint         string
}

// Installer drives the install state machine.
type Installer struct {
	log *slog.Logger
	cfg *config.Config
	run sysrun.Runner
	nat NATSetup

	// SysctlFile is the forwarding drop-in location, overridable in
	// tests.
	SysctlFile string

	// SkipPackages disables the apt-get steps (tests, or hosts where
	// WireGuard is preinstalled).
	SkipPackages bool

	// Endpoint resolves the public host:port for the report when the
	// config does not pin one.
	Endpoint func(ctx context.Context) (string, error)
}

// NewInstaller wires an Installer. A nil logger falls back to
// slog.Default().
func NewInstaller(logger *slog.Logger, cfg *config.Config, run sysrun.Runner, nat NATSetup) *Installer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Installer{
		log:        logger.With("component", "bootstrap"),
		cfg:        cfg,
		run:        run,
		nat:        nat,
		SysctlFile: "/etc/sysctl.d/99-wgkeeper.conf",
	}
}

// IsReady reports whether the interface file exists and the interface
// answers a live status query.
func (i *Installer) IsReady(ctx context.Context) bool {
	if _, err := os.Stat(i.cfg.InterfaceFile()); err != nil {
		return false
	}
	res, err := i.run.Run(ctx, "wg", "show", i.cfg.Server.Interface)
	return err == nil && res.Ok()
}

// State returns the current bootstrap state.
func (i *Installer) State(ctx context.Context) State {
	if i.IsReady(ctx) {
		return StateReady
	}
	return StateNotInstalled
}

// Install runs every bootstrap step in order. Each step is idempotent;
// any failure aborts with a descriptive error and leaves the
// already-applied steps in place for a manual retry.
func (i *Installer) Install(ctx context.Context) (Report, error) {
	already := i.IsReady(ctx)

	if !i.SkipPackages {
		if err := i.installPackages(ctx); err != nil {
			return Report{}, err
		}
	}
	if err := i.enableForwarding(ctx); err != nil {
		return Report{}, err
	}
	pub, err := i.ensureServerIdentity()
	if err != nil {
		return Report{}, err
	}
	if err := i.setupNAT(ctx); err != nil {
		return Report{}, err
	}
	if err := i.enableService(ctx); err != nil {
		return Report{}, err
	}

	endpoint, err := i.resolveEndpoint(ctx)
	if err != nil {
		// The server works without knowing its public address; only
		// client artifacts need it, and they resolve it again.
		i.log.Warn("could not determine public endpoint", "error", err)
		endpoint = ""
	}

	i.log.Info("wireguard server ready",
		"interface", i.cfg.Server.Interface, "endpoint", endpoint)
	return Report{
		AlreadyInstalled: already,
		ServerPublicKey:  pub,
		Endpoint:         endpoint,
	}, nil
}

func (i *Installer) installPackages(ctx context.Context) error {
	// DEBIAN_FRONTEND via env(1) keeps the invocation argv-only.
	res, err := i.run.Run(ctx, "env", "DEBIAN_FRONTEND=noninteractive", "apt-get", "update", "-q")
	if err != nil {
		return err
	}
	if !res.Ok() {
		return fmt.Errorf("apt-get update failed: %s", res.Stderr)
	}
	res, err = i.run.Run(ctx, "env", "DEBIAN_FRONTEND=noninteractive", "apt-get", "install", "-y", "wireguard")
	if err != nil {
		return err
	}
	if !res.Ok() {
		return fmt.Errorf("apt-get install failed: %s", res.Stderr)
	}
	return nil
}

func (i *Installer) enableForwarding(ctx context.Context) error {
	if err := os.WriteFile(i.SysctlFile, []byte("net.ipv4.ip_forward = 1\n"), 0644); err != nil {
		return fmt.Errorf("writing sysctl drop-in: %w", err)
	}
	res, err := i.run.Run(ctx, "sysctl", "-w", "net.ipv4.ip_forward=1")
	if err != nil {
		return err
	}
	if !res.Ok() {
		return fmt.Errorf("enabling IPv4 forwarding: %s", res.Stderr)
	}
	return nil
}

// ensureServerIdentity generates the server keypair and interface file
// once. An existing interface file means identity is settled; it is
// never regenerated (idempotent Ready -> Ready).
func (i *Installer) ensureServerIdentity() (config.Key, error) {
	if _, err := os.Stat(i.cfg.InterfaceFile()); err == nil {
		data, err := os.ReadFile(i.cfg.ServerPublicKeyFile())
		if err != nil {
			return config.Key{}, fmt.Errorf("interface file exists but public key unreadable: %w", err)
		}
		return config.ParseKey(strings.TrimSpace(string(data)))
	}

	priv, pub, err := config.GenerateKeypair()
	if err != nil {
		return config.Key{}, err
	}

	if err := os.MkdirAll(i.cfg.Server.WireGuardDir, 0700); err != nil {
		return config.Key{}, fmt.Errorf("creating wireguard directory: %w", err)
	}
	if err := os.WriteFile(i.cfg.ServerPrivateKeyFile(), []byte(priv.String()+"\n"), 0600); err != nil {
		return config.Key{}, fmt.Errorf("writing server private key: %w", err)
	}
	if err := os.WriteFile(i.cfg.ServerPublicKeyFile(), []byte(pub.String()+"\n"), 0644); err != nil {
		return config.Key{}, fmt.Errorf("writing server public key: %w", err)
	}

	iface, err := i.interfaceFileText(priv)
	if err != nil {
		return config.Key{}, err
	}
	if err := os.WriteFile(i.cfg.InterfaceFile(), []byte(iface), 0600); err != nil {
		return config.Key{}, fmt.Errorf("writing interface file: %w", err)
	}
	return pub, nil
}

// interfaceFileText renders the initial [Interface] section: the server
// takes the subnet's first host, and SaveConfig keeps wg-quick writing
// runtime changes back to this file.
func (i *Installer) interfaceFileText(priv config.Key) (string, error) {
	_, ipNet, err := net.ParseCIDR(i.cfg.Server.Subnet)
	if err != nil {
		return "", fmt.Errorf("parsing subnet: %w", err)
	}
	masklen, _ := ipNet.Mask.Size()

	server := make(net.IP, len(ipNet.IP.To4()))
	copy(server, ipNet.IP.To4())
	server[3]++

	var b strings.Builder
	b.WriteString("[Interface]\n")
	fmt.Fprintf(&b, "Address = %s/%d\n", server, masklen)
	fmt.Fprintf(&b, "ListenPort = %d\n", i.cfg.Server.ListenPort)
	fmt.Fprintf(&b, "PrivateKey = %s\n", priv)
	b.WriteString("SaveConfig = true\n")
	return b.String(), nil
}

func (i *Installer) setupNAT(ctx context.Context) error {
	uplink := i.defaultUplink(ctx)
	if err := i.nat.SetupMasquerade(i.cfg.Server.Subnet, uplink); err != nil {
		return fmt.Errorf("setting up NAT: %w", err)
	}
	return nil
}

var devRe = regexp.MustCompile(`\bdev\s+(\S+)`)

// defaultUplink finds the interface carrying the default route.
func (i *Installer) defaultUplink(ctx context.Context) string {
	res, err := i.run.Run(ctx, "ip", "route", "get", "1.1.1.1")
	if err == nil && res.Ok() {
		if m := devRe.FindStringSubmatch(res.Stdout); m != nil {
			return m[1]
		}
	}
	return "eth0"
}

func (i *Installer) enableService(ctx context.Context) error {
	unit := "wg-quick@" + i.cfg.Server.Interface

	// Enablement failure is tolerated (e.g. non-systemd test hosts);
	// the start step decides success.
	if res, err := i.run.Run(ctx, "systemctl", "enable", unit); err != nil || !res.Ok() {
		i.log.Debug("systemctl enable failed (tolerated)", "unit", unit)
	}

	res, err := i.run.Run(ctx, "systemctl", "start", unit)
	if err != nil {
		return err
	}
	if !res.Ok() {
		return fmt.Errorf("starting %s: %s", unit, res.Stderr)
	}
	return nil
}

func (i *Installer) resolveEndpoint(ctx context.Context) (string, error) {
	if i.cfg.Server.Endpoint != "" {
		return i.cfg.Server.Endpoint, nil
	}
	if i.Endpoint != nil {
		return i.Endpoint(ctx)
	}
	g := &EndpointGuesser{Run: i.run, Port: i.cfg.Server.ListenPort}
	return g.Guess(ctx)
}
