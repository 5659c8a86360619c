package wgadmin

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/RajshekharX12/vpn/internal/config"
	"github.com/RajshekharX12/vpn/internal/sysrun"
)

// Controller is the narrow capability surface for the live WireGuard
// interface. The lifecycle manager only talks to the kernel through it,
// so tests can swap in a recording fake and never spawn a process.
type Controller interface {
	// Status returns the verbatim `wg show <iface>` output.
	Status(ctx context.Context) (string, error)

	// AllowedIPs returns the live peer table: base64 public key to the
	// peer's first allowed address in CIDR notation.
	AllowedIPs(ctx context.Context) (map[string]string, error)

	// PublicKey returns the server's public key.
	PublicKey(ctx context.Context) (config.Key, error)

	// AddPeerBinding registers a peer on the live interface.
	AddPeerBinding(ctx context.Context, pub config.Key, allowedIP string) error

	// RemovePeerBinding removes a peer from the live interface.
	RemovePeerBinding(ctx context.Context, pub config.Key) error

	// PersistConfig writes the running interface configuration to disk,
	// reconciling the live table with the interface file.
	PersistConfig(ctx context.Context) error

	// Down and Up cycle the interface. Down on an already-down interface
	// fails; callers decide whether that matters.
	Down(ctx context.Context) error
	Up(ctx context.Context) error
}

// WGQuick is the production Controller. It drives the interface with the
// wg(8) and wg-quick(8) tools through the command executor.
type WGQuick struct {
	run        sysrun.Runner
	iface      string
	pubKeyFile string
}

// NewWGQuick returns a Controller for the named interface. pubKeyFile is
// consulted for the server public key before falling back to a live
// query; it may be empty.
func NewWGQuick(run sysrun.Runner, iface, pubKeyFile string) *WGQuick {
	return &WGQuick{run: run, iface: iface, pubKeyFile: pubKeyFile}
}

func (w *WGQuick) Status(ctx context.Context) (string, error) {
	res, err := w.run.Run(ctx, "wg", "show", w.iface)
	if err != nil {
		return "", err
	}
	if !res.Ok() {
		return "", fmt.Errorf("wg show %s: %s", w.iface, errText(res))
	}
	return res.Stdout, nil
}

func (w *WGQuick) AllowedIPs(ctx context.Context) (map[string]string, error) {
	res, err := w.run.Run(ctx, "wg", "show", w.iface, "allowed-ips")
	if err != nil {
		return nil, err
	}
	if !res.Ok() {
		return nil, fmt.Errorf("wg show %s allowed-ips: %s", w.iface, errText(res))
	}
	return parseAllowedIPs(res.Stdout), nil
}

// parseAllowedIPs reads `wg show <iface> allowed-ips` output: one peer
// per line, public key first, then whitespace-separated CIDRs (or
// "(none)").
func parseAllowedIPs(out string) map[string]string {
	table := make(map[string]string)
	for _, line := range strings.Split(out, "\n") {
		fields := strings.Fields(line)
		if len(fields) < 2 {
			continue
		}
		if fields[1] == "(none)" {
			table[fields[0]] = ""
			continue
		}
		table[fields[0]] = fields[1]
	}
	return table
}

func (w *WGQuick) PublicKey(ctx context.Context) (config.Key, error) {
	if w.pubKeyFile != "" {
		if data, err := os.ReadFile(w.pubKeyFile); err == nil {
			if k, err := config.ParseKey(strings.TrimSpace(string(data))); err == nil {
				return k, nil
			}
		}
	}
	res, err := w.run.Run(ctx, "wg", "show", w.iface, "public-key")
	if err != nil {
		return config.Key{}, err
	}
	if !res.Ok() {
		return config.Key{}, fmt.Errorf("wg show %s public-key: %s", w.iface, errText(res))
	}
	return config.ParseKey(strings.TrimSpace(res.Stdout))
}

func (w *WGQuick) AddPeerBinding(ctx context.Context, pub config.Key, allowedIP string) error {
	res, err := w.run.Run(ctx, "wg", "set", w.iface, "peer", pub.String(), "allowed-ips", allowedIP)
	if err != nil {
		return err
	}
	if !res.Ok() {
		return fmt.Errorf("wg set peer: %s", errText(res))
	}
	return nil
}

func (w *WGQuick) RemovePeerBinding(ctx context.Context, pub config.Key) error {
	res, err := w.run.Run(ctx, "wg", "set", w.iface, "peer", pub.String(), "remove")
	if err != nil {
		return err
	}
	if !res.Ok() {
		return fmt.Errorf("wg set peer remove: %s", errText(res))
	}
	return nil
}

func (w *WGQuick) PersistConfig(ctx context.Context) error {
	res, err := w.run.Run(ctx, "wg-quick", "save", w.iface)
	if err != nil {
		return err
	}
	if !res.Ok() {
		return fmt.Errorf("wg-quick save %s: %s", w.iface, errText(res))
	}
	return nil
}

func (w *WGQuick) Down(ctx context.Context) error {
	res, err := w.run.Run(ctx, "wg-quick", "down", w.iface)
	if err != nil {
		return err
	}
	if !res.Ok() {
		return fmt.Errorf("wg-quick down %s: %s", w.iface, errText(res))
	}
	return nil
}

func (w *WGQuick) Up(ctx context.Context) error {
	res, err := w.run.Run(ctx, "wg-quick", "up", w.iface)
	if err != nil {
		return err
	}
	if !res.Ok() {
		return fmt.Errorf("wg-quick up %s: %s", w.iface, errText(res))
	}
	return nil
}

// errText prefers stderr for diagnostics, falling back to stdout, then
// the bare exit code.
func errText(res sysrun.Result) string {
	if res.Stderr != "" {
		return res.Stderr
	}
	if res.Stdout != "" {
		return res.Stdout
	}
	return fmt.Sprintf("exit status %d", res.ExitCode)
}
