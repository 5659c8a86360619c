package bootstrap

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/RajshekharX12/vpn/internal/config"
	"github.com/RajshekharX12/vpn/internal/sysrun"
)

// fakeRunner records every command line and serves canned results.
type fakeRunner struct {
	mu      sync.Mutex
	calls   []string
	results map[string]sysrun.Result
}

func newFakeRunner() *fakeRunner {
	return &fakeRunner{results: make(map[string]sysrun.Result)}
}

func (f *fakeRunner) Run(ctx context.Context, name string, args ...string) (sysrun.Result, error) {
	return f.RunInput(ctx, "", name, args...)
}

func (f *fakeRunner) RunInput(ctx context.Context, input string, name string, args ...string) (sysrun.Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	cmdline := strings.Join(append([]string{name}, args...), " ")
	f.calls = append(f.calls, cmdline)
	if res, ok := f.results[cmdline]; ok {
		return res, nil
	}
	return sysrun.Result{ExitCode: 0}, nil
}

func (f *fakeRunner) called(cmdline string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, c := range f.calls {
		if c == cmdline {
			return true
		}
	}
	return false
}

type fakeNAT struct {
	subnet string
	iface  string
	err    error
	calls  int
}

func (n *fakeNAT) SetupMasquerade(subnet, iface string) error {
	n.calls++
	n.subnet, n.iface = subnet, iface
	return n.err
}

func newTestInstaller(t *testing.T) (*Installer, *fakeRunner, *fakeNAT, *config.Config) {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.Server.WireGuardDir = t.TempDir()

	run := newFakeRunner()
	nat := &fakeNAT{}
	inst := NewInstaller(nil, cfg, run, nat)
	inst.SysctlFile = filepath.Join(t.TempDir(), "99-wgkeeper.conf")
	inst.SkipPackages = true
	inst.Endpoint = func(context.Context) (string, error) {
		return "203.0.113.7:51820", nil
	}
	return inst, run, nat, cfg
}

func TestInstallWritesIdentity(t *testing.T) {
	t.Parallel()

	inst, run, nat, cfg := newTestInstaller(t)
	run.results["ip route get 1.1.1.1"] = sysrun.Result{
		Stdout: "1.1.1.1 via 192.0.2.1 dev ens3 src 192.0.2.10 uid 0",
	}

	rep, err := inst.Install(context.Background())
	if err != nil {
		t.Fatalf("Install: %v", err)
	}
	if rep.AlreadyInstalled {
		t.Error("fresh install reported as already installed")
	}
	if rep.ServerPublicKey.IsZero() {
		t.Error("report has zero public key")
	}
	if rep.Endpoint != "203.0.113.7:51820" {
		t.Errorf("endpoint = %q", rep.Endpoint)
	}

	data, err := os.ReadFile(cfg.InterfaceFile())
	if err != nil {
		t.Fatalf("interface file: %v", err)
	}
	text := string(data)
	for _, want := range []string{
		"[Interface]",
		"Address = 10.8.0.1/24",
		"ListenPort = 51820",
		"SaveConfig = true",
	} {
		if !strings.Contains(text, want) {
			t.Errorf("interface file missing %q:\n%s", want, text)
		}
	}

	info, err := os.Stat(cfg.ServerPrivateKeyFile())
	if err != nil {
		t.Fatalf("private key file: %v", err)
	}
	if perm := info.Mode().Perm(); perm != 0600 {
		t.Errorf("private key mode = %o, want 0600", perm)
	}

	if nat.calls != 1 || nat.subnet != cfg.Server.Subnet || nat.iface != "ens3" {
		t.Errorf("NAT call = (%d, %q, %q)", nat.calls, nat.subnet, nat.iface)
	}
	if !run.called("sysctl -w net.ipv4.ip_forward=1") {
		t.Error("forwarding was not enabled live")
	}
	if !run.called("systemctl start wg-quick@wg0") {
		t.Error("service was not started")
	}

	sysctl, err := os.ReadFile(inst.SysctlFile)
	if err != nil {
		t.Fatalf("sysctl drop-in: %v", err)
	}
	if !strings.Contains(string(sysctl), "net.ipv4.ip_forward = 1") {
		t.Errorf("sysctl drop-in = %q", sysctl)
	}
}

func TestInstallIdempotent(t *testing.T) {
	t.Parallel()

	inst, _, _, cfg := newTestInstaller(t)
	ctx := context.Background()

	first, err := inst.Install(ctx)
	if err != nil {
		t.Fatalf("first install: %v", err)
	}
	priv1, err := os.ReadFile(cfg.ServerPrivateKeyFile())
	if err != nil {
		t.Fatal(err)
	}

	second, err := inst.Install(ctx)
	if err != nil {
		t.Fatalf("second install: %v", err)
	}
	priv2, err := os.ReadFile(cfg.ServerPrivateKeyFile())
	if err != nil {
		t.Fatal(err)
	}

	if string(priv1) != string(priv2) {
		t.Error("reinstall regenerated the server private key")
	}
	if second.ServerPublicKey != first.ServerPublicKey {
		t.Error("reinstall reported a different public key")
	}
}

func TestInstallUplinkFallback(t *testing.T) {
	t.Parallel()

	inst, run, nat, _ := newTestInstaller(t)
	run.results["ip route get 1.1.1.1"] = sysrun.Result{ExitCode: 2, Stderr: "RTNETLINK answers: Network is unreachable"}

	if _, err := inst.Install(context.Background()); err != nil {
		t.Fatalf("Install: %v", err)
	}
	if nat.iface != "eth0" {
		t.Errorf("uplink = %q, want eth0 fallback", nat.iface)
	}
}

func TestInstallAbortsOnServiceFailure(t *testing.T) {
	t.Parallel()

	inst, run, _, cfg := newTestInstaller(t)
	run.results["systemctl start wg-quick@wg0"] = sysrun.Result{
		ExitCode: 1,
		Stderr:   "Failed to start wg-quick@wg0.service",
	}

	if _, err := inst.Install(context.Background()); err == nil {
		t.Fatal("Install succeeded despite service start failure")
	}
	// Earlier steps survive for a retry.
	if _, err := os.Stat(cfg.InterfaceFile()); err != nil {
		t.Errorf("interface file missing after aborted install: %v", err)
	}
}

func TestInstallAbortsOnNATFailure(t *testing.T) {
	t.Parallel()

	inst, run, nat, _ := newTestInstaller(t)
	nat.err = os.ErrPermission

	if _, err := inst.Install(context.Background()); err == nil {
		t.Fatal("Install succeeded despite NAT failure")
	}
	if run.called("systemctl start wg-quick@wg0") {
		t.Error("service started after failed NAT step")
	}
}

func TestIsReady(t *testing.T) {
	t.Parallel()

	inst, run, _, cfg := newTestInstaller(t)
	ctx := context.Background()

	if inst.IsReady(ctx) {
		t.Error("ready before interface file exists")
	}
	if got := inst.State(ctx); got != StateNotInstalled {
		t.Errorf("state = %q", got)
	}

	if err := os.WriteFile(cfg.InterfaceFile(), []byte("[Interface]\n"), 0600); err != nil {
		t.Fatal(err)
	}
	if !inst.IsReady(ctx) {
		t.Error("not ready with interface file and healthy wg show")
	}
	if got := inst.State(ctx); got != StateReady {
		t.Errorf("state = %q", got)
	}

	run.results["wg show wg0"] = sysrun.Result{ExitCode: 1, Stderr: "Unable to access interface"}
	if inst.IsReady(ctx) {
		t.Error("ready despite failing status query")
	}
}

func TestEndpointGuesserEcho(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("198.51.100.4\n"))
	}))
	defer srv.Close()

	g := &EndpointGuesser{Port: 51820, URL: srv.URL, Client: srv.Client()}
	got, err := g.Guess(context.Background())
	if err != nil {
		t.Fatalf("Guess: %v", err)
	}
	if got != "198.51.100.4:51820" {
		t.Errorf("endpoint = %q", got)
	}
}

func TestEndpointGuesserRouteFallback(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	run := newFakeRunner()
	run.results["ip route get 1.1.1.1"] = sysrun.Result{
		Stdout: "1.1.1.1 via 192.0.2.1 dev eth0 src 192.0.2.10 uid 0",
	}

	g := &EndpointGuesser{Run: run, Port: 51820, URL: srv.URL, Client: srv.Client()}
	got, err := g.Guess(context.Background())
	if err != nil {
		t.Fatalf("Guess: %v", err)
	}
	if got != "192.0.2.10:51820" {
		t.Errorf("endpoint = %q", got)
	}
}

func TestEndpointGuesserRejectsGarbage(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("<html>not an ip</html>"))
	}))
	defer srv.Close()

	g := &EndpointGuesser{Port: 51820, URL: srv.URL, Client: srv.Client()}
	if _, err := g.Guess(context.Background()); err == nil {
		t.Fatal("Guess accepted a non-IP echo response")
	}
}
