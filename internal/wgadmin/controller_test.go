package wgadmin

import (
	"context"
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

func TestParseAllowedIPs(t *testing.T) {
	t.Parallel()

	out := "keyA=\t10.8.0.2/32\nkeyB=\t10.8.0.3/32 192.168.1.0/24\nkeyC=\t(none)\n\n"
	table := parseAllowedIPs(out)

	if table["keyA="] != "10.8.0.2/32" {
		t.Errorf("keyA = %q", table["keyA="])
	}
	if table["keyB="] != "10.8.0.3/32" {
		t.Errorf("keyB = %q, want first CIDR only", table["keyB="])
	}
	if v, ok := table["keyC="]; !ok || v != "" {
		t.Errorf("keyC = (%q, %v), want empty entry", v, ok)
	}
	if len(table) != 3 {
		t.Errorf("table size = %d, want 3", len(table))
	}
}

func TestWGQuick_commandLines(t *testing.T) {
	t.Parallel()

	run := newFakeRunner()
	ctrl := NewWGQuick(run, "wg0", "")
	ctx := context.Background()
	_, pub, _ := config.GenerateKeypair()

	if err := ctrl.AddPeerBinding(ctx, pub, "10.8.0.2/32"); err != nil {
		t.Fatal(err)
	}
	if err := ctrl.RemovePeerBinding(ctx, pub); err != nil {
		t.Fatal(err)
	}
	if err := ctrl.PersistConfig(ctx); err != nil {
		t.Fatal(err)
	}
	if err := ctrl.Down(ctx); err != nil {
		t.Fatal(err)
	}
	if err := ctrl.Up(ctx); err != nil {
		t.Fatal(err)
	}

	for _, want := range []string{
		"wg set wg0 peer " + pub.String() + " allowed-ips 10.8.0.2/32",
		"wg set wg0 peer " + pub.String() + " remove",
		"wg-quick save wg0",
		"wg-quick down wg0",
		"wg-quick up wg0",
	} {
		if !run.called(want) {
			t.Errorf("command not issued: %q\ngot: %v", want, run.calls)
		}
	}
}

func TestWGQuick_statusSurfacesStderr(t *testing.T) {
	t.Parallel()

	run := newFakeRunner()
	run.results["wg show wg0"] = sysrun.Result{ExitCode: 1, Stderr: "Unable to access interface: No such device"}

	ctrl := NewWGQuick(run, "wg0", "")
	if _, err := ctrl.Status(context.Background()); err == nil || !strings.Contains(err.Error(), "No such device") {
		t.Errorf("Status() error = %v, want wrapped stderr", err)
	}
}

func TestWGQuick_publicKeyPrefersFile(t *testing.T) {
	t.Parallel()

	_, pub, _ := config.GenerateKeypair()
	keyFile := filepath.Join(t.TempDir(), "server_public.key")
	if err := os.WriteFile(keyFile, []byte(pub.String()+"\n"), 0644); err != nil {
		t.Fatal(err)
	}

	run := newFakeRunner()
	ctrl := NewWGQuick(run, "wg0", keyFile)

	got, err := ctrl.PublicKey(context.Background())
	if err != nil {
		t.Fatalf("PublicKey() error: %v", err)
	}
	if got != pub {
		t.Error("PublicKey() did not read the key file")
	}
	if run.called("wg show wg0 public-key") {
		t.Error("live query issued despite key file present")
	}
}

func TestWGQuick_publicKeyFallsBackToLiveQuery(t *testing.T) {
	t.Parallel()

	_, pub, _ := config.GenerateKeypair()
	run := newFakeRunner()
	run.results["wg show wg0 public-key"] = sysrun.Result{ExitCode: 0, Stdout: pub.String()}

	ctrl := NewWGQuick(run, "wg0", filepath.Join(t.TempDir(), "missing.key"))
	got, err := ctrl.PublicKey(context.Background())
	if err != nil {
		t.Fatalf("PublicKey() error: %v", err)
	}
	if got != pub {
		t.Error("PublicKey() fallback returned wrong key")
	}
}
