package wgadmin

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func newTestAllocator(t *testing.T, subnet string, ctrl *fakeController) (*Allocator, string) {
	t.Helper()
	clients := t.TempDir()
	alloc, err := NewAllocator(subnet, clients, ctrl)
	if err != nil {
		t.Fatalf("NewAllocator(%s) error: %v", subnet, err)
	}
	return alloc, clients
}

func TestNextFreeAddress_reservesServerHost(t *testing.T) {
	t.Parallel()

	alloc, _ := newTestAllocator(t, "10.8.0.0/24", newFakeController())
	ip, err := alloc.NextFreeAddress(context.Background())
	if err != nil {
		t.Fatalf("NextFreeAddress() error: %v", err)
	}
	if ip.String() != "10.8.0.2" {
		t.Errorf("first free = %s, want 10.8.0.2", ip)
	}
	if alloc.ServerAddress().String() != "10.8.0.1" {
		t.Errorf("server address = %s, want 10.8.0.1", alloc.ServerAddress())
	}
}

func TestNextFreeAddress_skipsLivePeers(t *testing.T) {
	t.Parallel()

	ctrl := newFakeController()
	ctrl.bind("live-key-1", "10.8.0.2/32")
	ctrl.bind("live-key-2", "10.8.0.3/32")

	alloc, _ := newTestAllocator(t, "10.8.0.0/24", ctrl)
	ip, err := alloc.NextFreeAddress(context.Background())
	if err != nil {
		t.Fatalf("NextFreeAddress() error: %v", err)
	}
	if ip.String() != "10.8.0.4" {
		t.Errorf("next free = %s, want 10.8.0.4", ip)
	}
}

func TestNextFreeAddress_skipsArtifactAddresses(t *testing.T) {
	t.Parallel()

	// Artifact exists but the live interface has forgotten the peer,
	// e.g. after a reboot without wg-quick save. The artifact is still
	// an allocation.
	alloc, clients := newTestAllocator(t, "10.8.0.0/24", newFakeController())
	artifact := "[Interface]\nPrivateKey = x\nAddress = 10.8.0.2/32\n"
	if err := os.WriteFile(filepath.Join(clients, "old.conf"), []byte(artifact), 0600); err != nil {
		t.Fatal(err)
	}

	ip, err := alloc.NextFreeAddress(context.Background())
	if err != nil {
		t.Fatalf("NextFreeAddress() error: %v", err)
	}
	if ip.String() != "10.8.0.3" {
		t.Errorf("next free = %s, want 10.8.0.3", ip)
	}
}

func TestNextFreeAddress_fillsGaps(t *testing.T) {
	t.Parallel()

	ctrl := newFakeController()
	ctrl.bind("k2", "10.8.0.2/32")
	ctrl.bind("k4", "10.8.0.4/32")

	alloc, _ := newTestAllocator(t, "10.8.0.0/24", ctrl)
	ip, err := alloc.NextFreeAddress(context.Background())
	if err != nil {
		t.Fatalf("NextFreeAddress() error: %v", err)
	}
	if ip.String() != "10.8.0.3" {
		t.Errorf("next free = %s, want the gap 10.8.0.3", ip)
	}
}

func TestNextFreeAddress_exhaustion(t *testing.T) {
	t.Parallel()

	// /30: hosts .1 (server) and .2.
	ctrl := newFakeController()
	ctrl.bind("k", "10.8.0.2/32")

	alloc, _ := newTestAllocator(t, "10.8.0.0/30", ctrl)
	if _, err := alloc.NextFreeAddress(context.Background()); !errors.Is(err, ErrSubnetExhausted) {
		t.Errorf("NextFreeAddress() error = %v, want ErrSubnetExhausted", err)
	}
}

func TestNewAllocator_rejectsBadSubnets(t *testing.T) {
	t.Parallel()

	ctrl := newFakeController()
	for _, subnet := range []string{"not-a-cidr", "fd00::/64"} {
		if _, err := NewAllocator(subnet, t.TempDir(), ctrl); err == nil {
			t.Errorf("NewAllocator(%q) succeeded, want error", subnet)
		}
	}
}
