package wgadmin

import (
	"context"
	"sync"

	"github.com/RajshekharX12/vpn/internal/config"
)

// fakeController records interface operations in memory instead of
// driving wg/wg-quick. Thread-safe.
type fakeController struct {
	mu sync.Mutex

	status    string
	statusErr error
	serverPub config.Key
	pubErr    error

	table map[string]string // pubkey -> allowed cidr

	addErr     error
	removeErr  error
	persistErr error
	upErr      error
	downErr    error

	persistCalls int
	upCalls      int
	downCalls    int
}

func newFakeController() *fakeController {
	_, pub, _ := config.GenerateKeypair()
	return &fakeController{
		status:    "interface: wg0",
		serverPub: pub,
		table:     make(map[string]string),
	}
}

func (f *fakeController) Status(ctx context.Context) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.statusErr != nil {
		return "", f.statusErr
	}
	return f.status, nil
}

func (f *fakeController) AllowedIPs(ctx context.Context) (map[string]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make(map[string]string, len(f.table))
	for k, v := range f.table {
		out[k] = v
	}
	return out, nil
}

func (f *fakeController) PublicKey(ctx context.Context) (config.Key, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.pubErr != nil {
		return config.Key{}, f.pubErr
	}
	return f.serverPub, nil
}

func (f *fakeController) AddPeerBinding(ctx context.Context, pub config.Key, allowedIP string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.addErr != nil {
		return f.addErr
	}
	f.table[pub.String()] = allowedIP
	return nil
}

func (f *fakeController) RemovePeerBinding(ctx context.Context, pub config.Key) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.removeErr != nil {
		return f.removeErr
	}
	delete(f.table, pub.String())
	return nil
}

func (f *fakeController) PersistConfig(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.persistCalls++
	return f.persistErr
}

func (f *fakeController) Down(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.downCalls++
	return f.downErr
}

func (f *fakeController) Up(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.upCalls++
	return f.upErr
}

func (f *fakeController) hasPeer(pub config.Key) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.table[pub.String()]
	return ok
}

func (f *fakeController) bind(pub string, cidr string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.table[pub] = cidr
}

func (f *fakeController) peerCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.table)
}
