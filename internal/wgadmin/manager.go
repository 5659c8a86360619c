// Package wgadmin is the peer lifecycle and state-consistency engine for
// a single WireGuard server. It keeps three sources of truth aligned —
// the live kernel interface, the persisted interface file, and the state
// document — and exposes serialized, idempotent operations for peer
// creation, retrieval, and revocation.
package wgadmin

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/RajshekharX12/vpn/internal/config"
)

// EndpointResolver returns the host:port clients should connect to.
type EndpointResolver func(ctx context.Context) (string, error)

// Manager orchestrates the peer lifecycle. All mutating operations are
// serialized behind one mutex: the design assumes a single administrative
// session, and the mutex removes the races a second caller would hit.
type Manager struct {
	mu sync.Mutex

	log      *slog.Logger
	cfg      *config.Config
	ctrl     Controller
	store    *Store
	alloc    *Allocator
	endpoint EndpointResolver
}

// NewManager wires a Manager from its collaborators. A nil logger falls
// back to slog.Default(). endpoint resolves the server's public
// host:port when the config does not pin one.
func NewManager(logger *slog.Logger, cfg *config.Config, ctrl Controller, store *Store, endpoint EndpointResolver) (*Manager, error) {
	if logger == nil {
		logger = slog.Default()
	}
	alloc, err := NewAllocator(cfg.Server.Subnet, cfg.ClientsDir(), ctrl)
	if err != nil {
		return nil, err
	}
	return &Manager{
		log:      logger.With("component", "wgadmin"),
		cfg:      cfg,
		ctrl:     ctrl,
		store:    store,
		alloc:    alloc,
		endpoint: endpoint,
	}, nil
}

// Store exposes the underlying state store (owner identity, pending
// steps) to the gateway.
func (m *Manager) Store() *Store {
	return m.store
}

// Ready reports whether the interface is installed and answering: the
// interface file exists and a live status query succeeds.
func (m *Manager) Ready(ctx context.Context) bool {
	if _, err := os.Stat(m.cfg.InterfaceFile()); err != nil {
		return false
	}
	_, err := m.ctrl.Status(ctx)
	return err == nil
}

// AddResult describes a successfully created peer.
type AddResult struct {
	Peer         PeerRecord
	ArtifactPath string
}

// AddPeer creates a peer from a raw operator-supplied name. The name is
// sanitized first; a collision with an active record or an existing
// artifact file is ErrDuplicateName. On failure after the live
// registration, the already-applied steps are undone in reverse; an undo
// that itself fails is logged as requiring manual reconciliation.
func (m *Manager) AddPeer(ctx context.Context, rawName string) (AddResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.Ready(ctx) {
		return AddResult{}, ErrNotReady
	}

	name := SanitizeName(rawName)
	if name == "" {
		return AddResult{}, fmt.Errorf("%w: empty name", ErrDuplicateName)
	}
	artifact := m.artifactPath(name)
	if _, err := os.Stat(artifact); err == nil {
		return AddResult{}, fmt.Errorf("%w: %s", ErrDuplicateName, name)
	}
	if _, ok := m.store.Peer(name); ok {
		return AddResult{}, fmt.Errorf("%w: %s", ErrDuplicateName, name)
	}

	priv, pub, err := config.GenerateKeypair()
	if err != nil {
		return AddResult{}, err
	}

	addr, err := m.alloc.NextFreeAddress(ctx)
	if err != nil {
		return AddResult{}, err
	}
	allowedIP := addr.String() + "/32"

	// Live registration first: before it, nothing persisted exists, so
	// a failure here needs no rollback.
	if err := m.ctrl.AddPeerBinding(ctx, pub, allowedIP); err != nil {
		return AddResult{}, fmt.Errorf("registering peer on interface: %w", err)
	}

	if err := m.appendAndWriteArtifact(ctx, name, priv, pub, addr.String(), allowedIP, artifact); err != nil {
		m.undoAdd(ctx, name, pub, artifact)
		return AddResult{}, err
	}

	// Reconcile the running config with the interface file. The peer is
	// already fully functional; a save failure is drift to be audited,
	// not a reason to destroy the peer.
	if err := m.ctrl.PersistConfig(ctx); err != nil {
		m.log.Warn("persisting running config failed; manual reconciliation may be needed",
			"peer", name, "error", err)
	}

	rec := PeerRecord{Name: name, PublicKey: pub, Address: addr.String()}
	if err := m.store.PutPeer(rec); err != nil {
		m.undoAdd(ctx, name, pub, artifact)
		return AddResult{}, fmt.Errorf("recording peer: %w", err)
	}

	m.log.Info("peer added", "peer", name, "address", addr.String())
	return AddResult{Peer: rec, ArtifactPath: artifact}, nil
}

func (m *Manager) appendAndWriteArtifact(ctx context.Context, name string, priv, pub config.Key, addr, allowedIP, artifact string) error {
	if err := AppendPeerBlock(m.cfg.InterfaceFile(), name, pub, allowedIP); err != nil {
		return err
	}

	serverPub, err := m.ctrl.PublicKey(ctx)
	if err != nil {
		return fmt.Errorf("reading server public key: %w", err)
	}
	endpoint, err := m.resolveEndpoint(ctx)
	if err != nil {
		return err
	}

	conf := ClientConf{
		PrivateKey:      priv,
		Address:         addr,
		DNS:             m.cfg.Server.DNS,
		ServerPublicKey: serverPub,
		Endpoint:        endpoint,
	}
	if err := os.MkdirAll(filepath.Dir(artifact), 0700); err != nil {
		return fmt.Errorf("creating clients directory: %w", err)
	}
	// Owner-only: the artifact holds the peer's private key.
	if err := os.WriteFile(artifact, []byte(conf.Render()), 0600); err != nil {
		return fmt.Errorf("writing client artifact: %w", err)
	}
	return nil
}

// undoAdd compensates a partially-applied AddPeer in reverse order.
func (m *Manager) undoAdd(ctx context.Context, name string, pub config.Key, artifact string) {
	if err := os.Remove(artifact); err != nil && !os.IsNotExist(err) {
		m.log.Warn("undo: removing artifact failed", "peer", name, "error", err)
	}
	if err := RemovePeerBlock(m.cfg.InterfaceFile(), name, pub); err != nil {
		m.log.Warn("undo: removing interface file block failed", "peer", name, "error", err)
	}
	if err := m.ctrl.RemovePeerBinding(ctx, pub); err != nil {
		m.log.Warn("undo: removing live binding failed", "peer", name, "error", err)
	}
}

// RevokePeer removes an active peer. An unknown name is ErrNotFound with
// no side effects, even when a stale entry exists only in the live table
// or the interface file — Audit surfaces those instead.
func (m *Manager) RevokePeer(ctx context.Context, rawName string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	name := SanitizeName(rawName)
	rec, ok := m.store.Peer(name)
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, name)
	}

	if err := m.ctrl.RemovePeerBinding(ctx, rec.PublicKey); err != nil {
		m.log.Warn("removing live binding failed; continuing revocation", "peer", name, "error", err)
	}
	if err := RemovePeerBlock(m.cfg.InterfaceFile(), name, rec.PublicKey); err != nil {
		return fmt.Errorf("editing interface file: %w", err)
	}
	// Best effort; a missing artifact is not an error.
	if err := os.Remove(m.artifactPath(name)); err != nil && !os.IsNotExist(err) {
		m.log.Warn("deleting artifact failed", "peer", name, "error", err)
	}
	if err := m.store.DeletePeer(name); err != nil {
		return fmt.Errorf("removing peer record: %w", err)
	}
	if err := m.ctrl.PersistConfig(ctx); err != nil {
		m.log.Warn("persisting running config failed after revoke", "peer", name, "error", err)
	}

	m.log.Info("peer revoked", "peer", name)
	return nil
}

// ArtifactPath resolves a peer name to its artifact file. Pure
// filesystem lookup, deliberately not cross-checked against the Store:
// an artifact orphaned by a failed add stays fetchable.
func (m *Manager) ArtifactPath(rawName string) (string, error) {
	path := m.artifactPath(SanitizeName(rawName))
	if _, err := os.Stat(path); err != nil {
		return "", fmt.Errorf("%w: %s", ErrNotFound, rawName)
	}
	return path, nil
}

func (m *Manager) artifactPath(name string) string {
	return filepath.Join(m.cfg.ClientsDir(), name+".conf")
}

// PeerSummary is one row of ListPeers output.
type PeerSummary struct {
	Name      string
	Address   string
	KeyPrefix string
}

// ListPeers reflects exactly the Store's peer mapping, name-ordered.
// Display-only; it does not consult the live interface.
func (m *Manager) ListPeers() []PeerSummary {
	recs := m.store.Peers()
	out := make([]PeerSummary, 0, len(recs))
	for _, rec := range recs {
		out = append(out, PeerSummary{
			Name:      rec.Name,
			Address:   rec.Address,
			KeyPrefix: keyPrefix(rec.PublicKey.String()),
		})
	}
	return out
}

func keyPrefix(key string) string {
	if len(key) > 12 {
		return key[:12] + "…"
	}
	return key
}

// Restart persists the running config, then cycles the interface. A
// failed down is tolerated (down on a down interface is harmless); a
// failed up is the caller's problem.
func (m *Manager) Restart(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.ctrl.PersistConfig(ctx); err != nil {
		m.log.Warn("persisting running config failed before restart", "error", err)
	}
	if err := m.ctrl.Down(ctx); err != nil {
		m.log.Debug("interface down failed (tolerated)", "error", err)
	}
	if err := m.ctrl.Up(ctx); err != nil {
		return fmt.Errorf("bringing interface up: %w", err)
	}
	m.log.Info("interface restarted")
	return nil
}

// Stats returns the live interface status verbatim.
func (m *Manager) Stats(ctx context.Context) (string, error) {
	return m.ctrl.Status(ctx)
}

// AuditReport lists divergence among the three sources of truth plus the
// artifact directory. Report-only: Audit never mutates anything.
type AuditReport struct {
	// MissingLive are store peers absent from the live peer table.
	MissingLive []string
	// MissingBlock are store peers with no marked interface file block.
	MissingBlock []string
	// MissingArtifact are store peers whose artifact file is gone.
	MissingArtifact []string
	// AddressMismatch are store peers whose live allowed address differs.
	AddressMismatch []string
	// StaleLive are live peer-table keys (prefixes) with no store record.
	StaleLive []string
	// StaleBlock are marked interface file blocks with no store record.
	StaleBlock []string
	// OrphanArtifacts are artifact files with no store record.
	OrphanArtifacts []string
}

// Clean reports whether the three sources agree.
func (r AuditReport) Clean() bool {
	return len(r.MissingLive) == 0 && len(r.MissingBlock) == 0 &&
		len(r.MissingArtifact) == 0 && len(r.AddressMismatch) == 0 &&
		len(r.StaleLive) == 0 && len(r.StaleBlock) == 0 &&
		len(r.OrphanArtifacts) == 0
}

// String renders the report for an operator.
func (r AuditReport) String() string {
	if r.Clean() {
		return "all sources in sync"
	}
	var b strings.Builder
	section := func(title string, items []string) {
		if len(items) == 0 {
			return
		}
		fmt.Fprintf(&b, "%s:\n", title)
		for _, it := range items {
			fmt.Fprintf(&b, "  - %s\n", it)
		}
	}
	section("missing from live interface", r.MissingLive)
	section("missing from interface file", r.MissingBlock)
	section("missing artifact file", r.MissingArtifact)
	section("address mismatch", r.AddressMismatch)
	section("live peers unknown to store", r.StaleLive)
	section("interface file blocks unknown to store", r.StaleBlock)
	section("orphaned artifacts", r.OrphanArtifacts)
	return strings.TrimRight(b.String(), "\n")
}

// Audit compares the Store, the live peer table, the interface file's
// marked blocks, and the artifact directory, and reports every
// divergence. This is the repair-discovery half of the accepted
// no-transactions design: partial failures leave drift, Audit finds it.
func (m *Manager) Audit(ctx context.Context) (AuditReport, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var rep AuditReport

	live, err := m.ctrl.AllowedIPs(ctx)
	if err != nil {
		return rep, fmt.Errorf("querying live peer table: %w", err)
	}
	blocks, err := MarkedPeerBlocks(m.cfg.InterfaceFile())
	if err != nil {
		return rep, err
	}

	recs := m.store.Peers()
	known := make(map[string]PeerRecord, len(recs)) // pubkey -> record
	for _, rec := range recs {
		known[rec.PublicKey.String()] = rec

		if cidr, ok := live[rec.PublicKey.String()]; !ok {
			rep.MissingLive = append(rep.MissingLive, rec.Name)
		} else if cidr != rec.Address+"/32" {
			rep.AddressMismatch = append(rep.AddressMismatch,
				fmt.Sprintf("%s: store %s/32, live %s", rec.Name, rec.Address, cidr))
		}

		if blk, ok := blocks[rec.Name]; !ok || blk[0] != rec.PublicKey.String() {
			rep.MissingBlock = append(rep.MissingBlock, rec.Name)
		}

		if _, err := os.Stat(m.artifactPath(rec.Name)); err != nil {
			rep.MissingArtifact = append(rep.MissingArtifact, rec.Name)
		}
	}

	for key := range live {
		if _, ok := known[key]; !ok {
			rep.StaleLive = append(rep.StaleLive, keyPrefix(key))
		}
	}
	for name, blk := range blocks {
		rec, ok := m.store.Peer(name)
		if !ok || rec.PublicKey.String() != blk[0] {
			rep.StaleBlock = append(rep.StaleBlock, name)
		}
	}

	artifacts, _ := filepath.Glob(filepath.Join(m.cfg.ClientsDir(), "*.conf"))
	for _, path := range artifacts {
		name := strings.TrimSuffix(filepath.Base(path), ".conf")
		if _, ok := m.store.Peer(name); !ok {
			rep.OrphanArtifacts = append(rep.OrphanArtifacts, name)
		}
	}

	sort.Strings(rep.StaleLive)
	sort.Strings(rep.StaleBlock)
	sort.Strings(rep.OrphanArtifacts)
	return rep, nil
}

// resolveEndpoint prefers the configured endpoint, then the resolver.
func (m *Manager) resolveEndpoint(ctx context.Context) (string, error) {
	if m.cfg.Server.Endpoint != "" {
		return m.cfg.Server.Endpoint, nil
	}
	if m.endpoint == nil {
		return "", errors.New("no endpoint configured and no resolver available")
	}
	ep, err := m.endpoint(ctx)
	if err != nil {
		return "", fmt.Errorf("resolving server endpoint: %w", err)
	}
	return ep, nil
}
