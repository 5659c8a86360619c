package wgadmin

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/RajshekharX12/vpn/internal/config"
)

// PeerRecord is the durable record of one active peer. Name is the
// primary key; the JSON field names keep the on-disk document readable
// next to the artifacts it describes.
type PeerRecord struct {
	Name      string     `json:"-"`
	PublicKey config.Key `json:"pub"`
	Address   string     `json:"ip"`
}

// Step is a pending conversational step for one chat user: which input
// the gateway is waiting for, plus free-form context.
type Step struct {
	Action string            `json:"step"`
	Extra  map[string]string `json:"extra,omitempty"`
}

// document is the persisted state: owner identity, per-user pending
// steps, active peers, and the last allocated address. It is rewritten
// wholesale on every mutation.
type document struct {
	OwnerID       int64                 `json:"owner_id"`
	OwnerUsername string                `json:"owner_username"`
	Steps         map[string]Step       `json:"steps"`
	Peers         map[string]PeerRecord `json:"peers"`
	LastIP        string                `json:"last_ip"`
}

// Store owns the persisted state document. The in-memory copy is
// authoritative and guarded by one mutex; every mutation flushes the
// whole document to disk before returning. Concurrent use from multiple
// processes sharing the same file is out of scope.
type Store struct {
	mu   sync.Mutex
	path string
	doc  document
}

// OpenStore loads the state document at path, creating an empty one
// (and its parent directory) if none exists.
func OpenStore(path string) (*Store, error) {
	s := &Store{
		path: path,
		doc: document{
			Steps: make(map[string]Step),
			Peers: make(map[string]PeerRecord),
		},
	}

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := json.Unmarshal(data, &s.doc); err != nil {
			return nil, fmt.Errorf("parsing state file %s: %w", path, err)
		}
		if s.doc.Steps == nil {
			s.doc.Steps = make(map[string]Step)
		}
		if s.doc.Peers == nil {
			s.doc.Peers = make(map[string]PeerRecord)
		}
		return s, nil
	case os.IsNotExist(err):
		if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
			return nil, fmt.Errorf("creating state directory: %w", err)
		}
		if err := s.flushLocked(); err != nil {
			return nil, err
		}
		return s, nil
	default:
		return nil, fmt.Errorf("reading state file %s: %w", path, err)
	}
}

// flushLocked writes the document to disk. Caller holds s.mu (or has
// exclusive access during construction).
func (s *Store) flushLocked() error {
	data, err := json.MarshalIndent(&s.doc, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding state: %w", err)
	}
	if err := os.WriteFile(s.path, data, 0600); err != nil {
		return fmt.Errorf("writing state file %s: %w", s.path, err)
	}
	return nil
}

// Owner returns the owner's chat id and username. ok is false until an
// owner has been claimed.
func (s *Store) Owner() (id int64, username string, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.doc.OwnerID, s.doc.OwnerUsername, s.doc.OwnerID != 0
}

// SetOwner records the owner identity.
func (s *Store) SetOwner(id int64, username string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.doc.OwnerID = id
	s.doc.OwnerUsername = username
	return s.flushLocked()
}

// PendingStep returns the pending conversational step for a user.
func (s *Store) PendingStep(userID int64) (Step, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.doc.Steps[userKey(userID)]
	return st, ok
}

// SetPendingStep replaces the user's single pending-step slot.
func (s *Store) SetPendingStep(userID int64, st Step) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.doc.Steps[userKey(userID)] = st
	return s.flushLocked()
}

// ClearPendingStep removes the user's pending step, if any.
func (s *Store) ClearPendingStep(userID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.doc.Steps[userKey(userID)]; !ok {
		return nil
	}
	delete(s.doc.Steps, userKey(userID))
	return s.flushLocked()
}

// Peer looks up an active peer record by name.
func (s *Store) Peer(name string) (PeerRecord, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.doc.Peers[name]
	if ok {
		rec.Name = name
	}
	return rec, ok
}

// PutPeer records an active peer and updates the last allocated address.
func (s *Store) PutPeer(rec PeerRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.doc.Peers[rec.Name] = rec
	s.doc.LastIP = rec.Address
	return s.flushLocked()
}

// DeletePeer removes an active peer record. Deleting an absent name is
// a no-op.
func (s *Store) DeletePeer(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.doc.Peers[name]; !ok {
		return nil
	}
	delete(s.doc.Peers, name)
	return s.flushLocked()
}

// Peers returns all active peer records ordered by name.
func (s *Store) Peers() []PeerRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]PeerRecord, 0, len(s.doc.Peers))
	for name, rec := range s.doc.Peers {
		rec.Name = name
		out = append(out, rec)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// LastAllocated returns the most recently allocated address, if any.
func (s *Store) LastAllocated() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.doc.LastIP
}

func userKey(userID int64) string {
	return fmt.Sprintf("%d", userID)
}
