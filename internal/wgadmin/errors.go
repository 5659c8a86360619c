package wgadmin

import "errors"

// Sentinel errors for the peer lifecycle. External tool failures are not
// sentinels; they carry the captured stderr via wrapping.
var (
	// ErrNotReady means the WireGuard interface is not installed and
	// running; no mutation was attempted.
	ErrNotReady = errors.New("wireguard interface is not ready")

	// ErrDuplicateName means the sanitized peer name collides with an
	// active record or an existing artifact file.
	ErrDuplicateName = errors.New("peer name already exists")

	// ErrNotFound means no active peer record has the given name.
	ErrNotFound = errors.New("peer not found")

	// ErrSubnetExhausted means every host address in the subnet is taken.
	ErrSubnetExhausted = errors.New("no free addresses left in subnet")
)
