package wgadmin

import (
	"context"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"regexp"

	"github.com/c-robinson/iplib"
)

// artifactAddressRe pulls the assigned address out of a client artifact.
var artifactAddressRe = regexp.MustCompile(`(?m)^Address\s*=\s*([0-9.]+)/\d+`)

// Allocator hands out the next free client address in the subnet. The
// used set is the union of three sources: the reserved server address,
// the live peer table, and the Address lines of on-disk client
// artifacts. Querying all three guards against a live-only view lagging
// behind artifact state after a crash mid-operation.
type Allocator struct {
	net        iplib.Net4
	clientsDir string
	ctrl       Controller
}

// NewAllocator builds an Allocator for the given subnet. The subnet must
// be a valid IPv4 CIDR (enforced by config validation).
func NewAllocator(subnet, clientsDir string, ctrl Controller) (*Allocator, error) {
	ip, ipNet, err := net.ParseCIDR(subnet)
	if err != nil {
		return nil, fmt.Errorf("parsing subnet %q: %w", subnet, err)
	}
	if ip.To4() == nil {
		return nil, fmt.Errorf("subnet %q is not IPv4", subnet)
	}
	masklen, _ := ipNet.Mask.Size()
	return &Allocator{
		net:        iplib.NewNet4(ipNet.IP, masklen),
		clientsDir: clientsDir,
		ctrl:       ctrl,
	}, nil
}

// ServerAddress is the reserved first host of the subnet.
func (a *Allocator) ServerAddress() net.IP {
	return a.net.FirstAddress()
}

// NextFreeAddress returns the lowest host address not currently in use,
// or ErrSubnetExhausted when none remains. Exhaustion is terminal for
// the call; nothing retries it.
func (a *Allocator) NextFreeAddress(ctx context.Context) (net.IP, error) {
	used := a.usedAddresses(ctx)

	first := a.net.FirstAddress()
	last := a.net.LastAddress()
	for ip := first; ; ip = iplib.NextIP(ip) {
		if _, taken := used[ip.String()]; !taken {
			return ip, nil
		}
		if ip.Equal(last) {
			break
		}
	}
	return nil, ErrSubnetExhausted
}

// usedAddresses unions the three allocation sources. A source that
// cannot be read contributes nothing rather than failing the whole
// allocation; the redundancy of the other two is the safety net.
func (a *Allocator) usedAddresses(ctx context.Context) map[string]struct{} {
	used := make(map[string]struct{})

	// Reserved server address.
	used[a.net.FirstAddress().String()] = struct{}{}

	// Live peer table.
	if table, err := a.ctrl.AllowedIPs(ctx); err == nil {
		for _, cidr := range table {
			if cidr == "" {
				continue
			}
			if ip, _, err := net.ParseCIDR(cidr); err == nil {
				used[ip.String()] = struct{}{}
			}
		}
	}

	// On-disk client artifacts.
	entries, err := filepath.Glob(filepath.Join(a.clientsDir, "*.conf"))
	if err != nil {
		return used
	}
	for _, path := range entries {
		data, err := os.ReadFile(path)
		if err != nil {
			continue
		}
		if m := artifactAddressRe.FindSubmatch(data); m != nil {
			used[string(m[1])] = struct{}{}
		}
	}
	return used
}
