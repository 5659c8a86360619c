package wgadmin

import (
	"fmt"
	"strings"

	"github.com/RajshekharX12/vpn/internal/config"
)

// DefaultKeepaliveSeconds is the keepalive written into client configs,
// chosen to hold NAT mappings open on typical home routers.
const DefaultKeepaliveSeconds = 25

// ClientConf is everything a client needs to connect: its own identity
// and the server peer block. Render produces the standard WireGuard
// client configuration grammar, byte-compatible with the official apps.
type ClientConf struct {
	PrivateKey config.Key
	Address    string // bare IPv4, rendered as /32
	DNS        []string

	ServerPublicKey config.Key
	Endpoint        string // host:port
	// KeepaliveSeconds defaults to DefaultKeepaliveSeconds when zero.
	KeepaliveSeconds int
}

// Render returns the artifact text.
func (c ClientConf) Render() string {
	keepalive := c.KeepaliveSeconds
	if keepalive == 0 {
		keepalive = DefaultKeepaliveSeconds
	}

	var b strings.Builder
	b.WriteString("[Interface]\n")
	fmt.Fprintf(&b, "PrivateKey = %s\n", c.PrivateKey)
	fmt.Fprintf(&b, "Address = %s/32\n", c.Address)
	if len(c.DNS) > 0 {
		fmt.Fprintf(&b, "DNS = %s\n", strings.Join(c.DNS, ", "))
	}
	b.WriteString("\n[Peer]\n")
	fmt.Fprintf(&b, "PublicKey = %s\n", c.ServerPublicKey)
	// Route everything through the tunnel.
	b.WriteString("AllowedIPs = 0.0.0.0/0, ::/0\n")
	fmt.Fprintf(&b, "Endpoint = %s\n", c.Endpoint)
	fmt.Fprintf(&b, "PersistentKeepalive = %d\n", keepalive)
	return b.String()
}
