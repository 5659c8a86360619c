//go:build linux

package bootstrap

import (
	"fmt"
	"log/slog"
	"net"

	"github.com/google/nftables"
	"github.com/google/nftables/expr"
)

// nftTableName is the nftables table holding wgkeeper's rules. Scoping
// everything to one table keeps us out of other firewall rules.
const nftTableName = "wgkeeper"

// NATManager programs the masquerade rule that lets client traffic leave
// through the server's uplink. Requires CAP_NET_ADMIN.
type NATManager struct {
	log   *slog.Logger
	table *nftables.Table
	conn  *nftables.Conn
}

// NewNATManager creates a NATManager. A nil logger falls back to
// slog.Default().
func NewNATManager(logger *slog.Logger) *NATManager {
	if logger == nil {
		logger = slog.Default()
	}
	return &NATManager{
		log: logger.With("component", "nat"),
	}
}

// SetupMasquerade installs the equivalent of:
//
//	nft add table ip wgkeeper
//	nft add chain ip wgkeeper postrouting { type nat hook postrouting priority srcnat; }
//	nft add rule ip wgkeeper postrouting ip saddr <subnet> oifname <outIface> masquerade
//
// subnet is the client pool in CIDR notation; outIface is the uplink
// interface. Re-running replaces nothing and adds nothing harmful: the
// table is created idempotently and Cleanup drops it wholesale.
func (n *NATManager) SetupMasquerade(subnet string, outIface string) error {
	ip, ipNet, err := net.ParseCIDR(subnet)
	if err != nil {
		return fmt.Errorf("parsing subnet %q: %w", subnet, err)
	}
	if ip.To4() == nil {
		return fmt.Errorf("only IPv4 subnets are supported for masquerade, got %q", subnet)
	}

	networkAddr := ipNet.IP.To4()
	mask := ipNet.Mask

	c, err := nftables.New()
	if err != nil {
		return fmt.Errorf("connecting to nftables: %w", err)
	}
	n.conn = c

	table := c.AddTable(&nftables.Table{
		Family: nftables.TableFamilyIPv4,
		Name:   nftTableName,
	})
	n.table = table

	chain := c.AddChain(&nftables.Chain{
		Name:     "postrouting",
		Table:    table,
		Type:     nftables.ChainTypeNAT,
		Hooknum:  nftables.ChainHookPostrouting,
		Priority: nftables.ChainPriorityNATSource,
	})

	// Interface names compare as 16 null-padded bytes (IFNAMSIZ).
	ifaceData := make([]byte, 16)
	copy(ifaceData, outIface)

	c.AddRule(&nftables.Rule{
		Table: table,
		Chain: chain,
		Exprs: []expr.Any{
			// Source address, masked, compared against the client pool.
			&expr.Payload{
				DestRegister: 1,
				Base:         expr.PayloadBaseNetworkHeader,
				Offset:       12,
				Len:          4,
			},
			&expr.Bitwise{
				SourceRegister: 1,
				DestRegister:   1,
				Len:            4,
				Mask:           mask,
				Xor:            []byte{0, 0, 0, 0},
			},
			&expr.Cmp{
				Op:       expr.CmpOpEq,
				Register: 1,
				Data:     networkAddr,
			},
			// Only traffic leaving through the uplink.
			&expr.Meta{
				Key:      expr.MetaKeyOIFNAME,
				Register: 1,
			},
			&expr.Cmp{
				Op:       expr.CmpOpEq,
				Register: 1,
				Data:     ifaceData,
			},
			&expr.Masq{},
		},
	})

	if err := c.Flush(); err != nil {
		return fmt.Errorf("applying nftables rules: %w", err)
	}

	n.log.Info("nftables masquerade rule added",
		"table", nftTableName,
		"subnet", subnet,
		"out_iface", outIface,
	)
	return nil
}

// Cleanup removes the wgkeeper table and everything in it. Safe to call
// when the table does not exist.
func (n *NATManager) Cleanup() error {
	c := n.conn
	if c == nil {
		var err error
		c, err = nftables.New()
		if err != nil {
			return fmt.Errorf("connecting to nftables: %w", err)
		}
	}

	if n.table != nil {
		c.DelTable(n.table)
	} else {
		c.DelTable(&nftables.Table{
			Family: nftables.TableFamilyIPv4,
			Name:   nftTableName,
		})
	}

	if err := c.Flush(); err != nil {
		n.log.Debug("nftables cleanup (table may not have existed)", "error", err)
		return nil
	}
	return nil
}
