package wgadmin

import (
	"fmt"
	"os"
	"regexp"

	"github.com/RajshekharX12/vpn/internal/config"
)

// The interface file is wg-quick's own config. Peer blocks are appended
// with a marker comment carrying the sanitized peer name, and removed by
// a structural match on marker plus public key — never a full parse.

// AppendPeerBlock appends a marked peer block to the interface file.
func AppendPeerBlock(path, name string, pub config.Key, allowedIP string) error {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_APPEND, 0600)
	if err != nil {
		return fmt.Errorf("opening interface file: %w", err)
	}
	defer f.Close()

	block := fmt.Sprintf("\n# %s\n[Peer]\nPublicKey = %s\nAllowedIPs = %s\n", name, pub, allowedIP)
	if _, err := f.WriteString(block); err != nil {
		return fmt.Errorf("appending peer block: %w", err)
	}
	return nil
}

// RemovePeerBlock deletes the peer block whose marker comment and public
// key both match. Blocks written by hand without the marker are left
// alone; Audit reports them as drift instead.
func RemovePeerBlock(path, name string, pub config.Key) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading interface file: %w", err)
	}

	pattern := fmt.Sprintf(`(?m)^# %s\n\[Peer\]\nPublicKey = %s\nAllowedIPs = [^\n]+\n?`,
		regexp.QuoteMeta(name), regexp.QuoteMeta(pub.String()))
	re, err := regexp.Compile(pattern)
	if err != nil {
		return fmt.Errorf("building removal pattern: %w", err)
	}

	stripped := re.ReplaceAll(data, nil)
	if err := os.WriteFile(path, stripped, 0600); err != nil {
		return fmt.Errorf("writing interface file: %w", err)
	}
	return nil
}

// peerBlockRe matches any marked peer block, capturing name, key, and
// allowed address. Used by Audit to enumerate the persisted peer table.
var peerBlockRe = regexp.MustCompile(`(?m)^# (\S+)\n\[Peer\]\nPublicKey = (\S+)\nAllowedIPs = (\S+)`)

// MarkedPeerBlocks lists the marked peer blocks in the interface file as
// name → (publicKey, allowedIP).
func MarkedPeerBlocks(path string) (map[string][2]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading interface file: %w", err)
	}
	blocks := make(map[string][2]string)
	for _, m := range peerBlockRe.FindAllSubmatch(data, -1) {
		blocks[string(m[1])] = [2]string{string(m[2]), string(m[3])}
	}
	return blocks, nil
}
