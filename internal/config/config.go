// Package config holds the wgkeeper configuration: where the WireGuard
// server lives on disk, which subnet clients are allocated from, and how
// the Telegram bot authenticates.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// DefaultDNS are the resolvers written into client configs when none are
// configured.
var DefaultDNS = []string{"1.1.1.1", "8.8.8.8"}

const (
	// DefaultSubnet is the client address pool. Host .1 is the server.
	DefaultSubnet = "10.8.0.0/24"

	// DefaultListenPort is the WireGuard UDP listen port.
	DefaultListenPort = 51820

	// DefaultInterface is the managed WireGuard interface name.
	DefaultInterface = "wg0"

	// DefaultWireGuardDir is where wg-quick keeps interface configs.
	DefaultWireGuardDir = "/etc/wireguard"
)

// Config is the top-level configuration, persisted as TOML at
// DefaultConfigPath().
type Config struct {
	Server ServerConfig `toml:"server"`
	Bot    BotConfig    `toml:"bot"`
}

// ServerConfig describes the managed WireGuard server.
type ServerConfig struct {
	// Interface is the WireGuard interface name (default "wg0").
	Interface string `toml:"interface"`

	// Subnet is the client pool in CIDR notation. The first host is
	// reserved for the server; every client gets a /32 from the rest.
	Subnet string `toml:"subnet"`

	// ListenPort is the server's WireGuard UDP port.
	ListenPort int `toml:"listen_port"`

	// Endpoint overrides the host:port clients connect to. When empty it
	// is discovered at install time from the server's public address.
	Endpoint string `toml:"endpoint,omitempty"`

	// DNS is the resolver list written into client configs.
	DNS []string `toml:"dns,omitempty"`

	// WireGuardDir is the wg-quick configuration directory. Client
	// artifacts live under <dir>/clients, state under <dir>/state.
	WireGuardDir string `toml:"wireguard_dir,omitempty"`
}

// BotConfig holds Telegram gateway settings. The bot token itself is
// never written to this file; it comes from the environment.
type BotConfig struct {
	// Label is the server banner shown at the top of the menu.
	Label string `toml:"label,omitempty"`
}

// DefaultConfig returns a Config populated with defaults for every field
// that has one.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Interface:    DefaultInterface,
			Subnet:       DefaultSubnet,
			ListenPort:   DefaultListenPort,
			DNS:          append([]string(nil), DefaultDNS...),
			WireGuardDir: DefaultWireGuardDir,
		},
		Bot: BotConfig{
			Label: "This server",
		},
	}
}

// DefaultConfigPath returns the system config file location.
func DefaultConfigPath() string {
	return "/etc/wgkeeper/config.toml"
}

// LoadConfig reads and decodes a TOML config from path. A missing file
// returns an error wrapping fs.ErrNotExist; defaults are applied for any
// unset optional field.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("config file not found: %w", err)
		}
		return nil, fmt.Errorf("reading config file %s: %w", path, err)
	}
	applyDefaults(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadOrDefault behaves like LoadConfig but falls back to defaults when
// the file does not exist yet (first run, before install writes it).
func LoadOrDefault(path string) (*Config, error) {
	cfg, err := LoadConfig(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return DefaultConfig(), nil
		}
		return nil, err
	}
	return cfg, nil
}

// SaveConfig encodes the config as TOML at path. Parent directories are
// created; the file is written 0600.
func SaveConfig(path string, cfg *Config) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("creating config directory %s: %w", dir, err)
	}

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("creating config file %s: %w", path, err)
	}
	defer f.Close()

	if err := toml.NewEncoder(f).Encode(cfg); err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}
	return nil
}

// Validate checks the fields whose values feed address allocation.
func (c *Config) Validate() error {
	if _, _, err := net.ParseCIDR(c.Server.Subnet); err != nil {
		return fmt.Errorf("invalid subnet %q: %w", c.Server.Subnet, err)
	}
	if c.Server.ListenPort <= 0 || c.Server.ListenPort > 65535 {
		return fmt.Errorf("invalid listen port %d", c.Server.ListenPort)
	}
	if c.Server.Interface == "" {
		return errors.New("interface name must not be empty")
	}
	return nil
}

// ClientsDir is where per-peer artifacts are written.
func (c *Config) ClientsDir() string {
	return filepath.Join(c.Server.WireGuardDir, "clients")
}

// StateFile is the persisted state document location.
func (c *Config) StateFile() string {
	return filepath.Join(c.Server.WireGuardDir, "state", "wgkeeper.json")
}

// InterfaceFile is the wg-quick config for the managed interface.
func (c *Config) InterfaceFile() string {
	return filepath.Join(c.Server.WireGuardDir, c.Server.Interface+".conf")
}

// ServerPrivateKeyFile is where the server's private key is kept (0600).
func (c *Config) ServerPrivateKeyFile() string {
	return filepath.Join(c.Server.WireGuardDir, "server_private.key")
}

// ServerPublicKeyFile is the server public key's location.
func (c *Config) ServerPublicKeyFile() string {
	return filepath.Join(c.Server.WireGuardDir, "server_public.key")
}

func applyDefaults(cfg *Config) {
	if cfg.Server.Interface == "" {
		cfg.Server.Interface = DefaultInterface
	}
	if cfg.Server.Subnet == "" {
		cfg.Server.Subnet = DefaultSubnet
	}
	if cfg.Server.ListenPort == 0 {
		cfg.Server.ListenPort = DefaultListenPort
	}
	if len(cfg.Server.DNS) == 0 {
		cfg.Server.DNS = append([]string(nil), DefaultDNS...)
	}
	if cfg.Server.WireGuardDir == "" {
		cfg.Server.WireGuardDir = DefaultWireGuardDir
	}
}

// BotToken reads the Telegram bot token from the environment, consulting
// an optional .env file first. WGKEEPER_BOT_TOKEN wins over the legacy
// BOT_TOKEN name. The gateway cannot start without it.
func BotToken() (string, error) {
	// Best effort; a missing .env just means the variable must already
	// be exported.
	_ = godotenv.Load()

	if tok := os.Getenv("WGKEEPER_BOT_TOKEN"); tok != "" {
		return tok, nil
	}
	if tok := os.Getenv("BOT_TOKEN"); tok != "" {
		return tok, nil
	}
	return "", errors.New("bot token not set: export WGKEEPER_BOT_TOKEN or put BOT_TOKEN in .env")
}
