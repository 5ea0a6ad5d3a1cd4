package config

import (
	"errors"
	"fmt"
	"net"
	"sort"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/caarlos0/env/v11"
	"github.com/danmuck/fixctl/internal/protocol/schema"
	"github.com/rs/zerolog/log"
)

const (
	DefaultProfile   = "default"
	DefaultAdminAddr = "127.0.0.1:7070"
	EnvPrefix        = "FIXCTL_"
)

var (
	ErrNoConnections  = errors.New("config: no connections defined")
	ErrUnknownProfile = errors.New("config: unknown connection profile")
)

// File is a fixctl TOML config file.
type File struct {
	AdminAddr   string                `toml:"admin_addr"`
	AdminToken  string                `toml:"admin_token"`
	TrafficLog  string                `toml:"traffic_log"`
	FilterTags  []int                 `toml:"filter_tags"`
	CorsOrigins []string              `toml:"cors_origins"`
	Connections map[string]Connection `toml:"connections"`
	Kinds       []schema.Definition   `toml:"kinds"`

	meta toml.MetaData
}

// Connection is one named counterparty profile.
type Connection struct {
	Address            string        `toml:"address"`
	SenderCompID       string        `toml:"sender_comp_id"`
	TargetCompID       string        `toml:"target_comp_id"`
	BeginString        string        `toml:"begin_string"`
	Heartbeat          int           `toml:"heartbeat"`
	Timeout            time.Duration `toml:"timeout"`
	MaxConnectAttempts int           `toml:"max_connect_attempts"`
	AutoLogon          bool          `toml:"auto_logon"`
	SecurityMode       string        `toml:"security_mode"`
	TLS                TLS           `toml:"tls"`
}

type TLS struct {
	Enabled            bool   `toml:"enabled"`
	Mutual             bool   `toml:"mutual"`
	CAFile             string `toml:"ca_file"`
	CertFile           string `toml:"cert_file"`
	KeyFile            string `toml:"key_file"`
	ServerName         string `toml:"server_name"`
	InsecureSkipVerify bool   `toml:"insecure_skip_verify"`
}

// Overrides are applied on top of the selected profile. Empty fields leave
// the file value in place.
type Overrides struct {
	Profile      string `env:"PROFILE"`
	Address      string `env:"ADDRESS"`
	SenderCompID string `env:"SENDER_COMP_ID"`
	TargetCompID string `env:"TARGET_COMP_ID"`
	BeginString  string `env:"BEGIN_STRING"`
	Heartbeat    int    `env:"HEARTBEAT"`
	AdminAddr    string `env:"ADMIN_ADDR"`
	AdminToken   string `env:"ADMIN_TOKEN"`
	TrafficLog   string `env:"TRAFFIC_LOG"`
}

func Load(path string) (File, error) {
	var cfg File
	meta, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return File{}, fmt.Errorf("config parse failed (%s): %w", path, err)
	}
	cfg.meta = meta
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, 0, len(undecoded))
		for _, k := range undecoded {
			keys = append(keys, k.String())
		}
		log.Warn().Strs("keys", keys).Str("path", path).Msg("config.Load unknown keys")
	}
	cfg.applyDefaults()
	if err := Validate(cfg); err != nil {
		return File{}, err
	}
	return cfg, nil
}

// Decode parses TOML from a string; used for embedded templates and tests.
func Decode(data string) (File, error) {
	var cfg File
	meta, err := toml.Decode(data, &cfg)
	if err != nil {
		return File{}, fmt.Errorf("config parse failed: %w", err)
	}
	cfg.meta = meta
	cfg.applyDefaults()
	if err := Validate(cfg); err != nil {
		return File{}, err
	}
	return cfg, nil
}

func (f *File) applyDefaults() {
	if strings.TrimSpace(f.AdminAddr) == "" {
		f.AdminAddr = DefaultAdminAddr
	}
	for name, c := range f.Connections {
		if !f.meta.IsDefined("connections", name, "auto_logon") {
			c.AutoLogon = true
		}
		f.Connections[name] = c
	}
}

func Validate(cfg File) error {
	if len(cfg.Connections) == 0 {
		return ErrNoConnections
	}
	if _, _, err := net.SplitHostPort(cfg.AdminAddr); err != nil {
		return fmt.Errorf("admin_addr invalid: %w", err)
	}
	for _, name := range cfg.ProfileNames() {
		if err := ValidateConnection(cfg.Connections[name]); err != nil {
			return fmt.Errorf("connections.%s invalid: %w", name, err)
		}
	}
	for i, tag := range cfg.FilterTags {
		if tag <= 0 {
			return fmt.Errorf("filter_tags[%d] must be positive, got %d", i, tag)
		}
	}
	if _, err := schema.CompileAll(cfg.Kinds); err != nil {
		return fmt.Errorf("kinds invalid: %w", err)
	}
	return nil
}

func ValidateConnection(c Connection) error {
	if strings.TrimSpace(c.Address) == "" {
		return fmt.Errorf("address is required")
	}
	if strings.TrimSpace(c.SenderCompID) == "" {
		return fmt.Errorf("sender_comp_id is required")
	}
	if strings.TrimSpace(c.TargetCompID) == "" {
		return fmt.Errorf("target_comp_id is required")
	}
	if c.Heartbeat < 0 {
		return fmt.Errorf("heartbeat must not be negative")
	}
	if c.Timeout < 0 {
		return fmt.Errorf("timeout must not be negative")
	}
	return nil
}

// ProfileNames lists connection profiles in name order.
func (f File) ProfileNames() []string {
	names := make([]string, 0, len(f.Connections))
	for name := range f.Connections {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Profile returns the named connection. An empty name selects "default",
// or the only profile when there is just one.
func (f File) Profile(name string) (Connection, string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		if _, ok := f.Connections[DefaultProfile]; ok || len(f.Connections) != 1 {
			name = DefaultProfile
		} else {
			name = f.ProfileNames()[0]
		}
	}
	c, ok := f.Connections[name]
	if !ok {
		return Connection{}, "", fmt.Errorf("%w: %q", ErrUnknownProfile, name)
	}
	return c, name, nil
}

// LoadOverrides reads FIXCTL_* variables. A nil environ reads the process
// environment.
func LoadOverrides(environ map[string]string) (Overrides, error) {
	var o Overrides
	opts := env.Options{Prefix: EnvPrefix}
	if environ != nil {
		opts.Environment = environ
	}
	if err := env.ParseWithOptions(&o, opts); err != nil {
		return Overrides{}, fmt.Errorf("config env overrides: %w", err)
	}
	return o, nil
}

// Apply overlays o onto the file and the connection c.
func (o Overrides) Apply(f *File, c *Connection) {
	if o.Address != "" {
		c.Address = o.Address
	}
	if o.SenderCompID != "" {
		c.SenderCompID = o.SenderCompID
	}
	if o.TargetCompID != "" {
		c.TargetCompID = o.TargetCompID
	}
	if o.BeginString != "" {
		c.BeginString = o.BeginString
	}
	if o.Heartbeat > 0 {
		c.Heartbeat = o.Heartbeat
	}
	if o.AdminAddr != "" {
		f.AdminAddr = o.AdminAddr
	}
	if o.AdminToken != "" {
		f.AdminToken = o.AdminToken
	}
	if o.TrafficLog != "" {
		f.TrafficLog = o.TrafficLog
	}
}
