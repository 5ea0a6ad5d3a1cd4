package config

import (
	"slices"

	"github.com/danmuck/fixctl/internal/protocol/schema"
	"github.com/danmuck/fixctl/internal/protocol/session"
)

// Resolved is a profile with overrides applied, ready for the session.
type Resolved struct {
	Name        string
	Session     session.Config
	AdminAddr   string
	AdminToken  string
	CorsOrigins []string
}

// Resolve selects a profile (overrides.Profile wins over name), applies the
// overrides and converts it to a session config.
func (f File) Resolve(name string, o Overrides) (Resolved, error) {
	if o.Profile != "" {
		name = o.Profile
	}
	c, name, err := f.Profile(name)
	if err != nil {
		return Resolved{}, err
	}
	o.Apply(&f, &c)
	if err := ValidateConnection(c); err != nil {
		return Resolved{}, err
	}
	cfg := SessionConfig(c)
	cfg.TrafficLog = f.TrafficLog
	if f.meta.IsDefined("filter_tags") {
		cfg.FilterTags = slices.Clone(f.FilterTags)
		if cfg.FilterTags == nil {
			cfg.FilterTags = []int{}
		}
	}
	cfg = cfg.WithDefaults()
	if err := cfg.Validate(); err != nil {
		return Resolved{}, err
	}
	return Resolved{
		Name:        name,
		Session:     cfg,
		AdminAddr:   f.AdminAddr,
		AdminToken:  f.AdminToken,
		CorsOrigins: slices.Clone(f.CorsOrigins),
	}, nil
}

// SessionConfig maps a profile onto session settings. Timeout covers
// connect, read and write.
func SessionConfig(c Connection) session.Config {
	cfg := session.DefaultConfig()
	cfg.Address = c.Address
	cfg.SenderCompID = c.SenderCompID
	cfg.TargetCompID = c.TargetCompID
	if c.BeginString != "" {
		cfg.BeginString = c.BeginString
	}
	if c.Heartbeat > 0 {
		cfg.HeartBtInt = c.Heartbeat
	}
	if c.Timeout > 0 {
		cfg.ConnectTimeout = c.Timeout
		cfg.ReadTimeout = c.Timeout
		cfg.WriteTimeout = c.Timeout
	}
	cfg.MaxConnectAttempts = c.MaxConnectAttempts
	cfg.AutoLogon = c.AutoLogon
	cfg.SecurityMode = session.SecurityMode(c.SecurityMode)
	cfg.TLS = session.TLSConfig{
		Enabled:            c.TLS.Enabled,
		Mutual:             c.TLS.Mutual,
		CAFile:             c.TLS.CAFile,
		CertFile:           c.TLS.CertFile,
		KeyFile:            c.TLS.KeyFile,
		ServerName:         c.TLS.ServerName,
		InsecureSkipVerify: c.TLS.InsecureSkipVerify,
	}
	return cfg
}

// Registry returns the built-in kinds plus the file's kinds. A config kind
// replaces a built-in with the same message type or name.
func (f File) Registry() (*schema.Registry, error) {
	extra, err := schema.CompileAll(f.Kinds)
	if err != nil {
		return nil, err
	}
	reg := schema.NewRegistry(schema.Builtins()...)
	for _, k := range extra {
		if err := reg.Register(k); err != nil {
			return nil, err
		}
	}
	return reg, nil
}
