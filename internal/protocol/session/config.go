package session

import (
	"errors"
	"net"
	"strings"
	"time"

	"github.com/danmuck/fixctl/internal/protocol/frame"
)

var (
	ErrAddressRequired = errors.New("session: address required")
	ErrCompIDRequired  = errors.New("session: sender and target comp ids required")
)

// BackoffConfig defines retry backoff behavior.
type BackoffConfig struct {
	InitialDelay time.Duration
	Multiplier   float64
	MaxDelay     time.Duration
	Jitter       bool
}

type SecurityMode string

const (
	SecurityModeDevelopment SecurityMode = "development"
	SecurityModeProduction  SecurityMode = "production"
)

// TLSConfig enables TLS to the counterparty.
type TLSConfig struct {
	Enabled            bool
	Mutual             bool
	CAFile             string
	CertFile           string
	KeyFile            string
	ServerName         string
	InsecureSkipVerify bool
}

// Config defines one FIX connection and its reliability defaults.
type Config struct {
	Address            string
	SenderCompID       string
	TargetCompID       string
	BeginString        string
	HeartBtInt         int
	ConnectTimeout     time.Duration
	ReadTimeout        time.Duration
	WriteTimeout       time.Duration
	KeepAlive          net.KeepAliveConfig
	Backoff            BackoffConfig
	MaxConnectAttempts int
	AutoLogon          bool
	FilterTags         []int
	TrafficLog         string
	SecurityMode       SecurityMode
	TLS                TLSConfig
	Limits             frame.Limits
}

// DefaultFilterTags are left out of console renderings of traffic.
func DefaultFilterTags() []int {
	return []int{8, 9, 49, 56, 52, 10, 60, 11, 43, 97}
}

// DefaultConfig returns session defaults.
func DefaultConfig() Config {
	return Config{
		BeginString:    "FIX.4.2",
		HeartBtInt:     30,
		ConnectTimeout: 5 * time.Second,
		ReadTimeout:    5 * time.Second,
		WriteTimeout:   5 * time.Second,
		KeepAlive: net.KeepAliveConfig{
			Enable:   true,
			Idle:     time.Second,
			Interval: 3 * time.Second,
			Count:    5,
		},
		Backoff: BackoffConfig{
			InitialDelay: 250 * time.Millisecond,
			Multiplier:   2.0,
			MaxDelay:     5 * time.Second,
			Jitter:       true,
		},
		AutoLogon:    true,
		FilterTags:   DefaultFilterTags(),
		SecurityMode: SecurityModeDevelopment,
		Limits:       frame.DefaultLimits(),
	}
}

// WithDefaults fills zero fields from DefaultConfig.
func (c Config) WithDefaults() Config {
	d := DefaultConfig()
	if strings.TrimSpace(c.BeginString) == "" {
		c.BeginString = d.BeginString
	}
	if c.HeartBtInt <= 0 {
		c.HeartBtInt = d.HeartBtInt
	}
	if c.ConnectTimeout <= 0 {
		c.ConnectTimeout = d.ConnectTimeout
	}
	if c.ReadTimeout <= 0 {
		c.ReadTimeout = d.ReadTimeout
	}
	if c.WriteTimeout <= 0 {
		c.WriteTimeout = d.WriteTimeout
	}
	if c.KeepAlive == (net.KeepAliveConfig{}) {
		c.KeepAlive = d.KeepAlive
	}
	if c.Backoff.InitialDelay <= 0 {
		c.Backoff = d.Backoff
	}
	if c.FilterTags == nil {
		c.FilterTags = d.FilterTags
	}
	if c.SecurityMode == "" {
		c.SecurityMode = d.SecurityMode
	}
	if c.Limits == (frame.Limits{}) {
		c.Limits = d.Limits
	}
	return c
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.Address) == "" {
		return ErrAddressRequired
	}
	if strings.TrimSpace(c.SenderCompID) == "" || strings.TrimSpace(c.TargetCompID) == "" {
		return ErrCompIDRequired
	}
	return c.ValidateClientTransport()
}
