package poolbridge

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

const (
	// DefaultHost is the address suggested for a new pool controller.
	DefaultHost = "192.168.1.52:11000"

	// DefaultPath is the status document path served by the controller.
	DefaultPath = "/api/v1/pool/info"

	// DefaultPollInterval is used when a target does not set its own interval.
	DefaultPollInterval = 30 * time.Second

	// MinPollInterval and MaxPollInterval bound the configurable interval.
	MinPollInterval = 5 * time.Second
	MaxPollInterval = 300 * time.Second
)

// Device metadata reported to the host platform for every target.
const (
	DeviceManufacturer = "Pool Controller"
	DeviceModel        = "API Integration"
)

// TargetConfig identifies one pool controller to poll.
//
// TargetConfig is immutable after creation via [NewTargetConfig]. Changing
// any setting means building a new TargetConfig and a new [Coordinator];
// a running coordinator never observes a configuration change.
type TargetConfig struct {
	name         string
	host         string
	path         string
	pollInterval time.Duration
}

// Name returns the display name of the target.
// Defaults to "Pool Monitor (<host>)".
func (t TargetConfig) Name() string {
	return t.name
}

// Host returns the host[:port] of the controller.
func (t TargetConfig) Host() string {
	return t.host
}

// Path returns the status document path. Always starts with "/".
func (t TargetConfig) Path() string {
	return t.path
}

// PollInterval returns the fixed delay between refreshes.
func (t TargetConfig) PollInterval() time.Duration {
	return t.pollInterval
}

// URL returns the address that is polled: "http://" + host + path.
func (t TargetConfig) URL() string {
	return "http://" + t.host + t.path
}

// ID returns host + path, the key under which a target is considered
// already configured.
func (t TargetConfig) ID() string {
	return t.host + t.path
}

// targetConfig holds mutable state during target construction.
type targetConfig struct {
	name         string
	path         string
	pollInterval time.Duration
}

// TargetOption configures a [TargetConfig] during construction.
type TargetOption func(*targetConfig) error

// WithName sets the display name of the target.
//
// Returns an error if the name is empty.
func WithName(name string) TargetOption {
	return func(cfg *targetConfig) error {
		if strings.TrimSpace(name) == "" {
			return errors.New("target name cannot be empty")
		}
		cfg.name = name
		return nil
	}
}

// WithPath sets the status document path.
// Defaults to [DefaultPath].
//
// Returns an error unless the path starts with "/".
func WithPath(path string) TargetOption {
	return func(cfg *targetConfig) error {
		if !strings.HasPrefix(path, "/") {
			return fmt.Errorf("path must start with \"/\", got %q", path)
		}
		if strings.ContainsAny(path, " \t\r\n") {
			return fmt.Errorf("path must not contain whitespace, got %q", path)
		}
		cfg.path = path
		return nil
	}
}

// WithPollInterval sets the fixed refresh interval of the target.
// Defaults to [DefaultPollInterval].
//
// The interval must be a whole number of seconds between [MinPollInterval]
// and [MaxPollInterval].
//
// Example:
//
//	cfg, err := poolbridge.NewTargetConfig("192.168.1.52:11000",
//	    poolbridge.WithPollInterval(60 * time.Second),
//	)
func WithPollInterval(d time.Duration) TargetOption {
	return func(cfg *targetConfig) error {
		if err := validatePollInterval(d); err != nil {
			return err
		}
		cfg.pollInterval = d
		return nil
	}
}

func validatePollInterval(d time.Duration) error {
	if d%time.Second != 0 {
		return fmt.Errorf("poll interval must be a whole number of seconds, got %s", d)
	}
	if d < MinPollInterval || d > MaxPollInterval {
		return fmt.Errorf("poll interval must be between %s and %s, got %s", MinPollInterval, MaxPollInterval, d)
	}
	return nil
}

func validateHost(host string) error {
	switch {
	case host == "":
		return errors.New("host cannot be empty")
	case strings.Contains(host, "://"):
		return fmt.Errorf("host must not include a scheme, got %q", host)
	case strings.ContainsAny(host, "/?#"):
		return fmt.Errorf("host must not include a path, got %q", host)
	case strings.ContainsAny(host, " \t\r\n"):
		return fmt.Errorf("host must not contain whitespace, got %q", host)
	}
	return nil
}

// NewTargetConfig creates a [TargetConfig] for the controller at host.
//
// The host is host[:port] without scheme or path, e.g. "192.168.1.52:11000".
//
// Example:
//
//	cfg, err := poolbridge.NewTargetConfig("192.168.1.52:11000",
//	    poolbridge.WithName("Back Garden Pool"),
//	)
func NewTargetConfig(host string, opts ...TargetOption) (TargetConfig, error) {
	host = strings.TrimSpace(host)
	if err := validateHost(host); err != nil {
		return TargetConfig{}, err
	}

	cfg := &targetConfig{
		path:         DefaultPath,
		pollInterval: DefaultPollInterval,
	}
	for _, opt := range opts {
		if err := opt(cfg); err != nil {
			return TargetConfig{}, err
		}
	}

	name := cfg.name
	if name == "" {
		name = fmt.Sprintf("Pool Monitor (%s)", host)
	}

	return TargetConfig{
		name:         name,
		host:         host,
		path:         cfg.path,
		pollInterval: cfg.pollInterval,
	}, nil
}

// MustTargetConfig is like [NewTargetConfig] but panics on error.
func MustTargetConfig(host string, opts ...TargetOption) TargetConfig {
	cfg, err := NewTargetConfig(host, opts...)
	if err != nil {
		panic("poolbridge: " + err.Error())
	}
	return cfg
}

// TargetSettings is one layer of raw target settings. Zero fields are unset.
type TargetSettings struct {
	Name         string
	Host         string
	Path         string
	PollInterval time.Duration
}

// ResolveTargetConfig merges settings layers into a [TargetConfig].
//
// Layers are applied in order and every non-zero field of a later layer
// overrides the earlier value, e.g. global defaults, then the stored entry,
// then user overrides. Whatever is still unset after the last layer falls
// back to the [NewTargetConfig] defaults.
func ResolveTargetConfig(layers ...TargetSettings) (TargetConfig, error) {
	var merged TargetSettings
	for _, l := range layers {
		if l.Name != "" {
			merged.Name = l.Name
		}
		if l.Host != "" {
			merged.Host = l.Host
		}
		if l.Path != "" {
			merged.Path = l.Path
		}
		if l.PollInterval != 0 {
			merged.PollInterval = l.PollInterval
		}
	}

	var opts []TargetOption
	if merged.Name != "" {
		opts = append(opts, WithName(merged.Name))
	}
	if merged.Path != "" {
		opts = append(opts, WithPath(merged.Path))
	}
	if merged.PollInterval != 0 {
		opts = append(opts, WithPollInterval(merged.PollInterval))
	}
	return NewTargetConfig(merged.Host, opts...)
}
