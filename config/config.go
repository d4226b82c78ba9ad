// Package config provides YAML configuration parsing for Pool Bridge.
//
// This package enables running Pool Bridge as a standalone binary with a
// configuration file, as an alternative to the programmatic SDK approach.
//
// Example configuration:
//
//	title: Home Pools
//	port: 8080
//	poll_interval: 30s
//
//	log:
//	  level: info
//	  format: json
//
//	targets:
//	  - name: Back Garden
//	    host: 192.168.1.52:11000
//	  - name: Spa
//	    host: ${SPA_HOST}
//	    path: /api/v1/pool/info
//	    poll_interval: 10s
//
//	mqtt:
//	  enabled: true
//	  broker: tcp://192.168.1.10:1883
//	  username: ${MQTT_USER:-}
//	  password: ${MQTT_PASSWORD:-}
//
// When fields is omitted the standard pool controller fields are used.
package config

import (
	"errors"
	"fmt"
	"os"
	"regexp"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/jpalmerr/poolbridge"
)

const (
	defaultPort         = 8080
	defaultLogLevel     = "info"
	defaultLogFormat    = "text"
	maxQoS              = 2
	defaultTitle        = "Pool Bridge"
	fieldKeyDescription = "[a-z0-9_]+"
)

var fieldKeyPattern = regexp.MustCompile(`^[a-z0-9_]+$`)

// Config is the root configuration structure for Pool Bridge.
//
// It maps directly to the YAML configuration file structure.
// Use [Load] or [Parse] to create a Config from YAML.
type Config struct {
	// Title is the dashboard title. Defaults to "Pool Bridge" if not set.
	Title string `yaml:"title"`

	// Port is the HTTP server port. Defaults to 8080.
	Port int `yaml:"port"`

	// DisableHTTP turns off the dashboard and API.
	DisableHTTP bool `yaml:"disable_http"`

	// PollInterval is the default time between refreshes of a target.
	// Accepts duration strings like "30s" or "1m". Defaults to 30s.
	PollInterval Duration `yaml:"poll_interval"`

	Log LogConfig `yaml:"log"`

	// Targets are the pool controllers to poll.
	Targets []TargetConfig `yaml:"targets"`

	// Fields replace the standard pool fields when set.
	Fields []FieldConfig `yaml:"fields"`

	MQTT MQTTConfig `yaml:"mqtt"`
}

// LogConfig selects the log handler.
type LogConfig struct {
	// Level is debug, info, warn or error. Defaults to info.
	Level string `yaml:"level"`

	// Format is text or json. Defaults to text.
	Format string `yaml:"format"`
}

// TargetConfig defines one pool controller.
type TargetConfig struct {
	// Name is the display name. Defaults to "Pool Monitor (<host>)".
	Name string `yaml:"name"`

	// Host is host[:port] of the controller.
	// Supports environment variable substitution: ${VAR} or ${VAR:-default}
	Host string `yaml:"host"`

	// Path is the status document path. Defaults to /api/v1/pool/info.
	Path string `yaml:"path"`

	// PollInterval overrides the global poll_interval for this target.
	PollInterval Duration `yaml:"poll_interval"`
}

// FieldConfig defines one reading extracted from the status document.
//
// Paths accept either a dotted string or a sequence:
//
//	path: state.metrics.waterTemperature
//	path: [state, cards, pumps, 0, rpm]
type FieldConfig struct {
	Key         string                     `yaml:"key"`
	Name        string                     `yaml:"name"`
	Path        poolbridge.Path            `yaml:"path"`
	Unit        string                     `yaml:"unit"`
	DeviceClass string                     `yaml:"device_class"`
	StateClass  string                     `yaml:"state_class"`
	Icon        string                     `yaml:"icon"`
	Attributes  map[string]poolbridge.Path `yaml:"attributes"`
}

// MQTTConfig configures publishing to an MQTT broker with Home Assistant discovery.
type MQTTConfig struct {
	Enabled bool `yaml:"enabled"`

	// Broker is the broker URL, e.g. tcp://192.168.1.10:1883.
	// Broker, username and password support environment variable substitution.
	Broker   string `yaml:"broker"`
	ClientID string `yaml:"client_id"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`

	DiscoveryPrefix string `yaml:"discovery_prefix"`
	BaseTopic       string `yaml:"base_topic"`
	QoS             int    `yaml:"qos"`
}

// Duration wraps time.Duration for YAML unmarshalling.
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler for Duration.
func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	var s string
	if err := node.Decode(&s); err != nil {
		return err
	}

	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}

	*d = Duration(parsed)
	return nil
}

// Duration returns the underlying time.Duration value.
func (d Duration) Duration() time.Duration {
	return time.Duration(d)
}

// envVarPattern matches ${VAR} and ${VAR:-default} patterns.
// Group 1: variable name
// Group 2: the ":-default" part (if present, indicates a default was specified)
// Group 3: the default value (may be empty for ${VAR:-})
var envVarPattern = regexp.MustCompile(`\$\{([^}:]+)(:-([^}]*))?\}`)

// expandEnvVars replaces ${VAR} and ${VAR:-default} patterns with environment values.
func expandEnvVars(s string) (string, error) {
	var firstErr error

	result := envVarPattern.ReplaceAllStringFunc(s, func(match string) string {
		if firstErr != nil {
			return match
		}

		submatches := envVarPattern.FindStringSubmatch(match)
		if len(submatches) < 2 {
			return match
		}

		varName := submatches[1]
		hasDefault := len(submatches) > 2 && submatches[2] != ""
		defaultVal := ""
		if hasDefault && len(submatches) > 3 {
			defaultVal = submatches[3]
		}

		value, exists := os.LookupEnv(varName)
		if !exists {
			if hasDefault {
				return defaultVal
			}
			firstErr = fmt.Errorf("environment variable %q is not set", varName)
			return match
		}
		return value
	})

	if firstErr != nil {
		return "", firstErr
	}
	return result, nil
}

// Load reads and parses a YAML configuration file.
//
// Environment variables in the file are expanded before parsing.
// Returns an error if the file cannot be read or parsed.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return Parse(data)
}

// Parse parses YAML configuration data.
//
// Environment variables are expanded in target hosts and MQTT connection
// settings. Defaults are applied for Port (8080), PollInterval (30s),
// Title and logging.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if cfg.Title == "" {
		cfg.Title = defaultTitle
	}
	if cfg.Port == 0 {
		cfg.Port = defaultPort
	}
	if cfg.PollInterval == 0 {
		cfg.PollInterval = Duration(poolbridge.DefaultPollInterval)
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = defaultLogLevel
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = defaultLogFormat
	}

	if err := cfg.expandAndValidate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// expandAndValidate expands environment variables and validates the config.
func (c *Config) expandAndValidate() error {
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("port must be between 1 and 65535, got %d", c.Port)
	}
	if err := validateInterval(c.PollInterval.Duration()); err != nil {
		return fmt.Errorf("poll_interval: %w", err)
	}

	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log.level must be debug, info, warn or error, got %q", c.Log.Level)
	}
	switch strings.ToLower(c.Log.Format) {
	case "text", "json":
	default:
		return fmt.Errorf("log.format must be text or json, got %q", c.Log.Format)
	}

	if len(c.Targets) == 0 {
		return errors.New("at least one target must be defined")
	}

	seen := make(map[string]int, len(c.Targets))
	for i := range c.Targets {
		t := &c.Targets[i]

		expanded, err := expandEnvVars(t.Host)
		if err != nil {
			return fmt.Errorf("targets[%d]: host: %w", i, err)
		}
		t.Host = strings.TrimSpace(expanded)
		if t.Host == "" {
			return fmt.Errorf("targets[%d]: host is required", i)
		}
		if strings.Contains(t.Host, "://") {
			return fmt.Errorf("targets[%d] (%s): host must not include a scheme, got %q", i, t.Host, t.Host)
		}

		if t.Path != "" && !strings.HasPrefix(t.Path, "/") {
			return fmt.Errorf("targets[%d] (%s): path must start with /, got %q", i, t.Host, t.Path)
		}

		if t.PollInterval != 0 {
			if err := validateInterval(t.PollInterval.Duration()); err != nil {
				return fmt.Errorf("targets[%d] (%s): poll_interval: %w", i, t.Host, err)
			}
		}

		path := t.Path
		if path == "" {
			path = poolbridge.DefaultPath
		}
		id := t.Host + path
		if prev, ok := seen[id]; ok {
			return fmt.Errorf("targets[%d] (%s): duplicate of targets[%d]", i, id, prev)
		}
		seen[id] = i
	}

	if err := c.validateFields(); err != nil {
		return err
	}
	return c.MQTT.expandAndValidate()
}

func (c *Config) validateFields() error {
	keys := make(map[string]struct{}, len(c.Fields))
	for i, f := range c.Fields {
		if !fieldKeyPattern.MatchString(f.Key) {
			return fmt.Errorf("fields[%d]: key %q must match %s", i, f.Key, fieldKeyDescription)
		}
		if _, dup := keys[f.Key]; dup {
			return fmt.Errorf("fields[%d] (%s): duplicate key", i, f.Key)
		}
		keys[f.Key] = struct{}{}

		if f.Name == "" {
			return fmt.Errorf("fields[%d] (%s): name is required", i, f.Key)
		}
		if len(f.Path) == 0 {
			return fmt.Errorf("fields[%d] (%s): path is required", i, f.Key)
		}
		switch f.StateClass {
		case "", poolbridge.StateClassMeasurement, poolbridge.StateClassTotal, poolbridge.StateClassTotalIncreasing:
		default:
			return fmt.Errorf("fields[%d] (%s): state_class must be measurement, total or total_increasing, got %q",
				i, f.Key, f.StateClass)
		}
		for name, p := range f.Attributes {
			if len(p) == 0 {
				return fmt.Errorf("fields[%d] (%s): attributes[%s]: path is required", i, f.Key, name)
			}
		}
	}
	return nil
}

func (m *MQTTConfig) expandAndValidate() error {
	if !m.Enabled {
		return nil
	}

	for name, v := range map[string]*string{"broker": &m.Broker, "username": &m.Username, "password": &m.Password} {
		expanded, err := expandEnvVars(*v)
		if err != nil {
			return fmt.Errorf("mqtt.%s: %w", name, err)
		}
		*v = expanded
	}

	if m.Broker == "" {
		return errors.New("mqtt.broker is required when mqtt is enabled")
	}
	if m.QoS < 0 || m.QoS > maxQoS {
		return fmt.Errorf("mqtt.qos must be 0, 1 or 2, got %d", m.QoS)
	}
	return nil
}

func validateInterval(d time.Duration) error {
	if d < poolbridge.MinPollInterval || d > poolbridge.MaxPollInterval {
		return fmt.Errorf("must be between %s and %s, got %s",
			poolbridge.MinPollInterval, poolbridge.MaxPollInterval, d)
	}
	if d%time.Second != 0 {
		return fmt.Errorf("must be a whole number of seconds, got %s", d)
	}
	return nil
}
