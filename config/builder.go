package config

import (
	"fmt"
	"sort"

	"github.com/jpalmerr/poolbridge"
	"github.com/jpalmerr/poolbridge/mqtt"
)

// Build converts parsed configuration into SDK options for [poolbridge.New].
//
// The returned options cover title, port, HTTP, targets and fields. Logging
// and MQTT are wired by the caller, see [MQTT].
func Build(cfg *Config) ([]poolbridge.Option, error) {
	targets, err := BuildTargets(cfg)
	if err != nil {
		return nil, err
	}
	fields, err := BuildFields(cfg)
	if err != nil {
		return nil, err
	}

	opts := []poolbridge.Option{
		poolbridge.WithTitle(cfg.Title),
		poolbridge.WithPort(cfg.Port),
		poolbridge.WithTargets(targets...),
		poolbridge.WithFields(fields...),
	}
	if cfg.DisableHTTP {
		opts = append(opts, poolbridge.WithHTTPDisabled())
	}
	return opts, nil
}

// BuildTargets converts target entries into SDK target configurations.
//
// Each target is resolved from two layers: the global poll interval, then
// the entry itself.
func BuildTargets(cfg *Config) ([]poolbridge.TargetConfig, error) {
	defaults := poolbridge.TargetSettings{PollInterval: cfg.PollInterval.Duration()}

	targets := make([]poolbridge.TargetConfig, 0, len(cfg.Targets))
	for i, tc := range cfg.Targets {
		target, err := poolbridge.ResolveTargetConfig(defaults, poolbridge.TargetSettings{
			Name:         tc.Name,
			Host:         tc.Host,
			Path:         tc.Path,
			PollInterval: tc.PollInterval.Duration(),
		})
		if err != nil {
			return nil, fmt.Errorf("targets[%d] (%s): %w", i, tc.Host, err)
		}
		targets = append(targets, target)
	}
	return targets, nil
}

// BuildFields converts field entries into SDK fields.
// Returns [poolbridge.PoolFields] when none are configured.
func BuildFields(cfg *Config) ([]poolbridge.Field, error) {
	if len(cfg.Fields) == 0 {
		return poolbridge.PoolFields(), nil
	}

	fields := make([]poolbridge.Field, 0, len(cfg.Fields))
	for i, fc := range cfg.Fields {
		f, err := buildField(fc)
		if err != nil {
			return nil, fmt.Errorf("fields[%d] (%s): %w", i, fc.Key, err)
		}
		fields = append(fields, f)
	}
	if err := poolbridge.ValidateFields(fields); err != nil {
		return nil, err
	}
	return fields, nil
}

func buildField(fc FieldConfig) (poolbridge.Field, error) {
	var opts []poolbridge.FieldOption

	if fc.Unit != "" {
		opts = append(opts, poolbridge.WithUnit(fc.Unit))
	}
	if fc.DeviceClass != "" {
		opts = append(opts, poolbridge.WithDeviceClass(fc.DeviceClass))
	}
	if fc.StateClass != "" {
		opts = append(opts, poolbridge.WithStateClass(fc.StateClass))
	}
	if fc.Icon != "" {
		opts = append(opts, poolbridge.WithIcon(fc.Icon))
	}

	// sort attribute names for deterministic ordering
	names := make([]string, 0, len(fc.Attributes))
	for name := range fc.Attributes {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		opts = append(opts, poolbridge.WithAttribute(name, fc.Attributes[name]))
	}

	return poolbridge.NewField(fc.Key, fc.Name, fc.Path, opts...)
}

// MQTT converts the mqtt section into a publisher configuration.
// ok is false when MQTT is disabled.
func MQTT(cfg *Config) (mc mqtt.Config, ok bool) {
	if !cfg.MQTT.Enabled {
		return mqtt.Config{}, false
	}
	return mqtt.Config{
		Broker:          cfg.MQTT.Broker,
		ClientID:        cfg.MQTT.ClientID,
		Username:        cfg.MQTT.Username,
		Password:        cfg.MQTT.Password,
		DiscoveryPrefix: cfg.MQTT.DiscoveryPrefix,
		BaseTopic:       cfg.MQTT.BaseTopic,
		QoS:             byte(cfg.MQTT.QoS),
	}, true
}
