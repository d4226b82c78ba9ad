package mqtt

import (
	"fmt"
	"strings"
	"time"
)

const (
	// DefaultDiscoveryPrefix is Home Assistant's default discovery prefix.
	DefaultDiscoveryPrefix = "homeassistant"

	// DefaultBaseTopic is the root of every state topic.
	DefaultBaseTopic = "poolbridge"

	// DefaultClientID identifies the bridge to the broker.
	DefaultClientID = "poolbridge"

	defaultConnectTimeout = 10 * time.Second
	defaultPublishTimeout = 5 * time.Second
	defaultKeepAlive      = 60 * time.Second
	defaultMaxReconnect   = 60 * time.Second

	// defaultDisconnectQuiesce is the time to wait for pending operations on disconnect.
	defaultDisconnectQuiesce = 250 // milliseconds

	maxQoS = 2
)

// Config holds the broker connection and topic layout.
// Zero values are replaced by the defaults.
type Config struct {
	// Broker is the broker URL, e.g. "tcp://192.168.1.10:1883" or "ssl://broker:8883".
	Broker string

	ClientID string
	Username string
	Password string

	// DiscoveryPrefix is the Home Assistant discovery prefix. Default "homeassistant".
	DiscoveryPrefix string

	// BaseTopic roots the state and availability topics. Default "poolbridge".
	BaseTopic string

	// QoS applies to every publish. 0, 1 or 2.
	QoS byte

	// ConnectTimeout bounds the initial connection. Default 10s.
	ConnectTimeout time.Duration

	// PublishTimeout bounds each publish acknowledgment. Default 5s.
	PublishTimeout time.Duration
}

// withDefaults returns a copy of c with unset fields defaulted.
func (c Config) withDefaults() Config {
	if c.ClientID == "" {
		c.ClientID = DefaultClientID
	}
	if c.DiscoveryPrefix == "" {
		c.DiscoveryPrefix = DefaultDiscoveryPrefix
	}
	if c.BaseTopic == "" {
		c.BaseTopic = DefaultBaseTopic
	}
	if c.ConnectTimeout == 0 {
		c.ConnectTimeout = defaultConnectTimeout
	}
	if c.PublishTimeout == 0 {
		c.PublishTimeout = defaultPublishTimeout
	}
	return c
}

// Validate checks the configuration after defaults are applied.
func (c Config) Validate() error {
	c = c.withDefaults()

	if c.Broker == "" {
		return fmt.Errorf("%w: broker is required", ErrInvalidConfig)
	}
	if !strings.Contains(c.Broker, "://") {
		return fmt.Errorf("%w: broker must include a scheme (tcp://, ssl://, ws://), got %q", ErrInvalidConfig, c.Broker)
	}
	if c.QoS > maxQoS {
		return fmt.Errorf("%w: qos must be 0, 1 or 2, got %d", ErrInvalidConfig, c.QoS)
	}
	for name, topic := range map[string]string{"discovery_prefix": c.DiscoveryPrefix, "base_topic": c.BaseTopic} {
		if strings.ContainsAny(topic, "+#") || strings.HasPrefix(topic, "/") || strings.HasSuffix(topic, "/") {
			return fmt.Errorf("%w: %s %q must not contain wildcards or leading/trailing slashes", ErrInvalidConfig, name, topic)
		}
	}
	if c.ConnectTimeout < 0 || c.PublishTimeout < 0 {
		return fmt.Errorf("%w: timeouts must not be negative", ErrInvalidConfig)
	}
	return nil
}
