package mqtt

import (
	"fmt"
	"log/slog"
	"time"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"
)

// pahoClient is the subset of the paho client used by Publisher.
type pahoClient interface {
	IsConnected() bool
	Publish(topic string, qos byte, retained bool, payload interface{}) pahomqtt.Token
	Subscribe(topic string, qos byte, callback pahomqtt.MessageHandler) pahomqtt.Token
	Disconnect(quiesce uint)
}

// Connect validates cfg, connects to the broker and returns a ready Publisher.
//
// The broker is told to publish "offline" on the bridge status topic if the
// connection drops. On every (re)connect the bridge publishes "online" and
// subscribes to the host's status topic. The paho client reconnects on its own.
func Connect(cfg Config, logger *slog.Logger) (*Publisher, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	cfg = cfg.withDefaults()
	if logger == nil {
		logger = slog.Default()
	}

	p := newPublisher(nil, cfg, logger)
	client := pahomqtt.NewClient(p.buildClientOptions())
	p.client = client

	token := client.Connect()
	if !token.WaitTimeout(cfg.ConnectTimeout) {
		client.Disconnect(0)
		return nil, fmt.Errorf("%w: timeout after %v connecting to %s", ErrConnectionFailed, cfg.ConnectTimeout, cfg.Broker)
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConnectionFailed, err)
	}

	logger.Info("connected to MQTT broker", "broker", cfg.Broker, "client_id", cfg.ClientID)
	return p, nil
}

func (p *Publisher) buildClientOptions() *pahomqtt.ClientOptions {
	opts := pahomqtt.NewClientOptions()
	opts.AddBroker(p.cfg.Broker)
	opts.SetClientID(p.cfg.ClientID)
	if p.cfg.Username != "" {
		opts.SetUsername(p.cfg.Username)
		opts.SetPassword(p.cfg.Password)
	}

	opts.SetCleanSession(true)
	opts.SetKeepAlive(defaultKeepAlive)
	opts.SetConnectTimeout(p.cfg.ConnectTimeout)
	opts.SetAutoReconnect(true)
	opts.SetMaxReconnectInterval(defaultMaxReconnect)
	opts.SetOrderMatters(false)

	opts.SetWill(p.bridgeStatusTopic(), payloadOffline, p.cfg.QoS, true)

	opts.SetOnConnectHandler(func(_ pahomqtt.Client) {
		p.handleConnect()
	})
	opts.SetConnectionLostHandler(func(_ pahomqtt.Client, err error) {
		p.logger.Warn("MQTT connection lost", "broker", p.cfg.Broker, "error", err)
	})
	opts.SetReconnectingHandler(func(_ pahomqtt.Client, _ *pahomqtt.ClientOptions) {
		p.logger.Info("reconnecting to MQTT broker", "broker", p.cfg.Broker)
	})

	return opts
}

// handleConnect runs on every successful connection, including reconnects.
// It runs on a paho goroutine, so it must not wait on tokens for long.
func (p *Publisher) handleConnect() {
	token := p.client.Publish(p.bridgeStatusTopic(), p.cfg.QoS, true, payloadOnline)
	go p.logToken(token, "publish bridge status")

	token = p.client.Subscribe(p.hostStatusTopic(), p.cfg.QoS, p.handleHostStatus)
	go p.logToken(token, "subscribe host status")
}

func (p *Publisher) logToken(token pahomqtt.Token, op string) {
	if !token.WaitTimeout(p.cfg.PublishTimeout) {
		p.logger.Warn("MQTT operation timed out", "op", op, "timeout", p.cfg.PublishTimeout)
		return
	}
	if err := token.Error(); err != nil {
		p.logger.Warn("MQTT operation failed", "op", op, "error", err)
	}
}

// handleHostStatus re-announces every target when the host comes back online.
func (p *Publisher) handleHostStatus(_ pahomqtt.Client, msg pahomqtt.Message) {
	if string(msg.Payload()) != payloadOnline {
		return
	}
	p.logger.Info("host came online, re-announcing targets")
	go p.reannounce()
}

// waitToken blocks until token completes, the timeout elapses, or done closes.
func waitToken(token pahomqtt.Token, timeout time.Duration, done <-chan struct{}) error {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-token.Done():
		if err := token.Error(); err != nil {
			return fmt.Errorf("%w: %w", ErrPublishFailed, err)
		}
		return nil
	case <-timer.C:
		return fmt.Errorf("%w: timeout after %v", ErrPublishFailed, timeout)
	case <-done:
		return fmt.Errorf("%w: context done", ErrPublishFailed)
	}
}
