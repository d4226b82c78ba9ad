package mqtt

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/jpalmerr/poolbridge"
)

// announcement is what was last announced for one target.
type announcement struct {
	target poolbridge.TargetConfig
	fields []poolbridge.Field
}

// Publisher implements [poolbridge.Publisher] over MQTT.
// Create one with [Connect]. It is safe for concurrent use.
type Publisher struct {
	client pahoClient
	cfg    Config
	logger *slog.Logger

	mu        sync.Mutex
	announced map[string]announcement // keyed by node id
	order     []string
}

var _ poolbridge.Publisher = (*Publisher)(nil)

func newPublisher(client pahoClient, cfg Config, logger *slog.Logger) *Publisher {
	return &Publisher{
		client:    client,
		cfg:       cfg.withDefaults(),
		logger:    logger,
		announced: make(map[string]announcement),
	}
}

// Announce publishes a retained discovery document for every field of target.
// The target is remembered and announced again whenever the host restarts.
func (p *Publisher) Announce(ctx context.Context, target poolbridge.TargetConfig, fields []poolbridge.Field) error {
	node := poolbridge.NodeID(target)

	p.mu.Lock()
	if _, ok := p.announced[node]; !ok {
		p.order = append(p.order, node)
	}
	p.announced[node] = announcement{target: target, fields: append([]poolbridge.Field(nil), fields...)}
	p.mu.Unlock()

	return p.announce(ctx, target, fields)
}

func (p *Publisher) announce(ctx context.Context, target poolbridge.TargetConfig, fields []poolbridge.Field) error {
	node := poolbridge.NodeID(target)

	var errs []error
	for _, f := range fields {
		if err := p.publishJSON(ctx, p.discoveryTopic(node, f.Key()), p.sensorConfig(target, f)); err != nil {
			errs = append(errs, fmt.Errorf("announce %s: %w", f.Key(), err))
		}
	}
	if err := errors.Join(errs...); err != nil {
		return err
	}

	p.logger.Info("announced target", "target", target.Name(), "node", node, "entities", len(fields))
	return nil
}

// reannounce publishes discovery documents and availability for every
// announced target again.
func (p *Publisher) reannounce() {
	ctx, cancel := context.WithTimeout(context.Background(), p.cfg.PublishTimeout*2)
	defer cancel()

	for _, a := range p.announcements() {
		if err := p.announce(ctx, a.target, a.fields); err != nil {
			p.logger.Warn("re-announce failed", "target", a.target.Name(), "error", err)
		}
	}
}

func (p *Publisher) announcements() []announcement {
	p.mu.Lock()
	defer p.mu.Unlock()

	out := make([]announcement, 0, len(p.order))
	for _, node := range p.order {
		out = append(out, p.announced[node])
	}
	return out
}

// Publish publishes the availability, readings and attributes of one target.
// Readings are published only while the target is available; an absent
// reading is published as null.
func (p *Publisher) Publish(ctx context.Context, update poolbridge.TargetUpdate) error {
	node := poolbridge.NodeID(update.Target)

	availability := payloadOffline
	if update.Available {
		availability = payloadOnline
	}
	if err := p.publish(ctx, p.availabilityTopic(node), []byte(availability)); err != nil {
		return fmt.Errorf("publish availability: %w", err)
	}
	if !update.Available {
		return nil
	}

	state := make(map[string]any, len(update.Readings))
	for _, rv := range update.Readings {
		if rv.Present {
			state[rv.Field.Key()] = rv.Value.Interface()
		} else {
			state[rv.Field.Key()] = nil
		}
	}
	if err := p.publishJSON(ctx, p.stateTopic(node), state); err != nil {
		return fmt.Errorf("publish state: %w", err)
	}

	var errs []error
	for _, rv := range update.Readings {
		if len(rv.Field.AttributeNames()) == 0 {
			continue
		}
		attrs := make(map[string]any, len(rv.Attributes))
		for name, v := range rv.Attributes {
			attrs[name] = v.Interface()
		}
		if err := p.publishJSON(ctx, p.attributesTopic(node, rv.Field.Key()), attrs); err != nil {
			errs = append(errs, fmt.Errorf("publish %s attributes: %w", rv.Field.Key(), err))
		}
	}
	return errors.Join(errs...)
}

// Close marks every announced target and the bridge offline, then
// disconnects from the broker.
func (p *Publisher) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), p.cfg.PublishTimeout)
	defer cancel()

	var errs []error
	for _, a := range p.announcements() {
		node := poolbridge.NodeID(a.target)
		if err := p.publish(ctx, p.availabilityTopic(node), []byte(payloadOffline)); err != nil {
			errs = append(errs, err)
		}
	}
	if err := p.publish(ctx, p.bridgeStatusTopic(), []byte(payloadOffline)); err != nil {
		errs = append(errs, err)
	}

	p.client.Disconnect(defaultDisconnectQuiesce)
	p.logger.Info("disconnected from MQTT broker", "broker", p.cfg.Broker)
	return errors.Join(errs...)
}

func (p *Publisher) publishJSON(ctx context.Context, topic string, v any) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", topic, err)
	}
	return p.publish(ctx, topic, payload)
}

// publish sends a retained message and waits for the broker to acknowledge it.
func (p *Publisher) publish(ctx context.Context, topic string, payload []byte) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: %w", ErrPublishFailed, err)
	}
	if !p.client.IsConnected() {
		return ErrNotConnected
	}

	token := p.client.Publish(topic, p.cfg.QoS, true, payload)
	return waitToken(token, p.cfg.PublishTimeout, ctx.Done())
}
