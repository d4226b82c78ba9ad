package poolbridge

import (
	"errors"
	"log/slog"
)

// bridgeConfig holds mutable state during Bridge construction.
type bridgeConfig struct {
	title           string
	targets         []TargetConfig
	fields          []Field
	port            int
	httpDisabled    bool
	logger          *slog.Logger
	publisher       Publisher
	updateCallbacks []func(TargetUpdate)
}

// Option is a function that configures a [Bridge] during construction.
//
// Options return an error if validation fails.
//
// Built-in options: [WithTarget], [WithTargets], [WithFields], [WithPort],
// [WithLogger], [WithTitle], [WithPublisher], [WithUpdateCallback],
// [WithHTTPDisabled].
type Option func(*bridgeConfig) error

// WithTarget adds a single target to poll.
//
// Can be called multiple times. At least one target must be configured for
// [New] to succeed.
//
// Example:
//
//	cfg, err := poolbridge.NewTargetConfig("192.168.1.52:11000")
//	if err != nil {
//	    return err
//	}
//	b, err := poolbridge.New(poolbridge.WithTarget(cfg))
func WithTarget(t TargetConfig) Option {
	return func(cfg *bridgeConfig) error {
		cfg.targets = append(cfg.targets, t)
		return nil
	}
}

// WithTargets adds several targets at once.
// Equivalent to calling [WithTarget] for each.
func WithTargets(targets ...TargetConfig) Option {
	return func(cfg *bridgeConfig) error {
		cfg.targets = append(cfg.targets, targets...)
		return nil
	}
}

// WithFields replaces the field set evaluated against every target.
//
// Defaults to [PoolFields]. The fields are validated by [New] with
// [ValidateFields].
//
// Returns an error if fields is empty.
func WithFields(fields ...Field) Option {
	return func(cfg *bridgeConfig) error {
		if len(fields) == 0 {
			return errors.New("at least one field is required")
		}
		cfg.fields = append([]Field(nil), fields...)
		return nil
	}
}

// WithPort sets the HTTP port for the dashboard server.
//
// Defaults to 8080 if not specified.
//
// Returns an error if the port is outside the valid range (1-65535).
func WithPort(port int) Option {
	return func(cfg *bridgeConfig) error {
		if port < 1 || port > 65535 {
			return errors.New("port must be between 1 and 65535")
		}
		cfg.port = port
		return nil
	}
}

// WithHTTPDisabled turns off the dashboard and API server. Polling,
// publishing and callbacks continue to work.
func WithHTTPDisabled() Option {
	return func(cfg *bridgeConfig) error {
		cfg.httpDisabled = true
		return nil
	}
}

// WithLogger sets a custom [slog.Logger] for the Bridge and its coordinators.
//
// If not specified, [slog.Default] is used.
//
// Example:
//
//	logger := slog.New(slog.NewJSONHandler(os.Stderr, nil))
//	b, err := poolbridge.New(
//	    poolbridge.WithTarget(cfg),
//	    poolbridge.WithLogger(logger),
//	)
//
// Returns an error if the logger is nil.
func WithLogger(logger *slog.Logger) Option {
	return func(cfg *bridgeConfig) error {
		if logger == nil {
			return errors.New("logger cannot be nil")
		}
		cfg.logger = logger
		return nil
	}
}

// WithTitle sets the dashboard title displayed in the browser tab and header.
//
// If not specified, defaults to "Pool Bridge".
func WithTitle(title string) Option {
	return func(cfg *bridgeConfig) error {
		cfg.title = title
		return nil
	}
}

// WithPublisher sets the [Publisher] that receives discovery announcements
// and every committed update.
//
// Returns an error if p is nil.
func WithPublisher(p Publisher) Option {
	return func(cfg *bridgeConfig) error {
		if p == nil {
			return errors.New("publisher cannot be nil")
		}
		cfg.publisher = p
		return nil
	}
}

// WithUpdateCallback registers a function to be called for every committed
// refresh, including the first one of each target.
//
// Multiple callbacks may be registered; they execute in registration order.
//
// IMPORTANT: Callbacks must be non-blocking. They are invoked synchronously
// from a single goroutine, so a blocking callback delays every later update.
// Panics within callbacks are recovered and logged.
//
// Example:
//
//	b, err := poolbridge.New(
//	    poolbridge.WithTarget(cfg),
//	    poolbridge.WithUpdateCallback(func(u poolbridge.TargetUpdate) {
//	        if u.State == poolbridge.StateDegraded {
//	            log.Printf("%s: %s", u.Target.Name(), u.Outcome.Message)
//	        }
//	    }),
//	)
//
// Nil callbacks are silently ignored.
func WithUpdateCallback(cb func(TargetUpdate)) Option {
	return func(cfg *bridgeConfig) error {
		if cb == nil {
			return nil
		}
		cfg.updateCallbacks = append(cfg.updateCallbacks, cb)
		return nil
	}
}
