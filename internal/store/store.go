package store

import "time"

// Reading is the storage representation of one field of a target.
type Reading struct {
	// Key is the field key, e.g. "water_temperature".
	Key string `json:"key"`

	// Name is the human-readable field name.
	Name string `json:"name"`

	// Value is the extracted value as plain JSON data.
	// nil when the path is absent or the value is null.
	Value any `json:"value"`

	// Present is false when the path did not resolve.
	Present bool `json:"present"`

	Unit        string `json:"unit,omitempty"`
	DeviceClass string `json:"device_class,omitempty"`
	StateClass  string `json:"state_class,omitempty"`
	Icon        string `json:"icon,omitempty"`

	// Attributes holds the resolved secondary values.
	Attributes map[string]any `json:"attributes,omitempty"`
}

// TargetStatus represents the current state of one pool controller.
//
// TargetStatus is optimized for JSON serialization (used by the REST API and
// SSE). It is decoupled from the coordinator's types to allow independent
// evolution.
type TargetStatus struct {
	// Name is the target's display name and the storage key.
	Name string `json:"name"`

	// ID is host + path.
	ID string `json:"id"`

	// URL is the polled address.
	URL string `json:"url"`

	// State is "uninitialized", "ready" or "degraded".
	State string `json:"state"`

	// Available is true once a snapshot exists.
	Available bool `json:"available"`

	// Reason classifies the last refresh ("ok", "timeout", ...).
	Reason string `json:"reason"`

	// StatusCode is the HTTP status of the last refresh, 0 if none.
	StatusCode int `json:"status_code,omitempty"`

	// ResponseTimeMs is the request latency in milliseconds.
	ResponseTimeMs int64 `json:"response_time_ms"`

	// CheckedAt is the timestamp of the last refresh.
	CheckedAt time.Time `json:"checked_at"`

	// Error contains the failure message of the last refresh.
	// nil indicates the last refresh succeeded.
	Error *string `json:"error"`

	// Readings holds every field in table order.
	Readings []Reading `json:"readings"`
}

// Store defines the interface for storing and subscribing to target updates.
//
// Store implementations must be safe for concurrent access. The pub/sub
// mechanism allows real-time updates to be pushed to connected clients
// (e.g., via Server-Sent Events).
type Store interface {
	// Update stores a new status and notifies all subscribers.
	// The status is keyed by Name, so subsequent updates replace previous values.
	Update(status TargetStatus)

	// Get returns the status stored under name.
	Get(name string) (TargetStatus, bool)

	// GetAll returns all currently stored statuses, sorted by name.
	// The returned slice is a snapshot; modifications do not affect the store.
	GetAll() []TargetStatus

	// Subscribe returns a channel that receives status updates.
	// The returned channel has a buffer; slow consumers may miss updates.
	// Caller must call Unsubscribe when done to prevent resource leaks.
	Subscribe() <-chan TargetStatus

	// Unsubscribe removes a subscription and closes the channel.
	// Safe to call with a channel that was already unsubscribed.
	Unsubscribe(ch <-chan TargetStatus)
}
