// Package poolbridge bridges a pool controller's HTTP JSON status endpoint
// to typed sensor readings.
//
// A controller answers GET /api/v1/pool/info with a nested JSON document.
// The bridge polls it on a fixed interval, keeps the last good document as a
// snapshot, and evaluates a static table of fields against that snapshot.
// Each field names a path into the document and carries the presentation
// metadata a home automation host needs (unit, device class, state class).
//
// # Quick Start
//
//	cfg, _ := poolbridge.NewTargetConfig("192.168.1.52:11000")
//	b, _ := poolbridge.New(poolbridge.WithTarget(cfg))
//
//	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
//	defer stop()
//
//	b.Start(ctx) // blocks until context is cancelled
//
// # Documents and Paths
//
// [ParseDocument] decodes a response body into a [Value], a tagged union of
// null, boolean, number, string, sequence and mapping. A [Path] is a list of
// key and index segments:
//
//	p := poolbridge.MustPath("state", "readings", 0, "value")
//	v, ok := poolbridge.Extract(doc, p)
//
// Extraction never fails: a missing key, an out-of-range index or a
// segment of the wrong kind yields "absent", which readings report as an
// unknown value.
//
// # Polling
//
// A [Coordinator] owns one target. Refreshes are serialized, bounded by
// [RequestTimeout], and classified into an [Outcome]. A failed refresh keeps
// the previous snapshot and moves the coordinator to [StateDegraded]; the next
// success returns it to [StateReady]. There is no retry or backoff.
//
// The first refresh of a target is a setup check: [Coordinator.FirstRefresh]
// and [ValidateTarget] report "cannot_connect" or "unknown" via
// [SetupErrorCode].
//
// # Architecture
//
// The module consists of these packages:
//
//   - internal/poller: HTTP client and per-task interval scheduler
//   - internal/store: latest status per target with pub/sub fan-out
//   - internal/server: REST API, Server-Sent Events and dashboard serving
//   - mqtt: Home Assistant MQTT discovery and state publishing
//   - config: YAML configuration loading
//   - dashboard: embedded web UI assets
package poolbridge
