// Package dashboard provides the embedded web UI assets for the bridge.
//
// The dashboard HTML, CSS and JavaScript are embedded at compile time so the
// bridge ships as a single binary. The server package serves them at "/".
package dashboard

import "embed"

// Assets is an embedded filesystem containing the dashboard web UI.
//
// The filesystem structure is:
//
//	assets/
//	  index.html    - Dashboard page with inline CSS and JavaScript
//
// The page subscribes to /api/sse and renders one card per target.
//
//go:embed assets/*
var Assets embed.FS
