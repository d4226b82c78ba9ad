// Package poller provides the HTTP fetch and periodic scheduling used to
// refresh pool controller targets.
//
// The main components are:
//
//   - [Client]: HTTP GET wrapper with timeout and size limits
//   - [Scheduler]: runs each [Task] on its own fixed interval, never
//     overlapping two runs of the same task
//
// Users of the poolbridge library should not need to interact with this
// package directly. Configuration is done through the main poolbridge package.
package poller
