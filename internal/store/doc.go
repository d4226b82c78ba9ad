// Package store keeps the latest status of every target and fans updates
// out to subscribers.
//
// The main components are:
//
//   - [Store]: Interface defining storage and subscription operations
//   - [MemoryStore]: In-memory implementation of Store with pub/sub
//   - [TargetStatus]: Storage representation of a target and its readings
//
// Subscribers receive updates via channels with non-blocking sends (slow
// subscribers will miss updates rather than block the system).
//
// Users of the poolbridge library should not need to interact with this
// package directly. Storage is managed internally by the bridge.
package store
