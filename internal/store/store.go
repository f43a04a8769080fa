// Package store provides the key-value backends behind game.Store. Session
// records are addressed by room code and written as whole JSON documents with
// a bounded lifetime. Both backends give read-after-write consistency and
// last-writer-wins atomicity per key.
package store
