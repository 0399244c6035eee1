// Package broadcast implements the per-room WebSocket fan-out using the actor pattern.
//
// A single goroutine owns the room membership map and processes commands from a
// channel (no mutexes). Per-connection write goroutines absorb slow clients;
// sender-scoped replies are routed through the same writers so a connection is
// only ever written to by one goroutine.
package broadcast
