// Package server hosts the HTTP and WebSocket surface: account and room
// endpoints, health probes, the Prometheus endpoint, and the upgrade
// handler that hands authenticated connections to the estimation sessions.
package server
