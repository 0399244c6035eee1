// Package estimation implements the realtime estimation protocol: parsing
// inbound room events, recording votes, computing the median estimate when
// voting closes, and shaping the outbound broadcast messages.
package estimation
