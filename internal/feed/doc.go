// Package feed serves the live session status for external dashboards.
//
// GET /status returns the current status as JSON. GET /ws upgrades to a
// WebSocket that sends the same JSON document on connect and after every
// change. Slow clients skip intermediate values.
package feed
