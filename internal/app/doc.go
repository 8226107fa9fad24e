// Package app wires one controller session together.
//
// An App is the explicit context object for a session: it owns the device
// client, the Wi-Fi association, the reconciler and the controller, and
// tears all of them down in Close. Commands (CLI or dashboard) receive the
// App instead of reaching for globals.
package app
