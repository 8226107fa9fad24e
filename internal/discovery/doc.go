// Package discovery finds Shirodhara devices with multicast DNS.
//
// Devices reachable through a LAN rather than their own access point
// advertise "_http._tcp" with a hostname of "shirodhara" or
// "shirodhara-<name>". Scanner collects them; Advertise publishes one,
// which the simulator uses.
//
// # Network Requirements
//
// - Requires multicast support on the network interface
// - Devices must be on the same local network segment
// - Firewall must allow mDNS (UDP port 5353)
package discovery
