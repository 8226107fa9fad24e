// Package wifi joins the device's Wi-Fi access point.
//
// The Associator issues a Request to a platform Requester and waits for its
// OnAvailable or OnUnavailable callback. Two strategies exist:
//
//   - StrategyScoped adds a profile that never becomes the default route and
//     binds device connections to the Wi-Fi interface (SO_BINDTODEVICE), so
//     the host keeps its internet uplink.
//   - StrategyLegacy simply connects and relies on default routing.
//
// NmcliRequester is the NetworkManager backend. Callbacks that arrive after
// a request was released or timed out are dropped.
package wifi
