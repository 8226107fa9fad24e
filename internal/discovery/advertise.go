package discovery

import (
	"fmt"

	"github.com/grandcat/zeroconf"
)

// Advertiser publishes a device on mDNS so scanners can find it.
type Advertiser struct {
	server *zeroconf.Server
}

// Hostname returns the advertised hostname for a device name.
func Hostname(name string) string {
	if name == "" || name == DefaultName {
		return "shirodhara"
	}
	return "shirodhara-" + name
}

// Advertise registers a device named name listening on ip:port.
func Advertise(name, ip string, port int, txt []string) (*Advertiser, error) {
	host := Hostname(name)
	server, err := zeroconf.RegisterProxy(host, ServiceType, ServiceDomain, port, host, []string{ip}, txt, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to register mDNS service: %w", err)
	}
	return &Advertiser{server: server}, nil
}

// Shutdown withdraws the advertisement
func (a *Advertiser) Shutdown() {
	if a != nil && a.server != nil {
		a.server.Shutdown()
	}
}
