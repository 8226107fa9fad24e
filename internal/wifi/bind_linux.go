//go:build linux

package wifi

import (
	"fmt"
	"net"
	"net/http"
	"syscall"
	"time"

	"golang.org/x/sys/unix"
)

const interfaceBindingSupported = true

// InterfaceBinder pins outgoing connections to the network's interface with
// SO_BINDTODEVICE, so device traffic leaves through Wi-Fi while the default
// route stays on the internet uplink.
type InterfaceBinder struct {
	DialTimeout time.Duration
}

// Bind returns a transport whose dials are bound to n.Interface.
func (b InterfaceBinder) Bind(n Network) (http.RoundTripper, error) {
	if n.Interface == "" {
		return nil, fmt.Errorf("no interface reported for %q", n.SSID)
	}
	if _, err := net.InterfaceByName(n.Interface); err != nil {
		return nil, fmt.Errorf("interface %s: %w", n.Interface, err)
	}

	timeout := b.DialTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}

	dialer := &net.Dialer{
		Timeout: timeout,
		Control: bindToDevice(n.Interface),
	}

	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.Proxy = nil
	transport.DialContext = dialer.DialContext
	return transport, nil
}

func bindToDevice(iface string) func(network, address string, c syscall.RawConn) error {
	return func(_, _ string, c syscall.RawConn) error {
		var sockErr error
		err := c.Control(func(fd uintptr) {
			sockErr = unix.SetsockoptString(int(fd), unix.SOL_SOCKET, unix.SO_BINDTODEVICE, iface)
		})
		if err != nil {
			return err
		}
		if sockErr != nil {
			return fmt.Errorf("bind to %s: %w", iface, sockErr)
		}
		return nil
	}
}
