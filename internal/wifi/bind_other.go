//go:build !linux

package wifi

import (
	"fmt"
	"net/http"
	"runtime"
	"time"
)

const interfaceBindingSupported = false

// InterfaceBinder is not available on this platform.
type InterfaceBinder struct {
	DialTimeout time.Duration
}

// Bind always fails outside linux.
func (b InterfaceBinder) Bind(n Network) (http.RoundTripper, error) {
	return nil, fmt.Errorf("interface binding is not supported on %s", runtime.GOOS)
}
