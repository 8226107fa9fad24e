package wifi

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

// Factory defaults for the device access point.
const (
	DefaultSSID       = "Shirodhara"
	DefaultPassphrase = "Zenevo@123"
	DefaultTimeout    = 30 * time.Second
)

// Credentials identify the device access point.
type Credentials struct {
	SSID       string
	Passphrase string
}

// DefaultCredentials returns the factory access point credentials.
func DefaultCredentials() Credentials {
	return Credentials{SSID: DefaultSSID, Passphrase: DefaultPassphrase}
}

// Network is a joined Wi-Fi network as reported by the platform.
type Network struct {
	SSID      string
	Interface string
	// Profile is the platform connection profile backing the network
	Profile string
}

// Request asks a Requester to join a network.
type Request struct {
	Credentials Credentials
	Strategy    Strategy
}

// Callback receives the outcome of a Request. Functions may be called from
// any goroutine, at most once for OnAvailable or OnUnavailable, and
// OnLost only after OnAvailable.
type Callback struct {
	OnAvailable   func(Network)
	OnUnavailable func(error)
	OnLost        func()
}

// Requester is a platform backend that joins networks asynchronously.
type Requester interface {
	// CheckPermission reports ErrPermissionDenied when the process may not
	// change network settings.
	CheckPermission(ctx context.Context) error

	// Request starts joining the network and returns a function that
	// cancels the request and releases the network. The returned function
	// is safe to call more than once.
	Request(req Request, cb Callback) (unregister func(), err error)
}

// Binder produces a transport routed through a joined network.
type Binder interface {
	Bind(n Network) (http.RoundTripper, error)
}

// Handle is a live association. Release it when the device is no longer needed.
type Handle struct {
	Network  Network
	Strategy Strategy

	transport http.RoundTripper
	release   func()
	once      sync.Once
	lost      atomic.Bool
}

// Transport returns the round tripper bound to the device network, or nil
// when default routing reaches the device.
func (h *Handle) Transport() http.RoundTripper {
	return h.transport
}

// Lost reports whether the platform dropped the network after it was joined.
func (h *Handle) Lost() bool {
	return h.lost.Load()
}

// Release unregisters the request and drops the binding. It is idempotent.
func (h *Handle) Release() {
	h.once.Do(func() {
		if c, ok := h.transport.(interface{ CloseIdleConnections() }); ok {
			c.CloseIdleConnections()
		}
		if h.release != nil {
			h.release()
		}
	})
}

// registration guards callbacks so that nothing delivered after the request
// was abandoned reaches the associator.
type registration struct {
	mu       sync.Mutex
	released bool
	handle   *Handle
	result   chan outcome
}

type outcome struct {
	network Network
	err     error
}

func newRegistration() *registration {
	return &registration{result: make(chan outcome, 1)}
}

func (r *registration) callback() Callback {
	return Callback{
		OnAvailable: func(n Network) {
			r.deliver(outcome{network: n})
		},
		OnUnavailable: func(err error) {
			if err == nil {
				err = ErrUnavailable
			}
			r.deliver(outcome{err: err})
		},
		OnLost: func() {
			r.mu.Lock()
			defer r.mu.Unlock()
			if !r.released && r.handle != nil {
				r.handle.lost.Store(true)
			}
		},
	}
}

func (r *registration) deliver(o outcome) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.released {
		return
	}
	select {
	case r.result <- o:
	default:
	}
}

func (r *registration) attach(h *Handle) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handle = h
}

func (r *registration) markReleased() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.released = true
}

// Associator joins the device access point and keeps at most one live Handle.
type Associator struct {
	requester Requester
	binder    Binder
	strategy  Strategy
	logger    *zap.Logger

	// op serializes association attempts
	op     sync.Mutex
	mu     sync.Mutex
	handle *Handle
}

// Option configures an Associator
type Option func(*Associator)

// WithStrategy overrides the detected strategy
func WithStrategy(s Strategy) Option {
	return func(a *Associator) { a.strategy = s }
}

// WithBinder overrides the interface binder
func WithBinder(b Binder) Option {
	return func(a *Associator) { a.binder = b }
}

// WithLogger sets the logger
func WithLogger(logger *zap.Logger) Option {
	return func(a *Associator) {
		if logger != nil {
			a.logger = logger
		}
	}
}

// NewAssociator creates an associator using requester as the platform backend.
func NewAssociator(requester Requester, opts ...Option) *Associator {
	a := &Associator{
		requester: requester,
		binder:    InterfaceBinder{},
		strategy:  DetectStrategy(),
		logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Strategy returns the strategy used for new associations
func (a *Associator) Strategy() Strategy {
	return a.strategy
}

// Current returns the live handle, or nil.
func (a *Associator) Current() *Handle {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.handle == nil || a.handle.Lost() {
		return nil
	}
	return a.handle
}

// EnsureAssociated joins the network described by creds, waiting at most
// timeout. A live handle is returned as is. On every failure path the
// request is unregistered before returning.
func (a *Associator) EnsureAssociated(ctx context.Context, creds Credentials, timeout time.Duration) (*Handle, error) {
	a.op.Lock()
	defer a.op.Unlock()

	if h := a.Current(); h != nil {
		a.logger.Debug("Already associated", zap.String("ssid", h.Network.SSID))
		return h, nil
	}
	a.dropLost()

	if creds.SSID == "" {
		return nil, unavailable(creds.SSID, errors.New("SSID is empty"))
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	if err := a.requester.CheckPermission(ctx); err != nil {
		a.logger.Warn("Network permission check failed", zap.Error(err))
		return nil, classify(creds.SSID, err)
	}

	a.logger.Info("Requesting device network",
		zap.String("ssid", creds.SSID),
		zap.Stringer("strategy", a.strategy),
		zap.Duration("timeout", timeout),
	)

	reg := newRegistration()
	unregister, err := a.requester.Request(Request{Credentials: creds, Strategy: a.strategy}, reg.callback())
	if err != nil {
		return nil, classify(creds.SSID, err)
	}

	abandon := func() {
		reg.markReleased()
		unregister()
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	var res outcome
	select {
	case res = <-reg.result:
	case <-timer.C:
		abandon()
		a.logger.Warn("Device network not available before timeout", zap.String("ssid", creds.SSID))
		return nil, unavailable(creds.SSID, fmt.Errorf("no connection within %s", timeout))
	case <-ctx.Done():
		abandon()
		return nil, fmt.Errorf("associate %q: %w", creds.SSID, ctx.Err())
	}

	if res.err != nil {
		abandon()
		a.logger.Warn("Device network unavailable", zap.String("ssid", creds.SSID), zap.Error(res.err))
		return nil, classify(creds.SSID, res.err)
	}

	var transport http.RoundTripper
	if a.strategy == StrategyScoped {
		transport, err = a.binder.Bind(res.network)
		if err != nil {
			abandon()
			return nil, unavailable(creds.SSID, err)
		}
	}

	h := &Handle{
		Network:   res.network,
		Strategy:  a.strategy,
		transport: transport,
		release:   abandon,
	}
	reg.attach(h)

	a.mu.Lock()
	a.handle = h
	a.mu.Unlock()

	a.logger.Info("Associated with device network",
		zap.String("ssid", res.network.SSID),
		zap.String("interface", res.network.Interface),
	)
	return h, nil
}

// Release drops h. Releasing nil, or a handle already released, does nothing.
func (a *Associator) Release(h *Handle) {
	if h == nil {
		return
	}
	h.Release()

	a.mu.Lock()
	if a.handle == h {
		a.handle = nil
	}
	a.mu.Unlock()
}

// dropLost releases a handle the platform has lost.
func (a *Associator) dropLost() {
	a.mu.Lock()
	h := a.handle
	a.mu.Unlock()
	if h != nil && h.Lost() {
		a.logger.Info("Device network was lost, requesting again")
		a.Release(h)
	}
}
