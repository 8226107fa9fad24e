package app

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/zenevo/shirodhara/internal/config"
	"github.com/zenevo/shirodhara/internal/device"
	"github.com/zenevo/shirodhara/internal/discovery"
	"github.com/zenevo/shirodhara/internal/session"
	"github.com/zenevo/shirodhara/internal/wifi"
)

// ErrClosed is returned by operations on a closed App.
var ErrClosed = errors.New("app is closed")

// Locator finds the device on the local network.
type Locator interface {
	Find(ctx context.Context, name string) (*discovery.Device, error)
}

// App owns one controller session: the device client, the network
// association, the reconciler and the command controller. Build it once,
// Start it, and Close it when done.
type App struct {
	name     string
	registry *config.Registry
	logger   *zap.Logger
	save     func(*config.Registry) error

	client     *device.Client
	associator *wifi.Associator
	reconciler *session.Reconciler
	controller *session.Controller
	locator    Locator

	mu      sync.Mutex
	handle  *wifi.Handle
	cancel  context.CancelFunc
	done    chan struct{}
	closed  bool
	started bool
}

type settings struct {
	name      string
	baseURL   string
	logger    *zap.Logger
	requester wifi.Requester
	binder    wifi.Binder
	locator   Locator
	save      func(*config.Registry) error
	strategy  wifi.Strategy
	interval  time.Duration
}

// Option configures an App.
type Option func(*settings)

// WithDeviceName selects the registry entry used for this session.
func WithDeviceName(name string) Option {
	return func(s *settings) {
		if name != "" {
			s.name = name
		}
	}
}

// WithBaseURL overrides the device address.
func WithBaseURL(url string) Option {
	return func(s *settings) { s.baseURL = url }
}

// WithLogger sets the logger. Each component gets a named child.
func WithLogger(logger *zap.Logger) Option {
	return func(s *settings) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithRequester replaces the NetworkManager backend.
func WithRequester(r wifi.Requester) Option {
	return func(s *settings) { s.requester = r }
}

// WithBinder replaces the interface binder.
func WithBinder(b wifi.Binder) Option {
	return func(s *settings) { s.binder = b }
}

// WithLocator replaces mDNS discovery.
func WithLocator(l Locator) Option {
	return func(s *settings) { s.locator = l }
}

// WithSaver replaces how the registry is persisted.
func WithSaver(save func(*config.Registry) error) Option {
	return func(s *settings) { s.save = save }
}

// WithStrategy replaces the platform-detected network strategy. Tests use it
// to exercise one strategy regardless of the host.
func WithStrategy(strategy wifi.Strategy) Option {
	return func(s *settings) { s.strategy = strategy }
}

// WithPollInterval replaces the one second health poll period.
func WithPollInterval(d time.Duration) Option {
	return func(s *settings) { s.interval = d }
}

// New builds an App from the registry.
func New(registry *config.Registry, opts ...Option) (*App, error) {
	if registry == nil {
		registry = config.NewRegistry()
	}

	s := settings{
		name:     config.DefaultDeviceName,
		logger:   zap.NewNop(),
		save:     (*config.Registry).Save,
		strategy: wifi.DetectStrategy(),
		interval: session.DefaultPollInterval,
	}
	for _, opt := range opts {
		opt(&s)
	}

	prefs := registry.Preferences
	baseURL := resolveBaseURL(s.baseURL, registry, s.name)
	if u, err := url.Parse(baseURL); err != nil || u.Host == "" {
		return nil, fmt.Errorf("invalid device address %q", baseURL)
	}

	client := device.NewClient(baseURL)
	client.SetTimeout(prefs.RequestTimeout())
	client.SetLogger(s.logger.Named("device"))

	requester := s.requester
	if requester == nil {
		cfg := wifi.DefaultNmcliConfig()
		cfg.Interface = prefs.Network.Interface
		cfg.Wait = prefs.Network.AssociationTimeoutDuration()
		requester = wifi.NewNmcliRequester(cfg, s.logger.Named("nmcli"))
	}
	assocOpts := []wifi.Option{
		wifi.WithStrategy(s.strategy),
		wifi.WithLogger(s.logger.Named("wifi")),
	}
	if s.binder != nil {
		assocOpts = append(assocOpts, wifi.WithBinder(s.binder))
	}

	locator := s.locator
	if locator == nil {
		scanner := discovery.NewScanner(s.logger.Named("discovery"))
		scanner.Timeout = prefs.DiscoveryTimeout()
		locator = scanner
	}

	reconciler := session.NewReconciler(client,
		session.WithInterval(s.interval),
		session.WithLogger(s.logger.Named("session")),
	)

	return &App{
		name:       s.name,
		registry:   registry,
		logger:     s.logger,
		save:       s.save,
		client:     client,
		associator: wifi.NewAssociator(requester, assocOpts...),
		reconciler: reconciler,
		controller: session.NewController(client, reconciler, s.logger.Named("controller")),
		locator:    locator,
	}, nil
}

// resolveBaseURL picks the device address: explicit override, configured
// address, last address seen for the device, then the access point default.
func resolveBaseURL(override string, registry *config.Registry, name string) string {
	if override != "" {
		return override
	}
	if registry.Preferences.DeviceURL != "" {
		return registry.Preferences.DeviceURL
	}
	if d := registry.GetDevice(name); d != nil && d.BaseURL != "" {
		return d.BaseURL
	}
	return device.DefaultBaseURL
}

// DeviceName returns the registry entry name
func (a *App) DeviceName() string { return a.name }

// Registry returns the loaded configuration
func (a *App) Registry() *config.Registry { return a.registry }

// Client returns the device API client
func (a *App) Client() *device.Client { return a.client }

// Reconciler returns the session reconciler
func (a *App) Reconciler() *session.Reconciler { return a.reconciler }

// Controller returns the command controller
func (a *App) Controller() *session.Controller { return a.controller }

// Associator returns the network associator
func (a *App) Associator() *wifi.Associator { return a.associator }

// Credentials returns the access point credentials from configuration.
// The passphrase comes from the environment, falling back to the factory value.
func (a *App) Credentials() wifi.Credentials {
	return wifi.Credentials{
		SSID:       a.registry.Preferences.Network.SSID,
		Passphrase: config.Passphrase(wifi.DefaultPassphrase),
	}
}

// Connect joins the device network and routes the client through it.
// Call it before Start.
func (a *App) Connect(ctx context.Context) (*wifi.Handle, error) {
	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		return nil, ErrClosed
	}
	a.mu.Unlock()

	timeout := a.registry.Preferences.Network.AssociationTimeoutDuration()
	h, err := a.associator.EnsureAssociated(ctx, a.Credentials(), timeout)
	if err != nil {
		return nil, err
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		a.associator.Release(h)
		return nil, ErrClosed
	}
	a.handle = h
	if rt := h.Transport(); rt != nil {
		a.client.SetTransport(rt)
	}
	return h, nil
}

// Probe fetches one health snapshot. When the device does not answer and
// discovery is enabled, it looks the device up over mDNS, switches the
// client to the discovered address and probes again. Call it before Start.
func (a *App) Probe(ctx context.Context) (*device.HealthSnapshot, error) {
	health, err := a.client.GetHealth(ctx)
	if err == nil {
		a.rememberAddress()
		return health, nil
	}
	if !device.IsUnreachable(err) || !a.registry.Preferences.AutoDiscover || ctx.Err() != nil {
		return nil, err
	}

	a.logger.Info("Device not answering, trying discovery",
		zap.String("base_url", a.client.BaseURL),
		zap.Error(err),
	)
	found, findErr := a.locator.Find(ctx, a.discoveryName())
	if findErr != nil {
		a.logger.Debug("Discovery failed", zap.Error(findErr))
		return nil, err
	}

	a.client.BaseURL = found.BaseURL()
	health, err = a.client.GetHealth(ctx)
	if err != nil {
		return nil, err
	}
	a.logger.Info("Using discovered device", zap.String("base_url", a.client.BaseURL))
	a.rememberAddress()
	return health, nil
}

func (a *App) discoveryName() string {
	if a.name == config.DefaultDeviceName {
		return ""
	}
	return a.name
}

func (a *App) rememberAddress() {
	a.registry.UpdateDeviceLastSeen(a.name, a.client.BaseURL)
	a.persist()
}

func (a *App) persist() {
	if a.save == nil {
		return
	}
	if err := a.save(a.registry); err != nil {
		a.logger.Warn("Failed to save configuration", zap.Error(err))
	}
}

// Start launches the poll loop. It is a no-op after the first call.
func (a *App) Start(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.closed {
		return ErrClosed
	}
	if a.started {
		return nil
	}
	a.started = true

	ctx, cancel := context.WithCancel(ctx)
	a.cancel = cancel
	a.done = make(chan struct{})

	go func() {
		defer close(a.done)
		_ = a.reconciler.Run(ctx)
	}()
	return nil
}

// InitialParameters returns the parameters to offer for a new session.
func (a *App) InitialParameters() session.Parameters {
	p := a.registry.InitialParameters(a.name)
	return session.Parameters{DurationMinutes: p.DurationMinutes, TemperatureCelsius: p.TemperatureCelsius}
}

// SetParameters sends p through the controller and remembers it for the
// next session when the device accepts it.
func (a *App) SetParameters(ctx context.Context, p session.Parameters) error {
	if err := a.controller.SetParameters(ctx, p); err != nil {
		return err
	}
	a.registry.SetLastParameters(a.name, p.DurationMinutes, p.TemperatureCelsius)
	a.persist()
	return nil
}

// Commands is the controller with SetParameters routed through the App so
// accepted parameters are remembered.
type Commands struct {
	*session.Controller
	app *App
}

// SetParameters implements the dashboard's command set
func (c *Commands) SetParameters(ctx context.Context, p session.Parameters) error {
	return c.app.SetParameters(ctx, p)
}

// Commands returns the command set for UIs.
func (a *App) Commands() *Commands {
	return &Commands{Controller: a.controller, app: a}
}

// Close stops polling and releases the network. It is safe to call more
// than once and while a request is in flight.
func (a *App) Close() {
	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		return
	}
	a.closed = true
	cancel, done, h := a.cancel, a.done, a.handle
	a.handle = nil
	a.mu.Unlock()

	if cancel != nil {
		cancel()
		<-done
	}
	a.associator.Release(h)
	a.logger.Debug("Session closed")
}
