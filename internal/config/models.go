package config

import "time"

// Registry represents the entire user configuration file.
type Registry struct {
	Version     int                `yaml:"version"`
	Devices     map[string]*Device `yaml:"devices,omitempty"` // Keyed by device name
	Preferences *Preferences       `yaml:"preferences,omitempty"`
}

// Device represents what is remembered about one Shirodhara unit.
type Device struct {
	Nickname       string      `yaml:"nickname,omitempty"`        // User-friendly name
	BaseURL        string      `yaml:"base_url,omitempty"`        // Last working API address
	LastSeen       time.Time   `yaml:"last_seen,omitempty"`       // Last successful poll or discovery
	LastParameters *ParamsMeta `yaml:"last_parameters,omitempty"` // Parameters of the last session
}

// ParamsMeta is a stored pair of treatment parameters.
type ParamsMeta struct {
	DurationMinutes    int `yaml:"duration_minutes"`
	TemperatureCelsius int `yaml:"temperature_celsius"`
}

// Preferences represents application-wide user preferences.
type Preferences struct {
	DeviceURL       string        `yaml:"device_url,omitempty"` // Overrides the access point address
	AutoDiscover    bool          `yaml:"auto_discover"`        // Fall back to mDNS when the device URL fails
	DiscoverTimeout int           `yaml:"discover_timeout"`     // mDNS discovery timeout in seconds
	HTTPTimeout     int           `yaml:"http_timeout"`         // Device request timeout in seconds
	Network         *NetworkPrefs `yaml:"network,omitempty"`
	Defaults        *ParamsMeta   `yaml:"defaults,omitempty"` // Parameters offered for a new session
}

// NetworkPrefs configures joining the device access point.
// The passphrase is not stored here; see PassphraseEnv.
type NetworkPrefs struct {
	SSID               string `yaml:"ssid"`
	Interface          string `yaml:"interface,omitempty"` // Wi-Fi device, empty lets NetworkManager pick
	AssociationTimeout int    `yaml:"association_timeout"` // seconds
}

// Defaults applied to new and partially filled registries.
const (
	DefaultDeviceName      = "default"
	DefaultDiscoverTimeout = 5
	DefaultHTTPTimeout     = 5
	DefaultSSID            = "Shirodhara"
	DefaultAssocTimeout    = 30
	DefaultDuration        = 30
	DefaultTemperature     = 37
)

// NewRegistry creates a new Registry with default values.
func NewRegistry() *Registry {
	return &Registry{
		Version:     1,
		Devices:     make(map[string]*Device),
		Preferences: defaultPreferences(),
	}
}

func defaultPreferences() *Preferences {
	return &Preferences{
		AutoDiscover:    true,
		DiscoverTimeout: DefaultDiscoverTimeout,
		HTTPTimeout:     DefaultHTTPTimeout,
		Network: &NetworkPrefs{
			SSID:               DefaultSSID,
			AssociationTimeout: DefaultAssocTimeout,
		},
		Defaults: &ParamsMeta{
			DurationMinutes:    DefaultDuration,
			TemperatureCelsius: DefaultTemperature,
		},
	}
}

// fillDefaults replaces missing or zero values so a hand-edited file with
// only some keys still yields usable preferences.
func (r *Registry) fillDefaults() {
	if r.Devices == nil {
		r.Devices = make(map[string]*Device)
	}
	if r.Preferences == nil {
		r.Preferences = defaultPreferences()
		return
	}

	def := defaultPreferences()
	p := r.Preferences
	if p.DiscoverTimeout <= 0 {
		p.DiscoverTimeout = def.DiscoverTimeout
	}
	if p.HTTPTimeout <= 0 {
		p.HTTPTimeout = def.HTTPTimeout
	}
	if p.Network == nil {
		p.Network = def.Network
	}
	if p.Network.SSID == "" {
		p.Network.SSID = def.Network.SSID
	}
	if p.Network.AssociationTimeout <= 0 {
		p.Network.AssociationTimeout = def.Network.AssociationTimeout
	}
	if p.Defaults == nil {
		p.Defaults = def.Defaults
	}
}

// RequestTimeout returns the device HTTP timeout
func (p *Preferences) RequestTimeout() time.Duration {
	return time.Duration(p.HTTPTimeout) * time.Second
}

// DiscoveryTimeout returns the mDNS browse duration
func (p *Preferences) DiscoveryTimeout() time.Duration {
	return time.Duration(p.DiscoverTimeout) * time.Second
}

// AssociationTimeoutDuration returns how long to wait for the access point
func (n *NetworkPrefs) AssociationTimeoutDuration() time.Duration {
	return time.Duration(n.AssociationTimeout) * time.Second
}

// GetDevice retrieves device metadata by name.
// Returns nil if the device doesn't exist in the registry.
func (r *Registry) GetDevice(name string) *Device {
	return r.Devices[name]
}

// EnsureDevice ensures a device entry exists in the registry.
func (r *Registry) EnsureDevice(name string) *Device {
	if r.Devices == nil {
		r.Devices = make(map[string]*Device)
	}

	if device, exists := r.Devices[name]; exists {
		return device
	}

	device := &Device{}
	r.Devices[name] = device
	return device
}

// UpdateDeviceLastSeen records a working address for a device.
func (r *Registry) UpdateDeviceLastSeen(name, baseURL string) {
	device := r.EnsureDevice(name)
	device.LastSeen = time.Now()
	device.BaseURL = baseURL
}

// SetLastParameters remembers the parameters last sent to a device.
func (r *Registry) SetLastParameters(name string, duration, temperature int) {
	device := r.EnsureDevice(name)
	device.LastParameters = &ParamsMeta{
		DurationMinutes:    duration,
		TemperatureCelsius: temperature,
	}
}

// SetDeviceNickname sets a user-friendly nickname for a device.
func (r *Registry) SetDeviceNickname(name, nickname string) {
	device := r.EnsureDevice(name)
	device.Nickname = nickname
}

// InitialParameters returns the parameters to offer for a new session:
// the device's last parameters when known, otherwise the configured defaults.
func (r *Registry) InitialParameters(name string) ParamsMeta {
	if d := r.GetDevice(name); d != nil && d.LastParameters != nil {
		return *d.LastParameters
	}
	if r.Preferences != nil && r.Preferences.Defaults != nil {
		return *r.Preferences.Defaults
	}
	return ParamsMeta{DurationMinutes: DefaultDuration, TemperatureCelsius: DefaultTemperature}
}
