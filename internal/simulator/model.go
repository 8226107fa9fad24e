package simulator

import (
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/zenevo/shirodhara/internal/device"
)

// Simulation constants
const (
	AmbientC        = 25.0 // room temperature °C
	DefaultRampCPS  = 0.5  // °C per second while heating
	CoolCPS         = 0.05 // °C per second drift toward ambient when idle
	ReachedBandC    = 0.5  // °C below target counted as reached
	MinDurationMin  = 5
	MaxDurationMin  = 60
	MinTemperatureC = 30
	MaxTemperatureC = 45
)

var (
	// ErrOutOfRange is returned for parameters the firmware refuses.
	ErrOutOfRange = errors.New("parameter out of range")

	// ErrNotConfigured is returned when start is sent before any parameters.
	ErrNotConfigured = errors.New("parameters not set")
)

// Unit models the heater and treatment timer of one device.
type Unit struct {
	mu sync.Mutex

	rampCPS     float64
	temperature float64
	target      int
	duration    int // minutes
	configured  bool

	heating   bool
	treating  bool
	remaining float64 // seconds
}

// NewUnit creates an idle unit at ambient temperature.
// rampCPS <= 0 selects DefaultRampCPS.
func NewUnit(rampCPS float64) *Unit {
	if rampCPS <= 0 {
		rampCPS = DefaultRampCPS
	}
	return &Unit{
		rampCPS:     rampCPS,
		temperature: AmbientC,
		target:      MinTemperatureC,
	}
}

// SetParameters stores the treatment settings and starts heating.
func (u *Unit) SetParameters(duration, temperature int) error {
	if duration < MinDurationMin || duration > MaxDurationMin {
		return fmt.Errorf("%w: duration %d", ErrOutOfRange, duration)
	}
	if temperature < MinTemperatureC || temperature > MaxTemperatureC {
		return fmt.Errorf("%w: temperature %d", ErrOutOfRange, temperature)
	}

	u.mu.Lock()
	defer u.mu.Unlock()

	u.duration = duration
	u.target = temperature
	u.configured = true
	u.treating = false
	u.heating = true
	return nil
}

// Start begins the treatment timer. Heating stops; the oil is held at target.
func (u *Unit) Start() error {
	u.mu.Lock()
	defer u.mu.Unlock()

	if !u.configured {
		return ErrNotConfigured
	}
	u.heating = false
	u.treating = true
	u.remaining = float64(u.duration * 60)
	return nil
}

// Stop ends heating and treatment.
func (u *Unit) Stop() {
	u.mu.Lock()
	defer u.mu.Unlock()

	u.heating = false
	u.treating = false
	u.remaining = 0
}

// Advance moves the simulation forward by elapsed.
func (u *Unit) Advance(elapsed time.Duration) {
	secs := elapsed.Seconds()
	if secs <= 0 {
		return
	}

	u.mu.Lock()
	defer u.mu.Unlock()

	target := float64(u.target)

	switch {
	case u.treating:
		u.temperature = target
		u.remaining -= secs
		if u.remaining <= 0 {
			u.remaining = 0
			u.treating = false
		}
	case u.heating:
		if u.temperature < target {
			u.temperature = math.Min(u.temperature+u.rampCPS*secs, target)
		} else {
			u.temperature = target
		}
	default:
		if u.temperature > AmbientC {
			u.temperature = math.Max(u.temperature-CoolCPS*secs, AmbientC)
		}
	}
}

// Snapshot returns the current health reading.
func (u *Unit) Snapshot() device.HealthSnapshot {
	u.mu.Lock()
	defer u.mu.Unlock()

	target := float64(u.target)
	reached := u.heating && u.temperature >= target-ReachedBandC

	snap := device.HealthSnapshot{
		Temperature:        math.Round(u.temperature*10) / 10,
		HeaterOn:           u.heating && u.temperature < target,
		TreatmentActive:    u.treating,
		HeatingActive:      u.heating,
		TemperatureReached: reached,
		TargetTemperature:  u.target,
	}
	if u.treating {
		snap.RemainingSeconds = device.IntPtr(int(math.Ceil(u.remaining)))
	}
	return snap
}
