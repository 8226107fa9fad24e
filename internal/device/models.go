package device

import (
	"encoding/json"
	"fmt"
)

// HealthSnapshot is one reading of GET /api/health.
// It matches the JSON structure returned by the device firmware.
type HealthSnapshot struct {
	// Temperature is the measured oil temperature in °C
	Temperature float64 `json:"temperature"`

	// HeaterOn reports the heater relay state
	HeaterOn bool `json:"heater_state"`

	// TreatmentActive is true while the treatment timer runs
	TreatmentActive bool `json:"treatment_active"`

	// HeatingActive is true while the device heats toward the target
	HeatingActive bool `json:"heating_active"`

	// TemperatureReached is true once the target temperature is reached
	TemperatureReached bool `json:"temperature_reached"`

	// TargetTemperature is the configured target in °C
	TargetTemperature int `json:"target_temperature"`

	// RemainingSeconds is the treatment time left, nil when no timer runs
	RemainingSeconds *int `json:"remaining_time"`
}

// Validate checks the invariants the device is expected to honour.
func (h *HealthSnapshot) Validate() error {
	if h.TargetTemperature <= 0 {
		return fmt.Errorf("target_temperature must be positive, got %d", h.TargetTemperature)
	}
	if h.RemainingSeconds != nil && *h.RemainingSeconds < 0 {
		return fmt.Errorf("remaining_time must be non-negative, got %d", *h.RemainingSeconds)
	}
	return nil
}

// Remaining returns the remaining treatment time, or fallback when the
// device does not report one.
func (h *HealthSnapshot) Remaining(fallback int) int {
	if h == nil || h.RemainingSeconds == nil {
		return fallback
	}
	return *h.RemainingSeconds
}

// Command is a request accepted by POST /api/update.
type Command interface {
	// Name identifies the command in logs
	Name() string

	// body returns the JSON request payload
	body() any
}

// SetParameters configures treatment duration (minutes) and temperature (°C).
type SetParameters struct {
	Duration    int
	Temperature int
}

// Start begins the treatment once the device is ready.
type Start struct{}

// Stop ends heating and any running treatment.
type Stop struct{}

type parameterRequest struct {
	Duration    int `json:"duration"`
	Temperature int `json:"temperature"`
}

type actionRequest struct {
	Action string `json:"action"`
}

// Name implements Command
func (c SetParameters) Name() string { return "set_parameters" }

func (c SetParameters) body() any {
	return parameterRequest{Duration: c.Duration, Temperature: c.Temperature}
}

// Name implements Command
func (Start) Name() string { return "start" }

func (Start) body() any { return actionRequest{Action: "start"} }

// Name implements Command
func (Stop) Name() string { return "stop" }

func (Stop) body() any { return actionRequest{Action: "stop"} }

// EncodeCommand returns the JSON body sent for a command.
func EncodeCommand(cmd Command) ([]byte, error) {
	return json.Marshal(cmd.body())
}

// Ack is the device's acknowledgement of a command.
// It only means the request was accepted; the effect shows up in a later
// health snapshot.
type Ack struct {
	Status string `json:"status"`
}

// IntPtr returns a pointer to v. Handy for building snapshots.
func IntPtr(v int) *int {
	return &v
}
