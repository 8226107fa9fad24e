package session

import (
	"errors"
	"fmt"
	"strings"
)

// Treatment parameter limits, inclusive.
const (
	MinDurationMinutes    = 5
	MaxDurationMinutes    = 60
	MinTemperatureCelsius = 30
	MaxTemperatureCelsius = 45

	DefaultDurationMinutes    = 30
	DefaultTemperatureCelsius = 37
)

// ErrInvalidParameters is returned when treatment parameters fail local validation.
var ErrInvalidParameters = errors.New("invalid treatment parameters")

// Parameters are the user-chosen treatment settings.
type Parameters struct {
	DurationMinutes    int `yaml:"duration_minutes" json:"duration_minutes"`
	TemperatureCelsius int `yaml:"temperature_celsius" json:"temperature_celsius"`
}

// DefaultParameters returns 30 minutes at 37°C.
func DefaultParameters() Parameters {
	return Parameters{
		DurationMinutes:    DefaultDurationMinutes,
		TemperatureCelsius: DefaultTemperatureCelsius,
	}
}

// Validate checks both ranges and reports every violation.
// The returned error wraps ErrInvalidParameters.
func (p Parameters) Validate() error {
	var problems []string

	if p.DurationMinutes < MinDurationMinutes || p.DurationMinutes > MaxDurationMinutes {
		problems = append(problems, fmt.Sprintf("duration must be %d-%d minutes, got %d",
			MinDurationMinutes, MaxDurationMinutes, p.DurationMinutes))
	}
	if p.TemperatureCelsius < MinTemperatureCelsius || p.TemperatureCelsius > MaxTemperatureCelsius {
		problems = append(problems, fmt.Sprintf("temperature must be %d-%d°C, got %d",
			MinTemperatureCelsius, MaxTemperatureCelsius, p.TemperatureCelsius))
	}

	if len(problems) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %s", ErrInvalidParameters, strings.Join(problems, "; "))
}

// DurationSeconds returns the treatment duration in seconds
func (p Parameters) DurationSeconds() int {
	return p.DurationMinutes * 60
}

// String renders the parameters for display
func (p Parameters) String() string {
	return fmt.Sprintf("%d min @ %d°C", p.DurationMinutes, p.TemperatureCelsius)
}
