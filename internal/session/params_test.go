package session

import (
	"errors"
	"strings"
	"testing"
)

func TestParametersValidate(t *testing.T) {
	tests := []struct {
		name        string
		duration    int
		temperature int
		wantErr     bool
	}{
		{"defaults", 30, 37, false},
		{"minimum", 5, 30, false},
		{"maximum", 60, 45, false},
		{"duration too short", 4, 37, true},
		{"duration too long", 61, 37, true},
		{"temperature too low", 30, 29, true},
		{"temperature too high", 30, 46, true},
		{"zero", 0, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Parameters{DurationMinutes: tt.duration, TemperatureCelsius: tt.temperature}.Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrInvalidParameters) {
				t.Errorf("Validate() error should wrap ErrInvalidParameters: %v", err)
			}
		})
	}
}

func TestParametersValidateReportsBoth(t *testing.T) {
	err := Parameters{DurationMinutes: 90, TemperatureCelsius: 50}.Validate()
	if err == nil {
		t.Fatal("expected an error")
	}
	if !strings.Contains(err.Error(), "duration") || !strings.Contains(err.Error(), "temperature") {
		t.Errorf("error should list both violations: %v", err)
	}
}

func TestDefaultParameters(t *testing.T) {
	p := DefaultParameters()
	if err := p.Validate(); err != nil {
		t.Fatalf("defaults should be valid: %v", err)
	}
	if p.DurationSeconds() != 1800 {
		t.Errorf("DurationSeconds() = %d, want 1800", p.DurationSeconds())
	}
	if p.String() != "30 min @ 37°C" {
		t.Errorf("String() = %q", p.String())
	}
}
