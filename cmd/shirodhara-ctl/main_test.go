package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/zenevo/shirodhara/internal/device"
	"github.com/zenevo/shirodhara/internal/session"
	"github.com/zenevo/shirodhara/internal/wifi"
)

func TestNormalizeAddr(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"", ""},
		{"192.168.4.1", "http://192.168.4.1"},
		{"localhost:8080", "http://localhost:8080"},
		{"http://192.168.4.1/", "http://192.168.4.1"},
		{"https://device.local", "https://device.local"},
	}

	for _, tt := range tests {
		if got := normalizeAddr(tt.in); got != tt.want {
			t.Errorf("normalizeAddr(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestHintFor(t *testing.T) {
	invalid := session.Parameters{DurationMinutes: 1, TemperatureCelsius: 37}.Validate()
	assoc := fmt.Errorf("failed to join device network: %w", &wifi.Error{Op: "associate", SSID: "Shirodhara", Kind: wifi.ErrPermissionDenied})
	dev := fmt.Errorf("start: %w", &device.Error{Kind: device.KindUnreachable, Op: "start"})

	tests := []struct {
		name string
		err  error
		want string
	}{
		{"invalid parameters", invalid, "5-60 minutes"},
		{"association", assoc, "polkit"},
		{"device", dev, "Could not reach the device"},
		{"other", errors.New("boom"), ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := hintFor(tt.err)
			if tt.want == "" {
				if got != "" {
					t.Errorf("hintFor() = %q, want empty", got)
				}
				return
			}
			if !strings.Contains(got, tt.want) {
				t.Errorf("hintFor() = %q, want it to contain %q", got, tt.want)
			}
		})
	}
}

func TestFormatStatusLine(t *testing.T) {
	tests := []struct {
		name string
		st   session.Status
		want string
	}{
		{
			name: "no reading",
			st:   session.Status{State: session.Idle, LastError: "Device refused connection"},
			want: "Idle | disconnected (Device refused connection)",
		},
		{
			name: "heating",
			st: session.Status{
				State:     session.Heating,
				Connected: true,
				Health:    &device.HealthSnapshot{Temperature: 33.3, TargetTemperature: 37, HeatingActive: true},
			},
			want: "Heating in progress... | 33.3°C/37°C | connected",
		},
		{
			name: "treatment",
			st: session.Status{
				State:     session.InProgress,
				Connected: true,
				Health:    &device.HealthSnapshot{Temperature: 37, TargetTemperature: 37, TreatmentActive: true, RemainingSeconds: device.IntPtr(90)},
			},
			want: "Treatment in progress | 37.0°C/37°C | 01:30 left | connected",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := formatStatusLine(tt.st); got != tt.want {
				t.Errorf("formatStatusLine() = %q, want %q", got, tt.want)
			}
		})
	}
}

type staticSource struct {
	updates chan session.Status
}

func (s staticSource) Status() session.Status { return session.Status{} }

func (s staticSource) Subscribe() (<-chan session.Status, func()) {
	return s.updates, func() {}
}

func TestWatchHeadlessSkipsDuplicates(t *testing.T) {
	src := staticSource{updates: make(chan session.Status, 4)}
	at := time.Date(2026, 1, 2, 10, 0, 0, 0, time.UTC)

	src.updates <- session.Status{State: session.Idle, Connected: true, UpdatedAt: at}
	src.updates <- session.Status{State: session.Idle, Connected: true, UpdatedAt: at.Add(time.Second)}
	src.updates <- session.Status{State: session.Heating, Connected: true, UpdatedAt: at.Add(2 * time.Second)}
	close(src.updates)

	var out bytes.Buffer
	if err := watchHeadless(context.Background(), &out, src, nil); err != nil {
		t.Fatalf("watchHeadless() error = %v", err)
	}

	want := "10:00:00 Idle | connected\n10:00:02 Heating in progress... | connected\n"
	if out.String() != want {
		t.Errorf("output = %q, want %q", out.String(), want)
	}
}
