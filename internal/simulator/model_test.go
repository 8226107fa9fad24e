package simulator

import (
	"errors"
	"testing"
	"time"
)

func TestUnitIdleAtAmbient(t *testing.T) {
	u := NewUnit(0)
	snap := u.Snapshot()

	if snap.Temperature != AmbientC {
		t.Errorf("Temperature = %v, want %v", snap.Temperature, AmbientC)
	}
	if snap.HeatingActive || snap.TreatmentActive || snap.TemperatureReached || snap.HeaterOn {
		t.Errorf("idle unit reports activity: %+v", snap)
	}
	if snap.RemainingSeconds != nil {
		t.Errorf("RemainingSeconds = %v, want nil", *snap.RemainingSeconds)
	}
	if err := snap.Validate(); err != nil {
		t.Errorf("Validate() error = %v", err)
	}
}

func TestUnitSetParametersRange(t *testing.T) {
	tests := []struct {
		name        string
		duration    int
		temperature int
		wantErr     bool
	}{
		{"lower bounds", 5, 30, false},
		{"upper bounds", 60, 45, false},
		{"short duration", 4, 37, true},
		{"long duration", 61, 37, true},
		{"cold", 30, 29, true},
		{"hot", 30, 46, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := NewUnit(0).SetParameters(tt.duration, tt.temperature)
			if (err != nil) != tt.wantErr {
				t.Fatalf("SetParameters() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrOutOfRange) {
				t.Errorf("error = %v, want ErrOutOfRange", err)
			}
		})
	}
}

func TestUnitHeatsToTarget(t *testing.T) {
	u := NewUnit(1) // 1 °C/s
	if err := u.SetParameters(10, 37); err != nil {
		t.Fatalf("SetParameters() error = %v", err)
	}

	snap := u.Snapshot()
	if !snap.HeatingActive || !snap.HeaterOn || snap.TemperatureReached {
		t.Fatalf("after set: %+v, want heating with heater on", snap)
	}
	if snap.TargetTemperature != 37 {
		t.Errorf("TargetTemperature = %d, want 37", snap.TargetTemperature)
	}

	u.Advance(5 * time.Second)
	if got := u.Snapshot().Temperature; got != 30 {
		t.Errorf("Temperature after 5s = %v, want 30", got)
	}

	u.Advance(time.Minute)
	snap = u.Snapshot()
	if snap.Temperature != 37 || !snap.TemperatureReached || snap.HeaterOn {
		t.Errorf("after ramp: %+v, want reached at 37 with heater off", snap)
	}
	if !snap.HeatingActive {
		t.Error("HeatingActive cleared before start")
	}
}

func TestUnitTreatmentCountdown(t *testing.T) {
	u := NewUnit(10)
	if err := u.SetParameters(5, 40); err != nil {
		t.Fatalf("SetParameters() error = %v", err)
	}
	u.Advance(10 * time.Second)

	if err := u.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	snap := u.Snapshot()
	if !snap.TreatmentActive || snap.HeatingActive {
		t.Fatalf("after start: %+v", snap)
	}
	if snap.RemainingSeconds == nil || *snap.RemainingSeconds != 300 {
		t.Fatalf("RemainingSeconds = %v, want 300", snap.RemainingSeconds)
	}

	u.Advance(90*time.Second + 500*time.Millisecond)
	if got := *u.Snapshot().RemainingSeconds; got != 210 {
		t.Errorf("RemainingSeconds = %d, want 210 (rounded up)", got)
	}

	u.Advance(5 * time.Minute)
	snap = u.Snapshot()
	if snap.TreatmentActive || snap.HeatingActive || snap.TemperatureReached {
		t.Errorf("after duration: %+v, want all flags false", snap)
	}
	if snap.RemainingSeconds != nil {
		t.Errorf("RemainingSeconds = %d, want nil", *snap.RemainingSeconds)
	}
}

func TestUnitStartRequiresParameters(t *testing.T) {
	if err := NewUnit(0).Start(); !errors.Is(err, ErrNotConfigured) {
		t.Errorf("Start() error = %v, want ErrNotConfigured", err)
	}
}

func TestUnitStopCoolsDown(t *testing.T) {
	u := NewUnit(10)
	_ = u.SetParameters(30, 40)
	u.Advance(5 * time.Second)

	u.Stop()
	snap := u.Snapshot()
	if snap.HeatingActive || snap.TreatmentActive {
		t.Fatalf("after stop: %+v", snap)
	}

	u.Advance(time.Hour)
	if got := u.Snapshot().Temperature; got != AmbientC {
		t.Errorf("Temperature after an hour = %v, want ambient", got)
	}
}
