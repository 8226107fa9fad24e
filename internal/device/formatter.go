package device

import (
	"fmt"
	"strings"
)

// FormatRemaining renders seconds as mm:ss. Negative values render as 00:00.
func FormatRemaining(seconds int) string {
	if seconds < 0 {
		seconds = 0
	}
	return fmt.Sprintf("%02d:%02d", seconds/60, seconds%60)
}

// Summary returns a one-line summary of the snapshot
func (h *HealthSnapshot) Summary() string {
	remaining := "-"
	if h.RemainingSeconds != nil {
		remaining = FormatRemaining(*h.RemainingSeconds)
	}
	return fmt.Sprintf("%.1f°C / %d°C heating=%v reached=%v treatment=%v remaining=%s",
		h.Temperature, h.TargetTemperature, h.HeatingActive, h.TemperatureReached, h.TreatmentActive, remaining)
}

// FormatDetailed returns a multi-line description of the snapshot
func (h *HealthSnapshot) FormatDetailed() string {
	var b strings.Builder

	b.WriteString("=== Device Health ===\n")
	b.WriteString(fmt.Sprintf("Temperature:        %.1f°C\n", h.Temperature))
	b.WriteString(fmt.Sprintf("Target:             %d°C\n", h.TargetTemperature))
	b.WriteString(fmt.Sprintf("Heater:             %s\n", onOff(h.HeaterOn)))
	b.WriteString(fmt.Sprintf("Heating active:     %s\n", yesNo(h.HeatingActive)))
	b.WriteString(fmt.Sprintf("Target reached:     %s\n", yesNo(h.TemperatureReached)))
	b.WriteString(fmt.Sprintf("Treatment active:   %s\n", yesNo(h.TreatmentActive)))
	if h.RemainingSeconds != nil {
		b.WriteString(fmt.Sprintf("Remaining:          %s\n", FormatRemaining(*h.RemainingSeconds)))
	}

	return b.String()
}

func onOff(v bool) string {
	if v {
		return "on"
	}
	return "off"
}

func yesNo(v bool) string {
	if v {
		return "yes"
	}
	return "no"
}
