package session

import "github.com/zenevo/shirodhara/internal/device"

// Next maps the previous local state and the latest device snapshot to the
// next local state. It is pure.
//
// Device-reported treatment activity wins over everything. Heating maps to
// Ready or Heating depending on whether the target is reached. A device that
// is neither heating nor treating completes an InProgress session, leaves
// Completed and Idle alone, and returns any other state to Idle.
func Next(prev State, snap device.HealthSnapshot) State {
	switch {
	case snap.TreatmentActive:
		return InProgress
	case snap.HeatingActive:
		if snap.TemperatureReached {
			return Ready
		}
		return Heating
	}

	switch prev.Kind {
	case KindInProgress:
		return Completed
	case KindCompleted, KindIdle:
		return prev
	default:
		return Idle
	}
}
