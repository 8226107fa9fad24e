// Package simulator is a software stand-in for the Shirodhara device.
//
// It serves the same local API as the firmware (GET /api/health and
// POST /api/update) backed by a simple thermal model: the oil ramps toward
// the target at a fixed rate, is held at target during treatment, and
// drifts back to ambient when idle. POST /sim/offline toggles a fault mode
// where the device API answers 503.
package simulator
