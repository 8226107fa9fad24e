package wifi

import (
	"errors"
	"fmt"
)

var (
	// ErrUnavailable means the device network could not be joined in time,
	// or the platform reported it unavailable.
	ErrUnavailable = errors.New("device network unavailable")

	// ErrPermissionDenied means the process may not change network settings.
	ErrPermissionDenied = errors.New("not permitted to change network settings")
)

// Error describes a failed association attempt.
// Kind is ErrUnavailable or ErrPermissionDenied and is matched by errors.Is.
type Error struct {
	Op   string
	SSID string
	Kind error
	Err  error
}

// Error implements the error interface
func (e *Error) Error() string {
	switch {
	case e.Err == nil:
		return fmt.Sprintf("%s %q: %v", e.Op, e.SSID, e.Kind)
	case errors.Is(e.Err, e.Kind):
		return fmt.Sprintf("%s %q: %v", e.Op, e.SSID, e.Err)
	default:
		return fmt.Sprintf("%s %q: %v: %v", e.Op, e.SSID, e.Kind, e.Err)
	}
}

// Unwrap returns the underlying cause
func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches the error kind
func (e *Error) Is(target error) bool {
	return target == e.Kind
}

func unavailable(ssid string, err error) *Error {
	return &Error{Op: "associate", SSID: ssid, Kind: ErrUnavailable, Err: err}
}

func permissionDenied(ssid string, err error) *Error {
	return &Error{Op: "associate", SSID: ssid, Kind: ErrPermissionDenied, Err: err}
}

// classify wraps a backend failure, keeping permission problems distinct.
func classify(ssid string, err error) *Error {
	if errors.Is(err, ErrPermissionDenied) {
		return permissionDenied(ssid, err)
	}
	return unavailable(ssid, err)
}

// Hint returns a troubleshooting line for association failures.
func Hint(err error) string {
	switch {
	case errors.Is(err, ErrPermissionDenied):
		return "Allow this user to modify system connections in NetworkManager (polkit), or run with sudo."
	case errors.Is(err, ErrUnavailable):
		return "Check that the device is powered on and its Wi-Fi access point is within range."
	default:
		return "Check that NetworkManager is running: nmcli general status"
	}
}
