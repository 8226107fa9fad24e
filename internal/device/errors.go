package device

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"os"
	"strings"
	"syscall"
)

// Kind represents the category of a device API failure
type Kind int

const (
	// KindUnreachable is any I/O failure reaching the device (timeout, reset, unreachable host)
	KindUnreachable Kind = iota
	// KindAPIRejected is a non-2xx response
	KindAPIRejected
	// KindMalformed is a 2xx response whose body could not be decoded
	KindMalformed
)

// String returns a human-readable name for the error kind
func (k Kind) String() string {
	switch k {
	case KindUnreachable:
		return "Unreachable"
	case KindAPIRejected:
		return "ApiRejected"
	case KindMalformed:
		return "Malformed"
	default:
		return fmt.Sprintf("Kind(%d)", k)
	}
}

// NetworkSubtype gives a finer classification of Unreachable errors
type NetworkSubtype int

const (
	NetworkErrorGeneral NetworkSubtype = iota
	NetworkErrorTimeout
	NetworkErrorConnectionRefused
	NetworkErrorDNS
	NetworkErrorHostUnreachable
	NetworkErrorNetworkUnreachable
)

// Error is a transport error returned by Client
type Error struct {
	Kind       Kind           // Category of error
	Op         string         // "health" or the command name
	Message    string         // Human-readable error message
	StatusCode int            // HTTP status code (ApiRejected only)
	Subtype    NetworkSubtype // Finer classification (Unreachable only)
	Err        error          // Underlying error (if any)
}

// Error implements the error interface
func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s %s: %s: %v", e.Op, e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s %s: %s", e.Op, e.Kind, e.Message)
}

// Unwrap returns the underlying error for error chain inspection
func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches errors of the same kind, so errors.Is(err, ErrUnreachable) works.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Op == "" && t.Message == "" && t.Kind == e.Kind
}

// Sentinels for errors.Is checks.
var (
	ErrUnreachable = &Error{Kind: KindUnreachable}
	ErrAPIRejected = &Error{Kind: KindAPIRejected}
	ErrMalformed   = &Error{Kind: KindMalformed}
)

func newUnreachable(op, message string, err error) *Error {
	return &Error{
		Kind:    KindUnreachable,
		Op:      op,
		Message: message,
		Subtype: classifyNetwork(err),
		Err:     err,
	}
}

func newRejected(op string, status int, body string) *Error {
	msg := fmt.Sprintf("device returned status %d", status)
	if body = strings.TrimSpace(body); body != "" {
		msg += ": " + body
	}
	return &Error{
		Kind:       KindAPIRejected,
		Op:         op,
		Message:    msg,
		StatusCode: status,
	}
}

func newMalformed(op, message string, err error) *Error {
	return &Error{
		Kind:    KindMalformed,
		Op:      op,
		Message: message,
		Err:     err,
	}
}

// classifyNetwork analyzes an I/O error and returns the most specific subtype
func classifyNetwork(err error) NetworkSubtype {
	if err == nil {
		return NetworkErrorGeneral
	}

	if os.IsTimeout(err) || errors.Is(err, os.ErrDeadlineExceeded) {
		return NetworkErrorTimeout
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return NetworkErrorDNS
	}

	switch {
	case errors.Is(err, syscall.ECONNREFUSED):
		return NetworkErrorConnectionRefused
	case errors.Is(err, syscall.EHOSTUNREACH):
		return NetworkErrorHostUnreachable
	case errors.Is(err, syscall.ENETUNREACH):
		return NetworkErrorNetworkUnreachable
	}

	var urlErr *url.Error
	if errors.As(err, &urlErr) && urlErr.Timeout() {
		return NetworkErrorTimeout
	}

	return NetworkErrorGeneral
}

// IsUnreachable reports whether err is an Unreachable transport error
func IsUnreachable(err error) bool {
	return errors.Is(err, ErrUnreachable)
}

// IsRejected reports whether err is an ApiRejected transport error
func IsRejected(err error) bool {
	return errors.Is(err, ErrAPIRejected)
}

// IsMalformed reports whether err is an undecodable response
func IsMalformed(err error) bool {
	return errors.Is(err, ErrMalformed)
}

// ShortMessage returns a concise, user-facing description of err
func ShortMessage(err error) string {
	var devErr *Error
	if !errors.As(err, &devErr) {
		return err.Error()
	}

	switch devErr.Kind {
	case KindAPIRejected:
		return fmt.Sprintf("Device rejected the request (HTTP %d)", devErr.StatusCode)
	case KindMalformed:
		return "Unexpected response from device"
	}

	switch devErr.Subtype {
	case NetworkErrorTimeout:
		return "Device not responding (timeout)"
	case NetworkErrorConnectionRefused:
		return "Device refused connection"
	case NetworkErrorDNS:
		return "Cannot resolve device hostname"
	case NetworkErrorHostUnreachable:
		return "Device unreachable - check Wi-Fi connection"
	case NetworkErrorNetworkUnreachable:
		return "Network unreachable - connect to the Shirodhara network"
	default:
		return "Network error - check connection"
	}
}

// TroubleshootingHint returns user-friendly troubleshooting advice for err
func TroubleshootingHint(err error) string {
	var devErr *Error
	if !errors.As(err, &devErr) {
		return "An unexpected error occurred. Please try again."
	}

	switch devErr.Kind {
	case KindAPIRejected:
		if devErr.StatusCode >= 500 {
			return strings.Join([]string{
				fmt.Sprintf("The device returned an error (HTTP %d).", devErr.StatusCode),
				"Troubleshooting:",
				"  • Power-cycle the device",
				"  • Wait for the device to finish booting and retry",
			}, "\n")
		}
		return fmt.Sprintf("The device rejected the request (HTTP %d). Check the treatment parameters.", devErr.StatusCode)
	case KindMalformed:
		return "The device sent a response that could not be read. The firmware may be incompatible."
	}

	return strings.Join([]string{
		"Could not reach the device.",
		"Troubleshooting:",
		"  • Check that the device is powered on",
		"  • Run 'shirodhara-ctl connect' to join the Shirodhara network",
		"  • Move closer to the device to improve signal strength",
	}, "\n")
}
