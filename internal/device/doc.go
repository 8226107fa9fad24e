// Package device provides an HTTP client for the Shirodhara device API.
//
// The device exposes two endpoints on its own Wi-Fi access point:
//
//	GET  /api/health   current temperature, heater and treatment flags
//	POST /api/update   {duration, temperature} or {action: "start"|"stop"}
//
// # Usage Example
//
//	client := device.NewClient("http://192.168.4.1")
//
//	health, err := client.GetHealth(ctx)
//	if err != nil {
//	    fmt.Println(device.ShortMessage(err))
//	    return
//	}
//	fmt.Println(health.Summary())
//
//	if _, err := client.SendCommand(ctx, device.SetParameters{Duration: 30, Temperature: 37}); err != nil {
//	    ...
//	}
//
// # Errors
//
// Every failure is a *device.Error. Its Kind is Unreachable for I/O failures
// (timeout, reset, unreachable host), ApiRejected for non-2xx responses and
// Malformed for bodies that cannot be decoded. Use errors.Is with
// ErrUnreachable / ErrAPIRejected / ErrMalformed to branch.
//
// The client never retries. An acknowledged command only means the device
// accepted it; the physical effect appears in a later health snapshot.
package device
