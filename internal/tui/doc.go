// Package tui provides the interactive treatment dashboard.
//
// The dashboard only renders session status and forwards user intents; all
// state decisions stay in the session package. Status arrives through a
// subscription and commands run off the UI goroutine, so a slow device
// never blocks input.
//
// Keys:
//
//	tab        switch between duration and temperature
//	↑/↓ +/-    adjust the focused parameter
//	enter      send parameters and start heating
//	s          start the treatment
//	x          stop the treatment
//	esc        cancel (stop and return to idle)
//	r          reset after an error
//	q          quit
package tui
