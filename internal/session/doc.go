// Package session tracks a Shirodhara treatment session.
//
// The Reconciler polls the device health endpoint and folds each snapshot
// into the local State with Next. The Controller sends user commands and is
// limited to two writes of its own: the optimistic Heating state after a
// parameter change and the Error state after a failed command. Only
// ResetToIdle leaves Error.
//
//	Idle -> Heating -> Ready -> InProgress -> Completed -> Idle (reset)
//
// A failed poll marks the device disconnected without touching the state, so
// transient network loss never ends a running session.
package session
