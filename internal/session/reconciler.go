package session

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/zenevo/shirodhara/internal/device"
	"github.com/zenevo/shirodhara/internal/logging"
)

// DefaultPollInterval is the period between health polls.
const DefaultPollInterval = time.Second

// HealthSource is the read half of the device API.
type HealthSource interface {
	GetHealth(ctx context.Context) (*device.HealthSnapshot, error)
}

// Status is one published view of the session. Health is the last
// successful snapshot; it is shared between copies and must not be modified.
type Status struct {
	State     State
	Connected bool
	Health    *device.HealthSnapshot
	LastError string
	RunID     string
	UpdatedAt time.Time
}

// Reconciler owns the session state and the device connectivity flag.
// Polls, optimistic command writes and resets all go through one mutex and
// every change is published to subscribers as a whole Status.
type Reconciler struct {
	source   HealthSource
	interval time.Duration
	logger   *zap.Logger
	now      func() time.Time

	mu     sync.Mutex
	status Status
	subs   map[int]chan Status
	nextID int
}

// ReconcilerOption configures a Reconciler
type ReconcilerOption func(*Reconciler)

// WithInterval sets the poll period. Non-positive values are ignored.
func WithInterval(d time.Duration) ReconcilerOption {
	return func(r *Reconciler) {
		if d > 0 {
			r.interval = d
		}
	}
}

// WithLogger sets the logger used for transitions and connectivity changes.
func WithLogger(logger *zap.Logger) ReconcilerOption {
	return func(r *Reconciler) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// NewReconciler creates a reconciler in the Idle state, disconnected.
func NewReconciler(source HealthSource, opts ...ReconcilerOption) *Reconciler {
	r := &Reconciler{
		source:   source,
		interval: DefaultPollInterval,
		logger:   zap.NewNop(),
		now:      time.Now,
		status:   Status{State: Idle},
		subs:     make(map[int]chan Status),
	}
	for _, opt := range opts {
		opt(r)
	}
	r.status.UpdatedAt = r.now()
	return r
}

// Interval returns the poll period
func (r *Reconciler) Interval() time.Duration {
	return r.interval
}

// Run polls until ctx is done. The first poll happens immediately and
// iterations never overlap.
func (r *Reconciler) Run(ctx context.Context) error {
	r.logger.Debug("Poll loop started", zap.Duration("interval", r.interval))
	defer r.logger.Debug("Poll loop stopped")

	timer := time.NewTimer(0)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
		}

		// Errors are reflected in the published status.
		_, _ = r.PollOnce(ctx)

		timer.Reset(r.interval)
	}
}

// PollOnce performs a single health poll and applies its result.
// A failed poll marks the device disconnected and leaves the state alone.
// A poll abandoned because ctx ended has no effect.
func (r *Reconciler) PollOnce(ctx context.Context) (Status, error) {
	if err := ctx.Err(); err != nil {
		return r.Status(), err
	}

	snap, err := r.source.GetHealth(ctx)
	if err == nil {
		err = snap.Validate()
		if err == nil {
			return r.applySnapshot(snap), nil
		}
	}

	if ctx.Err() != nil {
		return r.Status(), ctx.Err()
	}
	return r.applyFailure(err), err
}

func (r *Reconciler) applySnapshot(snap *device.HealthSnapshot) Status {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.status.Connected {
		logging.LogConnectivity(r.logger, true, nil)
	}
	r.status.Connected = true
	r.status.Health = snap
	r.status.LastError = ""

	// Error only exits through ResetToIdle.
	if !r.status.State.IsError() {
		r.setStateLocked(Next(r.status.State, *snap), "poll")
	}

	return r.publishLocked()
}

func (r *Reconciler) applyFailure(err error) Status {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.status.Connected {
		logging.LogConnectivity(r.logger, false, err)
	}
	r.status.Connected = false
	r.status.LastError = device.ShortMessage(err)

	return r.publishLocked()
}

// ForceHeating sets the optimistic Heating state after a parameter change.
// It reports false and does nothing while the session is in Error.
func (r *Reconciler) ForceHeating() bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.status.State.IsError() {
		return false
	}
	r.setStateLocked(Heating, "set_parameters")
	r.publishLocked()
	return true
}

// Fail moves the session to Error with message.
func (r *Reconciler) Fail(message string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.setStateLocked(Failed(message), "command_failed")
	r.publishLocked()
}

// ResetToIdle returns the session to Idle from any state
func (r *Reconciler) ResetToIdle() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.setStateLocked(Idle, "reset")
	r.status.RunID = ""
	r.publishLocked()
}

// Status returns the latest published status
func (r *Reconciler) Status() Status {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.status
}

// Subscribe returns a channel that always holds the latest status.
// The current status is delivered immediately. Slow readers skip
// intermediate values. Call cancel to unsubscribe; the channel is then closed.
func (r *Reconciler) Subscribe() (<-chan Status, func()) {
	r.mu.Lock()
	defer r.mu.Unlock()

	id := r.nextID
	r.nextID++

	ch := make(chan Status, 1)
	ch <- r.status
	r.subs[id] = ch

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			r.mu.Lock()
			defer r.mu.Unlock()
			delete(r.subs, id)
			close(ch)
		})
	}
	return ch, cancel
}

// setStateLocked changes state, starts a new run when a treatment attempt
// begins from rest, and logs the transition. r.mu must be held.
func (r *Reconciler) setStateLocked(next State, cause string) {
	prev := r.status.State
	if prev == next {
		return
	}

	if !prev.Active() && !prev.IsError() && next.Active() {
		r.status.RunID = uuid.NewString()
	}

	r.status.State = next
	logging.LogTransition(r.logger, prev.String(), next.String(), cause, r.status.RunID)
}

// publishLocked stamps the status and hands it to every subscriber,
// replacing any value the subscriber has not read yet. r.mu must be held.
func (r *Reconciler) publishLocked() Status {
	r.status.UpdatedAt = r.now()
	st := r.status

	for _, ch := range r.subs {
		select {
		case ch <- st:
		default:
			select {
			case <-ch:
			default:
			}
			ch <- st
		}
	}
	return st
}
