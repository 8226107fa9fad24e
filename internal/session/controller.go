package session

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/zenevo/shirodhara/internal/device"
)

// Commander is the write half of the device API.
type Commander interface {
	SendCommand(ctx context.Context, cmd device.Command) (*device.Ack, error)
}

// Controller turns user intents into device commands. It writes state only
// through the reconciler's optimistic and failure paths.
type Controller struct {
	api        Commander
	reconciler *Reconciler
	logger     *zap.Logger
}

// NewController creates a controller sending commands through api.
func NewController(api Commander, reconciler *Reconciler, logger *zap.Logger) *Controller {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Controller{
		api:        api,
		reconciler: reconciler,
		logger:     logger,
	}
}

// SetParameters validates p, optimistically enters Heating and sends the
// parameters. Invalid parameters never reach the device.
func (c *Controller) SetParameters(ctx context.Context, p Parameters) error {
	if err := p.Validate(); err != nil {
		return err
	}

	if !c.reconciler.ForceHeating() {
		c.logger.Debug("Optimistic heating skipped, session is in error")
	}

	cmd := device.SetParameters{Duration: p.DurationMinutes, Temperature: p.TemperatureCelsius}
	return c.send(ctx, cmd)
}

// Start asks the device to begin the treatment.
func (c *Controller) Start(ctx context.Context) error {
	return c.send(ctx, device.Start{})
}

// Stop asks the device to end the treatment.
func (c *Controller) Stop(ctx context.Context) error {
	return c.send(ctx, device.Stop{})
}

// Cancel stops the device and returns the session to Idle whatever the
// stop result was. The stop error is returned.
func (c *Controller) Cancel(ctx context.Context) error {
	err := c.Stop(ctx)
	c.reconciler.ResetToIdle()
	return err
}

// Reset returns the session to Idle
func (c *Controller) Reset() {
	c.reconciler.ResetToIdle()
}

func (c *Controller) send(ctx context.Context, cmd device.Command) error {
	c.logger.Debug("Sending command", zap.String("command", cmd.Name()))

	if _, err := c.api.SendCommand(ctx, cmd); err != nil {
		// A command abandoned by the caller is not a device failure. An
		// expired deadline is a timeout and fails the session.
		if !errors.Is(ctx.Err(), context.Canceled) {
			c.reconciler.Fail(device.ShortMessage(err))
		}
		c.logger.Warn("Command failed", zap.String("command", cmd.Name()), zap.Error(err))
		return fmt.Errorf("%s: %w", cmd.Name(), err)
	}
	return nil
}
