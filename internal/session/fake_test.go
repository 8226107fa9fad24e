package session

import (
	"context"
	"errors"
	"sync"

	"github.com/zenevo/shirodhara/internal/device"
)

var errNetwork = errors.New("connection reset by peer")

// fakeDevice serves a scripted sequence of health results and records commands.
type fakeDevice struct {
	mu       sync.Mutex
	health   []healthResult
	calls    int
	commands []string
	cmdErr   error
	// block, when set, makes GetHealth wait until ctx is done
	block bool
}

type healthResult struct {
	snap *device.HealthSnapshot
	err  error
}

func (f *fakeDevice) push(snap device.HealthSnapshot) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s := snap
	f.health = append(f.health, healthResult{snap: &s})
}

func (f *fakeDevice) pushErr(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.health = append(f.health, healthResult{err: err})
}

func (f *fakeDevice) GetHealth(ctx context.Context) (*device.HealthSnapshot, error) {
	f.mu.Lock()
	f.calls++
	block := f.block
	var res healthResult
	switch {
	case len(f.health) > 1:
		res = f.health[0]
		f.health = f.health[1:]
	case len(f.health) == 1:
		res = f.health[0]
	default:
		res = healthResult{err: errNetwork}
	}
	f.mu.Unlock()

	if block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	return res.snap, res.err
}

func (f *fakeDevice) SendCommand(ctx context.Context, cmd device.Command) (*device.Ack, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.commands = append(f.commands, cmd.Name())
	if f.cmdErr != nil {
		return nil, f.cmdErr
	}
	return &device.Ack{Status: "ok"}, nil
}

func (f *fakeDevice) pollCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func (f *fakeDevice) sent() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.commands...)
}
