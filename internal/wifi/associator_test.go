package wifi

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"testing"
	"time"
)

// fakeRequester records requests and lets tests fire callbacks.
type fakeRequester struct {
	mu           sync.Mutex
	permErr      error
	requestErr   error
	requests     int
	unregistered int
	last         Callback
	lastReq      Request
	// onRequest runs in its own goroutine for every request
	onRequest func(cb Callback)
}

func (f *fakeRequester) CheckPermission(ctx context.Context) error {
	return f.permErr
}

func (f *fakeRequester) Request(req Request, cb Callback) (func(), error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.requestErr != nil {
		return nil, f.requestErr
	}
	f.requests++
	f.last = cb
	f.lastReq = req
	if f.onRequest != nil {
		go f.onRequest(cb)
	}
	var once sync.Once
	return func() {
		once.Do(func() {
			f.mu.Lock()
			f.unregistered++
			f.mu.Unlock()
		})
	}, nil
}

func (f *fakeRequester) counts() (requests, unregistered int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.requests, f.unregistered
}

func (f *fakeRequester) callback() Callback {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.last
}

type fakeBinder struct {
	mu        sync.Mutex
	err       error
	bound     []Network
	transport http.RoundTripper
}

func (b *fakeBinder) Bind(n Network) (http.RoundTripper, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.bound = append(b.bound, n)
	if b.err != nil {
		return nil, b.err
	}
	return b.transport, nil
}

func (b *fakeBinder) calls() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.bound)
}

var deviceNetwork = Network{SSID: DefaultSSID, Interface: "wlan0", Profile: "shirodhara-device"}

func available(cb Callback) { cb.OnAvailable(deviceNetwork) }

func TestEnsureAssociatedBindsTransport(t *testing.T) {
	req := &fakeRequester{onRequest: available}
	binder := &fakeBinder{transport: &http.Transport{}}
	a := NewAssociator(req, WithStrategy(StrategyScoped), WithBinder(binder))

	h, err := a.EnsureAssociated(context.Background(), DefaultCredentials(), time.Second)
	if err != nil {
		t.Fatalf("EnsureAssociated() error = %v", err)
	}
	if h.Network != deviceNetwork {
		t.Errorf("Network = %+v, want %+v", h.Network, deviceNetwork)
	}
	if h.Transport() != binder.transport {
		t.Error("handle should carry the bound transport")
	}
	if got := req.lastReq.Credentials; got != DefaultCredentials() {
		t.Errorf("requested credentials = %+v", got)
	}
	if a.Current() != h {
		t.Error("Current() should return the live handle")
	}
}

func TestEnsureAssociatedReusesHandle(t *testing.T) {
	req := &fakeRequester{onRequest: available}
	a := NewAssociator(req, WithStrategy(StrategyScoped), WithBinder(&fakeBinder{}))

	first, err := a.EnsureAssociated(context.Background(), DefaultCredentials(), time.Second)
	if err != nil {
		t.Fatalf("first EnsureAssociated() error = %v", err)
	}
	second, err := a.EnsureAssociated(context.Background(), DefaultCredentials(), time.Second)
	if err != nil {
		t.Fatalf("second EnsureAssociated() error = %v", err)
	}
	if first != second {
		t.Error("a live association should be returned unchanged")
	}
	if requests, _ := req.counts(); requests != 1 {
		t.Errorf("requests = %d, want 1", requests)
	}
}

func TestEnsureAssociatedTimeout(t *testing.T) {
	req := &fakeRequester{}
	binder := &fakeBinder{}
	a := NewAssociator(req, WithStrategy(StrategyScoped), WithBinder(binder))

	_, err := a.EnsureAssociated(context.Background(), DefaultCredentials(), 20*time.Millisecond)
	if !errors.Is(err, ErrUnavailable) {
		t.Fatalf("error = %v, want ErrUnavailable", err)
	}
	if _, unregistered := req.counts(); unregistered != 1 {
		t.Errorf("unregistered = %d, want 1", unregistered)
	}

	// The platform answers late: nothing may change.
	req.callback().OnAvailable(deviceNetwork)
	req.callback().OnUnavailable(nil)

	if a.Current() != nil {
		t.Error("a late callback must not create an association")
	}
	if binder.calls() != 0 {
		t.Error("a late callback must not bind")
	}
}

func TestEnsureAssociatedUnavailable(t *testing.T) {
	req := &fakeRequester{onRequest: func(cb Callback) { cb.OnUnavailable(errors.New("no secrets")) }}
	a := NewAssociator(req, WithStrategy(StrategyScoped), WithBinder(&fakeBinder{}))

	_, err := a.EnsureAssociated(context.Background(), DefaultCredentials(), time.Second)
	if !errors.Is(err, ErrUnavailable) || errors.Is(err, ErrPermissionDenied) {
		t.Fatalf("error = %v, want ErrUnavailable only", err)
	}
	if _, unregistered := req.counts(); unregistered != 1 {
		t.Errorf("unregistered = %d, want 1", unregistered)
	}
}

func TestEnsureAssociatedBackendPermissionFailure(t *testing.T) {
	req := &fakeRequester{onRequest: func(cb Callback) {
		cb.OnUnavailable(errors.Join(ErrPermissionDenied, errors.New("Not authorized to control networking.")))
	}}
	a := NewAssociator(req, WithStrategy(StrategyLegacy))

	_, err := a.EnsureAssociated(context.Background(), DefaultCredentials(), time.Second)
	if !errors.Is(err, ErrPermissionDenied) {
		t.Fatalf("error = %v, want ErrPermissionDenied", err)
	}
}

func TestEnsureAssociatedCancelled(t *testing.T) {
	req := &fakeRequester{}
	a := NewAssociator(req, WithStrategy(StrategyScoped), WithBinder(&fakeBinder{}))

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	_, err := a.EnsureAssociated(ctx, DefaultCredentials(), time.Minute)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("error = %v, want context.Canceled", err)
	}
	if _, unregistered := req.counts(); unregistered != 1 {
		t.Errorf("request should be unregistered before returning, got %d", unregistered)
	}

	req.callback().OnAvailable(deviceNetwork)
	if a.Current() != nil {
		t.Error("callback after cancellation must be ignored")
	}
}

func TestEnsureAssociatedPermissionDenied(t *testing.T) {
	req := &fakeRequester{permErr: ErrPermissionDenied}
	a := NewAssociator(req)

	_, err := a.EnsureAssociated(context.Background(), DefaultCredentials(), time.Second)
	if !errors.Is(err, ErrPermissionDenied) {
		t.Fatalf("error = %v, want ErrPermissionDenied", err)
	}
	if requests, _ := req.counts(); requests != 0 {
		t.Errorf("no request should be issued, got %d", requests)
	}
}

func TestEnsureAssociatedBindFailure(t *testing.T) {
	req := &fakeRequester{onRequest: available}
	a := NewAssociator(req, WithStrategy(StrategyScoped), WithBinder(&fakeBinder{err: errors.New("no such device")}))

	_, err := a.EnsureAssociated(context.Background(), DefaultCredentials(), time.Second)
	if !errors.Is(err, ErrUnavailable) {
		t.Fatalf("error = %v, want ErrUnavailable", err)
	}
	if _, unregistered := req.counts(); unregistered != 1 {
		t.Errorf("unregistered = %d, want 1", unregistered)
	}
}

func TestLegacyStrategySkipsBinding(t *testing.T) {
	req := &fakeRequester{onRequest: available}
	binder := &fakeBinder{}
	a := NewAssociator(req, WithStrategy(StrategyLegacy), WithBinder(binder))

	h, err := a.EnsureAssociated(context.Background(), DefaultCredentials(), time.Second)
	if err != nil {
		t.Fatalf("EnsureAssociated() error = %v", err)
	}
	if h.Transport() != nil || binder.calls() != 0 {
		t.Error("legacy strategy should use default routing")
	}
	if req.lastReq.Strategy != StrategyLegacy {
		t.Errorf("request strategy = %v, want legacy", req.lastReq.Strategy)
	}
}

func TestReleaseIsIdempotent(t *testing.T) {
	req := &fakeRequester{onRequest: available}
	a := NewAssociator(req, WithStrategy(StrategyScoped), WithBinder(&fakeBinder{}))

	h, err := a.EnsureAssociated(context.Background(), DefaultCredentials(), time.Second)
	if err != nil {
		t.Fatalf("EnsureAssociated() error = %v", err)
	}

	a.Release(h)
	a.Release(h)
	h.Release()
	a.Release(nil)

	if _, unregistered := req.counts(); unregistered != 1 {
		t.Errorf("unregistered = %d, want 1", unregistered)
	}
	if a.Current() != nil {
		t.Error("Current() should be nil after release")
	}

	// Late callbacks after release are dropped.
	req.callback().OnLost()
	if h.Lost() {
		t.Error("OnLost after release must be ignored")
	}

	if _, err := a.EnsureAssociated(context.Background(), DefaultCredentials(), time.Second); err != nil {
		t.Fatalf("re-association error = %v", err)
	}
	if requests, _ := req.counts(); requests != 2 {
		t.Errorf("requests = %d, want 2", requests)
	}
}

func TestLostNetworkIsRequestedAgain(t *testing.T) {
	req := &fakeRequester{onRequest: available}
	a := NewAssociator(req, WithStrategy(StrategyScoped), WithBinder(&fakeBinder{}))

	h, err := a.EnsureAssociated(context.Background(), DefaultCredentials(), time.Second)
	if err != nil {
		t.Fatalf("EnsureAssociated() error = %v", err)
	}

	req.callback().OnLost()
	if !h.Lost() || a.Current() != nil {
		t.Fatal("lost network should not be current")
	}

	again, err := a.EnsureAssociated(context.Background(), DefaultCredentials(), time.Second)
	if err != nil {
		t.Fatalf("EnsureAssociated() error = %v", err)
	}
	if again == h {
		t.Error("a new handle should replace the lost one")
	}
	if requests, unregistered := req.counts(); requests != 2 || unregistered != 1 {
		t.Errorf("requests = %d unregistered = %d, want 2 and 1", requests, unregistered)
	}
}

func TestEnsureAssociatedEmptySSID(t *testing.T) {
	req := &fakeRequester{}
	a := NewAssociator(req)

	if _, err := a.EnsureAssociated(context.Background(), Credentials{}, time.Second); !errors.Is(err, ErrUnavailable) {
		t.Errorf("error = %v, want ErrUnavailable", err)
	}
}

func TestErrorHint(t *testing.T) {
	if Hint(permissionDenied("x", nil)) == Hint(unavailable("x", nil)) {
		t.Error("hints should differ by kind")
	}
	err := unavailable(DefaultSSID, errors.New("timeout"))
	if got := err.Error(); got != `associate "Shirodhara": device network unavailable: timeout` {
		t.Errorf("Error() = %q", got)
	}
}
