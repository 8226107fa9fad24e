package wifi

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
)

// NmcliConfig holds the configuration for the NetworkManager backend.
type NmcliConfig struct {
	// Path is the nmcli binary.
	// Default: "nmcli" (searches PATH)
	Path string

	// Interface restricts the connection to one Wi-Fi device.
	// Default: "" (NetworkManager picks)
	Interface string

	// Profile is the connection profile created for the scoped strategy.
	// Default: "shirodhara-device"
	Profile string

	// Wait is how long nmcli waits for activation.
	// Default: 30 seconds
	Wait time.Duration

	// CleanupTimeout bounds the commands run when the request is released.
	// Default: 10 seconds
	CleanupTimeout time.Duration

	// MonitorInterval is how often an active profile is checked after the
	// network became available.
	// Default: 2 seconds
	MonitorInterval time.Duration
}

// DefaultNmcliConfig returns an NmcliConfig with sensible defaults.
func DefaultNmcliConfig() NmcliConfig {
	return NmcliConfig{
		Path:            "nmcli",
		Profile:         "shirodhara-device",
		Wait:            DefaultTimeout,
		CleanupTimeout:  10 * time.Second,
		MonitorInterval: 2 * time.Second,
	}
}

// requiredPermissions are the NetworkManager polkit actions needed to add
// and activate a connection profile.
var requiredPermissions = []string{
	"org.freedesktop.NetworkManager.network-control",
	"org.freedesktop.NetworkManager.settings.modify.system",
}

type runFunc func(ctx context.Context, args ...string) (stdout, stderr string, err error)

// NmcliRequester joins networks by driving NetworkManager through nmcli.
type NmcliRequester struct {
	config NmcliConfig
	logger *zap.Logger
	run    runFunc
}

// NewNmcliRequester creates a NetworkManager backend.
func NewNmcliRequester(config NmcliConfig, logger *zap.Logger) *NmcliRequester {
	if logger == nil {
		logger = zap.NewNop()
	}
	n := &NmcliRequester{config: config, logger: logger}
	n.run = n.execute
	return n
}

// CheckPermission verifies nmcli is installed and that NetworkManager lets
// this user add and activate system connections.
func (n *NmcliRequester) CheckPermission(ctx context.Context) error {
	stdout, stderr, err := n.run(ctx, "-t", "-f", "PERMISSION,VALUE", "general", "permissions")
	if err != nil {
		return fmt.Errorf("nmcli general permissions: %w", nmcliError(stderr, err))
	}

	granted := parsePermissions(stdout)
	for _, perm := range requiredPermissions {
		value, ok := granted[perm]
		if !ok {
			return fmt.Errorf("%w: %s not reported by NetworkManager", ErrPermissionDenied, perm)
		}
		// "auth" means polkit will ask; that is still allowed.
		if value != "yes" && value != "auth" {
			return fmt.Errorf("%w: %s is %q", ErrPermissionDenied, perm, value)
		}
	}
	return nil
}

// Request joins the network in the background and reports through cb. Once
// available, the profile is watched until unregister and cb.OnLost is called
// if it deactivates.
func (n *NmcliRequester) Request(req Request, cb Callback) (func(), error) {
	if req.Credentials.SSID == "" {
		return nil, errors.New("SSID is empty")
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	profile := n.profileFor(req)

	go func() {
		defer close(done)
		network, err := n.activate(ctx, req, profile)
		if ctx.Err() != nil {
			return
		}
		if err != nil {
			n.logger.Debug("Activation failed", zap.String("profile", profile), zap.Error(err))
			cb.OnUnavailable(err)
			return
		}
		cb.OnAvailable(network)
		n.monitor(ctx, profile, cb.OnLost)
	}()

	var once sync.Once
	unregister := func() {
		once.Do(func() {
			cancel()
			<-done
			n.deactivate(req, profile)
		})
	}
	return unregister, nil
}

// monitor polls the profile state until it leaves the active states or ctx
// is done.
func (n *NmcliRequester) monitor(ctx context.Context, profile string, onLost func()) {
	ticker := time.NewTicker(n.monitorInterval())
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		active, err := n.profileActive(ctx, profile)
		if ctx.Err() != nil {
			return
		}
		if err == nil && active {
			continue
		}

		n.logger.Warn("Device network lost", zap.String("profile", profile), zap.Error(err))
		if onLost != nil {
			onLost()
		}
		return
	}
}

// profileActive reports whether NetworkManager has the profile up.
func (n *NmcliRequester) profileActive(ctx context.Context, profile string) (bool, error) {
	stdout, stderr, err := n.run(ctx, "-t", "-f", "GENERAL.STATE", "connection", "show", "id", profile)
	if err != nil {
		return false, fmt.Errorf("nmcli connection show: %w", nmcliError(stderr, err))
	}

	// inactive profiles print no GENERAL.STATE line at all
	for _, line := range strings.Split(stdout, "\n") {
		_, value, ok := strings.Cut(strings.TrimSpace(line), ":")
		if ok && (value == "activated" || value == "activating") {
			return true, nil
		}
	}
	return false, nil
}

func (n *NmcliRequester) monitorInterval() time.Duration {
	if n.config.MonitorInterval > 0 {
		return n.config.MonitorInterval
	}
	return 2 * time.Second
}

func (n *NmcliRequester) profileFor(req Request) string {
	if req.Strategy == StrategyLegacy || n.config.Profile == "" {
		// nmcli device wifi connect names the profile after the SSID
		return req.Credentials.SSID
	}
	return n.config.Profile
}

func (n *NmcliRequester) waitArgs() []string {
	secs := int(n.config.Wait.Seconds())
	if secs <= 0 {
		secs = int(DefaultTimeout.Seconds())
	}
	return []string{"--wait", strconv.Itoa(secs)}
}

func (n *NmcliRequester) activate(ctx context.Context, req Request, profile string) (Network, error) {
	creds := req.Credentials

	if req.Strategy == StrategyScoped {
		// A stale profile from an earlier run would make "add" create a duplicate.
		_, _, _ = n.run(ctx, "connection", "delete", "id", profile)

		ifname := n.config.Interface
		if ifname == "" {
			ifname = "*"
		}
		args := []string{
			"connection", "add", "type", "wifi",
			"con-name", profile,
			"ifname", ifname,
			"ssid", creds.SSID,
			"connection.autoconnect", "no",
			"ipv4.never-default", "yes",
			"ipv6.never-default", "yes",
		}
		if creds.Passphrase != "" {
			args = append(args, "wifi-sec.key-mgmt", "wpa-psk", "wifi-sec.psk", creds.Passphrase)
		}
		if _, stderr, err := n.run(ctx, args...); err != nil {
			return Network{}, fmt.Errorf("nmcli connection add: %w", nmcliError(stderr, err))
		}

		up := append(n.waitArgs(), "connection", "up", "id", profile)
		if _, stderr, err := n.run(ctx, up...); err != nil {
			return Network{}, fmt.Errorf("nmcli connection up: %w", nmcliError(stderr, err))
		}
	} else {
		args := append(n.waitArgs(), "device", "wifi", "connect", creds.SSID)
		if creds.Passphrase != "" {
			args = append(args, "password", creds.Passphrase)
		}
		if n.config.Interface != "" {
			args = append(args, "ifname", n.config.Interface)
		}
		if _, stderr, err := n.run(ctx, args...); err != nil {
			return Network{}, fmt.Errorf("nmcli device wifi connect: %w", nmcliError(stderr, err))
		}
	}

	iface, err := n.deviceFor(ctx, profile)
	if err != nil {
		return Network{}, err
	}

	return Network{SSID: creds.SSID, Interface: iface, Profile: profile}, nil
}

// deviceFor returns the interface an active profile runs on.
func (n *NmcliRequester) deviceFor(ctx context.Context, profile string) (string, error) {
	stdout, stderr, err := n.run(ctx, "-t", "-f", "GENERAL.DEVICES", "connection", "show", "id", profile)
	if err != nil {
		return "", fmt.Errorf("nmcli connection show: %w", nmcliError(stderr, err))
	}

	for _, line := range strings.Split(stdout, "\n") {
		_, value, ok := strings.Cut(strings.TrimSpace(line), ":")
		if ok && value != "" {
			return value, nil
		}
	}
	return "", fmt.Errorf("profile %s is not active on any device", profile)
}

func (n *NmcliRequester) deactivate(req Request, profile string) {
	ctx, cancel := context.WithTimeout(context.Background(), n.cleanupTimeout())
	defer cancel()

	if _, stderr, err := n.run(ctx, "connection", "down", "id", profile); err != nil {
		n.logger.Debug("nmcli connection down failed", zap.String("profile", profile), zap.String("stderr", stderr), zap.Error(err))
	}
	if req.Strategy == StrategyScoped {
		if _, stderr, err := n.run(ctx, "connection", "delete", "id", profile); err != nil {
			n.logger.Debug("nmcli connection delete failed", zap.String("profile", profile), zap.String("stderr", stderr), zap.Error(err))
		}
	}
}

func (n *NmcliRequester) cleanupTimeout() time.Duration {
	if n.config.CleanupTimeout > 0 {
		return n.config.CleanupTimeout
	}
	return 10 * time.Second
}

// execute runs nmcli and captures its output.
func (n *NmcliRequester) execute(ctx context.Context, args ...string) (string, string, error) {
	path := n.config.Path
	if path == "" {
		path = "nmcli"
	}

	n.logger.Debug("Running nmcli", zap.Strings("args", redact(args)))

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, path, args...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	err := cmd.Run()

	return stdout.String(), stderr.String(), err
}

// nmcliError turns a failed nmcli invocation into an error, recognising
// authorization failures.
func nmcliError(stderr string, err error) error {
	msg := strings.TrimSpace(stderr)
	msg = strings.TrimPrefix(msg, "Error: ")
	if msg == "" {
		msg = err.Error()
	}

	lower := strings.ToLower(msg)
	for _, marker := range []string{"not authorized", "insufficient privileges", "permission denied"} {
		if strings.Contains(lower, marker) {
			return fmt.Errorf("%w: %s", ErrPermissionDenied, msg)
		}
	}

	var execErr *exec.Error
	if errors.As(err, &execErr) {
		return fmt.Errorf("nmcli not available: %w", err)
	}
	return errors.New(msg)
}

func parsePermissions(out string) map[string]string {
	perms := make(map[string]string)
	for _, line := range strings.Split(out, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		// terse output escapes ':' inside fields, permission names contain none
		idx := strings.LastIndex(line, ":")
		if idx <= 0 {
			continue
		}
		perms[line[:idx]] = strings.TrimSpace(line[idx+1:])
	}
	return perms
}

// redact hides passphrases from logged argument lists.
func redact(args []string) []string {
	out := make([]string, len(args))
	copy(out, args)
	for i := 0; i < len(out)-1; i++ {
		if out[i] == "password" || out[i] == "wifi-sec.psk" {
			out[i+1] = "********"
		}
	}
	return out
}
