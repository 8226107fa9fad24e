package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/zenevo/shirodhara/internal/app"
	"github.com/zenevo/shirodhara/internal/config"
	"github.com/zenevo/shirodhara/internal/device"
	"github.com/zenevo/shirodhara/internal/discovery"
	"github.com/zenevo/shirodhara/internal/logging"
	"github.com/zenevo/shirodhara/internal/session"
)

// Command flags
var (
	outputFormat string
	scanTimeout  int
)

func init() {
	rootCmd.AddCommand(connectCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(setCmd)
	rootCmd.AddCommand(startCmd)
	rootCmd.AddCommand(stopCmd)
	rootCmd.AddCommand(scanCmd)

	statusCmd.Flags().StringVar(&outputFormat, "format", "detailed", "Output format (detailed, compact, json)")
	scanCmd.Flags().IntVar(&scanTimeout, "timeout", int(discovery.DefaultScanTimeout/time.Second), "Scan timeout in seconds")
}

// signalContext is cancelled on Ctrl+C or SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

// openApp loads the configuration and builds the session.
func openApp() (*app.App, error) {
	reg, err := config.LoadRegistry()
	if err != nil {
		return nil, err
	}
	return app.New(reg,
		app.WithBaseURL(normalizeAddr(deviceAddr)),
		app.WithLogger(logging.GetLogger()),
	)
}

// connect joins the device network unless --no-associate was given.
func connect(ctx context.Context, a *app.App) error {
	if noAssociate {
		return nil
	}
	creds := a.Credentials()
	fmt.Printf("Joining %q...\n", creds.SSID)

	h, err := a.Connect(ctx)
	if err != nil {
		return fmt.Errorf("failed to join device network: %w", err)
	}
	logging.Debug("Device network ready",
		zap.String("interface", h.Network.Interface),
		zap.Stringer("strategy", h.Strategy),
	)
	return nil
}

var connectCmd = &cobra.Command{
	Use:   "connect",
	Short: "Join the device network and check the device answers",
	Long: `Join the Shirodhara Wi-Fi access point and read the device health once.

On Linux the device network is joined without becoming the default route and
device traffic is bound to the Wi-Fi interface, so the internet connection on
other interfaces keeps working. The access point passphrase is read from
SHIRODHARA_WIFI_PASSPHRASE, falling back to the factory default.`,
	Example: `  # Join the default access point
  shirodhara-ctl connect

  # Use a custom passphrase
  SHIRODHARA_WIFI_PASSPHRASE=secret shirodhara-ctl connect`,
	Args: cobra.NoArgs,
	RunE: runConnect,
}

func runConnect(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext()
	defer cancel()

	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	if err := connect(ctx, a); err != nil {
		return err
	}

	health, err := a.Probe(ctx)
	if err != nil {
		return fmt.Errorf("device did not answer: %w", err)
	}

	fmt.Printf("✓ Connected to %s\n", a.Client().BaseURL)
	fmt.Printf("  %s\n", health.Summary())
	return nil
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the device health and derived session state",
	Example: `  shirodhara-ctl status
  shirodhara-ctl status --format compact
  shirodhara-ctl status --format json --device http://localhost:8080 --no-associate`,
	Args: cobra.NoArgs,
	RunE: runStatus,
}

// statusJSON is the machine-readable status output
type statusJSON struct {
	State   string                 `json:"state"`
	Label   string                 `json:"label"`
	BaseURL string                 `json:"base_url"`
	Health  *device.HealthSnapshot `json:"health"`
}

func runStatus(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext()
	defer cancel()

	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	if err := connect(ctx, a); err != nil {
		return err
	}

	health, err := a.Probe(ctx)
	if err != nil {
		return fmt.Errorf("failed to read device health: %w", err)
	}
	state := session.Next(session.Idle, *health)

	switch outputFormat {
	case "compact":
		fmt.Printf("%s | %s\n", state.Label(), health.Summary())
	case "json":
		data, err := json.MarshalIndent(statusJSON{
			State:   state.Kind.String(),
			Label:   state.Label(),
			BaseURL: a.Client().BaseURL,
			Health:  health,
		}, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal JSON: %w", err)
		}
		fmt.Println(string(data))
	case "detailed":
		fmt.Printf("Device: %s\n\n", a.Client().BaseURL)
		fmt.Print(health.FormatDetailed())
		fmt.Printf("\nState:              %s\n", state.Label())
	default:
		return fmt.Errorf("unknown format %q (use detailed, compact or json)", outputFormat)
	}
	return nil
}

var setCmd = &cobra.Command{
	Use:   "set <minutes> <celsius>",
	Short: "Send treatment parameters and start heating",
	Long: fmt.Sprintf(`Send the treatment duration and oil temperature to the device.

The device starts heating toward the target as soon as it accepts the
parameters. Duration must be %d-%d minutes and temperature %d-%d°C.`,
		session.MinDurationMinutes, session.MaxDurationMinutes,
		session.MinTemperatureCelsius, session.MaxTemperatureCelsius),
	Example: `  # 30 minutes at 37°C
  shirodhara-ctl set 30 37`,
	Args: cobra.ExactArgs(2),
	RunE: runSet,
}

func runSet(cmd *cobra.Command, args []string) error {
	minutes, err := strconv.Atoi(args[0])
	if err != nil {
		return fmt.Errorf("invalid minutes value: %w", err)
	}
	celsius, err := strconv.Atoi(args[1])
	if err != nil {
		return fmt.Errorf("invalid celsius value: %w", err)
	}

	p := session.Parameters{DurationMinutes: minutes, TemperatureCelsius: celsius}
	if err := p.Validate(); err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()

	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	if err := connect(ctx, a); err != nil {
		return err
	}

	if err := a.SetParameters(ctx, p); err != nil {
		return err
	}
	fmt.Printf("✓ Parameters sent: %s. The device is heating.\n", p)
	return nil
}

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the treatment",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runCommand("Treatment started", (*session.Controller).Start)
	},
}

var stopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop heating and any running treatment",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runCommand("Treatment stopped", (*session.Controller).Stop)
	},
}

func runCommand(done string, send func(*session.Controller, context.Context) error) error {
	ctx, cancel := signalContext()
	defer cancel()

	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	if err := connect(ctx, a); err != nil {
		return err
	}

	if err := send(a.Controller(), ctx); err != nil {
		return err
	}
	fmt.Printf("✓ %s\n", done)
	return nil
}

var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Scan for Shirodhara devices over mDNS",
	Long: `Scan for Shirodhara devices using mDNS/DNS-SD discovery.

Devices advertise an HTTP service with a hostname of the form
shirodhara.local or shirodhara-<name>.local. Use this when the device is not
at the access point default address.`,
	Example: `  shirodhara-ctl scan
  shirodhara-ctl scan --timeout 10`,
	Args: cobra.NoArgs,
	RunE: runScan,
}

func runScan(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext()
	defer cancel()

	fmt.Printf("Scanning for Shirodhara devices (timeout: %ds)...\n\n", scanTimeout)

	scanner := discovery.NewScanner(logging.Named("discovery"))
	scanner.Timeout = time.Duration(scanTimeout) * time.Second

	devices, err := scanner.Scan(ctx)
	if err != nil {
		return fmt.Errorf("scan failed: %w", err)
	}

	if len(devices) == 0 {
		fmt.Println("No devices found.")
		fmt.Println("\nTroubleshooting:")
		fmt.Println("  - Run 'shirodhara-ctl connect' to join the device network first")
		fmt.Println("  - Ensure the device is powered on")
		fmt.Println("  - Try increasing --timeout")
		return nil
	}

	fmt.Printf("Found %d device(s):\n\n", len(devices))
	for i, d := range devices {
		fmt.Printf("%d. %s\n", i+1, d.Hostname)
		fmt.Printf("   Name: %s\n", d.Name)
		fmt.Printf("   URL:  %s\n", d.BaseURL())
		if fw := d.GetMetadata("fw"); fw != "" {
			fmt.Printf("   Firmware: %s\n", fw)
		}
		fmt.Println()
	}

	fmt.Println("Use 'shirodhara-ctl status --device <url>' to read a device")
	return nil
}
