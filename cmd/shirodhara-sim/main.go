// Shirodhara-sim runs a software Shirodhara device for development and demos.
//
// It serves the device HTTP API (GET /api/health, POST /api/update) backed by
// a simple heating model, and can advertise itself over mDNS so that
// 'shirodhara-ctl scan' finds it.
//
// Usage:
//
//	shirodhara-sim [flags]
package main

import (
	"context"
	"fmt"
	"net"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/zenevo/shirodhara/internal/discovery"
	"github.com/zenevo/shirodhara/internal/logging"
	"github.com/zenevo/shirodhara/internal/simulator"
	"github.com/zenevo/shirodhara/internal/version"
)

func main() {
	err := rootCmd.Execute()
	logging.Sync()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var (
	listenAddr    string
	rampRate      float64
	tick          time.Duration
	advertiseName string
	advertiseIP   string
	logLevel      string
)

var rootCmd = &cobra.Command{
	Use:   "shirodhara-sim",
	Short: "Simulated Shirodhara device",
	Long: `Serve the Shirodhara device API from a simulated heater.

The oil temperature starts at room temperature and ramps toward the target
once parameters are set. Starting the treatment holds the target and counts
the duration down; when it elapses the device returns to idle.

POST /sim/offline {"offline": true} makes the device API answer 503, which is
useful to watch the controller handle a lost connection.`,
	Example: `  # Serve on :8080 and drive it with the controller
  shirodhara-sim
  shirodhara-ctl watch --device localhost:8080 --no-associate

  # Heat fast and advertise over mDNS as shirodhara-lab.local
  shirodhara-sim --rate 2 --advertise lab --advertise-ip 192.168.1.20`,
	Version:       version.Get().Version,
	Args:          cobra.NoArgs,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runSim,
}

func init() {
	rootCmd.CompletionOptions.DisableDefaultCmd = true

	rootCmd.Flags().StringVar(&listenAddr, "listen", ":8080", "Address to serve the device API on")
	rootCmd.Flags().Float64Var(&rampRate, "rate", simulator.DefaultRampCPS, "Heating rate in °C per second")
	rootCmd.Flags().DurationVar(&tick, "tick", simulator.DefaultTick, "Simulation step")
	rootCmd.Flags().StringVar(&advertiseName, "advertise", "", "Advertise over mDNS with this device name (\"default\" for shirodhara.local)")
	rootCmd.Flags().StringVar(&advertiseIP, "advertise-ip", "127.0.0.1", "Address published in the mDNS record")
	rootCmd.Flags().StringVar(&logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
}

func runSim(cmd *cobra.Command, args []string) error {
	if rampRate <= 0 {
		return fmt.Errorf("--rate must be positive, got %v", rampRate)
	}
	if err := logging.Initialize(logLevel); err != nil {
		return err
	}
	logger := logging.Named("sim")

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if advertiseName != "" {
		port, err := listenPort(listenAddr)
		if err != nil {
			return err
		}
		adv, err := discovery.Advertise(advertiseName, advertiseIP, port, []string{"fw=sim-" + version.Get().Version, "api=/api"})
		if err != nil {
			return err
		}
		defer adv.Shutdown()
		logger.Info("Advertising over mDNS",
			zap.String("host", discovery.Hostname(advertiseName)+".local"),
			zap.String("ip", advertiseIP),
			zap.Int("port", port),
		)
	}

	unit := simulator.NewUnit(rampRate)
	srv := simulator.NewServer(unit, logger)

	fmt.Printf("Simulated device on %s (heating %.2f°C/s)\n", listenAddr, rampRate)
	return srv.Run(ctx, listenAddr, tick)
}

// listenPort extracts the port from a listen address like ":8080".
func listenPort(addr string) (int, error) {
	_, portStr, err := net.SplitHostPort(addr)
	if err != nil {
		return 0, fmt.Errorf("invalid listen address %q: %w", addr, err)
	}
	port, err := strconv.Atoi(portStr)
	if err != nil || port <= 0 {
		return 0, fmt.Errorf("listen address %q needs a numeric port to advertise", addr)
	}
	return port, nil
}
