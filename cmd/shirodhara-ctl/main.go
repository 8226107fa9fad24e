// Shirodhara-ctl controls a Shirodhara heating device over its Wi-Fi access point.
//
// It joins the device network on demand, reads the device health, sends
// treatment parameters and start/stop commands, and runs a live dashboard
// that follows the treatment from heating to completion.
//
// Usage:
//
//	shirodhara-ctl [command] [flags]
//
// See 'shirodhara-ctl --help' for available commands.
package main

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/zenevo/shirodhara/internal/config"
	"github.com/zenevo/shirodhara/internal/device"
	"github.com/zenevo/shirodhara/internal/logging"
	"github.com/zenevo/shirodhara/internal/session"
	"github.com/zenevo/shirodhara/internal/version"
	"github.com/zenevo/shirodhara/internal/wifi"
)

func main() {
	err := rootCmd.Execute()
	logging.Sync()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		if hint := hintFor(err); hint != "" {
			fmt.Fprintf(os.Stderr, "\n%s\n", hint)
		}
		os.Exit(1)
	}
}

// Global flags
var (
	deviceAddr  string
	logLevel    string
	configPath  string
	noAssociate bool
)

var rootCmd = &cobra.Command{
	Use:   "shirodhara-ctl",
	Short: "Shirodhara Device Controller",
	Long: `Control a Shirodhara heating device over its local Wi-Fi access point.

The device exposes a small HTTP API on its own network. This tool joins that
network when needed, polls the device health, and sends treatment commands.

Run 'shirodhara-ctl watch' for the interactive treatment dashboard.`,
	Version:       version.Get().Version,
	SilenceErrors: true,
	SilenceUsage:  true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if configPath != "" {
			config.SetConfigPath(configPath)
		}
		return logging.Initialize(logLevel)
	},
}

func init() {
	rootCmd.CompletionOptions.DisableDefaultCmd = true

	rootCmd.PersistentFlags().StringVar(&deviceAddr, "device", "", "Device address (default: configured address or http://192.168.4.1)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level (debug, info, warn, error); silent when unset")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to the configuration file")
	rootCmd.PersistentFlags().BoolVar(&noAssociate, "no-associate", false, "Do not join the device Wi-Fi network (device already reachable)")

	rootCmd.AddCommand(versionCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("shirodhara-ctl %s\n", version.Get())
	},
}

// normalizeAddr accepts a bare host or host:port and returns a base URL.
func normalizeAddr(addr string) string {
	addr = strings.TrimSpace(addr)
	if addr == "" {
		return ""
	}
	if !strings.Contains(addr, "://") {
		addr = "http://" + addr
	}
	return strings.TrimRight(addr, "/")
}

// hintFor returns troubleshooting advice for errors the user can act on.
func hintFor(err error) string {
	var wifiErr *wifi.Error
	var devErr *device.Error

	switch {
	case errors.Is(err, session.ErrInvalidParameters):
		return fmt.Sprintf("Duration must be %d-%d minutes and temperature %d-%d°C.",
			session.MinDurationMinutes, session.MaxDurationMinutes,
			session.MinTemperatureCelsius, session.MaxTemperatureCelsius)
	case errors.As(err, &wifiErr):
		return wifi.Hint(err)
	case errors.As(err, &devErr):
		return device.TroubleshootingHint(err)
	default:
		return ""
	}
}
