package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/zenevo/shirodhara/internal/device"
	"github.com/zenevo/shirodhara/internal/feed"
	"github.com/zenevo/shirodhara/internal/logging"
	"github.com/zenevo/shirodhara/internal/session"
	"github.com/zenevo/shirodhara/internal/tui"
)

// Watch command flags
var (
	feedAddr string
	headless bool
)

func init() {
	rootCmd.AddCommand(watchCmd)

	watchCmd.Flags().StringVar(&feedAddr, "feed", "", "Also serve the live status feed on this address (e.g. :8090)")
	watchCmd.Flags().BoolVar(&headless, "headless", false, "Print status changes instead of opening the dashboard")
}

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Follow the treatment in a live dashboard",
	Long: `Join the device network, poll the device every second and show the
treatment dashboard.

From the dashboard you can set the duration and temperature, start heating,
start and stop the treatment, and cancel. With --feed the same status is
served as JSON on GET /status and streamed over a WebSocket on GET /ws.`,
	Example: `  # Interactive dashboard
  shirodhara-ctl watch

  # Dashboard against the simulator, with a status feed
  shirodhara-ctl watch --device localhost:8080 --no-associate --feed :8090

  # Log status changes only
  shirodhara-ctl watch --headless`,
	Args: cobra.NoArgs,
	RunE: runWatch,
}

func runWatch(cmd *cobra.Command, args []string) error {
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

	// A silent device is not fatal here; the dashboard shows it as disconnected.
	if _, err := a.Probe(ctx); err != nil {
		logging.Warn("Device not answering yet", zap.Error(err))
		fmt.Fprintf(os.Stderr, "Warning: %s\n", device.ShortMessage(err))
	}

	if err := a.Start(ctx); err != nil {
		return err
	}

	feedErr := make(chan error, 1)
	if feedAddr != "" {
		srv := feed.NewServer(a.Reconciler(), logging.Named("feed"))
		go func() {
			err := srv.ListenAndServe(ctx, feedAddr)
			if err != nil {
				logging.Error("Status feed stopped", zap.Error(err))
			}
			feedErr <- err
		}()
	}

	if headless {
		return watchHeadless(ctx, os.Stdout, a.Reconciler(), feedErr)
	}

	params, err := tui.Run(ctx, a.Reconciler(), a.Commands(), a.InitialParameters())
	logging.Debug("Dashboard closed", zap.Stringer("parameters", params))
	if err != nil {
		return fmt.Errorf("dashboard error: %w", err)
	}
	return nil
}

// watchHeadless prints one line per status change until ctx is done.
func watchHeadless(ctx context.Context, w io.Writer, source tui.Source, feedErr <-chan error) error {
	updates, unsubscribe := source.Subscribe()
	defer unsubscribe()

	var last string
	for {
		select {
		case <-ctx.Done():
			return nil
		case err := <-feedErr:
			if err != nil {
				return fmt.Errorf("status feed: %w", err)
			}
		case st, ok := <-updates:
			if !ok {
				return nil
			}
			line := formatStatusLine(st)
			if line == last {
				continue
			}
			last = line
			fmt.Fprintf(w, "%s %s\n", st.UpdatedAt.Format("15:04:05"), line)
		}
	}
}

// formatStatusLine renders a status without its timestamp.
func formatStatusLine(st session.Status) string {
	parts := []string{st.State.Label()}

	if h := st.Health; h != nil {
		parts = append(parts, fmt.Sprintf("%.1f°C/%d°C", h.Temperature, h.TargetTemperature))
		if st.State == session.InProgress && h.RemainingSeconds != nil {
			parts = append(parts, device.FormatRemaining(*h.RemainingSeconds)+" left")
		}
	}

	if st.Connected {
		parts = append(parts, "connected")
	} else {
		conn := "disconnected"
		if st.LastError != "" {
			conn += " (" + st.LastError + ")"
		}
		parts = append(parts, conn)
	}
	return strings.Join(parts, " | ")
}
