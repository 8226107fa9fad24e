// Package logging provides structured logging for the Shirodhara controller.
//
// This package wraps a zap logger with convenience functions. Logging is
// silent unless a level is passed on the command line or set through the
// SHIRODHARA_LOG_LEVEL environment variable, so CLI output stays clean.
//
// # Log Levels
//
//   - Debug: every device HTTP exchange, poll timings
//   - Info: session state transitions, association results
//   - Warn: connectivity loss, command failures
//   - Error: startup failures
//
// # Usage
//
//	if err := logging.Initialize("debug"); err != nil {
//	    log.Fatal(err)
//	}
//	defer logging.Sync()
//
//	log := logging.Named("session")
//	logging.LogTransition(log, "Heating", "Ready", "poll", runID)
//
// Components receive a *zap.Logger at construction time; logging.Named hands
// out children of the global logger. Output goes to stderr so it never mixes
// with command output or the terminal dashboard.
package logging
