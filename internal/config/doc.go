// Package config manages the controller's YAML configuration file.
//
// The file remembers the device address that last worked, the parameters of
// the last session, and preferences such as the poll interval and how to
// join the device access point.
//
// # Configuration File Location
//
//   - Linux: $XDG_CONFIG_HOME/shirodhara/config.yaml or $HOME/.config/shirodhara/config.yaml
//   - macOS: $HOME/.config/shirodhara/config.yaml
//   - Windows: %LOCALAPPDATA%\shirodhara\config.yaml
//
// The --config flag replaces this location through SetConfigPath.
//
// # Security
//
// The access point passphrase is never written to the file. It comes from
// the SHIRODHARA_WIFI_PASSPHRASE environment variable or the factory default.
//
// # Thread Safety
//
// The global registry uses sync.Once for safe initialization across goroutines.
// File writes are serialized by a mutex and replace the file atomically.
package config
