// Package config handles application configuration.
//
// Configuration is split into two categories:
//   - Ledger params: economics every node of a deployment must agree on
//   - Node settings: runtime configuration that can vary per node
package config

import (
	"os"
	"path/filepath"
	"runtime"
)

// Config holds node-specific runtime configuration.
type Config struct {
	// Core
	DataDir string `conf:"datadir"`

	// Persist controls whether the chain and registries are written
	// through to disk. Off by default: the ledger contract is in-memory.
	Persist bool `conf:"persist"`

	// API server
	API APIConfig

	// Ledger economics
	Params Params

	// Logging
	Log LogConfig
}

// APIConfig holds HTTP API server settings.
type APIConfig struct {
	Enabled     bool     `conf:"api.enabled"`
	Addr        string   `conf:"api.addr"`
	Port        int      `conf:"api.port"`
	AllowedIPs  []string `conf:"api.allowed"`
	CORSOrigins []string `conf:"api.cors"` // Allowed CORS origins ("*" = all).
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level string `conf:"log.level"`
	File  string `conf:"log.file"`
	JSON  bool   `conf:"log.json"`
}

// DefaultDataDir returns the platform-specific default data directory.
//
//	Linux:   ~/.nexus-ledger
//	macOS:   ~/Library/Application Support/NexusLedger
//	Windows: %APPDATA%\NexusLedger
func DefaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".nexus-ledger"
	}
	switch runtime.GOOS {
	case "darwin":
		return filepath.Join(home, "Library", "Application Support", "NexusLedger")
	case "windows":
		appData := os.Getenv("APPDATA")
		if appData != "" {
			return filepath.Join(appData, "NexusLedger")
		}
		return filepath.Join(home, "AppData", "Roaming", "NexusLedger")
	default:
		return filepath.Join(home, ".nexus-ledger")
	}
}

// ChainDataDir returns the directory holding the ledger database.
func (c *Config) ChainDataDir() string {
	return filepath.Join(c.DataDir, "chaindata")
}

// LogsDir returns the directory holding log files.
func (c *Config) LogsDir() string {
	return filepath.Join(c.DataDir, "logs")
}
