// File: internal/config/paths.go
package config

import (
	"os"
	"path/filepath"
	"runtime"
)

// Paths holds the locations the application reads and writes.
type Paths struct {
	ConfigDir  string
	ConfigFile string
	DataDir    string
	SocketFile string
}

// DBFile returns the default database path for driver.
func (p *Paths) DBFile(driver string) string {
	if driver == DriverSQLite {
		return filepath.Join(p.DataDir, "history.sqlite")
	}
	return filepath.Join(p.DataDir, "history.db")
}

// Replaced in tests.
var (
	getConfigPath     = getDesktopConfigPath
	getDefaultDataDir = getDesktopDataDir
)

// GetPaths returns the platform-specific paths. Directories are not created.
func GetPaths() (*Paths, error) {
	configFile, err := getConfigPath()
	if err != nil {
		return nil, err
	}
	dataDir, err := getDefaultDataDir()
	if err != nil {
		return nil, err
	}
	return &Paths{
		ConfigDir:  filepath.Dir(configFile),
		ConfigFile: configFile,
		DataDir:    dataDir,
		SocketFile: socketPath(dataDir),
	}, nil
}

func fallbackPaths() *Paths {
	dir := filepath.Join(os.TempDir(), "clipstack")
	return &Paths{
		ConfigDir:  dir,
		ConfigFile: filepath.Join(dir, "config.yaml"),
		DataDir:    dir,
		SocketFile: filepath.Join(dir, "clipstack.sock"),
	}
}

// getDesktopConfigPath returns the path to the config file
func getDesktopConfigPath() (string, error) {
	if dir := os.Getenv("CLIPSTACK_CONFIG_DIR"); dir != "" {
		return filepath.Join(dir, "config.yaml"), nil
	}

	configDir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}

	switch runtime.GOOS {
	case "windows":
		return filepath.Join(configDir, "Clipstack", "config.yaml"), nil
	case "darwin":
		return filepath.Join(configDir, "com.berrythewa.clipstack", "config.yaml"), nil
	default: // Linux and others
		return filepath.Join(configDir, "clipstack", "config.yaml"), nil
	}
}

// getDesktopDataDir returns the path to the data directory
func getDesktopDataDir() (string, error) {
	if path := os.Getenv("CLIPSTACK_DATA_DIR"); path != "" {
		return path, nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}

	switch runtime.GOOS {
	case "windows":
		appData, err := os.UserConfigDir()
		if err == nil {
			return filepath.Join(appData, "Clipstack", "Data"), nil
		}
		return filepath.Join(homeDir, "AppData", "Local", "Clipstack"), nil
	case "darwin":
		return filepath.Join(homeDir, "Library", "Application Support", "Clipstack"), nil
	default: // Linux and others
		if xdgDataHome := os.Getenv("XDG_DATA_HOME"); xdgDataHome != "" {
			return filepath.Join(xdgDataHome, "clipstack"), nil
		}
		return filepath.Join(homeDir, ".clipstack"), nil
	}
}

// socketPath prefers the per-user runtime dir, which is cleaned at logout.
func socketPath(dataDir string) string {
	if runtime.GOOS == "linux" {
		if dir := os.Getenv("XDG_RUNTIME_DIR"); dir != "" {
			return filepath.Join(dir, "clipstack.sock")
		}
	}
	return filepath.Join(dataDir, "clipstack.sock")
}
