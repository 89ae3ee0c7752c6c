// Package paths resolves where schemata keeps its configuration and its
// metadata store.
package paths

import (
	"os"
	"path/filepath"
	"runtime"
)

// App is the directory name used under platform config and data roots.
const App = "schemata"

// LocalDataDirName is the working-directory store used when nothing else
// names a data directory.
const LocalDataDirName = ".schemata"

// Environment overrides.
const (
	EnvConfigDir = "SCHEMATA_CONFIG_DIR"
	EnvDataDir   = "SCHEMATA_DATA_DIR"
)

// Overridden in tests.
var (
	homeDir       = os.UserHomeDir
	userConfigDir = os.UserConfigDir
	getwd         = os.Getwd
)

// xdgDir returns $<xdgVar>/schemata on Linux, falling back to
// ~/<fallback...>/schemata. Other platforms use os.UserConfigDir.
func xdgDir(xdgVar string, fallback ...string) (string, error) {
	if runtime.GOOS != "linux" {
		dir, err := userConfigDir()
		if err != nil {
			return "", err
		}
		return filepath.Join(dir, App), nil
	}
	if root := os.Getenv(xdgVar); root != "" {
		return filepath.Join(root, App), nil
	}
	home, err := homeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(append(append([]string{home}, fallback...), App)...), nil
}

// DefaultConfigDir is the platform configuration directory: XDG on Linux,
// ~/Library/Application Support on macOS and %APPDATA% on Windows.
func DefaultConfigDir() (string, error) {
	return xdgDir("XDG_CONFIG_HOME", ".config")
}

// DefaultDataDir is the platform data directory.
func DefaultDataDir() (string, error) {
	return xdgDir("XDG_DATA_HOME", ".local", "share")
}

// firstAbs returns the first non-empty candidate as an absolute path.
func firstAbs(candidates ...string) (string, bool, error) {
	for _, c := range candidates {
		if c == "" {
			continue
		}
		abs, err := filepath.Abs(c)
		return abs, true, err
	}
	return "", false, nil
}

// ResolveConfigDir picks the configuration directory: flag, then
// SCHEMATA_CONFIG_DIR, then the platform default.
func ResolveConfigDir(flag string) (string, error) {
	if dir, ok, err := firstAbs(flag, os.Getenv(EnvConfigDir)); ok {
		return dir, err
	}
	return DefaultConfigDir()
}

// ResolveDataDir picks the data directory: flag, then the config file
// value, then SCHEMATA_DATA_DIR, then ./.schemata in the working directory.
func ResolveDataDir(flag, configured string) (string, error) {
	if dir, ok, err := firstAbs(flag, configured, os.Getenv(EnvDataDir)); ok {
		return dir, err
	}
	cwd, err := getwd()
	if err != nil {
		return "", err
	}
	return filepath.Join(cwd, LocalDataDirName), nil
}
