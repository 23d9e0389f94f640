// Package manifest provides fleet configuration loading and path management.
package manifest

import (
	"os"
	"path/filepath"
	"runtime"
)

// Paths contains the standard paths for envship data.
type Paths struct {
	Data   string // ~/.local/share/envship
	Config string // ~/.config/envship
	Cache  string // ~/.cache/envship
	State  string // ~/.local/state/envship
}

// GetPaths returns the standard paths for envship data.
func GetPaths() *Paths {
	return &Paths{
		Data:   filepath.Join(getEnvOrDefault("XDG_DATA_HOME", defaultDataHome()), "envship"),
		Config: filepath.Join(getEnvOrDefault("XDG_CONFIG_HOME", defaultConfigHome()), "envship"),
		Cache:  filepath.Join(getEnvOrDefault("XDG_CACHE_HOME", defaultCacheHome()), "envship"),
		State:  filepath.Join(getEnvOrDefault("XDG_STATE_HOME", defaultStateHome()), "envship"),
	}
}

// EnsurePaths creates all required directories.
func (p *Paths) EnsurePaths() error {
	for _, dir := range []string{p.Data, p.Config, p.Cache, p.State} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return err
		}
	}
	return nil
}

// LogFilePath returns the default log file location.
func (p *Paths) LogFilePath() string {
	return filepath.Join(p.Data, "envship.log")
}

// getEnvOrDefault returns the environment variable value or a default.
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func defaultDataHome() string {
	if runtime.GOOS == "windows" {
		return os.Getenv("APPDATA")
	}
	return filepath.Join(os.Getenv("HOME"), ".local", "share")
}

func defaultConfigHome() string {
	if runtime.GOOS == "windows" {
		return os.Getenv("APPDATA")
	}
	return filepath.Join(os.Getenv("HOME"), ".config")
}

func defaultCacheHome() string {
	if runtime.GOOS == "windows" {
		return filepath.Join(os.Getenv("APPDATA"), "cache")
	}
	return filepath.Join(os.Getenv("HOME"), ".cache")
}

func defaultStateHome() string {
	if runtime.GOOS == "windows" {
		return os.Getenv("APPDATA")
	}
	return filepath.Join(os.Getenv("HOME"), ".local", "state")
}

// GlobalManifestPath returns the path to the global manifest file.
func GlobalManifestPath() string {
	return filepath.Join(GetPaths().Config, "envship.json")
}

// ProjectManifestPath returns the path to the project manifest file.
func ProjectManifestPath(directory string) string {
	return filepath.Join(directory, "envship.json")
}
