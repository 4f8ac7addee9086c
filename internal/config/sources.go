package config

import (
	"os"
	"path/filepath"
	"runtime"
)

const appName = "sheetplan"

// findProjectConfigFile looks for a config file in the current directory.
func findProjectConfigFile() string {
	names := []string{appName + ".toml", "." + appName + ".toml"}
	for _, name := range names {
		if _, err := os.Stat(name); err == nil {
			return name
		}
	}
	return ""
}

// findUserConfigFile looks for a user-level config file.
// Checks ~/.sheetplan/sheetplan.toml first, then falls back to the
// OS-specific config directory.
func findUserConfigFile() string {
	if dir := UserDir(); dir != "" {
		userConfigPath := filepath.Join(dir, appName+".toml")
		if _, err := os.Stat(userConfigPath); err == nil {
			return userConfigPath
		}
	}

	if cfgDir := osUserConfigDir(); cfgDir != "" {
		userConfigPath := filepath.Join(cfgDir, appName, appName+".toml")
		if _, err := os.Stat(userConfigPath); err == nil {
			return userConfigPath
		}
	}

	return ""
}

// UserDir returns ~/.sheetplan, or "" when the home directory is unknown.
func UserDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, "."+appName)
}

// osUserConfigDir returns the OS-specific user config directory.
// Returns empty string if the directory cannot be determined.
func osUserConfigDir() string {
	switch runtime.GOOS {
	case "windows":
		if appdata := os.Getenv("APPDATA"); appdata != "" {
			return appdata
		}
	case "darwin":
		home, err := os.UserHomeDir()
		if err == nil {
			return filepath.Join(home, "Library", "Application Support")
		}
	case "linux", "openbsd", "freebsd", "netbsd":
		// Respect XDG_CONFIG_HOME or use ~/.config
		if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
			return xdg
		}
		home, err := os.UserHomeDir()
		if err == nil {
			return filepath.Join(home, ".config")
		}
	}
	return ""
}

// setDefaults applies default values to the config.
func setDefaults(cfg *Config) {
	cfg.EstimatedTime = DefaultEstimatedTime
	cfg.Tags = DefaultTags()
	cfg.SubtaskMarkers = DefaultSubtaskMarkers()
	cfg.MaxRows = DefaultMaxRows
	cfg.MaxCols = DefaultMaxCols
	cfg.CSV = CSVConfig{Comma: ",", Encoding: "utf-8"}
	cfg.OutputFormat = DefaultOutputFormat
	cfg.OutputDir = DefaultOutputDir
	cfg.DBPath = DefaultDBPath
	cfg.Server = ServerConfig{
		ListenAddr:   DefaultListenAddr,
		MaxBodyBytes: DefaultMaxBodyBytes,
	}
	cfg.Workers = DefaultWorkers
	cfg.LogLevel = DefaultLogLevel
	cfg.LogFormat = DefaultLogFormat
}
