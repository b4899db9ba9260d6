package app

import (
	"fmt"
	"os"
	"path/filepath"
)

// GetDefaults resolves the config file location and the data directories.
// FILESENTRY_CONFIG_PATH and FILESENTRY_HOME override the XDG-style paths
// under the user's home directory.
func GetDefaults() (map[string]string, error) {
	configPath, err := envOrHome("FILESENTRY_CONFIG_PATH", ".config", "filesentry.toml")
	if err != nil {
		return nil, err
	}
	baseDir, err := envOrHome("FILESENTRY_HOME", ".local", "share", "filesentry")
	if err != nil {
		return nil, err
	}

	return map[string]string{
		"config_path": configPath,
		"base_dir":    baseDir,
		"log_dir":     filepath.Join(baseDir, "log"),
	}, nil
}

// envOrHome returns the environment variable's value when set, otherwise the
// given path elements joined under the home directory.
func envOrHome(envVar string, elem ...string) (string, error) {
	if path := os.Getenv(envVar); path != "" {
		return path, nil
	}
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory: %w", err)
	}
	return filepath.Join(append([]string{homeDir}, elem...)...), nil
}
