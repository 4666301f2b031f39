package config

import (
	_ "embed"
	"errors"
	"os"
	"path/filepath"
)

//go:embed default.yml
var defaultConfig []byte

// EnsureUserConfig makes sure a config file exists in the data dir, seeding
// it from the embedded default on first start. Returns the path to use.
func EnsureUserConfig(dataDir string) (string, error) {
	userPath := filepath.Join(dataDir, "config.yml")

	_, err := os.Stat(userPath)
	if err == nil {
		return userPath, nil
	}
	if !errors.Is(err, os.ErrNotExist) {
		return "", err
	}

	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return "", err
	}
	if err := os.WriteFile(userPath, defaultConfig, 0o644); err != nil {
		return "", err
	}
	return userPath, nil
}
