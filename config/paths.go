package config

import (
	"fmt"
	"os"
	"path/filepath"
)

// This file centralizes all path-related helpers for the config package.
// It standardizes where blpfs stores its configuration, credential store,
// session file and audit log, so the mount, shell and admin commands all
// agree on a single location.

const (
	blpfsConfigName = "config"
	blpfsConfigType = "yml"
	blpfsConfigPath = "safedep/blpfs"

	BLPFS_CONFIG_DIR_ENV = "BLPFS_CONFIG_DIR"
)

const (
	usersFileName   = "users.json"
	sessionFileName = "session.env"
	auditFileName   = "audit.log"
)

// ConfigDir returns the base application config directory.
// If the BLPFS_CONFIG_DIR environment variable is set, its value is used
// as the base before appending safedep/blpfs. Otherwise, the defaults are:
// - macOS:   ~/Library/Application Support/safedep/blpfs
// - Linux:   ~/.config/safedep/blpfs
// - Windows: %AppData%\safedep\blpfs
func ConfigDir() (string, error) {
	dir := os.Getenv(BLPFS_CONFIG_DIR_ENV)
	if dir != "" {
		return filepath.Join(dir, blpfsConfigPath), nil
	}

	userConfigDir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("failed to retrieve user config directory: %w", err)
	}

	return filepath.Join(userConfigDir, blpfsConfigPath), nil
}

// createConfigDir ensures the application config directory exists and returns its path.
func createConfigDir() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create config directory %s: %w", dir, err)
	}
	return dir, nil
}

// ConfigFilePath returns the absolute path to the main blpfs config file
// (e.g., config.yml), without creating any directories.
func ConfigFilePath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, fmt.Sprintf("%s.%s", blpfsConfigName, blpfsConfigType)), nil
}

// UsersFilePath returns the absolute path to the credential store.
func UsersFilePath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, usersFileName), nil
}

// SessionFilePath returns the absolute path to the session environment
// file holding the current identity binding.
func SessionFilePath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, sessionFileName), nil
}

// DefaultAuditLogPath returns the audit log location used when the
// config does not override it.
func DefaultAuditLogPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, auditFileName), nil
}
