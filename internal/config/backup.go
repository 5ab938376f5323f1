package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

const (
	// MaxBackups is the maximum number of config backups to keep.
	MaxBackups = 3

	// BackupSuffix is the file extension for backup files.
	BackupSuffix = ".bak"
)

// configPath returns the config.toml path within a state directory.
func configPath(stateDir string) string {
	return filepath.Join(stateDir, ConfigFileName)
}

// ConfigExists reports whether a config.toml file exists under stateDir.
func ConfigExists(stateDir string) bool {
	_, err := os.Stat(configPath(stateDir))
	return err == nil
}

// BackupConfig creates a timestamped backup of stateDir's config.toml.
// Returns the backup file path, or "" if there was no file to back up.
func BackupConfig(stateDir string) (string, error) {
	path := configPath(stateDir)
	if !ConfigExists(stateDir) {
		return "", nil
	}

	timestamp := time.Now().Format("20060102-150405.000000000")
	backupPath := fmt.Sprintf("%s%s.%s", path, BackupSuffix, timestamp)

	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read config for backup: %w", err)
	}
	if err := os.WriteFile(backupPath, data, 0o644); err != nil {
		return "", fmt.Errorf("failed to write backup: %w", err)
	}

	if err := cleanupOldBackups(stateDir); err != nil {
		_ = err // best-effort
	}
	return backupPath, nil
}

// ListConfigBackups returns stateDir's config backups, newest first.
func ListConfigBackups(stateDir string) ([]string, error) {
	path := configPath(stateDir)
	base := filepath.Base(path)

	entries, err := os.ReadDir(stateDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to list config directory: %w", err)
	}

	var backups []string
	prefix := base + BackupSuffix + "."
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if strings.HasPrefix(entry.Name(), prefix) {
			backups = append(backups, filepath.Join(stateDir, entry.Name()))
		}
	}

	sort.Slice(backups, func(i, j int) bool {
		infoI, errI := os.Stat(backups[i])
		infoJ, errJ := os.Stat(backups[j])
		if errI != nil || errJ != nil {
			return false
		}
		return infoI.ModTime().After(infoJ.ModTime())
	})
	return backups, nil
}

func cleanupOldBackups(stateDir string) error {
	backups, err := ListConfigBackups(stateDir)
	if err != nil {
		return err
	}
	if len(backups) <= MaxBackups {
		return nil
	}
	for _, backup := range backups[MaxBackups:] {
		_ = os.Remove(backup)
	}
	return nil
}

// RestoreConfig restores stateDir's config.toml from a backup file,
// backing up the current config first if one exists.
func RestoreConfig(stateDir, backupPath string) error {
	if _, err := os.Stat(backupPath); err != nil {
		return fmt.Errorf("backup file not found: %w", err)
	}
	if ConfigExists(stateDir) {
		if _, err := BackupConfig(stateDir); err != nil {
			return fmt.Errorf("failed to backup current config before restore: %w", err)
		}
	}

	data, err := os.ReadFile(backupPath)
	if err != nil {
		return fmt.Errorf("failed to read backup: %w", err)
	}
	if err := os.MkdirAll(stateDir, 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if err := os.WriteFile(configPath(stateDir), data, 0o644); err != nil {
		return fmt.Errorf("failed to write restored config: %w", err)
	}
	return nil
}
