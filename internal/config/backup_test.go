package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestConfigExists(t *testing.T) {
	dir := t.TempDir()
	if ConfigExists(dir) {
		t.Fatal("expected no config.toml in a fresh directory")
	}
	if err := SaveTOML(dir, NewConfig()); err != nil {
		t.Fatal(err)
	}
	if !ConfigExists(dir) {
		t.Fatal("expected config.toml to exist after SaveTOML")
	}
}

func TestBackupConfigNoFileYieldsEmptyPath(t *testing.T) {
	dir := t.TempDir()
	backupPath, err := BackupConfig(dir)
	if err != nil {
		t.Fatal(err)
	}
	if backupPath != "" {
		t.Fatalf("expected empty backup path when no config.toml exists, got %q", backupPath)
	}
}

func TestListConfigBackupsEmpty(t *testing.T) {
	dir := t.TempDir()
	backups, err := ListConfigBackups(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(backups) != 0 {
		t.Fatalf("expected 0 backups, got %d", len(backups))
	}
}

func TestListConfigBackupsMissingStateDir(t *testing.T) {
	backups, err := ListConfigBackups(filepath.Join(t.TempDir(), "does-not-exist"))
	if err != nil {
		t.Fatal(err)
	}
	if backups != nil {
		t.Fatalf("expected nil backups for a missing state directory, got %v", backups)
	}
}

func TestListConfigBackupsNewestFirst(t *testing.T) {
	dir := t.TempDir()
	if err := SaveTOML(dir, NewConfig()); err != nil {
		t.Fatal(err)
	}

	var created []string
	for i := 0; i < 3; i++ {
		backupPath, err := BackupConfig(dir)
		if err != nil {
			t.Fatal(err)
		}
		created = append(created, backupPath)
		time.Sleep(10 * time.Millisecond)
	}

	backups, err := ListConfigBackups(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(backups) != len(created) {
		t.Fatalf("expected %d backups, got %d", len(created), len(backups))
	}
	if backups[0] != created[len(created)-1] {
		t.Fatalf("expected newest backup %q first, got %q", created[len(created)-1], backups[0])
	}
}

func TestBackupConfigCleansUpBeyondMaxBackups(t *testing.T) {
	dir := t.TempDir()
	if err := SaveTOML(dir, NewConfig()); err != nil {
		t.Fatal(err)
	}

	for i := 0; i < MaxBackups+2; i++ {
		if _, err := BackupConfig(dir); err != nil {
			t.Fatal(err)
		}
		time.Sleep(10 * time.Millisecond)
	}

	backups, err := ListConfigBackups(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(backups) > MaxBackups {
		t.Fatalf("expected at most %d backups, got %d", MaxBackups, len(backups))
	}
}

func TestRestoreConfigMissingBackupFileErrors(t *testing.T) {
	dir := t.TempDir()
	err := RestoreConfig(dir, filepath.Join(dir, "no-such-backup.toml.bak.20260101-000000"))
	if err == nil {
		t.Fatal("expected an error restoring from a nonexistent backup file")
	}
}

func TestRestoreConfigBacksUpCurrentFirst(t *testing.T) {
	dir := t.TempDir()
	cfg := NewConfig()
	cfg.ScanPaths = []string{"/first"}
	if err := SaveTOML(dir, cfg); err != nil {
		t.Fatal(err)
	}

	firstBackup, err := BackupConfig(dir)
	if err != nil {
		t.Fatal(err)
	}

	cfg.ScanPaths = []string{"/second"}
	if err := SaveTOML(dir, cfg); err != nil {
		t.Fatal(err)
	}

	beforeRestore, err := ListConfigBackups(dir)
	if err != nil {
		t.Fatal(err)
	}

	if err := RestoreConfig(dir, firstBackup); err != nil {
		t.Fatal(err)
	}

	afterRestore, err := ListConfigBackups(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(afterRestore) != len(beforeRestore)+1 {
		t.Fatalf("expected RestoreConfig to add one backup of the pre-restore config, got %d -> %d", len(beforeRestore), len(afterRestore))
	}

	restored, err := Load(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(restored.ScanPaths) != 1 || restored.ScanPaths[0] != "/first" {
		t.Fatalf("expected restored config to have scan_paths [/first], got %+v", restored.ScanPaths)
	}
}

func TestRestoreConfigCreatesStateDir(t *testing.T) {
	parent := t.TempDir()
	backupPath := filepath.Join(parent, "config.toml.bak.20260101-000000")
	if err := os.WriteFile(backupPath, []byte("scan_paths = [\"/restored\"]\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	dir := filepath.Join(parent, "nested", "state")
	if err := RestoreConfig(dir, backupPath); err != nil {
		t.Fatal(err)
	}
	if !ConfigExists(dir) {
		t.Fatal("expected RestoreConfig to create the state directory and write config.toml into it")
	}
}
