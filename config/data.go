package config

import (
	"os"
	"path/filepath"
)

// getDataDir determines the data directory path from environment or default.
// Priority: SHRINK_DATA_DIR environment variable > "./data" default
func getDataDir() string {
	if dir := os.Getenv("SHRINK_DATA_DIR"); dir != "" {
		return dir
	}
	return "./data"
}

// getWorkDir determines where per-request scratch directories are created.
// Priority: SHRINK_WORK_DIR environment variable > os.TempDir()
func getWorkDir() string {
	if dir := os.Getenv("SHRINK_WORK_DIR"); dir != "" {
		return dir
	}
	return os.TempDir()
}

// HistoryDBPath returns the full path to the history database.
// The history database keeps metadata about finished reductions, never file contents.
// Path: {DataDir}/history.db
func (c *Config) HistoryDBPath() string {
	return filepath.Join(c.DataDir, "history.db")
}

// EnsureDirs creates the data and work directories if they are missing.
func (c *Config) EnsureDirs() error {
	if err := os.MkdirAll(c.DataDir, 0755); err != nil {
		return err
	}
	return os.MkdirAll(c.WorkDir, 0755)
}
