package store

import (
	"fmt"
	"os"
	"path/filepath"
)

// DirName is the per-user and per-project data directory name.
const DirName = ".intersim"

// GlobalPath returns the path to the global .intersim directory.
// On Unix: ~/.intersim
// On Windows: %USERPROFILE%\.intersim
func GlobalPath() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}
	return filepath.Join(homeDir, DirName), nil
}

// LocalPath returns the .intersim directory for the given project root.
func LocalPath(projectRoot string) string {
	return filepath.Join(projectRoot, DirName)
}

// EnsureGlobalDir creates the global .intersim directory if it doesn't exist.
func EnsureGlobalDir() error {
	globalPath, err := GlobalPath()
	if err != nil {
		return err
	}

	if err := os.MkdirAll(globalPath, 0755); err != nil {
		return fmt.Errorf("failed to create global %s directory: %w", DirName, err)
	}

	return nil
}
