// Package dotdir manages the .wikifetch/ and ~/.wikifetch directories.
//
// The directory holds config.toml, credentials.toml, the default SQLite cache
// database and the default image directory.
package dotdir

import (
	"fmt"
	"os"
	"path/filepath"
)

const (
	// dirName is the name of the wikifetch directory.
	dirName = ".wikifetch"

	// DatabaseFile is the default SQLite cache file name inside the directory.
	DatabaseFile = "wikifetch.db"

	// ImagesDir is the default image directory name inside the directory.
	ImagesDir = "images"
)

type Manager struct{}

func NewManager() *Manager {
	return &Manager{}
}

// Target returns the target absolute path to a .wikifetch/ directory.
// Order of precedence is as follows:
//  1. Provided override
//  2. Local ./.wikifetch/ dir
//  3. Home ~/.wikifetch/ dir
//  4. If none found, attempt to create ~/.wikifetch/ dir
func (m *Manager) Target(overrideDir string) (string, error) {
	var dir string

	switch {
	case overrideDir != "":
		dir = overrideDir

	case m.localDirExists():
		cwd, err := os.Getwd()
		if err != nil {
			return "", fmt.Errorf("getting current directory: %w", err)
		}
		dir = filepath.Join(cwd, dirName)

	default:
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("getting home directory: %w", err)
		}
		dir = filepath.Join(home, dirName)
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("creating wikifetch directory %s: %w", dir, err)
	}

	return filepath.Abs(dir)
}

// DatabasePath returns the default SQLite cache path for the resolved directory.
func (m *Manager) DatabasePath(overrideDir string) (string, error) {
	target, err := m.Target(overrideDir)
	if err != nil {
		return "", err
	}
	return filepath.Join(target, DatabaseFile), nil
}

// ImageDir returns the default image directory for the resolved directory.
// The image directory itself is not created here; the image resolver owns it.
func (m *Manager) ImageDir(overrideDir string) (string, error) {
	target, err := m.Target(overrideDir)
	if err != nil {
		return "", err
	}
	return filepath.Join(target, ImagesDir), nil
}

// localDirExists checks whether a .wikifetch/ directory exists in the current
// working directory.
func (m *Manager) localDirExists() bool {
	cwd, err := os.Getwd()
	if err != nil {
		return false
	}

	info, err := os.Stat(filepath.Join(cwd, dirName))
	return err == nil && info.IsDir()
}
