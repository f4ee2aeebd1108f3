// Package sqlitepath locates an existing wikifetch SQLite cache without
// creating one.
package sqlitepath

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
)

// ResolveSQLitePath returns override when set, then the WIKIFETCH_SQLITE or
// WIKIFETCH_STORAGE_SQLITE_PATH environment variables, then the first
// existing well-known cache file.
func ResolveSQLitePath(override string) (string, error) {
	if override != "" {
		return override, nil
	}

	if envPath := strings.TrimSpace(os.Getenv("WIKIFETCH_SQLITE")); envPath != "" {
		return envPath, nil
	}
	if envPath := strings.TrimSpace(os.Getenv("WIKIFETCH_STORAGE_SQLITE_PATH")); envPath != "" {
		return envPath, nil
	}

	for _, candidate := range sqliteCandidates() {
		if _, err := os.Stat(candidate); err == nil {
			return candidate, nil
		}
	}

	return "", errors.New("could not find wikifetch SQLite database; pass --sqlite")
}

func sqliteCandidates() []string {
	candidates := []string{
		"wikifetch.db",
		filepath.Join(".wikifetch", "wikifetch.db"),
	}

	home, err := os.UserHomeDir()
	if err == nil {
		candidates = append(candidates, filepath.Join(home, ".wikifetch", "wikifetch.db"))
	}

	if xdgHome := strings.TrimSpace(os.Getenv("XDG_DATA_HOME")); xdgHome != "" {
		candidates = append(candidates, filepath.Join(xdgHome, "wikifetch", "wikifetch.db"))
	}

	return candidates
}
