package transport

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// lockfileNames are the spellings the client has used across patches.
var lockfileNames = []string{"lockfile", "LeagueClientUx.lockfile", "LeagueClient.lockfile"}

type lockfileInfo struct {
	Port     int
	Password string
}

// readLockfile locates and parses the client lockfile under the league
// directory. Format: name:pid:port:password:protocol.
func readLockfile(leaguePath string) (lockfileInfo, error) {
	for _, name := range lockfileNames {
		data, err := os.ReadFile(filepath.Join(leaguePath, name))
		if err != nil {
			continue
		}
		info, err := parseLockfile(string(data))
		if err != nil {
			continue
		}
		return info, nil
	}
	return lockfileInfo{}, fmt.Errorf("no lockfile under %s: %w", leaguePath, ErrUnavailable)
}

func parseLockfile(contents string) (lockfileInfo, error) {
	parts := strings.Split(strings.TrimSpace(contents), ":")
	if len(parts) < 5 {
		return lockfileInfo{}, fmt.Errorf("lockfile has %d fields, want 5", len(parts))
	}
	port, err := strconv.Atoi(parts[2])
	if err != nil {
		return lockfileInfo{}, fmt.Errorf("lockfile port: %w", err)
	}
	return lockfileInfo{Port: port, Password: parts[3]}, nil
}
