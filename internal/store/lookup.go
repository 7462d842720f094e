package store

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/ivlev/multishot/internal/config"
)

// FindLatestSession returns the most recent session folder of the named shot
// type under root. An empty name matches every shot type.
func FindLatestSession(root, name string) (string, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %w", root, err)
	}

	var (
		latest     string
		latestTime time.Time
	)
	for _, entry := range entries {
		if !entry.IsDir() || !isSessionFolder(entry.Name(), name) {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		if latest == "" || info.ModTime().After(latestTime) {
			latest = filepath.Join(root, entry.Name())
			latestTime = info.ModTime()
		}
	}

	if latest == "" {
		return "", fmt.Errorf("no session folders found in %s", root)
	}
	return latest, nil
}

// isSessionFolder matches <name>-YYYY-MM-DD-HH-mm-ss
func isSessionFolder(folder, name string) bool {
	const stamp = "2006-01-02-15-04-05"
	if len(folder) <= len(stamp)+1 {
		return false
	}
	prefix, ts := folder[:len(folder)-len(stamp)-1], folder[len(folder)-len(stamp):]
	if folder[len(prefix)] != '-' {
		return false
	}
	if name != "" && prefix != name {
		return false
	}
	_, err := time.Parse(stamp, ts)
	return err == nil
}

// ListShots returns the shot files of a session folder in capture order
func ListShots(folder string, ft config.FileType) ([]string, error) {
	entries, err := os.ReadDir(folder)
	if err != nil {
		return nil, err
	}

	ext := "." + ft.Ext()
	type shot struct {
		index int
		path  string
	}
	var shots []shot
	for _, entry := range entries {
		base, ok := strings.CutSuffix(entry.Name(), ext)
		if entry.IsDir() || !ok {
			continue
		}
		i, err := strconv.Atoi(base)
		if err != nil || i < 0 {
			continue
		}
		shots = append(shots, shot{index: i, path: filepath.Join(folder, entry.Name())})
	}

	sort.Slice(shots, func(i, j int) bool {
		return shots[i].index < shots[j].index
	})
	paths := make([]string, len(shots))
	for i, s := range shots {
		paths[i] = s.path
	}
	return paths, nil
}
