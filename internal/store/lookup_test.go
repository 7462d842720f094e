package store

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/ivlev/multishot/internal/config"
)

func TestFindLatestSession(t *testing.T) {
	root := t.TempDir()
	names := []string{
		"MultiView-2025-01-01-00-00-00",
		"Lightfield-2025-01-02-00-00-00",
		"HorizontalPanorama-2025-01-03-00-00-00",
	}
	for i, name := range names {
		dir := filepath.Join(root, name)
		if err := os.MkdirAll(dir, 0755); err != nil {
			t.Fatal(err)
		}
		mod := time.Now().Add(time.Duration(i-5) * time.Hour)
		os.Chtimes(dir, mod, mod)
	}
	os.MkdirAll(filepath.Join(root, "holiday-photos"), 0755)

	tests := []struct {
		name string
		want string
	}{
		{"", names[2]},
		{"Lightfield", names[1]},
		{"MultiView", names[0]},
	}
	for _, tt := range tests {
		got, err := FindLatestSession(root, tt.name)
		if err != nil {
			t.Errorf("FindLatestSession(%q) failed: %v", tt.name, err)
			continue
		}
		if got != filepath.Join(root, tt.want) {
			t.Errorf("FindLatestSession(%q): expected %s, got %s", tt.name, tt.want, got)
		}
	}

	if _, err := FindLatestSession(root, "DebugGrid"); err == nil {
		t.Error("Expected error when no folder matches")
	}
}

func TestListShotsAfterDrain(t *testing.T) {
	frames := testFrames(12, 2, 2)
	res, err := NewWriter(4, nil).Drain(context.Background(), Batch{
		Name: "Lightfield", Started: time.Now(), Root: t.TempDir(), FileType: config.Jpeg, Frames: frames,
	})
	if err != nil {
		t.Fatalf("Drain failed: %v", err)
	}
	os.WriteFile(filepath.Join(res.Folder, "notes.txt"), []byte("x"), 0644)

	shots, err := ListShots(res.Folder, config.Jpeg)
	if err != nil {
		t.Fatalf("ListShots failed: %v", err)
	}
	if len(shots) != 12 {
		t.Fatalf("Expected 12 shots, got %d", len(shots))
	}
	for i, path := range shots {
		if filepath.Base(path) != FileName(i, config.Jpeg) {
			t.Errorf("Shot %d: expected %s, got %s", i, FileName(i, config.Jpeg), filepath.Base(path))
		}
	}
}
