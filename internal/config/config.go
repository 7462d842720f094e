package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/ivlev/multishot/internal/planner"
)

// FileType is the codec used for persisted shots
type FileType int

const (
	Bmp FileType = iota
	Jpeg
	Png
)

// Ext returns the file extension without the dot
func (f FileType) Ext() string {
	switch f {
	case Bmp:
		return "bmp"
	case Jpeg:
		return "jpg"
	case Png:
		return "png"
	}
	return "bin"
}

func (f FileType) String() string {
	switch f {
	case Bmp:
		return "bmp"
	case Jpeg:
		return "jpeg"
	case Png:
		return "png"
	}
	return fmt.Sprintf("FileType(%d)", int(f))
}

// ParseFileType accepts "bmp", "jpg"/"jpeg" and "png", case insensitive
func ParseFileType(s string) (FileType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "bmp":
		return Bmp, nil
	case "jpg", "jpeg":
		return Jpeg, nil
	case "png":
		return Png, nil
	}
	return 0, fmt.Errorf("unknown file type %q (bmp, jpeg, png)", s)
}

// Output is the configuration the session controller consumes. It is fixed for
// the duration of a session.
type Output struct {
	RootFolder   string
	FramesToWait int
	FileType     FileType
}

// Settings is the user facing, persisted shot configuration
type Settings struct {
	ShotType         string  `koanf:"shot_type" yaml:"shot_type"`
	FileType         string  `koanf:"file_type" yaml:"file_type"`
	FramesToWait     int     `koanf:"frames_to_wait" yaml:"frames_to_wait"`
	LightfieldStep   float64 `koanf:"lightfield_distance" yaml:"lightfield_distance"`
	LightfieldShots  int     `koanf:"lightfield_shots" yaml:"lightfield_shots"`
	PanoTotalAngle   float64 `koanf:"pano_total_angle" yaml:"pano_total_angle"`
	PanoOverlap      float64 `koanf:"pano_overlap" yaml:"pano_overlap"`
	PanoCurrentFoV   float64 `koanf:"pano_current_fov" yaml:"pano_current_fov"`
	MultiViewShots   int     `koanf:"multiview_shots" yaml:"multiview_shots"`
	Folder           string  `koanf:"folder" yaml:"folder"`
	MaxEmptyCaptures int     `koanf:"max_empty_captures" yaml:"max_empty_captures"`
	WriteWorkers     int     `koanf:"write_workers" yaml:"write_workers"`
	Debug            bool    `koanf:"debug" yaml:"debug"`
}

// Default returns the settings used when nothing else is configured
func Default() Settings {
	return Settings{
		ShotType:         "multiview",
		FileType:         "jpeg",
		FramesToWait:     1,
		LightfieldStep:   1.0,
		LightfieldShots:  45,
		PanoTotalAngle:   110.0,
		PanoOverlap:      80.0,
		PanoCurrentFoV:   40.0,
		MultiViewShots:   2,
		Folder:           defaultFolder(),
		MaxEmptyCaptures: 30,
		WriteWorkers:     runtime.NumCPU(),
	}
}

func defaultFolder() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return os.TempDir()
	}
	return filepath.Join(home, "Pictures")
}

// Validate checks the settings for values the controller can't work with
func (s Settings) Validate() error {
	if _, err := ParseFileType(s.FileType); err != nil {
		return err
	}
	if s.FramesToWait < 0 {
		return fmt.Errorf("frames_to_wait must be >= 0, got %d", s.FramesToWait)
	}
	if s.LightfieldShots <= 0 || s.LightfieldShots > planner.MaxShots {
		return fmt.Errorf("lightfield_shots must be in [1, %d], got %d", planner.MaxShots, s.LightfieldShots)
	}
	if s.MultiViewShots <= 0 || s.MultiViewShots > planner.MaxShots {
		return fmt.Errorf("multiview_shots must be in [1, %d], got %d", planner.MaxShots, s.MultiViewShots)
	}
	if !(s.PanoOverlap >= 0 && s.PanoOverlap < 100) {
		return fmt.Errorf("pano_overlap must be in [0, 100), got %.2f", s.PanoOverlap)
	}
	if !(s.PanoTotalAngle > 0) || !(s.PanoCurrentFoV > 0) {
		return fmt.Errorf("panorama angles must be > 0")
	}
	if _, shots := planner.PanoramaStep(s.PanoTotalAngle, s.PanoOverlap, s.PanoCurrentFoV); shots == 0 {
		return fmt.Errorf("panorama needs more than %d shots at %.2f%% overlap", planner.MaxShots, s.PanoOverlap)
	}
	if s.Folder == "" {
		return fmt.Errorf("folder can't be empty")
	}
	if s.MaxEmptyCaptures < 0 {
		return fmt.Errorf("max_empty_captures must be >= 0, got %d", s.MaxEmptyCaptures)
	}
	return nil
}

// Output converts the settings into the controller configuration
func (s Settings) Output() (Output, error) {
	ft, err := ParseFileType(s.FileType)
	if err != nil {
		return Output{}, err
	}
	return Output{
		RootFolder:   s.Folder,
		FramesToWait: s.FramesToWait,
		FileType:     ft,
	}, nil
}
