package planner

import (
	"fmt"
	"math"
)

// Kind identifies a shot pattern
type Kind int

const (
	HorizontalPanorama Kind = iota
	Lightfield
	MultiView
	CalibrationGrid
)

// String returns the display name used for folders and notifications
func (k Kind) String() string {
	switch k {
	case HorizontalPanorama:
		return "HorizontalPanorama"
	case Lightfield:
		return "Lightfield"
	case MultiView:
		return "MultiView"
	case CalibrationGrid:
		return "DebugGrid"
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// ToolsKind returns the session kind announced to the camera tools.
// The camera tools have no grid mode, so the grid runs as a multi-shot session.
func (k Kind) ToolsKind() Kind {
	if k == CalibrationGrid {
		return Lightfield
	}
	return k
}

// ParseKind maps a settings/CLI name to a Kind
func ParseKind(s string) (Kind, error) {
	switch s {
	case "panorama", "HorizontalPanorama":
		return HorizontalPanorama, nil
	case "lightfield", "multishot", "Lightfield":
		return Lightfield, nil
	case "multiview", "MultiView":
		return MultiView, nil
	case "grid", "DebugGrid":
		return CalibrationGrid, nil
	}
	return 0, fmt.Errorf("unknown shot type %q", s)
}

// Camera receives relative movement commands. The implementation owns absolute
// positioning and divides by its own movement speed.
type Camera interface {
	MoveRelative(dx, dy, dz float64, absolute bool)
	RotateRelative(pitch, yaw, roll float64)
}

// Pattern computes the camera commands for one shot session.
//
// Begin is issued once before the first shot. Step is issued after each shot
// except the last one; next is the index of the shot about to be taken.
type Pattern interface {
	Kind() Kind
	Shots() int
	Begin(cam Camera)
	Step(cam Camera, next int)
}

func degreesToRadians(deg float64) float64 {
	return deg * math.Pi / 180.0
}

// MaxShots caps the number of shots of one session
const MaxShots = 1000

// PanoramaStep returns the angle per step in degrees and the number of shots
// needed to sweep totalFoV with the given overlap. shots is 0 when the sweep
// can't be done within MaxShots.
func PanoramaStep(totalFoV, overlapPct, currentFoV float64) (angle float64, shots int) {
	angle = currentFoV * ((100.0 - overlapPct) / 100.0)
	if !(angle > 0) {
		return 0, 0
	}
	// tolerate float noise on exact multiples, 110/8 must stay 13.75 and 80/8 must stay 10
	n := math.Ceil(totalFoV/angle-1e-9) + 1
	if !(n >= 1 && n <= MaxShots) {
		return angle, 0
	}
	return angle, int(n)
}

// GridOffsets returns the horizontal and vertical displacement of a grid shot.
// The grid is 5 columns by 3 rows, 10 units apart, starting at (-20, -20).
func GridOffsets(shot int) (horizontal, vertical float64) {
	vertical = -20 + 10*float64(shot/5)
	horizontal = -20 + 10*float64(shot%5)
	return horizontal, vertical
}

// GridDepth returns the depth displacement of a grid shot, 10 units per
// column. The home move uses shot -1.
func GridDepth(shot int) float64 {
	return 10 * float64(shot%5)
}
