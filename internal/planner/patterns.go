package planner

import (
	"fmt"
	"math"
	"math/rand"
)

const (
	gridColumns = 5
	gridRows    = 3
	gridShots   = gridColumns * gridRows

	multiViewRange = 10.0
)

// Panorama rotates the camera from the far left of the total field of view to
// the far right, one overlapping step at a time. Angles are radians.
type Panorama struct {
	TotalFoV     float64
	CurrentFoV   float64
	Overlap      float64
	AnglePerStep float64
	shots        int
}

// NewPanorama builds a panorama pattern from angles in degrees
func NewPanorama(totalFoVDeg, overlapPct, currentFoVDeg float64) (*Panorama, error) {
	if !(totalFoVDeg > 0) || !(currentFoVDeg > 0) {
		return nil, fmt.Errorf("panorama needs a positive field of view (total %.2f, current %.2f)", totalFoVDeg, currentFoVDeg)
	}
	if !(overlapPct >= 0 && overlapPct < 100) {
		return nil, fmt.Errorf("panorama overlap must be in [0, 100), got %.2f", overlapPct)
	}
	angle, shots := PanoramaStep(totalFoVDeg, overlapPct, currentFoVDeg)
	if shots == 0 {
		return nil, fmt.Errorf("panorama of %.2f degrees at %.2f%% overlap needs more than %d shots", totalFoVDeg, overlapPct, MaxShots)
	}
	return &Panorama{
		TotalFoV:     degreesToRadians(totalFoVDeg),
		CurrentFoV:   degreesToRadians(currentFoVDeg),
		Overlap:      overlapPct,
		AnglePerStep: degreesToRadians(angle),
		shots:        shots,
	}, nil
}

func (p *Panorama) Kind() Kind { return HorizontalPanorama }
func (p *Panorama) Shots() int { return p.shots }

// Begin centers the sweep with one large rotation to the left
func (p *Panorama) Begin(cam Camera) {
	cam.RotateRelative(0, -0.5*p.AnglePerStep*float64(p.shots), 0)
}

func (p *Panorama) Step(cam Camera, next int) {
	cam.RotateRelative(0, p.AnglePerStep, 0)
}

// LightfieldRow translates the camera along one axis, no rotation
type LightfieldRow struct {
	DistancePerStep float64
	shots           int
}

func NewLightfield(distancePerStep float64, shots int) (*LightfieldRow, error) {
	if err := checkShots("lightfield", shots); err != nil {
		return nil, err
	}
	if distancePerStep == 0 || math.IsNaN(distancePerStep) || math.IsInf(distancePerStep, 0) {
		return nil, fmt.Errorf("lightfield distance per step must be a non-zero number, got %v", distancePerStep)
	}
	return &LightfieldRow{DistancePerStep: distancePerStep, shots: shots}, nil
}

func (l *LightfieldRow) Kind() Kind { return Lightfield }
func (l *LightfieldRow) Shots() int { return l.shots }

func (l *LightfieldRow) Begin(cam Camera) {
	cam.MoveRelative(-0.5*l.DistancePerStep*float64(l.shots), 0, 0, false)
}

func (l *LightfieldRow) Step(cam Camera, next int) {
	cam.MoveRelative(l.DistancePerStep, 0, 0, false)
}

// RandomViews samples independent random offsets for every shot. There is no
// start move: the first shot is taken from the current camera position.
type RandomViews struct {
	rnd   *rand.Rand
	shots int
}

// NewMultiView builds a random-view pattern. A nil rnd is replaced with a
// source seeded from the clock.
func NewMultiView(shots int, rnd *rand.Rand) (*RandomViews, error) {
	if err := checkShots("multi view", shots); err != nil {
		return nil, err
	}
	if rnd == nil {
		rnd = rand.New(rand.NewSource(rand.Int63()))
	}
	return &RandomViews{rnd: rnd, shots: shots}, nil
}

func (m *RandomViews) Kind() Kind { return MultiView }
func (m *RandomViews) Shots() int { return m.shots }
func (m *RandomViews) Begin(cam Camera) {}

func (m *RandomViews) Step(cam Camera, next int) {
	x, y, z := m.draw(), m.draw(), m.draw()
	pitch, yaw := m.draw(), m.draw()
	cam.MoveRelative(x, y, z, false)
	cam.RotateRelative(pitch, yaw, 0)
}

// draw returns a uniform value in the half-open range [-10, 10), 10 itself is
// never drawn
func (m *RandomViews) draw() float64 {
	return m.rnd.Float64()*2*multiViewRange - multiViewRange
}

// Grid is the fixed 15 shot calibration raster
type Grid struct{}

func NewGrid() *Grid { return &Grid{} }

func (g *Grid) Kind() Kind { return CalibrationGrid }
func (g *Grid) Shots() int { return gridShots }

// Begin moves to the grid origin
func (g *Grid) Begin(cam Camera) {
	cam.MoveRelative(-20, -20, GridDepth(-1), true)
}

func (g *Grid) Step(cam Camera, next int) {
	h, v := GridOffsets(next)
	cam.MoveRelative(h, v, GridDepth(next), true)
}

func checkShots(pattern string, shots int) error {
	if shots <= 0 || shots > MaxShots {
		return fmt.Errorf("%s needs between 1 and %d shots, got %d", pattern, MaxShots, shots)
	}
	return nil
}
