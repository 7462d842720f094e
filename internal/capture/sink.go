package capture

import (
	"log/slog"

	"github.com/ivlev/multishot/internal/planner"
	"github.com/ivlev/multishot/internal/system"
)

// Outcome tells the controller what an ingest did
type Outcome int

const (
	// Dropped: the capture came back empty, nothing changed
	Dropped Outcome = iota
	// Stored: the frame was kept and the camera moved to the next step
	Stored
	// Complete: the frame was kept and it was the last one
	Complete
)

func (o Outcome) String() string {
	switch o {
	case Dropped:
		return "dropped"
	case Stored:
		return "stored"
	case Complete:
		return "complete"
	}
	return "unknown"
}

// Sink gathers the frames of one session and drives the pattern between shots.
//
// A Sink is not safe for concurrent use. The session controller serializes
// access to it.
type Sink struct {
	pattern planner.Pattern
	camera  planner.Camera
	wait    int
	log     *slog.Logger

	skip   int
	taken  int
	frames []Frame
	width  int
	height int
	empty  int
}

// NewSink creates a sink for one session. wait is the number of presented
// frames to skip after every camera move.
func NewSink(pattern planner.Pattern, camera planner.Camera, wait int, log *slog.Logger) *Sink {
	if wait < 0 {
		wait = 0
	}
	if log == nil {
		log = slog.Default()
	}
	return &Sink{
		pattern: pattern,
		camera:  camera,
		wait:    wait,
		log:     log,
	}
}

// Begin moves the camera to the first position and arms the skip counter
func (s *Sink) Begin() {
	s.pattern.Begin(s.camera)
	s.skip = s.wait
}

// Eligible reports whether the camera has settled long enough for a shot
func (s *Sink) Eligible() bool {
	return s.skip == 0
}

// Presented counts down one presented frame
func (s *Sink) Presented() {
	if s.skip > 0 {
		s.skip--
	}
}

// Grab captures the framebuffer and ingests it
func (s *Sink) Grab(fb Framebuffer) Outcome {
	w, h := fb.Size()
	if w <= 0 || h <= 0 {
		return s.Ingest(nil, 0, 0)
	}
	scratch := system.GetBuffer(w * h * 4)
	defer system.PutBuffer(scratch)

	n, err := fb.Capture(scratch)
	if err != nil {
		s.log.Warn("capture: framebuffer read failed", "err", err)
		n = 0
	}
	if n < w*h*4 {
		return s.Ingest(nil, w, h)
	}
	return s.Ingest(scratch, w, h)
}

// Ingest packs an RGBA8 buffer, stores it and either steps the camera or
// reports completion. The buffer is not retained.
func (s *Sink) Ingest(rgba []byte, width, height int) Outcome {
	if s.taken >= s.pattern.Shots() {
		return Complete
	}
	rgb, err := PackRGB(rgba, width*height)
	if err != nil || len(rgba) == 0 {
		s.empty++
		return Dropped
	}
	s.empty = 0

	pix := make([]byte, len(rgb))
	copy(pix, rgb)
	s.width, s.height = width, height
	s.frames = append(s.frames, Frame{Index: s.taken, Width: width, Height: height, Pix: pix})
	s.taken++

	if s.taken >= s.pattern.Shots() {
		return Complete
	}
	s.pattern.Step(s.camera, s.taken)
	s.skip = s.wait
	return Stored
}

// Taken is the number of frames stored so far
func (s *Sink) Taken() int { return s.taken }

// Shots is the session target
func (s *Sink) Shots() int { return s.pattern.Shots() }

// EmptyStreak is the number of consecutive empty captures
func (s *Sink) EmptyStreak() int { return s.empty }

// Dimensions returns the frame size, zero until the first frame is stored
func (s *Sink) Dimensions() (int, int) { return s.width, s.height }

// Frames hands the stored frames over. Later ingests are ignored.
func (s *Sink) Frames() []Frame {
	frames := s.frames
	s.frames = nil
	return frames
}
