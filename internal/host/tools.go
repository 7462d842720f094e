package host

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/ivlev/multishot/internal/planner"
	"github.com/ivlev/multishot/internal/session"
)

// Pose is the simulated camera position and orientation
type Pose struct {
	X, Y, Z          float64
	Pitch, Yaw, Roll float64
}

func (p Pose) String() string {
	return fmt.Sprintf("x=%.3f y=%.3f z=%.3f pitch=%.3f yaw=%.3f roll=%.3f", p.X, p.Y, p.Z, p.Pitch, p.Yaw, p.Roll)
}

// SimTools stands in for the camera tools running inside the game. It keeps
// a pose that the renderer draws into every frame.
type SimTools struct {
	mu        sync.Mutex
	connected bool
	enabled   bool
	active    bool
	pose      Pose
	origin    Pose
	log       *slog.Logger
}

// NewSimTools returns connected tools with the camera enabled
func NewSimTools(log *slog.Logger) *SimTools {
	if log == nil {
		log = slog.Default()
	}
	return &SimTools{connected: true, enabled: true, log: log}
}

func (s *SimTools) SetConnected(v bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.connected = v
}

func (s *SimTools) SetCameraEnabled(v bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.enabled = v
}

func (s *SimTools) Connected() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.connected
}

func (s *SimTools) StartSession(kind planner.Kind) session.StartResult {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch {
	case !s.enabled:
		return session.StartCameraNotEnabled
	case s.active:
		return session.StartAlreadyActive
	}
	s.active = true
	s.origin = s.pose
	s.log.Debug("tools: session started", "kind", kind)
	return session.StartOk
}

func (s *SimTools) EndSession() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.active = false
	s.log.Debug("tools: session ended", "pose", s.pose.String())
}

// MoveRelative moves the camera. With absolute set the offset is applied to
// the pose the session started from instead of the current pose.
func (s *SimTools) MoveRelative(dx, dy, dz float64, absolute bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	base := s.pose
	if absolute {
		base = s.origin
	}
	s.pose.X, s.pose.Y, s.pose.Z = base.X+dx, base.Y+dy, base.Z+dz
}

func (s *SimTools) RotateRelative(pitch, yaw, roll float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pose.Pitch += pitch
	s.pose.Yaw += yaw
	s.pose.Roll += roll
}

// Pose returns the current camera pose
func (s *SimTools) Pose() Pose {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pose
}
