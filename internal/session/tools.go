package session

import (
	"context"
	"errors"

	"github.com/ivlev/multishot/internal/planner"
	"github.com/ivlev/multishot/internal/store"
)

// StartResult is the camera tools' answer to a session start
type StartResult int

const (
	StartOk StartResult = iota
	StartCameraNotEnabled
	StartCameraPathPlaying
	StartAlreadyActive
	StartFeatureUnavailable
)

var (
	ErrToolsNotConnected        = errors.New("camera tools not connected")
	ErrCameraNotEnabled         = errors.New("camera not enabled")
	ErrCameraPathPlaying        = errors.New("camera path playing")
	ErrSessionAlreadyActive     = errors.New("session already active in camera tools")
	ErrCameraFeatureUnavailable = errors.New("camera feature not available")
	ErrUnknownStartResult       = errors.New("unknown start result")
	ErrBusy                     = errors.New("a session is already running")
	ErrDebugOnly                = errors.New("pattern only available in debug mode")
	ErrInvalidPattern           = errors.New("invalid shot pattern")
	ErrClosed                   = errors.New("controller closed")
)

// Err maps a refusal to its sentinel error, nil for StartOk
func (r StartResult) Err() error {
	switch r {
	case StartOk:
		return nil
	case StartCameraNotEnabled:
		return ErrCameraNotEnabled
	case StartCameraPathPlaying:
		return ErrCameraPathPlaying
	case StartAlreadyActive:
		return ErrSessionAlreadyActive
	case StartFeatureUnavailable:
		return ErrCameraFeatureUnavailable
	}
	return ErrUnknownStartResult
}

// Reason is the user facing explanation of a refusal
func (r StartResult) Reason() string {
	switch r {
	case StartCameraNotEnabled:
		return "you haven't enabled the camera."
	case StartCameraPathPlaying:
		return "there's a camera path playing."
	case StartAlreadyActive:
		return "there's already a session active."
	case StartFeatureUnavailable:
		return "the camera feature isn't available in the tools."
	}
	return "Unknown error."
}

// CameraTools is the connector to the camera tools running in the host
type CameraTools interface {
	planner.Camera
	Connected() bool
	StartSession(kind planner.Kind) StartResult
	EndSession()
}

// Notifier shows a message to the user. Delivery is best effort.
type Notifier interface {
	Notify(message string)
}

// NotifierFunc adapts a function to Notifier
type NotifierFunc func(message string)

func (f NotifierFunc) Notify(message string) { f(message) }

// Persister writes the frames of a finished session
type Persister interface {
	Drain(ctx context.Context, b store.Batch) (store.Result, error)
}
