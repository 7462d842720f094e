package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/ivlev/multishot/internal/config"
	"github.com/ivlev/multishot/internal/session"
)

type fakeSessions struct {
	err        error
	calls      []string
	args       []interface{}
	running    bool
	configured *config.Output
}

func (f *fakeSessions) record(name string, args ...interface{}) error {
	f.calls = append(f.calls, name)
	f.args = args
	if f.err == nil {
		f.running = true
	}
	return f.err
}

func (f *fakeSessions) StartPanorama(total, overlap, current float64, testRun bool) error {
	return f.record("panorama", total, overlap, current, testRun)
}

func (f *fakeSessions) StartLightfield(distance float64, shots int, testRun bool) error {
	return f.record("lightfield", distance, shots, testRun)
}

func (f *fakeSessions) StartMultiView(shots int, testRun bool) error {
	return f.record("multiview", shots, testRun)
}

func (f *fakeSessions) StartCalibrationGrid() error {
	return f.record("grid")
}

func (f *fakeSessions) Cancel() bool {
	was := f.running
	f.running = false
	return was
}

func (f *fakeSessions) Configure(out config.Output) bool {
	if f.running {
		return false
	}
	f.configured = &out
	return true
}

func (f *fakeSessions) Status() session.Status {
	if f.running {
		return session.Status{State: session.InSession, Kind: "MultiView", Shots: 2}
	}
	return session.Status{State: session.Off}
}

func serve(t *testing.T, s *fakeSessions, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	srv := New(s, config.Default(), nil)
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	rec := httptest.NewRecorder()
	srv.Routes().ServeHTTP(rec, req)
	return rec
}

func TestStatus(t *testing.T) {
	tests := []struct {
		running bool
		state   string
	}{
		{false, "off"},
		{true, "in-session"},
	}

	for _, tt := range tests {
		rec := serve(t, &fakeSessions{running: tt.running}, http.MethodGet, "/session", "")
		if rec.Code != http.StatusOK {
			t.Fatalf("Expected 200, got %d", rec.Code)
		}
		var st map[string]interface{}
		if err := json.Unmarshal(rec.Body.Bytes(), &st); err != nil {
			t.Fatalf("Bad status body: %v", err)
		}
		if st["state"] != tt.state {
			t.Errorf("Expected state %s, got %v", tt.state, st["state"])
		}
	}
}

func TestStartUsesDefaults(t *testing.T) {
	f := &fakeSessions{}
	rec := serve(t, f, http.MethodPost, "/session/panorama", "")
	if rec.Code != http.StatusCreated {
		t.Fatalf("Expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	d := config.Default()
	want := fmt.Sprint([]interface{}{d.PanoTotalAngle, d.PanoOverlap, d.PanoCurrentFoV, false})
	if got := fmt.Sprint(f.args); got != want {
		t.Errorf("Expected args %s, got %s", want, got)
	}
}

func TestStartWithBody(t *testing.T) {
	tests := []struct {
		path string
		body string
		call string
		args string
	}{
		{"/session/lightfield", `{"distance": 2.5, "shots": 10, "test_run": true}`, "lightfield", "[2.5 10 true]"},
		{"/session/multiview", `{"shots": 7}`, "multiview", "[7 false]"},
		{"/session/panorama", `{"total_fov": 180, "overlap": 50, "current_fov": 60}`, "panorama", "[180 50 60 false]"},
		{"/session/grid", "", "grid", "[]"},
	}

	for _, tt := range tests {
		f := &fakeSessions{}
		rec := serve(t, f, http.MethodPost, tt.path, tt.body)
		if rec.Code != http.StatusCreated {
			t.Errorf("%s: expected 201, got %d", tt.path, rec.Code)
			continue
		}
		if len(f.calls) != 1 || f.calls[0] != tt.call {
			t.Errorf("%s: expected call %s, got %v", tt.path, tt.call, f.calls)
		}
		if got := fmt.Sprint(f.args); got != tt.args {
			t.Errorf("%s: expected args %s, got %s", tt.path, tt.args, got)
		}
	}
}

func TestStartErrors(t *testing.T) {
	tests := []struct {
		err  error
		code int
	}{
		{session.ErrToolsNotConnected, http.StatusServiceUnavailable},
		{session.ErrBusy, http.StatusConflict},
		{fmt.Errorf("%w: %v", session.ErrCameraNotEnabled, "x"), http.StatusConflict},
		{fmt.Errorf("%w: bad overlap", session.ErrInvalidPattern), http.StatusBadRequest},
		{session.ErrDebugOnly, http.StatusForbidden},
		{fmt.Errorf("disk on fire"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		rec := serve(t, &fakeSessions{err: tt.err}, http.MethodPost, "/session/multiview", "")
		if rec.Code != tt.code {
			t.Errorf("%v: expected %d, got %d", tt.err, tt.code, rec.Code)
		}
	}
}

func TestBadBody(t *testing.T) {
	f := &fakeSessions{}
	rec := serve(t, f, http.MethodPost, "/session/lightfield", `{"shots": "many"}`)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("Expected 400, got %d", rec.Code)
	}
	if len(f.calls) != 0 {
		t.Errorf("Controller must not be called on a bad body, got %v", f.calls)
	}
}

func TestCancel(t *testing.T) {
	f := &fakeSessions{}
	if rec := serve(t, f, http.MethodDelete, "/session", ""); rec.Code != http.StatusConflict {
		t.Errorf("Expected 409 without a session, got %d", rec.Code)
	}
	f.running = true
	if rec := serve(t, f, http.MethodDelete, "/session", ""); rec.Code != http.StatusAccepted {
		t.Errorf("Expected 202, got %d", rec.Code)
	}
}

func TestConfigure(t *testing.T) {
	f := &fakeSessions{}
	dir := t.TempDir()
	rec := serve(t, f, http.MethodPut, "/config", fmt.Sprintf(`{"folder": %q, "frames_to_wait": 3, "file_type": "bmp"}`, dir))
	if rec.Code != http.StatusNoContent {
		t.Fatalf("Expected 204, got %d: %s", rec.Code, rec.Body.String())
	}
	want := config.Output{RootFolder: dir, FramesToWait: 3, FileType: config.Bmp}
	if f.configured == nil || *f.configured != want {
		t.Errorf("Expected %+v, got %+v", want, f.configured)
	}

	if rec := serve(t, f, http.MethodPut, "/config", `{"file_type": "gif"}`); rec.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 for an unknown file type, got %d", rec.Code)
	}

	f.running = true
	if rec := serve(t, f, http.MethodPut, "/config", `{"frames_to_wait": 2}`); rec.Code != http.StatusConflict {
		t.Errorf("Expected 409 while running, got %d", rec.Code)
	}
}
