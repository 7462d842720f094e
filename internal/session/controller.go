package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ivlev/multishot/internal/capture"
	"github.com/ivlev/multishot/internal/config"
	"github.com/ivlev/multishot/internal/planner"
	"github.com/ivlev/multishot/internal/store"
	"github.com/ivlev/multishot/internal/system"
)

// Controller runs one shot session at a time.
//
// The host calls EffectsRendered and Present from its render thread. Start,
// Cancel, Configure and Status may be called from any goroutine. Each session
// gets a watcher goroutine that waits until the session leaves InSession and
// then persists the frames, so disk IO never runs on the render thread.
type Controller struct {
	tools     CameraTools
	notifier  Notifier
	persister Persister
	log       *slog.Logger
	rnd       *rand.Rand
	now       func() time.Time
	memory    system.MemoryProbe
	maxEmpty  int
	debug     bool

	mu     sync.Mutex
	state  State
	out    config.Output
	run    *run
	closed bool
	wg     sync.WaitGroup
}

// run is the mutable part of one session
type run struct {
	id      string
	kind    planner.Kind
	testRun bool
	started time.Time
	out     config.Output
	sink    *capture.Sink
	log     *slog.Logger

	// settled is closed when the session leaves InSession
	settled chan struct{}
	ended   bool
	warned  bool
	ctx     context.Context
	cancel  context.CancelFunc
}

// Status is a snapshot of the controller
type Status struct {
	State     State  `json:"state"`
	SessionID string `json:"session_id,omitempty"`
	Kind      string `json:"kind,omitempty"`
	Taken     int    `json:"taken"`
	Shots     int    `json:"shots"`
	TestRun   bool   `json:"test_run"`
}

// Option configures a Controller
type Option func(*Controller)

func WithLogger(l *slog.Logger) Option {
	return func(c *Controller) { c.log = l }
}

// WithRand sets the randomness used by the multi-view pattern
func WithRand(r *rand.Rand) Option {
	return func(c *Controller) { c.rnd = r }
}

func WithClock(now func() time.Time) Option {
	return func(c *Controller) { c.now = now }
}

// WithMemoryProbe replaces the probe used to warn about oversized sessions.
// nil disables the check.
func WithMemoryProbe(p system.MemoryProbe) Option {
	return func(c *Controller) { c.memory = p }
}

// WithMaxEmptyCaptures aborts a session after n consecutive empty captures.
// 0 never aborts.
func WithMaxEmptyCaptures(n int) Option {
	return func(c *Controller) { c.maxEmpty = n }
}

// WithDebugPatterns enables the calibration grid
func WithDebugPatterns(enabled bool) Option {
	return func(c *Controller) { c.debug = enabled }
}

// New creates an idle controller
func New(tools CameraTools, notifier Notifier, persister Persister, opts ...Option) *Controller {
	c := &Controller{
		tools:     tools,
		notifier:  notifier,
		persister: persister,
		log:       slog.Default(),
		now:       time.Now,
		memory:    system.AvailableMemory,
		maxEmpty:  30,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.rnd == nil {
		c.rnd = rand.New(rand.NewSource(c.now().UnixNano()))
	}
	if c.notifier == nil {
		c.notifier = NotifierFunc(func(string) {})
	}
	return c
}

// Configure sets the output configuration. It is ignored while a session is
// running; the return value reports whether it was applied.
func (c *Controller) Configure(out config.Output) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != Off {
		c.log.Debug("session: configure ignored, session running", "state", c.state)
		return false
	}
	if out.FramesToWait < 0 {
		out.FramesToWait = 0
	}
	c.out = out
	return true
}

// Output returns the current output configuration
func (c *Controller) Output() config.Output {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.out
}

// StartPanorama sweeps totalFoVDeg horizontally, overlapping each shot by
// overlapPct of the current field of view.
func (c *Controller) StartPanorama(totalFoVDeg, overlapPct, currentFoVDeg float64, testRun bool) error {
	p, err := planner.NewPanorama(totalFoVDeg, overlapPct, currentFoVDeg)
	if err != nil {
		return c.rejectPattern(err)
	}
	return c.start(p, testRun)
}

// StartLightfield takes shots frames moving distancePerStep sideways between them
func (c *Controller) StartLightfield(distancePerStep float64, shots int, testRun bool) error {
	p, err := planner.NewLightfield(distancePerStep, shots)
	if err != nil {
		return c.rejectPattern(err)
	}
	return c.start(p, testRun)
}

// StartMultiView takes shots frames from random nearby viewpoints
func (c *Controller) StartMultiView(shots int, testRun bool) error {
	p, err := planner.NewMultiView(shots, c.rnd)
	if err != nil {
		return c.rejectPattern(err)
	}
	return c.start(p, testRun)
}

// StartCalibrationGrid runs the fixed 15 shot grid. It never writes to disk.
func (c *Controller) StartCalibrationGrid() error {
	if !c.debug {
		c.log.Warn("session: calibration grid requested outside debug mode")
		return ErrDebugOnly
	}
	return c.start(planner.NewGrid(), true)
}

func (c *Controller) rejectPattern(err error) error {
	c.notifier.Notify("Screenshot session couldn't be started: " + err.Error())
	return fmt.Errorf("%w: %v", ErrInvalidPattern, err)
}

func (c *Controller) start(p planner.Pattern, testRun bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return ErrClosed
	}
	if !c.tools.Connected() {
		c.log.Warn("session: start rejected, camera tools not connected", "kind", p.Kind())
		c.notifier.Notify("Screenshot session couldn't be started: the camera tools aren't connected.")
		return ErrToolsNotConnected
	}
	if c.state != Off {
		c.log.Warn("session: start rejected, session running", "kind", p.Kind(), "state", c.state)
		return ErrBusy
	}

	// everything that can fail is built before the camera tools commit
	id := uuid.NewString()
	log := c.log.With("session", id, "kind", p.Kind().String())
	sink := capture.NewSink(p, c.tools, c.out.FramesToWait, log)

	res := c.tools.StartSession(p.Kind().ToolsKind())
	if err := res.Err(); err != nil {
		c.log.Warn("session: camera tools refused session", "kind", p.Kind(), "err", err)
		c.notifier.Notify("Screenshot session couldn't be started: " + res.Reason())
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	r := &run{
		id:      id,
		kind:    p.Kind(),
		testRun: testRun,
		started: c.now(),
		out:     c.out,
		sink:    sink,
		log:     log,
		settled: make(chan struct{}),
		ctx:     ctx,
		cancel:  cancel,
	}

	r.sink.Begin()
	c.run = r
	c.transition(InSession)

	c.wg.Add(1)
	go c.watch(r)

	log.Info("session: started", "shots", p.Shots(), "test_run", testRun, "wait", c.out.FramesToWait)
	return nil
}

// transition moves the state machine; callers hold c.mu
func (c *Controller) transition(to State) bool {
	from := c.state
	if !CanTransition(from, to) {
		c.log.Error("session: illegal transition", "from", from, "to", to)
		return false
	}
	c.state = to
	if from == InSession && c.run != nil {
		close(c.run.settled)
	}
	c.log.Debug("session: state changed", "from", from, "to", to)
	return true
}

// ShouldTakeShot reports whether the next rendered frame will be captured
func (c *Controller) ShouldTakeShot() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.shouldTakeShot()
}

func (c *Controller) shouldTakeShot() bool {
	return c.state == InSession && c.run.sink.Eligible()
}

// EffectsRendered is called by the host once the effects of a frame are
// rendered. When the camera has settled the frame is captured.
func (c *Controller) EffectsRendered(fb capture.Framebuffer) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.shouldTakeShot() {
		return
	}
	r := c.run
	switch r.sink.Grab(fb) {
	case capture.Dropped:
		streak := r.sink.EmptyStreak()
		r.log.Debug("session: empty capture dropped", "streak", streak)
		if c.maxEmpty > 0 && streak >= c.maxEmpty {
			r.log.Error("session: aborting, captures keep coming back empty", "streak", streak)
			c.notifier.Notify(fmt.Sprintf("Screenshot session aborted: %d captures in a row failed.", streak))
			c.cancelLocked()
		}
	case capture.Stored:
		r.log.Debug("session: shot taken", "shot", r.sink.Taken(), "of", r.sink.Shots())
		c.checkMemory(r)
	case capture.Complete:
		r.log.Info("session: all shots taken", "shots", r.sink.Taken())
		c.transition(SavingShots)
	}
}

// Present is called by the host once per presented frame
func (c *Controller) Present() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state == InSession {
		c.run.sink.Presented()
	}
}

// checkMemory warns once when the full session won't fit into memory
func (c *Controller) checkMemory(r *run) {
	if r.warned || c.memory == nil {
		return
	}
	r.warned = true
	w, h := r.sink.Dimensions()
	ok, need, avail := system.FitsInMemory(c.memory, w, h, r.sink.Shots())
	if ok {
		return
	}
	r.log.Warn("session: frames may not fit into memory", "need", need, "available", avail)
	c.notifier.Notify(fmt.Sprintf("Warning: this session needs %s for its shots, only %s is available.",
		system.FormatBytes(need), system.FormatBytes(avail)))
}

// Cancel stops the running session. Frames already gathered are discarded; a
// drain in progress stops before its next file. Returns false when idle.
func (c *Controller) Cancel() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cancelLocked()
}

func (c *Controller) cancelLocked() bool {
	r := c.run
	switch c.state {
	case InSession:
		c.tools.EndSession()
		r.ended = true
		c.transition(Canceling)
	case SavingShots:
		c.transition(Canceling)
		r.cancel()
	default:
		return false
	}
	r.log.Info("session: cancel requested", "taken", r.sink.Taken())
	return true
}

// watch waits for the session to settle, persists it and resets to Off
func (c *Controller) watch(r *run) {
	defer c.wg.Done()
	defer r.cancel()

	<-r.settled

	c.mu.Lock()
	if !r.ended {
		c.tools.EndSession()
		r.ended = true
	}
	canceled := c.state == Canceling
	var frames []capture.Frame
	if !canceled && !r.testRun {
		frames = r.sink.Frames()
	}
	c.mu.Unlock()

	name := r.kind.String()
	switch {
	case canceled:
		r.log.Info("session: canceled, discarding shots")
	case r.testRun:
		c.notifier.Notify("Test run completed.")
	default:
		c.notifier.Notify(fmt.Sprintf("All %s shots have been taken. Writing shots to disk...", name))
		c.persist(r, frames)
	}

	c.mu.Lock()
	c.transition(Off)
	c.run = nil
	c.mu.Unlock()
	r.log.Info("session: finished")
}

func (c *Controller) persist(r *run, frames []capture.Frame) {
	name := r.kind.String()
	res, err := c.persister.Drain(r.ctx, store.Batch{
		Session:  r.id,
		Name:     name,
		Started:  r.started,
		Root:     r.out.RootFolder,
		FileType: r.out.FileType,
		Frames:   frames,
	})
	switch {
	case err == nil:
		r.log.Info("session: shots written", "folder", res.Folder, "written", res.Written)
		c.notifier.Notify(name + " done.")
	case errors.Is(err, context.Canceled):
		r.log.Info("session: writing canceled", "folder", res.Folder, "written", res.Written)
	default:
		r.log.Error("session: writing shots failed", "folder", res.Folder, "written", res.Written, "failed", res.Failed, "err", err)
		c.notifier.Notify(fmt.Sprintf("%s: only %d of %d shots were written to %s.", name, res.Written, len(frames), res.Folder))
	}
}

// Status returns a snapshot of the controller
func (c *Controller) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()

	st := Status{State: c.state}
	if r := c.run; r != nil {
		st.SessionID = r.id
		st.Kind = r.kind.String()
		st.Taken = r.sink.Taken()
		st.Shots = r.sink.Shots()
		st.TestRun = r.testRun
	}
	return st
}

// Wait blocks until every session watcher has finished or ctx is done
func (c *Controller) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		c.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close cancels any running session, refuses new ones and waits for the
// watcher to finish.
func (c *Controller) Close(ctx context.Context) error {
	c.mu.Lock()
	c.closed = true
	c.cancelLocked()
	c.mu.Unlock()

	return c.Wait(ctx)
}
