package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/theckman/yacspin"

	"github.com/ivlev/multishot/internal/config"
	"github.com/ivlev/multishot/internal/host"
	"github.com/ivlev/multishot/internal/planner"
	"github.com/ivlev/multishot/internal/server"
	"github.com/ivlev/multishot/internal/session"
	"github.com/ivlev/multishot/internal/store"
	"github.com/ivlev/multishot/internal/system"
)

func main() {
	configPtr := flag.String("config", defaultConfigPath(), "Path to the settings file")
	typePtr := flag.String("type", "", "Shot type: panorama, lightfield, multiview, grid (default: from settings)")
	testRunPtr := flag.Bool("test-run", false, "Move the camera and capture, but write nothing")
	servePtr := flag.String("serve", "", "Serve the HTTP control API on this address instead of running one session")
	fpsPtr := flag.Int("fps", 60, "Frame rate of the simulated game")
	widthPtr := flag.Int("width", 1280, "Width")
	heightPtr := flag.Int("height", 720, "Height")
	saveConfigPtr := flag.Bool("save-config", false, "Write the effective settings back to -config")

	flag.Parse()

	settings, err := config.Load(*configPtr)
	if err != nil {
		log.Fatalf("[-] Error loading settings: %v", err)
	}
	if *typePtr != "" {
		settings.ShotType = *typePtr
	}
	kind, err := planner.ParseKind(settings.ShotType)
	if err != nil {
		log.Fatalf("[-] Error: %v", err)
	}

	level := slog.LevelWarn
	if settings.Debug {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	if *saveConfigPtr {
		if err := config.Save(settings, *configPtr); err != nil {
			log.Fatalf("[-] Error saving settings: %v", err)
		}
		fmt.Printf("[*] Settings saved to %s\n", *configPtr)
	}

	system.RaiseFileLimit(2048, logger)

	out, err := settings.Output()
	if err != nil {
		log.Fatalf("[-] Error: %v", err)
	}

	tools := host.NewSimTools(logger)
	renderer := host.NewRenderer(*widthPtr, *heightPtr, tools)
	overlay := host.NewOverlay(20, logger)
	writer := store.NewWriter(settings.WriteWorkers, logger)

	ctrl := session.New(tools, overlay, writer,
		session.WithLogger(logger),
		session.WithMaxEmptyCaptures(settings.MaxEmptyCaptures),
		session.WithDebugPatterns(settings.Debug),
	)
	ctrl.Configure(out)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go host.Loop(ctx, *fpsPtr, renderer, ctrl)

	if *servePtr != "" {
		overlay.OnNotify = func(m string) { fmt.Printf("[*] %s\n", m) }
		if err := serve(ctx, *servePtr, ctrl, settings, logger); err != nil {
			log.Fatalf("[-] Server error: %v", err)
		}
		return
	}

	if err := runOnce(ctx, ctrl, overlay, settings, kind, *testRunPtr); err != nil {
		log.Fatalf("[-] %v", err)
	}
}

func defaultConfigPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "multishot.yaml"
	}
	return filepath.Join(dir, "multishot", "settings.yaml")
}

func serve(ctx context.Context, addr string, ctrl *session.Controller, settings *config.Settings, logger *slog.Logger) error {
	srv := &http.Server{
		Addr:    addr,
		Handler: server.New(ctrl, *settings, logger).Routes(),
	}

	errc := make(chan error, 1)
	go func() {
		fmt.Printf("[*] Listening on %s\n", addr)
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
	case <-ctx.Done():
	}

	shutdown, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdown); err != nil {
		logger.Warn("server: shutdown", "err", err)
	}
	return ctrl.Close(shutdown)
}

func start(ctrl *session.Controller, settings *config.Settings, kind planner.Kind, testRun bool) error {
	switch kind {
	case planner.HorizontalPanorama:
		return ctrl.StartPanorama(settings.PanoTotalAngle, settings.PanoOverlap, settings.PanoCurrentFoV, testRun)
	case planner.Lightfield:
		return ctrl.StartLightfield(settings.LightfieldStep, settings.LightfieldShots, testRun)
	case planner.MultiView:
		return ctrl.StartMultiView(settings.MultiViewShots, testRun)
	case planner.CalibrationGrid:
		return ctrl.StartCalibrationGrid()
	}
	return fmt.Errorf("unsupported shot type %v", kind)
}

func runOnce(ctx context.Context, ctrl *session.Controller, overlay *host.Overlay, settings *config.Settings, kind planner.Kind, testRun bool) error {
	spinner, err := yacspin.New(yacspin.Config{
		Frequency:         100 * time.Millisecond,
		CharSet:           yacspin.CharSets[14],
		Suffix:            " ",
		SuffixAutoColon:   true,
		Message:           kind.String(),
		StopCharacter:     "[+++]",
		StopFailCharacter: "[!]",
	})
	if err != nil {
		return fmt.Errorf("creating spinner: %w", err)
	}
	overlay.OnNotify = func(m string) { spinner.Message(m) }

	if err := start(ctrl, settings, kind, testRun); err != nil {
		return fmt.Errorf("session couldn't be started: %w", err)
	}
	if err := spinner.Start(); err != nil {
		return fmt.Errorf("starting spinner: %w", err)
	}

	done := make(chan error, 1)
	go func() { done <- ctrl.Wait(context.Background()) }()

	ticker := time.NewTicker(250 * time.Millisecond)
	defer ticker.Stop()

	interrupted := false
	stopping := ctx.Done()
Loop:
	for {
		select {
		case <-done:
			break Loop
		case <-stopping:
			interrupted = true
			stopping = nil
			spinner.Message("canceling")
			ctrl.Cancel()
		case <-ticker.C:
			if st := ctrl.Status(); st.State == session.InSession {
				spinner.Message(fmt.Sprintf("%s shot %d of %d", st.Kind, st.Taken, st.Shots))
			}
		}
	}

	closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := ctrl.Close(closeCtx); err != nil {
		return err
	}

	if interrupted {
		spinner.StopFailMessage("canceled")
		return spinner.StopFail()
	}
	if testRun || kind == planner.CalibrationGrid {
		spinner.StopMessage("test run completed")
		return spinner.Stop()
	}

	folder, err := store.FindLatestSession(settings.Folder, kind.String())
	if err != nil {
		spinner.StopFailMessage("no shots were written")
		spinner.StopFail()
		return err
	}
	shots, err := store.ListShots(folder, ctrl.Output().FileType)
	if err != nil {
		spinner.StopFail()
		return err
	}
	spinner.StopMessage(fmt.Sprintf("%d %s shots written to %s", len(shots), kind, folder))
	return spinner.Stop()
}
