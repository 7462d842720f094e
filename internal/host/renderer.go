package host

import (
	"context"
	"fmt"
	"image"
	"image/color"
	"sync/atomic"
	"time"

	"github.com/skip2/go-qrcode"
	"golang.org/x/image/draw"

	"github.com/ivlev/multishot/internal/capture"
)

// Renderer produces frames that encode the camera pose as a QR code, so every
// persisted shot can be matched back to the position it was taken from.
type Renderer struct {
	Width, Height int
	tools         *SimTools
	frame         atomic.Int64
	// FailEvery makes every n-th capture come back empty, 0 never fails
	FailEvery int64
}

func NewRenderer(width, height int, tools *SimTools) *Renderer {
	return &Renderer{Width: width, Height: height, tools: tools}
}

func (r *Renderer) Size() (int, int) {
	return r.Width, r.Height
}

// Capture draws the current pose into dst as RGBA8 with a zero alpha channel
func (r *Renderer) Capture(dst []byte) (int, error) {
	n := r.frame.Add(1)
	if r.FailEvery > 0 && n%r.FailEvery == 0 {
		return 0, nil
	}
	need := r.Width * r.Height * 4
	if len(dst) < need {
		return 0, fmt.Errorf("renderer: buffer holds %d bytes, need %d", len(dst), need)
	}

	canvas := &image.RGBA{
		Pix:    dst[:need],
		Stride: r.Width * 4,
		Rect:   image.Rect(0, 0, r.Width, r.Height),
	}
	draw.Draw(canvas, canvas.Rect, &image.Uniform{C: color.RGBA{R: 0x20, G: 0x20, B: 0x28, A: 0xFF}}, image.Point{}, draw.Src)

	side := r.Width
	if r.Height < side {
		side = r.Height
	}
	q, err := qrcode.New(r.tools.Pose().String(), qrcode.Medium)
	if err != nil {
		return 0, fmt.Errorf("renderer: qr encode: %w", err)
	}
	code := q.Image(256)
	target := image.Rect((r.Width-side)/2, (r.Height-side)/2, (r.Width+side)/2, (r.Height+side)/2)
	draw.NearestNeighbor.Scale(canvas, target, code, code.Bounds(), draw.Src, nil)

	for i := 3; i < need; i += 4 {
		dst[i] = 0
	}
	return need, nil
}

// Target receives the host's per-frame callbacks
type Target interface {
	EffectsRendered(fb capture.Framebuffer)
	Present()
}

// Loop drives target at fps until ctx is done. Every tick renders the effects
// and then presents, like a game's frame loop.
func Loop(ctx context.Context, fps int, fb capture.Framebuffer, target Target) {
	if fps <= 0 {
		fps = 60
	}
	ticker := time.NewTicker(time.Second / time.Duration(fps))
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			target.EffectsRendered(fb)
			target.Present()
		}
	}
}
