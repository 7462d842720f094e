package store

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cenkalti/backoff"
	"golang.org/x/image/bmp"
	"golang.org/x/sync/errgroup"

	"github.com/ivlev/multishot/internal/capture"
	"github.com/ivlev/multishot/internal/config"
	"github.com/ivlev/multishot/internal/system"
)

// JPEGQuality is the quality used for every JPEG shot
const JPEGQuality = 98

// Batch is everything needed to persist one finished session
type Batch struct {
	Session  string
	Name     string // shot type display name, first part of the folder name
	Started  time.Time
	Root     string
	FileType config.FileType
	Frames   []capture.Frame
}

// Result describes what a drain left on disk
type Result struct {
	Folder  string
	Written int
	Failed  int
}

// Writer encodes frames and writes them into one folder per session
type Writer struct {
	Workers int
	Log     *slog.Logger
	// NewBackOff returns the retry policy for a single file write
	NewBackOff func() backoff.BackOff
}

// NewWriter returns a writer with workers parallel encoders
func NewWriter(workers int, log *slog.Logger) *Writer {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	if log == nil {
		log = slog.Default()
	}
	return &Writer{
		Workers:    workers,
		Log:        log,
		NewBackOff: DefaultBackOff,
	}
}

// DefaultBackOff retries a write three times within about a second
func DefaultBackOff() backoff.BackOff {
	return backoff.WithMaxRetries(&backoff.ExponentialBackOff{
		InitialInterval:     50 * time.Millisecond,
		RandomizationFactor: 0.,
		Multiplier:          2.,
		MaxInterval:         500 * time.Millisecond,
		MaxElapsedTime:      2 * time.Second,
		Clock:               backoff.SystemClock,
	}, 3)
}

// FolderName builds <root>/<name>-YYYY-MM-DD-HH-mm-ss
func FolderName(root, name string, t time.Time) string {
	return filepath.Join(root, fmt.Sprintf("%s-%s", name, t.Format("2006-01-02-15-04-05")))
}

// FileName builds the name of the frame with the given index
func FileName(index int, ft config.FileType) string {
	return fmt.Sprintf("%d.%s", index, ft.Ext())
}

// Drain writes every frame of b in capture order as 0.<ext> .. N-1.<ext>.
// A canceled ctx stops before the next frame; writes in flight finish.
func (w *Writer) Drain(ctx context.Context, b Batch) (Result, error) {
	res := Result{Folder: FolderName(b.Root, b.Name, b.Started)}
	if len(b.Frames) == 0 {
		return res, nil
	}

	if err := os.MkdirAll(res.Folder, 0755); err != nil {
		res.Failed = len(b.Frames)
		return res, fmt.Errorf("creating %s: %w", res.Folder, err)
	}

	var (
		written atomic.Int64
		mu      sync.Mutex
		errs    []error
	)

	g := new(errgroup.Group)
	g.SetLimit(w.Workers)

	for _, f := range b.Frames {
		if ctx.Err() != nil {
			break
		}
		f := f
		g.Go(func() error {
			if ctx.Err() != nil {
				return nil
			}
			path := filepath.Join(res.Folder, FileName(f.Index, b.FileType))
			if err := w.writeFrame(path, f, b.FileType); err != nil {
				w.Log.Error("store: writing shot failed", "session", b.Session, "path", path, "err", err)
				mu.Lock()
				errs = append(errs, fmt.Errorf("%s: %w", filepath.Base(path), err))
				mu.Unlock()
				return nil
			}
			written.Add(1)
			return nil
		})
	}
	g.Wait()

	res.Written = int(written.Load())
	res.Failed = len(errs)
	if err := ctx.Err(); err != nil {
		errs = append(errs, err)
	}
	return res, errors.Join(errs...)
}

func (w *Writer) writeFrame(path string, f capture.Frame, ft config.FileType) error {
	img, err := toImage(f)
	if err != nil {
		return err
	}
	defer system.PutImage(img)

	var op func() error
	switch ft {
	case config.Png:
		var buf bytes.Buffer
		enc := png.Encoder{CompressionLevel: png.BestSpeed}
		if err := enc.Encode(&buf, img); err != nil {
			return fmt.Errorf("png encode: %w", err)
		}
		op = func() error { return os.WriteFile(path, buf.Bytes(), 0644) }
	case config.Jpeg:
		op = func() error {
			return writeStream(path, func(out io.Writer) error {
				return jpeg.Encode(out, img, &jpeg.Options{Quality: JPEGQuality})
			})
		}
	case config.Bmp:
		op = func() error {
			return writeStream(path, func(out io.Writer) error {
				return bmp.Encode(out, img)
			})
		}
	default:
		return fmt.Errorf("unsupported file type %v", ft)
	}

	return backoff.Retry(op, w.NewBackOff())
}

func writeStream(path string, encode func(io.Writer) error) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	bw := bufio.NewWriter(file)
	if err := encode(bw); err != nil {
		file.Close()
		return err
	}
	if err := bw.Flush(); err != nil {
		file.Close()
		return err
	}
	return file.Close()
}

// toImage expands packed RGB into an opaque pooled RGBA canvas
func toImage(f capture.Frame) (*image.RGBA, error) {
	if f.Width <= 0 || f.Height <= 0 || len(f.Pix) != f.Width*f.Height*3 {
		return nil, fmt.Errorf("frame %d: %dx%d does not match %d bytes", f.Index, f.Width, f.Height, len(f.Pix))
	}
	img := system.GetImage(image.Rect(0, 0, f.Width, f.Height))
	dst := img.Pix
	for i, j := 0, 0; i < len(f.Pix); i, j = i+3, j+4 {
		dst[j] = f.Pix[i]
		dst[j+1] = f.Pix[i+1]
		dst[j+2] = f.Pix[i+2]
		dst[j+3] = 0xFF
	}
	return img, nil
}
