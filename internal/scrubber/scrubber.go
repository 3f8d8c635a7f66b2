// Package scrubber paints the frame of an image sequence that matches the
// current scroll progress.
package scrubber

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/ivlev/scrubreel/internal/canvas"
	"github.com/ivlev/scrubreel/internal/driver"
	"github.com/ivlev/scrubreel/internal/frameset"
	"github.com/ivlev/scrubreel/internal/mapping"
	"github.com/ivlev/scrubreel/internal/viewport"
)

var (
	ErrNotInitialized = errors.New("scrubber: Init must be called first")
	ErrNoSurface      = errors.New("scrubber: drawing surface is missing")
	ErrClosed         = errors.New("scrubber: closed")
)

var (
	initOnce    sync.Once
	initErr     error
	initialized atomic.Bool
)

// Init performs the process-wide setup: it registers the built-in progress
// drivers. Calling it again is a no-op.
func Init() error {
	initOnce.Do(func() {
		for name, f := range map[string]driver.Factory{
			"timeline": driver.NewTimeline,
			"mqtt":     driver.NewMQTT,
		} {
			if err := driver.Register(name, f); err != nil {
				initErr = err
				return
			}
		}
		initialized.Store(true)
	})
	return initErr
}

// Options configure a Scrubber.
type Options struct {
	Table mapping.Table
	Scale viewport.ScaleRule
	// Debug stamps each painted frame with its index.
	Debug bool
}

// Scrubber owns a loaded frame set and a drawing surface. It is not safe
// for concurrent use: every call must come from the same goroutine.
type Scrubber struct {
	frames  *frameset.FrameSet
	surface *canvas.Surface
	table   mapping.Table
	scale   viewport.ScaleRule
	debug   bool

	// lastPainted is -1 until the first paint and only changes in paint
	lastPainted int
	draws       int
	closed      bool
}

// New builds a scrubber. It fails with frameset.ErrNoContent when there is
// nothing to show and with ErrNoSurface when the surface is missing.
func New(frames *frameset.FrameSet, surface *canvas.Surface, opts Options) (*Scrubber, error) {
	if !initialized.Load() {
		return nil, ErrNotInitialized
	}
	if !frames.Loaded() || frames.Len() == 0 {
		return nil, frameset.ErrNoContent
	}
	if surface == nil {
		return nil, ErrNoSurface
	}
	if _, err := surface.Image(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNoSurface, err)
	}

	table := opts.Table
	if table == nil {
		table = mapping.Presets["linear"]
	}
	if err := table.Validate(); err != nil {
		return nil, err
	}
	scale := opts.Scale
	if scale.Default == 0 {
		scale = viewport.DefaultScaleRule
	}

	return &Scrubber{
		frames:      frames,
		surface:     surface,
		table:       table,
		scale:       scale,
		debug:       opts.Debug,
		lastPainted: -1,
	}, nil
}

// OnProgress resolves the frame for progress p and paints it if it differs
// from the last painted one. It reports whether a paint happened.
func (s *Scrubber) OnProgress(p float64) (bool, error) {
	if s.closed {
		return false, ErrClosed
	}
	idx := s.table.Resolve(p, s.frames.Len())
	if idx == s.lastPainted {
		return false, nil
	}
	if err := s.paint(idx); err != nil {
		return false, err
	}
	return true, nil
}

// Resize changes the surface size and repaints the current frame, since
// resizing discards the surface contents.
func (s *Scrubber) Resize(cssW, cssH int) error {
	if s.closed {
		return ErrClosed
	}
	if err := s.surface.Resize(cssW, cssH); err != nil {
		return err
	}
	if s.lastPainted < 0 {
		return nil
	}
	return s.paint(s.lastPainted)
}

// PaintFirst draws frame 0. Used for the initial frame and for the static
// fallback when no progress will ever arrive.
func (s *Scrubber) PaintFirst() error {
	if s.closed {
		return ErrClosed
	}
	return s.paint(0)
}

func (s *Scrubber) paint(idx int) error {
	img := s.frames.At(idx)
	if img == nil {
		return fmt.Errorf("scrubber: frame %d out of range", idx)
	}
	if err := s.surface.Clear(); err != nil {
		return err
	}

	cssW, cssH := s.surface.Size()
	b := img.Bounds()
	imgW, imgH := float64(b.Dx()), float64(b.Dy())
	scale := s.scale.Scale(float64(cssW), imgW, imgH)
	r := viewport.Fit(float64(cssW), float64(cssH), imgW, imgH, scale)

	if err := s.surface.DrawImage(img, r); err != nil {
		return err
	}
	if s.debug {
		if err := s.surface.StampIndex(idx); err != nil {
			return err
		}
	}
	s.draws++
	s.lastPainted = idx
	return nil
}

// LastPainted returns the index on the surface, or -1.
func (s *Scrubber) LastPainted() int { return s.lastPainted }

// Draws counts clear+draw passes.
func (s *Scrubber) Draws() int { return s.draws }

func (s *Scrubber) Surface() *canvas.Surface { return s.surface }

// Close releases the surface. Safe to call more than once.
func (s *Scrubber) Close() {
	if s.closed {
		return
	}
	s.closed = true
	s.surface.Release()
}
