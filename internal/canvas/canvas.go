// Package canvas provides the raster drawing surface the scrubber paints on.
package canvas

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"math"

	"github.com/lucasb-eyer/go-colorful"
	"golang.org/x/image/draw"

	"github.com/ivlev/scrubreel/internal/system"
	"github.com/ivlev/scrubreel/internal/viewport"
)

var (
	// ErrReleased is returned by every operation on a released surface.
	ErrReleased = errors.New("canvas: surface released")
	ErrBadSize  = errors.New("canvas: invalid size")
)

// Surface is a drawing surface with a CSS size and a device pixel ratio.
// The backing store is owned by the surface between Acquire and Release.
type Surface struct {
	cssW, cssH int
	dpr        float64
	bg         color.RGBA
	scaler     draw.Scaler
	img        *image.RGBA
}

// Options tune a surface. Zero values mean: white background, dpr 1,
// bilinear scaling.
type Options struct {
	DPR        float64
	Background string
	Quality    string // "fast" | "high"
}

// Acquire allocates a surface displayed at cssW x cssH.
func Acquire(cssW, cssH int, opts Options) (*Surface, error) {
	if cssW <= 0 || cssH <= 0 {
		return nil, fmt.Errorf("%w: %dx%d", ErrBadSize, cssW, cssH)
	}
	dpr := opts.DPR
	if dpr <= 0 {
		dpr = 1
	}
	bg, err := ParseColor(opts.Background)
	if err != nil {
		return nil, err
	}

	s := &Surface{cssW: cssW, cssH: cssH, dpr: dpr, bg: bg, scaler: scalerFor(opts.Quality)}
	s.alloc()
	return s, nil
}

// ParseColor accepts "#rrggbb" hex colours; empty means white.
func ParseColor(hex string) (color.RGBA, error) {
	if hex == "" {
		return color.RGBA{R: 255, G: 255, B: 255, A: 255}, nil
	}
	c, err := colorful.Hex(hex)
	if err != nil {
		return color.RGBA{}, fmt.Errorf("canvas: background %q: %w", hex, err)
	}
	r, g, b := c.RGB255()
	return color.RGBA{R: r, G: g, B: b, A: 255}, nil
}

func scalerFor(quality string) draw.Scaler {
	switch quality {
	case "high":
		return draw.CatmullRom
	case "nearest":
		return draw.NearestNeighbor
	default:
		return draw.ApproxBiLinear
	}
}

func (s *Surface) alloc() {
	w, h := viewport.Backing(s.cssW, s.cssH, s.dpr)
	s.img = system.GetImage(image.Rect(0, 0, w, h))
}

// Resize changes the CSS size and reallocates the backing store.
// The contents are lost, callers repaint afterwards.
func (s *Surface) Resize(cssW, cssH int) error {
	if s.img == nil {
		return ErrReleased
	}
	if cssW <= 0 || cssH <= 0 {
		return fmt.Errorf("%w: %dx%d", ErrBadSize, cssW, cssH)
	}
	if cssW == s.cssW && cssH == s.cssH {
		return nil
	}
	system.PutImage(s.img)
	s.cssW, s.cssH = cssW, cssH
	s.alloc()
	return nil
}

// Size returns the CSS size.
func (s *Surface) Size() (int, int) { return s.cssW, s.cssH }

func (s *Surface) DPR() float64 { return s.dpr }

// Clear fills the backing store with the background colour.
func (s *Surface) Clear() error {
	if s.img == nil {
		return ErrReleased
	}
	draw.Draw(s.img, s.img.Bounds(), image.NewUniform(s.bg), image.Point{}, draw.Src)
	return nil
}

// DrawImage scales src into r, given in CSS pixels. Parts of r that fall
// outside the surface are cropped.
func (s *Surface) DrawImage(src image.Image, r viewport.Rect) error {
	if s.img == nil {
		return ErrReleased
	}
	if r.W <= 0 || r.H <= 0 {
		return nil
	}
	d := r.Device(s.dpr)
	dst := image.Rect(
		int(math.Floor(d.X)), int(math.Floor(d.Y)),
		int(math.Ceil(d.X+d.W)), int(math.Ceil(d.Y+d.H)),
	)
	// draw.Scaler clips to the destination image bounds itself
	s.scaler.Scale(s.img, dst, src, src.Bounds(), draw.Over, nil)
	return nil
}

// Image exposes the backing store. It is only valid until the next
// Resize or Release.
func (s *Surface) Image() (*image.RGBA, error) {
	if s.img == nil {
		return nil, ErrReleased
	}
	return s.img, nil
}

// Release returns the backing store to the pool. Safe to call twice.
func (s *Surface) Release() {
	if s.img == nil {
		return
	}
	system.PutImage(s.img)
	s.img = nil
}
