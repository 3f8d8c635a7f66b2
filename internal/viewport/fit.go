package viewport

import "math"

// Rect is a draw rectangle in CSS pixels. X and Y go negative when the
// image overshoots the canvas and is cropped.
type Rect struct {
	X, Y, W, H float64
}

// Fit computes a cover-fit rectangle: the image fills the whole canvas,
// keeps its aspect ratio, is centred on both axes and magnified by scale.
func Fit(canvasW, canvasH, imgW, imgH, scale float64) Rect {
	if canvasW <= 0 || canvasH <= 0 || imgW <= 0 || imgH <= 0 {
		return Rect{}
	}
	if scale < 1 {
		scale = 1
	}

	canvasAspect := canvasW / canvasH
	imageAspect := imgW / imgH

	var r Rect
	if canvasAspect > imageAspect {
		// height limits
		r.H = canvasH * scale
		r.W = r.H * imageAspect
	} else {
		r.W = canvasW * scale
		r.H = r.W / imageAspect
	}
	r.X = (canvasW - r.W) / 2
	r.Y = (canvasH - r.H) / 2
	return r
}

// ScaleRule picks the overscan factor for a frame.
type ScaleRule struct {
	Default        float64 `yaml:"default"`
	Portrait       float64 `yaml:"portrait"`
	WideBreakpoint float64 `yaml:"wide_breakpoint"`
}

// DefaultScaleRule zooms a little everywhere and much more when a portrait
// frame is shown on a wide viewport.
var DefaultScaleRule = ScaleRule{Default: 1.05, Portrait: 1.5, WideBreakpoint: 768}

// Scale returns the factor for an image on a viewport cssWidth CSS pixels wide.
func (r ScaleRule) Scale(cssWidth, imgW, imgH float64) float64 {
	s := r.Default
	if r.Portrait > 0 && imgH > 0 && imgW/imgH < 1 && cssWidth > r.WideBreakpoint {
		s = r.Portrait
	}
	if s < 1 {
		s = 1
	}
	return s
}

// Backing returns the backing-store size in device pixels for a canvas
// displayed at cssW x cssH with the given device pixel ratio.
func Backing(cssW, cssH int, dpr float64) (int, int) {
	if dpr <= 0 {
		dpr = 1
	}
	return int(math.Round(float64(cssW) * dpr)), int(math.Round(float64(cssH) * dpr))
}

// Device converts a CSS rectangle into device pixels.
func (r Rect) Device(dpr float64) Rect {
	if dpr <= 0 {
		dpr = 1
	}
	return Rect{X: r.X * dpr, Y: r.Y * dpr, W: r.W * dpr, H: r.H * dpr}
}

// Aspect returns W/H, or 0 for an empty rectangle.
func (r Rect) Aspect() float64 {
	if r.H == 0 {
		return 0
	}
	return r.W / r.H
}
