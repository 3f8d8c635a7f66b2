package driver

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/fogleman/ease"

	"github.com/ivlev/scrubreel/internal/mapping"
)

// Timeline simulates a visitor scrolling through the pinned section.
// Each tick the raw scroll position is shaped by an ease curve, smoothed
// GSAP-style (the playhead chases the scroll position for ScrubLag
// seconds) and mapped through the sequence window.
type Timeline struct {
	Duration time.Duration
	FPS      int
	Ease     func(float64) float64
	ScrubLag float64
	Window   mapping.Window
	Realtime bool
}

// NewTimeline is the registry factory.
func NewTimeline(opts Options) (Driver, error) {
	if opts.Duration <= 0 {
		return nil, fmt.Errorf("timeline: duration must be positive")
	}
	if opts.FPS <= 0 {
		return nil, fmt.Errorf("timeline: fps must be positive")
	}
	fn, err := EaseByName(opts.Ease)
	if err != nil {
		return nil, err
	}
	w := opts.Window
	if w.Total <= 0 {
		w = mapping.FullWindow
	}
	return &Timeline{
		Duration: opts.Duration,
		FPS:      opts.FPS,
		Ease:     fn,
		ScrubLag: opts.ScrubLag,
		Window:   w,
		Realtime: opts.Realtime,
	}, nil
}

// EaseByName maps a config name to a fogleman/ease curve.
func EaseByName(name string) (func(float64) float64, error) {
	switch strings.ToLower(name) {
	case "", "linear", "none":
		return ease.Linear, nil
	case "in-out-quad":
		return ease.InOutQuad, nil
	case "in-out-cubic":
		return ease.InOutCubic, nil
	case "in-out-sine":
		return ease.InOutSine, nil
	case "out-quad":
		return ease.OutQuad, nil
	case "out-cubic":
		return ease.OutCubic, nil
	default:
		return nil, fmt.Errorf("неизвестная кривая ease: %s", name)
	}
}

// Ticks returns the number of progress events Run will emit.
func (t *Timeline) Ticks() int {
	return len(t.Samples())
}

// Samples computes the whole progress track up front.
func (t *Timeline) Samples() []float64 {
	scrollTicks := int(math.Round(t.Duration.Seconds() * float64(t.FPS)))
	if scrollTicks < 1 {
		scrollTicks = 1
	}
	dt := 1.0 / float64(t.FPS)
	shape := t.Ease
	if shape == nil {
		shape = ease.Linear
	}

	// коэффициент догонки за один тик
	alpha := 1.0
	if t.ScrubLag > 0 {
		alpha = 1 - math.Exp(-dt/t.ScrubLag)
	}

	samples := make([]float64, 0, scrollTicks+1)
	playhead := 0.0
	for i := 0; i <= scrollTicks; i++ {
		target := shape(float64(i) / float64(scrollTicks))
		playhead += (target - playhead) * alpha
		samples = append(samples, t.Window.Local(playhead))
	}

	// после остановки скролла плейхед ещё догоняет цель
	maxTail := int(math.Ceil(t.ScrubLag*float64(t.FPS)*10)) + 1
	for i := 0; i < maxTail && 1-playhead > 1e-4; i++ {
		playhead += (1 - playhead) * alpha
		samples = append(samples, t.Window.Local(playhead))
	}
	if samples[len(samples)-1] != 1 {
		samples = append(samples, t.Window.Local(1))
	}
	return samples
}

func (t *Timeline) Run(ctx context.Context, emit Emit) error {
	if t.FPS <= 0 {
		return fmt.Errorf("timeline: fps must be positive")
	}
	samples := t.Samples()

	var tick <-chan time.Time
	if t.Realtime {
		ticker := time.NewTicker(time.Second / time.Duration(t.FPS))
		defer ticker.Stop()
		tick = ticker.C
	}

	for _, p := range samples {
		if tick != nil {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-tick:
			}
		} else if err := ctx.Err(); err != nil {
			return err
		}
		emit(Event{Kind: KindProgress, Progress: p})
	}
	return nil
}
