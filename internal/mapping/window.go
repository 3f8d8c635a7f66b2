package mapping

import "math"

// Window places the frame sequence inside a longer master timeline.
// The sequence tween starts at Start and lasts Duration, both measured in
// the units of a timeline that is Total long.
type Window struct {
	Start    float64 `yaml:"start"`
	Duration float64 `yaml:"duration"`
	Total    float64 `yaml:"total"`
}

// FullWindow lets the sequence follow the master progress directly.
var FullWindow = Window{Start: 0, Duration: 1, Total: 1}

// Local converts master progress into the sequence's own progress.
// Before the window it reports 0, after it 1.
func (w Window) Local(master float64) float64 {
	if w.Duration <= 0 || w.Total <= 0 {
		return clampf(master)
	}
	pos := clampf(master) * w.Total
	return clampf((pos - w.Start) / w.Duration)
}

func clampf(v float64) float64 {
	if math.IsNaN(v) || v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
