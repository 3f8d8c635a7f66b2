package mapping

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

var (
	ErrEmptyTable   = errors.New("breakpoint table is empty")
	ErrUnknownTable = errors.New("unknown breakpoint preset")
)

type refKind int

const (
	refIndex refKind = iota
	refFraction
	refEnd
)

// FrameRef is a frame boundary: an absolute index ("75"), a share of the
// loaded frame count ("30%") or the end of the sequence ("end").
type FrameRef struct {
	kind  refKind
	index int
	frac  float64
}

func Index(i int) FrameRef { return FrameRef{kind: refIndex, index: i} }

func Fraction(f float64) FrameRef { return FrameRef{kind: refFraction, frac: f} }

func End() FrameRef { return FrameRef{kind: refEnd} }

// ParseFrameRef parses the textual form used in table files.
func ParseFrameRef(s string) (FrameRef, error) {
	s = strings.TrimSpace(strings.ToLower(s))
	switch {
	case s == "end":
		return End(), nil
	case strings.HasSuffix(s, "%"):
		v, err := strconv.ParseFloat(strings.TrimSuffix(s, "%"), 64)
		if err != nil || v < 0 || v > 100 {
			return FrameRef{}, fmt.Errorf("invalid frame share %q", s)
		}
		return Fraction(v / 100), nil
	default:
		v, err := strconv.Atoi(s)
		if err != nil || v < 0 {
			return FrameRef{}, fmt.Errorf("invalid frame index %q", s)
		}
		return Index(v), nil
	}
}

// Resolve turns the boundary into a concrete index for a sequence of n frames.
func (r FrameRef) Resolve(n int) int {
	switch r.kind {
	case refEnd:
		return n
	case refFraction:
		return int(math.Floor(r.frac * float64(n)))
	default:
		if r.index > n {
			return n
		}
		return r.index
	}
}

func (r FrameRef) String() string {
	switch r.kind {
	case refEnd:
		return "end"
	case refFraction:
		return strconv.FormatFloat(r.frac*100, 'f', -1, 64) + "%"
	default:
		return strconv.Itoa(r.index)
	}
}

func (r FrameRef) MarshalYAML() (interface{}, error) {
	return r.String(), nil
}

func (r *FrameRef) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var s string
	if err := unmarshal(&s); err != nil {
		return err
	}
	parsed, err := ParseFrameRef(s)
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}

// Segment maps the progress range (previous End, End] linearly onto the
// frames From..To. To itself is only reached when progress equals End.
type Segment struct {
	End  float64  `yaml:"end"`
	From FrameRef `yaml:"from"`
	To   FrameRef `yaml:"to"`
}

// Table is an ordered list of segments covering [0, 1].
type Table []Segment

// Validate checks that the segment ends are strictly increasing and finish at 1.
func (t Table) Validate() error {
	if len(t) == 0 {
		return ErrEmptyTable
	}
	prev := 0.0
	for i, s := range t {
		if s.End <= prev || s.End > 1 {
			return fmt.Errorf("segment %d: end %.4f must be in (%.4f, 1]", i, s.End, prev)
		}
		prev = s.End
	}
	if t[len(t)-1].End != 1 {
		return fmt.Errorf("last segment must end at 1, got %.4f", t[len(t)-1].End)
	}
	return nil
}

// Resolve maps progress p to a frame index in [0, n-1].
// A progress value that sits exactly on a breakpoint belongs to the lower
// segment; the next segment starts from its own From, so a table may
// deliberately jump between segments.
func (t Table) Resolve(p float64, n int) int {
	if n <= 1 || len(t) == 0 {
		return 0
	}
	if math.IsNaN(p) || p < 0 {
		p = 0
	}
	if p > 1 {
		p = 1
	}

	i := t.segmentAt(p)
	seg := t[i]
	start := 0.0
	if i > 0 {
		start = t[i-1].End
	}

	local := 0.0
	if span := seg.End - start; span > 0 {
		local = (p - start) / span
	}

	from, to := seg.From.Resolve(n), seg.To.Resolve(n)
	idx := from + int(math.Floor(local*float64(to-from)))
	return clamp(idx, 0, n-1)
}

// segmentAt returns the first segment whose End is not below p.
func (t Table) segmentAt(p float64) int {
	for i, s := range t {
		if p <= s.End {
			return i
		}
	}
	return len(t) - 1
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// Presets collects the historical tables of the landing page.
var Presets = map[string]Table{
	// fast intro, a long slow middle, normal finish. Absolute indices are
	// capped at the frame count, so below 140 frames the middle segment ends
	// at the last frame instead of jumping to it.
	"deo": {
		{End: 0.125, From: Index(0), To: Index(75)},
		{End: 0.75, From: Index(75), To: Index(140)},
		{End: 1, From: Index(140), To: End()},
	},
	// runs ahead to 125 and cuts back to 75 at 0.125
	"mobile3d": {
		{End: 0.125, From: Index(0), To: Index(125)},
		{End: 0.75, From: Index(75), To: Index(140)},
		{End: 1, From: Index(140), To: End()},
	},
	"proportional": {
		{End: 0.125, From: Index(0), To: Fraction(0.30)},
		{End: 0.75, From: Fraction(0.30), To: Fraction(0.56)},
		{End: 1, From: Fraction(0.56), To: End()},
	},
	"linear": {
		{End: 1, From: Index(0), To: End()},
	},
}

// Preset returns a copy of a named table.
func Preset(name string) (Table, error) {
	t, ok := Presets[strings.ToLower(name)]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownTable, name)
	}
	out := make(Table, len(t))
	copy(out, t)
	return out, nil
}
