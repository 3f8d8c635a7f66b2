package scrubber

import (
	"context"
	"fmt"
	"image"
)

type memSource struct {
	frames []image.Image
}

func (m *memSource) Count() int        { return len(m.frames) }
func (m *memSource) Name(i int) string { return fmt.Sprintf("mem/%d", i) }
func (m *memSource) Close() error      { return nil }

func (m *memSource) Frame(_ context.Context, i int) (image.Image, error) {
	return m.frames[i], nil
}
