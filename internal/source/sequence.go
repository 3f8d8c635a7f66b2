package source

import (
	"context"
	"fmt"
	"image"
	"os"
	"path/filepath"
	"strings"
)

// FrameName formats the NNNN.ext file name of frame number n.
func FrameName(n int, ext string) string {
	return fmt.Sprintf("%04d.%s", n, strings.TrimPrefix(ext, "."))
}

// SequenceSource reads {baseDir}/{NNNN}.{ext} files from disk, numbered
// from Start for Count frames.
type SequenceSource struct {
	BaseDir string
	Ext     string
	Start   int
	N       int
}

func NewSequenceSource(baseDir, ext string, start, count int) (*SequenceSource, error) {
	fi, err := os.Stat(baseDir)
	if err != nil {
		return nil, err
	}
	if !fi.IsDir() {
		return nil, fmt.Errorf("%s не является папкой", baseDir)
	}
	if start <= 0 {
		start = 1
	}
	return &SequenceSource{BaseDir: baseDir, Ext: ext, Start: start, N: count}, nil
}

func (s *SequenceSource) Count() int {
	return s.N
}

func (s *SequenceSource) Name(i int) string {
	return filepath.Join(s.BaseDir, FrameName(s.Start+i, s.Ext))
}

func (s *SequenceSource) Frame(ctx context.Context, i int) (image.Image, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return decodeFile(s.Name(i))
}

func (s *SequenceSource) Close() error {
	return nil
}

func decodeFile(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", filepath.Base(path), err)
	}
	return img, nil
}
