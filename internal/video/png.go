package video

import (
	"context"
	"fmt"
	"image"
	"image/png"
	"os"
	"path/filepath"
)

// PNGSink writes frames as numbered PNG files into Dir. With Single set
// it keeps overwriting one file instead, which is what live mode shows.
type PNGSink struct {
	Dir    string
	Single string
	frames int
	enc    png.Encoder
}

func NewPNGSink(dir string) (*PNGSink, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}
	return &PNGSink{Dir: dir, enc: png.Encoder{CompressionLevel: png.BestSpeed}}, nil
}

// NewSnapshotSink overwrites path on every frame.
func NewSnapshotSink(path string) (*PNGSink, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}
	return &PNGSink{Dir: dir, Single: filepath.Base(path), enc: png.Encoder{CompressionLevel: png.BestSpeed}}, nil
}

func (s *PNGSink) WriteFrame(ctx context.Context, img image.Image) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.frames++
	name := s.Single
	if name == "" {
		name = fmt.Sprintf("frame_%05d.png", s.frames)
	}
	path := filepath.Join(s.Dir, name)

	// пишем во временный файл, чтобы читатель не увидел половину кадра
	tmp := path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return err
	}
	if err := s.enc.Encode(f, img); err != nil {
		f.Close()
		os.Remove(tmp)
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

func (s *PNGSink) Frames() int { return s.frames }

func (s *PNGSink) Close() error { return nil }
