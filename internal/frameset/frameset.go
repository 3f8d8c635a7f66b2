package frameset

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/ivlev/scrubreel/internal/source"
)

// ErrNoContent means not a single frame of the sequence could be loaded.
var ErrNoContent = errors.New("no frames could be loaded")

// Failure records a frame that was dropped from the sequence.
type Failure struct {
	Index int
	Name  string
	Err   error
}

func (f Failure) Error() string {
	return fmt.Sprintf("frame %d (%s): %v", f.Index, f.Name, f.Err)
}

// FrameSet is the immutable result of a load: the successfully decoded
// frames in their original order. Positions are indices into the loaded
// subset, not original frame numbers.
type FrameSet struct {
	Frames    []image.Image
	Failures  []Failure
	Requested int
	loaded    bool
}

// Loaded reports whether every requested frame has settled.
func (fs *FrameSet) Loaded() bool {
	return fs != nil && fs.loaded
}

func (fs *FrameSet) Len() int {
	if fs == nil {
		return 0
	}
	return len(fs.Frames)
}

func (fs *FrameSet) At(i int) image.Image {
	if fs == nil || i < 0 || i >= len(fs.Frames) {
		return nil
	}
	return fs.Frames[i]
}

// ProgressFunc is called after each frame settles.
type ProgressFunc func(settled, total int)

// Options for Load.
type Options struct {
	// Workers caps the number of fetches in flight. Zero or less starts
	// every fetch at once.
	Workers  int
	Progress ProgressFunc
}

// Load fetches every frame of src concurrently. A failing frame is logged
// and dropped, it never aborts the batch. The returned set is marked
// loaded once all attempts have settled. If none succeeded, Load returns
// ErrNoContent together with the failures. With opts.Workers set, at most
// that many fetches run at a time; the rest wait for a free slot.
func Load(ctx context.Context, src source.Source, opts Options) (*FrameSet, error) {
	total := src.Count()
	fs := &FrameSet{Requested: total}
	if total <= 0 {
		fs.loaded = true
		return fs, ErrNoContent
	}

	type settled struct {
		index int
		img   image.Image
		err   error
	}

	results := make(chan settled, total)

	g, gctx := errgroup.WithContext(ctx)
	if opts.Workers > 0 {
		g.SetLimit(opts.Workers)
	}

	go func() {
		for i := 0; i < total; i++ {
			g.Go(func() error {
				img, err := src.Frame(gctx, i)
				results <- settled{index: i, img: img, err: err}
				// отдельный кадр никогда не валит всю пачку
				return nil
			})
		}
		g.Wait()
		close(results)
	}()

	slots := make([]image.Image, total)
	count := 0
	for r := range results {
		count++
		if r.err != nil {
			f := Failure{Index: r.index, Name: src.Name(r.index), Err: r.err}
			if ctx.Err() == nil {
				log.Printf("[!] Кадр пропущен: %v", f)
			}
			fs.Failures = append(fs.Failures, f)
		} else {
			slots[r.index] = r.img
		}
		if opts.Progress != nil {
			opts.Progress(count, total)
		}
	}

	fs.Frames = make([]image.Image, 0, total-len(fs.Failures))
	for _, img := range slots {
		if img != nil {
			fs.Frames = append(fs.Frames, img)
		}
	}
	sort.Slice(fs.Failures, func(i, j int) bool {
		return fs.Failures[i].Index < fs.Failures[j].Index
	})
	fs.loaded = true

	if err := ctx.Err(); err != nil {
		return fs, err
	}
	if len(fs.Frames) == 0 {
		return fs, ErrNoContent
	}
	return fs, nil
}
