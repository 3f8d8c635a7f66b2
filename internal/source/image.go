package source

import (
	"context"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"path/filepath"
	"sort"
	"strings"

	_ "golang.org/x/image/webp"
)

// DirSource plays every image file of a directory in name order. It is
// used for sequences that do not follow the NNNN naming.
type DirSource struct {
	paths []string
}

func NewDirSource(path string) (*DirSource, error) {
	fi, err := os.Stat(path)
	if err != nil {
		return nil, err
	}

	var paths []string
	if fi.IsDir() {
		entries, err := os.ReadDir(path)
		if err != nil {
			return nil, err
		}
		for _, entry := range entries {
			if !entry.IsDir() {
				ext := strings.ToLower(filepath.Ext(entry.Name()))
				if ext == ".jpg" || ext == ".jpeg" || ext == ".png" || ext == ".webp" {
					paths = append(paths, filepath.Join(path, entry.Name()))
				}
			}
		}
		sort.Strings(paths)
	} else {
		paths = []string{path}
	}

	return &DirSource{paths: paths}, nil
}

func (s *DirSource) Count() int {
	return len(s.paths)
}

func (s *DirSource) Name(i int) string {
	return s.paths[i]
}

func (s *DirSource) Frame(ctx context.Context, i int) (image.Image, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return decodeFile(s.paths[i])
}

func (s *DirSource) Close() error {
	return nil
}

// Dimensions reads the size of an image file without decoding the pixels.
func Dimensions(path string) (int, int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, 0, err
	}
	defer f.Close()

	cfg, _, err := image.DecodeConfig(f)
	if err != nil {
		return 0, 0, err
	}
	return cfg.Width, cfg.Height, nil
}
