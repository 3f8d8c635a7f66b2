package engine

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/ivlev/scrubreel/internal/config"
	"github.com/ivlev/scrubreel/internal/source"
)

// OpenSource picks the frame provider configured in cfg. A local folder
// that does not follow the NNNN.ext naming is played in name order.
func OpenSource(cfg *config.Config) (source.Source, error) {
	switch {
	case cfg.PDF != "":
		return source.NewPDFSource(cfg.PDF, cfg.DPI)
	case cfg.URL != "":
		return source.NewHTTPSource(cfg.URL, cfg.Ext, cfg.Start, cfg.Count), nil
	case cfg.BaseDir != "":
		start := cfg.Start
		if start <= 0 {
			start = 1
		}
		first := filepath.Join(cfg.BaseDir, source.FrameName(start, cfg.Ext))
		if _, err := os.Stat(first); err == nil {
			return source.NewSequenceSource(cfg.BaseDir, cfg.Ext, start, cfg.Count)
		}
		fmt.Printf("[!] %s не найден, кадры берутся из папки по порядку имён\n", first)
		return source.NewDirSource(cfg.BaseDir)
	default:
		return nil, fmt.Errorf("не задан источник кадров")
	}
}
