package video

import (
	"context"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ivlev/scrubreel/internal/config"
)

func TestBuildFFmpegArgs(t *testing.T) {
	tests := []struct {
		encoder string
		quality int
		want    []string
	}{
		{"libx264", 23, []string{"-crf", "23", "-preset", "medium"}},
		{"h264_nvenc", 28, []string{"-cq", "28"}},
		{"h264_videotoolbox", 75, []string{"-b:v", "7500k"}},
	}

	for _, tt := range tests {
		t.Run(tt.encoder, func(t *testing.T) {
			params := config.RenderParams{FPS: 30, Encoder: tt.encoder, Quality: tt.quality}
			args := buildFFmpegArgs(1280, 720, "out.mp4", params)
			joined := strings.Join(args, " ")

			if !strings.Contains(joined, "-video_size 1280x720") {
				t.Errorf("Missing video size: %s", joined)
			}
			if !strings.Contains(joined, "-framerate 30") {
				t.Errorf("Missing frame rate: %s", joined)
			}
			if !strings.Contains(joined, strings.Join(tt.want, " ")) {
				t.Errorf("Expected %v in %s", tt.want, joined)
			}
			if strings.Contains(joined, "pad=") {
				t.Errorf("Even size should not be padded: %s", joined)
			}
			if args[len(args)-1] != "out.mp4" {
				t.Errorf("Output must be last, got %s", args[len(args)-1])
			}
		})
	}
}

func TestBuildFFmpegArgsPadsOddSizes(t *testing.T) {
	args := buildFFmpegArgs(391, 845, "out.mp4", config.RenderParams{FPS: 30, Encoder: "libx264", Quality: 23})
	if !strings.Contains(strings.Join(args, " "), "pad=ceil(iw/2)*2:ceil(ih/2)*2") {
		t.Errorf("Expected pad filter for odd size: %v", args)
	}
}

func TestPNGSink(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "frames")
	sink, err := NewPNGSink(dir)
	if err != nil {
		t.Fatalf("NewPNGSink failed: %v", err)
	}

	ctx := context.Background()
	img := image.NewRGBA(image.Rect(0, 0, 3, 2))
	for i := 0; i < 3; i++ {
		if err := sink.WriteFrame(ctx, img); err != nil {
			t.Fatalf("WriteFrame failed: %v", err)
		}
	}
	sink.Close()

	entries, _ := os.ReadDir(dir)
	if len(entries) != 3 {
		t.Fatalf("Expected 3 files, got %d", len(entries))
	}
	if entries[0].Name() != "frame_00001.png" {
		t.Errorf("Unexpected first file %s", entries[0].Name())
	}
}

func TestSnapshotSinkOverwrites(t *testing.T) {
	path := filepath.Join(t.TempDir(), "live", "latest.png")
	sink, err := NewSnapshotSink(path)
	if err != nil {
		t.Fatalf("NewSnapshotSink failed: %v", err)
	}

	ctx := context.Background()
	sink.WriteFrame(ctx, image.NewRGBA(image.Rect(0, 0, 2, 2)))
	sink.WriteFrame(ctx, image.NewRGBA(image.Rect(0, 0, 5, 4)))

	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer f.Close()
	cfg, err := png.DecodeConfig(f)
	if err != nil {
		t.Fatalf("DecodeConfig failed: %v", err)
	}
	if cfg.Width != 5 || cfg.Height != 4 {
		t.Errorf("Expected the latest 5x4 frame, got %dx%d", cfg.Width, cfg.Height)
	}

	entries, _ := os.ReadDir(filepath.Dir(path))
	if len(entries) != 1 {
		t.Errorf("Expected a single file, got %d", len(entries))
	}
}
