package video

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/draw"
	"io"
	"os/exec"

	"github.com/ivlev/scrubreel/internal/config"
)

// Sink receives the painted surface.
type Sink interface {
	WriteFrame(ctx context.Context, img image.Image) error
	Close() error
}

// FFmpegSink streams raw RGBA frames into a single ffmpeg process.
// All frames must have the size the sink was opened with.
type FFmpegSink struct {
	cmd    *exec.Cmd
	stdin  io.WriteCloser
	out    bytes.Buffer
	width  int
	height int
	frames int
	buf    *image.RGBA
}

// NewFFmpegSink starts ffmpeg for a width x height stream.
func NewFFmpegSink(ctx context.Context, videoPath string, width, height int, params config.RenderParams) (*FFmpegSink, error) {
	s := &FFmpegSink{width: width, height: height}
	args := buildFFmpegArgs(width, height, videoPath, params)

	s.cmd = exec.CommandContext(ctx, "ffmpeg", args...)
	s.cmd.Stdout = &s.out
	s.cmd.Stderr = &s.out

	stdin, err := s.cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("stdin pipe error: %w", err)
	}
	s.stdin = stdin

	if err := s.cmd.Start(); err != nil {
		return nil, fmt.Errorf("ffmpeg start error: %w", err)
	}
	return s, nil
}

func buildFFmpegArgs(inputW, inputH int, videoPath string, params config.RenderParams) []string {
	args := []string{
		"-y",
		"-f", "rawvideo",
		"-pixel_format", "rgba",
		"-video_size", fmt.Sprintf("%dx%d", inputW, inputH),
		"-framerate", fmt.Sprintf("%d", params.FPS),
		"-i", "-",
	}

	// yuv420p требует чётных размеров
	if inputW%2 != 0 || inputH%2 != 0 {
		args = append(args, "-vf", "pad=ceil(iw/2)*2:ceil(ih/2)*2")
	}

	args = append(args,
		"-pix_fmt", "yuv420p",
		"-c:v", params.Encoder,
	)

	// Качество в зависимости от энкодера
	switch params.Encoder {
	case "h264_videotoolbox":
		bitrate := params.Quality * 100
		args = append(args, "-b:v", fmt.Sprintf("%dk", bitrate))
	case "h264_nvenc":
		args = append(args, "-cq", fmt.Sprintf("%d", params.Quality))
	default: // libx264
		args = append(args, "-crf", fmt.Sprintf("%d", params.Quality), "-preset", "medium")
	}

	args = append(args, videoPath)
	return args
}

func (s *FFmpegSink) WriteFrame(ctx context.Context, img image.Image) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	b := img.Bounds()
	if b.Dx() != s.width || b.Dy() != s.height {
		return fmt.Errorf("кадр %dx%d не совпадает с размером видео %dx%d", b.Dx(), b.Dy(), s.width, s.height)
	}
	if err := s.writeRawRGBA(s.stdin, img); err != nil {
		return fmt.Errorf("write raw error: %w", err)
	}
	s.frames++
	return nil
}

func (s *FFmpegSink) writeRawRGBA(w io.Writer, img image.Image) error {
	bounds := img.Bounds()
	rgba, ok := img.(*image.RGBA)
	if !ok || rgba.Stride != bounds.Dx()*4 || rgba.Rect.Min.X != 0 || rgba.Rect.Min.Y != 0 {
		if s.buf == nil || s.buf.Rect.Size() != bounds.Size() {
			s.buf = image.NewRGBA(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
		}
		draw.Draw(s.buf, s.buf.Bounds(), img, bounds.Min, draw.Src)
		rgba = s.buf
	}
	_, err := w.Write(rgba.Pix)
	return err
}

// Frames returns how many frames were written.
func (s *FFmpegSink) Frames() int { return s.frames }

// Close finishes the stream and waits for ffmpeg.
func (s *FFmpegSink) Close() error {
	s.stdin.Close()
	if err := s.cmd.Wait(); err != nil {
		return fmt.Errorf("ffmpeg wait error: %w\nLog: %s", err, s.out.String())
	}
	return nil
}
