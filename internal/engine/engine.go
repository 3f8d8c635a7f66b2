package engine

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/ivlev/scrubreel/internal/canvas"
	"github.com/ivlev/scrubreel/internal/config"
	"github.com/ivlev/scrubreel/internal/driver"
	"github.com/ivlev/scrubreel/internal/frameset"
	"github.com/ivlev/scrubreel/internal/scrubber"
	"github.com/ivlev/scrubreel/internal/source"
	"github.com/ivlev/scrubreel/internal/system"
	"github.com/ivlev/scrubreel/internal/video"
)

// NoContentMessage is the inline error shown instead of the animation.
const NoContentMessage = "Не удалось загрузить ни одного кадра"

// Project wires a frame source, a progress driver and an output sink
// around one scrubber.
type Project struct {
	Config *config.Config
	Source source.Source
	// Driver and Sink are built from Config when nil.
	Driver driver.Driver
	Sink   video.Sink

	Stats Stats
}

// Stats is filled in by Run.
type Stats struct {
	Requested int
	Loaded    int
	Events    int
	Draws     int
	Written   int
	Static    bool
	Load      time.Duration
	Playback  time.Duration
}

func NewProject(cfg *config.Config, src source.Source) *Project {
	return &Project{Config: cfg, Source: src}
}

func (p *Project) Run(ctx context.Context) error {
	startTime := time.Now()

	if err := scrubber.Init(); err != nil {
		return fmt.Errorf("инициализация: %w", err)
	}

	table, err := p.Config.Table()
	if err != nil {
		return err
	}

	host := system.ReadHostStats()
	frameBytes := uint64(p.Config.Width) * uint64(p.Config.Height) * 4
	workers := host.LoaderWorkers(p.Config.Workers, frameBytes)

	fmt.Println("--- [PROJECT: SCRUB ENGINE] ---")
	fmt.Printf("[*] Источник кадров: %d | Воркеров: %d | %s\n", p.Source.Count(), workers, host)
	fmt.Printf("[*] Холст: %dx%d @ DPR %.2f | Режим: %s | Драйвер: %s\n",
		p.Config.Width, p.Config.Height, p.Config.DPR, p.Config.Mode, p.Config.Driver)
	fmt.Println("-----------------------------")

	loadStart := time.Now()
	fs, err := frameset.Load(ctx, p.Source, frameset.Options{
		Workers:  workers,
		Progress: progressPrinter(p.Source.Count()),
	})
	p.Stats.Load = time.Since(loadStart)
	p.Stats.Requested = p.Source.Count()
	p.Stats.Loaded = fs.Len()
	if errors.Is(err, frameset.ErrNoContent) {
		fmt.Printf("[-] %s (%d из %d с ошибкой)\n", NoContentMessage, len(fs.Failures), fs.Requested)
		return err
	}
	if err != nil {
		return fmt.Errorf("загрузка кадров: %w", err)
	}
	fmt.Printf("[*] Загружено кадров: %d/%d за %.2fs\n", fs.Len(), fs.Requested, p.Stats.Load.Seconds())

	surface, err := canvas.Acquire(p.Config.Width, p.Config.Height, canvas.Options{
		DPR:        p.Config.DPR,
		Background: p.Config.Background,
		Quality:    p.Config.ScaleQuality,
	})
	if err != nil {
		return p.renderStatic(ctx, fs, err)
	}

	sc, err := scrubber.New(fs, surface, scrubber.Options{
		Table: table,
		Scale: p.Config.Scale,
		Debug: p.Config.Debug,
	})
	if err != nil {
		surface.Release()
		return p.renderStatic(ctx, fs, err)
	}
	defer sc.Close()

	if err := sc.PaintFirst(); err != nil {
		return fmt.Errorf("первый кадр: %w", err)
	}

	// драйвер создаётся до открытия вывода
	if p.Driver == nil {
		p.Driver, err = driver.New(p.Config.Driver, p.driverOptions())
		if err != nil {
			return err
		}
	}

	if p.Sink == nil {
		img, _ := surface.Image()
		p.Sink, err = p.openSink(ctx, img.Bounds().Dx(), img.Bounds().Dy())
		if err != nil {
			return err
		}
	}

	playStart := time.Now()
	runErr := p.play(ctx, sc)
	p.Stats.Playback = time.Since(playStart)
	p.Stats.Draws = sc.Draws()

	if err := p.Sink.Close(); err != nil && runErr == nil {
		runErr = err
	}
	if runErr != nil {
		return runErr
	}

	if p.Config.ShowStats {
		p.report(time.Since(startTime))
	}
	return nil
}

// play runs the driver on its own goroutine and applies its events to the
// scrubber from this one. It returns once the driver finishes.
func (p *Project) play(ctx context.Context, sc *scrubber.Scrubber) error {
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	events := make(chan driver.Event, 64)
	emit := func(e driver.Event) {
		select {
		case events <- e:
		case <-runCtx.Done():
		}
	}

	done := make(chan error, 1)
	go func() {
		done <- p.Driver.Run(runCtx, emit)
	}()

	live := p.Config.Mode == "live"
	// первый кадр показывается сразу, до первого события прогресса
	if err := p.write(ctx, sc); err != nil {
		return err
	}

	for {
		select {
		case e := <-events:
			if err := p.handle(ctx, sc, e, live); err != nil {
				return err
			}
		case err := <-done:
			// дочитываем то, что драйвер успел отправить
			for {
				select {
				case e := <-events:
					if herr := p.handle(ctx, sc, e, live); herr != nil {
						return herr
					}
				default:
					if errors.Is(err, context.Canceled) && live {
						return nil
					}
					return err
				}
			}
		case <-ctx.Done():
			if live {
				// live-режим завершается по Ctrl+C, ждём отписку драйвера
				<-done
				return nil
			}
			return ctx.Err()
		}
	}
}

func (p *Project) handle(ctx context.Context, sc *scrubber.Scrubber, e driver.Event, live bool) error {
	p.Stats.Events++
	switch e.Kind {
	case driver.KindResize:
		if !live {
			log.Printf("[!] Ресайз %dx%d игнорируется при записи видео", e.Width, e.Height)
			return nil
		}
		if err := sc.Resize(e.Width, e.Height); err != nil {
			return fmt.Errorf("ресайз: %w", err)
		}
		return p.write(ctx, sc)
	default:
		painted, err := sc.OnProgress(e.Progress)
		if err != nil {
			return fmt.Errorf("отрисовка: %w", err)
		}
		// видео пишет каждый тик, live-режим только новые кадры
		if painted || !live {
			return p.write(ctx, sc)
		}
		return nil
	}
}

func (p *Project) write(ctx context.Context, sc *scrubber.Scrubber) error {
	img, err := sc.Surface().Image()
	if err != nil {
		return err
	}
	if err := p.Sink.WriteFrame(ctx, img); err != nil {
		return fmt.Errorf("запись кадра: %w", err)
	}
	p.Stats.Written++
	return nil
}

// renderStatic is the fallback when the animation cannot be set up: the
// first frame is saved as a still next to the requested output.
func (p *Project) renderStatic(ctx context.Context, fs *frameset.FrameSet, cause error) error {
	log.Printf("[!] Анимация недоступна: %v. Сохраняется статичный кадр", cause)
	p.Stats.Static = true

	path := staticPath(p.Config.Output)
	sink, err := video.NewSnapshotSink(path)
	if err != nil {
		return err
	}
	if err := sink.WriteFrame(ctx, fs.At(0)); err != nil {
		return err
	}
	p.Stats.Written = 1
	fmt.Printf("[*] Статичный кадр: %s\n", path)
	return sink.Close()
}

func staticPath(output string) string {
	if output == "" {
		return filepath.Join("output", "static.png")
	}
	ext := filepath.Ext(output)
	if ext == "" {
		return filepath.Join(output, "static.png")
	}
	return strings.TrimSuffix(output, ext) + "_static.png"
}

func (p *Project) openSink(ctx context.Context, width, height int) (video.Sink, error) {
	switch {
	case p.Config.Mode == "live":
		return video.NewSnapshotSink(p.Config.Output)
	case p.Config.Format == "png":
		return video.NewPNGSink(p.Config.Output)
	default:
		if err := os.MkdirAll(filepath.Dir(p.Config.Output), 0755); err != nil {
			return nil, err
		}
		return video.NewFFmpegSink(ctx, p.Config.Output, width, height, p.Config.RenderParams())
	}
}

func (p *Project) driverOptions() driver.Options {
	c := p.Config
	return driver.Options{
		Duration: c.ScrollDuration,
		FPS:      c.FPS,
		Ease:     c.Ease,
		ScrubLag: c.ScrubLag,
		Window:   c.Window,
		Realtime: c.Realtime,
		Broker:   c.Broker,
		Topic:    c.Topic,
		ClientID: c.ClientID,
		Username: c.Username,
		Password: c.Password,
	}
}

func progressPrinter(total int) frameset.ProgressFunc {
	step := total / 10
	if step < 1 {
		step = 1
	}
	return func(settled, total int) {
		if settled%step == 0 || settled == total {
			fmt.Printf("[>] Кадры: %d/%d\n", settled, total)
		}
	}
}

func (p *Project) report(total time.Duration) {
	fps := 0.0
	if p.Stats.Playback > 0 {
		fps = float64(p.Stats.Written) / p.Stats.Playback.Seconds()
	}

	report := fmt.Sprintf(
		"--- [PERFORMANCE REPORT] ---\n"+
			"Build: %s\n"+
			"Total Time: %.2fs\n"+
			"Loading: %.2fs (%d/%d frames)\n"+
			"Playback: %.2fs (%d events, %d draws)\n"+
			"Written Frames: %d\n"+
			"Effective FPS: %.2f\n"+
			"----------------------------\n",
		p.Config.BuildVersion, total.Seconds(), p.Stats.Load.Seconds(), p.Stats.Loaded, p.Stats.Requested,
		p.Stats.Playback.Seconds(), p.Stats.Events, p.Stats.Draws, p.Stats.Written, fps,
	)
	fmt.Print(report)

	logEntry := fmt.Sprintf("[%s] Build: %s | Frames: %d/%d | Total: %.2fs | Load: %.2fs | Draws: %d | Written: %d | FPS: %.2f\n",
		time.Now().Format("2006-01-02 15:04:05"),
		p.Config.BuildVersion,
		p.Stats.Loaded,
		p.Stats.Requested,
		total.Seconds(),
		p.Stats.Load.Seconds(),
		p.Stats.Draws,
		p.Stats.Written,
		fps,
	)

	f, err := os.OpenFile("benchmark.log", os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err == nil {
		f.WriteString(logEntry)
		f.Close()
	} else {
		fmt.Printf("[!] Не удалось записать benchmark.log: %v\n", err)
	}
}
