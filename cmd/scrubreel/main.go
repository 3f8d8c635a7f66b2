package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"time"

	"github.com/ivlev/scrubreel/internal/config"
	"github.com/ivlev/scrubreel/internal/engine"
	"github.com/ivlev/scrubreel/internal/frameset"
	"github.com/ivlev/scrubreel/internal/system"
)

var buildVersion = "dev"

func main() {
	// Увеличиваем лимиты системы: сотни кадров читаются одновременно
	system.InitResourceLimits()

	for _, d := range []string{"input/frames", "output"} {
		os.MkdirAll(d, 0755)
	}

	configPtr := flag.String("config", "", "YAML-файл настроек (флаги имеют приоритет)")
	inputPtr := flag.String("input", "", "Папка с кадрами NNNN.ext (по умолчанию: самая свежая в input/frames/)")
	urlPtr := flag.String("url", "", "Базовый URL последовательности кадров")
	pdfPtr := flag.String("pdf", "", "PDF, страницы которого становятся кадрами")
	countPtr := flag.Int("count", 0, "Количество кадров (0 - по числу файлов)")
	outputPtr := flag.String("output", "", "Путь к видео или папке PNG (если пусто, генерируется автоматически в output/)")
	widthPtr := flag.Int("width", 0, "Ширина холста в CSS-пикселях")
	heightPtr := flag.Int("height", 0, "Высота холста в CSS-пикселях")
	dprPtr := flag.Float64("dpr", 0, "Плотность пикселей (devicePixelRatio)")
	presetPtr := flag.String("preset", "", "Пресет формата: 16:9, 9:16 (Shorts/TikTok), 4:5 (Instagram)")
	tablePtr := flag.String("table", "", "Таблица кадров: deo, mobile3d, proportional, linear или путь к YAML")
	modePtr := flag.String("mode", "", "Режим: render (запись видео) или live (кадр по событиям)")
	driverPtr := flag.String("driver", "", "Источник прогресса: timeline или mqtt")
	durationPtr := flag.Duration("duration", 0, "Длительность скролла, например 20s")
	fpsPtr := flag.Int("fps", 0, "FPS")
	easePtr := flag.String("ease", "", "Кривая скролла: linear, in-out-quad, in-out-cubic, in-out-sine, out-quad, out-cubic")
	lagPtr := flag.Float64("scrub-lag", -1, "Задержка догонки скролла в секундах (0 - без сглаживания)")
	workersPtr := flag.Int("workers", 0, "Потоки загрузки кадров")
	formatPtr := flag.String("format", "", "Формат вывода: mp4 или png")
	qualityPtr := flag.Int("quality", 0, "Качество видео (0 - авто, x264: CRF 1-51, VideoToolbox: битрейт = Q*100кбит/с)")
	brokerPtr := flag.String("broker", "", "MQTT брокер, например tcp://localhost:1883")
	topicPtr := flag.String("topic", "", "Префикс MQTT-топиков")
	debugPtr := flag.Bool("debug", false, "Печатать номер кадра QR-кодом в углу")
	statsPtr := flag.Bool("stats", false, "Отчёт о производительности и запись в benchmark.log")

	flag.Parse()

	cfg := config.Default()
	if *configPtr != "" {
		loaded, err := config.Load(*configPtr)
		if err != nil {
			log.Fatalf("[-] Ошибка чтения настроек: %v", err)
		}
		cfg = loaded
		fmt.Printf("[*] Настройки: %s\n", *configPtr)
	}
	if err := cfg.ApplyEnv(); err != nil {
		log.Fatalf("[-] Ошибка переменных окружения: %v", err)
	}

	// флаги перекрывают файл, только если заданы явно
	set := map[string]bool{}
	flag.Visit(func(f *flag.Flag) { set[f.Name] = true })

	if set["input"] {
		cfg.BaseDir, cfg.URL, cfg.PDF = *inputPtr, "", ""
	}
	if set["url"] {
		cfg.BaseDir, cfg.URL, cfg.PDF = "", *urlPtr, ""
	}
	if set["pdf"] {
		cfg.BaseDir, cfg.URL, cfg.PDF = "", "", *pdfPtr
	}
	if set["count"] {
		cfg.Count = *countPtr
	}
	if set["output"] {
		cfg.Output = *outputPtr
	}
	if err := cfg.ApplyPreset(*presetPtr); err != nil {
		log.Fatalf("[-] Ошибка: %v", err)
	}
	if set["width"] {
		cfg.Width = *widthPtr
	}
	if set["height"] {
		cfg.Height = *heightPtr
	}
	if set["dpr"] {
		cfg.DPR = *dprPtr
	}
	if set["table"] {
		if strings.HasSuffix(*tablePtr, ".yaml") || strings.HasSuffix(*tablePtr, ".yml") {
			cfg.TablePath = *tablePtr
		} else {
			cfg.Preset, cfg.TablePath, cfg.Segments = *tablePtr, "", nil
		}
	}
	if set["mode"] {
		cfg.Mode = *modePtr
	}
	if set["driver"] {
		cfg.Driver = *driverPtr
	}
	if set["duration"] {
		cfg.ScrollDuration = *durationPtr
	}
	if set["fps"] {
		cfg.FPS = *fpsPtr
	}
	if set["ease"] {
		cfg.Ease = *easePtr
	}
	if set["scrub-lag"] {
		cfg.ScrubLag = *lagPtr
	}
	if set["workers"] {
		cfg.Workers = *workersPtr
	}
	if set["format"] {
		cfg.Format = *formatPtr
	}
	if set["quality"] {
		cfg.Quality = *qualityPtr
	}
	if set["broker"] {
		cfg.Broker = *brokerPtr
	}
	if set["topic"] {
		cfg.Topic = *topicPtr
	}
	if set["debug"] {
		cfg.Debug = *debugPtr
	}
	if set["stats"] {
		cfg.ShowStats = *statsPtr
	}
	cfg.BuildVersion = buildVersion

	if cfg.BaseDir == "" && cfg.URL == "" && cfg.PDF == "" {
		latest, err := system.FindLatestSequence("input/frames")
		if err != nil {
			log.Fatalf("[-] Ошибка: %v. Положите кадры в input/frames/", err)
		}
		cfg.BaseDir = latest
		fmt.Printf("[*] Выбрана последовательность: %s\n", latest)
	}
	if cfg.BaseDir != "" {
		if ext, err := system.DetectExtension(cfg.BaseDir); err == nil && !set["count"] {
			cfg.Ext = ext
			cfg.Count = system.CountFrames(cfg.BaseDir)
		}
	}

	if cfg.Mode == "render" && cfg.Format == "mp4" {
		if cfg.VideoEncoder == "" {
			encoderName, _ := system.GetBestH264Encoder()
			if encoderName != "libx264" {
				fmt.Printf("[*] Обнаружено аппаратное ускорение: %s\n", encoderName)
			}
			cfg.VideoEncoder = encoderName
		}
		if cfg.Quality == 0 {
			cfg.Quality = system.DefaultQuality(cfg.VideoEncoder)
		}
	}

	if cfg.Output == "" {
		cfg.Output = defaultOutput(cfg)
	}

	if err := cfg.Validate(); err != nil {
		log.Fatalf("[-] Ошибка настроек: %v", err)
	}

	src, err := engine.OpenSource(cfg)
	if err != nil {
		log.Fatalf("[-] Ошибка инициализации источника: %v", err)
	}
	defer src.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	project := engine.NewProject(cfg, src)
	if err := project.Run(ctx); err != nil {
		if errors.Is(err, frameset.ErrNoContent) {
			log.Fatalf("[-] %s", engine.NoContentMessage)
		}
		log.Fatalf("[-] Ошибка проекта: %v", err)
	}

	fmt.Printf("[+++] Успех! Результат: %s\n", cfg.Output)
}

// defaultOutput names the result after the frame source and the current time.
func defaultOutput(cfg *config.Config) string {
	if cfg.Mode == "live" {
		return filepath.Join("output", "live.png")
	}

	nameSource := cfg.BaseDir
	switch {
	case cfg.PDF != "":
		nameSource = cfg.PDF
	case cfg.URL != "":
		nameSource = strings.TrimRight(cfg.URL, "/")
	}
	baseName := filepath.Base(nameSource)
	nameOnly := strings.TrimSuffix(baseName, filepath.Ext(baseName))
	cleanName := strings.ReplaceAll(nameOnly, " ", "_")
	timestamp := time.Now().Format("2006-01-02_15-04-05")

	if cfg.Format == "png" {
		return filepath.Join("output", fmt.Sprintf("%s_%s", cleanName, timestamp))
	}
	return filepath.Join("output", fmt.Sprintf("%s_%s.mp4", cleanName, timestamp))
}
