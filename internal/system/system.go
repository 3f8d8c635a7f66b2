package system

import (
	"fmt"
	"log"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"syscall"
	"time"
)

var frameExtensions = []string{".png", ".webp", ".jpg", ".jpeg"}

// InitResourceLimits поднимает лимит открытых файлов: загрузчик
// открывает сотни кадров одновременно.
func InitResourceLimits() {
	var rLimit syscall.Rlimit
	err := syscall.Getrlimit(syscall.RLIMIT_NOFILE, &rLimit)
	if err != nil {
		log.Printf("[!] Не удалось получить лимит файлов: %v", err)
		return
	}

	rLimit.Cur = 2048
	if rLimit.Cur > rLimit.Max {
		rLimit.Cur = rLimit.Max
	}

	err = syscall.Setrlimit(syscall.RLIMIT_NOFILE, &rLimit)
	if err != nil {
		log.Printf("[!] Не удалось установить лимит файлов: %v", err)
	} else {
		fmt.Printf("[*] Системный лимит открытых файлов увеличен до %d\n", rLimit.Cur)
	}
}

// IsFrameFile reports whether name has one of the supported frame extensions.
func IsFrameFile(name string) bool {
	lower := strings.ToLower(name)
	for _, ext := range frameExtensions {
		if strings.HasSuffix(lower, ext) {
			return true
		}
	}
	return false
}

// FindLatestSequence ищет в dir самую свежую подпапку с кадрами.
// Если подпапок нет, но кадры лежат прямо в dir, возвращается сам dir.
func FindLatestSequence(dir string) (string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", err
	}

	var latestDir string
	var latestTime time.Time

	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		sub := filepath.Join(dir, e.Name())
		if CountFrames(sub) == 0 {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		if info.ModTime().After(latestTime) {
			latestTime = info.ModTime()
			latestDir = sub
		}
	}

	if latestDir == "" && CountFrames(dir) > 0 {
		latestDir = dir
	}
	if latestDir == "" {
		return "", fmt.Errorf("в папке %s не найдено последовательностей кадров", dir)
	}
	return latestDir, nil
}

// DetectExtension returns the frame extension used by the first frame file in dir.
func DetectExtension(dir string) (string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", err
	}
	for _, e := range entries {
		if !e.IsDir() && IsFrameFile(e.Name()) {
			return strings.TrimPrefix(strings.ToLower(filepath.Ext(e.Name())), "."), nil
		}
	}
	return "", fmt.Errorf("в папке %s нет кадров", dir)
}

// CountFrames counts frame files in dir.
func CountFrames(dir string) int {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0
	}
	n := 0
	for _, e := range entries {
		if !e.IsDir() && IsFrameFile(e.Name()) {
			n++
		}
	}
	return n
}

func GetBestH264Encoder() (string, string) {
	// Приоритеты:
	// 1. MacOS (VideoToolbox)
	// 2. NVIDIA (NVENC)
	// 3. Software (libx264)
	encoders := []struct {
		name string
		args string
	}{
		{"h264_videotoolbox", ""},
		{"h264_nvenc", ""},
	}

	cmd := exec.Command("ffmpeg", "-hide_banner", "-encoders")
	out, err := cmd.CombinedOutput()
	if err != nil {
		return "libx264", ""
	}

	for _, enc := range encoders {
		if strings.Contains(string(out), enc.name) {
			return enc.name, enc.args
		}
	}

	return "libx264", ""
}

// DefaultQuality returns the quality used when none is configured.
func DefaultQuality(encoderName string) int {
	switch encoderName {
	case "h264_videotoolbox":
		return 75 // битрейт = Q*100 кбит/с
	case "h264_nvenc":
		return 28
	default:
		return 23 // CRF для x264
	}
}
