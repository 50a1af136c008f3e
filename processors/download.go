package processors

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"tubescribe/core"
	"tubescribe/logger"
)

// DownloadAudio fetches the best audio track of a remote video with yt-dlp
// into <outputDir>/raw_audio as MP3 and returns the reported metadata.
func DownloadAudio(ctx context.Context, url, outputDir string, log logger.Logger) (*core.DownloadResult, error) {
	rawDir := filepath.Join(outputDir, "raw_audio")
	if err := os.MkdirAll(rawDir, 0755); err != nil {
		return nil, fmt.Errorf("create raw_audio dir: %w", err)
	}

	log.Info(ctx, "Downloading: %s", url)

	args := []string{
		"--extract-audio",
		"--audio-format", "mp3",
		"--audio-quality", "192K",
		"--no-warnings",
		"--print-json",
		"--output", filepath.Join(rawDir, "%(title)s.%(ext)s"),
		url,
	}

	cmd := exec.CommandContext(ctx, "yt-dlp", args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("%w: yt-dlp: %v: %s", core.ErrDownloadFailed, err, firstLine(stderr.Bytes()))
	}

	var info struct {
		Title    string  `json:"title"`
		Duration float64 `json:"duration"`
		Uploader string  `json:"uploader"`
	}
	if err := json.Unmarshal(stdout.Bytes(), &info); err != nil {
		return nil, fmt.Errorf("%w: parse yt-dlp metadata: %v", core.ErrDownloadFailed, err)
	}
	if info.Title == "" {
		info.Title = "Unknown"
	}
	if info.Uploader == "" {
		info.Uploader = "Unknown"
	}

	audioPath, err := findAudioFile(rawDir, ".mp3")
	if err != nil {
		return nil, fmt.Errorf("%w: %v", core.ErrDownloadFailed, err)
	}

	log.Info(ctx, "Downloaded: %s", info.Title)

	return &core.DownloadResult{
		Title:     info.Title,
		Duration:  info.Duration,
		Uploader:  info.Uploader,
		URL:       url,
		AudioPath: audioPath,
	}, nil
}

// findAudioFile returns the first file under dir with the extension.
func findAudioFile(dir, ext string) (string, error) {
	var found string
	err := filepath.Walk(dir, func(path string, fi os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if found == "" && !fi.IsDir() && strings.HasSuffix(path, ext) {
			found = path
		}
		return nil
	})
	if err != nil {
		return "", err
	}
	if found == "" {
		return "", fmt.Errorf("no %s file found after download", ext)
	}
	return found, nil
}
