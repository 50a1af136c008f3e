package processors

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"math"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/tcolgate/mp3"

	"tubescribe/core"
)

// SegmentOptions controls how the source audio is split into chunks.
type SegmentOptions struct {
	// SegmentLengthSec is the nominal chunk duration. Defaults to 600.
	SegmentLengthSec float64

	// ForceFallback skips the ffmpeg path even when the tool is present.
	// Useful where spawning external tools is not allowed, and for
	// deterministic tests.
	ForceFallback bool
}

const defaultSegmentLengthSec = 600

// SegmentAudio splits one audio file into ordered, bounded chunks under
// <outputDir>/chunks, named segment_000.mp3, segment_001.mp3, ...
//
// The ffmpeg segment muxer is tried first (stream copy, no re-encode).
// When ffmpeg is missing or errors, the file is re-split in process by
// walking its MP3 frames. Only when both strategies fail is the error
// fatal: no chunks means nothing to transcribe.
func SegmentAudio(ctx context.Context, audioPath, outputDir string, opts SegmentOptions) ([]core.AudioChunk, error) {
	if opts.SegmentLengthSec <= 0 {
		opts.SegmentLengthSec = defaultSegmentLengthSec
	}

	chunksDir := filepath.Join(outputDir, "chunks")
	if err := os.MkdirAll(chunksDir, 0755); err != nil {
		return nil, fmt.Errorf("create chunks dir: %w", err)
	}

	if !opts.ForceFallback {
		chunks, err := segmentWithFFmpeg(ctx, audioPath, chunksDir, opts.SegmentLengthSec)
		if err == nil && len(chunks) > 0 {
			return chunks, nil
		}
		// Recoverable: clear any partial output and retry in process.
		removeChunkFiles(chunksDir)
	}

	chunks, err := segmentByFrames(audioPath, chunksDir, opts.SegmentLengthSec)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", core.ErrNoChunks, err)
	}
	return chunks, nil
}

// segmentWithFFmpeg probes the duration, then asks the segment muxer to
// emit fixed-length stream copies directly into chunksDir.
func segmentWithFFmpeg(ctx context.Context, audioPath, chunksDir string, segmentLen float64) ([]core.AudioChunk, error) {
	duration, err := ProbeDuration(ctx, audioPath)
	if err != nil {
		return nil, err
	}

	pattern := filepath.Join(chunksDir, "segment_%03d"+filepath.Ext(audioPath))
	args := []string{
		"-y", "-i", audioPath,
		"-f", "segment",
		"-segment_time", strconv.FormatFloat(segmentLen, 'f', -1, 64),
		"-c", "copy",
		"-reset_timestamps", "1",
		pattern,
	}
	if err := runFFmpeg(ctx, args); err != nil {
		return nil, err
	}

	paths, err := listChunkFiles(chunksDir)
	if err != nil {
		return nil, err
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("ffmpeg produced no segment files")
	}

	windows := ChunkWindows(duration, segmentLen)
	chunks := make([]core.AudioChunk, 0, len(paths))
	for i, p := range paths {
		start := float64(i) * segmentLen
		end := start + segmentLen
		if i < len(windows) {
			start, end = windows[i].Start, windows[i].End
		}
		chunks = append(chunks, core.AudioChunk{ID: i, Path: p, StartSec: start, EndSec: end})
	}
	return chunks, nil
}

// segmentByFrames re-splits an MP3 in process without re-encoding: frames
// are copied verbatim into the current chunk file until its window is
// full. The whole frame stream is walked once; no decode to PCM happens.
func segmentByFrames(audioPath, chunksDir string, segmentLen float64) ([]core.AudioChunk, error) {
	src, err := os.Open(audioPath)
	if err != nil {
		return nil, fmt.Errorf("open audio: %w", err)
	}
	defer src.Close()

	dec := mp3.NewDecoder(src)

	var (
		frame   mp3.Frame
		skipped int
		elapsed float64
		chunks  []core.AudioChunk
		out     *os.File
	)

	closeCurrent := func() {
		if out != nil {
			out.Close()
			out = nil
		}
	}
	defer closeCurrent()

	for {
		if err := dec.Decode(&frame, &skipped); err != nil {
			if err == io.EOF {
				break
			}
			if len(chunks) > 0 {
				// Trailing garbage after valid frames; keep what we have.
				break
			}
			return nil, fmt.Errorf("decode mp3 frames: %w", err)
		}

		idx := int(elapsed / segmentLen)
		if idx >= len(chunks) {
			closeCurrent()
			path := filepath.Join(chunksDir, chunkFileName(len(chunks), filepath.Ext(audioPath)))
			out, err = os.Create(path)
			if err != nil {
				return nil, fmt.Errorf("create chunk file: %w", err)
			}
			chunks = append(chunks, core.AudioChunk{
				ID:       len(chunks),
				Path:     path,
				StartSec: float64(len(chunks)) * segmentLen,
			})
		}

		if _, err := io.Copy(out, frame.Reader()); err != nil {
			return nil, fmt.Errorf("write chunk: %w", err)
		}
		elapsed += frame.Duration().Seconds()
		chunks[len(chunks)-1].EndSec = elapsed
	}
	closeCurrent()

	if len(chunks) == 0 {
		return nil, fmt.Errorf("no mp3 frames found in %s", filepath.Base(audioPath))
	}
	return chunks, nil
}

// Window is a nominal [Start, End) span of one chunk, in seconds.
type Window struct {
	Start float64
	End   float64
}

// ChunkWindows computes the nominal chunk spans for a source of the given
// duration: ceil(duration/segmentLen) windows, the last one shorter unless
// the duration is an exact multiple. A source shorter than one segment
// still gets exactly one window.
func ChunkWindows(duration, segmentLen float64) []Window {
	if duration <= 0 || segmentLen <= 0 {
		return []Window{{Start: 0, End: math.Max(duration, 0)}}
	}
	n := int(math.Ceil(duration / segmentLen))
	if n < 1 {
		n = 1
	}
	windows := make([]Window, n)
	for i := range windows {
		start := float64(i) * segmentLen
		end := start + segmentLen
		if end > duration {
			end = duration
		}
		windows[i] = Window{Start: start, End: end}
	}
	return windows
}

func chunkFileName(i int, ext string) string {
	if ext == "" {
		ext = ".mp3"
	}
	return fmt.Sprintf("segment_%03d%s", i, ext)
}

// listChunkFiles returns the segment_* files in dir sorted lexically,
// which equals numeric order given the zero-padded naming.
func listChunkFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var paths []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasPrefix(e.Name(), "segment_") {
			continue
		}
		paths = append(paths, filepath.Join(dir, e.Name()))
	}
	sort.Strings(paths)
	return paths, nil
}

func removeChunkFiles(dir string) {
	paths, err := listChunkFiles(dir)
	if err != nil {
		return
	}
	for _, p := range paths {
		_ = os.Remove(p)
	}
}

// ProbeDuration asks ffprobe for the total duration in seconds.
func ProbeDuration(ctx context.Context, path string) (float64, error) {
	cmd := exec.CommandContext(ctx, "ffprobe",
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1",
		path)
	var out bytes.Buffer
	cmd.Stdout = &out
	if err := cmd.Run(); err != nil {
		return 0, err
	}
	s := strings.TrimSpace(out.String())
	return strconv.ParseFloat(s, 64)
}

func runFFmpeg(ctx context.Context, args []string) error {
	cmd := exec.CommandContext(ctx, "ffmpeg", args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		msg := strings.TrimSpace(stderr.String())
		if len(msg) > 300 {
			msg = msg[len(msg)-300:]
		}
		return fmt.Errorf("ffmpeg: %w: %s", err, msg)
	}
	return nil
}
