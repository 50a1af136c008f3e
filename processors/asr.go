package processors

import (
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"tubescribe/core"
	"tubescribe/logger"
)

//go:embed assets/faster_whisper.py
var fwScript []byte

// TranscribeOptions are per-run knobs for the ASR engine.
type TranscribeOptions struct {
	// Language hint; empty requests auto-detection.
	Language string

	// VAD settings; the zero value resolves to core.DefaultVADConfig.
	VAD core.VADConfig
}

// Engine converts one audio file into timed text segments plus the
// detected language.
type Engine interface {
	Transcribe(ctx context.Context, audioPath string, opts TranscribeOptions) ([]core.Segment, string, error)
}

// Engines hold loaded model weights and are expensive to build, so at most
// one exists per model size for the process lifetime.
var (
	engineMu sync.Mutex
	engines  = map[string]Engine{}

	// Swapped in tests.
	newEngine = newFasterWhisperEngine
)

// GetEngine returns the cached engine for modelSize, constructing it on
// first use. Construction tries the accelerated configuration first and
// falls back once to CPU; if both fail the error is returned as-is, since
// a model size the CPU cannot load either is a caller mistake, not a
// recoverable condition.
func GetEngine(ctx context.Context, modelSize string) (Engine, error) {
	engineMu.Lock()
	defer engineMu.Unlock()

	if e, ok := engines[modelSize]; ok {
		return e, nil
	}
	e, err := newEngine(ctx, modelSize)
	if err != nil {
		return nil, err
	}
	engines[modelSize] = e
	return e, nil
}

// ResetEngineCache drops all cached engines. Intended for tests.
func ResetEngineCache() {
	engineMu.Lock()
	defer engineMu.Unlock()
	engines = map[string]Engine{}
}

// fasterWhisperEngine shells out to a python helper around faster-whisper.
// The device and compute type are fixed at construction time.
type fasterWhisperEngine struct {
	modelSize   string
	device      string
	computeType string
	scriptPath  string
}

// newFasterWhisperEngine probes cuda/float16 first, then cpu/int8. The
// fallback happens here, once, never per chunk.
func newFasterWhisperEngine(ctx context.Context, modelSize string) (Engine, error) {
	scriptPath := filepath.Join(os.TempDir(), "tubescribe_faster_whisper.py")
	if err := os.WriteFile(scriptPath, fwScript, 0755); err != nil {
		return nil, fmt.Errorf("write helper script: %w", err)
	}

	e := &fasterWhisperEngine{
		modelSize:   modelSize,
		device:      "cuda",
		computeType: "float16",
		scriptPath:  scriptPath,
	}
	if err := e.probe(ctx); err == nil {
		return e, nil
	}

	e.device = "cpu"
	e.computeType = "int8"
	if err := e.probe(ctx); err != nil {
		return nil, fmt.Errorf("load whisper model %q: %w", modelSize, err)
	}
	return e, nil
}

func (e *fasterWhisperEngine) probe(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Minute)
	defer cancel()
	cmd := exec.CommandContext(ctx, pythonBin(), e.scriptPath,
		"--model", e.modelSize,
		"--device", e.device,
		"--compute-type", e.computeType,
		"--probe")
	out, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("probe %s/%s: %s", e.device, e.computeType, firstLine(out))
	}
	return nil
}

type fwOutput struct {
	Language string `json:"language"`
	Segments []struct {
		Start float64 `json:"start"`
		End   float64 `json:"end"`
		Text  string  `json:"text"`
	} `json:"segments"`
}

func (e *fasterWhisperEngine) Transcribe(ctx context.Context, audioPath string, opts TranscribeOptions) ([]core.Segment, string, error) {
	vad := opts.VAD
	if vad.MinSilenceDurationMs == 0 {
		vad = core.DefaultVADConfig()
	}

	args := []string{
		e.scriptPath,
		"--audio", audioPath,
		"--model", e.modelSize,
		"--device", e.device,
		"--compute-type", e.computeType,
		"--min-silence-ms", strconv.Itoa(vad.MinSilenceDurationMs),
	}
	if opts.Language != "" {
		args = append(args, "--language", opts.Language)
	}
	if vad.SpeechPadMs > 0 {
		args = append(args, "--speech-pad-ms", strconv.Itoa(vad.SpeechPadMs))
	}
	if vad.Threshold > 0 {
		args = append(args, "--threshold", strconv.FormatFloat(vad.Threshold, 'f', -1, 64))
	}

	ctx, cancel := context.WithTimeout(ctx, 30*time.Minute)
	defer cancel()
	cmd := exec.CommandContext(ctx, pythonBin(), args...)
	out, err := cmd.Output()
	if err != nil {
		if ee, ok := err.(*exec.ExitError); ok {
			return nil, "", fmt.Errorf("faster-whisper: %s", firstLine(ee.Stderr))
		}
		return nil, "", fmt.Errorf("run helper: %w", err)
	}

	var parsed fwOutput
	if err := json.Unmarshal(out, &parsed); err != nil {
		return nil, "", fmt.Errorf("parse helper output: %w", err)
	}

	segs := make([]core.Segment, 0, len(parsed.Segments))
	for _, s := range parsed.Segments {
		segs = append(segs, core.Segment{Start: s.Start, End: s.End, Text: strings.TrimSpace(s.Text)})
	}
	return segs, parsed.Language, nil
}

func pythonBin() string {
	if py := os.Getenv("TUBESCRIBE_PY"); py != "" {
		return py
	}
	return "python3"
}

func firstLine(b []byte) string {
	s := strings.TrimSpace(string(b))
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[:i]
	}
	return s
}

// TranscribeChunks runs the ASR engine over every chunk in ascending ID
// order. A chunk whose transcription errors is logged and omitted; the
// survivors keep their original IDs and ordering. The error return is
// non-nil only when the engine itself cannot be constructed.
func TranscribeChunks(ctx context.Context, chunks []core.AudioChunk, modelSize string, opts TranscribeOptions, log logger.Logger) ([]core.ChunkTranscript, error) {
	engine, err := GetEngine(ctx, modelSize)
	if err != nil {
		return nil, err
	}

	transcripts := make([]core.ChunkTranscript, 0, len(chunks))
	for i, chunk := range chunks {
		log.Info(ctx, "Transcribing chunk %d/%d: %s", i+1, len(chunks), filepath.Base(chunk.Path))

		segs, lang, err := engine.Transcribe(ctx, chunk.Path, opts)
		if err != nil {
			log.Error(ctx, "Transcription failed for %s: %v", filepath.Base(chunk.Path), err)
			continue
		}

		for j := range segs {
			segs[j].Text = strings.TrimSpace(segs[j].Text)
		}
		transcripts = append(transcripts, core.ChunkTranscript{
			ChunkID:  chunk.ID,
			File:     filepath.Base(chunk.Path),
			Language: lang,
			Segments: segs,
		})
		log.Debug(ctx, "Chunk %d: %d segments", chunk.ID, len(segs))
	}

	// Assembly must not depend on completion order.
	sort.Slice(transcripts, func(a, b int) bool { return transcripts[a].ChunkID < transcripts[b].ChunkID })

	log.Info(ctx, "Transcription complete: %d/%d chunks", len(transcripts), len(chunks))
	return transcripts, nil
}
