package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"tubescribe/core"
)

// Persisted artifact names. Everything else under the output directory is
// transient and removed by Cleanup.
const (
	TranscriptTxtFile        = "transcript.txt"
	TranscriptTimestampsFile = "transcript_with_timestamps.txt"
	TranscriptJSONFile       = "transcript.json"
	MetadataFile             = "metadata.json"
	SummaryFile              = "summary.txt"
)

// SaveTranscripts writes the three transcript artifacts.
func SaveTranscripts(transcripts []core.ChunkTranscript, outputDir, title string) error {
	if err := saveTranscriptTxt(transcripts, outputDir, title); err != nil {
		return err
	}
	if err := saveTranscriptTimestamps(transcripts, outputDir, title); err != nil {
		return err
	}
	return saveTranscriptJSON(transcripts, outputDir, title)
}

func saveTranscriptTxt(transcripts []core.ChunkTranscript, outputDir, title string) error {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", title)
	for _, chunk := range transcripts {
		for _, seg := range chunk.Segments {
			b.WriteString(seg.Text)
			b.WriteString(" ")
		}
		b.WriteString("\n\n")
	}
	return os.WriteFile(filepath.Join(outputDir, TranscriptTxtFile), []byte(b.String()), 0644)
}

func saveTranscriptTimestamps(transcripts []core.ChunkTranscript, outputDir, title string) error {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", title)
	for _, chunk := range transcripts {
		for _, seg := range chunk.Segments {
			fmt.Fprintf(&b, "[%s -> %s] %s\n", core.FormatTime(seg.Start), core.FormatTime(seg.End), seg.Text)
		}
		b.WriteString("\n")
	}
	return os.WriteFile(filepath.Join(outputDir, TranscriptTimestampsFile), []byte(b.String()), 0644)
}

func saveTranscriptJSON(transcripts []core.ChunkTranscript, outputDir, title string) error {
	doc := core.Transcript{Title: title, Chunks: transcripts}
	return saveJSON(filepath.Join(outputDir, TranscriptJSONFile), doc)
}

// LoadTranscript reads transcript.json back; summarize-only mode starts
// from this. A missing file is the fatal core.ErrTranscriptMissing kind.
func LoadTranscript(outputDir string) (*core.Transcript, error) {
	path := filepath.Join(outputDir, TranscriptJSONFile)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", core.ErrTranscriptMissing, path)
		}
		return nil, err
	}
	var doc core.Transcript
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return &doc, nil
}

// SaveSummary writes summary.txt with the detailed section first and the
// TL;DR section after it.
func SaveSummary(summary core.SummaryResult, outputDir string) error {
	var b strings.Builder
	b.WriteString("=== Detailed Summary ===\n\n")
	b.WriteString(summary.LongSummary)
	b.WriteString("\n\n=== TL;DR ===\n\n")
	b.WriteString(summary.ShortSummary)
	return os.WriteFile(filepath.Join(outputDir, SummaryFile), []byte(b.String()), 0644)
}

// SaveMetadata persists the download metadata. Path-typed fields are plain
// strings in core.DownloadResult, so it serializes directly.
func SaveMetadata(meta *core.DownloadResult, outputDir string) error {
	return saveJSON(filepath.Join(outputDir, MetadataFile), meta)
}

// Cleanup removes the transient working directories, keeping the
// persisted artifacts.
func Cleanup(outputDir string) error {
	for _, dir := range []string{"chunks", "raw_audio"} {
		if err := os.RemoveAll(filepath.Join(outputDir, dir)); err != nil {
			return err
		}
	}
	return nil
}

func saveJSON(path string, data interface{}) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	encoder := json.NewEncoder(file)
	encoder.SetEscapeHTML(false)
	encoder.SetIndent("", "  ")
	return encoder.Encode(data)
}
