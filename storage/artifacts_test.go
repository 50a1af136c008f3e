package storage

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"tubescribe/core"
)

func sampleTranscripts() []core.ChunkTranscript {
	return []core.ChunkTranscript{
		{
			ChunkID:  0,
			File:     "segment_000.mp3",
			Language: "ko",
			Segments: []core.Segment{
				{Start: 0, End: 4.5, Text: "first segment"},
				{Start: 4.5, End: 9, Text: "second segment"},
			},
		},
		{
			ChunkID:  2,
			File:     "segment_002.mp3",
			Language: "ko",
			Segments: []core.Segment{
				{Start: 1200, End: 1261, Text: "third segment"},
			},
		},
	}
}

func TestTranscriptJSONRoundTrip(t *testing.T) {
	dir := t.TempDir()
	transcripts := sampleTranscripts()

	if err := SaveTranscripts(transcripts, dir, "My Video"); err != nil {
		t.Fatal(err)
	}

	doc, err := LoadTranscript(dir)
	if err != nil {
		t.Fatal(err)
	}
	if doc.Title != "My Video" {
		t.Errorf("title = %q, want %q", doc.Title, "My Video")
	}
	if !reflect.DeepEqual(doc.Chunks, transcripts) {
		t.Errorf("chunks changed across round trip:\ngot  %+v\nwant %+v", doc.Chunks, transcripts)
	}
}

func TestLoadTranscriptMissing(t *testing.T) {
	_, err := LoadTranscript(t.TempDir())
	if !errors.Is(err, core.ErrTranscriptMissing) {
		t.Errorf("got %v, want core.ErrTranscriptMissing", err)
	}
}

func TestTranscriptTxtFormat(t *testing.T) {
	dir := t.TempDir()
	if err := SaveTranscripts(sampleTranscripts(), dir, "My Video"); err != nil {
		t.Fatal(err)
	}

	data, err := os.ReadFile(filepath.Join(dir, TranscriptTxtFile))
	if err != nil {
		t.Fatal(err)
	}
	txt := string(data)
	if !strings.HasPrefix(txt, "# My Video\n\n") {
		t.Errorf("txt should start with the title header, got %q", txt[:min(len(txt), 30)])
	}
	if !strings.Contains(txt, "first segment second segment") {
		t.Error("segments within a chunk should join on one line")
	}
}

func TestTranscriptTimestampsFormat(t *testing.T) {
	dir := t.TempDir()
	if err := SaveTranscripts(sampleTranscripts(), dir, "My Video"); err != nil {
		t.Fatal(err)
	}

	data, err := os.ReadFile(filepath.Join(dir, TranscriptTimestampsFile))
	if err != nil {
		t.Fatal(err)
	}
	txt := string(data)
	for _, want := range []string{
		"[00:00:00 -> 00:00:04] first segment",
		"[00:20:00 -> 00:21:01] third segment",
	} {
		if !strings.Contains(txt, want) {
			t.Errorf("missing line %q in:\n%s", want, txt)
		}
	}
}

func TestSaveSummarySections(t *testing.T) {
	dir := t.TempDir()
	summary := core.SummaryResult{LongSummary: "- point one\n- point two", ShortSummary: "two points"}
	if err := SaveSummary(summary, dir); err != nil {
		t.Fatal(err)
	}

	data, err := os.ReadFile(filepath.Join(dir, SummaryFile))
	if err != nil {
		t.Fatal(err)
	}
	txt := string(data)
	long := strings.Index(txt, "=== Detailed Summary ===")
	short := strings.Index(txt, "=== TL;DR ===")
	if long < 0 || short < 0 || short < long {
		t.Fatalf("sections missing or out of order:\n%s", txt)
	}
	if !strings.Contains(txt, "- point one") || !strings.Contains(txt, "two points") {
		t.Errorf("summary content missing:\n%s", txt)
	}
}

func TestCleanupRemovesTransientDirsOnly(t *testing.T) {
	dir := t.TempDir()
	for _, sub := range []string{"chunks", "raw_audio"} {
		if err := os.MkdirAll(filepath.Join(dir, sub), 0755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(filepath.Join(dir, sub, "x.mp3"), []byte("x"), 0644); err != nil {
			t.Fatal(err)
		}
	}
	if err := SaveTranscripts(sampleTranscripts(), dir, "My Video"); err != nil {
		t.Fatal(err)
	}

	if err := Cleanup(dir); err != nil {
		t.Fatal(err)
	}

	for _, sub := range []string{"chunks", "raw_audio"} {
		if _, err := os.Stat(filepath.Join(dir, sub)); !os.IsNotExist(err) {
			t.Errorf("%s should be removed", sub)
		}
	}
	if _, err := os.Stat(filepath.Join(dir, TranscriptJSONFile)); err != nil {
		t.Errorf("transcript.json should survive cleanup: %v", err)
	}
}
