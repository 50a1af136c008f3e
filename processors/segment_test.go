package processors

import (
	"context"
	"errors"
	"math"
	"os"
	"path/filepath"
	"sort"
	"testing"

	"tubescribe/core"
)

func TestChunkWindows(t *testing.T) {
	tests := []struct {
		name       string
		duration   float64
		segmentLen float64
		wantCount  int
		wantLast   float64
	}{
		{"even split with remainder", 100, 30, 4, 10},
		{"exact single segment", 60, 60, 1, 60},
		{"exact multiple", 120, 60, 2, 60},
		{"shorter than one segment", 5, 600, 1, 5},
		{"typical video", 3723.5, 600, 7, 123.5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			windows := ChunkWindows(tt.duration, tt.segmentLen)
			if len(windows) != tt.wantCount {
				t.Fatalf("got %d windows, want %d", len(windows), tt.wantCount)
			}
			last := windows[len(windows)-1]
			if got := last.End - last.Start; math.Abs(got-tt.wantLast) > 1e-9 {
				t.Errorf("last window duration = %v, want %v", got, tt.wantLast)
			}
			for i, w := range windows {
				if w.Start != float64(i)*tt.segmentLen {
					t.Errorf("window %d starts at %v, want %v", i, w.Start, float64(i)*tt.segmentLen)
				}
				if w.End <= w.Start {
					t.Errorf("window %d is empty: %+v", i, w)
				}
			}
		})
	}
}

func TestChunkWindowsZeroDuration(t *testing.T) {
	windows := ChunkWindows(0, 600)
	if len(windows) != 1 {
		t.Fatalf("got %d windows, want 1", len(windows))
	}
}

func TestChunkFileNameOrdering(t *testing.T) {
	// Lexical order of the zero-padded names must equal numeric order.
	names := make([]string, 0, 12)
	for i := 11; i >= 0; i-- {
		names = append(names, chunkFileName(i, ".mp3"))
	}
	sort.Strings(names)
	for i, name := range names {
		if want := chunkFileName(i, ".mp3"); name != want {
			t.Errorf("position %d: got %s, want %s", i, name, want)
		}
	}
}

func TestListChunkFiles(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"segment_002.mp3", "segment_000.mp3", "segment_001.mp3", "other.txt"} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("x"), 0644); err != nil {
			t.Fatal(err)
		}
	}

	paths, err := listChunkFiles(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(paths) != 3 {
		t.Fatalf("got %d chunk files, want 3", len(paths))
	}
	for i, p := range paths {
		if want := chunkFileName(i, ".mp3"); filepath.Base(p) != want {
			t.Errorf("position %d: got %s, want %s", i, filepath.Base(p), want)
		}
	}
}

func TestSegmentAudioUnreadableSourceIsFatal(t *testing.T) {
	dir := t.TempDir()
	bad := filepath.Join(dir, "not_audio.mp3")
	if err := os.WriteFile(bad, []byte("this is not an mp3 stream"), 0644); err != nil {
		t.Fatal(err)
	}

	_, err := SegmentAudio(context.Background(), bad, dir, SegmentOptions{ForceFallback: true})
	if err == nil {
		t.Fatal("expected an error for unreadable source")
	}
	if !errors.Is(err, core.ErrNoChunks) {
		t.Errorf("error should wrap core.ErrNoChunks, got: %v", err)
	}
}

func TestSegmentAudioMissingSourceIsFatal(t *testing.T) {
	dir := t.TempDir()
	_, err := SegmentAudio(context.Background(), filepath.Join(dir, "missing.mp3"), dir, SegmentOptions{ForceFallback: true})
	if !errors.Is(err, core.ErrNoChunks) {
		t.Errorf("error should wrap core.ErrNoChunks, got: %v", err)
	}
}
