package storage

import (
	"testing"

	"tubescribe/core"
)

func indexedTranscripts() []core.ChunkTranscript {
	return []core.ChunkTranscript{
		{
			ChunkID: 0,
			Segments: []core.Segment{
				{Start: 0, End: 5, Text: "welcome to the channel"},
				{Start: 5, End: 12, Text: "today we cook kimchi stew"},
			},
		},
		{
			ChunkID: 1,
			Segments: []core.Segment{
				{Start: 600, End: 610, Text: "add the gochujang and simmer"},
			},
		},
	}
}

func TestMemoryStoreUpsertAndSearch(t *testing.T) {
	s := newMemoryStore()
	n := s.Upsert("vid_abc", indexedTranscripts())
	if n != 3 {
		t.Fatalf("indexed %d segments, want 3", n)
	}

	hits := s.Search("vid_abc", "kimchi stew", 2)
	if len(hits) != 2 {
		t.Fatalf("got %d hits, want 2", len(hits))
	}
	if hits[0].Text != "today we cook kimchi stew" {
		t.Errorf("top hit = %q", hits[0].Text)
	}
	if hits[0].Score < hits[1].Score {
		t.Error("hits should come back best first")
	}
	if hits[0].ChunkID != 0 || hits[0].Start != 5 || hits[0].End != 12 {
		t.Errorf("hit lost its position: %+v", hits[0])
	}
}

func TestMemoryStoreUpsertReplaces(t *testing.T) {
	s := newMemoryStore()
	s.Upsert("vid_abc", indexedTranscripts())
	n := s.Upsert("vid_abc", indexedTranscripts()[:1])
	if n != 2 {
		t.Fatalf("indexed %d segments after replace, want 2", n)
	}
	if hits := s.Search("vid_abc", "gochujang", 5); len(hits) != 2 {
		t.Errorf("got %d hits, want the 2 remaining segments", len(hits))
	}
}

func TestMemoryStoreIsolatesVideos(t *testing.T) {
	s := newMemoryStore()
	s.Upsert("vid_a", indexedTranscripts())
	if hits := s.Search("vid_b", "kimchi", 5); len(hits) != 0 {
		t.Errorf("search in unindexed video returned %d hits", len(hits))
	}
}

func TestNewStoreDefaultsToMemory(t *testing.T) {
	for _, kind := range []string{"", "memory", "Memory", "something-else"} {
		s, err := NewStore(kind, "")
		if err != nil {
			t.Fatalf("kind %q: %v", kind, err)
		}
		if _, ok := s.(*memoryStore); !ok {
			t.Errorf("kind %q: got %T, want *memoryStore", kind, s)
		}
	}
}

func TestVideoID(t *testing.T) {
	a := VideoID("/data/out/lecture")
	b := VideoID("/data/out/lecture")
	c := VideoID("/data/other/lecture")

	if a != b {
		t.Errorf("same path should give the same id: %q vs %q", a, b)
	}
	if a == c {
		t.Error("different paths should give different ids")
	}
	if got := VideoID("/data/out/Lecture"); got[:8] != "lecture_" {
		t.Errorf("id should start with the lowercased directory name, got %q", got)
	}
}
