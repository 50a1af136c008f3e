package core

// AudioChunk is one bounded-duration slice of the source audio. IDs are
// contiguous from 0 and match the zero-padded file naming, so sorting by
// path and sorting by ID agree.
type AudioChunk struct {
	ID       int     `json:"chunk_id"`
	Path     string  `json:"path"`
	StartSec float64 `json:"start_sec"`
	EndSec   float64 `json:"end_sec"`
}

type Segment struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Text  string  `json:"text"`
}

// ChunkTranscript is the transcription of a single chunk. A chunk whose
// transcription failed has no ChunkTranscript at all; survivors keep the
// chunk ID they were submitted with.
type ChunkTranscript struct {
	ChunkID  int       `json:"chunk_id"`
	File     string    `json:"file"`
	Language string    `json:"language"`
	Segments []Segment `json:"segments"`
}

// Transcript is the persisted transcript.json document.
type Transcript struct {
	Title  string            `json:"title"`
	Chunks []ChunkTranscript `json:"chunks"`
}

// VADConfig controls the engine's voice-activity detector.
type VADConfig struct {
	MinSilenceDurationMs int     `json:"min_silence_duration_ms"`
	SpeechPadMs          int     `json:"speech_pad_ms,omitempty"`
	Threshold            float64 `json:"threshold,omitempty"`
}

func DefaultVADConfig() VADConfig {
	return VADConfig{MinSilenceDurationMs: 500}
}

// AggressiveVADConfig trades silence tolerance for transcription speed.
func AggressiveVADConfig() VADConfig {
	return VADConfig{MinSilenceDurationMs: 300, SpeechPadMs: 200, Threshold: 0.5}
}

type SummaryResult struct {
	LongSummary  string `json:"long_summary"`
	ShortSummary string `json:"short_summary"`
}

// DownloadResult carries the metadata the download tool reports.
type DownloadResult struct {
	Title     string  `json:"title"`
	Duration  float64 `json:"duration"`
	Uploader  string  `json:"uploader"`
	URL       string  `json:"url"`
	AudioPath string  `json:"audio_path"`
}

// Hit is one scored transcript segment returned by a vector store search.
type Hit struct {
	Score   float64 `json:"score"`
	ChunkID int     `json:"chunk_id"`
	Start   float64 `json:"start"`
	End     float64 `json:"end"`
	Text    string  `json:"text"`
}
