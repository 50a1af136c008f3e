package core

import "errors"

// Fatal failure kinds. Everything else in the pipeline degrades in place
// (dropped chunk, inline marker) instead of propagating an error.
var (
	// ErrNoChunks means both segmentation strategies failed and no chunk
	// files could be produced, so transcription cannot start.
	ErrNoChunks = errors.New("audio segmentation produced no chunks")

	// ErrAPIKeyMissing means summarization was requested but no credential
	// could be resolved from the environment or the config file.
	ErrAPIKeyMissing = errors.New("summarization API key not set")

	// ErrTranscriptMissing means summarize-only mode was requested but the
	// output directory has no transcript.json to reload.
	ErrTranscriptMissing = errors.New("transcript.json not found")

	// ErrDownloadFailed means the media-download tool could not produce an
	// audio file.
	ErrDownloadFailed = errors.New("media download failed")
)
