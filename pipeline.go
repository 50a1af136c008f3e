package main

import (
	"context"
	"os"

	"tubescribe/config"
	"tubescribe/core"
	"tubescribe/logger"
	"tubescribe/processors"
	"tubescribe/storage"
)

type pipelineOptions struct {
	url           string
	outputDir     string
	summarize     bool
	summarizeOnly bool
	modelSize     string
	language      string
	noCleanup     bool
	noCache       bool
	vadAggressive bool
	forceFallback bool
	store         string
	verbose       bool
}

// runPipeline is the top-level operation: download -> segment ->
// transcribe -> persist, then optionally summarize, index, and clean up.
// Only the fatal failure kinds in core/errors.go propagate out of here.
func runPipeline(ctx context.Context, opts pipelineOptions) error {
	level := "info"
	if opts.verbose {
		level = "debug"
	}
	log := logger.New(level)
	cfg := config.Load()

	if opts.modelSize == "" {
		opts.modelSize = cfg.DefaultModelSize
	}
	languageHint := opts.language
	if languageHint == "auto" {
		languageHint = ""
	}

	var (
		transcripts []core.ChunkTranscript
		title       string
	)

	if opts.summarizeOnly {
		info("Loading existing transcript from %s", opts.outputDir)
		doc, err := storage.LoadTranscript(opts.outputDir)
		if err != nil {
			return err
		}
		transcripts = doc.Chunks
		title = doc.Title
		ok("Transcript loaded (%d chunks)", len(transcripts))
	} else {
		if err := os.MkdirAll(opts.outputDir, 0755); err != nil {
			return err
		}

		// Step 1: download the audio track.
		download, err := processors.DownloadAudio(ctx, opts.url, opts.outputDir, log)
		if err != nil {
			return err
		}
		title = download.Title
		ok("Downloaded: %s", title)

		if err := storage.SaveMetadata(download, opts.outputDir); err != nil {
			warn("saving metadata.json failed: %v", err)
		}

		// Step 2: segment into bounded chunks.
		forceFallback := opts.forceFallback || !cfg.Performance.UseFFmpegChunking
		chunks, err := processors.SegmentAudio(ctx, download.AudioPath, opts.outputDir, processors.SegmentOptions{
			ForceFallback: forceFallback,
		})
		if err != nil {
			return err
		}
		ok("Audio split into %d chunks", len(chunks))

		// Step 3: transcribe chunk by chunk. Failed chunks are dropped,
		// not fatal.
		vad := core.DefaultVADConfig()
		if opts.vadAggressive {
			vad = cfg.Performance.VAD
		}
		transcripts, err = processors.TranscribeChunks(ctx, chunks, opts.modelSize, processors.TranscribeOptions{
			Language: languageHint,
			VAD:      vad,
		}, log)
		if err != nil {
			return err
		}
		ok("Transcribed %d/%d chunks (model: %s)", len(transcripts), len(chunks), opts.modelSize)

		// Step 4: persist transcript artifacts.
		if err := storage.SaveTranscripts(transcripts, opts.outputDir, title); err != nil {
			return err
		}
		ok("Transcript files written")
	}

	// Step 5: optional summarization. The credential check happens before
	// any network call.
	if opts.summarize || cfg.AutoSummarize {
		apiKey := config.APIKey()
		summarizer, err := processors.NewSummarizer(apiKey, log)
		if err != nil {
			return err
		}

		language := opts.language
		if language == "" || language == "auto" {
			language = cfg.DefaultLanguage
		}
		caching := cfg.Performance.EnablePromptCaching && !opts.noCache

		summary := summarizer.Summarize(ctx, transcripts, processors.SummarizeOptions{
			Language:      language,
			EnableCaching: caching,
		})
		if err := storage.SaveSummary(summary, opts.outputDir); err != nil {
			return err
		}
		ok("Summary written")
	}

	// Step 6: optional transcript indexing.
	storeKind := opts.store
	if storeKind == "" {
		storeKind = os.Getenv("STORE")
	}
	if storeKind != "" {
		store, err := storage.NewStore(storeKind, config.APIKey())
		if err != nil {
			warn("transcript indexing skipped: %v", err)
		} else {
			count := store.Upsert(storage.VideoID(opts.outputDir), transcripts)
			ok("Indexed %d transcript segments (%s)", count, storeKind)
		}
	}

	// Step 7: cleanup of transient files.
	if !opts.noCleanup && !opts.summarizeOnly {
		if err := storage.Cleanup(opts.outputDir); err != nil {
			warn("cleanup failed: %v", err)
		} else {
			ok("Temporary files removed")
		}
	}

	ok("All done. Results in %s", opts.outputDir)
	return nil
}
