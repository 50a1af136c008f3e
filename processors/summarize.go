package processors

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	openai "github.com/sashabaranov/go-openai"

	"tubescribe/config"
	"tubescribe/core"
	"tubescribe/logger"
)

// promptProfile is the pair of system prompts for one summary language.
type promptProfile struct {
	chunk string
	final string
}

var languagePrompts = map[string]promptProfile{
	"ko": {
		chunk: "당신은 YouTube 영상을 요약하는 도움이 되는 어시스턴트입니다. 제공된 오디오 전사 내용을 명확한 bullet point로 요약해주세요. 반드시 한국어로 답변하세요.",
		final: "핵심 포인트를 1-2문장으로 요약해주세요. 반드시 한국어로 답변하세요.",
	},
	"en": {
		chunk: "You are a helpful assistant that summarizes YouTube videos. Summarize the provided audio transcript chunk into clear bullet points.",
		final: "Summarize the key points into 1-2 sentences that capture the essence.",
	},
	"ja": {
		chunk: "あなたはYouTube動画を要約する役立つアシスタントです。提供された音声トランスクリプトを明確な箇条書きで要約してください。必ず日本語で回答してください。",
		final: "重要なポイントを1〜2文で要約してください。必ず日本語で回答してください。",
	},
}

const (
	defaultSummaryLanguage = "ko"

	// shortSummaryFailure replaces the short summary when the final
	// reduction call fails; the long summary is kept as-is.
	shortSummaryFailure = "[final summary failed]"

	chunkMaxTokens = 2048
	finalMaxTokens = 512
	summaryTemp    = 0.3

	defaultMaxInFlight = 3
)

func chunkFailureMarker(err error) string {
	return fmt.Sprintf("[summary failed: %v]", err)
}

// chatCompleter is the slice of the summarization service the pipeline
// needs. *openai.Client satisfies it.
type chatCompleter interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// SummarizeOptions configure one summarization run.
type SummarizeOptions struct {
	// Language selects the prompt pair; unknown codes fall back to the
	// default language with a warning, never an error.
	Language string

	// Model overrides the configured chat model.
	Model string

	// EnableCaching marks the repeated system prompt for reuse by the
	// service. Performance hint only.
	EnableCaching bool

	// MaxInFlight bounds concurrent summarization calls. Defaults to 3.
	MaxInFlight int
}

// Summarizer runs the two-stage map-reduce summarization.
type Summarizer struct {
	cli chatCompleter
	cfg *config.Config
	log logger.Logger
}

// NewSummarizer fails only when no credential is supplied; every
// downstream failure is absorbed into the result instead.
func NewSummarizer(apiKey string, log logger.Logger) (*Summarizer, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, core.ErrAPIKeyMissing
	}
	cfg := config.Load()
	clientConfig := openai.DefaultConfig(apiKey)
	if cfg.BaseURL != "" {
		clientConfig.BaseURL = cfg.BaseURL
	}
	return &Summarizer{cli: openai.NewClientWithConfig(clientConfig), cfg: cfg, log: log}, nil
}

// chunkOutcome is the tagged result of one stage-1 call. Failures stay
// typed until final assembly, where they render as inline markers.
type chunkOutcome struct {
	index   int
	summary string
	err     error
}

// Summarize maps every chunk transcript to a bullet summary, joins the
// outcomes into the long summary, and reduces that to the short one.
func (s *Summarizer) Summarize(ctx context.Context, transcripts []core.ChunkTranscript, opts SummarizeOptions) core.SummaryResult {
	prompts := s.resolvePrompts(ctx, opts.Language)
	model := opts.Model
	if model == "" {
		model = s.cfg.ChatModel
	}

	if len(transcripts) == 0 {
		s.log.Warn(ctx, "Nothing to summarize: no chunk transcripts")
		return core.SummaryResult{ShortSummary: shortSummaryFailure}
	}

	// Stage 1 (map): one bounded call per chunk, completion order free,
	// assembly order fixed.
	maxInFlight := opts.MaxInFlight
	if maxInFlight <= 0 {
		maxInFlight = defaultMaxInFlight
	}
	sem := newSemaphore(maxInFlight)
	outcomes := make([]chunkOutcome, len(transcripts))

	var wg sync.WaitGroup
	for i, chunk := range transcripts {
		wg.Add(1)
		go func(i int, chunk core.ChunkTranscript) {
			defer wg.Done()
			if err := sem.acquire(ctx); err != nil {
				outcomes[i] = chunkOutcome{index: i, err: err}
				return
			}
			defer sem.release()

			s.log.Info(ctx, "Summarizing chunk %d/%d", i+1, len(transcripts))
			text := chunkText(chunk)
			summary, err := s.complete(ctx, model, prompts.chunk, text, chunkMaxTokens, opts.EnableCaching)
			outcomes[i] = chunkOutcome{index: i, summary: summary, err: err}
		}(i, chunk)
	}
	wg.Wait()

	sort.Slice(outcomes, func(a, b int) bool { return outcomes[a].index < outcomes[b].index })

	parts := make([]string, len(outcomes))
	for i, o := range outcomes {
		if o.err != nil {
			s.log.Error(ctx, "Summary failed for chunk %d: %v", o.index+1, o.err)
			parts[i] = chunkFailureMarker(o.err)
			continue
		}
		parts[i] = o.summary
	}
	longSummary := strings.Join(parts, "\n\n")

	// Stage 2 (reduce): a single pass over the joined summaries.
	s.log.Info(ctx, "Generating final summary")
	shortSummary, err := s.complete(ctx, model, prompts.final, longSummary, finalMaxTokens, opts.EnableCaching)
	if err != nil {
		s.log.Error(ctx, "Final summary failed: %v", err)
		shortSummary = shortSummaryFailure
	}

	return core.SummaryResult{LongSummary: longSummary, ShortSummary: shortSummary}
}

// resolvePrompts falls back to the default language for unknown codes.
func (s *Summarizer) resolvePrompts(ctx context.Context, language string) promptProfile {
	if p, ok := languagePrompts[language]; ok {
		return p
	}
	s.log.Warn(ctx, "Unsupported summary language %q, defaulting to %s", language, defaultSummaryLanguage)
	return languagePrompts[defaultSummaryLanguage]
}

// complete performs a single summarization call with retries. The caching
// key gives the service a stable affinity for the shared system prompt; it
// changes no observable output.
func (s *Summarizer) complete(ctx context.Context, model, system, user string, maxTokens int, caching bool) (string, error) {
	req := openai.ChatCompletionRequest{
		Model: model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: system},
			{Role: openai.ChatMessageRoleUser, Content: user},
		},
		MaxTokens:   maxTokens,
		Temperature: summaryTemp,
	}
	if caching {
		req.User = promptCacheKey(system)
	}

	var content string
	operation := func() error {
		callCtx, cancel := context.WithTimeout(ctx, 60*time.Second)
		defer cancel()

		resp, err := s.cli.CreateChatCompletion(callCtx, req)
		if err != nil {
			return err
		}
		if len(resp.Choices) == 0 {
			return fmt.Errorf("empty completion response")
		}
		content = strings.TrimSpace(resp.Choices[0].Message.Content)
		return nil
	}

	b := backoff.WithMaxRetries(backoff.NewExponentialBackOff(), 2)
	if err := backoff.Retry(operation, backoff.WithContext(b, ctx)); err != nil {
		return "", err
	}
	return content, nil
}

// chunkText joins a chunk's segment texts with separating whitespace.
func chunkText(chunk core.ChunkTranscript) string {
	texts := make([]string, 0, len(chunk.Segments))
	for _, seg := range chunk.Segments {
		texts = append(texts, seg.Text)
	}
	return strings.Join(texts, " ")
}

func promptCacheKey(system string) string {
	sum := md5.Sum([]byte(system))
	return "tubescribe-" + hex.EncodeToString(sum[:8])
}
