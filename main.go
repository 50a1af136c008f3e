package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"tubescribe/config"
	"tubescribe/core"
	"tubescribe/storage"
)

const version = "1.1.0"

const (
	colorReset  = "\033[0m"
	colorGreen  = "\033[32m"
	colorYellow = "\033[33m"
	colorBlue   = "\033[34m"
	colorRed    = "\033[31m"
)

func info(msg string, a ...any) {
	fmt.Fprintf(os.Stderr, colorBlue+"[info] "+colorReset+msg+"\n", a...)
}

func warn(msg string, a ...any) {
	fmt.Fprintf(os.Stderr, colorYellow+"[warn] "+colorReset+msg+"\n", a...)
}

func ok(msg string, a ...any) {
	fmt.Fprintf(os.Stderr, colorGreen+"[ok] "+colorReset+msg+"\n", a...)
}

func fail(msg string, a ...any) {
	fmt.Fprintf(os.Stderr, colorRed+"[error] "+colorReset+msg+"\n", a...)
}

func main() {
	opts := pipelineOptions{}

	rootCmd := &cobra.Command{
		Use:     "tubescribe <url> <output_dir>",
		Short:   "Transcribe and summarize remote videos from the command line",
		Version: version,
		Args:    cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cmd.SilenceUsage = true
			if opts.summarizeOnly {
				// First positional is the output dir in this mode.
				opts.outputDir = args[0]
				opts.summarize = true
			} else {
				if len(args) < 2 {
					return fmt.Errorf("OUTPUT_DIR is required: tubescribe <url> <output_dir>")
				}
				opts.url = args[0]
				opts.outputDir = args[1]
			}
			abs, err := filepath.Abs(opts.outputDir)
			if err != nil {
				return err
			}
			opts.outputDir = abs
			return runPipeline(cmd.Context(), opts)
		},
	}

	rootCmd.Flags().BoolVarP(&opts.summarize, "summarize", "s", false, "Also generate a summary (API key required)")
	rootCmd.Flags().BoolVar(&opts.summarizeOnly, "summarize-only", false, "Summarize an existing transcript (no url needed)")
	rootCmd.Flags().StringVarP(&opts.modelSize, "model-size", "m", "", "Whisper model size: tiny|base|small|medium|large")
	rootCmd.Flags().StringVarP(&opts.language, "language", "l", "auto", "Language code (ko/en/ja/auto)")
	rootCmd.Flags().BoolVar(&opts.noCleanup, "no-cleanup", false, "Keep transient chunk and raw audio files")
	rootCmd.Flags().BoolVar(&opts.noCache, "no-cache", false, "Disable prompt caching hints for summarization")
	rootCmd.Flags().BoolVar(&opts.vadAggressive, "vad-aggressive", false, "Aggressive VAD preset (faster, may clip short pauses)")
	rootCmd.Flags().BoolVar(&opts.forceFallback, "force-fallback", false, "Skip ffmpeg and segment audio in process")
	rootCmd.Flags().StringVar(&opts.store, "store", "", "Index the transcript: memory|pgvector|milvus")
	rootCmd.Flags().BoolVarP(&opts.verbose, "verbose", "v", false, "Verbose logging")

	rootCmd.AddCommand(newConfigCmd(), newSearchCmd())

	if err := rootCmd.Execute(); err != nil {
		printFatal(err)
		os.Exit(1)
	}
}

// printFatal maps the fatal failure kinds to actionable messages.
func printFatal(err error) {
	switch {
	case errors.Is(err, core.ErrAPIKeyMissing):
		fail("%s is not set.", config.EnvAPIKey)
		fail("Export it, or run: tubescribe config set-api-key <key>")
	case errors.Is(err, core.ErrTranscriptMissing):
		fail("%v", err)
		fail("Generate a transcript first: tubescribe <url> <output_dir>")
	case errors.Is(err, core.ErrNoChunks):
		fail("%v", err)
		fail("The source audio could not be read by ffmpeg or the built-in splitter.")
	case errors.Is(err, core.ErrDownloadFailed):
		fail("%v", err)
	default:
		fail("%v", err)
	}
}

func newConfigCmd() *cobra.Command {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Manage persisted settings",
	}

	configCmd.AddCommand(&cobra.Command{
		Use:   "set-api-key <key>",
		Short: "Persist the summarization API key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := config.SetAPIKey(args[0]); err != nil {
				return err
			}
			ok("API key saved")
			return nil
		},
	})

	configCmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Print the current settings",
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, err := config.Dir()
			if err != nil {
				return err
			}
			cfg := config.Load()
			keySet := "no"
			if config.APIKey() != "" {
				keySet = "yes"
			}
			fmt.Printf("Config directory: %s\n", dir)
			fmt.Printf("API key set:      %s\n", keySet)
			fmt.Printf("Summary language: %s\n", cfg.DefaultLanguage)
			fmt.Printf("Model size:       %s\n", cfg.DefaultModelSize)
			fmt.Printf("Auto summarize:   %v\n", cfg.AutoSummarize)
			fmt.Printf("Prompt caching:   %v\n", cfg.Performance.EnablePromptCaching)
			return nil
		},
	})

	return configCmd
}

func newSearchCmd() *cobra.Command {
	var topK int
	var storeKind string

	searchCmd := &cobra.Command{
		Use:   "search <output_dir> <query>",
		Short: "Search an indexed transcript",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cmd.SilenceUsage = true
			outputDir, err := filepath.Abs(args[0])
			if err != nil {
				return err
			}
			kind := storeKind
			if kind == "" {
				kind = os.Getenv("STORE")
			}
			if kind == "" || strings.EqualFold(kind, "memory") {
				warn("the memory store holds no data across runs; use --store pgvector or milvus")
			}

			store, err := storage.NewStore(kind, config.APIKey())
			if err != nil {
				return err
			}
			hits := store.Search(storage.VideoID(outputDir), args[1], topK)
			if len(hits) == 0 {
				fmt.Println("No matching segments.")
				return nil
			}
			for _, h := range hits {
				fmt.Printf("%.3f  [%s -> %s]  %s\n", h.Score, core.FormatTime(h.Start), core.FormatTime(h.End), h.Text)
			}
			return nil
		},
	}

	searchCmd.Flags().IntVarP(&topK, "top", "k", 5, "Number of results")
	searchCmd.Flags().StringVar(&storeKind, "store", "", "Store backend: pgvector|milvus")
	return searchCmd
}
