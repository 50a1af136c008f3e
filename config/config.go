package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"

	"tubescribe/core"
)

const (
	// EnvAPIKey always wins over the persisted key file.
	EnvAPIKey = "TUBESCRIBE_API_KEY"

	// EnvConfigDir overrides the per-user config directory.
	EnvConfigDir = "TUBESCRIBE_CONFIG_DIR"

	apiKeyFile = "api_key.txt"
	configFile = "config.json"
)

type PerformanceConfig struct {
	UseFFmpegChunking   bool           `json:"use_ffmpeg_chunking"`
	EnablePromptCaching bool           `json:"enable_prompt_caching"`
	VAD                 core.VADConfig `json:"vad_config"`
}

type Config struct {
	DefaultLanguage  string            `json:"default_language"`
	DefaultModelSize string            `json:"default_model_size"`
	AutoSummarize    bool              `json:"auto_summarize"`
	BaseURL          string            `json:"base_url"`
	ChatModel        string            `json:"chat_model"`
	EmbeddingModel   string            `json:"embedding_model"`
	Performance      PerformanceConfig `json:"performance"`
}

var (
	mu           sync.Mutex
	globalConfig *Config
)

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		DefaultLanguage:  "ko",
		DefaultModelSize: "base",
		AutoSummarize:    false,
		ChatModel:        "gpt-4o-mini",
		EmbeddingModel:   "text-embedding-3-small",
		Performance: PerformanceConfig{
			UseFFmpegChunking:   true,
			EnablePromptCaching: true,
			VAD:                 core.AggressiveVADConfig(),
		},
	}
}

// Dir resolves the per-user config directory and creates it if needed.
//
//   - macOS/Linux: ~/.config/tubescribe
//   - Windows:     %APPDATA%/tubescribe
func Dir() (string, error) {
	if dir := os.Getenv(EnvConfigDir); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return "", err
		}
		return dir, nil
	}

	var dir string
	if runtime.GOOS == "windows" {
		base := os.Getenv("APPDATA")
		if base == "" {
			home, err := os.UserHomeDir()
			if err != nil {
				return "", err
			}
			base = filepath.Join(home, "AppData", "Roaming")
		}
		dir = filepath.Join(base, "tubescribe")
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		dir = filepath.Join(home, ".config", "tubescribe")
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", err
	}
	return dir, nil
}

// APIKey resolves the summarization credential. The environment variable
// wins; otherwise the persisted key file is consulted. An empty result is
// not an error here — callers that need summarization check it themselves.
func APIKey() string {
	if key := os.Getenv(EnvAPIKey); key != "" {
		return key
	}

	dir, err := Dir()
	if err != nil {
		return ""
	}
	data, err := os.ReadFile(filepath.Join(dir, apiKeyFile))
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(data))
}

// SetAPIKey persists the credential to the per-user key file (rw-------).
func SetAPIKey(key string) error {
	dir, err := Dir()
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(dir, apiKeyFile), []byte(strings.TrimSpace(key)), 0600)
}

// DeleteAPIKey removes the persisted credential, if any.
func DeleteAPIKey() error {
	dir, err := Dir()
	if err != nil {
		return err
	}
	err = os.Remove(filepath.Join(dir, apiKeyFile))
	if os.IsNotExist(err) {
		return nil
	}
	return err
}

// Load reads config.json merged over the defaults, with environment
// overrides applied last. The result is cached for the process lifetime.
func Load() *Config {
	mu.Lock()
	defer mu.Unlock()

	if globalConfig != nil {
		return globalConfig
	}

	cfg := Default()
	if dir, err := Dir(); err == nil {
		if data, err := os.ReadFile(filepath.Join(dir, configFile)); err == nil {
			// Unmarshal over the defaults so missing keys keep them.
			_ = json.Unmarshal(data, cfg)
		}
	}

	if url := os.Getenv("BASE_URL"); url != "" {
		cfg.BaseURL = url
	}
	if model := os.Getenv("CHAT_MODEL"); model != "" {
		cfg.ChatModel = model
	}
	if model := os.Getenv("EMBEDDING_MODEL"); model != "" {
		cfg.EmbeddingModel = model
	}

	globalConfig = cfg
	return globalConfig
}

// Save writes the configuration to config.json.
func Save(cfg *Config) error {
	dir, err := Dir()
	if err != nil {
		return err
	}
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(dir, configFile), data, 0644)
}

// Reset drops the cached configuration. Intended for tests.
func Reset() {
	mu.Lock()
	defer mu.Unlock()
	globalConfig = nil
}
