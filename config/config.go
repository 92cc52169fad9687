// Package config loads and validates the service configuration from a
// YAML file with environment-variable overrides for deployment secrets.
package config

import (
	"fmt"
	"math"
	"os"
	"runtime"
	"strings"

	"gopkg.in/yaml.v3"
)

type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

type OpenAIConfig struct {
	APIKey         string `yaml:"api_key"`
	BaseURL        string `yaml:"base_url"`
	EmbeddingModel string `yaml:"embedding_model"`
	ChatModel      string `yaml:"chat_model"`
	WhisperModel   string `yaml:"whisper_model"`
}

type StorageConfig struct {
	// Backend selects the vector index: "memory", "pgvector" or "milvus".
	Backend          string `yaml:"backend"`
	PostgresURL      string `yaml:"postgres_url"`
	MilvusAddr       string `yaml:"milvus_addr"`
	MilvusCollection string `yaml:"milvus_collection"`
	EmbeddingDim     int    `yaml:"embedding_dim"`
}

type ProsodyConfig struct {
	Workers    int     `yaml:"workers"`
	PitchMinHz float64 `yaml:"pitch_min_hz"`
	PitchMaxHz float64 `yaml:"pitch_max_hz"`
}

type NormalizerConfig struct {
	// Columns whose missing-rate exceeds this are dropped for the run.
	MissingDropThreshold float64 `yaml:"missing_drop_threshold"`
}

// SalienceWeights is the single tunable surface of the fusion engine.
// The weights must sum to 1.0.
type SalienceWeights struct {
	TextImportance float64 `yaml:"text_importance"`
	Duration       float64 `yaml:"duration"`
	MeanPitch      float64 `yaml:"mean_pitch"`
	Energy         float64 `yaml:"energy"`
	SpeakingRate   float64 `yaml:"speaking_rate"`
	PauseBefore    float64 `yaml:"pause_before"`
	PauseAfter     float64 `yaml:"pause_after"`
	PitchStd       float64 `yaml:"pitch_std"`
	Loudness       float64 `yaml:"loudness"`
	MFCCVariance   float64 `yaml:"mfcc_variance"`
}

// Sum returns the total weight mass.
func (w SalienceWeights) Sum() float64 {
	return w.TextImportance + w.Duration + w.MeanPitch + w.Energy +
		w.SpeakingRate + w.PauseBefore + w.PauseAfter + w.PitchStd +
		w.Loudness + w.MFCCVariance
}

type ChunkerConfig struct {
	MinChunkWords  int     `yaml:"min_chunk_words"`
	MaxChunkWords  int     `yaml:"max_chunk_words"`
	BreakThreshold float64 `yaml:"break_threshold"`
}

type SelectorConfig struct {
	// One representative per WordRatio transcript words.
	WordRatio          int `yaml:"word_ratio"`
	MinRepresentatives int `yaml:"min_representatives"`
	// The completion-service context budget, made explicit so different
	// completion backends can carry different budgets.
	ContextTokenBudget int `yaml:"context_token_budget"`
	TokensPerChunk     int `yaml:"tokens_per_chunk"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // "text" or "json"
}

type Config struct {
	Server     ServerConfig     `yaml:"server"`
	OpenAI     OpenAIConfig     `yaml:"openai"`
	Storage    StorageConfig    `yaml:"storage"`
	Prosody    ProsodyConfig    `yaml:"prosody"`
	Normalizer NormalizerConfig `yaml:"normalizer"`
	Salience   SalienceWeights  `yaml:"salience"`
	Chunker    ChunkerConfig    `yaml:"chunker"`
	Selector   SelectorConfig   `yaml:"selector"`
	Logging    LoggingConfig    `yaml:"logging"`
	DataDir    string           `yaml:"data_dir"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Server: ServerConfig{Host: "0.0.0.0", Port: 8080},
		OpenAI: OpenAIConfig{
			BaseURL:        "https://api.openai.com/v1",
			EmbeddingModel: "text-embedding-3-small",
			ChatModel:      "gpt-4o-mini",
			WhisperModel:   "whisper-1",
		},
		Storage: StorageConfig{
			Backend:          "memory",
			MilvusAddr:       "localhost:19530",
			MilvusCollection: "podcast_chunks",
			EmbeddingDim:     1536,
		},
		Prosody: ProsodyConfig{
			Workers:    runtime.NumCPU(),
			PitchMinHz: 65.0,
			PitchMaxHz: 525.0,
		},
		Normalizer: NormalizerConfig{MissingDropThreshold: 0.5},
		Salience: SalienceWeights{
			TextImportance: 0.50,
			Duration:       0.05,
			MeanPitch:      0.10,
			Energy:         0.10,
			SpeakingRate:   0.05,
			PauseBefore:    0.05,
			PauseAfter:     0.05,
			PitchStd:       0.05,
			Loudness:       0.05,
			MFCCVariance:   0.05,
		},
		Chunker: ChunkerConfig{
			MinChunkWords:  80,
			MaxChunkWords:  250,
			BreakThreshold: 0.6,
		},
		Selector: SelectorConfig{
			WordRatio:          750,
			MinRepresentatives: 3,
			ContextTokenBudget: 6000,
			TokensPerChunk:     340,
		},
		Logging: LoggingConfig{Level: "info", Format: "text"},
		DataDir: "./data",
	}
}

// Load reads the configuration file at path, applies environment
// overrides and validates the result. A missing file is not an error;
// defaults plus environment are used.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err == nil {
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parse config %s: %w", path, err)
			}
		} else if !os.IsNotExist(err) {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	applyEnv(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("OPENAI_API_KEY"); v != "" {
		cfg.OpenAI.APIKey = v
	}
	if v := os.Getenv("OPENAI_BASE_URL"); v != "" {
		cfg.OpenAI.BaseURL = v
	}
	if v := os.Getenv("POSTGRES_URL"); v != "" {
		cfg.Storage.PostgresURL = v
	}
	if v := os.Getenv("MILVUS_ADDR"); v != "" {
		cfg.Storage.MilvusAddr = v
	}
	if v := os.Getenv("STORE"); v != "" {
		cfg.Storage.Backend = v
	}
}

// Validate checks internal consistency. It does not require an API key;
// components fall back to mock collaborators without one.
func (c *Config) Validate() error {
	var errs []string

	switch strings.ToLower(c.Storage.Backend) {
	case "memory", "pgvector", "milvus":
	default:
		errs = append(errs, fmt.Sprintf("unknown storage backend %q", c.Storage.Backend))
	}
	if c.Chunker.MinChunkWords <= 0 || c.Chunker.MaxChunkWords < c.Chunker.MinChunkWords {
		errs = append(errs, fmt.Sprintf("invalid chunk bounds min=%d max=%d",
			c.Chunker.MinChunkWords, c.Chunker.MaxChunkWords))
	}
	if c.Chunker.BreakThreshold <= 0 || c.Chunker.BreakThreshold >= 1 {
		errs = append(errs, fmt.Sprintf("break threshold %.2f outside (0,1)", c.Chunker.BreakThreshold))
	}
	if c.Selector.WordRatio <= 0 || c.Selector.MinRepresentatives <= 0 {
		errs = append(errs, "selector word_ratio and min_representatives must be positive")
	}
	if c.Selector.ContextTokenBudget <= 0 || c.Selector.TokensPerChunk <= 0 {
		errs = append(errs, "selector token budget fields must be positive")
	}
	if c.Normalizer.MissingDropThreshold <= 0 || c.Normalizer.MissingDropThreshold > 1 {
		errs = append(errs, fmt.Sprintf("missing_drop_threshold %.2f outside (0,1]", c.Normalizer.MissingDropThreshold))
	}
	if c.Prosody.PitchMinHz <= 0 || c.Prosody.PitchMaxHz <= c.Prosody.PitchMinHz {
		errs = append(errs, "pitch range must satisfy 0 < min < max")
	}
	if sum := c.Salience.Sum(); math.Abs(sum-1.0) > 1e-6 {
		errs = append(errs, fmt.Sprintf("salience weights sum to %.6f, want 1.0", sum))
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}

// HasValidAPI reports whether an OpenAI-compatible endpoint is configured.
func (c *Config) HasValidAPI() bool {
	return strings.TrimSpace(c.OpenAI.APIKey) != "" && strings.TrimSpace(c.OpenAI.BaseURL) != ""
}

// MaxRepresentatives derives the representative ceiling from the
// completion context budget.
func (c *Config) MaxRepresentatives() int {
	max := c.Selector.ContextTokenBudget / c.Selector.TokensPerChunk
	if max < c.Selector.MinRepresentatives {
		max = c.Selector.MinRepresentatives
	}
	return max
}
