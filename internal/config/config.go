package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Store     StoreConfig     `yaml:"store" mapstructure:"store"`
	Anthropic AnthropicConfig `yaml:"anthropic" mapstructure:"anthropic"`
	Gemini    GeminiConfig    `yaml:"gemini" mapstructure:"gemini"`
	Brave     BraveConfig     `yaml:"brave" mapstructure:"brave"`
	Extract   ExtractConfig   `yaml:"extract" mapstructure:"extract"`
	Research  ResearchConfig  `yaml:"research" mapstructure:"research"`
	Retrieval RetrievalConfig `yaml:"retrieval" mapstructure:"retrieval"`
	Assistant AssistantConfig `yaml:"assistant" mapstructure:"assistant"`
	Upload    UploadConfig    `yaml:"upload" mapstructure:"upload"`
	Server    ServerConfig    `yaml:"server" mapstructure:"server"`
	Log       LogConfig       `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the database backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
}

// AnthropicConfig holds Anthropic API settings.
type AnthropicConfig struct {
	Key         string `yaml:"key" mapstructure:"key"`
	HaikuModel  string `yaml:"haiku_model" mapstructure:"haiku_model"`
	SonnetModel string `yaml:"sonnet_model" mapstructure:"sonnet_model"`
}

// GeminiConfig holds the embedding provider settings.
type GeminiConfig struct {
	Key            string `yaml:"key" mapstructure:"key"`
	EmbeddingModel string `yaml:"embedding_model" mapstructure:"embedding_model"`
}

// BraveConfig holds Brave Search API settings.
type BraveConfig struct {
	Key     string `yaml:"key" mapstructure:"key"`
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`
	RPS     int    `yaml:"rps" mapstructure:"rps"`
}

// ExtractConfig configures text extraction and metadata extraction.
type ExtractConfig struct {
	OCRProvider   string `yaml:"ocr_provider" mapstructure:"ocr_provider"`
	PdfToTextPath string `yaml:"pdftotext_path" mapstructure:"pdftotext_path"`
	MistralKey    string `yaml:"mistral_api_key" mapstructure:"mistral_api_key"`
	MistralModel  string `yaml:"mistral_ocr_model" mapstructure:"mistral_ocr_model"`
	MetadataCap   int    `yaml:"metadata_cap" mapstructure:"metadata_cap"`
}

// ResearchConfig configures the market and competitor research phase.
type ResearchConfig struct {
	TAMQueries        int `yaml:"tam_queries" mapstructure:"tam_queries"`
	CompetitorQueries int `yaml:"competitor_queries" mapstructure:"competitor_queries"`
	SearchRetries     int `yaml:"search_retries" mapstructure:"search_retries"`
	ResultsPerQuery   int `yaml:"results_per_query" mapstructure:"results_per_query"`
}

// RetrievalConfig configures chunking and semantic search.
type RetrievalConfig struct {
	ChunkSize    int     `yaml:"chunk_size" mapstructure:"chunk_size"`
	ChunkOverlap int     `yaml:"chunk_overlap" mapstructure:"chunk_overlap"`
	Threshold    float64 `yaml:"threshold" mapstructure:"threshold"`
	Limit        int     `yaml:"limit" mapstructure:"limit"`
}

// AssistantConfig configures the conversational assistant.
type AssistantConfig struct {
	MaxToolLoops int `yaml:"max_tool_loops" mapstructure:"max_tool_loops"`
	ExcerptCap   int `yaml:"excerpt_cap" mapstructure:"excerpt_cap"`
	HistoryLimit int `yaml:"history_limit" mapstructure:"history_limit"`
}

// UploadConfig bounds accepted uploads.
type UploadConfig struct {
	MaxSizeMB  int      `yaml:"max_size_mb" mapstructure:"max_size_mb"`
	Extensions []string `yaml:"extensions" mapstructure:"extensions"`
}

// ServerConfig configures the HTTP API server.
type ServerConfig struct {
	Port int `yaml:"port" mapstructure:"port"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("DEALDESK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.driver", "postgres")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("server.port", 8080)
	v.SetDefault("anthropic.haiku_model", "claude-haiku-4-5-20251001")
	v.SetDefault("anthropic.sonnet_model", "claude-sonnet-4-5-20250929")
	v.SetDefault("gemini.embedding_model", "gemini-embedding-001")
	v.SetDefault("brave.base_url", "https://api.search.brave.com")
	v.SetDefault("brave.rps", 1)
	v.SetDefault("extract.ocr_provider", "local")
	v.SetDefault("extract.pdftotext_path", "pdftotext")
	v.SetDefault("extract.mistral_ocr_model", "pixtral-large-latest")
	v.SetDefault("extract.metadata_cap", 10000)
	v.SetDefault("research.tam_queries", 3)
	v.SetDefault("research.competitor_queries", 4)
	v.SetDefault("research.search_retries", 3)
	v.SetDefault("research.results_per_query", 5)
	v.SetDefault("retrieval.chunk_size", 1000)
	v.SetDefault("retrieval.chunk_overlap", 200)
	v.SetDefault("retrieval.threshold", 0.35)
	v.SetDefault("retrieval.limit", 8)
	v.SetDefault("assistant.max_tool_loops", 5)
	v.SetDefault("assistant.excerpt_cap", 8000)
	v.SetDefault("assistant.history_limit", 40)
	v.SetDefault("upload.max_size_mb", 25)
	v.SetDefault("upload.extensions", []string{".pdf", ".txt", ".md"})

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// Validate checks the fields required for the given mode. Modes map to
// subcommands: "serve" needs everything the API touches, "local" covers
// one-shot CLI commands that talk to the store and the model providers.
func (c *Config) Validate(mode string) error {
	var missing []string

	requireKeys := func() {
		if c.Store.DatabaseURL == "" && c.Store.Driver != "sqlite" {
			missing = append(missing, "store.database_url is required")
		}
		if c.Anthropic.Key == "" {
			missing = append(missing, "anthropic.key is required")
		}
		if c.Gemini.Key == "" {
			missing = append(missing, "gemini.key is required")
		}
	}

	switch mode {
	case "serve":
		requireKeys()
		if c.Server.Port <= 0 {
			missing = append(missing, "server.port must be > 0")
		}
	case "local":
		requireKeys()
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	if c.Retrieval.ChunkSize <= 0 {
		missing = append(missing, "retrieval.chunk_size must be > 0")
	}
	if c.Retrieval.ChunkOverlap < 0 || c.Retrieval.ChunkOverlap >= c.Retrieval.ChunkSize {
		missing = append(missing, "retrieval.chunk_overlap must be in [0, chunk_size)")
	}
	if c.Retrieval.Threshold < 0 || c.Retrieval.Threshold > 1 {
		missing = append(missing, "retrieval.threshold must be in [0, 1]")
	}
	if c.Assistant.MaxToolLoops < 1 || c.Assistant.MaxToolLoops > 20 {
		missing = append(missing, "assistant.max_tool_loops must be between 1 and 20")
	}

	if len(missing) > 0 {
		return eris.New("config: " + strings.Join(missing, "; "))
	}
	return nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
