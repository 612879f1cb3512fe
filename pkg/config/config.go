package config

import (
	"fmt"
	"strings"
	"time"
)

// Config enumerates every tunable of the service as explicit structs. Values
// come from defaults, then environment variables (canonical names via `env`
// tags, e.g. PINECONE_API_KEY), with environment taking precedence.
type Config struct {
	Server   ServerConfig   `koanf:"server"`
	Log      LogConfig      `koanf:"log"`
	Store    StoreConfig    `koanf:"store"`
	Embedder EmbedderConfig `koanf:"embedder"`
	LLM      LLMConfig      `koanf:"llm"`
	RAG      RAGConfig      `koanf:"rag"`
	Ingest   IngestConfig   `koanf:"ingest"`
	YouTube  YouTubeConfig  `koanf:"youtube"`
}

type ServerConfig struct {
	Host            string        `koanf:"host"             env:"SERVER_HOST"`
	Port            int           `koanf:"port"             env:"SERVER_PORT"             validate:"gt=0,lte=65535"`
	CORSOrigins     []string      `koanf:"cors_origins"     env:"SERVER_CORS_ORIGINS"`
	ReadTimeout     time.Duration `koanf:"read_timeout"`
	WriteTimeout    time.Duration `koanf:"write_timeout"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
}

type LogConfig struct {
	Level string `koanf:"level" env:"LOG_LEVEL" validate:"oneof=debug info warn error"`
	JSON  bool   `koanf:"json"  env:"LOG_JSON"`
}

// StoreConfig captures vector store connection parameters.
type StoreConfig struct {
	Provider    string        `koanf:"provider"    env:"VECTOR_STORE_PROVIDER" validate:"oneof=pinecone qdrant memory filesystem"`
	APIKey      string        `koanf:"api_key"     env:"PINECONE_API_KEY"`
	Host        string        `koanf:"host"        env:"PINECONE_HOST"`
	Environment string        `koanf:"environment" env:"PINECONE_ENVIRONMENT"`
	Index       string        `koanf:"index"       env:"PINECONE_INDEX_NAME"`
	Namespace   string        `koanf:"namespace"   env:"PINECONE_NAMESPACE"`
	DSN         string        `koanf:"dsn"         env:"QDRANT_URL"`
	Path        string        `koanf:"path"        env:"VECTOR_STORE_PATH"`
	Dimension   int           `koanf:"dimension"   env:"VECTOR_STORE_DIMENSION" validate:"gt=0"`
	Metric      string        `koanf:"metric"      env:"VECTOR_STORE_METRIC"`
	Timeout     time.Duration `koanf:"timeout"`
}

// EmbedderConfig identifies the embedding model producing stored vectors.
// Mixing models with different dimensionality invalidates similarity search,
// so Dimension here must match StoreConfig.Dimension.
type EmbedderConfig struct {
	Provider      string `koanf:"provider"        env:"EMBEDDING_PROVIDER" validate:"oneof=openai googleai"`
	Model         string `koanf:"model"           env:"EMBEDDING_MODEL"    validate:"required"`
	APIKey        string `koanf:"api_key"         env:"OPENAI_API_KEY"`
	Dimension     int    `koanf:"dimension"       env:"EMBEDDING_DIMENSION" validate:"gt=0"`
	BatchSize     int    `koanf:"batch_size"      validate:"gt=0"`
	StripNewLines bool   `koanf:"strip_new_lines"`
	CacheSize     int    `koanf:"cache_size"`
}

type LLMConfig struct {
	Provider    string  `koanf:"provider"    env:"LLM_PROVIDER" validate:"oneof=googleai openai"`
	Model       string  `koanf:"model"       env:"LLM_MODEL"    validate:"required"`
	APIKey      string  `koanf:"api_key"     env:"GEMINI_API_KEY"`
	Temperature float64 `koanf:"temperature" validate:"gte=0,lte=2"`
	MaxTokens   int     `koanf:"max_tokens"  validate:"gte=0"`
}

type RAGConfig struct {
	TopK             int     `koanf:"top_k"              env:"RAG_TOP_K" validate:"gt=0"`
	MinScore         float64 `koanf:"min_score"          validate:"gte=0,lte=1"`
	MaxContextTokens int     `koanf:"max_context_tokens" env:"RAG_MAX_CONTEXT_TOKENS" validate:"gt=0"`
	PromptHeader     string  `koanf:"prompt_header"      env:"RAG_PROMPT_HEADER"`
}

type IngestConfig struct {
	ChunkSize       int           `koanf:"chunk_size"        env:"CHUNK_SIZE"    validate:"gt=0"`
	ChunkOverlap    int           `koanf:"chunk_overlap"     env:"CHUNK_OVERLAP" validate:"gte=0"`
	RetryAttempts   int           `koanf:"retry_attempts"    validate:"gte=1"`
	RetryBackoff    time.Duration `koanf:"retry_backoff"`
	RetryMaxBackoff time.Duration `koanf:"retry_max_backoff"`
}

type YouTubeConfig struct {
	APIKey            string  `koanf:"api_key"             env:"YOUTUBE_API_KEY"`
	ChannelID         string  `koanf:"channel_id"          env:"YOUTUBE_CHANNEL_ID"`
	MaxVideos         int     `koanf:"max_videos"          env:"YOUTUBE_MAX_VIDEOS" validate:"gt=0"`
	RequestsPerSecond float64 `koanf:"requests_per_second" validate:"gt=0"`
}

// Default returns the configuration used before any environment overrides.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            8080,
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    2 * time.Minute,
			ShutdownTimeout: 10 * time.Second,
		},
		Log: LogConfig{Level: "info"},
		Store: StoreConfig{
			Provider:  "pinecone",
			Dimension: 1536,
			Metric:    "cosine",
			Timeout:   15 * time.Second,
		},
		Embedder: EmbedderConfig{
			Provider:      "openai",
			Model:         "text-embedding-3-small",
			Dimension:     1536,
			BatchSize:     32,
			StripNewLines: true,
			CacheSize:     512,
		},
		LLM: LLMConfig{
			Provider:    "googleai",
			Model:       "gemini-1.5-pro",
			Temperature: 0.2,
		},
		RAG: RAGConfig{
			TopK:             5,
			MinScore:         0,
			MaxContextTokens: 4000,
		},
		Ingest: IngestConfig{
			ChunkSize:       500,
			ChunkOverlap:    100,
			RetryAttempts:   1,
			RetryBackoff:    200 * time.Millisecond,
			RetryMaxBackoff: 2 * time.Second,
		},
		YouTube: YouTubeConfig{
			MaxVideos:         20,
			RequestsPerSecond: 4,
		},
	}
}

// Validate enforces the cross-field rules the struct tags cannot express.
// Missing required provider credentials are startup-time fatal errors.
func (c *Config) Validate() error {
	if c.Ingest.ChunkOverlap >= c.Ingest.ChunkSize {
		return fmt.Errorf(
			"config: chunk overlap %d must be smaller than chunk size %d",
			c.Ingest.ChunkOverlap, c.Ingest.ChunkSize,
		)
	}
	if c.Embedder.Dimension != c.Store.Dimension {
		return fmt.Errorf(
			"config: embedder dimension %d does not match store dimension %d",
			c.Embedder.Dimension, c.Store.Dimension,
		)
	}
	switch c.Store.Provider {
	case "pinecone":
		if strings.TrimSpace(c.Store.APIKey) == "" {
			return fmt.Errorf("config: PINECONE_API_KEY is required for the pinecone store")
		}
		if strings.TrimSpace(c.Store.Host) == "" && strings.TrimSpace(c.Store.Environment) == "" {
			return fmt.Errorf("config: PINECONE_HOST or PINECONE_ENVIRONMENT is required for the pinecone store")
		}
		if strings.TrimSpace(c.Store.Index) == "" {
			return fmt.Errorf("config: PINECONE_INDEX_NAME is required for the pinecone store")
		}
	case "qdrant":
		if strings.TrimSpace(c.Store.DSN) == "" {
			return fmt.Errorf("config: QDRANT_URL is required for the qdrant store")
		}
	case "filesystem":
		if strings.TrimSpace(c.Store.Path) == "" {
			return fmt.Errorf("config: VECTOR_STORE_PATH is required for the filesystem store")
		}
	}
	if strings.TrimSpace(c.Embedder.APIKey) == "" {
		return fmt.Errorf("config: embedding provider API key is required")
	}
	if strings.TrimSpace(c.LLM.APIKey) == "" {
		return fmt.Errorf("config: LLM provider API key is required")
	}
	return nil
}

// ValidateYouTube checks the extra credentials the YouTube loader needs.
func (c *Config) ValidateYouTube() error {
	if strings.TrimSpace(c.YouTube.APIKey) == "" {
		return fmt.Errorf("config: YOUTUBE_API_KEY is required for the youtube loader")
	}
	return nil
}
