package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	DefaultChunkSize       = 250
	DefaultChunkOverlap    = 0
	DefaultSentenceWindow  = 6
	DefaultSentenceOverlap = 2
	DefaultDimension       = 384
	DefaultMaxTokens       = 256
	DefaultTopK            = 5
	DefaultServerAddr      = ":8080"
	DefaultUploadLimitMB   = 10
	DefaultCacheTTL        = 24 * time.Hour

	BackendFlat     = "flat"
	BackendChromem  = "chromem"
	BackendPostgres = "postgres"

	ProviderLocal  = "local"
	ProviderOllama = "ollama"
	ProviderOpenAI = "openai"
	ProviderNone   = "none"
)

type Config struct {
	EmbedLLM   LLMConfig       `yaml:"embed_llm"`
	ExtractLLM LLMConfig       `yaml:"extract_llm"`
	ChatLLM    LLMConfig       `yaml:"chat_llm"`
	Embedding  EmbeddingConfig `yaml:"embedding"`
	RAG        RAGConfig       `yaml:"rag"`
	Index      IndexConfig     `yaml:"index"`
	Database   DatabaseConfig  `yaml:"database"`
	Cache      CacheConfig     `yaml:"cache"`
	Server     ServerConfig    `yaml:"server"`
	Booking    BookingConfig   `yaml:"booking"`
	Log        LogConfig       `yaml:"log"`
}

// LLMConfig points at an Ollama or OpenAI-compatible endpoint
type LLMConfig struct {
	Provider    string  `yaml:"provider"`
	BaseURL     string  `yaml:"base_url"`
	Key         string  `yaml:"key"`
	Model       string  `yaml:"model"`
	Temperature float64 `yaml:"temperature"`
	MaxTokens   int     `yaml:"max_tokens"`
}

type EmbeddingConfig struct {
	Dimension int `yaml:"dimension"`
	MaxTokens int `yaml:"max_tokens"`
}

type RAGConfig struct {
	ChunkSize       int `yaml:"chunk_size"`
	ChunkOverlap    int `yaml:"chunk_overlap"`
	SentenceWindow  int `yaml:"sentence_window"`
	SentenceOverlap int `yaml:"sentence_overlap"`
	TopK            int `yaml:"top_k"`
}

type IndexConfig struct {
	Backend       string `yaml:"backend"`
	Dir           string `yaml:"dir"`
	ResumeName    string `yaml:"resume_name"`
	JobName       string `yaml:"job_name"`
	InMemory      bool   `yaml:"in_memory"`
	Compress      bool   `yaml:"compress"`
	EncryptionKey string `yaml:"encryption_key"`
}

type DatabaseConfig struct {
	DSN   string `yaml:"dsn"`
	Debug bool   `yaml:"debug"`
}

type CacheConfig struct {
	RedisAddr string        `yaml:"redis_addr"`
	Password  string        `yaml:"password"`
	DB        int           `yaml:"db"`
	TTL       time.Duration `yaml:"ttl"`
}

type ServerConfig struct {
	Addr          string `yaml:"addr"`
	UploadLimitMB int    `yaml:"upload_limit_mb"`
}

type BookingConfig struct {
	SchedulePath string `yaml:"schedule_path"`
	Language     string `yaml:"language"`
}

type LogConfig struct {
	Level string `yaml:"level"`
	JSON  bool   `yaml:"json"`
}

// LoadConfig reads the yaml file at path. A missing file yields the defaults.
func LoadConfig(path string) (*Config, error) {
	var cfg Config
	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
	case err != nil:
		return nil, fmt.Errorf("failed to read config %s: %w", path, err)
	default:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
		}
	}
	cfg.applyEnv()
	cfg.ApplyDefaults()
	return &cfg, nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv("RM_LLM_KEY"); v != "" {
		c.ExtractLLM.Key = v
		c.ChatLLM.Key = v
	}
	if v := os.Getenv("RM_PG_DSN"); v != "" {
		c.Database.DSN = v
	}
	if v := os.Getenv("RM_REDIS_ADDR"); v != "" {
		c.Cache.RedisAddr = v
	}
}

// ApplyDefaults fills zero values
func (c *Config) ApplyDefaults() {
	if c.EmbedLLM.Provider == "" {
		c.EmbedLLM.Provider = ProviderLocal
	}
	if c.ExtractLLM.Provider == "" {
		c.ExtractLLM.Provider = ProviderNone
	}
	if c.ChatLLM.Provider == "" {
		c.ChatLLM.Provider = ProviderNone
	}
	if c.Embedding.Dimension <= 0 {
		c.Embedding.Dimension = DefaultDimension
	}
	if c.Embedding.MaxTokens <= 0 {
		c.Embedding.MaxTokens = DefaultMaxTokens
	}
	// overlap must stay below the window, so both are reset together
	if c.RAG.ChunkSize <= 0 || c.RAG.ChunkOverlap < 0 || c.RAG.ChunkOverlap >= c.RAG.ChunkSize {
		c.RAG.ChunkSize = DefaultChunkSize
		c.RAG.ChunkOverlap = DefaultChunkOverlap
	}
	if c.RAG.SentenceWindow <= 0 || c.RAG.SentenceOverlap < 0 || c.RAG.SentenceOverlap >= c.RAG.SentenceWindow {
		c.RAG.SentenceWindow = DefaultSentenceWindow
		c.RAG.SentenceOverlap = DefaultSentenceOverlap
	}
	if c.RAG.TopK <= 0 {
		c.RAG.TopK = DefaultTopK
	}
	if c.Index.Backend == "" {
		c.Index.Backend = BackendFlat
	}
	if c.Index.Dir == "" {
		c.Index.Dir = "./data"
	}
	if c.Index.ResumeName == "" {
		c.Index.ResumeName = "resumes"
	}
	if c.Index.JobName == "" {
		c.Index.JobName = "jobs"
	}
	if c.Cache.TTL <= 0 {
		c.Cache.TTL = DefaultCacheTTL
	}
	if c.Server.Addr == "" {
		c.Server.Addr = DefaultServerAddr
	}
	if c.Server.UploadLimitMB <= 0 {
		c.Server.UploadLimitMB = DefaultUploadLimitMB
	}
	if c.Booking.Language == "" {
		c.Booking.Language = "english"
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
}

// Default returns a config with every default applied
func Default() *Config {
	cfg := &Config{}
	cfg.ApplyDefaults()
	return cfg
}

const redacted = "xxxxx"

// Redacted returns a copy safe to log: keys and passwords are masked
func (c Config) Redacted() Config {
	for _, l := range []*LLMConfig{&c.EmbedLLM, &c.ExtractLLM, &c.ChatLLM} {
		if l.Key != "" {
			l.Key = redacted
		}
	}
	if c.Index.EncryptionKey != "" {
		c.Index.EncryptionKey = redacted
	}
	if c.Cache.Password != "" {
		c.Cache.Password = redacted
	}
	if c.Database.DSN != "" {
		if u, err := url.Parse(c.Database.DSN); err == nil && u.Scheme != "" {
			c.Database.DSN = u.Redacted()
		} else {
			c.Database.DSN = redacted
		}
	}
	return c
}
