package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds the auditdex service configuration.
type Config struct {
	HTTP      HTTPConfig      `yaml:"http"`
	Corpus    CorpusConfig    `yaml:"corpus"`
	Chunking  ChunkingConfig  `yaml:"chunking"`
	Retrieval RetrievalConfig `yaml:"retrieval"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	Cache     CacheConfig     `yaml:"cache"`
	Pipeline  PipelineConfig  `yaml:"pipeline"`
	Reindex   ReindexConfig   `yaml:"reindex"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error (default: determined by env)
}

// HTTPConfig holds HTTP server settings.
type HTTPConfig struct {
	Port            int `yaml:"port"`
	ReadTimeoutSec  int `yaml:"read_timeout_sec"`
	WriteTimeoutSec int `yaml:"write_timeout_sec"`
	ShutdownSec     int `yaml:"shutdown_timeout_sec"`
}

// CorpusConfig holds the locations of the source documents and the index cache.
type CorpusConfig struct {
	PolicyPath string `yaml:"policy_path"`
	EmailPath  string `yaml:"email_path"`
	LedgerPath string `yaml:"ledger_path"`
	IndexDir   string `yaml:"index_dir"`
	Watch      bool   `yaml:"watch"` // rebuild indexes on source file changes
}

// ChunkingConfig holds document chunking settings.
type ChunkingConfig struct {
	MaxChars     int `yaml:"max_chars"`
	OverlapChars int `yaml:"overlap_chars"`
	MinChars     int `yaml:"min_chars"`
}

// RetrievalConfig holds search settings.
type RetrievalConfig struct {
	PolicyTopK     int `yaml:"policy_top_k"`
	EmailTopK      int `yaml:"email_top_k"`
	CandidatePool  int `yaml:"candidate_pool"` // semantic candidates scanned before metadata filtering
	MaxResultChars int `yaml:"max_result_chars"`
}

// EmbeddingConfig holds embedding provider settings.
type EmbeddingConfig struct {
	APIKey     string `yaml:"api_key"`
	BaseURL    string `yaml:"base_url"`
	Model      string `yaml:"model"`
	Dimensions int    `yaml:"dimensions"`
	MaxChars   int    `yaml:"max_chars"`
}

// CacheConfig holds the embedding cache (valkey/redis) settings.
type CacheConfig struct {
	Enabled          bool     `yaml:"enabled"`
	Addrs            []string `yaml:"addrs"`
	Password         string   `yaml:"password"`
	TTLSec           int      `yaml:"ttl_sec"` // 0 = no expiry
	ReadinessTimeout int      `yaml:"readiness_timeout_sec"`
}

// PipelineConfig holds query pipeline settings.
type PipelineConfig struct {
	StageTimeoutSec int    `yaml:"stage_timeout_sec"`
	CompletionModel string `yaml:"completion_model"`
}

// ReindexConfig holds the optional scheduled rebuild settings.
type ReindexConfig struct {
	Schedule string `yaml:"schedule"` // cron expression, empty = disabled
}

// Load reads configuration from a YAML file by environment name (local, dev, prod).
func Load(env string) (Config, error) {
	configPath := findConfigPath(env)

	data, err := os.ReadFile(filepath.Clean(configPath))
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config %s: %w", configPath, err)
	}

	// Substitute env variables of the form ${VAR}
	data = expandEnvVars(data)

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// MustLoad loads configuration or panics.
func MustLoad(env string) Config {
	cfg, err := Load(env)
	if err != nil {
		panic(err)
	}
	return cfg
}

// GetEnv returns the current environment from the ENV variable, defaulting to "local".
func GetEnv() string {
	if env := os.Getenv("ENV"); env != "" {
		return env
	}
	return "local"
}

// ApplyDefaults fills empty fields with default values.
func (c *Config) ApplyDefaults() {
	if c.HTTP.Port <= 0 {
		c.HTTP.Port = 8080
	}
	if c.HTTP.ReadTimeoutSec <= 0 {
		c.HTTP.ReadTimeoutSec = 10
	}
	if c.HTTP.WriteTimeoutSec <= 0 {
		c.HTTP.WriteTimeoutSec = 60
	}
	if c.HTTP.ShutdownSec <= 0 {
		c.HTTP.ShutdownSec = 10
	}
	if c.Corpus.IndexDir == "" {
		c.Corpus.IndexDir = "data/index"
	}
	if c.Chunking.MaxChars <= 0 {
		c.Chunking.MaxChars = 2000
	}
	if c.Chunking.OverlapChars <= 0 {
		c.Chunking.OverlapChars = 200
	}
	if c.Chunking.MinChars <= 0 {
		c.Chunking.MinChars = 50
	}
	if c.Retrieval.PolicyTopK <= 0 {
		c.Retrieval.PolicyTopK = 3
	}
	if c.Retrieval.EmailTopK <= 0 {
		c.Retrieval.EmailTopK = 5
	}
	if c.Retrieval.CandidatePool <= 0 {
		c.Retrieval.CandidatePool = 2000
	}
	if c.Retrieval.MaxResultChars <= 0 {
		c.Retrieval.MaxResultChars = 250
	}
	if c.Embedding.Model == "" {
		c.Embedding.Model = "text-embedding-3-small"
	}
	if c.Embedding.Dimensions <= 0 {
		c.Embedding.Dimensions = 1536
	}
	if c.Embedding.MaxChars <= 0 {
		c.Embedding.MaxChars = 8000
	}
	if c.Cache.ReadinessTimeout <= 0 {
		c.Cache.ReadinessTimeout = 10
	}
	if c.Pipeline.StageTimeoutSec <= 0 {
		c.Pipeline.StageTimeoutSec = 30
	}
	if c.Pipeline.CompletionModel == "" {
		c.Pipeline.CompletionModel = "gpt-4o-mini"
	}
}

// Validate checks the configuration for correctness.
func (c *Config) Validate() error {
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http.port must be between 1 and 65535, got %d", c.HTTP.Port)
	}
	if c.Corpus.PolicyPath == "" {
		return fmt.Errorf("corpus.policy_path is required")
	}
	if c.Corpus.EmailPath == "" {
		return fmt.Errorf("corpus.email_path is required")
	}
	if c.Corpus.LedgerPath == "" {
		return fmt.Errorf("corpus.ledger_path is required")
	}
	if c.Chunking.OverlapChars >= c.Chunking.MaxChars {
		return fmt.Errorf("chunking.overlap_chars (%d) must be smaller than chunking.max_chars (%d)",
			c.Chunking.OverlapChars, c.Chunking.MaxChars)
	}
	if c.Cache.Enabled && len(c.Cache.Addrs) == 0 {
		return fmt.Errorf("cache.addrs is required when cache.enabled is true")
	}
	return nil
}

// findConfigPath locates the config file.
func findConfigPath(env string) string {
	filename := fmt.Sprintf("%s.yaml", env)

	// 1. Check ./config/
	if path := filepath.Join("config", filename); fileExists(path) {
		return path
	}

	// 2. Check relative to the source file
	_, b, _, _ := runtime.Caller(0)
	projectRoot := filepath.Dir(filepath.Dir(filepath.Dir(b))) // internal/config -> project root
	if path := filepath.Join(projectRoot, "config", filename); fileExists(path) {
		return path
	}

	// 3. Fallback to ./config/
	return filepath.Join("config", filename)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// expandEnvVars replaces ${VAR} and ${VAR:-default} with environment variable values.
var envVarRegex = regexp.MustCompile(`\$\{([^}]+)\}`)

func expandEnvVars(data []byte) []byte {
	return envVarRegex.ReplaceAllFunc(data, func(match []byte) []byte {
		expr := string(match[2 : len(match)-1]) // strip ${ and }
		varName, defaultVal, hasDefault := strings.Cut(expr, ":-")
		val := os.Getenv(varName)
		if val == "" && hasDefault {
			val = defaultVal
		}
		return []byte(val)
	})
}
