package model

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
)

// AccountConfig holds the tagging rules for a single organizational
// account.
type AccountConfig struct {
	// Name is the tag value written to matched messages.
	Name string `mapstructure:"name" yaml:"name"`

	// Aliases are alternate spellings matched against subject and body.
	Aliases []string `mapstructure:"aliases" yaml:"aliases"`

	// Domains are email domains (without the @) matched against sender
	// and recipient addresses.
	Domains []string `mapstructure:"domains" yaml:"domains"`

	// Keywords are free-text markers matched against subject and body.
	Keywords []string `mapstructure:"keywords" yaml:"keywords"`

	// Partners are organization names tagged independently of the
	// account score.
	Partners []string `mapstructure:"partners" yaml:"partners"`
}

// SubjectPattern maps a subject regular expression to an account name.
// Patterns are evaluated in configuration order; the first match wins.
type SubjectPattern struct {
	Pattern string `mapstructure:"pattern" yaml:"pattern"`
	Account string `mapstructure:"account" yaml:"account"`
}

// OverridesConfig holds deterministic tag assignments that bypass the
// scoring heuristic entirely.
type OverridesConfig struct {
	// Addresses maps an exact sender address to an account name.
	// Matching is case-insensitive.
	Addresses map[string]string `mapstructure:"addresses" yaml:"addresses"`

	// SubjectPatterns are ordered regex overrides on the subject line.
	SubjectPatterns []SubjectPattern `mapstructure:"subject_patterns" yaml:"subject_patterns"`
}

// SemanticConfig controls the optional embedding search index.
type SemanticConfig struct {
	// Enabled turns the semantic layer on. When off, ingestion skips
	// embedding entirely and semantic search reports the layer as
	// disabled.
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`

	// Backend selects the index implementation: "local" (flat index on
	// disk, embeddings via an Ollama-compatible endpoint) or "chroma".
	Backend string `mapstructure:"backend" yaml:"backend"`

	// ModelName is the embedding model requested from the endpoint.
	ModelName string `mapstructure:"model_name" yaml:"model_name"`

	// Endpoint is the base URL of the embedding service for the local
	// backend.
	Endpoint string `mapstructure:"endpoint" yaml:"endpoint"`

	// IndexPath is where the local backend persists its vectors. The
	// ordinal-to-message sidecar lives next to it with a .meta.jsonl
	// suffix.
	IndexPath string `mapstructure:"index_path" yaml:"index_path"`

	// BatchSize is how many pending documents accumulate before a flush.
	BatchSize int `mapstructure:"batch_size" yaml:"batch_size"`

	// Chroma connection settings. APIKey may also come from the
	// CHROMA_API_KEY environment variable, GeminiAPIKey from
	// GEMINI_API_KEY.
	ChromaURL    string `mapstructure:"chroma_url" yaml:"chroma_url"`
	Tenant       string `mapstructure:"tenant" yaml:"tenant"`
	Database     string `mapstructure:"database" yaml:"database"`
	APIKey       string `mapstructure:"api_key" yaml:"api_key"`
	GeminiAPIKey string `mapstructure:"gemini_api_key" yaml:"gemini_api_key"`
}

// EntitiesConfig controls named-entity extraction.
type EntitiesConfig struct {
	// Engine is "auto" (statistical NER with regex fallback) or "regex"
	// (patterns only).
	Engine string `mapstructure:"engine" yaml:"engine"`
}

// Config is the top-level ingestion configuration.
type Config struct {
	Accounts  []AccountConfig `mapstructure:"accounts" yaml:"accounts"`
	Overrides OverridesConfig `mapstructure:"overrides" yaml:"overrides"`
	Semantic  SemanticConfig  `mapstructure:"semantic" yaml:"semantic"`
	Entities  EntitiesConfig  `mapstructure:"entities" yaml:"entities"`

	// WorkDir is the scratch directory for unpacked archives and
	// converter output. It must stay stable across runs so checkpoint
	// keys keep referring to the same extracted paths.
	WorkDir string `mapstructure:"work_dir" yaml:"work_dir"`
}

// DefaultConfigPath returns the conventional location of the accounts
// configuration, relative to the working directory.
func DefaultConfigPath() string {
	return filepath.Join("config", "accounts.yml")
}

// defaultConfig returns the configuration used when no file exists:
// no tagging rules, semantic layer off, regex-capable entity engine.
func defaultConfig() *Config {
	return &Config{
		Semantic: SemanticConfig{
			Backend:   "local",
			ModelName: "nomic-embed-text",
			Endpoint:  "http://localhost:11434",
			IndexPath: filepath.Join("data", "semantic", "index.json"),
			BatchSize: 500,
		},
		Entities: EntitiesConfig{Engine: "auto"},
		WorkDir:  "data",
	}
}

// LoadConfig reads the ingestion configuration from the given YAML file
// using Viper. A missing file yields the default configuration.
func LoadConfig(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	// Set defaults so missing keys resolve to sensible values.
	v.SetDefault("semantic.backend", "local")
	v.SetDefault("semantic.model_name", "nomic-embed-text")
	v.SetDefault("semantic.endpoint", "http://localhost:11434")
	v.SetDefault("semantic.index_path", filepath.Join("data", "semantic", "index.json"))
	v.SetDefault("semantic.batch_size", 500)
	v.SetDefault("entities.engine", "auto")
	v.SetDefault("work_dir", "data")

	// Credentials may live in the environment instead of the file.
	v.BindEnv("semantic.api_key", "CHROMA_API_KEY")
	v.BindEnv("semantic.gemini_api_key", "GEMINI_API_KEY")

	// A missing file is fine: defaults and environment still apply.
	if err := v.ReadInConfig(); err != nil && !missingConfigFile(err) {
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}

	cfg := defaultConfig()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}

	return cfg, nil
}

func missingConfigFile(err error) bool {
	if _, ok := err.(*os.PathError); ok {
		return true
	}
	_, ok := err.(viper.ConfigFileNotFoundError)
	return ok
}
