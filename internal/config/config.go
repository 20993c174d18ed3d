package config

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Port          int      `yaml:"port"`
	DataPath      string   `yaml:"data_path"`
	DBPath        string   `yaml:"db_path"`
	JWTSecret     string   `yaml:"jwt_secret"`
	AdminUsername string   `yaml:"admin_username"`
	AdminPassword string   `yaml:"admin_password"`
	CORSOrigins   []string `yaml:"cors_origins"`

	// WatchDir, when set, is monitored for dropped subtitle files which
	// auto-enqueue a translation run with the defaults below.
	WatchDir string `yaml:"watch_dir"`

	Pipeline  PipelineConfig  `yaml:"pipeline"`
	Providers ProvidersConfig `yaml:"providers"`
}

// PipelineConfig are the run defaults applied when a request leaves a field
// unset.
type PipelineConfig struct {
	TargetSeconds float64 `yaml:"target_seconds"`
	// OverlapCount is a pointer so an explicit 0 survives defaulting;
	// nil means unset.
	OverlapCount *int `yaml:"overlap_count"`
	Concurrency   int     `yaml:"concurrency"`
	Provider      string  `yaml:"provider"`
	SourceLang    string  `yaml:"source_lang"`
	TargetLang    string  `yaml:"target_lang"`
	Preset        string  `yaml:"preset"`
}

type ProvidersConfig struct {
	GeminiAPIKey    string `yaml:"gemini_api_key"`
	GeminiModel     string `yaml:"gemini_model"`
	OpenAIAPIKey    string `yaml:"openai_api_key"`
	OpenAIModel     string `yaml:"openai_model"`
	AnthropicAPIKey string `yaml:"anthropic_api_key"`
	AnthropicModel  string `yaml:"anthropic_model"`
	OllamaURL       string `yaml:"ollama_url"`
	OllamaModel     string `yaml:"ollama_model"`
}

// Load builds the config from the environment, with an optional YAML file
// (CONFIG_PATH) applied first so env vars win.
func Load() *Config {
	cfg := &Config{}

	if path := os.Getenv("CONFIG_PATH"); path != "" {
		if err := loadFile(cfg, path); err != nil {
			log.Fatalf("Failed to load config file %s: %v", path, err)
		}
	}

	if v := os.Getenv("PORT"); v != "" {
		cfg.Port, _ = strconv.Atoi(v)
	} else if cfg.Port == 0 {
		cfg.Port = 8080
	}
	cfg.DataPath = firstOf(os.Getenv("DATA_PATH"), cfg.DataPath, "/data")
	cfg.DBPath = firstOf(os.Getenv("DB_PATH"), cfg.DBPath, cfg.DataPath+"/subpipe.db")
	cfg.AdminUsername = firstOf(os.Getenv("ADMIN_USERNAME"), cfg.AdminUsername, "admin")
	cfg.AdminPassword = firstOf(os.Getenv("ADMIN_PASSWORD"), cfg.AdminPassword, "admin")
	cfg.WatchDir = firstOf(os.Getenv("WATCH_DIR"), cfg.WatchDir, "")

	// JWT secret: require explicit setting or generate random
	cfg.JWTSecret = firstOf(os.Getenv("JWT_SECRET"), cfg.JWTSecret, "")
	if cfg.JWTSecret == "" {
		b := make([]byte, 32)
		if _, err := rand.Read(b); err != nil {
			log.Fatalf("Failed to generate random JWT secret: %v", err)
		}
		cfg.JWTSecret = hex.EncodeToString(b)
		log.Println("WARNING: JWT_SECRET not set, using random secret. Sessions will not survive restarts.")
	}

	// CORS origins: comma-separated list or "*" (default)
	if v := os.Getenv("CORS_ORIGINS"); v != "" {
		cfg.CORSOrigins = splitCSV(v)
	}
	if len(cfg.CORSOrigins) == 0 {
		cfg.CORSOrigins = []string{"*"}
	}

	cfg.Providers.GeminiAPIKey = firstOf(os.Getenv("GEMINI_API_KEY"), cfg.Providers.GeminiAPIKey, "")
	cfg.Providers.GeminiModel = firstOf(os.Getenv("GEMINI_MODEL"), cfg.Providers.GeminiModel, "")
	cfg.Providers.OpenAIAPIKey = firstOf(os.Getenv("OPENAI_API_KEY"), cfg.Providers.OpenAIAPIKey, "")
	cfg.Providers.OpenAIModel = firstOf(os.Getenv("OPENAI_MODEL"), cfg.Providers.OpenAIModel, "")
	cfg.Providers.AnthropicAPIKey = firstOf(os.Getenv("ANTHROPIC_API_KEY"), cfg.Providers.AnthropicAPIKey, "")
	cfg.Providers.AnthropicModel = firstOf(os.Getenv("ANTHROPIC_MODEL"), cfg.Providers.AnthropicModel, "")
	cfg.Providers.OllamaURL = firstOf(os.Getenv("OLLAMA_URL"), cfg.Providers.OllamaURL, "")
	cfg.Providers.OllamaModel = firstOf(os.Getenv("OLLAMA_MODEL"), cfg.Providers.OllamaModel, "")

	cfg.applyPipelineDefaults()
	return cfg
}

func loadFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, cfg)
}

func (c *Config) applyPipelineDefaults() {
	if c.Pipeline.TargetSeconds <= 0 {
		c.Pipeline.TargetSeconds = 300
	}
	if c.Pipeline.OverlapCount == nil {
		n := 2
		c.Pipeline.OverlapCount = &n
	} else if *c.Pipeline.OverlapCount < 0 {
		*c.Pipeline.OverlapCount = 0
	}
	if c.Pipeline.Concurrency < 1 {
		c.Pipeline.Concurrency = 2
	}
	if c.Pipeline.Provider == "" {
		c.Pipeline.Provider = "gemini"
	}
	if c.Pipeline.SourceLang == "" {
		c.Pipeline.SourceLang = "auto"
	}
	if c.Pipeline.TargetLang == "" {
		c.Pipeline.TargetLang = "en"
	}
}

// Validate rejects combinations the server cannot start with.
func (c *Config) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("port %d out of range", c.Port)
	}
	if c.DBPath == "" {
		return fmt.Errorf("db_path is required")
	}
	switch c.Pipeline.Provider {
	case "gemini", "openai", "anthropic", "ollama":
	default:
		return fmt.Errorf("unknown default provider: %s", c.Pipeline.Provider)
	}
	return nil
}

func firstOf(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func splitCSV(v string) []string {
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
