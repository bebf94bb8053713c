package config

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

//go:embed default.yaml
var DefaultConfigYAML []byte

type Config struct {
	Search        Search        `yaml:"search"`
	Summarization Summarization `yaml:"summarization"`
	Prompt        Prompt        `yaml:"prompt"`
	Download      Download      `yaml:"download"`
	Post          Post          `yaml:"post"`
	Site          Site          `yaml:"site"`
	Output        Output        `yaml:"output"`
	Logging       Logging       `yaml:"logging"`
}

type Search struct {
	MaxResults int `yaml:"max_results"`
	DaysBack   int `yaml:"days_back"`
}

type Summarization struct {
	Provider      string `yaml:"provider"`
	Model         string `yaml:"model"`
	OllamaURL     string `yaml:"ollama_url"`
	OpenAIModel   string `yaml:"openai_model"`
	APIKeyEnv     string `yaml:"api_key_env"`
	MaxTokens     int    `yaml:"max_tokens"`
	MaxInputChars int    `yaml:"max_input_chars"`
	MaxRetries    int    `yaml:"max_retries"`
	RetryBaseSecs int    `yaml:"retry_base_seconds"`
}

type Prompt struct {
	Template string `yaml:"template"`
}

type Download struct {
	PreDelaySecs  int `yaml:"pre_delay_seconds"`
	PostDelaySecs int `yaml:"post_delay_seconds"`
	TimeoutSecs   int `yaml:"timeout_seconds"`
}

type Post struct {
	MaxLength int `yaml:"max_length"`
}

type Site struct {
	FilterKeywords []string `yaml:"filter_keywords"`
	RecentDays     int      `yaml:"recent_days"`
	RecentPapers   int      `yaml:"recent_papers"`
}

type Output struct {
	DataDir string `yaml:"data_dir"`
}

type Logging struct {
	Level string `yaml:"level"`
}

// Dirs holds the working directories under the data dir.
type Dirs struct {
	Download string
	Text     string
	Summary  string
	Cache    string
	Logs     string
}

// ConfigDir returns the XDG config directory for arxivdigest.
func ConfigDir() string {
	return filepath.Join(homeDir(), ".config", "arxivdigest")
}

// DataDir returns the XDG data directory for arxivdigest.
func DataDir() string {
	return filepath.Join(homeDir(), ".local", "share", "arxivdigest")
}

// ResolveConfigPath finds the config file following priority:
// explicit path > ~/.config/arxivdigest/config.yaml > ./config.yaml
func ResolveConfigPath(explicit string) (string, error) {
	if explicit != "" {
		if _, err := os.Stat(explicit); err != nil {
			return "", fmt.Errorf("config file not found: %s", explicit)
		}
		return explicit, nil
	}

	xdgConfig := filepath.Join(ConfigDir(), "config.yaml")
	if _, err := os.Stat(xdgConfig); err == nil {
		return xdgConfig, nil
	}

	cwdConfig := "config.yaml"
	if _, err := os.Stat(cwdConfig); err == nil {
		return cwdConfig, nil
	}

	return "", fmt.Errorf(
		"no config file found; searched:\n  %s\n  ./config.yaml\n\nRun 'arxivdigest init' to create a default config",
		xdgConfig,
	)
}

// Load reads and parses a config YAML file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	return parse(data)
}

// parse parses YAML bytes into a Config, applying defaults.
func parse(data []byte) (*Config, error) {
	cfg := &Config{
		Search: Search{
			MaxResults: 100,
			DaysBack:   30,
		},
		Summarization: Summarization{
			Provider:      "openai",
			Model:         "qwen2.5:7b",
			OllamaURL:     "http://localhost:11434",
			OpenAIModel:   "gpt-4o-mini",
			APIKeyEnv:     "OPENAI_API_KEY",
			MaxTokens:     500,
			MaxInputChars: 10000,
			MaxRetries:    3,
			RetryBaseSecs: 2,
		},
		Download: Download{
			PreDelaySecs:  5,
			PostDelaySecs: 2,
			TimeoutSecs:   60,
		},
		Post: Post{MaxLength: 280},
		Site: Site{
			RecentDays:   5,
			RecentPapers: 10,
		},
		Logging: Logging{Level: "INFO"},
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	return cfg, nil
}

// GetDataDir returns the effective data directory from config or XDG default.
func (c *Config) GetDataDir() string {
	if c.Output.DataDir != "" {
		return c.Output.DataDir
	}
	return DataDir()
}

// GetDirs returns the working directories under the data dir.
func (c *Config) GetDirs() Dirs {
	base := c.GetDataDir()
	return Dirs{
		Download: filepath.Join(base, "dl"),
		Text:     filepath.Join(base, "text"),
		Summary:  filepath.Join(base, "summary"),
		Cache:    filepath.Join(base, "cache"),
		Logs:     filepath.Join(base, "logs"),
	}
}

// Ensure creates all working directories.
func (d Dirs) Ensure() error {
	for _, dir := range []string{d.Download, d.Text, d.Summary, d.Cache, d.Logs} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating directory %s: %w", dir, err)
		}
	}
	return nil
}

func homeDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return home
}
