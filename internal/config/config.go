package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Project struct {
		OutputDir   string `yaml:"output_dir"`
		DB          string `yaml:"db"`
		IndexDir    string `yaml:"index_dir"`
		ContentGlob string `yaml:"content_glob"`
	} `yaml:"project"`
	Engine struct {
		MaxHeadingLevel  int    `yaml:"max_heading_level"`
		PlaceholderStyle string `yaml:"placeholder_style"` // square or curly
		VariablesFile    string `yaml:"variables_file"`
	} `yaml:"engine"`
	Render struct {
		Formats             []string `yaml:"formats"`
		HighlightUnresolved bool     `yaml:"highlight_unresolved"`
		WordWrap            int      `yaml:"word_wrap"`
		PreviewStyle        string   `yaml:"preview_style"` // glamour style name or style file
	} `yaml:"render"`
	Log struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"` // json or console
	} `yaml:"log"`
	Organization Organization `yaml:"organization"`
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	var cfg Config
	cfg.applyDefaults()
	return &cfg
}

func LoadConfig(path string) (*Config, error) {
	// 1. Load .env if exists
	_ = godotenv.Load()

	// 2. Load YAML config
	file, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(file, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	cfg.applyDefaults()

	// 3. Override with Environment Variables if present
	cfg.applyEnv()

	return &cfg, nil
}

// LoadOrDefault behaves like LoadConfig but falls back to Default when path does not exist.
func LoadOrDefault(path string) (*Config, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		_ = godotenv.Load()
		cfg := Default()
		cfg.applyEnv()
		return cfg, nil
	}
	return LoadConfig(path)
}

func (c *Config) applyDefaults() {
	if c.Project.OutputDir == "" {
		c.Project.OutputDir = "output"
	}
	if c.Project.DB == "" {
		c.Project.DB = "manualgen.db"
	}
	if c.Project.IndexDir == "" {
		c.Project.IndexDir = "manualgen.bleve"
	}
	if c.Project.ContentGlob == "" {
		c.Project.ContentGlob = "content_*.json"
	}
	if c.Engine.MaxHeadingLevel <= 0 {
		c.Engine.MaxHeadingLevel = 3
	}
	if c.Engine.PlaceholderStyle == "" {
		c.Engine.PlaceholderStyle = "square"
	}
	if len(c.Render.Formats) == 0 {
		c.Render.Formats = []string{"markdown", "rtf"}
	}
	if c.Render.WordWrap <= 0 {
		c.Render.WordWrap = 100
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "console"
	}
}

func (c *Config) applyEnv() {
	if dir := os.Getenv("MANUALGEN_OUTPUT_DIR"); dir != "" {
		c.Project.OutputDir = dir
	}
	if db := os.Getenv("MANUALGEN_DB"); db != "" {
		c.Project.DB = db
	}
	if level := os.Getenv("MANUALGEN_LOG_LEVEL"); level != "" {
		c.Log.Level = level
	}
	if dir := os.Getenv("MANUALGEN_INDEX_DIR"); dir != "" {
		c.Project.IndexDir = dir
	}
}

// Check reports settings the engine cannot run with.
func (c *Config) Check() error {
	switch c.Engine.PlaceholderStyle {
	case "square", "curly":
	default:
		return fmt.Errorf("engine.placeholder_style must be square or curly, got %q", c.Engine.PlaceholderStyle)
	}
	for _, f := range c.Render.Formats {
		switch strings.ToLower(f) {
		case "markdown", "md", "rtf", "json", "docx":
		default:
			return fmt.Errorf("render.formats: unknown format %q", f)
		}
	}
	return nil
}
