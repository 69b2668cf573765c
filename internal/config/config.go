package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/menta2k/detect-cropper/internal/utils"
	"github.com/menta2k/detect-cropper/pkg/detection"
)

// Config holds the application configuration
type Config struct {
	Detector DetectorConfig `yaml:"detector"`
	Output   OutputConfig   `yaml:"output"`
	Labels   LabelsConfig   `yaml:"labels"`
	Log      LogConfig      `yaml:"log"`
	Server   ServerConfig   `yaml:"server"`
}

// DetectorConfig selects the external detector
type DetectorConfig struct {
	Backend    string        `yaml:"backend"`
	URL        string        `yaml:"url"`
	Model      string        `yaml:"model"`
	Confidence float64       `yaml:"confidence"`
	Timeout    time.Duration `yaml:"timeout"`
	SendSize   int           `yaml:"send_size"`
	SendQ      int           `yaml:"send_quality"`
}

// OutputConfig holds configuration for output generation
type OutputConfig struct {
	Quality     int    `yaml:"quality"`
	Previews    bool   `yaml:"previews"`
	CropsDir    string `yaml:"crops_dir"`
	PreviewsDir string `yaml:"previews_dir"`
}

// LabelsConfig points at an optional class-names file
type LabelsConfig struct {
	File string `yaml:"file"`
}

// LogConfig holds logger settings
type LogConfig struct {
	Level       string `yaml:"level"`
	Development bool   `yaml:"development"`
	File        string `yaml:"file"`
}

// ServerConfig holds settings of the HTTP job surface
type ServerConfig struct {
	Address string `yaml:"address"`
	Metrics bool   `yaml:"metrics"`
}

// Default returns a configuration with default values
func Default() *Config {
	return &Config{
		Detector: DetectorConfig{
			Backend:    detection.BackendYOLO,
			URL:        "http://localhost:5000",
			Model:      "yolov8n.pt",
			Confidence: detection.DefaultConfidence,
			Timeout:    60 * time.Second,
			SendSize:   1536,
			SendQ:      85,
		},
		Output: OutputConfig{
			Quality:     95,
			Previews:    true,
			CropsDir:    "crops",
			PreviewsDir: "detect",
		},
		Log: LogConfig{
			Level: "info",
		},
		Server: ServerConfig{
			Address: ":8090",
			Metrics: true,
		},
	}
}

// LoadFromFile loads configuration from a YAML file on top of the defaults
func LoadFromFile(filename string) (*Config, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := Default()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return config, nil
}

// Load reads filename when it exists, otherwise starts from defaults,
// then applies .env and environment overrides.
func Load(filename string) (*Config, error) {
	config := Default()
	if filename != "" && utils.FileExists(filename) {
		var err error
		if config, err = LoadFromFile(filename); err != nil {
			return nil, err
		}
	}

	// a missing .env is fine
	_ = godotenv.Load()
	if err := config.ApplyEnv(); err != nil {
		return nil, err
	}
	return config, nil
}

// ApplyEnv overrides detector settings from DETECTCROP_* variables
func (c *Config) ApplyEnv() error {
	if v := os.Getenv("DETECTCROP_BACKEND"); v != "" {
		c.Detector.Backend = normalizeBackend(v)
	}
	if v := os.Getenv("DETECTCROP_URL"); v != "" {
		c.Detector.URL = v
	}
	if v := os.Getenv("DETECTCROP_MODEL"); v != "" {
		c.Detector.Model = v
	}
	if v := os.Getenv("DETECTCROP_CONFIDENCE"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("DETECTCROP_CONFIDENCE: %w", err)
		}
		c.Detector.Confidence = f
	}
	return nil
}

// SaveToFile saves configuration to a YAML file
func (c *Config) SaveToFile(filename string) error {
	dir := filepath.Dir(filename)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(filename, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	c.Detector.Backend = normalizeBackend(c.Detector.Backend)
	switch c.Detector.Backend {
	case detection.BackendYOLO, detection.BackendOllama, detection.BackendLlamaCpp:
	default:
		return fmt.Errorf("detector.backend must be one of yolo, ollama, llamacpp")
	}

	if c.Detector.Confidence < 0 || c.Detector.Confidence > 1 {
		return fmt.Errorf("detector.confidence must be between 0 and 1")
	}

	if c.Detector.Backend != detection.BackendYOLO && c.Detector.Model == "" {
		return fmt.Errorf("detector.model is required for vision backends")
	}

	if c.Output.Quality < 1 || c.Output.Quality > 100 {
		return fmt.Errorf("output.quality must be between 1 and 100")
	}

	if c.Output.CropsDir == "" || c.Output.PreviewsDir == "" {
		return fmt.Errorf("output.crops_dir and output.previews_dir cannot be empty")
	}

	return nil
}

func normalizeBackend(b string) string {
	return strings.ToLower(strings.TrimSpace(b))
}

// DetectionConfig converts the detector section for detection.New
func (c *Config) DetectionConfig() detection.Config {
	return detection.Config{
		Backend:  c.Detector.Backend,
		URL:      c.Detector.URL,
		Model:    c.Detector.Model,
		Timeout:  c.Detector.Timeout,
		SendSize: c.Detector.SendSize,
		SendQ:    c.Detector.SendQ,
	}
}

// GetConfigPath returns the default configuration file path
func GetConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "./config.yaml"
	}
	return filepath.Join(home, ".config", "detect-cropper", "config.yaml")
}
