package cfg

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"narrator/db"
	"narrator/internal/app/api"
	"narrator/internal/app/archive"
	"narrator/pkg/gradio"
	"narrator/pkg/s3client"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const defaultHTTPTimeout = 5 * time.Minute

type Config struct {
	Api api.Config `yaml:"api"`

	Gradio      gradio.Config `yaml:"gradio"`
	HTTPTimeout time.Duration `yaml:"http_timeout"`

	DB      db.Config       `yaml:"db"`
	S3      s3client.Config `yaml:"s3"`
	Archive archive.Config  `yaml:"archive"`

	InfluxDB InfluxConfig `yaml:"influx"`
}

type InfluxConfig struct {
	URL    string `yaml:"url"`
	Token  string `yaml:"token"`
	Org    string `yaml:"org"`
	Bucket string `yaml:"bucket"`
}

// Load reads and validates the YAML config at path. A .env file in the
// working directory is loaded first when present, and GRADIO_URL and PORT
// override the file.
func Load(path string) (*Config, error) {
	cfg, err := Read(path)
	if err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Read is Load without validation, for callers that fill in the rest of
// the config themselves.
func Read(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("can't open %s file: %w", path, err)
	}

	return decode(data)
}

func Parse(data []byte) (*Config, error) {
	cfg, err := decode(data)
	if err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func decode(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("can't unmarshal config: %w", err)
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}

	if cfg.HTTPTimeout <= 0 {
		cfg.HTTPTimeout = defaultHTTPTimeout
	}

	if cfg.Api.Port == 0 {
		cfg.Api.Port = 7861
	}

	return &cfg, nil
}

func (c *Config) Validate() error {
	if c.Gradio.URL == "" {
		return fmt.Errorf("gradio.url is required")
	}

	if c.Archive.Enabled && c.S3.Endpoint == "" {
		return fmt.Errorf("archive is enabled but s3.endpoint is empty")
	}

	return nil
}

func (c *Config) applyEnv() error {
	if url := os.Getenv("GRADIO_URL"); url != "" {
		c.Gradio.URL = url
	}

	if port := os.Getenv("PORT"); port != "" {
		p, err := strconv.Atoi(port)
		if err != nil {
			return fmt.Errorf("invalid PORT %q: %w", port, err)
		}

		c.Api.Port = p
	}

	return nil
}
