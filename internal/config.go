package internal

import (
	"fmt"
	"log/slog"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/laguz/internal/fetch"
	"github.com/starford/laguz/internal/render"
	"github.com/starford/laguz/internal/snapshot"
)

// Config represents the application configuration.
type Config struct {
	App    ApplicationConfig `yaml:"app"`
	Data   DataConfig        `yaml:"data"`
	SQLite SQLiteConfig      `yaml:"sqlite"`
	Charts ChartsConfig      `yaml:"charts"`
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := c.App.Validate(); err != nil {
		return err
	}
	if err := c.Data.Validate(); err != nil {
		return err
	}
	if err := c.SQLite.Validate(); err != nil {
		return err
	}
	return c.Charts.Validate()
}

// ApplicationConfig holds application-level configuration.
type ApplicationConfig struct {
	LogLevel slog.Level `yaml:"log_level"`
	HTTP     HTTPConfig `yaml:"http"`
}

// Validate validates the application configuration.
func (c *ApplicationConfig) Validate() error {
	return c.HTTP.Validate()
}

// HTTPConfig holds HTTP server configuration.
type HTTPConfig struct {
	Port int `yaml:"port"`
}

// Address returns HTTP server address.
func (c *HTTPConfig) Address() string {
	return fmt.Sprintf(":%d", c.Port)
}

// Validate validates the HTTP configuration.
func (c *HTTPConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Port, validation.Required, validation.Min(1), validation.Max(65535)),
	)
}

// DataConfig holds the data directory and retrieval settings.
//
// StartDate uses the daily file date layout (MM-DD-YYYY) and marks the
// first day of the observation window; retrieval and loading walk from
// it through the current day.
type DataConfig struct {
	Dir       string `yaml:"dir"`
	StartDate string `yaml:"start_date"`
	BaseURL   string `yaml:"base_url"`
}

// Validate validates the data configuration.
func (c *DataConfig) Validate() error {
	if err := validation.ValidateStruct(c,
		validation.Field(&c.Dir, validation.Required),
		validation.Field(&c.StartDate, validation.Required),
		validation.Field(&c.BaseURL, validation.Required),
	); err != nil {
		return err
	}
	if _, err := time.Parse(snapshot.DateLayout, c.StartDate); err != nil {
		return fmt.Errorf("data: start_date %q is not in MM-DD-YYYY form: %w", c.StartDate, err)
	}
	return nil
}

// Start returns the parsed start date. Validate must have passed.
func (c *DataConfig) Start() time.Time {
	t, _ := time.Parse(snapshot.DateLayout, c.StartDate)
	return t
}

// SQLiteConfig holds SQLite database configuration.
type SQLiteConfig struct {
	Path string `yaml:"path"`
}

// Validate validates the SQLite configuration.
func (c *SQLiteConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Path, validation.Required),
	)
}

// ChartsConfig holds chart output configuration.
type ChartsConfig struct {
	Dir          string `yaml:"dir"`
	TicksDivisor int    `yaml:"ticks_divisor"`
	Animate      bool   `yaml:"animate"`
}

// Validate validates the charts configuration.
func (c *ChartsConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Dir, validation.Required),
		validation.Field(&c.TicksDivisor, validation.Required, validation.Min(1)),
	)
}

// NewDefaultConfig returns a new Config with sensible default values.
func NewDefaultConfig() *Config {
	return &Config{
		App: ApplicationConfig{
			LogLevel: slog.LevelInfo,
			HTTP: HTTPConfig{
				Port: 8080,
			},
		},
		Data: DataConfig{
			Dir:       "./data",
			StartDate: "01-22-2020",
			BaseURL:   fetch.DefaultBaseURL,
		},
		SQLite: SQLiteConfig{
			Path: "./laguz.db",
		},
		Charts: ChartsConfig{
			Dir:          "./charts",
			TicksDivisor: render.DefaultTicksDivisor,
			Animate:      true,
		},
	}
}
