// phlip-doc-management - incremental highlight annotations for PDF files
// Copyright (C) 2026  The phlip-doc-management authors
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with this program.  If not, see <https://www.gnu.org/licenses/>.

package session

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"gopkg.in/yaml.v2"

	"github.com/LaudateCorpus1/phlip-doc-management/normalize"
)

// Config holds the settings of the annotation tools.
type Config struct {
	// Normalizer selects how files are rewritten into the classic layout.
	// Valid values are "auto" (qpdf, falling back to pdfcpu), "qpdf",
	// "pdfcpu" and "none".
	Normalizer string `yaml:"normalizer"`

	// QPDFPath is the qpdf executable.
	QPDFPath string `yaml:"qpdf_path"`

	// Timeout limits each qpdf run, e.g. "30s".
	Timeout time.Duration `yaml:"timeout"`

	// TempDir is where qpdf working directories are created.
	TempDir string `yaml:"temp_dir"`

	// Workers is the number of documents processed concurrently.
	Workers int `yaml:"workers"`

	// LogLevel is one of "debug", "info", "warn" and "error".
	LogLevel string `yaml:"log_level"`
}

// LoadConfig reads a YAML configuration file.  Unset fields get their
// default values.
func LoadConfig(filename string) (*Config, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("could not read config file %q: %w", filename, err)
	}
	cfg, err := ParseConfig(data)
	if err != nil {
		return nil, fmt.Errorf("config file %q: %w", filename, err)
	}
	return cfg, nil
}

// ParseConfig parses YAML configuration data.  Unknown keys are rejected.
func ParseConfig(data []byte) (*Config, error) {
	cfg := &Config{}
	err := yaml.UnmarshalStrict(data, cfg)
	if err != nil {
		return nil, err
	}
	cfg.Defaults()
	err = cfg.Validate()
	if err != nil {
		return nil, err
	}
	return cfg, nil
}

// Defaults fills in default values for unset fields.
func (c *Config) Defaults() {
	if c.Normalizer == "" {
		c.Normalizer = "auto"
	}
	if c.QPDFPath == "" {
		c.QPDFPath = "qpdf"
	}
	if c.Timeout == 0 {
		c.Timeout = normalize.DefaultTimeout
	}
	if c.Workers == 0 {
		c.Workers = 4
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
}

// Validate checks the configuration for invalid values.
func (c *Config) Validate() error {
	switch c.Normalizer {
	case "auto", "qpdf", "pdfcpu", "none":
		// pass
	default:
		return fmt.Errorf("invalid normalizer %q", c.Normalizer)
	}
	if c.Timeout < 0 {
		return fmt.Errorf("negative timeout %s", c.Timeout)
	}
	if c.Workers < 0 {
		return fmt.Errorf("invalid number of workers %d", c.Workers)
	}
	_, err := c.Level()
	return err
}

// Level returns the configured log level.
func (c *Config) Level() (slog.Level, error) {
	var level slog.Level
	err := level.UnmarshalText([]byte(c.LogLevel))
	if err != nil {
		return 0, fmt.Errorf("invalid log level %q", c.LogLevel)
	}
	return level, nil
}

// NewNormalizer returns the configured normalizer.  The result is nil for
// "none".
func (c *Config) NewNormalizer(logger *slog.Logger) (normalize.Normalizer, error) {
	q := &normalize.QPDF{
		Path:    c.QPDFPath,
		Timeout: c.Timeout,
		TempDir: c.TempDir,
		Logger:  logger,
	}
	p := &normalize.PDFCPU{Logger: logger}

	switch c.Normalizer {
	case "auto", "":
		return normalize.Chain{q, p}, nil
	case "qpdf":
		return q, nil
	case "pdfcpu":
		return p, nil
	case "none":
		return nil, nil
	default:
		return nil, fmt.Errorf("invalid normalizer %q", c.Normalizer)
	}
}
