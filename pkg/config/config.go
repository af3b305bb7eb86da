package config

import (
	"github.com/ajitpratap0/shapeshifter/pkg/compression"
	"github.com/ajitpratap0/shapeshifter/pkg/errors"
	"github.com/ajitpratap0/shapeshifter/pkg/format"
	"github.com/ajitpratap0/shapeshifter/pkg/query"
	"github.com/ajitpratap0/shapeshifter/pkg/table"
)

// ConvertConfig describes one conversion job
type ConvertConfig struct {
	// Input is the file to read
	Input FileConfig `yaml:"input" json:"input"`
	// Output is the file to write
	Output OutputConfig `yaml:"output" json:"output"`

	// Columns projects the output onto these columns; the identifier
	// column is always kept
	Columns []string `yaml:"columns,omitempty" json:"columns,omitempty"`
	// IncludeAllColumns ignores Columns
	IncludeAllColumns bool `yaml:"include_all_columns" json:"include_all_columns"`
	// Transpose swaps rows and columns before writing
	Transpose bool `yaml:"transpose" json:"transpose"`
	// Index names the sample identifier column
	Index string `yaml:"index" json:"index"`

	Filter FilterConfig `yaml:"filter" json:"filter"`

	Observability ObservabilityConfig `yaml:"observability" json:"observability"`
}

// FileConfig locates a file. An empty Format is inferred from the extension.
type FileConfig struct {
	Path   string `yaml:"path" json:"path"`
	Format string `yaml:"format,omitempty" json:"format,omitempty"`
}

// OutputConfig locates the output file and how it is compressed
type OutputConfig struct {
	FileConfig `yaml:",inline" json:",inline"`

	Gzip bool `yaml:"gzip" json:"gzip"`
	// Compression names a codec ("gzip", "zstd", "lz4", "snappy", "s2")
	// whose suffix is appended to Path
	Compression      string `yaml:"compression,omitempty" json:"compression,omitempty"`
	CompressionLevel int    `yaml:"compression_level" json:"compression_level"`
}

// FilterConfig selects rows. Structured queries and the text expression
// may be combined; every one of them must hold.
type FilterConfig struct {
	Expression string                  `yaml:"expression,omitempty" json:"expression,omitempty"`
	Continuous []query.ContinuousQuery `yaml:"continuous,omitempty" json:"continuous,omitempty"`
	Discrete   []query.DiscreteQuery   `yaml:"discrete,omitempty" json:"discrete,omitempty"`
}

// ObservabilityConfig controls logging, metrics and tracing
type ObservabilityConfig struct {
	LogLevel    string `yaml:"log_level" json:"log_level"`
	MetricsFile string `yaml:"metrics_file,omitempty" json:"metrics_file,omitempty"`
	Trace       bool   `yaml:"trace" json:"trace"`
}

// NewConvertConfig returns a configuration with defaults applied
func NewConvertConfig() *ConvertConfig {
	return &ConvertConfig{
		Index: table.DefaultIndex,
		Output: OutputConfig{
			CompressionLevel: int(compression.Default),
		},
		Observability: ObservabilityConfig{
			LogLevel: "warn",
		},
	}
}

// LoadConvertConfig reads a job file over the defaults and validates it
func LoadConvertConfig(path string) (*ConvertConfig, error) {
	cfg := NewConvertConfig()
	if err := Load(path, cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the configuration for correctness
func (c *ConvertConfig) Validate() error {
	if c.Input.Path == "" {
		return errors.New(errors.ErrorTypeConfig, "input.path is required")
	}
	if c.Output.Path == "" {
		return errors.New(errors.ErrorTypeConfig, "output.path is required")
	}
	if c.Index == "" {
		return errors.New(errors.ErrorTypeConfig, "index cannot be empty")
	}
	if c.Output.CompressionLevel < 0 || c.Output.CompressionLevel > int(compression.Best) {
		return errors.Newf(errors.ErrorTypeConfig, "compression_level must be between 0 and %d", int(compression.Best))
	}

	alg, err := compression.Parse(c.Output.Compression)
	if err != nil {
		return errors.Wrap(err, errors.ErrorTypeConfig, "invalid output.compression")
	}
	if c.Output.Gzip && alg != compression.None && alg != compression.Gzip {
		return errors.New(errors.ErrorTypeConfig, "output.gzip conflicts with output.compression "+string(alg))
	}

	for _, fc := range []FileConfig{c.Input, c.Output.FileConfig} {
		var err error
		if fc.Format != "" {
			_, err = format.Parse(fc.Format)
		} else {
			_, err = format.FromPath(fc.Path)
		}
		if err != nil {
			return errors.Wrap(err, errors.ErrorTypeConfig, "invalid format for "+fc.Path)
		}
	}

	if _, err := c.Filter.Build(); err != nil {
		return errors.Wrap(err, errors.ErrorTypeConfig, "invalid filter")
	}
	return nil
}

// Build combines the configured filters into one expression, or nil when
// none is set
func (f FilterConfig) Build() (query.Expression, error) {
	structured, err := query.Build(f.Continuous, f.Discrete)
	if err != nil {
		return nil, err
	}
	text, err := query.Parse(f.Expression)
	if err != nil {
		return nil, err
	}
	return query.Combine(structured, text), nil
}

// IsSet reports whether any filter is configured
func (f FilterConfig) IsSet() bool {
	return f.Expression != "" || len(f.Continuous) > 0 || len(f.Discrete) > 0
}
