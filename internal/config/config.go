package config

import (
	"fmt"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v2"

	"instragg/pkg/contracts/domain"
)

// Config represents the complete application configuration
type Config struct {
	Aggregation AggregationConfig `yaml:"aggregation" envconfig:"AGGREGATION"`
	Logging     LoggingConfig     `yaml:"logging" envconfig:"LOGGING"`
	Metrics     MetricsConfig     `yaml:"metrics" envconfig:"METRICS"`
	Output      OutputConfig      `yaml:"output" envconfig:"OUTPUT"`
}

// AggregationConfig configures the streaming aggregation engine
type AggregationConfig struct {
	// WindowSize is the bounded-window capacity W used by the default
	// newest-N retention policy.
	WindowSize int `yaml:"window_size" envconfig:"WINDOW_SIZE" validate:"min=1"`

	// CurrentDate is the inclusive upper boundary for observation dates,
	// in dd-MMM-yyyy form. Observations dated after it are rejected.
	CurrentDate string `yaml:"current_date" envconfig:"CURRENT_DATE" validate:"required"`

	// CapacityHint pre-sizes the instrument registry. It is a performance
	// hint, not a limit; the registry grows past it freely.
	CapacityHint int `yaml:"capacity_hint" envconfig:"CAPACITY_HINT" validate:"min=0"`

	// Instrument bindings for the non-default strategies. Instruments
	// bound here are retained with full history; everything else falls
	// back to the bounded-window sum.
	MeanInstrument      string `yaml:"mean_instrument" envconfig:"MEAN_INSTRUMENT"`
	MonthMeanInstrument string `yaml:"month_mean_instrument" envconfig:"MONTH_MEAN_INSTRUMENT"`
	MonthMeanYear       int    `yaml:"month_mean_year" envconfig:"MONTH_MEAN_YEAR" validate:"min=1900"`
	MonthMeanMonth      int    `yaml:"month_mean_month" envconfig:"MONTH_MEAN_MONTH" validate:"min=1,max=12"`
	VarianceInstrument  string `yaml:"variance_instrument" envconfig:"VARIANCE_INSTRUMENT"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level    string `yaml:"level" envconfig:"LEVEL" validate:"oneof=debug info warn error"`
	Format   string `yaml:"format" envconfig:"FORMAT" validate:"oneof=json text"`
	Output   string `yaml:"output" envconfig:"OUTPUT" validate:"oneof=stdout stderr file both"`
	FilePath string `yaml:"file_path" envconfig:"FILE_PATH"`
}

// MetricsConfig configures the optional diagnostics HTTP listener.
// An empty address disables the listener entirely.
type MetricsConfig struct {
	Addr string `yaml:"addr" envconfig:"ADDR"`
}

// OutputConfig configures result serialization
type OutputConfig struct {
	Format string `yaml:"format" envconfig:"FORMAT" validate:"oneof=csv json"`
	// BOM prefixes CSV output with a UTF-8 BOM so Excel opens it cleanly.
	BOM bool `yaml:"bom" envconfig:"BOM"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Aggregation: AggregationConfig{
			WindowSize:          10,
			CurrentDate:         "19-Dec-2014",
			CapacityHint:        100,
			MeanInstrument:      "INSTRUMENT1",
			MonthMeanInstrument: "INSTRUMENT2",
			MonthMeanYear:       2014,
			MonthMeanMonth:      11,
			VarianceInstrument:  "INSTRUMENT3",
		},
		Logging: LoggingConfig{
			Level:    "info",
			Format:   "json",
			Output:   "stderr",
			FilePath: "logs/aggregator.log",
		},
		Output: OutputConfig{
			Format: "csv",
		},
	}
}

// Load builds the configuration from defaults, an optional YAML file, and
// environment variables (prefix AGG), in that order of precedence: the
// file overrides defaults, the environment overrides both.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		if err := loadFromFile(path, &cfg); err != nil {
			return nil, fmt.Errorf("failed to load config from file: %w", err)
		}
	}

	if err := envconfig.Process("AGG", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config from env: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

// loadFromFile loads configuration from YAML file
func loadFromFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, cfg)
}

// validate checks struct tags plus the cross-field constraints the tags
// cannot express.
func (c *Config) validate() error {
	if err := validator.New().Struct(c); err != nil {
		return err
	}

	if _, err := c.Aggregation.Boundary(); err != nil {
		return fmt.Errorf("invalid current_date %q: %w", c.Aggregation.CurrentDate, err)
	}

	if c.Logging.Output == "file" || c.Logging.Output == "both" {
		if c.Logging.FilePath == "" {
			return fmt.Errorf("logging.file_path required for output mode %q", c.Logging.Output)
		}
	}

	return nil
}

// Boundary returns the parsed current-date boundary.
func (a AggregationConfig) Boundary() (time.Time, error) {
	return time.Parse(domain.DateLayout, a.CurrentDate)
}

// FilterMonth returns the year and month the month-filtered mean applies to.
func (a AggregationConfig) FilterMonth() (int, time.Month) {
	return a.MonthMeanYear, time.Month(a.MonthMeanMonth)
}
