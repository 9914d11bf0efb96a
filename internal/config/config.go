// Package config loads brandsite configuration.
//
// Configuration is loaded from:
// 1. brandsite.yaml (optional, in . or ./config, or the file given by --config)
// 2. Environment variables with the BRANDSITE_ prefix (paths.output_dir → BRANDSITE_PATHS_OUTPUT_DIR)
// 3. Default values
package config

import (
	"errors"
	"fmt"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/spf13/viper"

	"github.com/nikitaxru/brandsite"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "BRANDSITE"

// Config is the root configuration structure.
type Config struct {
	Paths        PathsConfig    `mapstructure:"paths"`
	Styles       []string       `mapstructure:"styles"`
	Resolver     ResolverConfig `mapstructure:"resolver"`
	List         ListConfig     `mapstructure:"list"`
	Synth        SynthConfig    `mapstructure:"synth"`
	Workers      int            `mapstructure:"workers"`
	Log          LogConfig      `mapstructure:"log"`
	WrapDocument bool           `mapstructure:"wrap_document"`
}

// PathsConfig locates inputs and outputs.
type PathsConfig struct {
	ContentDir     string `mapstructure:"content_dir"`
	ComponentsDir  string `mapstructure:"components_dir"`
	OutputDir      string `mapstructure:"output_dir"`
	LayoutPattern  string `mapstructure:"layout_pattern"`
	ContentPattern string `mapstructure:"content_pattern"`
}

type ResolverConfig struct {
	MaxIterations int `mapstructure:"max_iterations"`
}

type ListConfig struct {
	DefaultItems int `mapstructure:"default_items"`
}

type SynthConfig struct {
	MaxInstances int `mapstructure:"max_instances"`
}

// LogConfig contains logging settings.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"` // json or console
	// File is the run log; relative paths are placed in paths.output_dir.
	File string `mapstructure:"file"`
}

// Load reads configuration from file (explicit path or search), environment
// and defaults, then validates it.
func Load(file string) (*Config, error) {
	v := viper.New()
	if file != "" {
		v.SetConfigFile(file)
	} else {
		v.SetConfigName("brandsite")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if file != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
		// config file is optional
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	d := brandsite.DefaultOptions()
	v.SetDefault("paths.content_dir", d.ContentDir)
	v.SetDefault("paths.components_dir", d.ComponentsDir)
	v.SetDefault("paths.output_dir", d.OutputDir)
	v.SetDefault("paths.layout_pattern", d.LayoutPattern)
	v.SetDefault("paths.content_pattern", d.ContentPattern)
	v.SetDefault("styles", d.Styles)
	v.SetDefault("resolver.max_iterations", d.MaxIterations)
	v.SetDefault("list.default_items", d.ListItems)
	v.SetDefault("synth.max_instances", d.SynthInstances)
	v.SetDefault("workers", d.Workers)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")
	v.SetDefault("log.file", "brandsite.log")
	v.SetDefault("wrap_document", d.WrapDocument)
}

// Validate checks ranges and required values.
func (c *Config) Validate() error {
	return validation.Errors{
		"paths": validation.ValidateStruct(&c.Paths,
			validation.Field(&c.Paths.ContentDir, validation.Required),
			validation.Field(&c.Paths.ComponentsDir, validation.Required),
			validation.Field(&c.Paths.OutputDir, validation.Required),
			validation.Field(&c.Paths.LayoutPattern, validation.Required),
			validation.Field(&c.Paths.ContentPattern, validation.Required),
		),
		"styles":                  validation.Validate(c.Styles, validation.Required, validation.Each(validation.Required)),
		"resolver.max_iterations": validation.Validate(c.Resolver.MaxIterations, validation.Required, validation.Min(1), validation.Max(50)),
		"list.default_items":      validation.Validate(c.List.DefaultItems, validation.Min(0)),
		"synth.max_instances":     validation.Validate(c.Synth.MaxInstances, validation.Required, validation.Min(1)),
		"workers":                 validation.Validate(c.Workers, validation.Required, validation.Min(1)),
		"log.level":               validation.Validate(c.Log.Level, validation.In("debug", "info", "warn", "error")),
		"log.format":              validation.Validate(c.Log.Format, validation.In("json", "console")),
	}.Filter()
}

// Options converts the configuration into pipeline options.
func (c *Config) Options() brandsite.Options {
	return brandsite.Options{
		ContentDir:     c.Paths.ContentDir,
		ComponentsDir:  c.Paths.ComponentsDir,
		OutputDir:      c.Paths.OutputDir,
		LayoutPattern:  c.Paths.LayoutPattern,
		ContentPattern: c.Paths.ContentPattern,
		Styles:         append([]string(nil), c.Styles...),
		MaxIterations:  c.Resolver.MaxIterations,
		ListItems:      c.List.DefaultItems,
		SynthInstances: c.Synth.MaxInstances,
		Workers:        c.Workers,
		WrapDocument:   c.WrapDocument,
	}
}
