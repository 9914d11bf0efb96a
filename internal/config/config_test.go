package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "content", cfg.Paths.ContentDir)
	assert.Equal(t, "layout*.csv", cfg.Paths.LayoutPattern)
	assert.Equal(t, []string{"classic", "classic_accents", "stylish", "hyper_stylish"}, cfg.Styles)
	assert.Equal(t, 5, cfg.Resolver.MaxIterations)
	assert.Equal(t, 3, cfg.List.DefaultItems)
	assert.Equal(t, 1, cfg.Workers)
	assert.True(t, cfg.WrapDocument)

	opts := cfg.Options()
	assert.Equal(t, cfg.Paths.OutputDir, opts.OutputDir)
	assert.Equal(t, 5, opts.MaxIterations)
}

func TestLoadFileAndEnv(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "brandsite.yaml")
	yaml := `paths:
  content_dir: projects
  output_dir: site
styles: [classic]
resolver:
  max_iterations: 8
workers: 2
`
	require.NoError(t, os.WriteFile(file, []byte(yaml), 0o644))
	t.Setenv("BRANDSITE_PATHS_OUTPUT_DIR", "public")

	cfg, err := Load(file)
	require.NoError(t, err)
	assert.Equal(t, "projects", cfg.Paths.ContentDir)
	assert.Equal(t, "public", cfg.Paths.OutputDir, "environment wins over file")
	assert.Equal(t, []string{"classic"}, cfg.Styles)
	assert.Equal(t, 8, cfg.Resolver.MaxIterations)
	assert.Equal(t, 2, cfg.Workers)
	assert.Equal(t, "components", cfg.Paths.ComponentsDir)
}

func TestLoadExplicitFileMissing(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
}

func TestValidate(t *testing.T) {
	t.Chdir(t.TempDir())
	base, err := Load("")
	require.NoError(t, err)

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"iterations too low", func(c *Config) { c.Resolver.MaxIterations = 0 }},
		{"iterations too high", func(c *Config) { c.Resolver.MaxIterations = 51 }},
		{"no styles", func(c *Config) { c.Styles = nil }},
		{"blank style", func(c *Config) { c.Styles = []string{"classic", ""} }},
		{"no workers", func(c *Config) { c.Workers = 0 }},
		{"negative workers", func(c *Config) { c.Workers = -1 }},
		{"no synth instances", func(c *Config) { c.Synth.MaxInstances = 0 }},
		{"bad level", func(c *Config) { c.Log.Level = "loud" }},
		{"no output dir", func(c *Config) { c.Paths.OutputDir = "" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := *base
			c.Styles = append([]string(nil), base.Styles...)
			tt.mutate(&c)
			assert.Error(t, c.Validate())
		})
	}
	assert.NoError(t, base.Validate())
}
