package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Load builds a Config by layering defaults, an optional file, and env vars.
// Order of precedence (low -> high):
//  1. Defaults()
//  2. file (YAML) if TRAILER_CONFIG is set
//  3. env (prefix TRAILER_), e.g. TRAILER_ANALYSIS_MODE=mock
func Load() (*Config, error) {
	k := koanf.New(".")

	if path := os.Getenv("TRAILER_CONFIG"); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("load config file %s: %w", path, err)
		}
	}

	// Map env keys like TRAILER_ANALYSIS_MODE -> analysis_mode, preserving
	// underscores to match the koanf tags on Config.
	envProvider := env.Provider("TRAILER_", ".", func(s string) string {
		s = strings.ToLower(s)
		return strings.TrimPrefix(s, "trailer_")
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("load env config: %w", err)
	}

	cfg := *Defaults()
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	switch c.AnalysisMode {
	case "aws", "mock":
	default:
		return fmt.Errorf("analysis_mode must be aws or mock, got %q", c.AnalysisMode)
	}
	if c.AnalysisConcurrency < 1 {
		return fmt.Errorf("analysis_concurrency must be positive, got %d", c.AnalysisConcurrency)
	}
	if c.RenderConcurrency < 1 {
		return fmt.Errorf("render_concurrency must be positive, got %d", c.RenderConcurrency)
	}
	if c.MinScenes < 1 {
		return fmt.Errorf("min_scenes must be positive, got %d", c.MinScenes)
	}
	if c.PipelineDeadlineMS <= c.AnalysisCallTimeoutMS {
		return fmt.Errorf("pipeline_deadline_ms (%d) must exceed analysis_call_timeout_ms (%d)",
			c.PipelineDeadlineMS, c.AnalysisCallTimeoutMS)
	}
	return nil
}
