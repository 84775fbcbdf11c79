package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/opensource-finance/kestrel/internal/domain"
)

// fileConfig is the YAML overlay format. Every section is optional; entries
// present in the file replace or extend the built-in tables.
type fileConfig struct {
	Features []domain.FeatureDefinition                `yaml:"features"`
	Markets  map[domain.MarketCode]domain.MarketConfig `yaml:"markets"`

	DefaultMarket        domain.MarketCode `yaml:"default_market"`
	PassportValidityDays int               `yaml:"passport_validity_days"`
}

// Load builds the engine configuration: built-in defaults overlaid with the
// optional YAML file at path. Any validation failure is returned as an error
// and must abort process start; the engine never runs on partial tables.
func Load(path string) (*domain.EngineConfig, error) {
	cfg := DefaultEngineConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read engine config %s: %w", path, err)
		}

		var overlay fileConfig
		if err := yaml.Unmarshal(data, &overlay); err != nil {
			return nil, fmt.Errorf("failed to parse engine config %s: %w", path, err)
		}

		applyOverlay(cfg, &overlay)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("engine config invalid: %w", err)
	}

	return cfg, nil
}

// applyOverlay merges the file overlay into the defaults. Features are
// matched by question id; markets are replaced whole by code.
func applyOverlay(cfg *domain.EngineConfig, overlay *fileConfig) {
	for _, f := range overlay.Features {
		replaced := false
		for i, existing := range cfg.Features {
			if existing.QuestionID == f.QuestionID {
				cfg.Features[i] = f
				replaced = true
				break
			}
		}
		if !replaced {
			cfg.Features = append(cfg.Features, f)
		}
	}

	for code, m := range overlay.Markets {
		cfg.Markets[code] = m
	}

	if overlay.DefaultMarket != "" {
		cfg.DefaultMarket = overlay.DefaultMarket
	}
	if overlay.PassportValidityDays > 0 {
		cfg.PassportValidity = time.Duration(overlay.PassportValidityDays) * 24 * time.Hour
	}
}
