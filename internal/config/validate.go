package config

import (
	"fmt"
	"strings"

	"deckforge/internal/services"
)

// Validate ensures the configuration is usable. Every returned error carries
// services.ErrConfiguration.
func (c *Config) Validate() error {
	if err := c.validateRender(); err != nil {
		return err
	}
	if err := c.validateUnits(); err != nil {
		return err
	}
	if err := c.validatePDF(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateRender() error {
	if c.Render.Scale < 1 {
		return invalid("render.scale must be >= 1")
	}
	if !strings.Contains(c.Render.OutputPattern, unitIDPlaceholder) {
		return invalid("render.output_pattern must contain %s", unitIDPlaceholder)
	}
	if strings.ContainsAny(strings.ReplaceAll(c.Render.OutputPattern, unitIDPlaceholder, ""), `/\`) {
		return invalid("render.output_pattern must be a file name, not a path")
	}
	return nil
}

func (c *Config) validateUnits() error {
	if len(c.Units) == 0 {
		return invalid("units must include at least one entry")
	}
	seen := make(map[string]struct{}, len(c.Units))
	for i, unit := range c.Units {
		if unit.ID == "" {
			return invalid("units[%d].id must be set", i)
		}
		if strings.ContainsAny(unit.ID, `/\`) {
			return invalid("units[%d].id %q must not contain path separators", i, unit.ID)
		}
		if unit.Source == "" {
			return invalid("units[%d].source must be set for %q", i, unit.ID)
		}
		if _, dup := seen[unit.ID]; dup {
			return invalid("units[%d].id %q is duplicated", i, unit.ID)
		}
		seen[unit.ID] = struct{}{}
	}
	return nil
}

func (c *Config) validatePDF() error {
	pdf := c.PDF
	if pdf.TargetMBMin < 0 {
		return invalid("pdf.target_mb_min must not be negative")
	}
	if pdf.TargetMBMax <= 0 {
		return invalid("pdf.target_mb_max must be positive")
	}
	if pdf.TargetMBMin > pdf.TargetMBMax {
		return invalid("pdf.target_mb_min must be <= pdf.target_mb_max")
	}
	if pdf.JPEGQualityMin > pdf.JPEGQualityMax {
		return invalid("pdf.jpeg_quality_min must be <= pdf.jpeg_quality_max")
	}
	if pdf.QualityStep < 1 {
		return invalid("pdf.quality_step must be >= 1")
	}
	if pdf.MaxAttempts < 1 {
		return invalid("pdf.max_attempts must be >= 1")
	}
	if pdf.MaxDimension != 0 && pdf.MaxDimension < MinMaxDimension {
		return invalid("pdf.max_dimension must be >= %d when provided", MinMaxDimension)
	}
	return nil
}

func invalid(format string, args ...any) error {
	return services.Wrap(services.ErrConfiguration, "config", "", fmt.Sprintf(format, args...), nil)
}
