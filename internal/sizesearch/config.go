package sizesearch

import (
	"fmt"
	"math"

	"deckforge/internal/services"
)

// DefaultMaxAttempts applies when Config.MaxAttempts is zero.
const DefaultMaxAttempts = 30

const bytesPerMB = 1024 * 1024

// Config bounds one search. Sizes are bytes.
type Config struct {
	TargetMin    int64
	TargetMax    int64
	QualityStart int
	QualityMin   int
	QualityMax   int
	QualityStep  int
	MaxAttempts  int
}

// TargetFromMB converts a size in MB (1024*1024 bytes) to bytes.
func TargetFromMB(mb float64) int64 {
	return int64(math.Round(mb * bytesPerMB))
}

// ToMB converts bytes to MB (1024*1024 bytes).
func ToMB(bytes int64) float64 {
	return float64(bytes) / bytesPerMB
}

// Validate reports the first rule the configuration breaks.
func (c Config) Validate() error {
	switch {
	case c.TargetMin < 0 || c.TargetMax <= 0:
		return invalid("target min must not be negative and target max must be positive (min=%d max=%d)", c.TargetMin, c.TargetMax)
	case c.TargetMin > c.TargetMax:
		return invalid("target min %d exceeds target max %d", c.TargetMin, c.TargetMax)
	case c.QualityMin > c.QualityMax:
		return invalid("quality min %d exceeds quality max %d", c.QualityMin, c.QualityMax)
	case c.QualityStep < 1:
		return invalid("quality step must be at least 1, got %d", c.QualityStep)
	case c.MaxAttempts < 0:
		return invalid("max attempts must not be negative (0 uses the default), got %d", c.MaxAttempts)
	}
	return nil
}

// withDefaults fills MaxAttempts and clamps QualityStart into the quality bounds.
func (c Config) withDefaults() Config {
	if c.MaxAttempts == 0 {
		c.MaxAttempts = DefaultMaxAttempts
	}
	c.QualityStart = min(max(c.QualityStart, c.QualityMin), c.QualityMax)
	return c
}

func (c Config) midpoint() float64 {
	return (float64(c.TargetMin) + float64(c.TargetMax)) / 2
}

func (c Config) inRange(size int64) bool {
	return size >= c.TargetMin && size <= c.TargetMax
}

func invalid(format string, args ...any) error {
	return services.Wrap(services.ErrConfiguration, "pdf", "size search", fmt.Sprintf(format, args...), nil)
}
