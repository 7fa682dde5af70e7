package sizesearch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sync"

	"deckforge/internal/logging"
	"deckforge/internal/services"
)

// ErrTargetNotMet is the advisory outcome of a search whose best candidate
// lies outside the target window.
var ErrTargetNotMet = errors.New("size target not met")

// ErrAlreadyRun is returned when Run is called on a converged search.
var ErrAlreadyRun = errors.New("size search already ran")

// Oracle encodes the artifact at quality and returns its size in bytes.
type Oracle interface {
	EncodeAndMeasure(ctx context.Context, quality int) (int64, error)
}

// OracleFunc adapts a function to Oracle.
type OracleFunc func(ctx context.Context, quality int) (int64, error)

func (f OracleFunc) EncodeAndMeasure(ctx context.Context, quality int) (int64, error) {
	return f(ctx, quality)
}

// Candidate is one measured quality.
type Candidate struct {
	Quality int
	Bytes   int64
}

// StopReason records why the search loop ended.
type StopReason string

const (
	StopInRange           StopReason = "in_range"
	StopRepeatedQuality   StopReason = "repeated_quality"
	StopBoundary          StopReason = "boundary"
	StopAttemptsExhausted StopReason = "attempts_exhausted"
)

// Result is the converged outcome of a search.
type Result struct {
	Best     Candidate
	Attempts []Candidate
	InRange  bool
	Stop     StopReason
	// Reencoded is set when the oracle was re-run at Best after the loop.
	Reencoded bool
}

// Advisory returns ErrTargetNotMet when Best is outside the window.
func (r Result) Advisory() error {
	if r.InRange {
		return nil
	}
	return ErrTargetNotMet
}

type state int

const (
	stateSearching state = iota
	stateConverged
)

// Search runs a single size-targeting search. It is not reusable.
type Search struct {
	cfg    Config
	logger *slog.Logger

	mu    sync.Mutex
	state state
}

// New validates cfg and returns a search ready to run.
func New(cfg Config, logger *slog.Logger) (*Search, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Search{
		cfg:    cfg.withDefaults(),
		logger: logging.NewComponentLogger(logger, "sizesearch"),
	}, nil
}

// Config returns the effective configuration after defaults and clamping.
func (s *Search) Config() Config {
	return s.cfg
}

// Run drives oracle until the search converges. Oracle errors abort the
// search and are returned as environment errors.
func (s *Search) Run(ctx context.Context, oracle Oracle) (Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == stateConverged {
		return Result{}, ErrAlreadyRun
	}
	s.state = stateConverged

	cfg := s.cfg
	logger := logging.WithContext(ctx, s.logger)
	mid := cfg.midpoint()
	distance := func(size int64) float64 { return math.Abs(float64(size) - mid) }

	var (
		result      Result
		best        Candidate
		haveBest    bool
		lastEncoded = -1
		tried       = make(map[int]struct{}, cfg.MaxAttempts)
		quality     = cfg.QualityStart
	)
	result.Stop = StopAttemptsExhausted

	for attempt := 1; attempt <= cfg.MaxAttempts; attempt++ {
		if _, seen := tried[quality]; seen {
			result.Stop = StopRepeatedQuality
			break
		}
		tried[quality] = struct{}{}

		size, err := s.measure(ctx, oracle, quality)
		if err != nil {
			return Result{}, err
		}
		lastEncoded = quality
		candidate := Candidate{Quality: quality, Bytes: size}
		result.Attempts = append(result.Attempts, candidate)
		if !haveBest || distance(size) < distance(best.Bytes) {
			best = candidate
			haveBest = true
		}

		logger.Info("size search attempt",
			logging.Int("attempt", attempt),
			logging.Int("quality", quality),
			logging.Int64("size_bytes", size),
			logging.Float64("size_mb", roundMB(size)))

		switch {
		case cfg.inRange(size):
			best = candidate
			result.Stop = StopInRange
		case size > cfg.TargetMax && quality > cfg.QualityMin:
			quality = max(cfg.QualityMin, quality-cfg.QualityStep)
			continue
		case size < cfg.TargetMin && quality < cfg.QualityMax:
			quality = min(cfg.QualityMax, quality+cfg.QualityStep)
			continue
		default:
			result.Stop = StopBoundary
		}
		break
	}

	if best.Quality != lastEncoded {
		logger.Debug("re-encoding best candidate",
			logging.Int("quality", best.Quality),
			logging.Int("last_quality", lastEncoded))
		size, err := s.measure(ctx, oracle, best.Quality)
		if err != nil {
			return Result{}, err
		}
		best.Bytes = size
		result.Reencoded = true
	}

	result.Best = best
	result.InRange = cfg.inRange(best.Bytes)
	logger.Info("size search converged",
		logging.Int("quality", best.Quality),
		logging.Int64("size_bytes", best.Bytes),
		logging.Bool("in_range", result.InRange),
		logging.String("stop_reason", string(result.Stop)),
		logging.Int("attempts", len(result.Attempts)))
	return result, nil
}

func (s *Search) measure(ctx context.Context, oracle Oracle, quality int) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	size, err := oracle.EncodeAndMeasure(ctx, quality)
	if err != nil {
		return 0, services.Wrap(services.ErrExternalTool, "pdf", "encode", fmt.Sprintf("quality %d", quality), err)
	}
	return size, nil
}

func roundMB(size int64) float64 {
	return math.Round(ToMB(size)*100) / 100
}
