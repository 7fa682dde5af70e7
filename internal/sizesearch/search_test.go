package sizesearch

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"testing"

	"deckforge/internal/logging"
	"deckforge/internal/services"
)

const mib = 1024 * 1024

type recordingOracle struct {
	size  func(q int) int64
	calls []int
}

func (o *recordingOracle) EncodeAndMeasure(_ context.Context, q int) (int64, error) {
	o.calls = append(o.calls, q)
	return o.size(q), nil
}

func deckConfig() Config {
	return Config{
		TargetMin:    TargetFromMB(10),
		TargetMax:    TargetFromMB(13),
		QualityStart: 74,
		QualityMin:   50,
		QualityMax:   92,
		QualityStep:  2,
		MaxAttempts:  30,
	}
}

func run(t *testing.T, cfg Config, oracle Oracle) Result {
	t.Helper()
	search, err := New(cfg, logging.NewNop())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	result, err := search.Run(context.Background(), oracle)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	return result
}

func qualities(candidates []Candidate) []int {
	out := make([]int, 0, len(candidates))
	for _, c := range candidates {
		out = append(out, c.Quality)
	}
	return out
}

func TestLinearOracleStepsDownIntoRange(t *testing.T) {
	oracle := &recordingOracle{size: func(q int) int64 { return int64(20*mib) * int64(q) / 100 }}
	result := run(t, deckConfig(), oracle)

	if want := []int{74, 72, 70, 68, 66, 64}; !reflect.DeepEqual(qualities(result.Attempts), want) {
		t.Fatalf("attempts = %v, want %v", qualities(result.Attempts), want)
	}
	if result.Best.Quality != 64 || !result.InRange {
		t.Fatalf("best = %+v in_range=%v, want quality 64 in range", result.Best, result.InRange)
	}
	if result.Stop != StopInRange {
		t.Fatalf("stop = %s", result.Stop)
	}
	if result.Reencoded || len(oracle.calls) != 6 {
		t.Fatalf("unexpected re-encode: reencoded=%v calls=%v", result.Reencoded, oracle.calls)
	}
	if result.Advisory() != nil {
		t.Fatalf("Advisory = %v, want nil", result.Advisory())
	}
}

func TestTooSmallStepsUpToCeiling(t *testing.T) {
	oracle := &recordingOracle{size: func(q int) int64 { return int64(q) * 100_000 }}
	result := run(t, deckConfig(), oracle)

	want := []int{74, 76, 78, 80, 82, 84, 86, 88, 90, 92}
	if !reflect.DeepEqual(qualities(result.Attempts), want) {
		t.Fatalf("attempts = %v, want %v", qualities(result.Attempts), want)
	}
	if result.Stop != StopBoundary {
		t.Fatalf("stop = %s, want boundary", result.Stop)
	}
	if result.Best.Quality != 92 || result.InRange || result.Reencoded {
		t.Fatalf("best = %+v in_range=%v reencoded=%v", result.Best, result.InRange, result.Reencoded)
	}
	if !errors.Is(result.Advisory(), ErrTargetNotMet) {
		t.Fatalf("Advisory = %v, want ErrTargetNotMet", result.Advisory())
	}
}

func TestOutOfRangeReportsClosestAndReencodes(t *testing.T) {
	sizes := map[int]int64{74: 16 * mib, 72: 15 * mib}
	oracle := &recordingOracle{size: func(q int) int64 {
		if s, ok := sizes[q]; ok {
			return s
		}
		return 20 * mib
	}}
	result := run(t, deckConfig(), oracle)

	if result.Stop != StopBoundary {
		t.Fatalf("stop = %s, want boundary", result.Stop)
	}
	if got := qualities(result.Attempts); got[len(got)-1] != 50 {
		t.Fatalf("expected search to reach the quality floor, got %v", got)
	}
	if result.Best.Quality != 72 || result.Best.Bytes != 15*mib {
		t.Fatalf("best = %+v, want quality 72 at 15MiB", result.Best)
	}
	if !result.Reencoded || oracle.calls[len(oracle.calls)-1] != 72 {
		t.Fatalf("expected final re-encode at 72, calls=%v", oracle.calls)
	}
	if result.InRange {
		t.Fatal("expected out of range")
	}
}

func TestOscillationStopsOnRepeatedQuality(t *testing.T) {
	oracle := &recordingOracle{size: func(q int) int64 {
		if q >= 74 {
			return 14 * mib
		}
		return 9 * mib
	}}
	result := run(t, deckConfig(), oracle)

	if result.Stop != StopRepeatedQuality {
		t.Fatalf("stop = %s, want repeated_quality", result.Stop)
	}
	if want := []int{74, 72}; !reflect.DeepEqual(qualities(result.Attempts), want) {
		t.Fatalf("attempts = %v, want %v", qualities(result.Attempts), want)
	}
	// Both candidates are 2.5MiB from the midpoint; ties keep the first.
	if result.Best.Quality != 74 {
		t.Fatalf("best = %+v, want quality 74", result.Best)
	}
	if want := []int{74, 72, 74}; !reflect.DeepEqual(oracle.calls, want) {
		t.Fatalf("oracle calls = %v, want %v", oracle.calls, want)
	}
}

func TestAttemptsExhausted(t *testing.T) {
	cfg := deckConfig()
	cfg.MaxAttempts = 3
	oracle := &recordingOracle{size: func(int) int64 { return 40 * mib }}
	result := run(t, cfg, oracle)

	if result.Stop != StopAttemptsExhausted {
		t.Fatalf("stop = %s", result.Stop)
	}
	if len(result.Attempts) != 3 {
		t.Fatalf("attempts = %v", qualities(result.Attempts))
	}
	if result.Best.Quality != 74 || !result.Reencoded {
		t.Fatalf("best = %+v reencoded=%v", result.Best, result.Reencoded)
	}
}

func TestStartIsClampedIntoBounds(t *testing.T) {
	cfg := deckConfig()
	cfg.QualityStart = 99
	oracle := &recordingOracle{size: func(int) int64 { return 11 * mib }}
	result := run(t, cfg, oracle)
	if result.Best.Quality != 92 || len(oracle.calls) != 1 {
		t.Fatalf("best = %+v calls=%v, want single attempt at 92", result.Best, oracle.calls)
	}
}

func TestStepDoesNotOvershootBounds(t *testing.T) {
	cfg := deckConfig()
	cfg.QualityStart = 55
	cfg.QualityStep = 4
	oracle := &recordingOracle{size: func(int) int64 { return 40 * mib }}
	result := run(t, cfg, oracle)
	if want := []int{55, 51, 50}; !reflect.DeepEqual(qualities(result.Attempts), want) {
		t.Fatalf("attempts = %v, want %v", qualities(result.Attempts), want)
	}
}

func TestSearchTerminatesWithoutDuplicateAttempts(t *testing.T) {
	oracles := map[string]func(q int) int64{
		"constant-big":   func(int) int64 { return 50 * mib },
		"constant-small": func(int) int64 { return 1 },
		"sawtooth": func(q int) int64 {
			if q%4 == 0 {
				return 14 * mib
			}
			return 9 * mib
		},
		"inverted": func(q int) int64 { return int64(100-q) * mib / 4 },
	}
	for name, size := range oracles {
		for _, attempts := range []int{1, 5, 30} {
			cfg := deckConfig()
			cfg.MaxAttempts = attempts
			result := run(t, cfg, &recordingOracle{size: size})
			if len(result.Attempts) > attempts {
				t.Fatalf("%s/%d: %d attempts exceed limit", name, attempts, len(result.Attempts))
			}
			seen := map[int]bool{}
			for _, c := range result.Attempts {
				if seen[c.Quality] {
					t.Fatalf("%s/%d: duplicate quality %d in %v", name, attempts, c.Quality, qualities(result.Attempts))
				}
				seen[c.Quality] = true
			}
		}
	}
}

func TestMonotoneOracleAlwaysFindsRange(t *testing.T) {
	// Every slope here has some even quality in [50,92] inside the window.
	for slope := int64(15); slope <= 25; slope++ {
		size := func(q int) int64 { return slope * mib * int64(q) / 100 }
		result := run(t, deckConfig(), &recordingOracle{size: size})
		if !result.InRange {
			t.Fatalf("slope %d: expected in-range result, got %+v (%v)", slope, result.Best, qualities(result.Attempts))
		}
	}
}

func TestOracleErrorPropagates(t *testing.T) {
	boom := errors.New("sips exited 1")
	calls := 0
	oracle := OracleFunc(func(_ context.Context, q int) (int64, error) {
		calls++
		if q == 72 {
			return 0, boom
		}
		return 20 * mib, nil
	})
	search, err := New(deckConfig(), logging.NewNop())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	_, err = search.Run(context.Background(), oracle)
	if !errors.Is(err, boom) || !errors.Is(err, services.ErrExternalTool) {
		t.Fatalf("Run error = %v, want wrapped oracle error", err)
	}
	if calls != 2 {
		t.Fatalf("expected search to stop at the failing call, got %d calls", calls)
	}
}

func TestInvalidConfigRejectedBeforeOracle(t *testing.T) {
	cases := map[string]func(*Config){
		"target inverted":   func(c *Config) { c.TargetMin, c.TargetMax = c.TargetMax, c.TargetMin },
		"quality inverted":  func(c *Config) { c.QualityMin, c.QualityMax = 90, 60 },
		"zero step":         func(c *Config) { c.QualityStep = 0 },
		"negative attempts": func(c *Config) { c.MaxAttempts = -1 },
		"zero target":       func(c *Config) { c.TargetMin, c.TargetMax = 0, 0 },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			cfg := deckConfig()
			mutate(&cfg)
			if _, err := New(cfg, logging.NewNop()); !errors.Is(err, services.ErrConfiguration) {
				t.Fatalf("New error = %v, want configuration error", err)
			}
		})
	}
}

func TestZeroAttemptsUsesDefault(t *testing.T) {
	cfg := deckConfig()
	cfg.MaxAttempts = 0
	search, err := New(cfg, logging.NewNop())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if search.Config().MaxAttempts != DefaultMaxAttempts {
		t.Fatalf("MaxAttempts = %d", search.Config().MaxAttempts)
	}
}

func TestNegativeAttemptsMessageMentionsDefault(t *testing.T) {
	cfg := deckConfig()
	cfg.MaxAttempts = -3
	_, err := New(cfg, logging.NewNop())
	if err == nil {
		t.Fatal("expected error for negative attempts")
	}
	msg := err.Error()
	if strings.Contains(msg, "at least 1") || !strings.Contains(msg, "must not be negative") || !strings.Contains(msg, "0 uses the default") {
		t.Fatalf("unexpected message: %q", msg)
	}
}

func TestZeroTargetMinAccepted(t *testing.T) {
	cfg := deckConfig()
	cfg.TargetMin = 0
	if _, err := New(cfg, logging.NewNop()); err != nil {
		t.Fatalf("New with zero target min: %v", err)
	}
}

func TestRunTwiceFails(t *testing.T) {
	search, err := New(deckConfig(), logging.NewNop())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	oracle := OracleFunc(func(context.Context, int) (int64, error) { return 11 * mib, nil })
	if _, err := search.Run(context.Background(), oracle); err != nil {
		t.Fatalf("first Run: %v", err)
	}
	if _, err := search.Run(context.Background(), oracle); !errors.Is(err, ErrAlreadyRun) {
		t.Fatalf("second Run error = %v, want ErrAlreadyRun", err)
	}
}

func TestCancelledContextStopsSearch(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	search, err := New(deckConfig(), logging.NewNop())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	oracle := &recordingOracle{size: func(int) int64 { return 11 * mib }}
	if _, err := search.Run(ctx, oracle); !errors.Is(err, context.Canceled) {
		t.Fatalf("Run error = %v, want context.Canceled", err)
	}
	if len(oracle.calls) != 0 {
		t.Fatalf("oracle called after cancellation: %v", oracle.calls)
	}
}

func TestTargetFromMB(t *testing.T) {
	if got := TargetFromMB(13); got != 13*mib {
		t.Fatalf("TargetFromMB(13) = %d", got)
	}
	if got := ToMB(TargetFromMB(10.5)); got != 10.5 {
		t.Fatalf("round trip = %v", got)
	}
}
