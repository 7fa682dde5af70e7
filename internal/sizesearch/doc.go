// Package sizesearch finds the encoder quality whose output size lands inside
// a byte window.
//
// The search walks the quality axis in fixed steps, asking an Oracle to encode
// and measure at each quality. It stops on the first in-range size, on a
// quality it already tried, on hitting a quality bound, or after MaxAttempts.
// The reported Best is the candidate whose size is closest to the window
// midpoint, and the oracle is re-run at Best when it was not the last quality
// encoded, so the artifact on disk always matches the reported size.
//
// Missing the window is not an error: Result.InRange is false and
// Result.Advisory returns ErrTargetNotMet.
package sizesearch
