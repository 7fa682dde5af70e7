// Package services defines shared utilities consumed by the pipeline stages
// and the external tool adapters.
//
// Key responsibilities:
//   - Context helpers that stamp run identifiers, unit identifiers, and stage
//     names for logging.
//   - Structured error markers plus the Wrap helper that separate
//     configuration mistakes from environment failures so the CLI can report
//     them before or after external tools run.
//
// Use these helpers when wiring new stage logic so operational behaviour (error
// classification, observability) stays uniform across the pipeline.
package services
