// Package logging assembles the slog loggers used by deckforge.
//
// It owns the console and JSON handlers, level and output plumbing, and the
// context helpers that tag records with run, unit, and stage identifiers.
// NewNop provides a silent logger for tests and optional wiring.
package logging
