// Package config loads, normalizes, and validates deckforge configuration data.
//
// It supplies repository defaults (including the canonical deck), expands user
// paths, resolves project-relative paths against paths.project_dir, and reads
// TOML files. The Config type centralizes every knob the render and export
// stages need; components receive it at construction and never consult global
// state.
//
// Always obtain settings through this package so downstream code receives
// absolute paths, clamped quality bounds, and configuration errors tagged with
// services.ErrConfiguration.
package config
