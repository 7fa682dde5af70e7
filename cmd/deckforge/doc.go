// Package main hosts the deckforge CLI entrypoint and command graph.
//
// The Cobra command tree resolves configuration once per invocation, applies
// flag overrides, and hands the result to the pipeline package. Commands that
// write to the output directory take the build lock first so two invocations
// never race on the render cache or the delivery PDF.
//
// Keep this package thin: behaviour belongs in internal/pipeline and the
// packages it drives; commands only parse flags and print summaries.
package main
