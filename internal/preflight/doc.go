// Package preflight checks the tools and paths a deckforge run depends on.
//
// The doctor command reports every check. The render and pdf stages run the
// checks for their stage first, so a missing converter fails before any slide
// is touched.
package preflight
