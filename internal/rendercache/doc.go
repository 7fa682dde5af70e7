// Package rendercache decides which slides must be re-rendered.
//
// A unit's hash covers its primary source file and every shared dependency
// file. The cache stores the hash recorded at the last successful render of
// each unit as a flat JSON object keyed by unit id. A missing or malformed
// cache file is treated as empty. Rendered outputs are never trusted on their
// own: a unit whose output file is gone always needs rendering.
package rendercache
