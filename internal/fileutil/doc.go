// Package fileutil holds small filesystem helpers shared by the cache and
// config packages.
package fileutil
