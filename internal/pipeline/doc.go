// Package pipeline orchestrates deck exports: the render stage (incremental
// via the render cache), the size-targeted PDF stage, cleanup of working
// files, and the build lock that keeps a single writer on the output
// directory.
//
// Callers that mutate the output directory hold the lock from Lock for the
// duration of the operation. Stages run sequentially and the first failure
// aborts the remaining work.
package pipeline
