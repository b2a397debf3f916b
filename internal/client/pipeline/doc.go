// Package pipeline wires capture, upload, history and notifications together.
//
// A Pipeline owns a configuration snapshot and the remote publisher derived
// from it. Every upload reads both once, at submission time, so a settings
// update only affects uploads that start after it. Without a token and a
// target repository the pipeline is "not configured" and uploads fail fast
// with common.ErrNotConfigured, before the clipboard is even read.
//
// Uploads complete on their own goroutines. On success the completion
// records the upload in the history, with a thumbnail for images, and then
// notifies the sink. On failure only the sink is notified. The channel
// returned to the caller is resolved after these side effects, and Wait
// blocks until every completion has run.
package pipeline
