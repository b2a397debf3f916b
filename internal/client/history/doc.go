// Package history keeps the list of recent uploads.
//
// The list is bounded to MaxEntries, ordered most recent first, and written
// through a Store after every change. FileStore keeps it as a single JSON
// array replaced atomically, so a crash leaves either the old or the new
// document on disk. A document that cannot be parsed is treated as an empty
// history.
//
// Image entries carry a small PNG thumbnail, base64 encoded, produced by
// MakeThumbnail. Cache.Thumbnail memoizes thumbnails by content hash so that
// re-uploading the same image does not decode it twice.
package history
