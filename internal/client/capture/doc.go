// Package capture classifies clipboard and file content into uploadable items.
//
// A Capture is one of Image, Files or Text. A clipboard may expose several at
// once; Snapshot.Select applies the fixed priority image > file references >
// text. Classify then derives the remote filename and the bytes to upload:
//
//	screenshot_<YYYYMMDD_HHMMSS>.png   clipboard bitmap, re-encoded as PNG
//	<YYYYMMDD_HHMMSS>_<basename>       file reference, raw bytes
//	text_<YYYYMMDD_HHMMSS>.txt         plain text, UTF-8
//
// Text that names an existing regular file is treated as a file reference.
// A reference that does not resolve to a readable file fails with
// common.ErrNotFound.
package capture
