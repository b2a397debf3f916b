// Package common defines shared constants and errors used across the upload
// pipeline. Callers should use errors.Is for the sentinel values and
// errors.As for RemoteRejectedError and TransportError.
package common

import (
	"errors"
	"fmt"
)

var (
	// ErrNotConfigured is returned when no usable credentials or target
	// repository are available.
	ErrNotConfigured = errors.New("uploader not configured")

	// ErrNotFound is returned when a local source file is missing or unreadable.
	ErrNotFound = errors.New("not found")

	// ErrNothingToUpload is returned when a capture holds no image, file or text.
	ErrNothingToUpload = errors.New("no image, file or text to upload")

	// ErrPersistence marks history read/write failures.
	ErrPersistence = errors.New("history persistence error")

	// ErrThumbnail marks thumbnail generation failures.
	ErrThumbnail = errors.New("thumbnail error")

	// ErrClosed is returned for uploads requested after shutdown began.
	ErrClosed = errors.New("uploader closed")
)

// RemoteRejectedError reports a non-2xx response from the remote store,
// including optimistic-concurrency conflicts.
type RemoteRejectedError struct {
	StatusCode int
	Body       string
}

func (e *RemoteRejectedError) Error() string {
	return fmt.Sprintf("upload failed: %d - %s", e.StatusCode, e.Body)
}

// TransportError reports a network failure while talking to the remote store.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// ErrorKind classifies a failure for reporting.
type ErrorKind string

const (
	KindNotConfigured    ErrorKind = "NotConfigured"
	KindNotFound         ErrorKind = "NotFound"
	KindNothingToUpload  ErrorKind = "NothingToUpload"
	KindTransportError   ErrorKind = "TransportError"
	KindRemoteRejected   ErrorKind = "RemoteRejected"
	KindPersistenceError ErrorKind = "PersistenceError"
	KindThumbnailError   ErrorKind = "ThumbnailError"
	KindUnknown          ErrorKind = "Unknown"
)

// Kind maps err onto the error taxonomy. A nil error yields the empty kind.
func Kind(err error) ErrorKind {
	if err == nil {
		return ""
	}

	var rejected *RemoteRejectedError
	var transport *TransportError

	switch {
	case errors.Is(err, ErrNotConfigured):
		return KindNotConfigured
	case errors.Is(err, ErrNotFound):
		return KindNotFound
	case errors.Is(err, ErrNothingToUpload):
		return KindNothingToUpload
	case errors.As(err, &rejected):
		return KindRemoteRejected
	case errors.As(err, &transport):
		return KindTransportError
	case errors.Is(err, ErrPersistence):
		return KindPersistenceError
	case errors.Is(err, ErrThumbnail):
		return KindThumbnailError
	default:
		return KindUnknown
	}
}
