package gdc

import (
	"errors"
)

// Sentinel error kinds for this package. These allow errors.Is/As from callers.
var (
	// ErrUnexpectedResponse marks a response envelope without a data.hits array.
	ErrUnexpectedResponse = errors.New("unexpected GDC response shape")

	// ErrHTMLPayload marks a download that returned an HTML page where a
	// data file was expected.
	ErrHTMLPayload = errors.New("downloaded payload is HTML, not data")

	// ErrInvalidFileID marks a file download attempted with a non-UUID id.
	ErrInvalidFileID = errors.New("invalid GDC file id")

	// ErrRequestFailed wraps a transport or HTTP status failure.
	ErrRequestFailed = errors.New("GDC request failed")
)
