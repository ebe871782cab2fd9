// Package ingesterr defines the error taxonomy shared by the codec,
// session and ingestion layers so callers can branch with errors.Is
// instead of string matching.
package ingesterr

import "errors"

var (
	ErrBadPreamble         = errors.New("ingest: bad preamble")
	ErrShortPacket         = errors.New("ingest: short packet")
	ErrUnsupportedCodec    = errors.New("ingest: unsupported codec id")
	ErrRecordCountMismatch = errors.New("ingest: record count mismatch")
	ErrTruncated           = errors.New("ingest: truncated packet")
	ErrBadCrc              = errors.New("ingest: bad crc")
	ErrBadIdentifier       = errors.New("ingest: bad identifier")
	ErrOversizedFrame      = errors.New("ingest: oversized frame")
	ErrUnauthorizedDevice  = errors.New("ingest: unauthorized device")
	ErrRepository          = errors.New("ingest: repository error")
	ErrSpatialUnavailable  = errors.New("ingest: spatial backend unavailable")
)

// IsParseFailure reports whether err is one of the parse-level failures
// that should be logged and dropped without an ACK.
func IsParseFailure(err error) bool {
	switch {
	case errors.Is(err, ErrBadPreamble),
		errors.Is(err, ErrShortPacket),
		errors.Is(err, ErrUnsupportedCodec),
		errors.Is(err, ErrRecordCountMismatch),
		errors.Is(err, ErrTruncated),
		errors.Is(err, ErrBadCrc):
		return true
	default:
		return false
	}
}
