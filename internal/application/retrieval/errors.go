package retrieval

import "biocup-api/pkg/errors"

// Sentinel errors re-exported from the shared taxonomy so engine callers
// can branch without importing pkg/errors directly.
var (
	ErrEncoderUnavailable = errors.ErrEncoderUnavailable
	ErrIndexUnavailable   = errors.ErrIndexUnavailable
	ErrNoMatches          = errors.ErrNoMatches
)
