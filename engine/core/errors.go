package core

import (
	"errors"
)

var (
	// fetch layer
	ErrFetchFailed = errors.New("fetch failed")

	// namespace lookups used as preconditions
	ErrMissingResource = errors.New("resource not mounted")

	// cross-reference validation
	ErrUnexpectedSuffix = errors.New("unexpected texture bank filename suffix")
	ErrTextureCount     = errors.New("texture container must hold exactly one texture")
	ErrNameMismatch     = errors.New("texture name does not match its bank record")

	ErrDecodeFailed      = errors.New("decode failed")
	ErrNoDecoder         = errors.New("no decoder registered")
	ErrInvalidSceneID    = errors.New("invalid scene id")
	ErrAlreadyDestroyed  = errors.New("already destroyed")
	ErrInvalidTransition = errors.New("invalid load state transition")
	ErrUnknown           = errors.New("unknown")
)
