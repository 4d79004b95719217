package recognition

import "errors"

var (
	// ErrInvalidFrame means the submitted frame could not be decoded.
	ErrInvalidFrame = errors.New("invalid frame")
	// ErrLookupUnavailable means the identity directory or the attendance
	// store could not be reached. No event was written; callers may retry.
	ErrLookupUnavailable = errors.New("lookup unavailable")
	// ErrRecognizerUnavailable means the vision service or camera failed.
	ErrRecognizerUnavailable = errors.New("recognizer unavailable")
	// ErrNoCamera means no frame source is configured. Unlike a failed read
	// it is permanent, so capture gives up at once.
	ErrNoCamera = errors.New("camera not configured")
)
