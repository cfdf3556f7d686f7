package scan

import "errors"

var (
	// ErrInvalidInput means the submitted photo is missing, undecodable or
	// otherwise unusable.
	ErrInvalidInput = errors.New("invalid scan input")

	// ErrClassNotFound means the class does not exist in the SIS.
	ErrClassNotFound = errors.New("class not found")

	// ErrRosterEmpty means no student in the class has a face profile, so
	// there is nothing to match against.
	ErrRosterEmpty = errors.New("no enrolled face profiles for class")

	// ErrFeedUnavailable means the class camera snapshot could not be
	// fetched.
	ErrFeedUnavailable = errors.New("camera feed unavailable")

	// ErrNoCamera means the class has no camera configured.
	ErrNoCamera = errors.New("class has no camera configured")
)
