package domain

import "errors"

var (
	// ErrInvalidDimension signals a non-positive canvas width or height.
	ErrInvalidDimension = errors.New("invalid dimension")
	// ErrImageLoad signals that a source image could not be fetched or decoded for compositing.
	ErrImageLoad = errors.New("image load failed")
	// ErrImageFetch signals that the base image of a composite export could not be retrieved.
	ErrImageFetch = errors.New("image fetch failed")
	// ErrUpload signals a failure of the object storage collaborator.
	ErrUpload = errors.New("upload failed")
	// ErrNotConfigured signals that a required collaborator was never initialised.
	ErrNotConfigured = errors.New("not configured")
	// ErrNotFound signals a missing document.
	ErrNotFound = errors.New("not found")
	// ErrInvalidInput signals rejected user input.
	ErrInvalidInput = errors.New("invalid input")
	// ErrConflict signals a request that collides with one still in flight.
	ErrConflict = errors.New("conflict")
)
