package repository

import "errors"

var (
	// ErrUndecodableImage indicates bytes that no registered decoder accepts
	ErrUndecodableImage = errors.New("undecodable image")

	// ErrEmptyImage indicates a decoded image without pixels
	ErrEmptyImage = errors.New("image has no pixels")
)
