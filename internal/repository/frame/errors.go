package frame

import "errors"

var (
	ErrFrameNotFound        = errors.New("frame not found")
	ErrFrameAlreadyAttached = errors.New("frame already attached")
	ErrFrameNotAttached     = errors.New("frame not attached")
	ErrFrameClosed          = errors.New("frame closed")
)
