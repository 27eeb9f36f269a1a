package listener

import "errors"

var (
	ErrListenerNotFound      = errors.New("listener not found")
	ErrListenerAlreadyExists = errors.New("listener already exists")
)
