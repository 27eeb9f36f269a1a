package registry

import "errors"

var ErrVideoNotRegistered = errors.New("video not registered")
