package core

import "errors"

var (
	ErrNotFound        = errors.New("not found")
	ErrInvalidPayload  = errors.New("invalid payload")
	ErrUpstreamStatus  = errors.New("unexpected upstream status")
	ErrSessionDisposed = errors.New("session disposed")
)
