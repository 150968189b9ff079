package domain

import "errors"

// Sentinel errors used across the service; wrap them with fmt.Errorf("%w: ...").
var (
	ErrValidation   = errors.New("validation error")
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")
	ErrUnauthorized = errors.New("unauthorized")
	ErrPersistence  = errors.New("persistence error")
)
