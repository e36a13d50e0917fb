package service

import "errors"

var (
	ErrInvalidInput       = errors.New("invalid input")
	ErrInvalidParticipant = errors.New("invalid participant")
	ErrInvalidProduct     = errors.New("invalid product")
	ErrNotFound           = errors.New("not found")
	ErrScopeMismatch      = errors.New("scope mismatch")
	ErrForbidden          = errors.New("forbidden")
)
