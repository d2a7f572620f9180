package domain

import "errors"

var (
	ErrNotFound     = errors.New("project not found")
	ErrInvalidState = errors.New("invalid project state")
)
