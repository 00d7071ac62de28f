package domain

import "errors"

// Store-level sentinels shared by the sqlite and mongo backends.
var (
	ErrNotFound          = errors.New("not found")
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrDuplicate         = errors.New("duplicate")
)
