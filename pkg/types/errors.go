package types

import "errors"

var (
	ErrEmptyText = errors.New("text must not be empty")
)
