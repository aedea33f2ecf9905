package store

import "errors"

var (
	ErrQuestionNotFound = errors.New("question not found")
	ErrReplyNotFound    = errors.New("reply not found")
)
