package websocket

import "errors"

var (
	ErrNilConnection    = errors.New("connection is nil")
	ErrConnectionClosed = errors.New("connection is closed")
	ErrSendBufferFull   = errors.New("send buffer is full")
)
