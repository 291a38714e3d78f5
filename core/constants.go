package core

import (
	"errors"
	"time"
)

// Defaults applied when a Server field is left zero
const (
	DefaultInactivityTimeout = 5 * time.Second
	DefaultReadChunkSize     = 1024
	DefaultWriteTimeout      = 10 * time.Second
)

// Largest request a session accumulates before giving up on it
const MaxRequestSize = 8 << 20

// Error definitions
var (
	ErrServerClosed    = errors.New("server closed")
	ErrRequestTooLarge = errors.New("request exceeds maximum size")
	ErrSessionTimeout  = errors.New("session inactivity timeout")
)
