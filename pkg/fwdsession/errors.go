package fwdsession

import "github.com/pkg/errors"

var (
	// ErrSessionBusy is returned when a connection arrives while the single
	// session slot is taken.
	ErrSessionBusy = errors.New("session slot busy")
	// ErrNoSession is returned when an operation needs an active session.
	ErrNoSession = errors.New("no active session")
	// ErrClosed is returned by writes to a session or manager that is gone.
	ErrClosed = errors.New("session closed")
)
