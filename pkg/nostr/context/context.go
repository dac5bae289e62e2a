// Package context shortens the names of the standard context package that are
// used everywhere.
package context

import (
	"context"
)

type (
	T = context.Context
	F = context.CancelFunc
	C = context.CancelCauseFunc
)

var (
	Bg          = context.Background
	Cancel      = context.WithCancel
	Timeout     = context.WithTimeout
	TODO        = context.TODO
	Value       = context.WithValue
	CancelCause = context.WithCancelCause
	Canceled    = context.Canceled
	// Detach keeps the values of a context but not its cancellation, for
	// work that outlives the request that started it.
	Detach = context.WithoutCancel
)
