package repository

import "errors"

var (
	ErrNotFound             = errors.New("not found")
	ErrConflict             = errors.New("conflict")
	ErrNoPendingTransaction = errors.New("no pending transaction")
	ErrNotActive            = errors.New("ticket not active")
)
