package core

import "errors"

// Sentinel errors returned by the account store, mempool, and block engine.
// Callers should compare with errors.Is, since every returned error wraps
// one of these with additional context via fmt.Errorf("...: %w", ...).
var (
	ErrInvalidAmount     = errors.New("invalid amount")
	ErrInvalidAddress    = errors.New("invalid address")
	ErrUnknownSender     = errors.New("unknown sender")
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrEmptyBlock        = errors.New("empty block")
	ErrBadIndex          = errors.New("bad block index")
	ErrBadLink           = errors.New("bad block link")
	ErrBadHash           = errors.New("bad block hash")
	ErrPersistence       = errors.New("persistence error")
	ErrNotFound          = errors.New("not found")
)
