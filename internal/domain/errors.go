package domain

import "errors"

// Client-side session errors.
var (
	ErrSessionBusy  = errors.New("a request is already in flight for this session")
	ErrEmptyMessage = errors.New("message is empty")
)

// Order validation errors returned by the assistant backend.
var (
	ErrItemNotOnMenu   = errors.New("item is not on the menu")
	ErrInvalidSize     = errors.New("invalid size")
	ErrInvalidQuantity = errors.New("quantity must be 1 or greater")
	ErrInvalidPosition = errors.New("invalid item number")
)
