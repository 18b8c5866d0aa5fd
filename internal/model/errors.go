package model

import "errors"

// Error kinds returned by the engine. Callers match them with errors.Is.
var (
	ErrInvalidInterval = errors.New("invalid interval")
	ErrSlotTaken       = errors.New("slot taken")
	ErrNotFound        = errors.New("not found")
	ErrAlreadyTerminal = errors.New("booking already terminal")
	ErrOutOfWindow     = errors.New("start outside availability window")

	// ErrInvalidInput covers malformed arguments that are not intervals (party, status, ids).
	ErrInvalidInput = errors.New("invalid input")
)
