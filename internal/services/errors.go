package services

import "errors"

// Conflict-class errors. These are definitive for the current request: the
// caller may retry tomorrow (claims) or with a different amount (transfers),
// never immediately in place. Losing the conditional-update race surfaces as
// ErrAlreadyClaimed, indistinguishable from a plain repeat claim.
var (
	ErrAlreadyClaimed      = errors.New("already claimed today")
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrSelfTransfer        = errors.New("cannot send bytes to yourself")
	ErrBytesDisabled       = errors.New("bytes are disabled for this guild")
	ErrAlreadyInSquad      = errors.New("already a member of this squad")
)

// IsConflict reports whether an error maps to HTTP 409.
func IsConflict(err error) bool {
	return errors.Is(err, ErrAlreadyClaimed) ||
		errors.Is(err, ErrInsufficientBalance) ||
		errors.Is(err, ErrSelfTransfer) ||
		errors.Is(err, ErrBytesDisabled) ||
		errors.Is(err, ErrAlreadyInSquad)
}
