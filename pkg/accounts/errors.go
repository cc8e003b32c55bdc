package accounts

import "github.com/pkg/errors"

var (
	// ErrInvalidAccountData is returned when a stored account record is malformed.
	ErrInvalidAccountData = errors.New("invalid account data")

	// ErrNilAccount is returned when storing a nil account.
	ErrNilAccount = errors.New("nil account")

	// ErrClosed is returned by operations on a closed database.
	ErrClosed = errors.New("accounts db closed")

	// ErrUnknownBackend is returned by Open for an unsupported backend name.
	ErrUnknownBackend = errors.New("unknown accounts backend")
)
