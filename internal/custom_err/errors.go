package custom_err

import "errors"

var (
	// Ledger errors
	ErrNotFound          = errors.New("resource not found")
	ErrInsufficientFunds = errors.New("insufficient funds")

	// Transfer workflow errors
	ErrSelfTransfer    = errors.New("cannot transfer to self")
	ErrAlreadyResolved = errors.New("transaction already resolved")
	ErrNotOnHold       = errors.New("transaction is not on hold")
	ErrNotParticipant  = errors.New("not a participant of the transaction")

	// Scoring errors
	ErrScoringUnavailable = errors.New("fraud scoring unavailable")
	ErrInvalidDataType    = errors.New("invalid data type")

	// User errors
	ErrUsernameExists     = errors.New("username already exists")
	ErrEmailExists        = errors.New("email already exists")
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrInvalidToken       = errors.New("invalid or expired token")
	ErrUnauthorized       = errors.New("unauthorized")
	ErrTokenExpired       = errors.New("token has expired")
	ErrTokenNotActive     = errors.New("token not active yet")

	// Validation errors
	ErrInvalidInput  = errors.New("invalid input")
	ErrInvalidAmount = errors.New("invalid amount")
)
