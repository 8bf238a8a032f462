package common

import "errors"

var (
	// ledger / workflow errors
	ErrInsufficientBalance = errors.New("insufficient credit balance")
	ErrAlreadyResolved     = errors.New("payment request already resolved")
	ErrNotFound            = errors.New("not found")
	ErrInvalidInput        = errors.New("invalid input")
	ErrEmailTaken          = errors.New("email already registered")

	// auth errors
	ErrUnauthorized = errors.New("unauthorized")
	ErrBlocked      = errors.New("account is blocked")

	// generation errors
	ErrGenerationInFlight = errors.New("a generation is already in progress")

	// image provider errors
	ErrInvalidAPIKey       = errors.New("image provider rejected the API key")
	ErrProviderUnavailable = errors.New("image provider is unavailable")
	ErrPromptRejected      = errors.New("prompt was rejected by the image provider")
)
