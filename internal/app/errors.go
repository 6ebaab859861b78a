package app

import "errors"

var (
	ErrUnauthenticated       = errors.New("authentication required")
	ErrForbidden             = errors.New("insufficient permissions")
	ErrInvalidInput          = errors.New("invalid input")
	ErrUnsupportedFormat     = errors.New("unsupported file format")
	ErrFileTooLarge          = errors.New("file too large")
	ErrExtraction            = errors.New("could not extract text from file")
	ErrGeneration            = errors.New("failed to generate an answer")
	ErrNotFound              = errors.New("not found")
	ErrEmailExists           = errors.New("email already exists")
	ErrPasswordMismatch      = errors.New("passwords do not match")
	ErrInvalidCredential     = errors.New("invalid email or password")
	ErrOAuthDisabled         = errors.New("single sign-on is not configured")
	ErrPasswordLoginDisabled = errors.New("password login is disabled")
)
