package services

import "errors"

// Errors returned to clients. The text of each error is the user-facing message.
var (
	ErrDuplicateUsername        = errors.New("Username must be unique.")
	ErrUserNotFound             = errors.New("User doesn't exist")
	ErrWrongPassword            = errors.New("Wrong password")
	ErrAccountNotFound          = errors.New("User not found")
	ErrWrongPasswordCombination = errors.New("Wrong password combination")
	ErrReceiverNotFound         = errors.New("Receiver not found")
)
