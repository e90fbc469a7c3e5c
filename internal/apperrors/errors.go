package apperrors

import "errors"

// ErrValidation indicates that input data failed validation before any
// network or storage call was made.
var ErrValidation = errors.New("validation error")

// ErrNotFound indicates that a referenced entity is absent.
var ErrNotFound = errors.New("resource not found")

// ErrConflict indicates an operation that conflicts with current state,
// e.g. deciding or deleting a budget request that is no longer PENDING.
var ErrConflict = errors.New("conflict")

// ErrPersistence indicates that a remote-store call failed.
var ErrPersistence = errors.New("persistence error")

// ErrDelivery indicates that the email provider rejected or failed a send.
var ErrDelivery = errors.New("delivery error")
