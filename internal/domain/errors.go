package domain

import "errors"

// ErrNotFound is returned by repositories when a trip, version, or snapshot does not exist.
var ErrNotFound = errors.New("not found")

// ErrValidation is returned when input fails a business rule.
var ErrValidation = errors.New("validation error")

// ErrVersionConflict is returned when a version number is already taken for a trip.
var ErrVersionConflict = errors.New("version already exists")
