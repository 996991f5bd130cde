package domain

import "errors"

var (
	// ErrValidation marks malformed or missing request fields.
	ErrValidation = errors.New("validation error")
	// ErrNotFound marks a session that does not exist.
	ErrNotFound = errors.New("session not found")
	// ErrInsufficientData is returned when generation is requested before any form is saved.
	ErrInsufficientData = errors.New("insufficient data: at least one form must be completed")
	// ErrGeneration wraps failures of the external text generator.
	ErrGeneration = errors.New("generation failed")
	// ErrStorage wraps persistence failures. Callers may retry.
	ErrStorage = errors.New("storage error")

	// ErrSectionBusy is returned when another caller holds the generation claim for a section.
	ErrSectionBusy = errors.New("section generation already in progress")
	// ErrSectionCompleted is returned when claiming a section that already has content.
	ErrSectionCompleted = errors.New("section already completed")
)
