package models

import "errors"

// Error taxonomy shared by the pipeline, workflow and API layers. Handlers
// map these to HTTP statuses; everything else wraps them with %w.
var (
	// ErrValidation covers missing or malformed request fields (400).
	ErrValidation = errors.New("validation failed")
	// ErrNotFound covers unknown image ids and studies (404).
	ErrNotFound = errors.New("not found")
	// ErrInvalidFormat covers uploads that are not parseable DICOM (400).
	ErrInvalidFormat = errors.New("invalid DICOM format")
	// ErrInvalidStatus covers status values outside the workflow set (400).
	ErrInvalidStatus = errors.New("invalid status")
	// ErrStorage covers blob write failures (500).
	ErrStorage = errors.New("storage failure")
	// ErrPersistence covers database failures after the blob was written (500).
	ErrPersistence = errors.New("persistence failure")
)
