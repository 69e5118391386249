package apperrors

import "errors"

var (
	ErrNotFound      = errors.New("not found")
	ErrConflict      = errors.New("conflict")
	ErrInvalidStatus = errors.New("invalid status")
	ErrInvalidTag    = errors.New("invalid tag")
	ErrNoValidFields = errors.New("no valid fields to update")
	ErrInvalidAPIKey = errors.New("invalid API key")
	ErrMissingAPIKey = errors.New("missing API key")
	ErrImageTooLarge = errors.New("image exceeds maximum size")
	ErrInvalidImage  = errors.New("invalid image data")
	ErrSlugTaken     = errors.New("slug already in use")
	ErrRepoNotLinked = errors.New("project has no linked GitHub repository")
)
