package models

import "errors"

// Custom errors
var (
	ErrPlayerNameRequired = errors.New("player name is required")
	ErrNotFound           = errors.New("record not found")
	ErrInvalidArtifact    = errors.New("invalid model artifact")
)
