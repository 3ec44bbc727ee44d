package services

import (
	"errors"

	"agencypulse/internal/dashboard"
)

// Service errors
var (
	// Access errors
	ErrAccessDenied = errors.New("access denied")

	// Dashboard errors
	ErrLayoutNotFound = dashboard.ErrLayoutNotFound
	ErrPanelNotFound  = dashboard.ErrPanelNotFound

	// Dataset errors
	ErrDatasetNotLoaded = errors.New("dataset not loaded")
)
