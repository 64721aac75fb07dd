package services

import "errors"

var (
	// ErrUnknownReport means the report id is not registered.
	ErrUnknownReport = errors.New("unknown report")

	// ErrRunInProgress means the report already has an active run.
	ErrRunInProgress = errors.New("run already in progress")

	// ErrRunNotFound means no run exists with the given id.
	ErrRunNotFound = errors.New("run not found")
)
