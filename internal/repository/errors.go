package repository

import "errors"

var (
	// ErrContactNotFound indicates the contact record was not found
	ErrContactNotFound = errors.New("contact not found")

	// ErrRepositoryUnavailable indicates the repository is unavailable
	ErrRepositoryUnavailable = errors.New("repository unavailable")
)
