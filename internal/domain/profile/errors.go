package profile

import "errors"

// Profile errors
var (
	ErrNoCredentials   = errors.New("no credentials stored")
	ErrNoEmployee      = errors.New("employee id could not be resolved")
	ErrNoProfilePhoto  = errors.New("employee has no profile photo")
	ErrProfileNotFound = errors.New("employee profile not found")
)
