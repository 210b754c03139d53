package face

import "errors"

// Face engine errors
var (
	ErrNotEnrolled       = errors.New("no face template enrolled for employee")
	ErrNoFaceInReference = errors.New("no face found in reference image")
	ErrEngineUnavailable = errors.New("face engine unavailable")
	ErrInvalidReference  = errors.New("invalid reference image")
)
