package camera

import "errors"

// Camera domain errors
var (
	ErrPermissionDenied = errors.New("camera permission denied")
	ErrNoDevice         = errors.New("no camera device available")
	ErrNotLive          = errors.New("camera stream is not live")
	ErrFrameNotReady    = errors.New("camera frame not ready")
)
