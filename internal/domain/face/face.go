package face

import (
	"context"
	"image"
)

// Result is what the engine reports for one verification.
// Success=false is an engine failure, distinct from a legitimate non-match.
type Result struct {
	Success    bool    `json:"success"`
	Matched    bool    `json:"matched"`
	Similarity float64 `json:"similarity"`
	Message    string  `json:"message,omitempty"`
}

// Reference is a face-reference image: an absolute URL or a data URL.
type Reference string

// Detector counts faces in a frame. It never mutates state.
type Detector interface {
	Detect(ctx context.Context, frame image.Image) (int, error)
}

// Recognizer holds one template per employee.
type Recognizer interface {
	// Enroll derives a template from ref, replacing any prior one.
	Enroll(ctx context.Context, employeeID string, ref Reference) error
	Verify(ctx context.Context, employeeID string, jpeg []byte) (Result, error)
}

// Engine is the full face recognition capability.
type Engine interface {
	Detector
	Recognizer
}
