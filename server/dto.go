package server

import "github.com/esimov/facedeform"

// GenerateRequest is the body of POST /api/generate.
type GenerateRequest struct {
	PhotoURL  string `json:"photo_url" validate:"required,photourl"`
	Email     string `json:"email" validate:"omitempty,email"`
	RequestID string `json:"request_id" validate:"omitempty,reqid"`
}

// GenerateResponse reports the outcome of a pipeline run.
// Source, Cropped, Deformed and Debug are preview URLs.
type GenerateResponse struct {
	Status    string                  `json:"status"`
	Message   string                  `json:"message"`
	RequestID string                  `json:"request_id"`
	Faces     int                     `json:"faces,omitempty"`
	Box       *facedeform.BoundingBox `json:"box,omitempty"`
	Source    string                  `json:"source,omitempty"`
	Cropped   string                  `json:"cropped,omitempty"`
	Deformed  string                  `json:"deformed,omitempty"`
	Debug     string                  `json:"debug,omitempty"`
	// CroppedKey identifies the crop of a failed stylization. Nothing is stored under it.
	CroppedKey string `json:"cropped_key,omitempty"`
	Error      string `json:"error,omitempty"`
	TraceID    string `json:"trace_id,omitempty"`
}
