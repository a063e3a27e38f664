package server

import (
	"errors"

	"github.com/gofiber/fiber/v2"
)

// Error couples an error with the HTTP status it maps to.
type Error struct {
	Code int
	Err  error
}

func (e *Error) Error() string {
	return e.Err.Error()
}

func (e *Error) Unwrap() error {
	return e.Err
}

// NewError wraps err with the given status code.
func NewError(code int, err error) error {
	return &Error{Code: code, Err: err}
}

var (
	ErrInvalidBody    = errors.New("invalid request body")
	ErrFetch          = errors.New("unable to fetch the photo")
	ErrStore          = errors.New("unable to store the image")
	ErrInvalidName    = errors.New("invalid artifact name")
	ErrArtifactAbsent = errors.New("artifact not found")
)

// errorResponse is the JSON body of every failed request.
type errorResponse struct {
	Status    string `json:"status"`
	Error     string `json:"error"`
	RequestID string `json:"request_id,omitempty"`
	TraceID   string `json:"trace_id,omitempty"`
}

func statusOf(err error) int {
	var respErr *Error
	if errors.As(err, &respErr) {
		return respErr.Code
	}
	return fiber.StatusInternalServerError
}
