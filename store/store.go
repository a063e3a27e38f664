// Package store persists the source photos and the generated artifacts.
// Two drivers are available: a local directory and an S3 bucket.
package store

import (
	"context"
	"errors"
	"fmt"
	"io"
	"regexp"

	"github.com/go-playground/validator/v10"
)

var (
	// ErrNotFound is returned when no object is stored under the requested key.
	ErrNotFound = errors.New("object not found")
	// ErrInvalidKey is returned for keys which could escape the storage namespace.
	ErrInvalidKey = errors.New("invalid object key")
)

// Driver names accepted by New.
const (
	DriverLocal = "local"
	DriverS3    = "s3"
)

var keyPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{1,80}\.[A-Za-z0-9]{2,5}$`)

// ValidKey reports whether key is a flat file name made of safe characters.
func ValidKey(key string) bool {
	return keyPattern.MatchString(key)
}

// Store reads and writes flat keyed objects.
type Store interface {
	Put(ctx context.Context, key string, data []byte, contentType string) (string, error)
	Get(ctx context.Context, key string) (io.ReadCloser, error)
	// Delete removes the object. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error
}

// Config selects and configures the storage driver.
type Config struct {
	Driver string   `validate:"oneof=local s3"`
	Dir    string   `validate:"required_if=Driver local"`
	S3     S3Config `validate:"-"`
}

var validate = validator.New()

// Validate checks the settings required by the selected driver.
func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid storage configuration: %w", err)
	}
	if c.Driver == DriverS3 {
		if err := validate.Struct(c.S3); err != nil {
			return fmt.Errorf("invalid S3 configuration: %w", err)
		}
	}
	return nil
}

// New builds the store matching cfg.Driver.
func New(cfg Config) (Store, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	switch cfg.Driver {
	case DriverLocal:
		return NewFileStore(cfg.Dir)
	case DriverS3:
		return NewS3Store(cfg.S3)
	default:
		return nil, fmt.Errorf("unknown storage driver: %q", cfg.Driver)
	}
}
