// Package server exposes the face deformation pipeline over HTTP.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/esimov/facedeform"
	"github.com/esimov/facedeform/store"
	"github.com/esimov/facedeform/utils"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	jsoniter "github.com/json-iterator/go"
	"github.com/sirupsen/logrus"
)

// DefaultFetchTimeout bounds the download of the remote photo.
const DefaultFetchTimeout = 15 * time.Second

// bodyLimit caps the size of the JSON request body.
const bodyLimit = 1 << 20

// ServerOption configures a Server.
type ServerOption func(*Server) error

// Server wires the HTTP routes to the pipeline and the artifact store.
type Server struct {
	engine       *fiber.App
	log          logrus.FieldLogger
	validator    *validator.Validate
	pipeline     *facedeform.Pipeline
	store        store.Store
	client       *http.Client
	fetchTimeout time.Duration
}

// NewFiber returns the fiber application with the JSON codec set to json-iterator.
func NewFiber() *fiber.App {
	return fiber.New(fiber.Config{
		AppName:               "facedeform",
		BodyLimit:             bodyLimit,
		StrictRouting:         true,
		CaseSensitive:         true,
		DisableStartupMessage: true,
		JSONEncoder:           jsoniter.Marshal,
		JSONDecoder:           jsoniter.Unmarshal,
	})
}

// NewValidator returns a validator aware of the request id and photo url formats.
func NewValidator() *validator.Validate {
	v := validator.New()
	_ = v.RegisterValidation("reqid", func(fl validator.FieldLevel) bool {
		return facedeform.ValidRequestID(fl.Field().String())
	})
	_ = v.RegisterValidation("photourl", func(fl validator.FieldLevel) bool {
		return utils.IsValidUrl(utils.NormalizeURL(fl.Field().String()))
	})
	return v
}

// NewServer applies the options and checks that every collaborator is present.
func NewServer(options ...ServerOption) (*Server, error) {
	s := &Server{
		client:       http.DefaultClient,
		fetchTimeout: DefaultFetchTimeout,
	}
	for _, option := range options {
		if err := option(s); err != nil {
			return nil, fmt.Errorf("failed to apply option: %w", err)
		}
	}

	if s.engine == nil {
		s.engine = NewFiber()
	}
	if s.validator == nil {
		s.validator = NewValidator()
	}
	if s.log == nil {
		return nil, errors.New("logger is required")
	}
	if s.pipeline == nil {
		return nil, errors.New("pipeline is required")
	}
	if s.store == nil {
		return nil, errors.New("store is required")
	}

	s.registerRoutes()
	return s, nil
}

func WithFiber(app *fiber.App) ServerOption {
	return func(s *Server) error {
		s.engine = app
		return nil
	}
}

func WithLogger(log logrus.FieldLogger) ServerOption {
	return func(s *Server) error {
		s.log = log
		return nil
	}
}

func WithValidator(v *validator.Validate) ServerOption {
	return func(s *Server) error {
		s.validator = v
		return nil
	}
}

func WithPipeline(p *facedeform.Pipeline) ServerOption {
	return func(s *Server) error {
		s.pipeline = p
		return nil
	}
}

func WithStore(st store.Store) ServerOption {
	return func(s *Server) error {
		s.store = st
		return nil
	}
}

// WithHTTPClient sets the client used to download the photos.
func WithHTTPClient(c *http.Client) ServerOption {
	return func(s *Server) error {
		if c == nil {
			return errors.New("http client is nil")
		}
		s.client = c
		return nil
	}
}

// WithFetchTimeout bounds every photo download.
func WithFetchTimeout(d time.Duration) ServerOption {
	return func(s *Server) error {
		if d <= 0 {
			return fmt.Errorf("invalid fetch timeout: %v", d)
		}
		s.fetchTimeout = d
		return nil
	}
}

// App exposes the underlying fiber application.
func (s *Server) App() *fiber.App {
	return s.engine
}

func (s *Server) registerRoutes() {
	s.engine.Use(NewRequestIDMiddleware())
	s.engine.Use(NewLoggingMiddleware(s.log))

	s.engine.Get("/", s.health)

	api := s.engine.Group("/api")
	api.Post("/generate", s.generate)
	api.Get("/preview/:name", s.preview)
}

// Run listens on addr until ctx is cancelled, then shuts the server down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	errc := make(chan error, 1)
	go func() {
		errc <- s.engine.Listen(addr)
	}()
	s.log.WithField("addr", addr).Info("server started")

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
		s.log.Info("shutting down server...")
		return s.engine.ShutdownWithTimeout(10 * time.Second)
	}
}
