package server

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/esimov/facedeform"
	"github.com/esimov/facedeform/logger"
	"github.com/esimov/facedeform/store"
	"github.com/esimov/facedeform/utils"
	"github.com/gofiber/fiber/v2"
)

// previewPrefix is the route serving the stored artifacts.
const previewPrefix = "/api/preview/"

func (s *Server) health(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"message": "Server is Healthy!",
	})
}

func (s *Server) generate(c *fiber.Ctx) error {
	requestID := GetRequestID(c)

	var req GenerateRequest
	if err := c.BodyParser(&req); err != nil {
		return s.handleError(c, requestID, NewError(fiber.StatusBadRequest, fmt.Errorf("%w: %v", ErrInvalidBody, err)), "parse_body")
	}
	if err := s.validator.Struct(req); err != nil {
		return s.handleError(c, requestID, NewError(fiber.StatusBadRequest, fmt.Errorf("validation failed: %w", err)), "validate")
	}
	if req.RequestID != "" {
		requestID = req.RequestID
		c.Locals(RequestIDHeader, requestID)
		c.Set(RequestIDHeader, requestID)
	}
	log := s.log.WithField(logger.RequestIDKey, requestID)

	ctx, cancel := context.WithTimeout(c.UserContext(), s.fetchTimeout)
	defer cancel()

	data, ctype, err := utils.DownloadImage(ctx, s.client, req.PhotoURL)
	if err != nil {
		return s.handleError(c, requestID, NewError(fiber.StatusBadGateway, fmt.Errorf("%w: %v", ErrFetch, err)), "fetch")
	}

	sourceKey := requestID + utils.ExtensionFor(ctype)
	if _, err := s.store.Put(c.UserContext(), sourceKey, data, ctype); err != nil {
		return s.handleError(c, requestID, fmt.Errorf("%w: %v", ErrStore, err), "store_source")
	}
	log.WithField("bytes", len(data)).Debug("source photo stored")

	outcome := s.pipeline.Run(requestID, data)

	format := s.pipeline.Format()
	artifacts, err := facedeform.Persist(c.UserContext(), s.store, requestID, outcome, format)
	if err != nil {
		return s.handleError(c, requestID, fmt.Errorf("%w: %v", ErrStore, err), "store_artifacts")
	}

	resp := GenerateResponse{
		RequestID: requestID,
		Source:    previewPrefix + sourceKey,
	}
	debugKey := facedeform.ArtifactFile(facedeform.ArtifactKey(requestID, facedeform.FaceSuffix), format)
	if _, ok := artifacts[debugKey]; ok {
		resp.Debug = previewPrefix + debugKey
	}

	switch o := outcome.(type) {
	case facedeform.Success:
		resp.Status = string(o.Status())
		resp.Message = "the face has been deformed"
		resp.Faces = len(o.Faces)
		resp.Box = &o.Box
		resp.Cropped = previewPrefix + facedeform.ArtifactFile(o.CroppedKey, format)
		resp.Deformed = previewPrefix + facedeform.ArtifactFile(o.DeformedKey, format)
		return c.Status(fiber.StatusOK).JSON(resp)
	case facedeform.NoFaceDetected:
		resp.Status = string(o.Status())
		resp.Message = "No face detected"
		return c.Status(fiber.StatusOK).JSON(resp)
	case facedeform.DecodeFailure:
		resp.Status = string(o.Status())
		resp.Message = "the photo could not be decoded"
		resp.Error = o.Error()
		log.WithError(o.Err).Warn("decode failure")
		return c.Status(fiber.StatusUnprocessableEntity).JSON(resp)
	case facedeform.StylizeFailure:
		resp.Status = string(o.Status())
		resp.Message = "the face could not be stylized"
		resp.Box = &o.Box
		resp.CroppedKey = o.CroppedKey
		resp.Error = o.Error()
		resp.TraceID = logger.ErrorWithTraceID(s.log, logger.Fields{
			logger.RequestIDKey: requestID,
			"error":             o.Err.Error(),
			"operation":         "stylize",
		}, "stylize failure")
		return c.Status(fiber.StatusInternalServerError).JSON(resp)
	default:
		return s.handleError(c, requestID, fmt.Errorf("unexpected outcome %T", outcome), "run")
	}
}

func (s *Server) preview(c *fiber.Ctx) error {
	requestID := GetRequestID(c)
	name := c.Params("name")
	if !store.ValidKey(name) {
		return s.handleError(c, requestID, NewError(fiber.StatusBadRequest, fmt.Errorf("%w: %q", ErrInvalidName, name)), "preview")
	}

	rc, err := s.store.Get(c.UserContext(), name)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return s.handleError(c, requestID, NewError(fiber.StatusNotFound, fmt.Errorf("%w: %s", ErrArtifactAbsent, name)), "preview")
		}
		return s.handleError(c, requestID, err, "preview")
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return s.handleError(c, requestID, err, "preview")
	}
	c.Attachment(name)
	c.Set(fiber.HeaderContentType, utils.DetectContentType(data))
	return c.Status(fiber.StatusOK).Send(data)
}

// handleError writes the JSON error body. Server side failures are logged with a trace id.
func (s *Server) handleError(c *fiber.Ctx, requestID string, err error, operation string) error {
	code := statusOf(err)
	fields := logger.Fields{
		logger.RequestIDKey: requestID,
		"error":             err.Error(),
		"code":              code,
		"path":              c.Path(),
		"operation":         operation,
	}

	resp := errorResponse{
		Status:    "error",
		Error:     err.Error(),
		RequestID: requestID,
	}
	if code >= fiber.StatusInternalServerError {
		resp.TraceID = logger.ErrorWithTraceID(s.log, fields, "operation failed")
		if code == fiber.StatusInternalServerError {
			resp.Error = "An unexpected error occurred"
		}
	} else {
		s.log.WithFields(fields).Warn("operation failed with error response")
	}
	return c.Status(code).JSON(resp)
}
