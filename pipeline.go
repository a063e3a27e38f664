package facedeform

import (
	"fmt"
	"image"
	"strings"
	"time"

	"github.com/esimov/facedeform/utils"
	"github.com/sirupsen/logrus"
)

// Status identifies the terminal state reached by a pipeline run.
type Status string

const (
	StatusSuccess        Status = "ok"
	StatusNoFace         Status = "no_face"
	StatusDecodeFailure  Status = "decode_failure"
	StatusStylizeFailure Status = "stylize_failure"
)

// Outcome is the result of a single pipeline run.
// It is one of Success, NoFaceDetected, DecodeFailure or StylizeFailure.
type Outcome interface {
	Status() Status
	isOutcome()
}

// Success carries both artifacts of a completed run.
type Success struct {
	Box         BoundingBox
	Faces       DetectionResult
	Cropped     *image.NRGBA
	Deformed    *image.NRGBA
	Debug       *image.NRGBA
	CroppedKey  string
	DeformedKey string
}

// NoFaceDetected reports that the locator confirmed no face. No artifact is produced.
type NoFaceDetected struct {
	Debug *image.NRGBA
}

// DecodeFailure reports that the input bytes could not be decoded.
type DecodeFailure struct {
	Err error
}

// StylizeFailure reports that the crop succeeded but the stylization did not.
// The cropped image itself is withheld; only its identifier is kept.
type StylizeFailure struct {
	Box        BoundingBox
	CroppedKey string
	Err        error
}

func (Success) Status() Status        { return StatusSuccess }
func (NoFaceDetected) Status() Status { return StatusNoFace }
func (DecodeFailure) Status() Status  { return StatusDecodeFailure }
func (StylizeFailure) Status() Status { return StatusStylizeFailure }

func (Success) isOutcome()        {}
func (NoFaceDetected) isOutcome() {}
func (DecodeFailure) isOutcome()  {}
func (StylizeFailure) isOutcome() {}

func (f DecodeFailure) Error() string  { return f.Err.Error() }
func (f StylizeFailure) Error() string { return f.Err.Error() }

// Artifact suffixes appended to the request identifier.
const (
	CroppedSuffix = "_cropped"
	DeformSuffix  = "_deform"
	FaceSuffix    = "_face"
)

// ValidRequestID reports whether id is safe to use as a storage prefix. Identifiers carrying an
// artifact suffix are rejected, since their source key would collide with another request's artifact.
func ValidRequestID(id string) bool {
	if !utils.IsValidRequestID(id) {
		return false
	}
	for _, suffix := range []string{CroppedSuffix, DeformSuffix, FaceSuffix} {
		if strings.HasSuffix(id, suffix) {
			return false
		}
	}
	return true
}

// ArtifactKey derives the storage identifier of an artifact from the request identifier.
func ArtifactKey(requestID, suffix string) string {
	return requestID + suffix
}

// Pipeline sequences the loader, the locator, the cropper and the stylizer.
// It keeps no per-run state, so Run can be called concurrently.
type Pipeline struct {
	locator      Locator
	stylizer     *Stylizer
	paddingRatio float64
	debugBoxes   bool
	format       Format
	log          logrus.FieldLogger
}

// Option customizes a Pipeline.
type Option func(*Pipeline)

// WithLogger sets the logger used to report each run.
func WithLogger(log logrus.FieldLogger) Option {
	return func(p *Pipeline) {
		p.log = log
	}
}

// WithStylizer replaces the stylizer built from the configuration.
func WithStylizer(s *Stylizer) Option {
	return func(p *Pipeline) {
		p.stylizer = s
	}
}

// NewPipeline validates cfg and builds a pipeline around the given locator.
func NewPipeline(cfg Config, locator Locator, opts ...Option) (*Pipeline, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if locator == nil {
		return nil, fmt.Errorf("a face locator is required")
	}
	p := &Pipeline{
		locator:      locator,
		stylizer:     NewStylizer(cfg),
		paddingRatio: cfg.PaddingRatio,
		debugBoxes:   cfg.DebugBoxes,
		format:       cfg.ArtifactFormat,
		log:          logrus.StandardLogger(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// Format returns the encoding of the artifacts produced by the pipeline.
func (p *Pipeline) Format() Format {
	return p.format
}

// Run executes the pipeline over the raw image bytes. Every failure is terminal.
func (p *Pipeline) Run(requestID string, data []byte) Outcome {
	now := time.Now()
	log := p.log.WithField("request_id", requestID)

	img, err := Load(data)
	if err != nil {
		log.WithError(err).Warn("decode failed")
		return DecodeFailure{Err: err}
	}

	faces := p.locator.Locate(img)
	log = log.WithField("faces", len(faces))

	var debug *image.NRGBA
	if p.debugBoxes {
		debug = DrawBoxes(img, faces, 2)
	}

	if len(faces) == 0 {
		log.Info("no face detected")
		return NoFaceDetected{Debug: debug}
	}

	box := faces[0]
	cropped := Crop(img, box, p.paddingRatio)

	deformed, err := p.stylizer.Stylize(cropped)
	if err != nil {
		log.WithError(err).Warn("stylize failed")
		return StylizeFailure{
			Box:        box,
			CroppedKey: ArtifactKey(requestID, CroppedSuffix),
			Err:        err,
		}
	}

	log.WithFields(logrus.Fields{
		"variant": p.stylizer.Variant(),
		"elapsed": time.Since(now).String(),
	}).Info("face deformed")

	return Success{
		Box:         box,
		Faces:       faces,
		Cropped:     cropped,
		Deformed:    deformed,
		Debug:       debug,
		CroppedKey:  ArtifactKey(requestID, CroppedSuffix),
		DeformedKey: ArtifactKey(requestID, DeformSuffix),
	}
}
