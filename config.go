package facedeform

import (
	"fmt"

	"github.com/go-playground/validator/v10"
)

// StyleVariant selects the transform applied by the Stylizer.
type StyleVariant string

const (
	// Enlarge upscales the face uniformly and pastes it near the top of a tall white canvas.
	Enlarge StyleVariant = "enlarge"
	// Frame stretches the face horizontally, frames it with a white margin and sharpens the result.
	Frame StyleVariant = "frame"
)

// Config holds every tunable constant of the pipeline.
type Config struct {
	// Face locator
	CascadeFile  string  `json:"cascade_file"`
	ScaleFactor  float64 `json:"scale_factor" validate:"gt=1"`
	ShiftFactor  float64 `json:"shift_factor" validate:"gt=0,lte=1"`
	MinSize      int     `json:"min_size" validate:"gte=1"`
	MaxSize      int     `json:"max_size" validate:"gte=0"`
	MinNeighbors int     `json:"min_neighbors" validate:"gte=1"`
	IoUThreshold float64 `json:"iou_threshold" validate:"gt=0,lt=1"`
	FaceAngle    float64 `json:"face_angle" validate:"gte=0,lte=1"`

	// Cropper
	PaddingRatio float64 `json:"padding_ratio" validate:"gte=0"`

	// Stylizer
	Variant           StyleVariant `json:"variant" validate:"oneof=enlarge frame"`
	Margin            int          `json:"margin" validate:"gte=0"`
	EnlargeScale      float64      `json:"enlarge_scale" validate:"gt=0"`
	CanvasWidthRatio  float64      `json:"canvas_width_ratio" validate:"gt=0"`
	CanvasHeightRatio float64      `json:"canvas_height_ratio" validate:"gt=0"`
	StretchX          float64      `json:"stretch_x" validate:"gt=0"`
	StretchY          float64      `json:"stretch_y" validate:"gt=0"`
	SharpenAmount     float64      `json:"sharpen_amount"`

	// ArtifactFormat is the encoding of every stored or piped artifact.
	ArtifactFormat Format `json:"artifact_format" validate:"oneof=png jpg bmp"`

	// DebugBoxes makes the pipeline render every detected box over the source image.
	DebugBoxes bool `json:"debug_boxes"`
}

// DefaultConfig returns the reference parameters.
func DefaultConfig() Config {
	return Config{
		ScaleFactor:       1.1,
		ShiftFactor:       0.1,
		MinSize:           20,
		MaxSize:           0,
		MinNeighbors:      5,
		IoUThreshold:      0.2,
		PaddingRatio:      0.2,
		Variant:           Frame,
		Margin:            30,
		EnlargeScale:      2.0,
		CanvasWidthRatio:  2.5,
		CanvasHeightRatio: 3.0,
		StretchX:          1.2,
		StretchY:          0.8,
		SharpenAmount:     1.5,
		ArtifactFormat:    FormatPNG,
	}
}

var validate = validator.New()

// Validate reports the first out of range parameter.
func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	if c.MaxSize > 0 && c.MaxSize < c.MinSize {
		return fmt.Errorf("invalid configuration: max size %d is smaller than min size %d", c.MaxSize, c.MinSize)
	}
	return nil
}
