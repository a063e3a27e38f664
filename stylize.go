package facedeform

import (
	"errors"
	"fmt"
	"image"
	"image/color"

	"github.com/disintegration/imaging"
	"github.com/esimov/facedeform/imop"
)

// ErrStylize is returned when the image cannot be transformed into a valid canvas.
var ErrStylize = errors.New("unable to stylize image")

// gaussian3x3 is the separable [1 2 1] kernel, normalized by the convolution options.
var gaussian3x3 = [9]float64{
	1, 2, 1,
	2, 4, 2,
	1, 2, 1,
}

// Stylizer produces the deformed derivative of a cropped face.
type Stylizer struct {
	variant           StyleVariant
	margin            int
	enlargeScale      float64
	canvasWidthRatio  float64
	canvasHeightRatio float64
	stretchX          float64
	stretchY          float64
	sharpen           *imop.Weighted
}

// NewStylizer binds the stylize parameters of cfg.
func NewStylizer(cfg Config) *Stylizer {
	return &Stylizer{
		variant:           cfg.Variant,
		margin:            cfg.Margin,
		enlargeScale:      cfg.EnlargeScale,
		canvasWidthRatio:  cfg.CanvasWidthRatio,
		canvasHeightRatio: cfg.CanvasHeightRatio,
		stretchX:          cfg.StretchX,
		stretchY:          cfg.StretchY,
		sharpen:           imop.NewWeighted(cfg.SharpenAmount, 1-cfg.SharpenAmount, 0),
	}
}

// Variant returns the active transform.
func (s *Stylizer) Variant() StyleVariant {
	return s.variant
}

// Stylize applies the configured variant and returns a newly allocated image.
func (s *Stylizer) Stylize(img *image.NRGBA) (*image.NRGBA, error) {
	if img == nil || img.Bounds().Empty() {
		return nil, fmt.Errorf("%w: zero area input", ErrStylize)
	}
	switch s.variant {
	case Enlarge:
		return s.enlarge(img)
	case Frame:
		return s.frame(img)
	default:
		return nil, fmt.Errorf("%w: unknown variant %q", ErrStylize, s.variant)
	}
}

// enlarge upscales the face by enlargeScale and pastes it horizontally centered,
// margin pixels below the top edge of a (w*canvasWidthRatio, h*canvasHeightRatio) white canvas.
func (s *Stylizer) enlarge(img *image.NRGBA) (*image.NRGBA, error) {
	w, h := img.Bounds().Dx(), img.Bounds().Dy()

	nw, nh := int(float64(w)*s.enlargeScale), int(float64(h)*s.enlargeScale)
	if nw <= 0 || nh <= 0 {
		return nil, fmt.Errorf("%w: enlarged size %dx%d is empty", ErrStylize, nw, nh)
	}
	cw, ch := int(float64(w)*s.canvasWidthRatio), int(float64(h)*s.canvasHeightRatio)
	if cw <= 0 || ch <= 0 {
		return nil, fmt.Errorf("%w: canvas size %dx%d is empty", ErrStylize, cw, ch)
	}

	face := opaque(imaging.Resize(img, nw, nh, imaging.CatmullRom))
	return s.paste(imaging.New(cw, ch, color.White), face, image.Pt((cw-nw)/2, s.margin))
}

// frame stretches the face to (w*stretchX, h*stretchY), surrounds it with a white margin
// and runs an unsharp mask over the composed canvas.
func (s *Stylizer) frame(img *image.NRGBA) (*image.NRGBA, error) {
	w, h := img.Bounds().Dx(), img.Bounds().Dy()

	nw, nh := int(float64(w)*s.stretchX), int(float64(h)*s.stretchY)
	if nw <= 0 || nh <= 0 {
		return nil, fmt.Errorf("%w: stretched size %dx%d is empty", ErrStylize, nw, nh)
	}

	face := opaque(imaging.Resize(img, nw, nh, imaging.CatmullRom))
	canvas, err := s.paste(imaging.New(nw+2*s.margin, nh+2*s.margin, color.White), face, image.Pt(s.margin, s.margin))
	if err != nil {
		return nil, err
	}

	blur := imaging.Convolve3x3(canvas, gaussian3x3, &imaging.ConvolveOptions{Normalize: true})
	sharpened, err := s.sharpen.Apply(canvas, blur)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStylize, err)
	}
	return sharpened, nil
}

// paste copies the opaque face onto the canvas. Content which would fall outside of the canvas
// is reported as an error rather than truncated.
func (s *Stylizer) paste(canvas, face *image.NRGBA, pt image.Point) (*image.NRGBA, error) {
	op := imop.InitOp()
	op.Set(imop.Copy)
	out, err := op.Draw(canvas, face, pt)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStylize, err)
	}
	return out, nil
}
