// Package imop implements the pixel level operations used for building the stylized image:
// Porter-Duff composition of a graphic element over its backdrop and the weighted
// blending of two images of identical size.
//
// The image/draw core package implements only the source-over-destination and source operators
// and it has no notion of placement failure, which is why the composition is handled here.
package imop

import (
	"fmt"
	"image"
	"math"

	"github.com/esimov/facedeform/utils"
)

// Weighted blends two images channel by channel: dst = a*Alpha + b*Beta + Gamma.
// The result is rounded and saturated to the [0, 255] range.
type Weighted struct {
	Alpha float64
	Beta  float64
	Gamma float64
}

// NewWeighted initializes a new Weighted blend.
func NewWeighted(alpha, beta, gamma float64) *Weighted {
	return &Weighted{Alpha: alpha, Beta: beta, Gamma: gamma}
}

// Apply blends the color channels of a and b into a newly allocated image.
// The alpha channel of a is carried over unchanged.
func (w *Weighted) Apply(a, b *image.NRGBA) (*image.NRGBA, error) {
	if a.Bounds().Size() != b.Bounds().Size() {
		return nil, fmt.Errorf("cannot blend images of different sizes: %v and %v", a.Bounds().Size(), b.Bounds().Size())
	}
	dx, dy := a.Bounds().Dx(), a.Bounds().Dy()
	dst := image.NewNRGBA(image.Rect(0, 0, dx, dy))

	for y := 0; y < dy; y++ {
		ai := a.PixOffset(a.Bounds().Min.X, a.Bounds().Min.Y+y)
		bi := b.PixOffset(b.Bounds().Min.X, b.Bounds().Min.Y+y)
		di := dst.PixOffset(0, y)
		for x := 0; x < dx; x++ {
			for c := 0; c < 3; c++ {
				v := float64(a.Pix[ai+c])*w.Alpha + float64(b.Pix[bi+c])*w.Beta + w.Gamma
				dst.Pix[di+c] = uint8(utils.Clamp(math.Round(v), 0, 255))
			}
			dst.Pix[di+3] = a.Pix[ai+3]
			ai += 4
			bi += 4
			di += 4
		}
	}
	return dst, nil
}
