package facedeform

import (
	"image"
	"math"

	"github.com/disintegration/imaging"
	"github.com/esimov/facedeform/utils"
)

// CropRect expands the box by floor(paddingRatio*box.Height) pixels on every side
// and clamps each edge independently to the image bounds.
func CropRect(bounds image.Rectangle, box BoundingBox, paddingRatio float64) image.Rectangle {
	p := int(math.Floor(paddingRatio * float64(box.Height)))
	dx, dy := bounds.Dx(), bounds.Dy()

	x1 := utils.Max(0, box.X-p)
	y1 := utils.Max(0, box.Y-p)
	x2 := utils.Min(dx, box.X+box.Width+p)
	y2 := utils.Min(dy, box.Y+box.Height+p)

	return image.Rect(x1, y1, x2, y2)
}

// Crop returns a copy of the padded face region. The source image is left untouched.
func Crop(img *image.NRGBA, box BoundingBox, paddingRatio float64) *image.NRGBA {
	return imaging.Crop(img, CropRect(img.Bounds(), box, paddingRatio))
}
