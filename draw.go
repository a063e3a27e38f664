package facedeform

import (
	"image"
	"image/color"
	"image/draw"

	"github.com/disintegration/imaging"
	"github.com/esimov/facedeform/imop"
)

// boxColor is the outline color of the detected faces.
var boxColor = color.NRGBA{R: 0, G: 0, B: 255, A: 255}

// DrawBoxes returns a copy of the image with every detected face outlined.
// The outlines are drawn on a transparent layer which is then composited over the source.
func DrawBoxes(img *image.NRGBA, faces DetectionResult, thickness int) *image.NRGBA {
	if thickness < 1 {
		thickness = 1
	}
	bounds := img.Bounds()
	layer := image.NewNRGBA(bounds)
	fill := &image.Uniform{C: boxColor}

	for _, f := range faces {
		r := f.Rect().Add(bounds.Min).Intersect(bounds)
		if r.Empty() {
			continue
		}
		t := thickness
		edges := []image.Rectangle{
			image.Rect(r.Min.X, r.Min.Y, r.Max.X, r.Min.Y+t), // top
			image.Rect(r.Min.X, r.Max.Y-t, r.Max.X, r.Max.Y), // bottom
			image.Rect(r.Min.X, r.Min.Y, r.Min.X+t, r.Max.Y), // left
			image.Rect(r.Max.X-t, r.Min.Y, r.Max.X, r.Max.Y), // right
		}
		for _, e := range edges {
			draw.Draw(layer, e.Intersect(r), fill, image.Point{}, draw.Src)
		}
	}

	dst, err := imop.InitOp().Draw(img, layer, image.Point{})
	if err != nil {
		return imaging.Clone(img)
	}
	return dst
}
