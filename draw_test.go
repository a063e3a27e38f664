package facedeform

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDraw_Boxes(t *testing.T) {
	assert := assert.New(t)

	img := uniform(100, 100, white)
	faces := DetectionResult{
		{X: 10, Y: 10, Width: 30, Height: 30},
		// Partially outside of the image.
		{X: 80, Y: 80, Width: 40, Height: 40},
	}

	res := DrawBoxes(img, faces, 2)

	assert.EqualValues(boxColor, res.At(10, 10))
	assert.EqualValues(boxColor, res.At(11, 25))
	assert.EqualValues(boxColor, res.At(39, 39))
	assert.EqualValues(white, res.At(12, 25))
	assert.EqualValues(white, res.At(25, 25))
	assert.EqualValues(boxColor, res.At(99, 99))
	assert.EqualValues(white, res.At(90, 90))

	// The source is left untouched.
	assert.EqualValues(white, img.At(10, 10))
}

func TestDraw_NoFaces(t *testing.T) {
	img := makeFace(20, 20)
	res := DrawBoxes(img, nil, 0)

	assert.Equal(t, img.Pix, res.Pix)
	assert.NotSame(t, img, res)
}
