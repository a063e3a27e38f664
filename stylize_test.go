package facedeform

import (
	"errors"
	"image"
	"image/color"
	"image/draw"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	white    = color.NRGBA{R: 255, G: 255, B: 255, A: 255}
	skinTone = color.NRGBA{R: 200, G: 120, B: 90, A: 255}
)

// makeFace returns an opaque test image: a uniform square in the middle of a gradient.
func makeFace(w, h int) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetNRGBA(x, y, color.NRGBA{R: uint8(x), G: uint8(y), B: uint8(x + y), A: 255})
		}
	}
	draw.Draw(img, image.Rect(w/4, h/4, 3*w/4, 3*h/4), &image.Uniform{skinTone}, image.Point{}, draw.Src)
	return img
}

func uniform(w, h int, c color.NRGBA) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	draw.Draw(img, img.Bounds(), &image.Uniform{c}, image.Point{}, draw.Src)
	return img
}

func stylizer(variant StyleVariant) *Stylizer {
	cfg := DefaultConfig()
	cfg.Variant = variant
	return NewStylizer(cfg)
}

func TestStylize_Enlarge(t *testing.T) {
	assert := assert.New(t)

	res, err := stylizer(Enlarge).Stylize(uniform(224, 224, skinTone))
	require.NoError(t, err)

	assert.Equal(image.Rect(0, 0, 560, 672), res.Bounds())

	// The face is upscaled to 448x448 and pasted at (56, 30).
	assert.EqualValues(white, res.At(55, 100))
	assert.EqualValues(skinTone, res.At(56, 30))
	assert.EqualValues(skinTone, res.At(503, 477))
	assert.EqualValues(white, res.At(504, 100))
	assert.EqualValues(white, res.At(100, 29))
	assert.EqualValues(white, res.At(100, 478))
	assert.EqualValues(white, res.At(559, 671))
}

func TestStylize_EnlargeNonSquare(t *testing.T) {
	res, err := stylizer(Enlarge).Stylize(makeFace(100, 60))
	require.NoError(t, err)

	// floor(100*2.5) x floor(60*3.0)
	assert.Equal(t, image.Rect(0, 0, 250, 180), res.Bounds())
}

func TestStylize_EnlargeShouldFailOnSmallCrop(t *testing.T) {
	// A 40px tall face does not fit in a 60px canvas below the 30px margin.
	_, err := stylizer(Enlarge).Stylize(makeFace(20, 20))
	assert.True(t, errors.Is(err, ErrStylize), "got: %v", err)
}

func TestStylize_Frame(t *testing.T) {
	assert := assert.New(t)

	res, err := stylizer(Frame).Stylize(uniform(224, 224, skinTone))
	require.NoError(t, err)

	// floor(224*1.2)+60 x floor(224*0.8)+60
	assert.Equal(image.Rect(0, 0, 328, 239), res.Bounds())

	// Uniform regions are left untouched by the unsharp mask.
	assert.EqualValues(white, res.At(0, 0))
	assert.EqualValues(white, res.At(327, 238))
	assert.EqualValues(skinTone, res.At(164, 119))

	// The edge between the margin and the face is sharpened: the white side gets clipped,
	// the face side darkens.
	edge := res.NRGBAAt(30, 119)
	assert.Less(edge.G, skinTone.G)
	assert.EqualValues(white, res.At(29, 119))
}

func TestStylize_FrameDimensions(t *testing.T) {
	testCases := []struct {
		w, h         int
		wantW, wantH int
	}{
		{w: 100, h: 100, wantW: 180, wantH: 140},
		{w: 50, h: 80, wantW: 120, wantH: 124},
		{w: 7, h: 3, wantW: 68, wantH: 62},
	}
	for _, tc := range testCases {
		res, err := stylizer(Frame).Stylize(makeFace(tc.w, tc.h))
		require.NoError(t, err)
		assert.Equal(t, tc.wantW, res.Bounds().Dx(), "%dx%d", tc.w, tc.h)
		assert.Equal(t, tc.wantH, res.Bounds().Dy(), "%dx%d", tc.w, tc.h)
	}
}

func TestStylize_ShouldFailOnEmptyInput(t *testing.T) {
	for _, variant := range []StyleVariant{Enlarge, Frame} {
		s := stylizer(variant)

		_, err := s.Stylize(image.NewNRGBA(image.Rect(0, 0, 0, 0)))
		assert.ErrorIs(t, err, ErrStylize)

		_, err = s.Stylize(nil)
		assert.ErrorIs(t, err, ErrStylize)
	}

	// floor(1*0.8) = 0
	_, err := stylizer(Frame).Stylize(makeFace(1, 1))
	assert.ErrorIs(t, err, ErrStylize)
}

func TestStylize_ShouldFailOnUnknownVariant(t *testing.T) {
	_, err := stylizer("swirl").Stylize(makeFace(40, 40))
	assert.ErrorIs(t, err, ErrStylize)
}

func TestStylize_ShouldNotModifyInput(t *testing.T) {
	for _, variant := range []StyleVariant{Enlarge, Frame} {
		img := makeFace(64, 64)
		orig := make([]uint8, len(img.Pix))
		copy(orig, img.Pix)

		_, err := stylizer(variant).Stylize(img)
		require.NoError(t, err)
		assert.Equal(t, orig, img.Pix)
	}
}
