package facedeform

import (
	"bytes"
	"errors"
	"image"
	"image/png"
	"sync/atomic"
	"testing"

	"github.com/esimov/facedeform/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeLocator returns the same faces for every image.
type fakeLocator struct {
	faces DetectionResult
	calls atomic.Int32
}

func (l *fakeLocator) Locate(img *image.NRGBA) DetectionResult {
	l.calls.Add(1)
	return l.faces
}

func encodePNG(t *testing.T, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func newTestPipeline(t *testing.T, cfg Config, locator Locator, opts ...Option) *Pipeline {
	t.Helper()
	p, err := NewPipeline(cfg, locator, append([]Option{WithLogger(logger.Discard())}, opts...)...)
	require.NoError(t, err)
	return p
}

func TestPipeline_Success(t *testing.T) {
	assert := assert.New(t)

	cfg := DefaultConfig()
	cfg.Variant = Enlarge
	box := BoundingBox{X: 120, Y: 100, Width: 160, Height: 160}
	locator := &fakeLocator{faces: DetectionResult{box, {X: 10, Y: 10, Width: 40, Height: 40}}}
	p := newTestPipeline(t, cfg, locator)

	out := p.Run("req1", encodePNG(t, makeFace(400, 400)))
	require.Equal(t, StatusSuccess, out.Status())

	res := out.(Success)
	assert.Equal(box, res.Box)
	assert.Len(res.Faces, 2)
	assert.Equal("req1_cropped", res.CroppedKey)
	assert.Equal("req1_deform", res.DeformedKey)
	assert.Equal(image.Rect(0, 0, 224, 224), res.Cropped.Bounds())
	assert.Equal(image.Rect(0, 0, 560, 672), res.Deformed.Bounds())
	assert.Nil(res.Debug)
	assert.EqualValues(1, locator.calls.Load())
}

func TestPipeline_FrameIsTheDefaultVariant(t *testing.T) {
	box := BoundingBox{X: 120, Y: 100, Width: 160, Height: 160}
	p := newTestPipeline(t, DefaultConfig(), &fakeLocator{faces: DetectionResult{box}})

	out := p.Run("req2", encodePNG(t, makeFace(400, 400)))
	require.IsType(t, Success{}, out)
	assert.Equal(t, image.Rect(0, 0, 328, 239), out.(Success).Deformed.Bounds())
}

func TestPipeline_NoFaceShouldSkipStylize(t *testing.T) {
	cfg := DefaultConfig()
	broken := cfg
	broken.Variant = "broken"

	// Any call to the stylizer would end in a StylizeFailure.
	p := newTestPipeline(t, cfg, &fakeLocator{}, WithStylizer(NewStylizer(broken)))

	out := p.Run("req3", encodePNG(t, makeFace(100, 100)))
	assert.Equal(t, StatusNoFace, out.Status())
	assert.Equal(t, NoFaceDetected{}, out)
}

func TestPipeline_DecodeFailure(t *testing.T) {
	locator := &fakeLocator{faces: DetectionResult{{X: 0, Y: 0, Width: 10, Height: 10}}}
	p := newTestPipeline(t, DefaultConfig(), locator)

	out := p.Run("req4", make([]byte, 10))
	require.Equal(t, StatusDecodeFailure, out.Status())

	err, ok := out.(error)
	require.True(t, ok)
	assert.True(t, errors.Is(out.(DecodeFailure).Err, ErrDecode), "got: %v", err)
	assert.Zero(t, locator.calls.Load())
}

func TestPipeline_StylizeFailure(t *testing.T) {
	assert := assert.New(t)

	cfg := DefaultConfig()
	cfg.Variant = Enlarge
	box := BoundingBox{X: 40, Y: 40, Width: 10, Height: 10}
	p := newTestPipeline(t, cfg, &fakeLocator{faces: DetectionResult{box}})

	out := p.Run("req5", encodePNG(t, makeFace(100, 100)))
	require.Equal(t, StatusStylizeFailure, out.Status())

	res := out.(StylizeFailure)
	assert.Equal(box, res.Box)
	assert.Equal("req5_cropped", res.CroppedKey)
	assert.ErrorIs(res.Err, ErrStylize)
}

func TestPipeline_ShouldBeDeterministic(t *testing.T) {
	box := BoundingBox{X: 30, Y: 20, Width: 60, Height: 60}
	data := encodePNG(t, makeFace(120, 120))

	for _, variant := range []StyleVariant{Enlarge, Frame} {
		cfg := DefaultConfig()
		cfg.Variant = variant
		p := newTestPipeline(t, cfg, &fakeLocator{faces: DetectionResult{box}})

		first, second := p.Run("a", data), p.Run("a", data)
		require.IsType(t, Success{}, first)
		require.IsType(t, Success{}, second)

		assert.Equal(t, first.(Success).Cropped.Pix, second.(Success).Cropped.Pix)
		assert.Equal(t, first.(Success).Deformed.Pix, second.(Success).Deformed.Pix)
	}
}

func TestPipeline_DebugBoxes(t *testing.T) {
	assert := assert.New(t)

	cfg := DefaultConfig()
	cfg.DebugBoxes = true
	box := BoundingBox{X: 30, Y: 20, Width: 60, Height: 60}

	p := newTestPipeline(t, cfg, &fakeLocator{faces: DetectionResult{box}})
	out := p.Run("req6", encodePNG(t, makeFace(120, 120)))
	require.IsType(t, Success{}, out)

	debug := out.(Success).Debug
	require.NotNil(t, debug)
	assert.EqualValues(boxColor, debug.At(30, 20))
	assert.EqualValues(boxColor, debug.At(89, 79))

	p = newTestPipeline(t, cfg, &fakeLocator{})
	out = p.Run("req7", encodePNG(t, makeFace(120, 120)))
	require.IsType(t, NoFaceDetected{}, out)
	assert.NotNil(out.(NoFaceDetected).Debug)
}

func TestPipeline_ShouldRejectInvalidSetup(t *testing.T) {
	_, err := NewPipeline(DefaultConfig(), nil)
	assert.Error(t, err)

	cfg := DefaultConfig()
	cfg.ScaleFactor = 0.5
	_, err = NewPipeline(cfg, &fakeLocator{})
	assert.Error(t, err)
}

func TestPipeline_ValidRequestID(t *testing.T) {
	assert := assert.New(t)

	assert.True(ValidRequestID("foo"))
	assert.True(ValidRequestID("cropped_photo"))
	assert.False(ValidRequestID("foo_cropped"))
	assert.False(ValidRequestID("foo_deform"))
	assert.False(ValidRequestID("foo_face"))
	assert.False(ValidRequestID("../foo"))
}
