package server

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/esimov/facedeform"
	"github.com/esimov/facedeform/logger"
	"github.com/esimov/facedeform/store"
	jsoniter "github.com/json-iterator/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type staticLocator facedeform.DetectionResult

func (l staticLocator) Locate(*image.NRGBA) facedeform.DetectionResult {
	return facedeform.DetectionResult(l)
}

func photo(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetNRGBA(x, y, color.NRGBA{R: uint8(x), G: uint8(y), B: 128, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

// photoServer serves body under /photo and a 404 everywhere else.
func photoServer(t *testing.T, body []byte) *httptest.Server {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/photo" {
			http.NotFound(w, r)
			return
		}
		w.Write(body)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func newTestServer(t *testing.T, variant facedeform.StyleVariant, faces ...facedeform.BoundingBox) (*Server, *store.FileStore) {
	t.Helper()
	cfg := facedeform.DefaultConfig()
	cfg.Variant = variant
	return newTestServerWithConfig(t, cfg, faces...)
}

func newTestServerWithConfig(t *testing.T, cfg facedeform.Config, faces ...facedeform.BoundingBox) (*Server, *store.FileStore) {
	t.Helper()

	p, err := facedeform.NewPipeline(cfg, staticLocator(faces), facedeform.WithLogger(logger.Discard()))
	require.NoError(t, err)

	st, err := store.NewFileStore(t.TempDir())
	require.NoError(t, err)

	s, err := NewServer(
		WithLogger(logger.Discard()),
		WithPipeline(p),
		WithStore(st),
		WithFetchTimeout(5*time.Second),
	)
	require.NoError(t, err)
	return s, st
}

func generate(t *testing.T, s *Server, body string, header ...string) (*http.Response, GenerateResponse) {
	t.Helper()

	req := httptest.NewRequest(http.MethodPost, "/api/generate", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	for i := 0; i+1 < len(header); i += 2 {
		req.Header.Set(header[i], header[i+1])
	}
	resp, err := s.App().Test(req, -1)
	require.NoError(t, err)

	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	var out GenerateResponse
	require.NoError(t, jsoniter.Unmarshal(data, &out), string(data))
	return resp, out
}

func TestServer_Health(t *testing.T) {
	s, _ := newTestServer(t, facedeform.Frame)

	resp, err := s.App().Test(httptest.NewRequest(http.MethodGet, "/", nil), -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.NotEmpty(t, resp.Header.Get(RequestIDHeader))
}

func TestServer_ShouldRequireCollaborators(t *testing.T) {
	_, err := NewServer(WithLogger(logger.Discard()))
	assert.Error(t, err)

	_, err = NewServer(WithFetchTimeout(0))
	assert.Error(t, err)
}

func TestServer_GenerateSuccess(t *testing.T) {
	assert := assert.New(t)

	box := facedeform.BoundingBox{X: 40, Y: 30, Width: 80, Height: 80}
	s, st := newTestServer(t, facedeform.Frame, box)
	srv := photoServer(t, photo(t, 200, 160))

	resp, out := generate(t, s, `{"photo_url":"`+srv.URL+`/photo","request_id":"user_42"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	assert.Equal("ok", out.Status)
	assert.Equal("user_42", out.RequestID)
	assert.Equal(1, out.Faces)
	assert.Equal(&box, out.Box)
	assert.Equal("/api/preview/user_42.png", out.Source)
	assert.Equal("/api/preview/user_42_cropped.png", out.Cropped)
	assert.Equal("/api/preview/user_42_deform.png", out.Deformed)
	assert.Empty(out.Debug)

	for _, key := range []string{"user_42.png", "user_42_cropped.png", "user_42_deform.png"} {
		assert.FileExists(st.Dir() + "/" + key)
	}

	preview, err := s.App().Test(httptest.NewRequest(http.MethodGet, out.Deformed, nil), -1)
	require.NoError(t, err)
	assert.Equal(http.StatusOK, preview.StatusCode)
	assert.Equal("image/png", preview.Header.Get("Content-Type"))
	assert.Contains(preview.Header.Get("Content-Disposition"), "user_42_deform.png")

	data, err := io.ReadAll(preview.Body)
	require.NoError(t, err)
	img, err := png.Decode(bytes.NewReader(data))
	require.NoError(t, err)
	// A 80px box padded to 112px: floor(112*1.2)+60 x floor(112*0.8)+60
	assert.Equal(image.Rect(0, 0, 194, 149), img.Bounds())
}

func TestServer_GenerateShouldUseHeaderRequestID(t *testing.T) {
	s, _ := newTestServer(t, facedeform.Frame)
	srv := photoServer(t, photo(t, 50, 50))

	resp, out := generate(t, s, `{"photo_url":"`+srv.URL+`/photo"}`, RequestIDHeader, "from-header")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "from-header", out.RequestID)
	assert.Equal(t, "from-header", resp.Header.Get(RequestIDHeader))
}

func TestServer_BodyRequestIDShouldWin(t *testing.T) {
	s, _ := newTestServer(t, facedeform.Frame)
	srv := photoServer(t, photo(t, 50, 50))

	resp, out := generate(t, s, `{"photo_url":"`+srv.URL+`/photo","request_id":"from-body"}`, RequestIDHeader, "from-header")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "from-body", out.RequestID)
	assert.Equal(t, "from-body", resp.Header.Get(RequestIDHeader))
}

func TestServer_HeaderRequestIDWithArtifactSuffix(t *testing.T) {
	s, _ := newTestServer(t, facedeform.Frame)
	srv := photoServer(t, photo(t, 50, 50))

	resp, out := generate(t, s, `{"photo_url":"`+srv.URL+`/photo"}`, RequestIDHeader, "foo_cropped")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.NotEqual(t, "foo_cropped", out.RequestID)
	assert.Len(t, out.RequestID, 26)
}

func TestServer_GenerateWithArtifactFormat(t *testing.T) {
	assert := assert.New(t)

	cfg := facedeform.DefaultConfig()
	cfg.ArtifactFormat = facedeform.FormatJPEG
	s, st := newTestServerWithConfig(t, cfg, facedeform.BoundingBox{X: 40, Y: 30, Width: 80, Height: 80})
	srv := photoServer(t, photo(t, 200, 160))

	resp, out := generate(t, s, `{"photo_url":"`+srv.URL+`/photo","request_id":"jpeg"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal("/api/preview/jpeg_cropped.jpg", out.Cropped)
	assert.Equal("/api/preview/jpeg_deform.jpg", out.Deformed)
	assert.FileExists(st.Dir() + "/jpeg_deform.jpg")

	preview, err := s.App().Test(httptest.NewRequest(http.MethodGet, out.Deformed, nil), -1)
	require.NoError(t, err)
	assert.Equal(http.StatusOK, preview.StatusCode)
	assert.Equal("image/jpeg", preview.Header.Get("Content-Type"))
}

func TestServer_GenerateNoFace(t *testing.T) {
	s, _ := newTestServer(t, facedeform.Frame)
	srv := photoServer(t, photo(t, 50, 50))

	resp, out := generate(t, s, `{"photo_url":"`+srv.URL+`/photo"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "no_face", out.Status)
	assert.Equal(t, "No face detected", out.Message)
	assert.Empty(t, out.Cropped)
	assert.Empty(t, out.Deformed)
	assert.Len(t, out.RequestID, 26)
}

func TestServer_GenerateDecodeFailure(t *testing.T) {
	s, _ := newTestServer(t, facedeform.Frame)
	srv := photoServer(t, append([]byte("GIF89a"), make([]byte, 32)...))

	resp, out := generate(t, s, `{"photo_url":"`+srv.URL+`/photo"}`)
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	assert.Equal(t, "decode_failure", out.Status)
	assert.NotEmpty(t, out.Error)
}

func TestServer_GenerateStylizeFailure(t *testing.T) {
	assert := assert.New(t)

	box := facedeform.BoundingBox{X: 10, Y: 10, Width: 10, Height: 10}
	s, st := newTestServer(t, facedeform.Enlarge, box)
	srv := photoServer(t, photo(t, 50, 50))

	resp, out := generate(t, s, `{"photo_url":"`+srv.URL+`/photo","request_id":"small"}`)
	assert.Equal(http.StatusInternalServerError, resp.StatusCode)
	assert.Equal("stylize_failure", out.Status)
	assert.Equal("small_cropped", out.CroppedKey)
	assert.Empty(out.Cropped)
	assert.Equal(&box, out.Box)
	assert.Equal("small", out.TraceID)
	assert.NoFileExists(st.Dir() + "/small_cropped.png")
}

func TestServer_GenerateFetchFailure(t *testing.T) {
	s, _ := newTestServer(t, facedeform.Frame)
	srv := photoServer(t, photo(t, 10, 10))

	resp, out := generate(t, s, `{"photo_url":"`+srv.URL+`/missing"}`)
	assert.Equal(t, http.StatusBadGateway, resp.StatusCode)
	assert.Equal(t, "error", out.Status)
	assert.NotEmpty(t, out.TraceID)
}

func TestServer_GenerateValidation(t *testing.T) {
	s, _ := newTestServer(t, facedeform.Frame)

	bodies := []string{
		`{}`,
		`{"photo_url":"not a url"}`,
		`{"photo_url":"https://example.com/a.jpg","email":"nope"}`,
		`{"photo_url":"https://example.com/a.jpg","request_id":"../../etc"}`,
		`{"photo_url":`,
		`{"photo_url":"https://example.com/a.jpg","request_id":"foo_cropped"}`,
		`{"photo_url":"https://example.com/a.jpg","request_id":"foo_deform"}`,
		`{"photo_url":"https://example.com/a.jpg","request_id":"foo_face"}`,
	}
	for _, body := range bodies {
		resp, out := generate(t, s, body)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode, body)
		assert.Equal(t, "error", out.Status, body)
	}
}

func TestServer_Preview(t *testing.T) {
	s, st := newTestServer(t, facedeform.Frame)
	_, err := st.Put(context.Background(), "abc_face.png", photo(t, 4, 4), "image/png")
	require.NoError(t, err)

	testCases := []struct {
		path string
		code int
	}{
		{path: "/api/preview/abc_face.png", code: http.StatusOK},
		{path: "/api/preview/missing.png", code: http.StatusNotFound},
		{path: "/api/preview/bad%20name.png", code: http.StatusBadRequest},
		{path: "/api/preview/noext", code: http.StatusBadRequest},
	}
	for _, tc := range testCases {
		resp, err := s.App().Test(httptest.NewRequest(http.MethodGet, tc.path, nil), -1)
		require.NoError(t, err)
		assert.Equal(t, tc.code, resp.StatusCode, tc.path)
	}
}
