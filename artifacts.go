package facedeform

import (
	"context"
	"errors"
	"fmt"
	"image"
)

// Format is the encoding of the generated artifacts.
type Format string

const (
	FormatPNG  Format = "png"
	FormatJPEG Format = "jpg"
	FormatBMP  Format = "bmp"
)

// Ext returns the file extension of the format. The zero value is PNG.
func (f Format) Ext() string {
	if f == "" {
		return ".png"
	}
	return "." + string(f)
}

// ContentType returns the MIME type of the format.
func (f Format) ContentType() string {
	switch f {
	case FormatJPEG:
		return "image/jpeg"
	case FormatBMP:
		return "image/bmp"
	default:
		return "image/png"
	}
}

// ArtifactStore persists an encoded artifact under key and returns its location.
type ArtifactStore interface {
	Put(ctx context.Context, key string, data []byte, contentType string) (string, error)
	Delete(ctx context.Context, key string) error
}

// Artifacts maps the stored artifact keys to the locations reported by the store.
type Artifacts map[string]string

// ArtifactFile returns the storage key of an artifact identifier.
func ArtifactFile(id string, f Format) string {
	return id + f.Ext()
}

type encoded struct {
	key  string
	data []byte
}

// Persist encodes the images carried by the outcome and writes them to st.
// Failed runs produce no artifact. The debug rendering is written whenever it exists.
// Either every artifact of the outcome is stored or none is.
func Persist(ctx context.Context, st ArtifactStore, requestID string, out Outcome, f Format) (Artifacts, error) {
	var pending []encoded

	add := func(id string, img *image.NRGBA) error {
		key := ArtifactFile(id, f)
		data, err := EncodeBytes(img, key)
		if err != nil {
			return fmt.Errorf("could not encode %s: %w", key, err)
		}
		pending = append(pending, encoded{key: key, data: data})
		return nil
	}

	var err error
	switch o := out.(type) {
	case Success:
		err = errors.Join(add(o.CroppedKey, o.Cropped), add(o.DeformedKey, o.Deformed))
		if err == nil && o.Debug != nil {
			err = add(ArtifactKey(requestID, FaceSuffix), o.Debug)
		}
	case NoFaceDetected:
		if o.Debug != nil {
			err = add(ArtifactKey(requestID, FaceSuffix), o.Debug)
		}
	}
	if err != nil {
		return nil, err
	}

	artifacts := make(Artifacts, len(pending))
	for _, e := range pending {
		loc, err := st.Put(ctx, e.key, e.data, f.ContentType())
		if err != nil {
			err = fmt.Errorf("could not store %s: %w", e.key, err)
			for key := range artifacts {
				if derr := st.Delete(context.WithoutCancel(ctx), key); derr != nil {
					err = errors.Join(err, fmt.Errorf("could not remove %s: %w", key, derr))
				}
			}
			return nil, err
		}
		artifacts[e.key] = loc
	}
	return artifacts, nil
}
