package facedeform

import (
	"errors"
	"fmt"
	"image"
	"math"
	"os"

	"github.com/esimov/facedeform/utils"
	pigo "github.com/esimov/pigo/core"
	"github.com/sirupsen/logrus"
)

// BoundingBox is an axis-aligned face region in source image pixel coordinates.
type BoundingBox struct {
	X      int `json:"x"`
	Y      int `json:"y"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

// Rect returns the box as an image.Rectangle.
func (b BoundingBox) Rect() image.Rectangle {
	return image.Rect(b.X, b.Y, b.X+b.Width, b.Y+b.Height)
}

// DetectionResult holds the detected boxes in classifier scan order.
// The first element is whatever the scan confirmed first, not the largest or most confident one.
type DetectionResult []BoundingBox

// Locator finds face regions in an image.
type Locator interface {
	Locate(img *image.NRGBA) DetectionResult
}

// PigoLocator runs the pigo pixel intensity comparison cascade over the image.
// The unpacked cascade is read-only, so a single PigoLocator can serve concurrent callers.
type PigoLocator struct {
	classifier   *pigo.Pigo
	scaleFactor  float64
	shiftFactor  float64
	minSize      int
	maxSize      int
	minNeighbors int
	iouThreshold float64
	angle        float64
	log          logrus.FieldLogger
}

var _ Locator = (*PigoLocator)(nil)

// NewPigoLocator unpacks the binary cascade and binds it to the detection parameters of cfg.
func NewPigoLocator(cascade []byte, cfg Config, log logrus.FieldLogger) (*PigoLocator, error) {
	// The header holds 8 reserved bytes followed by the tree depth and the number of trees.
	if len(cascade) < 16 {
		return nil, errors.New("error unpacking the cascade file: file too short")
	}
	classifier, err := unpackCascade(cascade)
	if err != nil {
		return nil, fmt.Errorf("error unpacking the cascade file: %w", err)
	}
	if log == nil {
		log = logrus.StandardLogger()
	}

	return &PigoLocator{
		classifier:   classifier,
		scaleFactor:  cfg.ScaleFactor,
		shiftFactor:  cfg.ShiftFactor,
		minSize:      cfg.MinSize,
		maxSize:      cfg.MaxSize,
		minNeighbors: cfg.MinNeighbors,
		iouThreshold: cfg.IoUThreshold,
		angle:        cfg.FaceAngle,
		log:          log,
	}, nil
}

// NewPigoLocatorFromFile reads the cascade from cfg.CascadeFile.
func NewPigoLocatorFromFile(cfg Config, log logrus.FieldLogger) (*PigoLocator, error) {
	if cfg.CascadeFile == "" {
		return nil, errors.New("no cascade classifier file provided")
	}
	cascade, err := os.ReadFile(cfg.CascadeFile)
	if err != nil {
		return nil, fmt.Errorf("error reading the cascade file: %w", err)
	}
	return NewPigoLocator(cascade, cfg, log)
}

// unpackCascade converts a malformed cascade panic into an error.
func unpackCascade(cascade []byte) (classifier *pigo.Pigo, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("malformed cascade: %v", r)
		}
	}()
	return pigo.NewPigo().Unpack(cascade)
}

// Locate converts the image to grayscale, runs the multi-scale cascade and
// returns the confirmed face regions in scan order.
func (pl *PigoLocator) Locate(img *image.NRGBA) DetectionResult {
	cols, rows := img.Bounds().Dx(), img.Bounds().Dy()

	dets := pl.candidates(img)
	groups := groupDetections(dets, pl.iouThreshold, pl.minNeighbors)
	faces := detectionsToBoxes(groups, cols, rows)

	pl.log.WithFields(logrus.Fields{
		"candidates": len(dets),
		"faces":      len(faces),
	}).Debug("face detection done")

	return faces
}

// candidates returns every window accepted by the cascade, in scan order.
func (pl *PigoLocator) candidates(img *image.NRGBA) []pigo.Detection {
	cols, rows := img.Bounds().Dx(), img.Bounds().Dy()
	maxSize := pl.maxSize
	if maxSize <= 0 {
		maxSize = utils.Min(cols, rows)
	}

	params := pigo.CascadeParams{
		MinSize:     pl.minSize,
		MaxSize:     maxSize,
		ShiftFactor: pl.shiftFactor,
		ScaleFactor: pl.scaleFactor,
		ImageParams: pigo.ImageParams{
			Pixels: rgbToGrayscale(img),
			Rows:   rows,
			Cols:   cols,
			Dim:    cols,
		},
	}
	return pl.classifier.RunCascade(params, pl.angle)
}

// group is a cluster of overlapping candidate windows.
type group struct {
	pigo.Detection
	neighbors int
}

// groupDetections clusters the raw candidate windows by intersection over union.
// Clusters are seeded in scan order and keep that order. A cluster is confirmed only
// when at least minNeighbors candidate windows agree on it.
func groupDetections(dets []pigo.Detection, iouThreshold float64, minNeighbors int) []group {
	assigned := make([]bool, len(dets))
	groups := []group{}

	for i := range dets {
		if assigned[i] {
			continue
		}
		var (
			r, c, s, n int
			q          float32
		)
		for j := i; j < len(dets); j++ {
			if assigned[j] {
				continue
			}
			if iou(dets[i], dets[j]) > iouThreshold {
				assigned[j] = true
				r += dets[j].Row
				c += dets[j].Col
				s += dets[j].Scale
				q += dets[j].Q
				n++
			}
		}
		if n >= minNeighbors {
			groups = append(groups, group{
				Detection: pigo.Detection{Row: r / n, Col: c / n, Scale: s / n, Q: q},
				neighbors: n,
			})
		}
	}
	return groups
}

// iou returns the intersection over union of two square detection windows.
func iou(det1, det2 pigo.Detection) float64 {
	r1, c1, s1 := float64(det1.Row), float64(det1.Col), float64(det1.Scale)
	r2, c2, s2 := float64(det2.Row), float64(det2.Col), float64(det2.Scale)

	overRow := math.Max(0, math.Min(r1+s1/2, r2+s2/2)-math.Max(r1-s1/2, r2-s2/2))
	overCol := math.Max(0, math.Min(c1+s1/2, c2+s2/2)-math.Max(c1-s1/2, c2-s2/2))

	return overRow * overCol / (s1*s1 + s2*s2 - overRow*overCol)
}

// detectionsToBoxes converts the (row, col, scale) centers into boxes clipped to the image.
func detectionsToBoxes(groups []group, cols, rows int) DetectionResult {
	faces := make(DetectionResult, 0, len(groups))
	for _, g := range groups {
		x0 := utils.Clamp(g.Col-g.Scale/2, 0, cols)
		y0 := utils.Clamp(g.Row-g.Scale/2, 0, rows)
		x1 := utils.Clamp(g.Col+g.Scale/2, 0, cols)
		y1 := utils.Clamp(g.Row+g.Scale/2, 0, rows)
		if x1 <= x0 || y1 <= y0 {
			continue
		}
		faces = append(faces, BoundingBox{X: x0, Y: y0, Width: x1 - x0, Height: y1 - y0})
	}
	return faces
}
