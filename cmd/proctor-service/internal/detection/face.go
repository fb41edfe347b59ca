package detection

import (
	"fmt"
	"image"
	"os"

	pigo "github.com/esimov/pigo/core"
)

// FaceDetector counts face regions in a decoded frame. The pipeline only
// consumes "at least one", but the count is useful in logs.
type FaceDetector interface {
	CountFaces(img image.Image) (int, error)
}

// PigoDetector runs a local pigo cascade, filling the role a Haar cascade
// plays in the usual OpenCV setup without leaving the process.
type PigoDetector struct {
	classifier *pigo.Pigo

	// qualityThreshold filters low-confidence detections; pigo's examples
	// use values around 5.0.
	qualityThreshold float32
}

// NewPigoDetector loads and unpacks a binary cascade file.
func NewPigoDetector(cascadePath string) (*PigoDetector, error) {
	cascade, err := os.ReadFile(cascadePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read cascade file %s: %w", cascadePath, err)
	}

	classifier, err := pigo.NewPigo().Unpack(cascade)
	if err != nil {
		return nil, fmt.Errorf("failed to unpack cascade file %s: %w", cascadePath, err)
	}

	return &PigoDetector{
		classifier:       classifier,
		qualityThreshold: 5.0,
	}, nil
}

// CountFaces runs the cascade over the frame and returns the number of
// clustered detections above the quality threshold.
func (d *PigoDetector) CountFaces(img image.Image) (int, error) {
	bounds := img.Bounds()
	rows, cols := bounds.Dy(), bounds.Dx()
	if rows == 0 || cols == 0 {
		return 0, fmt.Errorf("empty frame: %dx%d", cols, rows)
	}

	pixels := pigo.RgbToGrayscale(img)

	params := pigo.CascadeParams{
		MinSize:     20,
		MaxSize:     1000,
		ShiftFactor: 0.1,
		ScaleFactor: 1.1,
		ImageParams: pigo.ImageParams{
			Pixels: pixels,
			Rows:   rows,
			Cols:   cols,
			Dim:    cols,
		},
	}

	detections := d.classifier.RunCascade(params, 0.0)
	detections = d.classifier.ClusterDetections(detections, 0.2)

	count := 0
	for _, det := range detections {
		if det.Q >= d.qualityThreshold {
			count++
		}
	}
	return count, nil
}
