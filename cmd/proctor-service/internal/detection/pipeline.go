// Package detection holds the capability adapters (local face presence,
// remote object detection) and the fraud pipeline that combines them into a
// single alert per submitted frame.
package detection

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"log"
)

// ErrBadFrame marks an undecodable frame submission. This is the caller's
// input-validation error; nothing is broadcast for it.
var ErrBadFrame = errors.New("frame is not a decodable image")

// Alert strings broadcast to the room. The empty string is a valid
// "checked, all clear" alert.
const (
	NoPersonAlert         = "⚠️ No Person Detected"
	SuspiciousObjectAlert = "⚠️ Suspicious Object: %s"
)

// Result is the full pipeline outcome for one frame. RemoteErr records a
// failed object-detection call so callers can tell "no detections" apart
// from "the call never happened".
type Result struct {
	Alert       string
	FaceCount   int
	FaceErr     error
	Predictions []Prediction
	RemoteErr   error
}

// Degraded reports whether the result is based on the face signal alone.
func (r Result) Degraded() bool {
	return r.RemoteErr != nil
}

// Pipeline evaluates submitted frames. Both checks always run; a qualifying
// object overrides a face-absence alert.
type Pipeline struct {
	faces         FaceDetector
	objects       ObjectDetector
	minConfidence float64
	minArea       float64
}

// NewPipeline wires the adapters with the qualification thresholds
// (confidence on a 0..1 scale, area in pixel units).
func NewPipeline(faces FaceDetector, objects ObjectDetector, minConfidence, minArea float64) *Pipeline {
	return &Pipeline{
		faces:         faces,
		objects:       objects,
		minConfidence: minConfidence,
		minArea:       minArea,
	}
}

// Evaluate decodes the frame and derives the alert:
//
//  1. zero faces tentatively sets the no-person alert;
//  2. the remote scan runs regardless, and the first prediction meeting both
//     thresholds overwrites the alert (service order, not best confidence);
//  3. a remote failure is recorded and the face-derived alert stands.
//
// The only error return is ErrBadFrame; capability failures degrade instead.
func (p *Pipeline) Evaluate(ctx context.Context, frame []byte) (Result, error) {
	img, _, err := image.Decode(bytes.NewReader(frame))
	if err != nil {
		return Result{}, fmt.Errorf("%w: %v", ErrBadFrame, err)
	}

	var res Result

	count, err := p.faces.CountFaces(img)
	if err != nil {
		// Local capability failure: no face signal at all, so no
		// no-person alert either. Logged, never fatal.
		log.Printf("[ERROR] Face detection failed: %v", err)
		res.FaceErr = err
	} else {
		res.FaceCount = count
		if count == 0 {
			res.Alert = NoPersonAlert
		}
	}

	predictions, err := p.objects.Detect(ctx, frame)
	if err != nil {
		log.Printf("[ERROR] Object detection degraded to face-only signal: %v", err)
		res.RemoteErr = err
		return res, nil
	}
	res.Predictions = predictions

	for _, pred := range predictions {
		if pred.Confidence >= p.minConfidence && pred.Area() >= p.minArea {
			res.Alert = fmt.Sprintf(SuspiciousObjectAlert, pred.Class)
			break
		}
	}
	return res, nil
}
