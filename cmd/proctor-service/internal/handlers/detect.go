package handlers

import (
	"context"
	"errors"
	"io"
	"log"
	"net/http"

	"github.com/aqs21/TrueScreen/cmd/proctor-service/internal/detection"
	"github.com/aqs21/TrueScreen/cmd/proctor-service/internal/models"
	"github.com/aqs21/TrueScreen/internal/ratelimit"
)

// maxFrameBytes caps a single frame upload.
const maxFrameBytes = 10 << 20 // 10MB

// Evaluator is the fraud pipeline as the handler sees it.
type Evaluator interface {
	Evaluate(ctx context.Context, frame []byte) (detection.Result, error)
}

// DetectHandler accepts periodic webcam frames and fans the resulting alert
// out to the whole room, the submitting client included.
type DetectHandler struct {
	manager  models.RoomManager
	pipeline Evaluator
	limiter  *ratelimit.Limiter
}

// NewDetectHandler wires the handler. limiter may be nil.
func NewDetectHandler(manager models.RoomManager, pipeline Evaluator, limiter *ratelimit.Limiter) *DetectHandler {
	return &DetectHandler{manager: manager, pipeline: pipeline, limiter: limiter}
}

// Detect handles POST /detect with multipart fields "room" and "frame".
// Success is 204 with an empty body; the alert only travels over the room
// broadcast. An empty alert is still broadcast so receivers can tell
// "checked, all clear" from "pipeline not running".
func (h *DetectHandler) Detect(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxFrameBytes); err != nil {
		http.Error(w, "Invalid multipart request", http.StatusBadRequest)
		return
	}

	roomID := r.FormValue("room")
	if roomID == "" {
		http.Error(w, "room is required", http.StatusBadRequest)
		return
	}

	file, _, err := r.FormFile("frame")
	if err != nil {
		http.Error(w, "frame is required", http.StatusBadRequest)
		return
	}
	defer file.Close()

	frame, err := io.ReadAll(io.LimitReader(file, maxFrameBytes))
	if err != nil {
		http.Error(w, "failed to read frame", http.StatusBadRequest)
		return
	}

	if err := h.limiter.CheckFrame(r.Context(), roomID); err != nil {
		http.Error(w, "Too many frame submissions", http.StatusTooManyRequests)
		return
	}

	result, err := h.pipeline.Evaluate(r.Context(), frame)
	if err != nil {
		if errors.Is(err, detection.ErrBadFrame) {
			http.Error(w, "frame is not a decodable image", http.StatusBadRequest)
			return
		}
		log.Printf("[ERROR] Pipeline failure for room %s: %v", roomID, err)
		http.Error(w, "detection failed", http.StatusInternalServerError)
		return
	}

	if result.Degraded() {
		log.Printf("[INFO] Alert for room %s computed without object detection: %v", roomID, result.RemoteErr)
	}

	room, err := h.manager.GetRoom(roomID)
	if err != nil {
		// Unknown room is a zero-recipient broadcast, not a failure.
		log.Printf("[DEBUG] fraud-alert for unknown room %q dropped", roomID)
		w.WriteHeader(http.StatusNoContent)
		return
	}

	// A mid-exam session may produce nothing but frames once negotiation
	// settles; they count as activity or the idle sweep reaps a live room.
	room.UpdateActivity()

	room.BroadcastAll(models.MarshalEvent("fraud-alert", map[string]interface{}{
		"message": result.Alert,
	}))
	w.WriteHeader(http.StatusNoContent)
}
