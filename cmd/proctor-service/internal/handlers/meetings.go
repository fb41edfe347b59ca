package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/aqs21/TrueScreen/cmd/proctor-service/internal/models"
)

// MeetingHandler schedules meetings and answers join-time lookups.
type MeetingHandler struct {
	meetings *models.MeetingRegistry
}

// NewMeetingHandler wires the handler to the injected registry.
func NewMeetingHandler(meetings *models.MeetingRegistry) *MeetingHandler {
	return &MeetingHandler{meetings: meetings}
}

// Create handles POST /api/meetings: mints a short meeting id and records it
// as joinable.
func (h *MeetingHandler) Create(w http.ResponseWriter, r *http.Request) {
	meetingID := models.NewMeetingID()
	h.meetings.Schedule(meetingID)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(map[string]string{"meetingId": meetingID})
}

// Get handles GET /api/meetings/{meetingId}: the existence check behind the
// join form.
func (h *MeetingHandler) Get(w http.ResponseWriter, r *http.Request) {
	meetingID := mux.Vars(r)["meetingId"]
	if !h.meetings.Exists(meetingID) {
		http.Error(w, "Invalid Meeting ID", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"meetingId": meetingID})
}
