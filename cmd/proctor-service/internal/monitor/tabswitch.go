// Package monitor applies the tab-switch policy to client-reported counts.
// The count is whatever the client last said it was; the server keeps no
// counter of its own and does not verify it.
package monitor

import (
	"context"
	"log"

	"github.com/aqs21/TrueScreen/cmd/proctor-service/internal/models"
	"github.com/aqs21/TrueScreen/internal/notifications"
)

// warningMessage is sent back to the reporting connection on every report.
const warningMessage = "Tab switch detected"

// Notifier receives disqualification flags for a downstream enforcement
// consumer. Enforcement itself happens outside this service.
type Notifier interface {
	Enqueue(ctx context.Context, rec notifications.Record) error
}

// TabSwitchMonitor warns the reporting client and flags reports at or above
// the disqualification threshold.
type TabSwitchMonitor struct {
	threshold int
	notifier  Notifier
}

// New creates a monitor. notifier may be nil; flags are then log-only.
func New(threshold int, notifier Notifier) *TabSwitchMonitor {
	return &TabSwitchMonitor{threshold: threshold, notifier: notifier}
}

// Report handles one tab_switched event. Repeated reports with the same
// count re-trigger the same response; there is no deduplication.
func (m *TabSwitchMonitor) Report(ctx context.Context, client *models.Client, username string, count int) {
	log.Printf("[ALERT] %s switched tabs! Total count: %d", username, count)

	if count >= m.threshold {
		log.Printf("[ALERT] %s switched tabs %d times or more! Consider disqualification.", username, m.threshold)
		meetingID := ""
		if client.Room != nil {
			meetingID = client.Room.ID
		}
		if m.notifier != nil {
			err := m.notifier.Enqueue(ctx, notifications.Record{
				UserID:    username,
				Type:      "disqualification_flag",
				Message:   warningMessage,
				MeetingID: meetingID,
			})
			if err != nil {
				log.Printf("[ERROR] Failed to queue disqualification flag for %s: %v", username, err)
			}
		}
	}

	// The warning goes back to the reporting connection only, never the room.
	if !client.Emit(models.MarshalEvent("tab_switch_warning", map[string]interface{}{
		"message": warningMessage,
	})) {
		log.Printf("[ERROR] Failed to warn client %s: channel full", client.SID)
	}
}
