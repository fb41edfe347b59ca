package models

import (
	"encoding/json"
	"log"
)

// Envelope is the first-pass parse of every inbound WebSocket frame.
// Only the routing fields are decoded here; signaling payloads stay opaque
// and are relayed as the raw bytes they arrived in.
type Envelope struct {
	Event    string `json:"event"`
	Room     string `json:"room,omitempty"`
	Username string `json:"username,omitempty"`
	Count    int    `json:"count,omitempty"`
}

// MarshalEvent builds an outbound event frame. Extra fields are merged next
// to the event tag so clients see flat objects like {"event":"user-joined","sid":...}.
func MarshalEvent(event string, fields map[string]interface{}) []byte {
	m := make(map[string]interface{}, len(fields)+1)
	for k, v := range fields {
		m[k] = v
	}
	m["event"] = event
	b, err := json.Marshal(m)
	if err != nil {
		log.Printf("[ERROR] Failed to marshal %s event: %v", event, err)
		return nil
	}
	return b
}
