package handlers

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/aqs21/TrueScreen/cmd/proctor-service/internal/models"
	"github.com/aqs21/TrueScreen/cmd/proctor-service/internal/monitor"
)

// Constants related to WebSocket settings
const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10

	// SDP offers with many media sections plus trickled candidates can run
	// well past 64KB; an oversized frame kills the connection, so the relay
	// allows 1MB.
	maxMessageSize = 1024 * 1024
)

// WebSocketHandler owns the realtime side: connection upgrade, the per-client
// pumps, and the join-room / signal / tab_switched event dispatch.
type WebSocketHandler struct {
	manager  models.RoomManager
	monitor  *monitor.TabSwitchMonitor
	upgrader websocket.Upgrader
}

// NewWebSocketHandler wires the handler to an injected registry and monitor.
func NewWebSocketHandler(manager models.RoomManager, tabMonitor *monitor.TabSwitchMonitor) *WebSocketHandler {
	return &WebSocketHandler{
		manager: manager,
		monitor: tabMonitor,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  64 * 1024,
			WriteBufferSize: 64 * 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
	}
}

// HandleWebSocket upgrades the connection, assigns a session id and runs the
// read loop until the client goes away. A connection failure only ever tears
// down that one connection.
func (h *WebSocketHandler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[ERROR] Failed to upgrade connection: %v", err)
		return
	}

	client := &models.Client{
		SID:  uuid.New().String(),
		Conn: conn,
		Send: make(chan []byte, 256),
		Done: make(chan struct{}),
	}

	log.Printf("[INFO] WebSocket connection established: sid=%s remote=%s", client.SID, r.RemoteAddr)

	go h.writePump(client)

	// Tell the client its session id before anything else; peers will
	// reference it in user-joined notices.
	if !client.Emit(models.MarshalEvent("connected", map[string]interface{}{"sid": client.SID})) {
		log.Printf("[ERROR] Failed to send connected event to %s", client.SID)
		close(client.Done)
		conn.Close()
		return
	}

	h.readPump(client)
}

func (h *WebSocketHandler) readPump(client *models.Client) {
	defer func() {
		h.teardown(client)
		close(client.Done)
		client.Conn.Close()
		log.Printf("[INFO] WebSocket connection closed: sid=%s", client.SID)
	}()

	client.Conn.SetReadLimit(maxMessageSize)
	client.Conn.SetReadDeadline(time.Now().Add(pongWait))
	client.Conn.SetPongHandler(func(string) error {
		client.Conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, raw, err := client.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("[ERROR] WebSocket read error for %s: %v", client.SID, err)
			}
			break
		}

		var env models.Envelope
		if err := json.Unmarshal(raw, &env); err != nil {
			log.Printf("[ERROR] Malformed frame from %s: %v", client.SID, err)
			continue
		}

		switch env.Event {
		case "join-room":
			h.handleJoin(client, env.Room)
		case "signal":
			h.handleSignal(client, env.Room, raw)
		case "tab_switched":
			h.monitor.Report(context.Background(), client, env.Username, env.Count)
		default:
			log.Printf("[DEBUG] Unknown event %q from %s", env.Event, client.SID)
		}
	}
}

// handleJoin registers the client in the room, then announces it to the
// members that were already there. Membership is updated before the
// announcement, so a relay sent right after joining reaches every peer that
// saw the notice. Joining while already in another room switches rooms.
func (h *WebSocketHandler) handleJoin(client *models.Client, roomID string) {
	if roomID == "" {
		log.Printf("[ERROR] join-room from %s without a room id", client.SID)
		return
	}

	if client.Room != nil && client.Room.ID != roomID {
		h.leaveRoom(client)
	}

	room, err := h.manager.GetOrCreateRoom(roomID)
	if err != nil {
		log.Printf("[ERROR] Failed to get/create room %s: %v", roomID, err)
		return
	}

	room.AddClient(client)
	client.Room = room
	log.Printf("[INFO] Client %s joined room %s (members: %d)", client.SID, roomID, room.MemberCount())

	room.Broadcast(models.MarshalEvent("user-joined", map[string]interface{}{
		"sid": client.SID,
	}), client.SID)
}

// handleSignal relays the raw inbound frame verbatim to the other members of
// the addressed room. Payload contents are the receiving peer's problem.
func (h *WebSocketHandler) handleSignal(client *models.Client, roomID string, raw []byte) {
	room, err := h.manager.GetRoom(roomID)
	if err != nil {
		// Unknown room: a broadcast to an empty set.
		log.Printf("[DEBUG] signal from %s for unknown room %q dropped", client.SID, roomID)
		return
	}
	room.UpdateActivity()
	room.Broadcast(raw, client.SID)
}

// teardown is the deterministic disconnect hook: the client leaves whatever
// room it is in so stale sessions never receive future broadcasts.
func (h *WebSocketHandler) teardown(client *models.Client) {
	if client.Room == nil {
		return
	}
	h.leaveRoom(client)
}

func (h *WebSocketHandler) leaveRoom(client *models.Client) {
	room := client.Room
	client.Room = nil

	empty := room.RemoveClient(client)
	room.Broadcast(models.MarshalEvent("user-left", map[string]interface{}{
		"sid": client.SID,
	}), client.SID)
	log.Printf("[INFO] Client %s left room %s", client.SID, room.ID)

	if empty {
		// Emptiness is re-checked under the registry lock; someone may
		// have joined the same id since RemoveClient reported empty.
		h.manager.RemoveRoomIfEmpty(room.ID)
	}
}

func (h *WebSocketHandler) writePump(client *models.Client) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		client.Conn.Close()
	}()

	for {
		select {
		case message, ok := <-client.Send:
			client.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				client.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := client.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				log.Printf("[ERROR] Failed to write to client %s: %v", client.SID, err)
				return
			}

		case <-ticker.C:
			client.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := client.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}

		case <-client.Done:
			return
		}
	}
}
