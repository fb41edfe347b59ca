package models

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"
)

func newTestClient(sid string) *Client {
	return &Client{
		SID:  sid,
		Send: make(chan []byte, 16),
		Done: make(chan struct{}),
	}
}

func drain(c *Client) [][]byte {
	var messages [][]byte
	for {
		select {
		case msg := <-c.Send:
			messages = append(messages, msg)
		default:
			return messages
		}
	}
}

func TestRoom_MembershipTracksJoinsAndLeaves(t *testing.T) {
	room := NewRoom("meeting-1")
	alice := newTestClient("alice")
	bob := newTestClient("bob")

	room.AddClient(alice)
	room.AddClient(bob)
	// Re-adding the same session must be idempotent.
	room.AddClient(alice)

	if got := room.MemberCount(); got != 2 {
		t.Fatalf("expected 2 members after joins, got %d", got)
	}
	if !room.HasClient("alice") || !room.HasClient("bob") {
		t.Error("expected both sessions to be members")
	}

	empty := room.RemoveClient(alice)
	if empty {
		t.Error("room must not report empty while bob remains")
	}
	if room.HasClient("alice") {
		t.Error("alice must be gone after removal")
	}

	if empty := room.RemoveClient(bob); !empty {
		t.Error("room must report empty after last member leaves")
	}
}

func TestRoom_BroadcastExcludesSender(t *testing.T) {
	room := NewRoom("meeting-1")
	sender := newTestClient("sender")
	peer1 := newTestClient("peer1")
	peer2 := newTestClient("peer2")
	room.AddClient(sender)
	room.AddClient(peer1)
	room.AddClient(peer2)

	payload := []byte(`{"event":"signal","room":"meeting-1","sdp":"offer"}`)
	room.Broadcast(payload, "sender")

	if got := drain(sender); len(got) != 0 {
		t.Errorf("sender must never receive its own signal, got %d frames", len(got))
	}
	for _, peer := range []*Client{peer1, peer2} {
		got := drain(peer)
		if len(got) != 1 {
			t.Fatalf("peer %s expected exactly 1 frame, got %d", peer.SID, len(got))
		}
		if string(got[0]) != string(payload) {
			t.Errorf("peer %s received altered payload: %s", peer.SID, got[0])
		}
	}
}

func TestRoom_BroadcastAllIncludesEveryone(t *testing.T) {
	room := NewRoom("meeting-1")
	origin := newTestClient("origin")
	peer := newTestClient("peer")
	room.AddClient(origin)
	room.AddClient(peer)

	room.BroadcastAll(MarshalEvent("fraud-alert", map[string]interface{}{"message": ""}))

	for _, c := range []*Client{origin, peer} {
		got := drain(c)
		if len(got) != 1 {
			t.Fatalf("client %s expected the alert, got %d frames", c.SID, len(got))
		}
		var parsed struct {
			Event   string `json:"event"`
			Message string `json:"message"`
		}
		if err := json.Unmarshal(got[0], &parsed); err != nil {
			t.Fatalf("client %s received unparsable frame: %v", c.SID, err)
		}
		if parsed.Event != "fraud-alert" {
			t.Errorf("expected fraud-alert event, got %q", parsed.Event)
		}
		if parsed.Message != "" {
			t.Errorf("all-clear alert must carry an empty message, got %q", parsed.Message)
		}
	}
}

func TestRoom_BroadcastDropsWhenChannelFull(t *testing.T) {
	room := NewRoom("meeting-1")
	slow := &Client{SID: "slow", Send: make(chan []byte), Done: make(chan struct{})}
	room.AddClient(slow)

	// Unbuffered channel with no reader: the broadcast must not block.
	room.Broadcast([]byte(`{"event":"signal"}`), "")
}

func TestRoomManager_GetRoomUnknownID(t *testing.T) {
	rm := NewRoomManager()
	if _, err := rm.GetRoom("nope"); !errors.Is(err, ErrRoomNotFound) {
		t.Fatalf("expected ErrRoomNotFound, got %v", err)
	}
}

func TestRoomManager_GetOrCreateRoomIsStable(t *testing.T) {
	rm := NewRoomManager()
	first, err := rm.GetOrCreateRoom("meeting-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, err := rm.GetOrCreateRoom("meeting-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if first != second {
		t.Error("GetOrCreateRoom must return the same room for the same id")
	}
	if len(rm.GetAllRooms()) != 1 {
		t.Errorf("expected exactly 1 room, got %d", len(rm.GetAllRooms()))
	}
}

func TestRoomManager_RemoveRoom(t *testing.T) {
	rm := NewRoomManager()
	if _, err := rm.GetOrCreateRoom("meeting-1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := rm.RemoveRoom("meeting-1"); err != nil {
		t.Fatalf("unexpected error removing room: %v", err)
	}
	if _, err := rm.GetRoom("meeting-1"); !errors.Is(err, ErrRoomNotFound) {
		t.Error("room must be gone after removal")
	}
	if err := rm.RemoveRoom("meeting-1"); !errors.Is(err, ErrRoomNotFound) {
		t.Errorf("removing a missing room must return ErrRoomNotFound, got %v", err)
	}
}

func TestRoomManager_PruneSparesRoomReclaimedByNewJoin(t *testing.T) {
	rm := NewRoomManager()
	room, err := rm.GetOrCreateRoom("meeting-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	alice := newTestClient("alice")
	room.AddClient(alice)
	if empty := room.RemoveClient(alice); !empty {
		t.Fatal("room must report empty after the last member leaves")
	}

	// Someone joins the same meeting id before the prune runs.
	bob := newTestClient("bob")
	room.AddClient(bob)

	if removed := rm.RemoveRoomIfEmpty("meeting-1"); removed {
		t.Fatal("prune must not delete a room that gained a member")
	}
	got, err := rm.GetRoom("meeting-1")
	if err != nil {
		t.Fatalf("room must still be registered, got %v", err)
	}
	if !got.HasClient("bob") {
		t.Error("the new member must still be reachable through the registry")
	}
}

func TestRoomManager_RemoveRoomIfEmpty(t *testing.T) {
	rm := NewRoomManager()
	if _, err := rm.GetOrCreateRoom("meeting-1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if removed := rm.RemoveRoomIfEmpty("meeting-1"); !removed {
		t.Error("an empty room must be pruned")
	}
	if _, err := rm.GetRoom("meeting-1"); !errors.Is(err, ErrRoomNotFound) {
		t.Error("room must be gone after the prune")
	}
	if removed := rm.RemoveRoomIfEmpty("meeting-1"); removed {
		t.Error("pruning an unknown room must be a no-op")
	}
}

func TestRoom_ConcurrentJoinsLoseNoMembers(t *testing.T) {
	room := NewRoom("meeting-1")
	const n = 50

	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			room.AddClient(newTestClient(fmt.Sprintf("sid-%d", i)))
		}(i)
	}
	wg.Wait()

	if got := room.MemberCount(); got != n {
		t.Fatalf("expected %d members after concurrent joins, got %d", n, got)
	}
}
