package models

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrRoomNotFound is returned when a room id is not in the registry.
// Signal relays and frame submissions into an unknown room treat this as a
// broadcast to an empty set, not a failure.
var ErrRoomNotFound = errors.New("room not found")

// Room scopes membership and broadcast for one meeting. Clients are keyed by
// session id.
type Room struct {
	ID           string             `json:"id"`
	Clients      map[string]*Client `json:"-"`
	Mu           sync.RWMutex       `json:"-"`
	LastActivity time.Time          `json:"last_activity"`
}

// NewRoom creates an empty room.
func NewRoom(id string) *Room {
	return &Room{
		ID:           id,
		Clients:      make(map[string]*Client),
		LastActivity: time.Now(),
	}
}

// AddClient registers a client in the room. Adding the same session twice is
// idempotent; a re-join with the same sid just refreshes the entry.
func (r *Room) AddClient(client *Client) {
	r.Mu.Lock()
	defer r.Mu.Unlock()
	r.Clients[client.SID] = client
	r.LastActivity = time.Now()
}

// RemoveClient drops the client from the room and reports whether the room
// is now empty. The caller owns connection teardown; the send channel is not
// touched here so a room switch can reuse the connection.
func (r *Room) RemoveClient(client *Client) bool {
	r.Mu.Lock()
	defer r.Mu.Unlock()
	delete(r.Clients, client.SID)
	r.LastActivity = time.Now()
	return len(r.Clients) == 0
}

// HasClient reports whether the session is currently a member.
func (r *Room) HasClient(sid string) bool {
	r.Mu.RLock()
	defer r.Mu.RUnlock()
	_, ok := r.Clients[sid]
	return ok
}

// Members returns the session ids currently in the room.
func (r *Room) Members() []string {
	r.Mu.RLock()
	defer r.Mu.RUnlock()
	members := make([]string, 0, len(r.Clients))
	for sid := range r.Clients {
		members = append(members, sid)
	}
	return members
}

// MemberCount returns the number of live members.
func (r *Room) MemberCount() int {
	r.Mu.RLock()
	defer r.Mu.RUnlock()
	return len(r.Clients)
}

// Broadcast sends a message to every client in the room except excludeSID.
// Pass an empty excludeSID to reach everyone. Slow clients with a full send
// channel have the frame dropped rather than stalling the room.
func (r *Room) Broadcast(message []byte, excludeSID string) {
	if message == nil {
		return
	}
	r.Mu.RLock()
	targets := make([]*Client, 0, len(r.Clients))
	for sid, client := range r.Clients {
		if sid == excludeSID {
			continue
		}
		targets = append(targets, client)
	}
	r.Mu.RUnlock()

	for _, client := range targets {
		if !client.Emit(message) {
			log.Printf("[ERROR] Dropped frame for client %s in room %s: channel full", client.SID, r.ID)
		}
	}
}

// BroadcastAll sends a message to every member, the originator included.
// Fraud alerts use this path so the monitored client sees its own alert.
func (r *Room) BroadcastAll(message []byte) {
	r.Broadcast(message, "")
}

// UpdateActivity refreshes the idle timestamp used by the cleanup sweep.
func (r *Room) UpdateActivity() {
	r.Mu.Lock()
	defer r.Mu.Unlock()
	r.LastActivity = time.Now()
}

// Save mirrors a snapshot of the room to Redis. The in-memory registry stays
// authoritative; the mirror is a cache for external observers.
func (r *Room) Save(ctx context.Context, rdb *redis.Client) error {
	if rdb == nil {
		return nil
	}
	r.Mu.RLock()
	snapshot := struct {
		ID           string    `json:"id"`
		Members      []string  `json:"members"`
		LastActivity time.Time `json:"last_activity"`
	}{
		ID:           r.ID,
		LastActivity: r.LastActivity,
	}
	for sid := range r.Clients {
		snapshot.Members = append(snapshot.Members, sid)
	}
	r.Mu.RUnlock()

	data, err := json.Marshal(snapshot)
	if err != nil {
		return err
	}
	return rdb.Set(ctx, "room:"+r.ID, data, 0).Err()
}

// RoomManager defines the registry interface handlers depend on.
type RoomManager interface {
	GetRoom(roomID string) (*Room, error)
	GetOrCreateRoom(roomID string) (*Room, error)
	GetAllRooms() []*Room
	RemoveRoom(roomID string) error
	RemoveRoomIfEmpty(roomID string) bool
	SetRedisClient(rdb *redis.Client)
}

type roomManagerImpl struct {
	rooms map[string]*Room
	mu    sync.RWMutex
	rdb   *redis.Client
}

// NewRoomManager creates an empty registry. The registry is an injected
// dependency owned by main; there is deliberately no package-level instance.
func NewRoomManager() RoomManager {
	return &roomManagerImpl{
		rooms: make(map[string]*Room),
	}
}

func (rm *roomManagerImpl) SetRedisClient(rdb *redis.Client) {
	rm.rdb = rdb
}

func (rm *roomManagerImpl) GetRoom(roomID string) (*Room, error) {
	rm.mu.RLock()
	defer rm.mu.RUnlock()
	room, exists := rm.rooms[roomID]
	if !exists {
		return nil, ErrRoomNotFound
	}
	return room, nil
}

// GetOrCreateRoom returns the room, creating it on first join.
func (rm *roomManagerImpl) GetOrCreateRoom(roomID string) (*Room, error) {
	rm.mu.Lock()
	defer rm.mu.Unlock()

	if room, exists := rm.rooms[roomID]; exists {
		return room, nil
	}

	room := NewRoom(roomID)
	rm.rooms[roomID] = room
	log.Printf("[INFO] Created room %s", roomID)

	if rm.rdb != nil {
		if err := room.Save(context.Background(), rm.rdb); err != nil {
			log.Printf("[ERROR] Failed to mirror room %s to Redis: %v", roomID, err)
		}
	}
	return room, nil
}

func (rm *roomManagerImpl) GetAllRooms() []*Room {
	rm.mu.RLock()
	defer rm.mu.RUnlock()
	rooms := make([]*Room, 0, len(rm.rooms))
	for _, room := range rm.rooms {
		rooms = append(rooms, room)
	}
	return rooms
}

// RemoveRoom deletes the room from the registry and its Redis mirror.
func (rm *roomManagerImpl) RemoveRoom(roomID string) error {
	rm.mu.Lock()
	defer rm.mu.Unlock()

	room, exists := rm.rooms[roomID]
	if !exists {
		return ErrRoomNotFound
	}

	if rm.rdb != nil {
		if err := rm.rdb.Del(context.Background(), "room:"+roomID).Err(); err != nil {
			log.Printf("[ERROR] Failed to remove room %s mirror from Redis: %v", roomID, err)
		}
	}

	delete(rm.rooms, roomID)
	log.Printf("[INFO] Removed room %s (members at removal: %d)", roomID, room.MemberCount())
	return nil
}

// RemoveRoomIfEmpty deletes the room only when it still has no members at
// deletion time, re-checked under the registry lock. A client can leave and
// another join the same id before the prune runs; an unconditional delete
// would strand the new member in a room the registry no longer holds.
// Returns whether the room was removed.
func (rm *roomManagerImpl) RemoveRoomIfEmpty(roomID string) bool {
	rm.mu.Lock()
	defer rm.mu.Unlock()

	room, exists := rm.rooms[roomID]
	if !exists {
		return false
	}
	if room.MemberCount() > 0 {
		return false
	}

	if rm.rdb != nil {
		if err := rm.rdb.Del(context.Background(), "room:"+roomID).Err(); err != nil {
			log.Printf("[ERROR] Failed to remove room %s mirror from Redis: %v", roomID, err)
		}
	}

	delete(rm.rooms, roomID)
	log.Printf("[INFO] Pruned empty room %s", roomID)
	return true
}
