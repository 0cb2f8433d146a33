// Package realtime fans entity updates out to websocket subscribers.
// Access is not granted once at join time and trusted forever: every
// broadcast re-verifies each subscriber's token and re-evaluates its
// access to the room, evicting connections that no longer qualify.
package realtime

import (
	"context"
	"fmt"
	"net/http"
	"sync"

	"github.com/rs/zerolog/log"
)

type Kind string

const (
	KindNote     Kind = "Note"
	KindTable    Kind = "Table"
	KindDocument Kind = "Document"
	KindBoard    Kind = "Board"
	KindUser     Kind = "User"
)

// Access is the per-user view of a room used to personalize payloads.
type Access struct {
	CanEdit bool
	OwnerID string
}

// AccessFunc decides whether userID may subscribe to the given room
// and with which rights. It must return an error carrying an HTTP
// status (apperr) when access is denied.
type AccessFunc func(ctx context.Context, roomID, userID string) (*Access, error)

// VerifyFunc checks a raw access token and returns the user id.
type VerifyFunc func(raw string) (string, error)

type Hub struct {
	verify VerifyFunc
	access map[Kind]AccessFunc

	mu    sync.RWMutex
	rooms map[string]map[*Client]struct{}
}

func NewHub(verify VerifyFunc) *Hub {
	return &Hub{
		verify: verify,
		access: map[Kind]AccessFunc{},
		rooms:  map[string]map[*Client]struct{}{},
	}
}

// Register installs the access policy for one room kind. Must be
// called for every kind before the hub serves connections.
func (h *Hub) Register(kind Kind, fn AccessFunc) {
	h.access[kind] = fn
}

func roomKey(kind Kind, id string) string {
	return string(kind) + ":" + id
}

// eventName is both the join acknowledgement and the update event for
// a room, e.g. "joinedNote_<id>".
func eventName(kind Kind, id string) string {
	return fmt.Sprintf("joined%s_%s", kind, id)
}

// Join subscribes a client to a room after re-verifying its token and
// running the access check. Denied joins get an error event but keep
// the connection open.
func (h *Hub) Join(ctx context.Context, kind Kind, id string, client *Client) {
	if _, err := h.verify(client.token); err != nil {
		client.sendError(http.StatusUnauthorized, "token expired")
		return
	}
	access, err := h.checkAccess(ctx, kind, id, client.UserID)
	if err != nil {
		client.sendError(statusOf(err), err.Error())
		return
	}

	key := roomKey(kind, id)
	h.mu.Lock()
	if h.rooms[key] == nil {
		h.rooms[key] = map[*Client]struct{}{}
	}
	h.rooms[key][client] = struct{}{}
	h.mu.Unlock()

	ack := map[string]interface{}{"id": id, "canEdit": access.CanEdit}
	if kind == KindNote {
		ack["owner"] = access.OwnerID == client.UserID
	}
	if err := client.send(eventName(kind, id), ack); err != nil {
		h.drop(client)
	}
}

// Leave unsubscribes a client from one room.
func (h *Hub) Leave(kind Kind, id string, client *Client) {
	key := roomKey(kind, id)
	h.mu.Lock()
	if members, ok := h.rooms[key]; ok {
		delete(members, client)
		if len(members) == 0 {
			delete(h.rooms, key)
		}
	}
	h.mu.Unlock()
}

// drop removes a client from every room, used on disconnect.
func (h *Hub) drop(client *Client) {
	h.mu.Lock()
	for key, members := range h.rooms {
		delete(members, client)
		if len(members) == 0 {
			delete(h.rooms, key)
		}
	}
	h.mu.Unlock()
}

// Broadcast delivers payload to every subscriber of the room that
// still passes token verification and the room's access check. The
// payload is copied per subscriber and stamped with that subscriber's
// current rights.
func (h *Hub) Broadcast(ctx context.Context, kind Kind, id string, payload map[string]interface{}) {
	key := roomKey(kind, id)

	h.mu.RLock()
	members := make([]*Client, 0, len(h.rooms[key]))
	for c := range h.rooms[key] {
		members = append(members, c)
	}
	h.mu.RUnlock()

	for _, client := range members {
		if _, err := h.verify(client.token); err != nil {
			h.evict(kind, id, client, http.StatusUnauthorized, "token expired")
			continue
		}
		access, err := h.checkAccess(ctx, kind, id, client.UserID)
		if err != nil {
			h.evict(kind, id, client, statusOf(err), err.Error())
			continue
		}

		out := make(map[string]interface{}, len(payload)+2)
		for k, v := range payload {
			out[k] = v
		}
		out["canEdit"] = access.CanEdit
		if kind == KindNote {
			out["owner"] = access.OwnerID == client.UserID
		}
		h.deliver(key, client, eventName(kind, id), out)
	}
}

// deliver emits to a client only while it is still a room member.
// Holding the room lock across the membership check and the write
// keeps an eviction from a concurrent broadcast (which removes the
// member under the write lock) from being followed by a late payload.
func (h *Hub) deliver(key string, client *Client, event string, data map[string]interface{}) {
	h.mu.RLock()
	if _, member := h.rooms[key][client]; !member {
		h.mu.RUnlock()
		return
	}
	err := client.send(event, data)
	h.mu.RUnlock()
	if err != nil {
		h.drop(client)
	}
}

// checkAccess runs the registered policy; the user kind needs no
// store lookup, a user may only subscribe to its own room.
func (h *Hub) checkAccess(ctx context.Context, kind Kind, roomID, userID string) (*Access, error) {
	if kind == KindUser {
		if roomID != userID {
			return nil, errForbidden
		}
		return &Access{CanEdit: true, OwnerID: userID}, nil
	}
	fn, ok := h.access[kind]
	if !ok {
		log.Error().Str("kind", string(kind)).Msg("no access policy registered for room kind")
		return nil, errForbidden
	}
	return fn(ctx, roomID, userID)
}

// evict removes the client from the room and tells it why. The
// membership check under the lock keeps a concurrent Leave from
// racing the eviction.
func (h *Hub) evict(kind Kind, id string, client *Client, code int, message string) {
	key := roomKey(kind, id)
	h.mu.Lock()
	members, ok := h.rooms[key]
	if ok {
		if _, member := members[client]; !member {
			h.mu.Unlock()
			return
		}
		delete(members, client)
		if len(members) == 0 {
			delete(h.rooms, key)
		}
	}
	h.mu.Unlock()
	client.sendError(code, message)
}

// RoomSize reports how many clients a room currently has.
func (h *Hub) RoomSize(kind Kind, id string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[roomKey(kind, id)])
}
