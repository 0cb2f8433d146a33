package realtime

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/RIFAI1010/noedot-backend/internal/apperr"
)

// fakeVerifier maps raw tokens to user ids and lets tests expire a
// token mid-session.
type fakeVerifier struct {
	mu    sync.Mutex
	users map[string]string
}

func (v *fakeVerifier) verify(raw string) (string, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	userID, ok := v.users[raw]
	if !ok {
		return "", errors.New("invalid token")
	}
	return userID, nil
}

func (v *fakeVerifier) revoke(raw string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	delete(v.users, raw)
}

// fakeNoteAccess grants per-user room access that tests can flip while
// clients are subscribed.
type fakeNoteAccess struct {
	mu     sync.Mutex
	grants map[string]*Access
}

func (a *fakeNoteAccess) check(_ context.Context, _ string, userID string) (*Access, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	access, ok := a.grants[userID]
	if !ok {
		return nil, apperr.AccessDenied("access denied")
	}
	return access, nil
}

func (a *fakeNoteAccess) revoke(userID string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	delete(a.grants, userID)
}

type hubFixture struct {
	hub      *Hub
	verifier *fakeVerifier
	access   *fakeNoteAccess
	server   *httptest.Server
}

func newHubFixture(t *testing.T) *hubFixture {
	gin.SetMode(gin.TestMode)
	verifier := &fakeVerifier{users: map[string]string{
		"alice-token": "alice",
		"bob-token":   "bob",
	}}
	access := &fakeNoteAccess{grants: map[string]*Access{
		"alice": {CanEdit: true, OwnerID: "alice"},
		"bob":   {CanEdit: false, OwnerID: "alice"},
	}}

	hub := NewHub(verifier.verify)
	hub.Register(KindNote, access.check)

	router := gin.New()
	router.GET("/ws", hub.Handler())
	server := httptest.NewServer(router)
	t.Cleanup(server.Close)

	return &hubFixture{hub: hub, verifier: verifier, access: access, server: server}
}

// clientOf returns the single hub-side client of a room.
func (f *hubFixture) clientOf(t *testing.T, kind Kind, id string) *Client {
	t.Helper()
	f.hub.mu.RLock()
	defer f.hub.mu.RUnlock()
	members := f.hub.rooms[roomKey(kind, id)]
	require.Len(t, members, 1)
	for c := range members {
		return c
	}
	return nil
}

func (f *hubFixture) dial(t *testing.T, token string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(f.server.URL, "http") + "/ws?token=" + token
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func sendEnvelope(t *testing.T, conn *websocket.Conn, event, id string) {
	t.Helper()
	require.NoError(t, conn.WriteJSON(Envelope{Event: event, Data: map[string]interface{}{"id": id}}))
}

func readEnvelope(t *testing.T, conn *websocket.Conn) Envelope {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var msg Envelope
	require.NoError(t, conn.ReadJSON(&msg))
	return msg
}

func join(t *testing.T, f *hubFixture, conn *websocket.Conn, roomID string) Envelope {
	t.Helper()
	sendEnvelope(t, conn, "joinNote", roomID)
	msg := readEnvelope(t, conn)
	require.Equal(t, "joinedNote_"+roomID, msg.Event)
	return msg
}

func TestHandlerRejectsBadTokens(t *testing.T) {
	f := newHubFixture(t)

	resp, err := http.Get(f.server.URL + "/ws")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	url := "ws" + strings.TrimPrefix(f.server.URL, "http") + "/ws?token=forged"
	_, resp, err = websocket.DefaultDialer.Dial(url, nil)
	require.Error(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestJoinAckCarriesRights(t *testing.T) {
	f := newHubFixture(t)

	alice := f.dial(t, "alice-token")
	msg := join(t, f, alice, "n1")
	assert.Equal(t, true, msg.Data["canEdit"])
	assert.Equal(t, true, msg.Data["owner"])

	bob := f.dial(t, "bob-token")
	msg = join(t, f, bob, "n1")
	assert.Equal(t, false, msg.Data["canEdit"])
	assert.Equal(t, false, msg.Data["owner"])

	assert.Equal(t, 2, f.hub.RoomSize(KindNote, "n1"))
}

func TestJoinDeniedKeepsConnection(t *testing.T) {
	f := newHubFixture(t)
	f.access.revoke("bob")

	bob := f.dial(t, "bob-token")
	sendEnvelope(t, bob, "joinNote", "n1")
	msg := readEnvelope(t, bob)
	assert.Equal(t, "error", msg.Event)
	assert.Equal(t, float64(http.StatusForbidden), msg.Data["code"])
	assert.Equal(t, 0, f.hub.RoomSize(KindNote, "n1"))

	// The connection stays usable; bob's own user room still works.
	sendEnvelope(t, bob, "joinUser", "bob")
	msg = readEnvelope(t, bob)
	assert.Equal(t, "joinedUser_bob", msg.Event)
}

func TestJoinRejectsExpiredToken(t *testing.T) {
	f := newHubFixture(t)
	alice := f.dial(t, "alice-token")
	f.verifier.revoke("alice-token")

	// The token is re-verified on every join, not just at upgrade.
	sendEnvelope(t, alice, "joinNote", "n1")
	msg := readEnvelope(t, alice)
	assert.Equal(t, "error", msg.Event)
	assert.Equal(t, float64(http.StatusUnauthorized), msg.Data["code"])
	assert.Equal(t, "token expired", msg.Data["message"])
	assert.Equal(t, 0, f.hub.RoomSize(KindNote, "n1"))
}

func TestBroadcastPersonalizesPayload(t *testing.T) {
	f := newHubFixture(t)
	alice := f.dial(t, "alice-token")
	bob := f.dial(t, "bob-token")
	join(t, f, alice, "n1")
	join(t, f, bob, "n1")

	f.hub.Broadcast(context.Background(), KindNote, "n1", map[string]interface{}{
		"id":           "n1",
		"socketAction": "updateNote",
	})

	msg := readEnvelope(t, alice)
	assert.Equal(t, "joinedNote_n1", msg.Event)
	assert.Equal(t, "updateNote", msg.Data["socketAction"])
	assert.Equal(t, true, msg.Data["canEdit"])
	assert.Equal(t, true, msg.Data["owner"])

	msg = readEnvelope(t, bob)
	assert.Equal(t, "updateNote", msg.Data["socketAction"])
	assert.Equal(t, false, msg.Data["canEdit"])
	assert.Equal(t, false, msg.Data["owner"])
}

func TestBroadcastEvictsOnAccessLoss(t *testing.T) {
	f := newHubFixture(t)
	alice := f.dial(t, "alice-token")
	bob := f.dial(t, "bob-token")
	join(t, f, alice, "n1")
	join(t, f, bob, "n1")

	f.access.revoke("bob")
	f.hub.Broadcast(context.Background(), KindNote, "n1", map[string]interface{}{
		"id":           "n1",
		"socketAction": "updateNote",
	})

	// Alice still gets the update; bob gets an error and is out.
	msg := readEnvelope(t, alice)
	assert.Equal(t, "joinedNote_n1", msg.Event)

	msg = readEnvelope(t, bob)
	assert.Equal(t, "error", msg.Event)
	assert.Equal(t, float64(http.StatusForbidden), msg.Data["code"])
	assert.Equal(t, 1, f.hub.RoomSize(KindNote, "n1"))
}

func TestBroadcastEvictsExpiredToken(t *testing.T) {
	f := newHubFixture(t)
	bob := f.dial(t, "bob-token")
	join(t, f, bob, "n1")

	f.verifier.revoke("bob-token")
	f.hub.Broadcast(context.Background(), KindNote, "n1", map[string]interface{}{
		"id": "n1",
	})

	msg := readEnvelope(t, bob)
	assert.Equal(t, "error", msg.Event)
	assert.Equal(t, float64(http.StatusUnauthorized), msg.Data["code"])
	assert.Equal(t, "token expired", msg.Data["message"])
	assert.Equal(t, 0, f.hub.RoomSize(KindNote, "n1"))
}

func TestDeliverSkipsDepartedClient(t *testing.T) {
	f := newHubFixture(t)
	alice := f.dial(t, "alice-token")
	join(t, f, alice, "n1")
	client := f.clientOf(t, KindNote, "n1")

	// A client removed between the member snapshot and the emit must
	// not receive the payload.
	f.hub.Leave(KindNote, "n1", client)
	f.hub.deliver(roomKey(KindNote, "n1"), client, eventName(KindNote, "n1"), map[string]interface{}{"id": "n1"})

	require.NoError(t, alice.SetReadDeadline(time.Now().Add(200*time.Millisecond)))
	var msg Envelope
	assert.Error(t, alice.ReadJSON(&msg))
}

func TestUserRoomIsSelfOnly(t *testing.T) {
	f := newHubFixture(t)
	alice := f.dial(t, "alice-token")

	sendEnvelope(t, alice, "joinUser", "bob")
	msg := readEnvelope(t, alice)
	assert.Equal(t, "error", msg.Event)
	assert.Equal(t, float64(http.StatusForbidden), msg.Data["code"])

	sendEnvelope(t, alice, "joinUser", "alice")
	msg = readEnvelope(t, alice)
	assert.Equal(t, "joinedUser_alice", msg.Event)
}

func TestLeaveRoom(t *testing.T) {
	f := newHubFixture(t)
	alice := f.dial(t, "alice-token")
	join(t, f, alice, "n1")
	require.Equal(t, 1, f.hub.RoomSize(KindNote, "n1"))

	sendEnvelope(t, alice, "leaveNote", "n1")

	require.Eventually(t, func() bool {
		return f.hub.RoomSize(KindNote, "n1") == 0
	}, 2*time.Second, 10*time.Millisecond)
}

func TestUnknownEvent(t *testing.T) {
	f := newHubFixture(t)
	alice := f.dial(t, "alice-token")

	sendEnvelope(t, alice, "subscribe", "n1")
	msg := readEnvelope(t, alice)
	assert.Equal(t, "error", msg.Event)
	assert.Equal(t, float64(http.StatusBadRequest), msg.Data["code"])
}
