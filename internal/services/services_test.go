package services

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/RIFAI1010/noedot-backend/internal/apperr"
	"github.com/RIFAI1010/noedot-backend/internal/models"
	"github.com/RIFAI1010/noedot-backend/internal/position"
	"github.com/RIFAI1010/noedot-backend/internal/realtime"
	"github.com/RIFAI1010/noedot-backend/internal/store/memory"
)

// recorderNotifier captures broadcasts so tests can assert on the
// socket traffic a mutation produces.
type recorderNotifier struct {
	mu     sync.Mutex
	events []recordedEvent
}

type recordedEvent struct {
	Kind    realtime.Kind
	RoomID  string
	Payload map[string]interface{}
}

func (r *recorderNotifier) Broadcast(_ context.Context, kind realtime.Kind, id string, payload map[string]interface{}) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, recordedEvent{Kind: kind, RoomID: id, Payload: payload})
}

func (r *recorderNotifier) actions() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.events))
	for _, e := range r.events {
		if action, ok := e.Payload["socketAction"].(string); ok {
			out = append(out, action)
		}
	}
	return out
}

func (r *recorderNotifier) reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = nil
}

type testEnv struct {
	store     *memory.Store
	notify    *recorderNotifier
	notes     *NoteService
	tables    *TableService
	documents *DocumentService
	boards    *BoardService
}

func newTestEnv() *testEnv {
	st := memory.New()
	notify := &recorderNotifier{}
	locks := position.NewKeyedMutex()
	return &testEnv{
		store:     st,
		notify:    notify,
		notes:     NewNoteService(st, notify, locks),
		tables:    NewTableService(st, notify, locks),
		documents: NewDocumentService(st, notify, locks),
		boards:    NewBoardService(st, notify, locks),
	}
}

// user seeds a verified account and returns its id in hex.
func (e *testEnv) user(t *testing.T, email string) string {
	t.Helper()
	u := &models.User{Email: email, Name: email, Password: "x", IsVerified: true}
	require.NoError(t, e.store.CreateUser(context.Background(), u))
	return u.ID.Hex()
}

// requireCode asserts err carries the expected taxonomy code.
func requireCode(t *testing.T, err error, code string) {
	t.Helper()
	require.Error(t, err)
	appErr, ok := apperr.From(err)
	require.True(t, ok, "expected taxonomy error, got %v", err)
	require.Equal(t, code, appErr.Code)
}

// note creates a note owned by userID with the given policy fields.
func (e *testEnv) note(t *testing.T, userID string, status models.NoteStatus, editable models.Editable, editors ...string) *models.Note {
	t.Helper()
	n, err := e.notes.Create(context.Background(), userID, CreateNoteInput{
		Title:      "note",
		Status:     string(status),
		Editable:   string(editable),
		UserAccess: editors,
	})
	require.NoError(t, err)
	return n
}
