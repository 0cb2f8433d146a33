// Package services holds the application logic between the HTTP/WS
// layers and the store. All access decisions go through the policy
// package; all sibling reorderings go through the position package
// under a per-entity mutation lock.
package services

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/RIFAI1010/noedot-backend/internal/apperr"
	"github.com/RIFAI1010/noedot-backend/internal/models"
	"github.com/RIFAI1010/noedot-backend/internal/policy"
	"github.com/RIFAI1010/noedot-backend/internal/position"
	"github.com/RIFAI1010/noedot-backend/internal/realtime"
	"github.com/RIFAI1010/noedot-backend/internal/store"
)

// Notifier fans a mutation event out to a room. The realtime hub
// implements it; tests plug in a recorder.
type Notifier interface {
	Broadcast(ctx context.Context, kind realtime.Kind, id string, payload map[string]interface{})
}

// NopNotifier discards events, used when no hub is wired.
type NopNotifier struct{}

func (NopNotifier) Broadcast(context.Context, realtime.Kind, string, map[string]interface{}) {}

func objectID(hex string) (primitive.ObjectID, error) {
	id, err := primitive.ObjectIDFromHex(hex)
	if err != nil {
		return primitive.NilObjectID, apperr.BadRequest("invalid id")
	}
	return id, nil
}

// event builds the standard broadcast payload.
func event(id primitive.ObjectID, action string, extra map[string]interface{}) map[string]interface{} {
	payload := map[string]interface{}{
		"id":           id.Hex(),
		"updatedAt":    time.Now(),
		"socketAction": action,
	}
	for k, v := range extra {
		payload[k] = v
	}
	return payload
}

// noteWithEditors loads a note and its edit-access list in the string
// form the policy evaluator takes.
func noteWithEditors(ctx context.Context, st store.Store, noteID primitive.ObjectID) (*models.Note, []string, error) {
	note, err := st.NoteByID(ctx, noteID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, nil, apperr.NotFound("note not found")
		}
		return nil, nil, err
	}
	editorIDs, err := st.NoteEditorIDs(ctx, noteID)
	if err != nil {
		return nil, nil, err
	}
	return note, hexIDs(editorIDs), nil
}

func requireNoteView(ctx context.Context, st store.Store, noteID primitive.ObjectID, userID string) (*models.Note, policy.Decision, error) {
	note, editors, err := noteWithEditors(ctx, st, noteID)
	if err != nil {
		return nil, policy.Decision{}, err
	}
	decision, err := policy.RequireView(note, editors, userID)
	if err != nil {
		return nil, policy.Decision{}, err
	}
	return note, decision, nil
}

func requireNoteEdit(ctx context.Context, st store.Store, noteID primitive.ObjectID, userID string) (*models.Note, policy.Decision, error) {
	note, editors, err := noteWithEditors(ctx, st, noteID)
	if err != nil {
		return nil, policy.Decision{}, err
	}
	decision, err := policy.RequireEdit(note, editors, userID)
	if err != nil {
		return nil, policy.Decision{}, err
	}
	return note, decision, nil
}

// requireRelation applies the source-note check for reading an entity
// embedded in a note other than its source.
func requireRelation(ctx context.Context, st store.Store, sourceNoteID primitive.ObjectID, userID string) error {
	source, editors, err := noteWithEditors(ctx, st, sourceNoteID)
	if err != nil {
		return err
	}
	return policy.RequireRelation(source, editors, userID)
}

func hexIDs(ids []primitive.ObjectID) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = id.Hex()
	}
	return out
}

func positionItems(blocks []models.NoteBlock) []position.Item {
	items := make([]position.Item, len(blocks))
	for i, b := range blocks {
		items[i] = position.Item{ID: b.ID.Hex(), Position: b.Position}
	}
	return items
}

// applyBlockPositions maps reflowed items back onto block records.
func applyBlockPositions(blocks []models.NoteBlock, items []position.Item) []models.NoteBlock {
	byID := make(map[string]int, len(items))
	for _, it := range items {
		byID[it.ID] = it.Position
	}
	out := make([]models.NoteBlock, 0, len(blocks))
	for _, b := range blocks {
		if pos, ok := byID[b.ID.Hex()]; ok {
			b.Position = pos
			out = append(out, b)
		}
	}
	return out
}

// reflowNoteBlocks renumbers a note's remaining blocks to a dense
// sequence. Callers hold the note's mutation lock.
func reflowNoteBlocks(ctx context.Context, st store.Store, noteID primitive.ObjectID) error {
	blocks, err := st.NoteBlocks(ctx, noteID)
	if err != nil {
		return err
	}
	items := position.Reflow(positionItems(blocks))
	return st.SetNoteBlockPositions(ctx, applyBlockPositions(blocks, items))
}

func noteLockKey(id primitive.ObjectID) string  { return "note:" + id.Hex() }
func tableLockKey(id primitive.ObjectID) string { return "table:" + id.Hex() }
func boardLockKey(id primitive.ObjectID) string { return "board:" + id.Hex() }
