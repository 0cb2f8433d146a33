package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/RIFAI1010/noedot-backend/internal/apperr"
	"github.com/RIFAI1010/noedot-backend/internal/models"
)

func TestDocumentCreateAndGet(t *testing.T) {
	env := newTestEnv()
	alice := env.user(t, "alice@example.com")
	ctx := context.Background()
	n := env.note(t, alice, models.StatusPrivate, models.EditableMe)

	view, err := env.documents.Create(ctx, alice, n.ID.Hex())
	require.NoError(t, err)
	assert.Equal(t, "New Document", view.Name)
	assert.True(t, view.IsSourceNote)

	got, err := env.documents.Get(ctx, alice, view.JoinID)
	require.NoError(t, err)
	assert.True(t, got.CanEdit)
}

func TestDocumentContentEdits(t *testing.T) {
	env := newTestEnv()
	alice := env.user(t, "alice@example.com")
	bob := env.user(t, "bob@example.com")
	ctx := context.Background()
	n := env.note(t, alice, models.StatusPublic, models.EditableMe)
	view, err := env.documents.Create(ctx, alice, n.ID.Hex())
	require.NoError(t, err)
	docID := view.Document.ID.Hex()

	_, err = env.documents.UpdateContent(ctx, bob, docID, "hijack")
	requireCode(t, err, apperr.CodeEditDenied)

	doc, err := env.documents.UpdateContent(ctx, alice, docID, "first draft")
	require.NoError(t, err)
	assert.Equal(t, "first draft", doc.Content)

	doc, err = env.documents.UpdateName(ctx, alice, docID, "Meeting notes")
	require.NoError(t, err)
	assert.Equal(t, "Meeting notes", doc.Name)

	doc, err = env.documents.UpdateHeight(ctx, alice, docID, 420)
	require.NoError(t, err)
	assert.Equal(t, 420, doc.Height)

	assert.Contains(t, env.notify.actions(), "updateDocumentContent")
	assert.Contains(t, env.notify.actions(), "updateDocumentName")
	assert.Contains(t, env.notify.actions(), "updateDocumentHeight")
}

func TestDocumentDeleteBranches(t *testing.T) {
	env := newTestEnv()
	alice := env.user(t, "alice@example.com")
	bob := env.user(t, "bob@example.com")
	ctx := context.Background()

	source := env.note(t, alice, models.StatusPublic, models.EditableMe)
	host := env.note(t, bob, models.StatusPrivate, models.EditableMe)
	view, err := env.documents.Create(ctx, alice, source.ID.Hex())
	require.NoError(t, err)
	embedded, err := env.documents.AddRelation(ctx, bob, view.Document.ID.Hex(), host.ID.Hex())
	require.NoError(t, err)

	msg, err := env.documents.Delete(ctx, bob, embedded.JoinID)
	require.NoError(t, err)
	assert.Equal(t, "document relation deleted successfully", msg)

	msg, err = env.documents.Delete(ctx, alice, view.JoinID)
	require.NoError(t, err)
	assert.Equal(t, "document deleted successfully", msg)

	_, err = env.documents.Get(ctx, alice, view.JoinID)
	requireCode(t, err, apperr.CodeNotFound)
}

func TestDocumentDeleteDanglingJoin(t *testing.T) {
	env := newTestEnv()
	alice := env.user(t, "alice@example.com")
	ctx := context.Background()
	n := env.note(t, alice, models.StatusPrivate, models.EditableMe)
	view, err := env.documents.Create(ctx, alice, n.ID.Hex())
	require.NoError(t, err)

	require.NoError(t, env.store.DeleteDocument(ctx, view.Document.ID))

	msg, err := env.documents.Delete(ctx, alice, view.JoinID)
	require.NoError(t, err)
	assert.Equal(t, "document relation deleted successfully. but document not found", msg)
}

func TestDocumentList(t *testing.T) {
	env := newTestEnv()
	alice := env.user(t, "alice@example.com")
	ctx := context.Background()
	n := env.note(t, alice, models.StatusPrivate, models.EditableMe)
	view, err := env.documents.Create(ctx, alice, n.ID.Hex())
	require.NoError(t, err)

	docs, err := env.documents.List(ctx, alice, "my", "")
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, view.Document.ID, docs[0].ID)

	docs, err = env.documents.List(ctx, alice, "my", n.ID.Hex())
	require.NoError(t, err)
	assert.Empty(t, docs)
}
