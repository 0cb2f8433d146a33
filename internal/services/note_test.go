package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/RIFAI1010/noedot-backend/internal/apperr"
	"github.com/RIFAI1010/noedot-backend/internal/models"
)

func TestNoteCreateDefaults(t *testing.T) {
	env := newTestEnv()
	owner := env.user(t, "owner@example.com")

	n, err := env.notes.Create(context.Background(), owner, CreateNoteInput{Title: "plain"})
	require.NoError(t, err)
	assert.Equal(t, models.StatusPrivate, n.Status)
	assert.Equal(t, models.EditableMe, n.Editable)
	assert.Contains(t, env.notify.actions(), "createNote")

	_, err = env.notes.Create(context.Background(), owner, CreateNoteInput{Title: "bad", Status: "published"})
	requireCode(t, err, apperr.CodeBadRequest)
}

func TestNoteGetVisibility(t *testing.T) {
	env := newTestEnv()
	owner := env.user(t, "owner@example.com")
	editor := env.user(t, "editor@example.com")
	stranger := env.user(t, "stranger@example.com")
	ctx := context.Background()

	private := env.note(t, owner, models.StatusPrivate, models.EditableMe)
	_, err := env.notes.Get(ctx, stranger, private.ID.Hex())
	requireCode(t, err, apperr.CodeAccessDenied)

	detail, err := env.notes.Get(ctx, owner, private.ID.Hex())
	require.NoError(t, err)
	assert.True(t, detail.Owner)
	assert.True(t, detail.CanEdit)

	shared := env.note(t, owner, models.StatusAccess, models.EditableAccess, editor)
	detail, err = env.notes.Get(ctx, editor, shared.ID.Hex())
	require.NoError(t, err)
	assert.False(t, detail.Owner)
	assert.True(t, detail.CanEdit)
	require.Len(t, detail.Editors, 1)

	_, err = env.notes.Get(ctx, stranger, shared.ID.Hex())
	requireCode(t, err, apperr.CodeAccessDenied)
}

func TestNoteUpdateOwnerOnlyFields(t *testing.T) {
	env := newTestEnv()
	owner := env.user(t, "owner@example.com")
	editor := env.user(t, "editor@example.com")
	ctx := context.Background()

	n := env.note(t, owner, models.StatusAccess, models.EditableAccess, editor)

	title := "renamed by editor"
	updated, err := env.notes.Update(ctx, editor, n.ID.Hex(), UpdateNoteInput{Title: &title})
	require.NoError(t, err)
	assert.Equal(t, title, updated.Title)

	private := string(models.StatusPrivate)
	_, err = env.notes.Update(ctx, editor, n.ID.Hex(), UpdateNoteInput{Status: &private})
	requireCode(t, err, apperr.CodeEditDenied)

	_, err = env.notes.Update(ctx, owner, n.ID.Hex(), UpdateNoteInput{Status: &private})
	require.NoError(t, err)

	// The flip to private revokes the editor's view entirely.
	_, err = env.notes.Get(ctx, editor, n.ID.Hex())
	requireCode(t, err, apperr.CodeAccessDenied)
}

func TestNoteUpdateDistinguishesViewFromEdit(t *testing.T) {
	env := newTestEnv()
	owner := env.user(t, "owner@example.com")
	viewer := env.user(t, "viewer@example.com")
	ctx := context.Background()

	n := env.note(t, owner, models.StatusPublic, models.EditableMe)
	title := "nope"
	_, err := env.notes.Update(ctx, viewer, n.ID.Hex(), UpdateNoteInput{Title: &title})
	requireCode(t, err, apperr.CodeEditDenied)
}

func TestNoteDates(t *testing.T) {
	env := newTestEnv()
	owner := env.user(t, "owner@example.com")
	ctx := context.Background()
	n := env.note(t, owner, models.StatusPrivate, models.EditableMe)

	begin := time.Date(2024, 6, 10, 0, 0, 0, 0, time.UTC)
	due := begin.Add(48 * time.Hour)

	_, err := env.notes.UpdateDates(ctx, owner, n.ID.Hex(), &due, &begin)
	requireCode(t, err, apperr.CodeInvalidState)

	_, err = env.notes.ConfirmDue(ctx, owner, n.ID.Hex())
	requireCode(t, err, apperr.CodeInvalidState)

	updated, err := env.notes.UpdateDates(ctx, owner, n.ID.Hex(), &begin, &due)
	require.NoError(t, err)
	require.NotNil(t, updated.Due)

	confirmed, err := env.notes.ConfirmDue(ctx, owner, n.ID.Hex())
	require.NoError(t, err)
	assert.True(t, confirmed.ConfirmDue)
	assert.Equal(t, models.DateComplete, confirmed.DateStatusAt(time.Now()))

	// Changing the window reopens the tracking.
	later := due.Add(24 * time.Hour)
	updated, err = env.notes.UpdateDates(ctx, owner, n.ID.Hex(), &begin, &later)
	require.NoError(t, err)
	assert.False(t, updated.ConfirmDue)
}

func TestNoteFavorites(t *testing.T) {
	env := newTestEnv()
	owner := env.user(t, "owner@example.com")
	stranger := env.user(t, "stranger@example.com")
	ctx := context.Background()
	n := env.note(t, owner, models.StatusPrivate, models.EditableMe)

	require.NoError(t, env.notes.Favorite(ctx, owner, n.ID.Hex()))
	requireCode(t, env.notes.Favorite(ctx, owner, n.ID.Hex()), apperr.CodeConflict)

	// Favoriting requires view.
	requireCode(t, env.notes.Favorite(ctx, stranger, n.ID.Hex()), apperr.CodeAccessDenied)

	detail, err := env.notes.Get(ctx, owner, n.ID.Hex())
	require.NoError(t, err)
	assert.True(t, detail.Favorite)

	require.NoError(t, env.notes.Unfavorite(ctx, owner, n.ID.Hex()))
	requireCode(t, env.notes.Unfavorite(ctx, owner, n.ID.Hex()), apperr.CodeNotFound)
}

func TestNoteList(t *testing.T) {
	env := newTestEnv()
	owner := env.user(t, "owner@example.com")
	editor := env.user(t, "editor@example.com")
	ctx := context.Background()

	env.note(t, owner, models.StatusPrivate, models.EditableMe)
	env.note(t, owner, models.StatusAccess, models.EditableAccess, editor)

	mine, err := env.notes.List(ctx, owner, ListNotesInput{Filter: "my"})
	require.NoError(t, err)
	assert.Len(t, mine, 2)

	shared, err := env.notes.List(ctx, editor, ListNotesInput{Filter: "shared"})
	require.NoError(t, err)
	require.Len(t, shared, 1)

	none, err := env.notes.List(ctx, editor, ListNotesInput{Filter: "my"})
	require.NoError(t, err)
	assert.Empty(t, none)

	_, err = env.notes.List(ctx, owner, ListNotesInput{Filter: "everything"})
	requireCode(t, err, apperr.CodeBadRequest)
}

func TestNoteListPagination(t *testing.T) {
	env := newTestEnv()
	owner := env.user(t, "owner@example.com")
	ctx := context.Background()
	for i := 0; i < 5; i++ {
		env.note(t, owner, models.StatusPrivate, models.EditableMe)
	}

	page, err := env.notes.List(ctx, owner, ListNotesInput{Page: 1, Limit: 2})
	require.NoError(t, err)
	assert.Len(t, page, 2)

	page, err = env.notes.List(ctx, owner, ListNotesInput{Page: 3, Limit: 2})
	require.NoError(t, err)
	assert.Len(t, page, 1)

	page, err = env.notes.List(ctx, owner, ListNotesInput{Page: 4, Limit: 2})
	require.NoError(t, err)
	assert.Empty(t, page)
}

func TestNoteBlocksOrderAndMove(t *testing.T) {
	env := newTestEnv()
	owner := env.user(t, "owner@example.com")
	ctx := context.Background()
	n := env.note(t, owner, models.StatusPrivate, models.EditableMe)

	_, err := env.tables.Create(ctx, owner, n.ID.Hex())
	require.NoError(t, err)
	_, err = env.documents.Create(ctx, owner, n.ID.Hex())
	require.NoError(t, err)
	_, err = env.boards.Create(ctx, owner, n.ID.Hex())
	require.NoError(t, err)

	blocks, err := env.notes.Blocks(ctx, owner, n.ID.Hex())
	require.NoError(t, err)
	require.Len(t, blocks, 3)
	assert.Equal(t, models.BlockTable, blocks[0].Type)
	assert.Equal(t, models.BlockDocument, blocks[1].Type)
	assert.Equal(t, models.BlockBoard, blocks[2].Type)
	for i, b := range blocks {
		assert.Equal(t, i+1, b.Position)
		assert.False(t, b.Missing)
	}

	err = env.notes.MoveBlock(ctx, owner, n.ID.Hex(), blocks[2].ID.Hex(), "UP")
	require.NoError(t, err)

	blocks, err = env.notes.Blocks(ctx, owner, n.ID.Hex())
	require.NoError(t, err)
	assert.Equal(t, models.BlockBoard, blocks[1].Type)
	assert.Equal(t, models.BlockDocument, blocks[2].Type)

	err = env.notes.MoveBlock(ctx, owner, n.ID.Hex(), blocks[0].ID.Hex(), "UP")
	requireCode(t, err, apperr.CodeInvalidState)

	err = env.notes.MoveBlock(ctx, owner, n.ID.Hex(), blocks[0].ID.Hex(), "SIDEWAYS")
	requireCode(t, err, apperr.CodeBadRequest)
}

func TestNoteBlocksFlagDanglingRelations(t *testing.T) {
	env := newTestEnv()
	owner := env.user(t, "owner@example.com")
	ctx := context.Background()
	n := env.note(t, owner, models.StatusPrivate, models.EditableMe)

	view, err := env.tables.Create(ctx, owner, n.ID.Hex())
	require.NoError(t, err)

	// Delete the table record out from under its join.
	require.NoError(t, env.store.DeleteTable(ctx, view.Table.ID))

	blocks, err := env.notes.Blocks(ctx, owner, n.ID.Hex())
	require.NoError(t, err)
	require.Len(t, blocks, 1)
	assert.True(t, blocks[0].Missing)
}

func TestNoteDeleteOwnerOnly(t *testing.T) {
	env := newTestEnv()
	owner := env.user(t, "owner@example.com")
	editor := env.user(t, "editor@example.com")
	ctx := context.Background()

	n := env.note(t, owner, models.StatusAccess, models.EditableAccess, editor)
	requireCode(t, env.notes.Delete(ctx, editor, n.ID.Hex()), apperr.CodeEditDenied)
	require.NoError(t, env.notes.Delete(ctx, owner, n.ID.Hex()))

	_, err := env.notes.Get(ctx, owner, n.ID.Hex())
	requireCode(t, err, apperr.CodeNotFound)
}

func TestNoteDeleteCascadesToEmbeddings(t *testing.T) {
	env := newTestEnv()
	owner := env.user(t, "owner@example.com")
	ctx := context.Background()

	source := env.note(t, owner, models.StatusPublic, models.EditableMe)
	host := env.note(t, owner, models.StatusPrivate, models.EditableMe)

	table, err := env.tables.Create(ctx, owner, source.ID.Hex())
	require.NoError(t, err)
	_, err = env.documents.Create(ctx, owner, host.ID.Hex())
	require.NoError(t, err)
	embedded, err := env.tables.AddRelation(ctx, owner, table.Table.ID.Hex(), host.ID.Hex())
	require.NoError(t, err)

	hostBlocks, err := env.notes.Blocks(ctx, owner, host.ID.Hex())
	require.NoError(t, err)
	require.Len(t, hostBlocks, 2)

	// Deleting the source note takes the table and its embeddings down.
	require.NoError(t, env.notes.Delete(ctx, owner, source.ID.Hex()))

	hostBlocks, err = env.notes.Blocks(ctx, owner, host.ID.Hex())
	require.NoError(t, err)
	require.Len(t, hostBlocks, 1)
	assert.Equal(t, 1, hostBlocks[0].Position)
	assert.Equal(t, models.BlockDocument, hostBlocks[0].Type)

	_, err = env.tables.Get(ctx, owner, embedded.JoinID, false)
	requireCode(t, err, apperr.CodeNotFound)
}
