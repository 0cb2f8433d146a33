package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/RIFAI1010/noedot-backend/internal/apperr"
	"github.com/RIFAI1010/noedot-backend/internal/models"
)

func TestTableCreate(t *testing.T) {
	env := newTestEnv()
	owner := env.user(t, "owner@example.com")
	stranger := env.user(t, "stranger@example.com")
	ctx := context.Background()
	n := env.note(t, owner, models.StatusPrivate, models.EditableMe)

	_, err := env.tables.Create(ctx, stranger, n.ID.Hex())
	requireCode(t, err, apperr.CodeAccessDenied)

	view, err := env.tables.Create(ctx, owner, n.ID.Hex())
	require.NoError(t, err)
	assert.Equal(t, "New Table", view.Name)
	assert.True(t, view.IsSourceNote)
	assert.True(t, view.CanEdit)
	assert.Equal(t, n.ID.Hex(), view.NoteID)
	assert.Contains(t, env.notify.actions(), "addBlock")
}

func TestTableAddRelationRequiresPublicSource(t *testing.T) {
	env := newTestEnv()
	alice := env.user(t, "alice@example.com")
	bob := env.user(t, "bob@example.com")
	ctx := context.Background()

	source := env.note(t, alice, models.StatusPrivate, models.EditableMe)
	host := env.note(t, bob, models.StatusPrivate, models.EditableMe)
	view, err := env.tables.Create(ctx, alice, source.ID.Hex())
	require.NoError(t, err)

	_, err = env.tables.AddRelation(ctx, bob, view.Table.ID.Hex(), host.ID.Hex())
	requireCode(t, err, apperr.CodeSourceNotPublic)

	status := string(models.StatusPublic)
	_, err = env.notes.Update(ctx, alice, source.ID.Hex(), UpdateNoteInput{Status: &status})
	require.NoError(t, err)

	embedded, err := env.tables.AddRelation(ctx, bob, view.Table.ID.Hex(), host.ID.Hex())
	require.NoError(t, err)
	assert.False(t, embedded.IsSourceNote)
	assert.False(t, embedded.CanEdit)

	// Relating twice, or back into the source note, is rejected.
	_, err = env.tables.AddRelation(ctx, bob, view.Table.ID.Hex(), host.ID.Hex())
	requireCode(t, err, apperr.CodeAlreadyRelated)
	_, err = env.tables.AddRelation(ctx, alice, view.Table.ID.Hex(), source.ID.Hex())
	requireCode(t, err, apperr.CodeAlreadyRelated)
}

func TestTableGetDualPolicy(t *testing.T) {
	env := newTestEnv()
	alice := env.user(t, "alice@example.com")
	bob := env.user(t, "bob@example.com")
	ctx := context.Background()

	source := env.note(t, alice, models.StatusPublic, models.EditableMe)
	host := env.note(t, bob, models.StatusPrivate, models.EditableMe)
	view, err := env.tables.Create(ctx, alice, source.ID.Hex())
	require.NoError(t, err)
	embedded, err := env.tables.AddRelation(ctx, bob, view.Table.ID.Hex(), host.ID.Hex())
	require.NoError(t, err)

	got, err := env.tables.Get(ctx, bob, embedded.JoinID, false)
	require.NoError(t, err)
	assert.False(t, got.CanEdit)

	// Alice cannot reach the join living in Bob's private note.
	_, err = env.tables.Get(ctx, alice, embedded.JoinID, false)
	requireCode(t, err, apperr.CodeAccessDenied)

	// Flipping the source private cuts the embedding off.
	status := string(models.StatusPrivate)
	_, err = env.notes.Update(ctx, alice, source.ID.Hex(), UpdateNoteInput{Status: &status})
	require.NoError(t, err)
	_, err = env.tables.Get(ctx, bob, embedded.JoinID, false)
	requireCode(t, err, apperr.CodeRelationAccessDenied)
}

func TestTableContentMutationIsSourceOnly(t *testing.T) {
	env := newTestEnv()
	alice := env.user(t, "alice@example.com")
	bob := env.user(t, "bob@example.com")
	ctx := context.Background()

	source := env.note(t, alice, models.StatusPublic, models.EditableMe)
	view, err := env.tables.Create(ctx, alice, source.ID.Hex())
	require.NoError(t, err)
	tableID := view.Table.ID.Hex()

	_, err = env.tables.CreateCol(ctx, bob, tableID, "status")
	requireCode(t, err, apperr.CodeEditDenied)

	col, err := env.tables.CreateCol(ctx, alice, tableID, "status")
	require.NoError(t, err)
	row, err := env.tables.CreateRow(ctx, alice, tableID)
	require.NoError(t, err)
	assert.Equal(t, 1, row.RowNumber)

	cell, err := env.tables.CreateRowData(ctx, alice, row.ID.Hex(), col.ID.Hex(), "done")
	require.NoError(t, err)

	cell, err = env.tables.UpdateRowData(ctx, alice, cell.ID.Hex(), "blocked")
	require.NoError(t, err)
	assert.Equal(t, "blocked", cell.Content)

	got, err := env.tables.Get(ctx, alice, view.JoinID, true)
	require.NoError(t, err)
	require.Len(t, got.Cols, 1)
	require.Len(t, got.Rows, 1)
	require.Len(t, got.Rows[0].Cells, 1)

	require.NoError(t, env.tables.DeleteRowData(ctx, alice, cell.ID.Hex()))
	got, err = env.tables.Get(ctx, alice, view.JoinID, true)
	require.NoError(t, err)
	assert.Empty(t, got.Rows[0].Cells)
}

func TestTableCellAcrossTables(t *testing.T) {
	env := newTestEnv()
	alice := env.user(t, "alice@example.com")
	ctx := context.Background()
	n := env.note(t, alice, models.StatusPrivate, models.EditableMe)

	first, err := env.tables.Create(ctx, alice, n.ID.Hex())
	require.NoError(t, err)
	second, err := env.tables.Create(ctx, alice, n.ID.Hex())
	require.NoError(t, err)

	col, err := env.tables.CreateCol(ctx, alice, first.Table.ID.Hex(), "a")
	require.NoError(t, err)
	row, err := env.tables.CreateRow(ctx, alice, second.Table.ID.Hex())
	require.NoError(t, err)

	_, err = env.tables.CreateRowData(ctx, alice, row.ID.Hex(), col.ID.Hex(), "x")
	requireCode(t, err, apperr.CodeBadRequest)
}

func TestTableRowNumbersStayDense(t *testing.T) {
	env := newTestEnv()
	alice := env.user(t, "alice@example.com")
	ctx := context.Background()
	n := env.note(t, alice, models.StatusPrivate, models.EditableMe)
	view, err := env.tables.Create(ctx, alice, n.ID.Hex())
	require.NoError(t, err)
	tableID := view.Table.ID.Hex()

	var rows []*models.Row
	for i := 0; i < 3; i++ {
		row, err := env.tables.CreateRow(ctx, alice, tableID)
		require.NoError(t, err)
		rows = append(rows, row)
	}
	require.NoError(t, env.tables.DeleteRow(ctx, alice, rows[0].ID.Hex()))

	got, err := env.tables.Get(ctx, alice, view.JoinID, true)
	require.NoError(t, err)
	require.Len(t, got.Rows, 2)
	assert.Equal(t, 1, got.Rows[0].RowNumber)
	assert.Equal(t, 2, got.Rows[1].RowNumber)
}

func TestTableDeleteNonSourceUnlinks(t *testing.T) {
	env := newTestEnv()
	alice := env.user(t, "alice@example.com")
	bob := env.user(t, "bob@example.com")
	ctx := context.Background()

	source := env.note(t, alice, models.StatusPublic, models.EditableMe)
	host := env.note(t, bob, models.StatusPrivate, models.EditableMe)
	view, err := env.tables.Create(ctx, alice, source.ID.Hex())
	require.NoError(t, err)
	embedded, err := env.tables.AddRelation(ctx, bob, view.Table.ID.Hex(), host.ID.Hex())
	require.NoError(t, err)

	// Unlinking needs edit rights on the hosting note.
	_, err = env.tables.Delete(ctx, alice, embedded.JoinID)
	requireCode(t, err, apperr.CodeAccessDenied)

	msg, err := env.tables.Delete(ctx, bob, embedded.JoinID)
	require.NoError(t, err)
	assert.Equal(t, "table relation deleted successfully", msg)

	// The table itself survives in its source note.
	got, err := env.tables.Get(ctx, alice, view.JoinID, false)
	require.NoError(t, err)
	assert.True(t, got.IsSourceNote)

	blocks, err := env.notes.Blocks(ctx, bob, host.ID.Hex())
	require.NoError(t, err)
	assert.Empty(t, blocks)
}

func TestTableDeleteSourceCascades(t *testing.T) {
	env := newTestEnv()
	alice := env.user(t, "alice@example.com")
	bob := env.user(t, "bob@example.com")
	ctx := context.Background()

	source := env.note(t, alice, models.StatusPublic, models.EditableMe)
	host := env.note(t, bob, models.StatusPrivate, models.EditableMe)
	view, err := env.tables.Create(ctx, alice, source.ID.Hex())
	require.NoError(t, err)
	_, err = env.tables.CreateCol(ctx, alice, view.Table.ID.Hex(), "a")
	require.NoError(t, err)
	embedded, err := env.tables.AddRelation(ctx, bob, view.Table.ID.Hex(), host.ID.Hex())
	require.NoError(t, err)

	msg, err := env.tables.Delete(ctx, alice, view.JoinID)
	require.NoError(t, err)
	assert.Equal(t, "table deleted successfully", msg)

	_, err = env.tables.Get(ctx, bob, embedded.JoinID, false)
	requireCode(t, err, apperr.CodeNotFound)

	blocks, err := env.notes.Blocks(ctx, bob, host.ID.Hex())
	require.NoError(t, err)
	assert.Empty(t, blocks)
}

func TestTableDeleteDanglingJoin(t *testing.T) {
	env := newTestEnv()
	alice := env.user(t, "alice@example.com")
	ctx := context.Background()
	n := env.note(t, alice, models.StatusPrivate, models.EditableMe)
	view, err := env.tables.Create(ctx, alice, n.ID.Hex())
	require.NoError(t, err)

	require.NoError(t, env.store.DeleteTable(ctx, view.Table.ID))

	msg, err := env.tables.Delete(ctx, alice, view.JoinID)
	require.NoError(t, err)
	assert.Equal(t, "table relation deleted successfully. but table not found", msg)

	blocks, err := env.notes.Blocks(ctx, alice, n.ID.Hex())
	require.NoError(t, err)
	assert.Empty(t, blocks)
}

func TestTableList(t *testing.T) {
	env := newTestEnv()
	alice := env.user(t, "alice@example.com")
	bob := env.user(t, "bob@example.com")
	ctx := context.Background()

	mine := env.note(t, alice, models.StatusPublic, models.EditableMe)
	shared := env.note(t, bob, models.StatusAccess, models.EditableAccess, alice)
	view, err := env.tables.Create(ctx, alice, mine.ID.Hex())
	require.NoError(t, err)
	_, err = env.tables.Create(ctx, bob, shared.ID.Hex())
	require.NoError(t, err)

	tables, err := env.tables.List(ctx, alice, "my", "")
	require.NoError(t, err)
	require.Len(t, tables, 1)
	assert.Equal(t, view.Table.ID, tables[0].ID)

	tables, err = env.tables.List(ctx, alice, "shared", "")
	require.NoError(t, err)
	require.Len(t, tables, 1)

	// Tables already related to the excluded note are filtered out.
	tables, err = env.tables.List(ctx, alice, "my", mine.ID.Hex())
	require.NoError(t, err)
	assert.Empty(t, tables)

	_, err = env.tables.List(ctx, alice, "recent", "")
	requireCode(t, err, apperr.CodeBadRequest)
}

func TestTableListFavoriteFollowsVisibility(t *testing.T) {
	env := newTestEnv()
	alice := env.user(t, "alice@example.com")
	bob := env.user(t, "bob@example.com")
	ctx := context.Background()

	source := env.note(t, alice, models.StatusPublic, models.EditableMe)
	_, err := env.tables.Create(ctx, alice, source.ID.Hex())
	require.NoError(t, err)
	require.NoError(t, env.notes.Favorite(ctx, bob, source.ID.Hex()))

	tables, err := env.tables.List(ctx, bob, "favorite", "")
	require.NoError(t, err)
	require.Len(t, tables, 1)

	// A note gone private drops out of the favorite listing.
	status := string(models.StatusPrivate)
	_, err = env.notes.Update(ctx, alice, source.ID.Hex(), UpdateNoteInput{Status: &status})
	require.NoError(t, err)

	tables, err = env.tables.List(ctx, bob, "favorite", "")
	require.NoError(t, err)
	assert.Empty(t, tables)
}

func TestTableUpdateName(t *testing.T) {
	env := newTestEnv()
	alice := env.user(t, "alice@example.com")
	ctx := context.Background()
	n := env.note(t, alice, models.StatusPrivate, models.EditableMe)
	view, err := env.tables.Create(ctx, alice, n.ID.Hex())
	require.NoError(t, err)

	env.notify.reset()
	updated, err := env.tables.UpdateName(ctx, alice, view.Table.ID.Hex(), "Sprint board")
	require.NoError(t, err)
	assert.Equal(t, "Sprint board", updated.Name)
	assert.Equal(t, []string{"updateTableName"}, env.notify.actions())
}
