package policy

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/RIFAI1010/noedot-backend/internal/apperr"
	"github.com/RIFAI1010/noedot-backend/internal/models"
)

var (
	ownerID    = primitive.NewObjectID()
	editorID   = primitive.NewObjectID()
	strangerID = primitive.NewObjectID()
)

func note(status models.NoteStatus, editable models.Editable) *models.Note {
	return &models.Note{ID: primitive.NewObjectID(), UserID: ownerID, Status: status, Editable: editable}
}

func TestEvaluate(t *testing.T) {
	editors := []string{editorID.Hex()}

	tests := []struct {
		name     string
		status   models.NoteStatus
		editable models.Editable
		user     primitive.ObjectID
		canView  bool
		canEdit  bool
	}{
		{"owner always has full rights", models.StatusPrivate, models.EditableMe, ownerID, true, true},
		{"private hides from editor list", models.StatusPrivate, models.EditableAccess, editorID, false, false},
		{"private hides from stranger", models.StatusPrivate, models.EditableEveryone, strangerID, false, false},
		{"access shows to listed user", models.StatusAccess, models.EditableMe, editorID, true, false},
		{"access hides from stranger", models.StatusAccess, models.EditableEveryone, strangerID, false, false},
		{"public visible to all", models.StatusPublic, models.EditableMe, strangerID, true, false},
		{"editable access grants listed user", models.StatusAccess, models.EditableAccess, editorID, true, true},
		{"editable everyone grants any viewer", models.StatusPublic, models.EditableEveryone, strangerID, true, true},
		{"editable everyone still requires view", models.StatusPrivate, models.EditableEveryone, strangerID, false, false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			d := Evaluate(note(tc.status, tc.editable), editors, tc.user.Hex())
			assert.Equal(t, tc.canView, d.CanView, "canView")
			assert.Equal(t, tc.canEdit, d.CanEdit, "canEdit")
			assert.Equal(t, tc.user == ownerID, d.IsOwner, "isOwner")
		})
	}
}

func TestEvaluateEditNeverExceedsView(t *testing.T) {
	// A listed editor on a private note can edit per the editable rule
	// alone, but must not because they cannot view.
	d := Evaluate(note(models.StatusPrivate, models.EditableAccess), []string{editorID.Hex()}, editorID.Hex())
	assert.False(t, d.CanView)
	assert.False(t, d.CanEdit)
}

func TestRequireViewDenied(t *testing.T) {
	_, err := RequireView(note(models.StatusPrivate, models.EditableMe), nil, strangerID.Hex())
	require.Error(t, err)
	appErr, ok := apperr.From(err)
	require.True(t, ok)
	assert.Equal(t, apperr.CodeAccessDenied, appErr.Code)
}

func TestRequireEditDistinguishesFailures(t *testing.T) {
	n := note(models.StatusPublic, models.EditableMe)

	// Viewer without edit rights gets the editability failure.
	_, err := RequireEdit(n, nil, strangerID.Hex())
	require.Error(t, err)
	appErr, ok := apperr.From(err)
	require.True(t, ok)
	assert.Equal(t, apperr.CodeEditDenied, appErr.Code)

	// Non-viewer gets the visibility failure, never the edit one.
	_, err = RequireEdit(note(models.StatusPrivate, models.EditableMe), nil, strangerID.Hex())
	appErr, ok = apperr.From(err)
	require.True(t, ok)
	assert.Equal(t, apperr.CodeAccessDenied, appErr.Code)
}

func TestRequireRelation(t *testing.T) {
	// Public source: anyone may read through the relation.
	err := RequireRelation(note(models.StatusPublic, models.EditableMe), nil, strangerID.Hex())
	assert.NoError(t, err)

	// Owner keeps access regardless of status.
	err = RequireRelation(note(models.StatusPrivate, models.EditableMe), nil, ownerID.Hex())
	assert.NoError(t, err)

	// Private source cuts strangers off even if the target note is
	// readable.
	err = RequireRelation(note(models.StatusPrivate, models.EditableMe), nil, strangerID.Hex())
	require.Error(t, err)
	appErr, ok := apperr.From(err)
	require.True(t, ok)
	assert.Equal(t, apperr.CodeRelationAccessDenied, appErr.Code)
}
