// Package policy is the single access-policy evaluator. Every
// read/write path — HTTP handlers, services and realtime broadcasts —
// routes its visibility and editability decisions through Evaluate so
// the owner/status/editable rules live in exactly one place.
package policy

import (
	"github.com/RIFAI1010/noedot-backend/internal/apperr"
	"github.com/RIFAI1010/noedot-backend/internal/models"
)

// Decision is the outcome of evaluating one user against one note.
type Decision struct {
	IsOwner bool
	CanView bool
	CanEdit bool
}

// Evaluate computes view/edit rights for userID against a note given
// the note's edit-access list (user id hex strings). It is pure: no
// storage access, no side effects.
func Evaluate(note *models.Note, editorIDs []string, userID string) Decision {
	owner := note.UserID.Hex() == userID
	inList := contains(editorIDs, userID)

	canView := owner ||
		note.Status == models.StatusPublic ||
		(note.Status == models.StatusAccess && inList)

	canEdit := owner ||
		(note.Editable == models.EditableEveryone && canView) ||
		(note.Editable == models.EditableAccess && inList)

	// Editability never exceeds visibility.
	if !canView {
		canEdit = false
	}

	return Decision{IsOwner: owner, CanView: canView, CanEdit: canEdit}
}

// RequireView evaluates and fails with the visibility error when the
// user cannot see the note.
func RequireView(note *models.Note, editorIDs []string, userID string) (Decision, error) {
	d := Evaluate(note, editorIDs, userID)
	if !d.CanView {
		return d, apperr.AccessDenied("you are not allowed to access this note")
	}
	return d, nil
}

// RequireEdit evaluates and fails with the visibility error first,
// then the editability error, so callers never leak edit state to a
// user who cannot view.
func RequireEdit(note *models.Note, editorIDs []string, userID string) (Decision, error) {
	d, err := RequireView(note, editorIDs, userID)
	if err != nil {
		return d, err
	}
	if !d.CanEdit {
		return d, apperr.EditDenied("you are not allowed to edit this note")
	}
	return d, nil
}

// RequireRelation applies the relaxed source-note rule for a block
// embedded outside its source note: unless the caller owns the source
// note or may view it on its own terms, the source must be public.
// The empty-decision return carries CanEdit=false; a relation is
// read-only from any note other than the source.
func RequireRelation(sourceNote *models.Note, sourceEditorIDs []string, userID string) error {
	d := Evaluate(sourceNote, sourceEditorIDs, userID)
	if !d.CanView {
		return apperr.RelationAccessDenied("cannot access this relation: source note is private or access-restricted")
	}
	return nil
}

func contains(ids []string, id string) bool {
	for _, candidate := range ids {
		if candidate == id {
			return true
		}
	}
	return false
}
