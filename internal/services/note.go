package services

import (
	"context"
	"errors"
	"sort"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/RIFAI1010/noedot-backend/internal/apperr"
	"github.com/RIFAI1010/noedot-backend/internal/models"
	"github.com/RIFAI1010/noedot-backend/internal/policy"
	"github.com/RIFAI1010/noedot-backend/internal/position"
	"github.com/RIFAI1010/noedot-backend/internal/realtime"
	"github.com/RIFAI1010/noedot-backend/internal/store"
)

type NoteService struct {
	store  store.Store
	notify Notifier
	locks  *position.KeyedMutex
	now    func() time.Time
}

func NewNoteService(st store.Store, notify Notifier, locks *position.KeyedMutex) *NoteService {
	return &NoteService{store: st, notify: notify, locks: locks, now: time.Now}
}

type CreateNoteInput struct {
	Title      string   `json:"title" binding:"required"`
	Status     string   `json:"status"`
	Editable   string   `json:"editable"`
	UserAccess []string `json:"userAccess"`
}

type UpdateNoteInput struct {
	Title      *string   `json:"title"`
	Status     *string   `json:"status"`
	Editable   *string   `json:"editable"`
	UserAccess *[]string `json:"userAccess"`
}

// NoteDetail is the per-user view of one note.
type NoteDetail struct {
	models.Note
	DateStatus models.DateStatus `json:"dateStatus"`
	CanEdit    bool              `json:"canEdit"`
	Owner      bool              `json:"owner"`
	Favorite   bool              `json:"favorite"`
	Editors    []models.User     `json:"userAccess"`
}

type NoteListItem struct {
	models.Note
	DateStatus models.DateStatus `json:"dateStatus"`
	Favorite   bool              `json:"favorite"`
	OpenAt     *time.Time        `json:"openAt,omitempty"`
}

type ListNotesInput struct {
	Filter string // my | shared
	Sort   string // updatedAt | openAt
	Page   int
	Limit  int
}

func (s *NoteService) Create(ctx context.Context, userID string, in CreateNoteInput) (*models.Note, error) {
	ownerID, err := objectID(userID)
	if err != nil {
		return nil, err
	}
	status := models.NoteStatus(in.Status)
	if in.Status == "" {
		status = models.StatusPrivate
	}
	if !status.Valid() {
		return nil, apperr.BadRequest("invalid status")
	}
	editable := models.Editable(in.Editable)
	if in.Editable == "" {
		editable = models.EditableMe
	}
	if !editable.Valid() {
		return nil, apperr.BadRequest("invalid editable")
	}

	now := s.now()
	note := &models.Note{
		UserID:    ownerID,
		Title:     in.Title,
		Status:    status,
		Editable:  editable,
		CreatedAt: now,
		UpdatedAt: now,
	}
	err = s.store.Tx(ctx, func(ctx context.Context) error {
		if err := s.store.CreateNote(ctx, note); err != nil {
			return err
		}
		return s.reconcileEditors(ctx, note, in.UserAccess)
	})
	if err != nil {
		return nil, err
	}

	s.notify.Broadcast(ctx, realtime.KindUser, userID, event(note.ID, "createNote", nil))
	return note, nil
}

// reconcileEditors makes the note's edit-access list match the wanted
// user ids, dropping unknown users and the owner.
func (s *NoteService) reconcileEditors(ctx context.Context, note *models.Note, wanted []string) error {
	wantedIDs := make([]primitive.ObjectID, 0, len(wanted))
	for _, hex := range wanted {
		id, err := primitive.ObjectIDFromHex(hex)
		if err != nil || id == note.UserID {
			continue
		}
		wantedIDs = append(wantedIDs, id)
	}
	users, err := s.store.UsersByIDs(ctx, wantedIDs)
	if err != nil {
		return err
	}
	want := make(map[primitive.ObjectID]bool, len(users))
	for _, u := range users {
		want[u.ID] = true
	}

	current, err := s.store.NoteEditorIDs(ctx, note.ID)
	if err != nil {
		return err
	}
	have := make(map[primitive.ObjectID]bool, len(current))
	for _, id := range current {
		have[id] = true
	}

	var remove []primitive.ObjectID
	for _, id := range current {
		if !want[id] {
			remove = append(remove, id)
		}
	}
	if len(remove) > 0 {
		if err := s.store.RemoveNoteEditors(ctx, note.ID, remove); err != nil {
			return err
		}
	}
	for id := range want {
		if !have[id] {
			if err := s.store.AddNoteEditor(ctx, note.ID, id); err != nil && !errors.Is(err, store.ErrDuplicate) {
				return err
			}
		}
	}
	return nil
}

// Get returns the caller's view of a note and records the open time.
func (s *NoteService) Get(ctx context.Context, userID, noteIDHex string) (*NoteDetail, error) {
	noteID, err := objectID(noteIDHex)
	if err != nil {
		return nil, err
	}
	note, decision, err := requireNoteView(ctx, s.store, noteID, userID)
	if err != nil {
		return nil, err
	}

	callerID, err := objectID(userID)
	if err != nil {
		return nil, err
	}
	if err := s.store.TouchNoteOpen(ctx, noteID, callerID, s.now()); err != nil {
		return nil, err
	}

	editorIDs, err := s.store.NoteEditorIDs(ctx, noteID)
	if err != nil {
		return nil, err
	}
	editors, err := s.store.UsersByIDs(ctx, editorIDs)
	if err != nil {
		return nil, err
	}
	favorite, err := s.store.IsFavorite(ctx, noteID, callerID)
	if err != nil {
		return nil, err
	}

	return &NoteDetail{
		Note:       *note,
		DateStatus: note.DateStatusAt(s.now()),
		CanEdit:    decision.CanEdit,
		Owner:      decision.IsOwner,
		Favorite:   favorite,
		Editors:    editors,
	}, nil
}

// List returns the caller's notes (filter "my") or notes shared with
// them through the edit-access list (filter "shared").
func (s *NoteService) List(ctx context.Context, userID string, in ListNotesInput) ([]NoteListItem, error) {
	callerID, err := objectID(userID)
	if err != nil {
		return nil, err
	}

	var notes []models.Note
	switch in.Filter {
	case "", "my":
		notes, err = s.store.NotesByOwner(ctx, callerID)
	case "shared":
		var sharedIDs []primitive.ObjectID
		sharedIDs, err = s.store.NoteIDsEditableBy(ctx, callerID)
		if err != nil {
			return nil, err
		}
		notes, err = s.store.NotesByIDs(ctx, sharedIDs)
	default:
		return nil, apperr.BadRequest("filter must be my or shared")
	}
	if err != nil {
		return nil, err
	}

	opens, err := s.store.NoteOpens(ctx, callerID)
	if err != nil {
		return nil, err
	}
	favoriteIDs, err := s.store.NoteIDsFavoritedBy(ctx, callerID)
	if err != nil {
		return nil, err
	}
	favorites := make(map[primitive.ObjectID]bool, len(favoriteIDs))
	for _, id := range favoriteIDs {
		favorites[id] = true
	}

	now := s.now()
	items := make([]NoteListItem, 0, len(notes))
	for _, n := range notes {
		item := NoteListItem{
			Note:       n,
			DateStatus: n.DateStatusAt(now),
			Favorite:   favorites[n.ID],
		}
		if openAt, ok := opens[n.ID]; ok {
			openAt := openAt
			item.OpenAt = &openAt
		}
		items = append(items, item)
	}

	if in.Sort == "openAt" {
		sort.SliceStable(items, func(i, j int) bool {
			var a, b time.Time
			if items[i].OpenAt != nil {
				a = *items[i].OpenAt
			}
			if items[j].OpenAt != nil {
				b = *items[j].OpenAt
			}
			return a.After(b)
		})
	}

	return paginate(items, in.Page, in.Limit), nil
}

func paginate(items []NoteListItem, page, limit int) []NoteListItem {
	if limit <= 0 {
		return items
	}
	if page < 1 {
		page = 1
	}
	start := (page - 1) * limit
	if start >= len(items) {
		return []NoteListItem{}
	}
	end := start + limit
	if end > len(items) {
		end = len(items)
	}
	return items[start:end]
}

// Update patches note fields. Title needs edit rights; status,
// editable and the edit-access list are owner-only.
func (s *NoteService) Update(ctx context.Context, userID, noteIDHex string, in UpdateNoteInput) (*models.Note, error) {
	noteID, err := objectID(noteIDHex)
	if err != nil {
		return nil, err
	}
	note, editors, err := noteWithEditors(ctx, s.store, noteID)
	if err != nil {
		return nil, err
	}
	decision, err := policy.RequireEdit(note, editors, userID)
	if err != nil {
		return nil, err
	}
	if (in.Status != nil || in.Editable != nil || in.UserAccess != nil) && !decision.IsOwner {
		return nil, apperr.EditDenied("only the owner can change note access settings")
	}

	if in.Title != nil {
		note.Title = *in.Title
	}
	if in.Status != nil {
		status := models.NoteStatus(*in.Status)
		if !status.Valid() {
			return nil, apperr.BadRequest("invalid status")
		}
		note.Status = status
	}
	if in.Editable != nil {
		editable := models.Editable(*in.Editable)
		if !editable.Valid() {
			return nil, apperr.BadRequest("invalid editable")
		}
		note.Editable = editable
	}
	note.UpdatedAt = s.now()

	err = s.store.Tx(ctx, func(ctx context.Context) error {
		if err := s.store.UpdateNote(ctx, note); err != nil {
			return err
		}
		if in.UserAccess != nil {
			return s.reconcileEditors(ctx, note, *in.UserAccess)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.notify.Broadcast(ctx, realtime.KindNote, noteIDHex, event(note.ID, "updateNote", nil))
	s.notify.Broadcast(ctx, realtime.KindUser, note.UserID.Hex(), event(note.ID, "updateNote", nil))
	return note, nil
}

// UpdateDates sets the begin/due window. A due date before the begin
// date is rejected; any change resets the confirm flag.
func (s *NoteService) UpdateDates(ctx context.Context, userID, noteIDHex string, begin, due *time.Time) (*models.Note, error) {
	noteID, err := objectID(noteIDHex)
	if err != nil {
		return nil, err
	}
	note, _, err := requireNoteEdit(ctx, s.store, noteID, userID)
	if err != nil {
		return nil, err
	}
	if begin != nil && due != nil && due.Before(*begin) {
		return nil, apperr.InvalidState("due date cannot be before begin date")
	}

	note.Begin = begin
	note.Due = due
	note.ConfirmDue = false
	note.UpdatedAt = s.now()
	if err := s.store.UpdateNote(ctx, note); err != nil {
		return nil, err
	}

	s.notify.Broadcast(ctx, realtime.KindNote, noteIDHex, event(note.ID, "updateNote", nil))
	return note, nil
}

// ConfirmDue marks the note's date tracking complete.
func (s *NoteService) ConfirmDue(ctx context.Context, userID, noteIDHex string) (*models.Note, error) {
	noteID, err := objectID(noteIDHex)
	if err != nil {
		return nil, err
	}
	note, _, err := requireNoteEdit(ctx, s.store, noteID, userID)
	if err != nil {
		return nil, err
	}
	if note.Due == nil {
		return nil, apperr.InvalidState("note has no due date to confirm")
	}

	note.ConfirmDue = true
	note.UpdatedAt = s.now()
	if err := s.store.UpdateNote(ctx, note); err != nil {
		return nil, err
	}

	s.notify.Broadcast(ctx, realtime.KindNote, noteIDHex, event(note.ID, "updateNote", nil))
	return note, nil
}

func (s *NoteService) Favorite(ctx context.Context, userID, noteIDHex string) error {
	noteID, err := objectID(noteIDHex)
	if err != nil {
		return err
	}
	if _, _, err := requireNoteView(ctx, s.store, noteID, userID); err != nil {
		return err
	}
	callerID, err := objectID(userID)
	if err != nil {
		return err
	}
	err = s.store.AddFavorite(ctx, &models.NoteUserFavorite{
		NoteID:    noteID,
		UserID:    callerID,
		CreatedAt: s.now(),
	})
	if errors.Is(err, store.ErrDuplicate) {
		return apperr.Conflict("note is already a favorite")
	}
	return err
}

func (s *NoteService) Unfavorite(ctx context.Context, userID, noteIDHex string) error {
	noteID, err := objectID(noteIDHex)
	if err != nil {
		return err
	}
	callerID, err := objectID(userID)
	if err != nil {
		return err
	}
	err = s.store.RemoveFavorite(ctx, noteID, callerID)
	if errors.Is(err, store.ErrNotFound) {
		return apperr.NotFound("note is not a favorite")
	}
	return err
}

// BlockView is one positioned block with enough of its referenced
// entity resolved for list rendering. Missing marks a dangling
// relation whose entity has been deleted.
type BlockView struct {
	models.NoteBlock
	EntityID     string `json:"entityId,omitempty"`
	Name         string `json:"name,omitempty"`
	IsSourceNote bool   `json:"isSourceNote"`
	Missing      bool   `json:"missing,omitempty"`
}

// Blocks returns the note's blocks in order.
func (s *NoteService) Blocks(ctx context.Context, userID, noteIDHex string) ([]BlockView, error) {
	noteID, err := objectID(noteIDHex)
	if err != nil {
		return nil, err
	}
	if _, _, err := requireNoteView(ctx, s.store, noteID, userID); err != nil {
		return nil, err
	}
	blocks, err := s.store.NoteBlocks(ctx, noteID)
	if err != nil {
		return nil, err
	}

	views := make([]BlockView, 0, len(blocks))
	for _, b := range blocks {
		view := BlockView{NoteBlock: b}
		switch b.Type {
		case models.BlockTable:
			if join, err := s.store.TableNoteByID(ctx, b.ReferenceID); err == nil {
				if table, err := s.store.TableByID(ctx, join.TableID); err == nil {
					view.EntityID = table.ID.Hex()
					view.Name = table.Name
					view.IsSourceNote = table.SourceNoteID == noteID
				} else {
					view.Missing = true
				}
			} else {
				view.Missing = true
			}
		case models.BlockDocument:
			if join, err := s.store.DocumentNoteByID(ctx, b.ReferenceID); err == nil {
				if document, err := s.store.DocumentByID(ctx, join.DocumentID); err == nil {
					view.EntityID = document.ID.Hex()
					view.Name = document.Name
					view.IsSourceNote = document.SourceNoteID == noteID
				} else {
					view.Missing = true
				}
			} else {
				view.Missing = true
			}
		case models.BlockBoard:
			if join, err := s.store.BoardNoteByID(ctx, b.ReferenceID); err == nil {
				if board, err := s.store.BoardByID(ctx, join.BoardID); err == nil {
					view.EntityID = board.ID.Hex()
					view.Name = board.Name
					view.IsSourceNote = board.SourceNoteID == noteID
				} else {
					view.Missing = true
				}
			} else {
				view.Missing = true
			}
		}
		views = append(views, view)
	}
	return views, nil
}

// MoveBlock shifts a block one step up or down within its note.
func (s *NoteService) MoveBlock(ctx context.Context, userID, noteIDHex, blockIDHex, direction string) error {
	noteID, err := objectID(noteIDHex)
	if err != nil {
		return err
	}
	blockID, err := objectID(blockIDHex)
	if err != nil {
		return err
	}
	dir, err := position.ParseDirection(direction)
	if err != nil {
		return err
	}
	if _, _, err := requireNoteEdit(ctx, s.store, noteID, userID); err != nil {
		return err
	}

	unlock := s.locks.Lock(noteLockKey(noteID))
	defer unlock()

	blocks, err := s.store.NoteBlocks(ctx, noteID)
	if err != nil {
		return err
	}
	block, err := s.store.NoteBlockByID(ctx, blockID)
	if err != nil || block.NoteID != noteID {
		return apperr.NotFound("block not found in this note")
	}

	moved, err := position.Move(positionItems(blocks), blockID.Hex(), dir)
	if err != nil {
		return err
	}
	if err := s.store.SetNoteBlockPositions(ctx, applyBlockPositions(blocks, moved)); err != nil {
		return err
	}

	s.notify.Broadcast(ctx, realtime.KindNote, noteIDHex, event(noteID, "moveBlock", map[string]interface{}{
		"blockId": blockIDHex,
	}))
	return nil
}

// Delete removes a note and everything anchored to it: blocks, edit
// grants, favorites, open records, joins hosted in it, and every
// sub-entity whose source it is (including that entity's embeddings in
// other notes, which get reflowed).
func (s *NoteService) Delete(ctx context.Context, userID, noteIDHex string) error {
	noteID, err := objectID(noteIDHex)
	if err != nil {
		return err
	}
	note, _, err := noteWithEditors(ctx, s.store, noteID)
	if err != nil {
		return err
	}
	if note.UserID.Hex() != userID {
		return apperr.EditDenied("only the owner can delete a note")
	}

	unlock := s.locks.Lock(noteLockKey(noteID))
	defer unlock()

	touched := map[primitive.ObjectID]bool{}
	err = s.store.Tx(ctx, func(ctx context.Context) error {
		source := []primitive.ObjectID{noteID}

		tables, err := s.store.TablesBySourceNotes(ctx, source)
		if err != nil {
			return err
		}
		for _, table := range tables {
			notes, err := deleteTableCascade(ctx, s.store, table.ID)
			if err != nil {
				return err
			}
			for _, id := range notes {
				touched[id] = true
			}
		}

		documents, err := s.store.DocumentsBySourceNotes(ctx, source)
		if err != nil {
			return err
		}
		for _, document := range documents {
			notes, err := deleteDocumentCascade(ctx, s.store, document.ID)
			if err != nil {
				return err
			}
			for _, id := range notes {
				touched[id] = true
			}
		}

		boards, err := s.store.BoardsBySourceNotes(ctx, source)
		if err != nil {
			return err
		}
		for _, board := range boards {
			notes, err := deleteBoardCascade(ctx, s.store, board.ID)
			if err != nil {
				return err
			}
			for _, id := range notes {
				touched[id] = true
			}
		}

		// Joins this note holds on entities sourced elsewhere.
		blocks, err := s.store.NoteBlocks(ctx, noteID)
		if err != nil {
			return err
		}
		for _, b := range blocks {
			var err error
			switch b.Type {
			case models.BlockTable:
				err = s.store.DeleteTableNote(ctx, b.ReferenceID)
			case models.BlockDocument:
				err = s.store.DeleteDocumentNote(ctx, b.ReferenceID)
			case models.BlockBoard:
				err = s.store.DeleteBoardNote(ctx, b.ReferenceID)
			}
			if err != nil && !errors.Is(err, store.ErrNotFound) {
				return err
			}
		}

		if err := s.store.DeleteNoteBlocksByNote(ctx, noteID); err != nil {
			return err
		}
		if err := s.store.DeleteNoteEditors(ctx, noteID); err != nil {
			return err
		}
		if err := s.store.DeleteFavoritesByNote(ctx, noteID); err != nil {
			return err
		}
		if err := s.store.DeleteNoteOpensByNote(ctx, noteID); err != nil {
			return err
		}
		if err := s.store.DeleteNote(ctx, noteID); err != nil {
			return err
		}

		delete(touched, noteID)
		for id := range touched {
			if err := reflowNoteBlocks(ctx, s.store, id); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	for id := range touched {
		s.notify.Broadcast(ctx, realtime.KindNote, id.Hex(), event(id, "deleteBlock", nil))
	}
	s.notify.Broadcast(ctx, realtime.KindUser, userID, event(noteID, "deleteNote", nil))
	return nil
}
