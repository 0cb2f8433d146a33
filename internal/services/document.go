package services

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/RIFAI1010/noedot-backend/internal/apperr"
	"github.com/RIFAI1010/noedot-backend/internal/models"
	"github.com/RIFAI1010/noedot-backend/internal/position"
	"github.com/RIFAI1010/noedot-backend/internal/realtime"
	"github.com/RIFAI1010/noedot-backend/internal/store"
)

type DocumentService struct {
	store  store.Store
	notify Notifier
	locks  *position.KeyedMutex
	now    func() time.Time
}

func NewDocumentService(st store.Store, notify Notifier, locks *position.KeyedMutex) *DocumentService {
	return &DocumentService{store: st, notify: notify, locks: locks, now: time.Now}
}

type DocumentView struct {
	models.Document
	JoinID       string `json:"documentNoteId"`
	NoteID       string `json:"noteId"`
	IsSourceNote bool   `json:"isSourceNote"`
	CanEdit      bool   `json:"canEdit"`
}

func (s *DocumentService) Create(ctx context.Context, userID, noteIDHex string) (*DocumentView, error) {
	noteID, err := objectID(noteIDHex)
	if err != nil {
		return nil, err
	}
	if _, _, err := requireNoteEdit(ctx, s.store, noteID, userID); err != nil {
		return nil, err
	}

	unlock := s.locks.Lock(noteLockKey(noteID))
	defer unlock()

	now := s.now()
	document := &models.Document{SourceNoteID: noteID, Name: "New Document", CreatedAt: now, UpdatedAt: now}
	join := &models.DocumentNote{}
	err = s.store.Tx(ctx, func(ctx context.Context) error {
		if err := s.store.CreateDocument(ctx, document); err != nil {
			return err
		}
		join.DocumentID = document.ID
		join.NoteID = noteID
		if err := s.store.CreateDocumentNote(ctx, join); err != nil {
			return err
		}
		blocks, err := s.store.NoteBlocks(ctx, noteID)
		if err != nil {
			return err
		}
		return s.store.CreateNoteBlock(ctx, &models.NoteBlock{
			NoteID:      noteID,
			Type:        models.BlockDocument,
			ReferenceID: join.ID,
			Position:    position.Next(positionItems(blocks)),
		})
	})
	if err != nil {
		return nil, err
	}

	s.notify.Broadcast(ctx, realtime.KindNote, noteIDHex, event(noteID, "addBlock", nil))
	return &DocumentView{
		Document:     *document,
		JoinID:       join.ID.Hex(),
		NoteID:       noteIDHex,
		IsSourceNote: true,
		CanEdit:      true,
	}, nil
}

func (s *DocumentService) AddRelation(ctx context.Context, userID, documentIDHex, noteIDHex string) (*DocumentView, error) {
	documentID, err := objectID(documentIDHex)
	if err != nil {
		return nil, err
	}
	noteID, err := objectID(noteIDHex)
	if err != nil {
		return nil, err
	}
	document, err := s.store.DocumentByID(ctx, documentID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, apperr.NotFound("document not found")
		}
		return nil, err
	}
	if document.SourceNoteID == noteID {
		return nil, apperr.AlreadyRelated("document was created in this note")
	}
	if _, _, err := requireNoteEdit(ctx, s.store, noteID, userID); err != nil {
		return nil, err
	}
	source, _, err := noteWithEditors(ctx, s.store, document.SourceNoteID)
	if err != nil {
		return nil, err
	}
	if source.Status != models.StatusPublic {
		return nil, apperr.SourceNotPublic("source note is not public")
	}
	exists, err := s.store.DocumentNoteExists(ctx, documentID, noteID)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, apperr.AlreadyRelated("document is already related to this note")
	}

	unlock := s.locks.Lock(noteLockKey(noteID))
	defer unlock()

	join := &models.DocumentNote{DocumentID: documentID, NoteID: noteID}
	err = s.store.Tx(ctx, func(ctx context.Context) error {
		if err := s.store.CreateDocumentNote(ctx, join); err != nil {
			return err
		}
		blocks, err := s.store.NoteBlocks(ctx, noteID)
		if err != nil {
			return err
		}
		return s.store.CreateNoteBlock(ctx, &models.NoteBlock{
			NoteID:      noteID,
			Type:        models.BlockDocument,
			ReferenceID: join.ID,
			Position:    position.Next(positionItems(blocks)),
		})
	})
	if err != nil {
		return nil, err
	}

	s.notify.Broadcast(ctx, realtime.KindNote, noteIDHex, event(noteID, "addBlock", nil))
	return &DocumentView{
		Document:     *document,
		JoinID:       join.ID.Hex(),
		NoteID:       noteIDHex,
		IsSourceNote: false,
		CanEdit:      false,
	}, nil
}

func (s *DocumentService) Get(ctx context.Context, userID, joinIDHex string) (*DocumentView, error) {
	joinID, err := objectID(joinIDHex)
	if err != nil {
		return nil, err
	}
	join, err := s.store.DocumentNoteByID(ctx, joinID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, apperr.NotFound("document relation not found")
		}
		return nil, err
	}
	document, err := s.store.DocumentByID(ctx, join.DocumentID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, apperr.NotFound("document not found")
		}
		return nil, err
	}

	_, decision, err := requireNoteView(ctx, s.store, join.NoteID, userID)
	if err != nil {
		return nil, err
	}
	isSource := document.SourceNoteID == join.NoteID
	if !isSource {
		if err := requireRelation(ctx, s.store, document.SourceNoteID, userID); err != nil {
			return nil, err
		}
	}

	return &DocumentView{
		Document:     *document,
		JoinID:       joinIDHex,
		NoteID:       join.NoteID.Hex(),
		IsSourceNote: isSource,
		CanEdit:      decision.CanEdit && isSource,
	}, nil
}

func (s *DocumentService) requireSourceEdit(ctx context.Context, userID string, documentID primitive.ObjectID) (*models.Document, error) {
	document, err := s.store.DocumentByID(ctx, documentID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, apperr.NotFound("document not found")
		}
		return nil, err
	}
	if _, _, err := requireNoteEdit(ctx, s.store, document.SourceNoteID, userID); err != nil {
		return nil, err
	}
	return document, nil
}

func (s *DocumentService) UpdateName(ctx context.Context, userID, documentIDHex, name string) (*models.Document, error) {
	documentID, err := objectID(documentIDHex)
	if err != nil {
		return nil, err
	}
	document, err := s.requireSourceEdit(ctx, userID, documentID)
	if err != nil {
		return nil, err
	}

	document.Name = name
	document.UpdatedAt = s.now()
	if err := s.store.UpdateDocument(ctx, document); err != nil {
		return nil, err
	}
	s.notify.Broadcast(ctx, realtime.KindDocument, documentIDHex, event(documentID, "updateDocumentName", nil))
	return document, nil
}

// UpdateContent replaces the document body, last write wins.
func (s *DocumentService) UpdateContent(ctx context.Context, userID, documentIDHex, content string) (*models.Document, error) {
	documentID, err := objectID(documentIDHex)
	if err != nil {
		return nil, err
	}
	document, err := s.requireSourceEdit(ctx, userID, documentID)
	if err != nil {
		return nil, err
	}

	document.Content = content
	document.UpdatedAt = s.now()
	if err := s.store.UpdateDocument(ctx, document); err != nil {
		return nil, err
	}
	s.notify.Broadcast(ctx, realtime.KindDocument, documentIDHex, event(documentID, "updateDocumentContent", nil))
	return document, nil
}

func (s *DocumentService) UpdateHeight(ctx context.Context, userID, documentIDHex string, height int) (*models.Document, error) {
	documentID, err := objectID(documentIDHex)
	if err != nil {
		return nil, err
	}
	document, err := s.requireSourceEdit(ctx, userID, documentID)
	if err != nil {
		return nil, err
	}

	document.Height = height
	document.UpdatedAt = s.now()
	if err := s.store.UpdateDocument(ctx, document); err != nil {
		return nil, err
	}
	s.notify.Broadcast(ctx, realtime.KindDocument, documentIDHex, event(documentID, "updateDocumentHeight", nil))
	return document, nil
}

func (s *DocumentService) Delete(ctx context.Context, userID, joinIDHex string) (string, error) {
	joinID, err := objectID(joinIDHex)
	if err != nil {
		return "", err
	}
	join, err := s.store.DocumentNoteByID(ctx, joinID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return "", apperr.NotFound("document relation not found")
		}
		return "", err
	}

	document, err := s.store.DocumentByID(ctx, join.DocumentID)
	if errors.Is(err, store.ErrNotFound) {
		if err := s.unlink(ctx, join); err != nil {
			return "", err
		}
		s.notify.Broadcast(ctx, realtime.KindNote, join.NoteID.Hex(), event(join.NoteID, "deleteBlock", nil))
		return "document relation deleted successfully. but document not found", nil
	}
	if err != nil {
		return "", err
	}

	if document.SourceNoteID != join.NoteID {
		if _, _, err := requireNoteEdit(ctx, s.store, join.NoteID, userID); err != nil {
			return "", err
		}
		if err := s.unlink(ctx, join); err != nil {
			return "", err
		}
		s.notify.Broadcast(ctx, realtime.KindNote, join.NoteID.Hex(), event(join.NoteID, "deleteBlock", nil))
		return "document relation deleted successfully", nil
	}

	if _, _, err := requireNoteEdit(ctx, s.store, document.SourceNoteID, userID); err != nil {
		return "", err
	}
	var touched []primitive.ObjectID
	err = s.store.Tx(ctx, func(ctx context.Context) error {
		var err error
		touched, err = deleteDocumentCascade(ctx, s.store, document.ID)
		if err != nil {
			return err
		}
		for _, noteID := range touched {
			if err := reflowNoteBlocks(ctx, s.store, noteID); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return "", err
	}
	for _, noteID := range touched {
		s.notify.Broadcast(ctx, realtime.KindNote, noteID.Hex(), event(noteID, "deleteBlock", nil))
	}
	return "document deleted successfully", nil
}

func (s *DocumentService) unlink(ctx context.Context, join *models.DocumentNote) error {
	unlock := s.locks.Lock(noteLockKey(join.NoteID))
	defer unlock()
	return s.store.Tx(ctx, func(ctx context.Context) error {
		if err := s.store.DeleteDocumentNote(ctx, join.ID); err != nil && !errors.Is(err, store.ErrNotFound) {
			return err
		}
		if err := s.store.DeleteNoteBlocksByReference(ctx, join.ID); err != nil {
			return err
		}
		return reflowNoteBlocks(ctx, s.store, join.NoteID)
	})
}

func deleteDocumentCascade(ctx context.Context, st store.Store, documentID primitive.ObjectID) ([]primitive.ObjectID, error) {
	joins, err := st.DocumentNotesByDocument(ctx, documentID)
	if err != nil {
		return nil, err
	}
	var touched []primitive.ObjectID
	for _, join := range joins {
		if err := st.DeleteNoteBlocksByReference(ctx, join.ID); err != nil {
			return nil, err
		}
		if err := st.DeleteDocumentNote(ctx, join.ID); err != nil && !errors.Is(err, store.ErrNotFound) {
			return nil, err
		}
		touched = append(touched, join.NoteID)
	}
	if err := st.DeleteDocument(ctx, documentID); err != nil && !errors.Is(err, store.ErrNotFound) {
		return nil, err
	}
	return touched, nil
}

func (s *DocumentService) List(ctx context.Context, userID, filter, excludeNoteHex string) ([]models.Document, error) {
	noteIDs, err := candidateNoteIDs(ctx, s.store, userID, filter)
	if err != nil {
		return nil, err
	}
	documents, err := s.store.DocumentsBySourceNotes(ctx, noteIDs)
	if err != nil {
		return nil, err
	}
	if excludeNoteHex == "" {
		return documents, nil
	}
	excludeNote, err := objectID(excludeNoteHex)
	if err != nil {
		return nil, err
	}
	out := make([]models.Document, 0, len(documents))
	for _, document := range documents {
		related, err := s.store.DocumentNoteExists(ctx, document.ID, excludeNote)
		if err != nil {
			return nil, err
		}
		if !related {
			out = append(out, document)
		}
	}
	return out, nil
}
