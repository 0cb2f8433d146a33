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

type BoardService struct {
	store  store.Store
	notify Notifier
	locks  *position.KeyedMutex
	now    func() time.Time
}

func NewBoardService(st store.Store, notify Notifier, locks *position.KeyedMutex) *BoardService {
	return &BoardService{store: st, notify: notify, locks: locks, now: time.Now}
}

type BoardView struct {
	models.Board
	JoinID       string        `json:"boardNoteId"`
	NoteID       string        `json:"noteId"`
	IsSourceNote bool          `json:"isSourceNote"`
	CanEdit      bool          `json:"canEdit"`
	Columns      []BoardColumn `json:"columns,omitempty"`
}

type BoardColumn struct {
	models.BoardColumn
	Cards []models.BoardCard `json:"cards"`
}

func (s *BoardService) Create(ctx context.Context, userID, noteIDHex string) (*BoardView, error) {
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
	board := &models.Board{SourceNoteID: noteID, Name: "New Board", CreatedAt: now, UpdatedAt: now}
	join := &models.BoardNote{}
	err = s.store.Tx(ctx, func(ctx context.Context) error {
		if err := s.store.CreateBoard(ctx, board); err != nil {
			return err
		}
		join.BoardID = board.ID
		join.NoteID = noteID
		if err := s.store.CreateBoardNote(ctx, join); err != nil {
			return err
		}
		blocks, err := s.store.NoteBlocks(ctx, noteID)
		if err != nil {
			return err
		}
		return s.store.CreateNoteBlock(ctx, &models.NoteBlock{
			NoteID:      noteID,
			Type:        models.BlockBoard,
			ReferenceID: join.ID,
			Position:    position.Next(positionItems(blocks)),
		})
	})
	if err != nil {
		return nil, err
	}

	s.notify.Broadcast(ctx, realtime.KindNote, noteIDHex, event(noteID, "addBlock", nil))
	return &BoardView{
		Board:        *board,
		JoinID:       join.ID.Hex(),
		NoteID:       noteIDHex,
		IsSourceNote: true,
		CanEdit:      true,
	}, nil
}

func (s *BoardService) AddRelation(ctx context.Context, userID, boardIDHex, noteIDHex string) (*BoardView, error) {
	boardID, err := objectID(boardIDHex)
	if err != nil {
		return nil, err
	}
	noteID, err := objectID(noteIDHex)
	if err != nil {
		return nil, err
	}
	board, err := s.store.BoardByID(ctx, boardID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, apperr.NotFound("board not found")
		}
		return nil, err
	}
	if board.SourceNoteID == noteID {
		return nil, apperr.AlreadyRelated("board was created in this note")
	}
	if _, _, err := requireNoteEdit(ctx, s.store, noteID, userID); err != nil {
		return nil, err
	}
	source, _, err := noteWithEditors(ctx, s.store, board.SourceNoteID)
	if err != nil {
		return nil, err
	}
	if source.Status != models.StatusPublic {
		return nil, apperr.SourceNotPublic("source note is not public")
	}
	exists, err := s.store.BoardNoteExists(ctx, boardID, noteID)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, apperr.AlreadyRelated("board is already related to this note")
	}

	unlock := s.locks.Lock(noteLockKey(noteID))
	defer unlock()

	join := &models.BoardNote{BoardID: boardID, NoteID: noteID}
	err = s.store.Tx(ctx, func(ctx context.Context) error {
		if err := s.store.CreateBoardNote(ctx, join); err != nil {
			return err
		}
		blocks, err := s.store.NoteBlocks(ctx, noteID)
		if err != nil {
			return err
		}
		return s.store.CreateNoteBlock(ctx, &models.NoteBlock{
			NoteID:      noteID,
			Type:        models.BlockBoard,
			ReferenceID: join.ID,
			Position:    position.Next(positionItems(blocks)),
		})
	})
	if err != nil {
		return nil, err
	}

	s.notify.Broadcast(ctx, realtime.KindNote, noteIDHex, event(noteID, "addBlock", nil))
	return &BoardView{
		Board:        *board,
		JoinID:       join.ID.Hex(),
		NoteID:       noteIDHex,
		IsSourceNote: false,
		CanEdit:      false,
	}, nil
}

func (s *BoardService) Get(ctx context.Context, userID, joinIDHex string, detail bool) (*BoardView, error) {
	joinID, err := objectID(joinIDHex)
	if err != nil {
		return nil, err
	}
	join, err := s.store.BoardNoteByID(ctx, joinID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, apperr.NotFound("board relation not found")
		}
		return nil, err
	}
	board, err := s.store.BoardByID(ctx, join.BoardID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, apperr.NotFound("board not found")
		}
		return nil, err
	}

	_, decision, err := requireNoteView(ctx, s.store, join.NoteID, userID)
	if err != nil {
		return nil, err
	}
	isSource := board.SourceNoteID == join.NoteID
	if !isSource {
		if err := requireRelation(ctx, s.store, board.SourceNoteID, userID); err != nil {
			return nil, err
		}
	}

	view := &BoardView{
		Board:        *board,
		JoinID:       joinIDHex,
		NoteID:       join.NoteID.Hex(),
		IsSourceNote: isSource,
		CanEdit:      decision.CanEdit && isSource,
	}
	if !detail {
		return view, nil
	}

	columns, err := s.store.BoardColumnsByBoard(ctx, board.ID)
	if err != nil {
		return nil, err
	}
	view.Columns = make([]BoardColumn, len(columns))
	for i, column := range columns {
		cards, err := s.store.BoardCardsByColumn(ctx, column.ID)
		if err != nil {
			return nil, err
		}
		if cards == nil {
			cards = []models.BoardCard{}
		}
		view.Columns[i] = BoardColumn{BoardColumn: column, Cards: cards}
	}
	return view, nil
}

func (s *BoardService) requireSourceEdit(ctx context.Context, userID string, boardID primitive.ObjectID) (*models.Board, error) {
	board, err := s.store.BoardByID(ctx, boardID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, apperr.NotFound("board not found")
		}
		return nil, err
	}
	if _, _, err := requireNoteEdit(ctx, s.store, board.SourceNoteID, userID); err != nil {
		return nil, err
	}
	return board, nil
}

func (s *BoardService) UpdateName(ctx context.Context, userID, boardIDHex, name string) (*models.Board, error) {
	boardID, err := objectID(boardIDHex)
	if err != nil {
		return nil, err
	}
	board, err := s.requireSourceEdit(ctx, userID, boardID)
	if err != nil {
		return nil, err
	}

	board.Name = name
	board.UpdatedAt = s.now()
	if err := s.store.UpdateBoard(ctx, board); err != nil {
		return nil, err
	}
	s.notify.Broadcast(ctx, realtime.KindBoard, boardIDHex, event(boardID, "updateBoardName", nil))
	return board, nil
}

func (s *BoardService) Delete(ctx context.Context, userID, joinIDHex string) (string, error) {
	joinID, err := objectID(joinIDHex)
	if err != nil {
		return "", err
	}
	join, err := s.store.BoardNoteByID(ctx, joinID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return "", apperr.NotFound("board relation not found")
		}
		return "", err
	}

	board, err := s.store.BoardByID(ctx, join.BoardID)
	if errors.Is(err, store.ErrNotFound) {
		if err := s.unlink(ctx, join); err != nil {
			return "", err
		}
		s.notify.Broadcast(ctx, realtime.KindNote, join.NoteID.Hex(), event(join.NoteID, "deleteBlock", nil))
		return "board relation deleted successfully. but board not found", nil
	}
	if err != nil {
		return "", err
	}

	if board.SourceNoteID != join.NoteID {
		if _, _, err := requireNoteEdit(ctx, s.store, join.NoteID, userID); err != nil {
			return "", err
		}
		if err := s.unlink(ctx, join); err != nil {
			return "", err
		}
		s.notify.Broadcast(ctx, realtime.KindNote, join.NoteID.Hex(), event(join.NoteID, "deleteBlock", nil))
		return "board relation deleted successfully", nil
	}

	if _, _, err := requireNoteEdit(ctx, s.store, board.SourceNoteID, userID); err != nil {
		return "", err
	}
	var touched []primitive.ObjectID
	err = s.store.Tx(ctx, func(ctx context.Context) error {
		var err error
		touched, err = deleteBoardCascade(ctx, s.store, board.ID)
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
	return "board deleted successfully", nil
}

func (s *BoardService) unlink(ctx context.Context, join *models.BoardNote) error {
	unlock := s.locks.Lock(noteLockKey(join.NoteID))
	defer unlock()
	return s.store.Tx(ctx, func(ctx context.Context) error {
		if err := s.store.DeleteBoardNote(ctx, join.ID); err != nil && !errors.Is(err, store.ErrNotFound) {
			return err
		}
		if err := s.store.DeleteNoteBlocksByReference(ctx, join.ID); err != nil {
			return err
		}
		return reflowNoteBlocks(ctx, s.store, join.NoteID)
	})
}

func deleteBoardCascade(ctx context.Context, st store.Store, boardID primitive.ObjectID) ([]primitive.ObjectID, error) {
	joins, err := st.BoardNotesByBoard(ctx, boardID)
	if err != nil {
		return nil, err
	}
	var touched []primitive.ObjectID
	for _, join := range joins {
		if err := st.DeleteNoteBlocksByReference(ctx, join.ID); err != nil {
			return nil, err
		}
		if err := st.DeleteBoardNote(ctx, join.ID); err != nil && !errors.Is(err, store.ErrNotFound) {
			return nil, err
		}
		touched = append(touched, join.NoteID)
	}
	columns, err := st.BoardColumnsByBoard(ctx, boardID)
	if err != nil {
		return nil, err
	}
	for _, column := range columns {
		if err := st.DeleteBoardColumn(ctx, column.ID); err != nil && !errors.Is(err, store.ErrNotFound) {
			return nil, err
		}
	}
	if err := st.DeleteBoard(ctx, boardID); err != nil && !errors.Is(err, store.ErrNotFound) {
		return nil, err
	}
	return touched, nil
}

func (s *BoardService) List(ctx context.Context, userID, filter, excludeNoteHex string) ([]models.Board, error) {
	noteIDs, err := candidateNoteIDs(ctx, s.store, userID, filter)
	if err != nil {
		return nil, err
	}
	boards, err := s.store.BoardsBySourceNotes(ctx, noteIDs)
	if err != nil {
		return nil, err
	}
	if excludeNoteHex == "" {
		return boards, nil
	}
	excludeNote, err := objectID(excludeNoteHex)
	if err != nil {
		return nil, err
	}
	out := make([]models.Board, 0, len(boards))
	for _, board := range boards {
		related, err := s.store.BoardNoteExists(ctx, board.ID, excludeNote)
		if err != nil {
			return nil, err
		}
		if !related {
			out = append(out, board)
		}
	}
	return out, nil
}

// Columns

func (s *BoardService) CreateColumn(ctx context.Context, userID, boardIDHex, title string) (*models.BoardColumn, error) {
	boardID, err := objectID(boardIDHex)
	if err != nil {
		return nil, err
	}
	if _, err := s.requireSourceEdit(ctx, userID, boardID); err != nil {
		return nil, err
	}

	unlock := s.locks.Lock(boardLockKey(boardID))
	defer unlock()

	columns, err := s.store.BoardColumnsByBoard(ctx, boardID)
	if err != nil {
		return nil, err
	}
	column := &models.BoardColumn{
		BoardID:  boardID,
		Title:    title,
		Position: position.Next(columnItems(columns)),
	}
	if err := s.store.CreateBoardColumn(ctx, column); err != nil {
		return nil, err
	}
	s.notify.Broadcast(ctx, realtime.KindBoard, boardIDHex, event(boardID, "createColumn", nil))
	return column, nil
}

func (s *BoardService) UpdateColumn(ctx context.Context, userID, columnIDHex, title string) (*models.BoardColumn, error) {
	columnID, err := objectID(columnIDHex)
	if err != nil {
		return nil, err
	}
	column, err := s.store.BoardColumnByID(ctx, columnID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, apperr.NotFound("board column not found")
		}
		return nil, err
	}
	if _, err := s.requireSourceEdit(ctx, userID, column.BoardID); err != nil {
		return nil, err
	}

	column.Title = title
	if err := s.store.UpdateBoardColumn(ctx, column); err != nil {
		return nil, err
	}
	s.notify.Broadcast(ctx, realtime.KindBoard, column.BoardID.Hex(), event(column.BoardID, "updateColumn", nil))
	return column, nil
}

// DeleteColumn removes the column and its cards, then reflows the
// remaining columns.
func (s *BoardService) DeleteColumn(ctx context.Context, userID, columnIDHex string) error {
	columnID, err := objectID(columnIDHex)
	if err != nil {
		return err
	}
	column, err := s.store.BoardColumnByID(ctx, columnID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return apperr.NotFound("board column not found")
		}
		return err
	}
	if _, err := s.requireSourceEdit(ctx, userID, column.BoardID); err != nil {
		return err
	}

	unlock := s.locks.Lock(boardLockKey(column.BoardID))
	defer unlock()

	err = s.store.Tx(ctx, func(ctx context.Context) error {
		if err := s.store.DeleteBoardColumn(ctx, columnID); err != nil {
			return err
		}
		columns, err := s.store.BoardColumnsByBoard(ctx, column.BoardID)
		if err != nil {
			return err
		}
		reflowed := position.Reflow(columnItems(columns))
		return s.store.SetBoardColumnPositions(ctx, applyColumnPositions(columns, reflowed))
	})
	if err != nil {
		return err
	}
	s.notify.Broadcast(ctx, realtime.KindBoard, column.BoardID.Hex(), event(column.BoardID, "deleteColumn", nil))
	return nil
}

// Cards

func (s *BoardService) CreateCard(ctx context.Context, userID, columnIDHex, title, description string) (*models.BoardCard, error) {
	columnID, err := objectID(columnIDHex)
	if err != nil {
		return nil, err
	}
	column, err := s.store.BoardColumnByID(ctx, columnID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, apperr.NotFound("board column not found")
		}
		return nil, err
	}
	if _, err := s.requireSourceEdit(ctx, userID, column.BoardID); err != nil {
		return nil, err
	}

	unlock := s.locks.Lock(boardLockKey(column.BoardID))
	defer unlock()

	cards, err := s.store.BoardCardsByColumn(ctx, columnID)
	if err != nil {
		return nil, err
	}
	card := &models.BoardCard{
		BoardColumnID: columnID,
		Title:         title,
		Description:   description,
		Position:      position.Next(cardItems(cards)),
	}
	if err := s.store.CreateBoardCard(ctx, card); err != nil {
		return nil, err
	}
	s.notify.Broadcast(ctx, realtime.KindBoard, column.BoardID.Hex(), event(column.BoardID, "createCard", nil))
	return card, nil
}

func (s *BoardService) UpdateCard(ctx context.Context, userID, cardIDHex string, title, description *string) (*models.BoardCard, error) {
	card, column, err := s.cardWithColumn(ctx, cardIDHex)
	if err != nil {
		return nil, err
	}
	if _, err := s.requireSourceEdit(ctx, userID, column.BoardID); err != nil {
		return nil, err
	}

	if title != nil {
		card.Title = *title
	}
	if description != nil {
		card.Description = *description
	}
	if err := s.store.UpdateBoardCard(ctx, card); err != nil {
		return nil, err
	}
	s.notify.Broadcast(ctx, realtime.KindBoard, column.BoardID.Hex(), event(column.BoardID, "updateCard", nil))
	return card, nil
}

func (s *BoardService) DeleteCard(ctx context.Context, userID, cardIDHex string) error {
	card, column, err := s.cardWithColumn(ctx, cardIDHex)
	if err != nil {
		return err
	}
	if _, err := s.requireSourceEdit(ctx, userID, column.BoardID); err != nil {
		return err
	}

	unlock := s.locks.Lock(boardLockKey(column.BoardID))
	defer unlock()

	err = s.store.Tx(ctx, func(ctx context.Context) error {
		if err := s.store.DeleteBoardCard(ctx, card.ID); err != nil {
			return err
		}
		cards, err := s.store.BoardCardsByColumn(ctx, column.ID)
		if err != nil {
			return err
		}
		reflowed := position.Reflow(cardItems(cards))
		return s.store.SetBoardCards(ctx, applyCardPositions(cards, reflowed, column.ID))
	})
	if err != nil {
		return err
	}
	s.notify.Broadcast(ctx, realtime.KindBoard, column.BoardID.Hex(), event(column.BoardID, "deleteCard", nil))
	return nil
}

// MoveCard places a card at a 1-based position, optionally in another
// column of the same board. Same-column moves reorder in place; cross-
// column moves reflow both orderings in one transaction.
func (s *BoardService) MoveCard(ctx context.Context, userID, cardIDHex string, targetColumnIDHex string, index int) error {
	card, column, err := s.cardWithColumn(ctx, cardIDHex)
	if err != nil {
		return err
	}
	if _, err := s.requireSourceEdit(ctx, userID, column.BoardID); err != nil {
		return err
	}

	targetColumn := column
	action := "updateCardPosition"
	if targetColumnIDHex != "" && targetColumnIDHex != column.ID.Hex() {
		targetColumnID, err := objectID(targetColumnIDHex)
		if err != nil {
			return err
		}
		targetColumn, err = s.store.BoardColumnByID(ctx, targetColumnID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return apperr.NotFound("board column not found")
			}
			return err
		}
		if targetColumn.BoardID != column.BoardID {
			return apperr.BadRequest("target column belongs to a different board")
		}
		action = "updateCardPositionAndColumn"
	}

	unlock := s.locks.Lock(boardLockKey(column.BoardID))
	defer unlock()

	err = s.store.Tx(ctx, func(ctx context.Context) error {
		if targetColumn.ID == column.ID {
			cards, err := s.store.BoardCardsByColumn(ctx, column.ID)
			if err != nil {
				return err
			}
			items := position.InsertAt(cardItems(cards), position.Item{ID: card.ID.Hex()}, index)
			return s.store.SetBoardCards(ctx, applyCardPositions(cards, items, column.ID))
		}

		sourceCards, err := s.store.BoardCardsByColumn(ctx, column.ID)
		if err != nil {
			return err
		}
		sourceItems := position.Remove(cardItems(sourceCards), card.ID.Hex())
		if err := s.store.SetBoardCards(ctx, applyCardPositions(sourceCards, sourceItems, column.ID)); err != nil {
			return err
		}

		targetCards, err := s.store.BoardCardsByColumn(ctx, targetColumn.ID)
		if err != nil {
			return err
		}
		targetItems := position.InsertAt(cardItems(targetCards), position.Item{ID: card.ID.Hex()}, index)
		moved := append(append([]models.BoardCard{}, targetCards...), *card)
		return s.store.SetBoardCards(ctx, applyCardPositions(moved, targetItems, targetColumn.ID))
	})
	if err != nil {
		return err
	}

	s.notify.Broadcast(ctx, realtime.KindBoard, column.BoardID.Hex(), event(column.BoardID, action, map[string]interface{}{
		"cardId":   cardIDHex,
		"columnId": targetColumn.ID.Hex(),
	}))
	return nil
}

func (s *BoardService) cardWithColumn(ctx context.Context, cardIDHex string) (*models.BoardCard, *models.BoardColumn, error) {
	cardID, err := objectID(cardIDHex)
	if err != nil {
		return nil, nil, err
	}
	card, err := s.store.BoardCardByID(ctx, cardID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, nil, apperr.NotFound("card not found")
		}
		return nil, nil, err
	}
	column, err := s.store.BoardColumnByID(ctx, card.BoardColumnID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, nil, apperr.NotFound("board column not found")
		}
		return nil, nil, err
	}
	return card, column, nil
}

func columnItems(columns []models.BoardColumn) []position.Item {
	items := make([]position.Item, len(columns))
	for i, c := range columns {
		items[i] = position.Item{ID: c.ID.Hex(), Position: c.Position}
	}
	return items
}

func applyColumnPositions(columns []models.BoardColumn, items []position.Item) []models.BoardColumn {
	byID := make(map[string]int, len(items))
	for _, it := range items {
		byID[it.ID] = it.Position
	}
	out := make([]models.BoardColumn, 0, len(columns))
	for _, c := range columns {
		if pos, ok := byID[c.ID.Hex()]; ok {
			c.Position = pos
			out = append(out, c)
		}
	}
	return out
}

func cardItems(cards []models.BoardCard) []position.Item {
	items := make([]position.Item, len(cards))
	for i, c := range cards {
		items[i] = position.Item{ID: c.ID.Hex(), Position: c.Position}
	}
	return items
}

// applyCardPositions maps reflowed items back onto card records and
// stamps them with the owning column.
func applyCardPositions(cards []models.BoardCard, items []position.Item, columnID primitive.ObjectID) []models.BoardCard {
	byID := make(map[string]int, len(items))
	for _, it := range items {
		byID[it.ID] = it.Position
	}
	out := make([]models.BoardCard, 0, len(cards))
	for _, c := range cards {
		if pos, ok := byID[c.ID.Hex()]; ok {
			c.Position = pos
			c.BoardColumnID = columnID
			out = append(out, c)
		}
	}
	return out
}
