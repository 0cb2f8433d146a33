package mongodb

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/RIFAI1010/noedot-backend/internal/models"
)

func (s *Store) CreateBoard(ctx context.Context, board *models.Board) error {
	if board.ID.IsZero() {
		board.ID = primitive.NewObjectID()
	}
	return s.insertOne(ctx, collBoards, board)
}

func (s *Store) BoardByID(ctx context.Context, id primitive.ObjectID) (*models.Board, error) {
	var board models.Board
	if err := s.findOne(ctx, collBoards, bson.M{"_id": id}, &board); err != nil {
		return nil, err
	}
	return &board, nil
}

func (s *Store) UpdateBoard(ctx context.Context, board *models.Board) error {
	return s.replaceByID(ctx, collBoards, board.ID, board)
}

func (s *Store) DeleteBoard(ctx context.Context, id primitive.ObjectID) error {
	return s.deleteByID(ctx, collBoards, id)
}

func (s *Store) BoardsBySourceNotes(ctx context.Context, noteIDs []primitive.ObjectID) ([]models.Board, error) {
	boards := []models.Board{}
	err := s.findAll(ctx, collBoards, bson.M{"sourceNoteId": bson.M{"$in": noteIDs}}, byUpdatedDesc, &boards)
	return boards, err
}

func (s *Store) CreateBoardNote(ctx context.Context, join *models.BoardNote) error {
	if join.ID.IsZero() {
		join.ID = primitive.NewObjectID()
	}
	return s.insertOne(ctx, collBoardNotes, join)
}

func (s *Store) BoardNoteByID(ctx context.Context, id primitive.ObjectID) (*models.BoardNote, error) {
	var join models.BoardNote
	if err := s.findOne(ctx, collBoardNotes, bson.M{"_id": id}, &join); err != nil {
		return nil, err
	}
	return &join, nil
}

func (s *Store) BoardNotesByBoard(ctx context.Context, boardID primitive.ObjectID) ([]models.BoardNote, error) {
	joins := []models.BoardNote{}
	err := s.findAll(ctx, collBoardNotes, bson.M{"boardId": boardID}, nil, &joins)
	return joins, err
}

func (s *Store) BoardNoteExists(ctx context.Context, boardID, noteID primitive.ObjectID) (bool, error) {
	return s.exists(ctx, collBoardNotes, bson.M{"boardId": boardID, "noteId": noteID})
}

func (s *Store) DeleteBoardNote(ctx context.Context, id primitive.ObjectID) error {
	return s.deleteByID(ctx, collBoardNotes, id)
}

// Columns

func (s *Store) CreateBoardColumn(ctx context.Context, column *models.BoardColumn) error {
	if column.ID.IsZero() {
		column.ID = primitive.NewObjectID()
	}
	return s.insertOne(ctx, collBoardColumns, column)
}

func (s *Store) BoardColumnByID(ctx context.Context, id primitive.ObjectID) (*models.BoardColumn, error) {
	var column models.BoardColumn
	if err := s.findOne(ctx, collBoardColumns, bson.M{"_id": id}, &column); err != nil {
		return nil, err
	}
	return &column, nil
}

func (s *Store) UpdateBoardColumn(ctx context.Context, column *models.BoardColumn) error {
	return s.replaceByID(ctx, collBoardColumns, column.ID, column)
}

// DeleteBoardColumn removes the column together with its cards.
func (s *Store) DeleteBoardColumn(ctx context.Context, id primitive.ObjectID) error {
	if err := s.deleteByID(ctx, collBoardColumns, id); err != nil {
		return err
	}
	return s.deleteAll(ctx, collBoardCards, bson.M{"boardColumnId": id})
}

func (s *Store) BoardColumnsByBoard(ctx context.Context, boardID primitive.ObjectID) ([]models.BoardColumn, error) {
	columns := []models.BoardColumn{}
	err := s.findAll(ctx, collBoardColumns, bson.M{"boardId": boardID}, bson.D{{Key: "position", Value: 1}}, &columns)
	return columns, err
}

func (s *Store) SetBoardColumnPositions(ctx context.Context, columns []models.BoardColumn) error {
	if len(columns) == 0 {
		return nil
	}
	writes := make([]mongo.WriteModel, 0, len(columns))
	for _, c := range columns {
		writes = append(writes, mongo.NewUpdateOneModel().
			SetFilter(bson.M{"_id": c.ID}).
			SetUpdate(bson.M{"$set": bson.M{"position": c.Position}}))
	}
	_, err := s.db.Collection(collBoardColumns).BulkWrite(ctx, writes)
	return mapErr(err)
}

// Cards

func (s *Store) CreateBoardCard(ctx context.Context, card *models.BoardCard) error {
	if card.ID.IsZero() {
		card.ID = primitive.NewObjectID()
	}
	return s.insertOne(ctx, collBoardCards, card)
}

func (s *Store) BoardCardByID(ctx context.Context, id primitive.ObjectID) (*models.BoardCard, error) {
	var card models.BoardCard
	if err := s.findOne(ctx, collBoardCards, bson.M{"_id": id}, &card); err != nil {
		return nil, err
	}
	return &card, nil
}

func (s *Store) UpdateBoardCard(ctx context.Context, card *models.BoardCard) error {
	return s.replaceByID(ctx, collBoardCards, card.ID, card)
}

func (s *Store) DeleteBoardCard(ctx context.Context, id primitive.ObjectID) error {
	return s.deleteByID(ctx, collBoardCards, id)
}

func (s *Store) BoardCardsByColumn(ctx context.Context, columnID primitive.ObjectID) ([]models.BoardCard, error) {
	cards := []models.BoardCard{}
	err := s.findAll(ctx, collBoardCards, bson.M{"boardColumnId": columnID}, bson.D{{Key: "position", Value: 1}}, &cards)
	return cards, err
}

// SetBoardCards rewrites position and owning column for each card.
func (s *Store) SetBoardCards(ctx context.Context, cards []models.BoardCard) error {
	if len(cards) == 0 {
		return nil
	}
	writes := make([]mongo.WriteModel, 0, len(cards))
	for _, c := range cards {
		writes = append(writes, mongo.NewUpdateOneModel().
			SetFilter(bson.M{"_id": c.ID}).
			SetUpdate(bson.M{"$set": bson.M{"position": c.Position, "boardColumnId": c.BoardColumnID}}))
	}
	_, err := s.db.Collection(collBoardCards).BulkWrite(ctx, writes)
	return mapErr(err)
}
