// Package store defines the persistence contract for the note graph.
// Services depend on this interface only; the mongodb package is the
// production implementation and the memory package backs tests and
// STORE=memory dev mode.
package store

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/RIFAI1010/noedot-backend/internal/models"
)

var (
	// ErrNotFound is returned when a referenced record does not exist.
	ErrNotFound = errors.New("record not found")
	// ErrDuplicate is returned when a uniqueness rule would be violated.
	ErrDuplicate = errors.New("record already exists")
)

// Store is the full persistence surface. All list results that carry a
// position or timestamp ordering come back already ordered.
type Store interface {
	// Tx runs fn as one logical transaction: either every write inside
	// fn is visible afterwards or none is.
	Tx(ctx context.Context, fn func(ctx context.Context) error) error

	// Users
	CreateUser(ctx context.Context, user *models.User) error
	UserByEmail(ctx context.Context, email string) (*models.User, error)
	UserByID(ctx context.Context, id primitive.ObjectID) (*models.User, error)
	MarkUserVerified(ctx context.Context, id primitive.ObjectID) error
	UsersByIDs(ctx context.Context, ids []primitive.ObjectID) ([]models.User, error)

	// Notes
	CreateNote(ctx context.Context, note *models.Note) error
	NoteByID(ctx context.Context, id primitive.ObjectID) (*models.Note, error)
	UpdateNote(ctx context.Context, note *models.Note) error
	DeleteNote(ctx context.Context, id primitive.ObjectID) error
	NotesByOwner(ctx context.Context, userID primitive.ObjectID) ([]models.Note, error)
	NotesByIDs(ctx context.Context, ids []primitive.ObjectID) ([]models.Note, error)

	// Edit access
	NoteEditorIDs(ctx context.Context, noteID primitive.ObjectID) ([]primitive.ObjectID, error)
	AddNoteEditor(ctx context.Context, noteID, userID primitive.ObjectID) error
	RemoveNoteEditors(ctx context.Context, noteID primitive.ObjectID, userIDs []primitive.ObjectID) error
	NoteIDsEditableBy(ctx context.Context, userID primitive.ObjectID) ([]primitive.ObjectID, error)
	DeleteNoteEditors(ctx context.Context, noteID primitive.ObjectID) error

	// Favorites
	AddFavorite(ctx context.Context, favorite *models.NoteUserFavorite) error
	RemoveFavorite(ctx context.Context, noteID, userID primitive.ObjectID) error
	IsFavorite(ctx context.Context, noteID, userID primitive.ObjectID) (bool, error)
	NoteIDsFavoritedBy(ctx context.Context, userID primitive.ObjectID) ([]primitive.ObjectID, error)
	DeleteFavoritesByNote(ctx context.Context, noteID primitive.ObjectID) error

	// Last-open tracking
	TouchNoteOpen(ctx context.Context, noteID, userID primitive.ObjectID, at time.Time) error
	NoteOpens(ctx context.Context, userID primitive.ObjectID) (map[primitive.ObjectID]time.Time, error)
	DeleteNoteOpensByNote(ctx context.Context, noteID primitive.ObjectID) error

	// Note blocks
	CreateNoteBlock(ctx context.Context, block *models.NoteBlock) error
	NoteBlockByID(ctx context.Context, id primitive.ObjectID) (*models.NoteBlock, error)
	NoteBlocks(ctx context.Context, noteID primitive.ObjectID) ([]models.NoteBlock, error)
	SetNoteBlockPositions(ctx context.Context, blocks []models.NoteBlock) error
	DeleteNoteBlocksByReference(ctx context.Context, referenceID primitive.ObjectID) error
	DeleteNoteBlocksByNote(ctx context.Context, noteID primitive.ObjectID) error

	// Tables
	CreateTable(ctx context.Context, table *models.Table) error
	TableByID(ctx context.Context, id primitive.ObjectID) (*models.Table, error)
	UpdateTable(ctx context.Context, table *models.Table) error
	DeleteTable(ctx context.Context, id primitive.ObjectID) error
	TablesBySourceNotes(ctx context.Context, noteIDs []primitive.ObjectID) ([]models.Table, error)
	CreateTableNote(ctx context.Context, join *models.TableNote) error
	TableNoteByID(ctx context.Context, id primitive.ObjectID) (*models.TableNote, error)
	TableNotesByTable(ctx context.Context, tableID primitive.ObjectID) ([]models.TableNote, error)
	TableNoteExists(ctx context.Context, tableID, noteID primitive.ObjectID) (bool, error)
	DeleteTableNote(ctx context.Context, id primitive.ObjectID) error

	// Table structure
	CreateCol(ctx context.Context, col *models.Col) error
	ColByID(ctx context.Context, id primitive.ObjectID) (*models.Col, error)
	UpdateCol(ctx context.Context, col *models.Col) error
	DeleteCol(ctx context.Context, id primitive.ObjectID) error
	ColsByTable(ctx context.Context, tableID primitive.ObjectID) ([]models.Col, error)
	CreateRow(ctx context.Context, row *models.Row) error
	RowByID(ctx context.Context, id primitive.ObjectID) (*models.Row, error)
	DeleteRow(ctx context.Context, id primitive.ObjectID) error
	RowsByTable(ctx context.Context, tableID primitive.ObjectID) ([]models.Row, error)
	SetRowNumbers(ctx context.Context, rows []models.Row) error
	CreateRowData(ctx context.Context, cell *models.RowData) error
	RowDataByID(ctx context.Context, id primitive.ObjectID) (*models.RowData, error)
	UpdateRowData(ctx context.Context, cell *models.RowData) error
	DeleteRowData(ctx context.Context, id primitive.ObjectID) error
	RowDataByRows(ctx context.Context, rowIDs []primitive.ObjectID) ([]models.RowData, error)

	// Documents
	CreateDocument(ctx context.Context, document *models.Document) error
	DocumentByID(ctx context.Context, id primitive.ObjectID) (*models.Document, error)
	UpdateDocument(ctx context.Context, document *models.Document) error
	DeleteDocument(ctx context.Context, id primitive.ObjectID) error
	DocumentsBySourceNotes(ctx context.Context, noteIDs []primitive.ObjectID) ([]models.Document, error)
	CreateDocumentNote(ctx context.Context, join *models.DocumentNote) error
	DocumentNoteByID(ctx context.Context, id primitive.ObjectID) (*models.DocumentNote, error)
	DocumentNotesByDocument(ctx context.Context, documentID primitive.ObjectID) ([]models.DocumentNote, error)
	DocumentNoteExists(ctx context.Context, documentID, noteID primitive.ObjectID) (bool, error)
	DeleteDocumentNote(ctx context.Context, id primitive.ObjectID) error

	// Boards
	CreateBoard(ctx context.Context, board *models.Board) error
	BoardByID(ctx context.Context, id primitive.ObjectID) (*models.Board, error)
	UpdateBoard(ctx context.Context, board *models.Board) error
	DeleteBoard(ctx context.Context, id primitive.ObjectID) error
	BoardsBySourceNotes(ctx context.Context, noteIDs []primitive.ObjectID) ([]models.Board, error)
	CreateBoardNote(ctx context.Context, join *models.BoardNote) error
	BoardNoteByID(ctx context.Context, id primitive.ObjectID) (*models.BoardNote, error)
	BoardNotesByBoard(ctx context.Context, boardID primitive.ObjectID) ([]models.BoardNote, error)
	BoardNoteExists(ctx context.Context, boardID, noteID primitive.ObjectID) (bool, error)
	DeleteBoardNote(ctx context.Context, id primitive.ObjectID) error
	CreateBoardColumn(ctx context.Context, column *models.BoardColumn) error
	BoardColumnByID(ctx context.Context, id primitive.ObjectID) (*models.BoardColumn, error)
	UpdateBoardColumn(ctx context.Context, column *models.BoardColumn) error
	DeleteBoardColumn(ctx context.Context, id primitive.ObjectID) error
	BoardColumnsByBoard(ctx context.Context, boardID primitive.ObjectID) ([]models.BoardColumn, error)
	SetBoardColumnPositions(ctx context.Context, columns []models.BoardColumn) error
	CreateBoardCard(ctx context.Context, card *models.BoardCard) error
	BoardCardByID(ctx context.Context, id primitive.ObjectID) (*models.BoardCard, error)
	UpdateBoardCard(ctx context.Context, card *models.BoardCard) error
	DeleteBoardCard(ctx context.Context, id primitive.ObjectID) error
	BoardCardsByColumn(ctx context.Context, columnID primitive.ObjectID) ([]models.BoardCard, error)
	SetBoardCards(ctx context.Context, cards []models.BoardCard) error
}
