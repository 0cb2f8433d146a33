// Package memory is a map-backed Store used by tests and by the
// STORE=memory development mode. Every method is safe for concurrent
// use; data does not survive a restart.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/RIFAI1010/noedot-backend/internal/models"
	"github.com/RIFAI1010/noedot-backend/internal/store"
)

type Store struct {
	mu sync.RWMutex

	users      map[primitive.ObjectID]models.User
	notes      map[primitive.ObjectID]models.Note
	editAccess map[primitive.ObjectID]models.NoteEditAccess
	favorites  map[primitive.ObjectID]models.NoteUserFavorite
	opens      map[primitive.ObjectID]models.NoteUserOpen
	blocks     map[primitive.ObjectID]models.NoteBlock

	tables     map[primitive.ObjectID]models.Table
	tableNotes map[primitive.ObjectID]models.TableNote
	cols       map[primitive.ObjectID]models.Col
	rows       map[primitive.ObjectID]models.Row
	rowData    map[primitive.ObjectID]models.RowData

	documents     map[primitive.ObjectID]models.Document
	documentNotes map[primitive.ObjectID]models.DocumentNote

	boards       map[primitive.ObjectID]models.Board
	boardNotes   map[primitive.ObjectID]models.BoardNote
	boardColumns map[primitive.ObjectID]models.BoardColumn
	boardCards   map[primitive.ObjectID]models.BoardCard
}

var _ store.Store = (*Store)(nil)

func New() *Store {
	return &Store{
		users:         map[primitive.ObjectID]models.User{},
		notes:         map[primitive.ObjectID]models.Note{},
		editAccess:    map[primitive.ObjectID]models.NoteEditAccess{},
		favorites:     map[primitive.ObjectID]models.NoteUserFavorite{},
		opens:         map[primitive.ObjectID]models.NoteUserOpen{},
		blocks:        map[primitive.ObjectID]models.NoteBlock{},
		tables:        map[primitive.ObjectID]models.Table{},
		tableNotes:    map[primitive.ObjectID]models.TableNote{},
		cols:          map[primitive.ObjectID]models.Col{},
		rows:          map[primitive.ObjectID]models.Row{},
		rowData:       map[primitive.ObjectID]models.RowData{},
		documents:     map[primitive.ObjectID]models.Document{},
		documentNotes: map[primitive.ObjectID]models.DocumentNote{},
		boards:        map[primitive.ObjectID]models.Board{},
		boardNotes:    map[primitive.ObjectID]models.BoardNote{},
		boardColumns:  map[primitive.ObjectID]models.BoardColumn{},
		boardCards:    map[primitive.ObjectID]models.BoardCard{},
	}
}

// Tx runs fn directly. Individual writes are already atomic under the
// store mutex, which is enough for the scenarios tests exercise.
func (s *Store) Tx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

func ensureID(id primitive.ObjectID) primitive.ObjectID {
	if id.IsZero() {
		return primitive.NewObjectID()
	}
	return id
}

// Users

func (s *Store) CreateUser(_ context.Context, user *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if strings.EqualFold(u.Email, user.Email) {
			return store.ErrDuplicate
		}
	}
	user.ID = ensureID(user.ID)
	s.users[user.ID] = *user
	return nil
}

func (s *Store) UserByEmail(_ context.Context, email string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, u := range s.users {
		if strings.EqualFold(u.Email, email) {
			u := u
			return &u, nil
		}
	}
	return nil, store.ErrNotFound
}

func (s *Store) UserByID(_ context.Context, id primitive.ObjectID) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &u, nil
}

func (s *Store) MarkUserVerified(_ context.Context, id primitive.ObjectID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return store.ErrNotFound
	}
	u.IsVerified = true
	u.UpdatedAt = time.Now()
	s.users[id] = u
	return nil
}

func (s *Store) UsersByIDs(_ context.Context, ids []primitive.ObjectID) ([]models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.User, 0, len(ids))
	for _, id := range ids {
		if u, ok := s.users[id]; ok {
			out = append(out, u)
		}
	}
	return out, nil
}

// Notes

func (s *Store) CreateNote(_ context.Context, note *models.Note) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	note.ID = ensureID(note.ID)
	s.notes[note.ID] = *note
	return nil
}

func (s *Store) NoteByID(_ context.Context, id primitive.ObjectID) (*models.Note, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n, ok := s.notes[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &n, nil
}

func (s *Store) UpdateNote(_ context.Context, note *models.Note) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.notes[note.ID]; !ok {
		return store.ErrNotFound
	}
	s.notes[note.ID] = *note
	return nil
}

func (s *Store) DeleteNote(_ context.Context, id primitive.ObjectID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.notes[id]; !ok {
		return store.ErrNotFound
	}
	delete(s.notes, id)
	return nil
}

func sortNotes(notes []models.Note) {
	sort.Slice(notes, func(i, j int) bool {
		return notes[i].UpdatedAt.After(notes[j].UpdatedAt)
	})
}

func (s *Store) NotesByOwner(_ context.Context, userID primitive.ObjectID) ([]models.Note, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.Note
	for _, n := range s.notes {
		if n.UserID == userID {
			out = append(out, n)
		}
	}
	sortNotes(out)
	return out, nil
}

func (s *Store) NotesByIDs(_ context.Context, ids []primitive.ObjectID) ([]models.Note, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.Note, 0, len(ids))
	for _, id := range ids {
		if n, ok := s.notes[id]; ok {
			out = append(out, n)
		}
	}
	sortNotes(out)
	return out, nil
}

// Edit access

func (s *Store) NoteEditorIDs(_ context.Context, noteID primitive.ObjectID) ([]primitive.ObjectID, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []primitive.ObjectID
	for _, a := range s.editAccess {
		if a.NoteID == noteID {
			out = append(out, a.UserID)
		}
	}
	sortIDs(out)
	return out, nil
}

func (s *Store) AddNoteEditor(_ context.Context, noteID, userID primitive.ObjectID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, a := range s.editAccess {
		if a.NoteID == noteID && a.UserID == userID {
			return store.ErrDuplicate
		}
	}
	id := primitive.NewObjectID()
	s.editAccess[id] = models.NoteEditAccess{ID: id, NoteID: noteID, UserID: userID}
	return nil
}

func (s *Store) RemoveNoteEditors(_ context.Context, noteID primitive.ObjectID, userIDs []primitive.ObjectID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	drop := make(map[primitive.ObjectID]bool, len(userIDs))
	for _, id := range userIDs {
		drop[id] = true
	}
	for id, a := range s.editAccess {
		if a.NoteID == noteID && drop[a.UserID] {
			delete(s.editAccess, id)
		}
	}
	return nil
}

func (s *Store) NoteIDsEditableBy(_ context.Context, userID primitive.ObjectID) ([]primitive.ObjectID, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []primitive.ObjectID
	for _, a := range s.editAccess {
		if a.UserID == userID {
			out = append(out, a.NoteID)
		}
	}
	sortIDs(out)
	return out, nil
}

func (s *Store) DeleteNoteEditors(_ context.Context, noteID primitive.ObjectID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, a := range s.editAccess {
		if a.NoteID == noteID {
			delete(s.editAccess, id)
		}
	}
	return nil
}

// Favorites

func (s *Store) AddFavorite(_ context.Context, favorite *models.NoteUserFavorite) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, f := range s.favorites {
		if f.NoteID == favorite.NoteID && f.UserID == favorite.UserID {
			return store.ErrDuplicate
		}
	}
	favorite.ID = ensureID(favorite.ID)
	s.favorites[favorite.ID] = *favorite
	return nil
}

func (s *Store) RemoveFavorite(_ context.Context, noteID, userID primitive.ObjectID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, f := range s.favorites {
		if f.NoteID == noteID && f.UserID == userID {
			delete(s.favorites, id)
			return nil
		}
	}
	return store.ErrNotFound
}

func (s *Store) IsFavorite(_ context.Context, noteID, userID primitive.ObjectID) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, f := range s.favorites {
		if f.NoteID == noteID && f.UserID == userID {
			return true, nil
		}
	}
	return false, nil
}

func (s *Store) NoteIDsFavoritedBy(_ context.Context, userID primitive.ObjectID) ([]primitive.ObjectID, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []primitive.ObjectID
	for _, f := range s.favorites {
		if f.UserID == userID {
			out = append(out, f.NoteID)
		}
	}
	sortIDs(out)
	return out, nil
}

func (s *Store) DeleteFavoritesByNote(_ context.Context, noteID primitive.ObjectID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, f := range s.favorites {
		if f.NoteID == noteID {
			delete(s.favorites, id)
		}
	}
	return nil
}

// Last-open tracking

func (s *Store) TouchNoteOpen(_ context.Context, noteID, userID primitive.ObjectID, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, o := range s.opens {
		if o.NoteID == noteID && o.UserID == userID {
			o.OpenAt = at
			s.opens[id] = o
			return nil
		}
	}
	id := primitive.NewObjectID()
	s.opens[id] = models.NoteUserOpen{ID: id, NoteID: noteID, UserID: userID, OpenAt: at}
	return nil
}

func (s *Store) NoteOpens(_ context.Context, userID primitive.ObjectID) (map[primitive.ObjectID]time.Time, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := map[primitive.ObjectID]time.Time{}
	for _, o := range s.opens {
		if o.UserID == userID {
			out[o.NoteID] = o.OpenAt
		}
	}
	return out, nil
}

func (s *Store) DeleteNoteOpensByNote(_ context.Context, noteID primitive.ObjectID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, o := range s.opens {
		if o.NoteID == noteID {
			delete(s.opens, id)
		}
	}
	return nil
}

// Note blocks

func (s *Store) CreateNoteBlock(_ context.Context, block *models.NoteBlock) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	block.ID = ensureID(block.ID)
	s.blocks[block.ID] = *block
	return nil
}

func (s *Store) NoteBlockByID(_ context.Context, id primitive.ObjectID) (*models.NoteBlock, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	b, ok := s.blocks[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &b, nil
}

func (s *Store) NoteBlocks(_ context.Context, noteID primitive.ObjectID) ([]models.NoteBlock, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.NoteBlock
	for _, b := range s.blocks {
		if b.NoteID == noteID {
			out = append(out, b)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Position < out[j].Position })
	return out, nil
}

func (s *Store) SetNoteBlockPositions(_ context.Context, blocks []models.NoteBlock) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, b := range blocks {
		cur, ok := s.blocks[b.ID]
		if !ok {
			return store.ErrNotFound
		}
		cur.Position = b.Position
		s.blocks[b.ID] = cur
	}
	return nil
}

func (s *Store) DeleteNoteBlocksByReference(_ context.Context, referenceID primitive.ObjectID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, b := range s.blocks {
		if b.ReferenceID == referenceID {
			delete(s.blocks, id)
		}
	}
	return nil
}

func (s *Store) DeleteNoteBlocksByNote(_ context.Context, noteID primitive.ObjectID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, b := range s.blocks {
		if b.NoteID == noteID {
			delete(s.blocks, id)
		}
	}
	return nil
}

// Tables

func (s *Store) CreateTable(_ context.Context, table *models.Table) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	table.ID = ensureID(table.ID)
	s.tables[table.ID] = *table
	return nil
}

func (s *Store) TableByID(_ context.Context, id primitive.ObjectID) (*models.Table, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.tables[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &t, nil
}

func (s *Store) UpdateTable(_ context.Context, table *models.Table) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.tables[table.ID]; !ok {
		return store.ErrNotFound
	}
	s.tables[table.ID] = *table
	return nil
}

func (s *Store) DeleteTable(_ context.Context, id primitive.ObjectID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.tables[id]; !ok {
		return store.ErrNotFound
	}
	delete(s.tables, id)
	return nil
}

func (s *Store) TablesBySourceNotes(_ context.Context, noteIDs []primitive.ObjectID) ([]models.Table, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	want := idSet(noteIDs)
	var out []models.Table
	for _, t := range s.tables {
		if want[t.SourceNoteID] {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UpdatedAt.After(out[j].UpdatedAt) })
	return out, nil
}

func (s *Store) CreateTableNote(_ context.Context, join *models.TableNote) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	join.ID = ensureID(join.ID)
	s.tableNotes[join.ID] = *join
	return nil
}

func (s *Store) TableNoteByID(_ context.Context, id primitive.ObjectID) (*models.TableNote, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	j, ok := s.tableNotes[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &j, nil
}

func (s *Store) TableNotesByTable(_ context.Context, tableID primitive.ObjectID) ([]models.TableNote, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.TableNote
	for _, j := range s.tableNotes {
		if j.TableID == tableID {
			out = append(out, j)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID.Hex() < out[j].ID.Hex() })
	return out, nil
}

func (s *Store) TableNoteExists(_ context.Context, tableID, noteID primitive.ObjectID) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, j := range s.tableNotes {
		if j.TableID == tableID && j.NoteID == noteID {
			return true, nil
		}
	}
	return false, nil
}

func (s *Store) DeleteTableNote(_ context.Context, id primitive.ObjectID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.tableNotes[id]; !ok {
		return store.ErrNotFound
	}
	delete(s.tableNotes, id)
	return nil
}

// Table structure

func (s *Store) CreateCol(_ context.Context, col *models.Col) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	col.ID = ensureID(col.ID)
	s.cols[col.ID] = *col
	return nil
}

func (s *Store) ColByID(_ context.Context, id primitive.ObjectID) (*models.Col, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.cols[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &c, nil
}

func (s *Store) UpdateCol(_ context.Context, col *models.Col) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.cols[col.ID]; !ok {
		return store.ErrNotFound
	}
	s.cols[col.ID] = *col
	return nil
}

func (s *Store) DeleteCol(_ context.Context, id primitive.ObjectID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.cols[id]; !ok {
		return store.ErrNotFound
	}
	delete(s.cols, id)
	for cellID, cell := range s.rowData {
		if cell.ColID == id {
			delete(s.rowData, cellID)
		}
	}
	return nil
}

func (s *Store) ColsByTable(_ context.Context, tableID primitive.ObjectID) ([]models.Col, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.Col
	for _, c := range s.cols {
		if c.TableID == tableID {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID.Hex() < out[j].ID.Hex() })
	return out, nil
}

func (s *Store) CreateRow(_ context.Context, row *models.Row) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	row.ID = ensureID(row.ID)
	s.rows[row.ID] = *row
	return nil
}

func (s *Store) RowByID(_ context.Context, id primitive.ObjectID) (*models.Row, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.rows[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &r, nil
}

func (s *Store) DeleteRow(_ context.Context, id primitive.ObjectID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.rows[id]; !ok {
		return store.ErrNotFound
	}
	delete(s.rows, id)
	for cellID, cell := range s.rowData {
		if cell.RowID == id {
			delete(s.rowData, cellID)
		}
	}
	return nil
}

func (s *Store) RowsByTable(_ context.Context, tableID primitive.ObjectID) ([]models.Row, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.Row
	for _, r := range s.rows {
		if r.TableID == tableID {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].RowNumber < out[j].RowNumber })
	return out, nil
}

func (s *Store) SetRowNumbers(_ context.Context, rows []models.Row) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range rows {
		cur, ok := s.rows[r.ID]
		if !ok {
			return store.ErrNotFound
		}
		cur.RowNumber = r.RowNumber
		s.rows[r.ID] = cur
	}
	return nil
}

func (s *Store) CreateRowData(_ context.Context, cell *models.RowData) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cell.ID = ensureID(cell.ID)
	s.rowData[cell.ID] = *cell
	return nil
}

func (s *Store) RowDataByID(_ context.Context, id primitive.ObjectID) (*models.RowData, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.rowData[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &c, nil
}

func (s *Store) UpdateRowData(_ context.Context, cell *models.RowData) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.rowData[cell.ID]; !ok {
		return store.ErrNotFound
	}
	s.rowData[cell.ID] = *cell
	return nil
}

func (s *Store) DeleteRowData(_ context.Context, id primitive.ObjectID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.rowData[id]; !ok {
		return store.ErrNotFound
	}
	delete(s.rowData, id)
	return nil
}

func (s *Store) RowDataByRows(_ context.Context, rowIDs []primitive.ObjectID) ([]models.RowData, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	want := idSet(rowIDs)
	var out []models.RowData
	for _, c := range s.rowData {
		if want[c.RowID] {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID.Hex() < out[j].ID.Hex() })
	return out, nil
}

// Documents

func (s *Store) CreateDocument(_ context.Context, document *models.Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	document.ID = ensureID(document.ID)
	s.documents[document.ID] = *document
	return nil
}

func (s *Store) DocumentByID(_ context.Context, id primitive.ObjectID) (*models.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	d, ok := s.documents[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &d, nil
}

func (s *Store) UpdateDocument(_ context.Context, document *models.Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.documents[document.ID]; !ok {
		return store.ErrNotFound
	}
	s.documents[document.ID] = *document
	return nil
}

func (s *Store) DeleteDocument(_ context.Context, id primitive.ObjectID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.documents[id]; !ok {
		return store.ErrNotFound
	}
	delete(s.documents, id)
	return nil
}

func (s *Store) DocumentsBySourceNotes(_ context.Context, noteIDs []primitive.ObjectID) ([]models.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	want := idSet(noteIDs)
	var out []models.Document
	for _, d := range s.documents {
		if want[d.SourceNoteID] {
			out = append(out, d)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UpdatedAt.After(out[j].UpdatedAt) })
	return out, nil
}

func (s *Store) CreateDocumentNote(_ context.Context, join *models.DocumentNote) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	join.ID = ensureID(join.ID)
	s.documentNotes[join.ID] = *join
	return nil
}

func (s *Store) DocumentNoteByID(_ context.Context, id primitive.ObjectID) (*models.DocumentNote, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	j, ok := s.documentNotes[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &j, nil
}

func (s *Store) DocumentNotesByDocument(_ context.Context, documentID primitive.ObjectID) ([]models.DocumentNote, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.DocumentNote
	for _, j := range s.documentNotes {
		if j.DocumentID == documentID {
			out = append(out, j)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID.Hex() < out[j].ID.Hex() })
	return out, nil
}

func (s *Store) DocumentNoteExists(_ context.Context, documentID, noteID primitive.ObjectID) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, j := range s.documentNotes {
		if j.DocumentID == documentID && j.NoteID == noteID {
			return true, nil
		}
	}
	return false, nil
}

func (s *Store) DeleteDocumentNote(_ context.Context, id primitive.ObjectID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.documentNotes[id]; !ok {
		return store.ErrNotFound
	}
	delete(s.documentNotes, id)
	return nil
}

// Boards

func (s *Store) CreateBoard(_ context.Context, board *models.Board) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	board.ID = ensureID(board.ID)
	s.boards[board.ID] = *board
	return nil
}

func (s *Store) BoardByID(_ context.Context, id primitive.ObjectID) (*models.Board, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	b, ok := s.boards[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &b, nil
}

func (s *Store) UpdateBoard(_ context.Context, board *models.Board) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.boards[board.ID]; !ok {
		return store.ErrNotFound
	}
	s.boards[board.ID] = *board
	return nil
}

func (s *Store) DeleteBoard(_ context.Context, id primitive.ObjectID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.boards[id]; !ok {
		return store.ErrNotFound
	}
	delete(s.boards, id)
	return nil
}

func (s *Store) BoardsBySourceNotes(_ context.Context, noteIDs []primitive.ObjectID) ([]models.Board, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	want := idSet(noteIDs)
	var out []models.Board
	for _, b := range s.boards {
		if want[b.SourceNoteID] {
			out = append(out, b)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UpdatedAt.After(out[j].UpdatedAt) })
	return out, nil
}

func (s *Store) CreateBoardNote(_ context.Context, join *models.BoardNote) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	join.ID = ensureID(join.ID)
	s.boardNotes[join.ID] = *join
	return nil
}

func (s *Store) BoardNoteByID(_ context.Context, id primitive.ObjectID) (*models.BoardNote, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	j, ok := s.boardNotes[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &j, nil
}

func (s *Store) BoardNotesByBoard(_ context.Context, boardID primitive.ObjectID) ([]models.BoardNote, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.BoardNote
	for _, j := range s.boardNotes {
		if j.BoardID == boardID {
			out = append(out, j)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID.Hex() < out[j].ID.Hex() })
	return out, nil
}

func (s *Store) BoardNoteExists(_ context.Context, boardID, noteID primitive.ObjectID) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, j := range s.boardNotes {
		if j.BoardID == boardID && j.NoteID == noteID {
			return true, nil
		}
	}
	return false, nil
}

func (s *Store) DeleteBoardNote(_ context.Context, id primitive.ObjectID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.boardNotes[id]; !ok {
		return store.ErrNotFound
	}
	delete(s.boardNotes, id)
	return nil
}

func (s *Store) CreateBoardColumn(_ context.Context, column *models.BoardColumn) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	column.ID = ensureID(column.ID)
	s.boardColumns[column.ID] = *column
	return nil
}

func (s *Store) BoardColumnByID(_ context.Context, id primitive.ObjectID) (*models.BoardColumn, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.boardColumns[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &c, nil
}

func (s *Store) UpdateBoardColumn(_ context.Context, column *models.BoardColumn) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.boardColumns[column.ID]; !ok {
		return store.ErrNotFound
	}
	s.boardColumns[column.ID] = *column
	return nil
}

func (s *Store) DeleteBoardColumn(_ context.Context, id primitive.ObjectID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.boardColumns[id]; !ok {
		return store.ErrNotFound
	}
	delete(s.boardColumns, id)
	for cardID, card := range s.boardCards {
		if card.BoardColumnID == id {
			delete(s.boardCards, cardID)
		}
	}
	return nil
}

func (s *Store) BoardColumnsByBoard(_ context.Context, boardID primitive.ObjectID) ([]models.BoardColumn, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.BoardColumn
	for _, c := range s.boardColumns {
		if c.BoardID == boardID {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Position < out[j].Position })
	return out, nil
}

func (s *Store) SetBoardColumnPositions(_ context.Context, columns []models.BoardColumn) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range columns {
		cur, ok := s.boardColumns[c.ID]
		if !ok {
			return store.ErrNotFound
		}
		cur.Position = c.Position
		s.boardColumns[c.ID] = cur
	}
	return nil
}

func (s *Store) CreateBoardCard(_ context.Context, card *models.BoardCard) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	card.ID = ensureID(card.ID)
	s.boardCards[card.ID] = *card
	return nil
}

func (s *Store) BoardCardByID(_ context.Context, id primitive.ObjectID) (*models.BoardCard, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.boardCards[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &c, nil
}

func (s *Store) UpdateBoardCard(_ context.Context, card *models.BoardCard) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.boardCards[card.ID]; !ok {
		return store.ErrNotFound
	}
	s.boardCards[card.ID] = *card
	return nil
}

func (s *Store) DeleteBoardCard(_ context.Context, id primitive.ObjectID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.boardCards[id]; !ok {
		return store.ErrNotFound
	}
	delete(s.boardCards, id)
	return nil
}

func (s *Store) BoardCardsByColumn(_ context.Context, columnID primitive.ObjectID) ([]models.BoardCard, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.BoardCard
	for _, c := range s.boardCards {
		if c.BoardColumnID == columnID {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Position < out[j].Position })
	return out, nil
}

// SetBoardCards rewrites both the position and the owning column of
// each card, which is what a cross-column drag needs.
func (s *Store) SetBoardCards(_ context.Context, cards []models.BoardCard) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range cards {
		cur, ok := s.boardCards[c.ID]
		if !ok {
			return store.ErrNotFound
		}
		cur.Position = c.Position
		cur.BoardColumnID = c.BoardColumnID
		s.boardCards[c.ID] = cur
	}
	return nil
}

func idSet(ids []primitive.ObjectID) map[primitive.ObjectID]bool {
	set := make(map[primitive.ObjectID]bool, len(ids))
	for _, id := range ids {
		set[id] = true
	}
	return set
}

func sortIDs(ids []primitive.ObjectID) {
	sort.Slice(ids, func(i, j int) bool { return ids[i].Hex() < ids[j].Hex() })
}
