package services

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/RIFAI1010/noedot-backend/internal/apperr"
	"github.com/RIFAI1010/noedot-backend/internal/models"
	"github.com/RIFAI1010/noedot-backend/internal/policy"
	"github.com/RIFAI1010/noedot-backend/internal/position"
	"github.com/RIFAI1010/noedot-backend/internal/realtime"
	"github.com/RIFAI1010/noedot-backend/internal/store"
)

type TableService struct {
	store  store.Store
	notify Notifier
	locks  *position.KeyedMutex
	now    func() time.Time
}

func NewTableService(st store.Store, notify Notifier, locks *position.KeyedMutex) *TableService {
	return &TableService{store: st, notify: notify, locks: locks, now: time.Now}
}

// TableView is the per-user read model of a table reached through one
// of its join records.
type TableView struct {
	models.Table
	JoinID       string        `json:"tableNoteId"`
	NoteID       string        `json:"noteId"`
	IsSourceNote bool          `json:"isSourceNote"`
	CanEdit      bool          `json:"canEdit"`
	Cols         []models.Col  `json:"cols,omitempty"`
	Rows         []TableRow    `json:"rows,omitempty"`
}

type TableRow struct {
	models.Row
	Cells []models.RowData `json:"rowData"`
}

// Create makes a new table sourced in the given note, with its join
// record and an appended block, as one transaction.
func (s *TableService) Create(ctx context.Context, userID, noteIDHex string) (*TableView, error) {
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
	table := &models.Table{SourceNoteID: noteID, Name: "New Table", CreatedAt: now, UpdatedAt: now}
	join := &models.TableNote{}
	err = s.store.Tx(ctx, func(ctx context.Context) error {
		if err := s.store.CreateTable(ctx, table); err != nil {
			return err
		}
		join.TableID = table.ID
		join.NoteID = noteID
		if err := s.store.CreateTableNote(ctx, join); err != nil {
			return err
		}
		blocks, err := s.store.NoteBlocks(ctx, noteID)
		if err != nil {
			return err
		}
		return s.store.CreateNoteBlock(ctx, &models.NoteBlock{
			NoteID:      noteID,
			Type:        models.BlockTable,
			ReferenceID: join.ID,
			Position:    position.Next(positionItems(blocks)),
		})
	})
	if err != nil {
		return nil, err
	}

	s.notify.Broadcast(ctx, realtime.KindNote, noteIDHex, event(noteID, "addBlock", nil))
	return &TableView{
		Table:        *table,
		JoinID:       join.ID.Hex(),
		NoteID:       noteIDHex,
		IsSourceNote: true,
		CanEdit:      true,
	}, nil
}

// AddRelation embeds an existing table into another note. Only tables
// whose source note is public can be embedded elsewhere.
func (s *TableService) AddRelation(ctx context.Context, userID, tableIDHex, noteIDHex string) (*TableView, error) {
	tableID, err := objectID(tableIDHex)
	if err != nil {
		return nil, err
	}
	noteID, err := objectID(noteIDHex)
	if err != nil {
		return nil, err
	}
	table, err := s.store.TableByID(ctx, tableID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, apperr.NotFound("table not found")
		}
		return nil, err
	}
	if table.SourceNoteID == noteID {
		return nil, apperr.AlreadyRelated("table was created in this note")
	}
	if _, _, err := requireNoteEdit(ctx, s.store, noteID, userID); err != nil {
		return nil, err
	}
	source, _, err := noteWithEditors(ctx, s.store, table.SourceNoteID)
	if err != nil {
		return nil, err
	}
	if source.Status != models.StatusPublic {
		return nil, apperr.SourceNotPublic("source note is not public")
	}
	exists, err := s.store.TableNoteExists(ctx, tableID, noteID)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, apperr.AlreadyRelated("table is already related to this note")
	}

	unlock := s.locks.Lock(noteLockKey(noteID))
	defer unlock()

	join := &models.TableNote{TableID: tableID, NoteID: noteID}
	err = s.store.Tx(ctx, func(ctx context.Context) error {
		if err := s.store.CreateTableNote(ctx, join); err != nil {
			return err
		}
		blocks, err := s.store.NoteBlocks(ctx, noteID)
		if err != nil {
			return err
		}
		return s.store.CreateNoteBlock(ctx, &models.NoteBlock{
			NoteID:      noteID,
			Type:        models.BlockTable,
			ReferenceID: join.ID,
			Position:    position.Next(positionItems(blocks)),
		})
	})
	if err != nil {
		return nil, err
	}

	s.notify.Broadcast(ctx, realtime.KindNote, noteIDHex, event(noteID, "addBlock", nil))
	return &TableView{
		Table:        *table,
		JoinID:       join.ID.Hex(),
		NoteID:       noteIDHex,
		IsSourceNote: false,
		CanEdit:      false,
	}, nil
}

// Get resolves a join record to its table and applies the dual policy
// check. With detail, the full col/row/cell structure is loaded.
func (s *TableService) Get(ctx context.Context, userID, joinIDHex string, detail bool) (*TableView, error) {
	joinID, err := objectID(joinIDHex)
	if err != nil {
		return nil, err
	}
	join, err := s.store.TableNoteByID(ctx, joinID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, apperr.NotFound("table relation not found")
		}
		return nil, err
	}
	table, err := s.store.TableByID(ctx, join.TableID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, apperr.NotFound("table not found")
		}
		return nil, err
	}

	_, decision, err := requireNoteView(ctx, s.store, join.NoteID, userID)
	if err != nil {
		return nil, err
	}
	isSource := table.SourceNoteID == join.NoteID
	if !isSource {
		if err := requireRelation(ctx, s.store, table.SourceNoteID, userID); err != nil {
			return nil, err
		}
	}

	view := &TableView{
		Table:        *table,
		JoinID:       joinIDHex,
		NoteID:       join.NoteID.Hex(),
		IsSourceNote: isSource,
		CanEdit:      decision.CanEdit && isSource,
	}
	if !detail {
		return view, nil
	}

	cols, err := s.store.ColsByTable(ctx, table.ID)
	if err != nil {
		return nil, err
	}
	rows, err := s.store.RowsByTable(ctx, table.ID)
	if err != nil {
		return nil, err
	}
	rowIDs := make([]primitive.ObjectID, len(rows))
	for i, r := range rows {
		rowIDs[i] = r.ID
	}
	cells, err := s.store.RowDataByRows(ctx, rowIDs)
	if err != nil {
		return nil, err
	}
	cellsByRow := map[primitive.ObjectID][]models.RowData{}
	for _, c := range cells {
		cellsByRow[c.RowID] = append(cellsByRow[c.RowID], c)
	}

	view.Cols = cols
	view.Rows = make([]TableRow, len(rows))
	for i, r := range rows {
		cells := cellsByRow[r.ID]
		if cells == nil {
			cells = []models.RowData{}
		}
		view.Rows[i] = TableRow{Row: r, Cells: cells}
	}
	return view, nil
}

// requireSourceEdit loads a table and checks edit rights on its source
// note, the only note that can mutate table content.
func (s *TableService) requireSourceEdit(ctx context.Context, userID string, tableID primitive.ObjectID) (*models.Table, error) {
	table, err := s.store.TableByID(ctx, tableID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, apperr.NotFound("table not found")
		}
		return nil, err
	}
	if _, _, err := requireNoteEdit(ctx, s.store, table.SourceNoteID, userID); err != nil {
		return nil, err
	}
	return table, nil
}

func (s *TableService) UpdateName(ctx context.Context, userID, tableIDHex, name string) (*models.Table, error) {
	tableID, err := objectID(tableIDHex)
	if err != nil {
		return nil, err
	}
	table, err := s.requireSourceEdit(ctx, userID, tableID)
	if err != nil {
		return nil, err
	}

	table.Name = name
	table.UpdatedAt = s.now()
	if err := s.store.UpdateTable(ctx, table); err != nil {
		return nil, err
	}

	s.notify.Broadcast(ctx, realtime.KindTable, tableIDHex, event(tableID, "updateTableName", nil))
	return table, nil
}

// Delete removes a table relation. Three cases: the table itself is
// already gone (permissive cleanup of the dangling join), the join is
// a non-source embedding (unlink only), or the join is the source
// relation (the table and all its content go with it).
func (s *TableService) Delete(ctx context.Context, userID, joinIDHex string) (string, error) {
	joinID, err := objectID(joinIDHex)
	if err != nil {
		return "", err
	}
	join, err := s.store.TableNoteByID(ctx, joinID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return "", apperr.NotFound("table relation not found")
		}
		return "", err
	}

	table, err := s.store.TableByID(ctx, join.TableID)
	if errors.Is(err, store.ErrNotFound) {
		// Dangling join: the table is gone, any authenticated caller
		// may clean the relation up.
		if err := s.unlink(ctx, join); err != nil {
			return "", err
		}
		s.notify.Broadcast(ctx, realtime.KindNote, join.NoteID.Hex(), event(join.NoteID, "deleteBlock", nil))
		return "table relation deleted successfully. but table not found", nil
	}
	if err != nil {
		return "", err
	}

	if table.SourceNoteID != join.NoteID {
		// Unlinking an embedding needs edit rights on the note being
		// unlinked from, not on the source.
		if _, _, err := requireNoteEdit(ctx, s.store, join.NoteID, userID); err != nil {
			return "", err
		}
		if err := s.unlink(ctx, join); err != nil {
			return "", err
		}
		s.notify.Broadcast(ctx, realtime.KindNote, join.NoteID.Hex(), event(join.NoteID, "deleteBlock", nil))
		return "table relation deleted successfully", nil
	}

	if _, _, err := requireNoteEdit(ctx, s.store, table.SourceNoteID, userID); err != nil {
		return "", err
	}
	var touched []primitive.ObjectID
	err = s.store.Tx(ctx, func(ctx context.Context) error {
		var err error
		touched, err = deleteTableCascade(ctx, s.store, table.ID)
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
	return "table deleted successfully", nil
}

// unlink removes one join and its block, reflowing the host note.
func (s *TableService) unlink(ctx context.Context, join *models.TableNote) error {
	unlock := s.locks.Lock(noteLockKey(join.NoteID))
	defer unlock()
	return s.store.Tx(ctx, func(ctx context.Context) error {
		if err := s.store.DeleteTableNote(ctx, join.ID); err != nil && !errors.Is(err, store.ErrNotFound) {
			return err
		}
		if err := s.store.DeleteNoteBlocksByReference(ctx, join.ID); err != nil {
			return err
		}
		return reflowNoteBlocks(ctx, s.store, join.NoteID)
	})
}

// deleteTableCascade removes every join, block, col, row and cell of a
// table plus the table itself, and reports which notes hosted it.
// Callers reflow the returned notes.
func deleteTableCascade(ctx context.Context, st store.Store, tableID primitive.ObjectID) ([]primitive.ObjectID, error) {
	joins, err := st.TableNotesByTable(ctx, tableID)
	if err != nil {
		return nil, err
	}
	var touched []primitive.ObjectID
	for _, join := range joins {
		if err := st.DeleteNoteBlocksByReference(ctx, join.ID); err != nil {
			return nil, err
		}
		if err := st.DeleteTableNote(ctx, join.ID); err != nil && !errors.Is(err, store.ErrNotFound) {
			return nil, err
		}
		touched = append(touched, join.NoteID)
	}
	rows, err := st.RowsByTable(ctx, tableID)
	if err != nil {
		return nil, err
	}
	for _, row := range rows {
		if err := st.DeleteRow(ctx, row.ID); err != nil && !errors.Is(err, store.ErrNotFound) {
			return nil, err
		}
	}
	cols, err := st.ColsByTable(ctx, tableID)
	if err != nil {
		return nil, err
	}
	for _, col := range cols {
		if err := st.DeleteCol(ctx, col.ID); err != nil && !errors.Is(err, store.ErrNotFound) {
			return nil, err
		}
	}
	if err := st.DeleteTable(ctx, tableID); err != nil && !errors.Is(err, store.ErrNotFound) {
		return nil, err
	}
	return touched, nil
}

// List returns tables reachable through the caller's notes, for the
// sidebar and the relation picker. excludeNote drops tables already
// related to that note.
func (s *TableService) List(ctx context.Context, userID, filter, excludeNoteHex string) ([]models.Table, error) {
	noteIDs, err := candidateNoteIDs(ctx, s.store, userID, filter)
	if err != nil {
		return nil, err
	}
	tables, err := s.store.TablesBySourceNotes(ctx, noteIDs)
	if err != nil {
		return nil, err
	}
	if excludeNoteHex == "" {
		return tables, nil
	}
	excludeNote, err := objectID(excludeNoteHex)
	if err != nil {
		return nil, err
	}
	out := make([]models.Table, 0, len(tables))
	for _, table := range tables {
		related, err := s.store.TableNoteExists(ctx, table.ID, excludeNote)
		if err != nil {
			return nil, err
		}
		if !related {
			out = append(out, table)
		}
	}
	return out, nil
}

// Cols

func (s *TableService) CreateCol(ctx context.Context, userID, tableIDHex, title string) (*models.Col, error) {
	tableID, err := objectID(tableIDHex)
	if err != nil {
		return nil, err
	}
	if _, err := s.requireSourceEdit(ctx, userID, tableID); err != nil {
		return nil, err
	}

	col := &models.Col{TableID: tableID, Title: title}
	if err := s.store.CreateCol(ctx, col); err != nil {
		return nil, err
	}
	s.notify.Broadcast(ctx, realtime.KindTable, tableIDHex, event(tableID, "createCol", nil))
	return col, nil
}

func (s *TableService) UpdateCol(ctx context.Context, userID, colIDHex, title string) (*models.Col, error) {
	colID, err := objectID(colIDHex)
	if err != nil {
		return nil, err
	}
	col, err := s.store.ColByID(ctx, colID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, apperr.NotFound("column not found")
		}
		return nil, err
	}
	if _, err := s.requireSourceEdit(ctx, userID, col.TableID); err != nil {
		return nil, err
	}

	col.Title = title
	if err := s.store.UpdateCol(ctx, col); err != nil {
		return nil, err
	}
	s.notify.Broadcast(ctx, realtime.KindTable, col.TableID.Hex(), event(col.TableID, "updateCol", nil))
	return col, nil
}

func (s *TableService) DeleteCol(ctx context.Context, userID, colIDHex string) error {
	colID, err := objectID(colIDHex)
	if err != nil {
		return err
	}
	col, err := s.store.ColByID(ctx, colID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return apperr.NotFound("column not found")
		}
		return err
	}
	if _, err := s.requireSourceEdit(ctx, userID, col.TableID); err != nil {
		return err
	}

	if err := s.store.DeleteCol(ctx, colID); err != nil {
		return err
	}
	s.notify.Broadcast(ctx, realtime.KindTable, col.TableID.Hex(), event(col.TableID, "deleteCol", nil))
	return nil
}

// Rows

func (s *TableService) CreateRow(ctx context.Context, userID, tableIDHex string) (*models.Row, error) {
	tableID, err := objectID(tableIDHex)
	if err != nil {
		return nil, err
	}
	if _, err := s.requireSourceEdit(ctx, userID, tableID); err != nil {
		return nil, err
	}

	unlock := s.locks.Lock(tableLockKey(tableID))
	defer unlock()

	rows, err := s.store.RowsByTable(ctx, tableID)
	if err != nil {
		return nil, err
	}
	row := &models.Row{TableID: tableID, RowNumber: position.Next(rowItems(rows))}
	if err := s.store.CreateRow(ctx, row); err != nil {
		return nil, err
	}
	s.notify.Broadcast(ctx, realtime.KindTable, tableIDHex, event(tableID, "createRow", nil))
	return row, nil
}

func (s *TableService) DeleteRow(ctx context.Context, userID, rowIDHex string) error {
	rowID, err := objectID(rowIDHex)
	if err != nil {
		return err
	}
	row, err := s.store.RowByID(ctx, rowID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return apperr.NotFound("row not found")
		}
		return err
	}
	if _, err := s.requireSourceEdit(ctx, userID, row.TableID); err != nil {
		return err
	}

	unlock := s.locks.Lock(tableLockKey(row.TableID))
	defer unlock()

	err = s.store.Tx(ctx, func(ctx context.Context) error {
		if err := s.store.DeleteRow(ctx, rowID); err != nil {
			return err
		}
		rows, err := s.store.RowsByTable(ctx, row.TableID)
		if err != nil {
			return err
		}
		reflowed := position.Reflow(rowItems(rows))
		return s.store.SetRowNumbers(ctx, applyRowNumbers(rows, reflowed))
	})
	if err != nil {
		return err
	}
	s.notify.Broadcast(ctx, realtime.KindTable, row.TableID.Hex(), event(row.TableID, "deleteRow", nil))
	return nil
}

// Cells

func (s *TableService) CreateRowData(ctx context.Context, userID, rowIDHex, colIDHex, content string) (*models.RowData, error) {
	rowID, err := objectID(rowIDHex)
	if err != nil {
		return nil, err
	}
	colID, err := objectID(colIDHex)
	if err != nil {
		return nil, err
	}
	row, err := s.store.RowByID(ctx, rowID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, apperr.NotFound("row not found")
		}
		return nil, err
	}
	col, err := s.store.ColByID(ctx, colID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, apperr.NotFound("column not found")
		}
		return nil, err
	}
	if row.TableID != col.TableID {
		return nil, apperr.BadRequest("row and column belong to different tables")
	}
	if _, err := s.requireSourceEdit(ctx, userID, row.TableID); err != nil {
		return nil, err
	}

	cell := &models.RowData{RowID: rowID, ColID: colID, Content: content}
	if err := s.store.CreateRowData(ctx, cell); err != nil {
		return nil, err
	}
	s.notify.Broadcast(ctx, realtime.KindTable, row.TableID.Hex(), event(row.TableID, "createRowData", nil))
	return cell, nil
}

func (s *TableService) UpdateRowData(ctx context.Context, userID, cellIDHex, content string) (*models.RowData, error) {
	cellID, err := objectID(cellIDHex)
	if err != nil {
		return nil, err
	}
	cell, err := s.store.RowDataByID(ctx, cellID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, apperr.NotFound("cell not found")
		}
		return nil, err
	}
	row, err := s.store.RowByID(ctx, cell.RowID)
	if err != nil {
		return nil, err
	}
	if _, err := s.requireSourceEdit(ctx, userID, row.TableID); err != nil {
		return nil, err
	}

	cell.Content = content
	if err := s.store.UpdateRowData(ctx, cell); err != nil {
		return nil, err
	}
	s.notify.Broadcast(ctx, realtime.KindTable, row.TableID.Hex(), event(row.TableID, "updateRowData", nil))
	return cell, nil
}

func (s *TableService) DeleteRowData(ctx context.Context, userID, cellIDHex string) error {
	cellID, err := objectID(cellIDHex)
	if err != nil {
		return err
	}
	cell, err := s.store.RowDataByID(ctx, cellID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return apperr.NotFound("cell not found")
		}
		return err
	}
	row, err := s.store.RowByID(ctx, cell.RowID)
	if err != nil {
		return err
	}
	if _, err := s.requireSourceEdit(ctx, userID, row.TableID); err != nil {
		return err
	}

	if err := s.store.DeleteRowData(ctx, cellID); err != nil {
		return err
	}
	s.notify.Broadcast(ctx, realtime.KindTable, row.TableID.Hex(), event(row.TableID, "deleteRowData", nil))
	return nil
}

func rowItems(rows []models.Row) []position.Item {
	items := make([]position.Item, len(rows))
	for i, r := range rows {
		items[i] = position.Item{ID: r.ID.Hex(), Position: r.RowNumber}
	}
	return items
}

func applyRowNumbers(rows []models.Row, items []position.Item) []models.Row {
	byID := make(map[string]int, len(items))
	for _, it := range items {
		byID[it.ID] = it.Position
	}
	out := make([]models.Row, 0, len(rows))
	for _, r := range rows {
		if n, ok := byID[r.ID.Hex()]; ok {
			r.RowNumber = n
			out = append(out, r)
		}
	}
	return out
}

// candidateNoteIDs resolves a list filter to the notes whose
// sub-entities the caller should see: own notes, notes shared through
// the edit list, or favorited notes that are still viewable.
func candidateNoteIDs(ctx context.Context, st store.Store, userID, filter string) ([]primitive.ObjectID, error) {
	callerID, err := objectID(userID)
	if err != nil {
		return nil, err
	}
	switch filter {
	case "", "my":
		notes, err := st.NotesByOwner(ctx, callerID)
		if err != nil {
			return nil, err
		}
		ids := make([]primitive.ObjectID, len(notes))
		for i, n := range notes {
			ids[i] = n.ID
		}
		return ids, nil
	case "shared":
		return st.NoteIDsEditableBy(ctx, callerID)
	case "favorite":
		favoriteIDs, err := st.NoteIDsFavoritedBy(ctx, callerID)
		if err != nil {
			return nil, err
		}
		var out []primitive.ObjectID
		for _, noteID := range favoriteIDs {
			note, editors, err := noteWithEditors(ctx, st, noteID)
			if err != nil {
				if appErr, ok := apperr.From(err); ok && appErr.Code == apperr.CodeNotFound {
					continue
				}
				return nil, err
			}
			if d := policy.Evaluate(note, editors, userID); d.CanView {
				out = append(out, noteID)
			}
		}
		return out, nil
	}
	return nil, apperr.BadRequest("filter must be my, shared or favorite")
}
