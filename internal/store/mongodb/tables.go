package mongodb

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/RIFAI1010/noedot-backend/internal/models"
)

func (s *Store) CreateTable(ctx context.Context, table *models.Table) error {
	if table.ID.IsZero() {
		table.ID = primitive.NewObjectID()
	}
	return s.insertOne(ctx, collTables, table)
}

func (s *Store) TableByID(ctx context.Context, id primitive.ObjectID) (*models.Table, error) {
	var table models.Table
	if err := s.findOne(ctx, collTables, bson.M{"_id": id}, &table); err != nil {
		return nil, err
	}
	return &table, nil
}

func (s *Store) UpdateTable(ctx context.Context, table *models.Table) error {
	return s.replaceByID(ctx, collTables, table.ID, table)
}

func (s *Store) DeleteTable(ctx context.Context, id primitive.ObjectID) error {
	return s.deleteByID(ctx, collTables, id)
}

func (s *Store) TablesBySourceNotes(ctx context.Context, noteIDs []primitive.ObjectID) ([]models.Table, error) {
	tables := []models.Table{}
	err := s.findAll(ctx, collTables, bson.M{"sourceNoteId": bson.M{"$in": noteIDs}}, byUpdatedDesc, &tables)
	return tables, err
}

func (s *Store) CreateTableNote(ctx context.Context, join *models.TableNote) error {
	if join.ID.IsZero() {
		join.ID = primitive.NewObjectID()
	}
	return s.insertOne(ctx, collTableNotes, join)
}

func (s *Store) TableNoteByID(ctx context.Context, id primitive.ObjectID) (*models.TableNote, error) {
	var join models.TableNote
	if err := s.findOne(ctx, collTableNotes, bson.M{"_id": id}, &join); err != nil {
		return nil, err
	}
	return &join, nil
}

func (s *Store) TableNotesByTable(ctx context.Context, tableID primitive.ObjectID) ([]models.TableNote, error) {
	joins := []models.TableNote{}
	err := s.findAll(ctx, collTableNotes, bson.M{"tableId": tableID}, nil, &joins)
	return joins, err
}

func (s *Store) TableNoteExists(ctx context.Context, tableID, noteID primitive.ObjectID) (bool, error) {
	return s.exists(ctx, collTableNotes, bson.M{"tableId": tableID, "noteId": noteID})
}

func (s *Store) DeleteTableNote(ctx context.Context, id primitive.ObjectID) error {
	return s.deleteByID(ctx, collTableNotes, id)
}

// Cols

func (s *Store) CreateCol(ctx context.Context, col *models.Col) error {
	if col.ID.IsZero() {
		col.ID = primitive.NewObjectID()
	}
	return s.insertOne(ctx, collCols, col)
}

func (s *Store) ColByID(ctx context.Context, id primitive.ObjectID) (*models.Col, error) {
	var col models.Col
	if err := s.findOne(ctx, collCols, bson.M{"_id": id}, &col); err != nil {
		return nil, err
	}
	return &col, nil
}

func (s *Store) UpdateCol(ctx context.Context, col *models.Col) error {
	return s.replaceByID(ctx, collCols, col.ID, col)
}

// DeleteCol removes the column together with every cell stored in it.
func (s *Store) DeleteCol(ctx context.Context, id primitive.ObjectID) error {
	if err := s.deleteByID(ctx, collCols, id); err != nil {
		return err
	}
	return s.deleteAll(ctx, collRowData, bson.M{"colId": id})
}

func (s *Store) ColsByTable(ctx context.Context, tableID primitive.ObjectID) ([]models.Col, error) {
	cols := []models.Col{}
	err := s.findAll(ctx, collCols, bson.M{"tableId": tableID}, bson.D{{Key: "_id", Value: 1}}, &cols)
	return cols, err
}

// Rows

func (s *Store) CreateRow(ctx context.Context, row *models.Row) error {
	if row.ID.IsZero() {
		row.ID = primitive.NewObjectID()
	}
	return s.insertOne(ctx, collRows, row)
}

func (s *Store) RowByID(ctx context.Context, id primitive.ObjectID) (*models.Row, error) {
	var row models.Row
	if err := s.findOne(ctx, collRows, bson.M{"_id": id}, &row); err != nil {
		return nil, err
	}
	return &row, nil
}

// DeleteRow removes the row together with its cells.
func (s *Store) DeleteRow(ctx context.Context, id primitive.ObjectID) error {
	if err := s.deleteByID(ctx, collRows, id); err != nil {
		return err
	}
	return s.deleteAll(ctx, collRowData, bson.M{"rowId": id})
}

func (s *Store) RowsByTable(ctx context.Context, tableID primitive.ObjectID) ([]models.Row, error) {
	rows := []models.Row{}
	err := s.findAll(ctx, collRows, bson.M{"tableId": tableID}, bson.D{{Key: "rowNumber", Value: 1}}, &rows)
	return rows, err
}

func (s *Store) SetRowNumbers(ctx context.Context, rows []models.Row) error {
	if len(rows) == 0 {
		return nil
	}
	writes := make([]mongo.WriteModel, 0, len(rows))
	for _, r := range rows {
		writes = append(writes, mongo.NewUpdateOneModel().
			SetFilter(bson.M{"_id": r.ID}).
			SetUpdate(bson.M{"$set": bson.M{"rowNumber": r.RowNumber}}))
	}
	_, err := s.db.Collection(collRows).BulkWrite(ctx, writes)
	return mapErr(err)
}

// Cells

func (s *Store) CreateRowData(ctx context.Context, cell *models.RowData) error {
	if cell.ID.IsZero() {
		cell.ID = primitive.NewObjectID()
	}
	return s.insertOne(ctx, collRowData, cell)
}

func (s *Store) RowDataByID(ctx context.Context, id primitive.ObjectID) (*models.RowData, error) {
	var cell models.RowData
	if err := s.findOne(ctx, collRowData, bson.M{"_id": id}, &cell); err != nil {
		return nil, err
	}
	return &cell, nil
}

func (s *Store) UpdateRowData(ctx context.Context, cell *models.RowData) error {
	return s.replaceByID(ctx, collRowData, cell.ID, cell)
}

func (s *Store) DeleteRowData(ctx context.Context, id primitive.ObjectID) error {
	return s.deleteByID(ctx, collRowData, id)
}

func (s *Store) RowDataByRows(ctx context.Context, rowIDs []primitive.ObjectID) ([]models.RowData, error) {
	cells := []models.RowData{}
	err := s.findAll(ctx, collRowData, bson.M{"rowId": bson.M{"$in": rowIDs}}, nil, &cells)
	return cells, err
}
