// Package mongodb implements store.Store on top of the official Mongo
// driver. Multi-step operations run inside driver sessions via Tx.
package mongodb

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/RIFAI1010/noedot-backend/internal/store"
)

const (
	collUsers         = "users"
	collNotes         = "notes"
	collEditAccess    = "note_edit_access"
	collFavorites     = "note_user_favorites"
	collOpens         = "note_user_opens"
	collBlocks        = "note_blocks"
	collTables        = "tables"
	collTableNotes    = "table_notes"
	collCols          = "cols"
	collRows          = "rows"
	collRowData       = "row_data"
	collDocuments     = "documents"
	collDocumentNotes = "document_notes"
	collBoards        = "boards"
	collBoardNotes    = "board_notes"
	collBoardColumns  = "board_columns"
	collBoardCards    = "board_cards"
)

type Store struct {
	client *mongo.Client
	db     *mongo.Database
}

var _ store.Store = (*Store)(nil)

func New(client *mongo.Client, database string) *Store {
	return &Store{client: client, db: client.Database(database)}
}

// EnsureIndexes creates the unique indexes the write paths rely on.
// Safe to call on every startup.
func (s *Store) EnsureIndexes(ctx context.Context) error {
	unique := options.Index().SetUnique(true)
	specs := []struct {
		coll string
		keys bson.D
	}{
		{collUsers, bson.D{{Key: "email", Value: 1}}},
		{collEditAccess, bson.D{{Key: "noteId", Value: 1}, {Key: "userId", Value: 1}}},
		{collFavorites, bson.D{{Key: "noteId", Value: 1}, {Key: "userId", Value: 1}}},
		{collOpens, bson.D{{Key: "noteId", Value: 1}, {Key: "userId", Value: 1}}},
		{collTableNotes, bson.D{{Key: "tableId", Value: 1}, {Key: "noteId", Value: 1}}},
		{collDocumentNotes, bson.D{{Key: "documentId", Value: 1}, {Key: "noteId", Value: 1}}},
		{collBoardNotes, bson.D{{Key: "boardId", Value: 1}, {Key: "noteId", Value: 1}}},
	}
	for _, spec := range specs {
		_, err := s.db.Collection(spec.coll).Indexes().CreateOne(ctx, mongo.IndexModel{
			Keys:    spec.keys,
			Options: unique,
		})
		if err != nil {
			return err
		}
	}
	return nil
}

// Tx runs fn inside a Mongo session transaction. The context passed to
// fn must be used for every store call made within it.
func (s *Store) Tx(ctx context.Context, fn func(ctx context.Context) error) error {
	session, err := s.client.StartSession()
	if err != nil {
		return err
	}
	defer session.EndSession(ctx)
	_, err = session.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		return nil, fn(sc)
	})
	return err
}

func mapErr(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, mongo.ErrNoDocuments) {
		return store.ErrNotFound
	}
	if mongo.IsDuplicateKeyError(err) {
		return store.ErrDuplicate
	}
	return err
}

func (s *Store) insertOne(ctx context.Context, coll string, doc interface{}) error {
	_, err := s.db.Collection(coll).InsertOne(ctx, doc)
	return mapErr(err)
}

func (s *Store) findOne(ctx context.Context, coll string, filter bson.M, out interface{}) error {
	return mapErr(s.db.Collection(coll).FindOne(ctx, filter).Decode(out))
}

func (s *Store) findAll(ctx context.Context, coll string, filter bson.M, sort bson.D, out interface{}) error {
	opts := options.Find()
	if sort != nil {
		opts.SetSort(sort)
	}
	cursor, err := s.db.Collection(coll).Find(ctx, filter, opts)
	if err != nil {
		return mapErr(err)
	}
	return mapErr(cursor.All(ctx, out))
}

func (s *Store) replaceByID(ctx context.Context, coll string, id interface{}, doc interface{}) error {
	res, err := s.db.Collection(coll).ReplaceOne(ctx, bson.M{"_id": id}, doc)
	if err != nil {
		return mapErr(err)
	}
	if res.MatchedCount == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *Store) deleteByID(ctx context.Context, coll string, id interface{}) error {
	res, err := s.db.Collection(coll).DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return mapErr(err)
	}
	if res.DeletedCount == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *Store) deleteAll(ctx context.Context, coll string, filter bson.M) error {
	_, err := s.db.Collection(coll).DeleteMany(ctx, filter)
	return mapErr(err)
}

func (s *Store) exists(ctx context.Context, coll string, filter bson.M) (bool, error) {
	count, err := s.db.Collection(coll).CountDocuments(ctx, filter, options.Count().SetLimit(1))
	if err != nil {
		return false, mapErr(err)
	}
	return count > 0, nil
}
