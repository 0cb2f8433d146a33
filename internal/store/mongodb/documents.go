package mongodb

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/RIFAI1010/noedot-backend/internal/models"
)

func (s *Store) CreateDocument(ctx context.Context, document *models.Document) error {
	if document.ID.IsZero() {
		document.ID = primitive.NewObjectID()
	}
	return s.insertOne(ctx, collDocuments, document)
}

func (s *Store) DocumentByID(ctx context.Context, id primitive.ObjectID) (*models.Document, error) {
	var document models.Document
	if err := s.findOne(ctx, collDocuments, bson.M{"_id": id}, &document); err != nil {
		return nil, err
	}
	return &document, nil
}

func (s *Store) UpdateDocument(ctx context.Context, document *models.Document) error {
	return s.replaceByID(ctx, collDocuments, document.ID, document)
}

func (s *Store) DeleteDocument(ctx context.Context, id primitive.ObjectID) error {
	return s.deleteByID(ctx, collDocuments, id)
}

func (s *Store) DocumentsBySourceNotes(ctx context.Context, noteIDs []primitive.ObjectID) ([]models.Document, error) {
	documents := []models.Document{}
	err := s.findAll(ctx, collDocuments, bson.M{"sourceNoteId": bson.M{"$in": noteIDs}}, byUpdatedDesc, &documents)
	return documents, err
}

func (s *Store) CreateDocumentNote(ctx context.Context, join *models.DocumentNote) error {
	if join.ID.IsZero() {
		join.ID = primitive.NewObjectID()
	}
	return s.insertOne(ctx, collDocumentNotes, join)
}

func (s *Store) DocumentNoteByID(ctx context.Context, id primitive.ObjectID) (*models.DocumentNote, error) {
	var join models.DocumentNote
	if err := s.findOne(ctx, collDocumentNotes, bson.M{"_id": id}, &join); err != nil {
		return nil, err
	}
	return &join, nil
}

func (s *Store) DocumentNotesByDocument(ctx context.Context, documentID primitive.ObjectID) ([]models.DocumentNote, error) {
	joins := []models.DocumentNote{}
	err := s.findAll(ctx, collDocumentNotes, bson.M{"documentId": documentID}, nil, &joins)
	return joins, err
}

func (s *Store) DocumentNoteExists(ctx context.Context, documentID, noteID primitive.ObjectID) (bool, error) {
	return s.exists(ctx, collDocumentNotes, bson.M{"documentId": documentID, "noteId": noteID})
}

func (s *Store) DeleteDocumentNote(ctx context.Context, id primitive.ObjectID) error {
	return s.deleteByID(ctx, collDocumentNotes, id)
}
