package mongodb

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/RIFAI1010/noedot-backend/internal/models"
	"github.com/RIFAI1010/noedot-backend/internal/store"
)

// Users

func (s *Store) CreateUser(ctx context.Context, user *models.User) error {
	if user.ID.IsZero() {
		user.ID = primitive.NewObjectID()
	}
	return s.insertOne(ctx, collUsers, user)
}

func (s *Store) UserByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	if err := s.findOne(ctx, collUsers, bson.M{"email": email}, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

func (s *Store) UserByID(ctx context.Context, id primitive.ObjectID) (*models.User, error) {
	var user models.User
	if err := s.findOne(ctx, collUsers, bson.M{"_id": id}, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

func (s *Store) MarkUserVerified(ctx context.Context, id primitive.ObjectID) error {
	res, err := s.db.Collection(collUsers).UpdateByID(ctx, id, bson.M{
		"$set": bson.M{"isVerified": true, "updatedAt": time.Now()},
	})
	if err != nil {
		return mapErr(err)
	}
	if res.MatchedCount == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *Store) UsersByIDs(ctx context.Context, ids []primitive.ObjectID) ([]models.User, error) {
	users := []models.User{}
	err := s.findAll(ctx, collUsers, bson.M{"_id": bson.M{"$in": ids}}, nil, &users)
	return users, err
}

// Notes

func (s *Store) CreateNote(ctx context.Context, note *models.Note) error {
	if note.ID.IsZero() {
		note.ID = primitive.NewObjectID()
	}
	return s.insertOne(ctx, collNotes, note)
}

func (s *Store) NoteByID(ctx context.Context, id primitive.ObjectID) (*models.Note, error) {
	var note models.Note
	if err := s.findOne(ctx, collNotes, bson.M{"_id": id}, &note); err != nil {
		return nil, err
	}
	return &note, nil
}

func (s *Store) UpdateNote(ctx context.Context, note *models.Note) error {
	return s.replaceByID(ctx, collNotes, note.ID, note)
}

func (s *Store) DeleteNote(ctx context.Context, id primitive.ObjectID) error {
	return s.deleteByID(ctx, collNotes, id)
}

var byUpdatedDesc = bson.D{{Key: "updatedAt", Value: -1}}

func (s *Store) NotesByOwner(ctx context.Context, userID primitive.ObjectID) ([]models.Note, error) {
	notes := []models.Note{}
	err := s.findAll(ctx, collNotes, bson.M{"userId": userID}, byUpdatedDesc, &notes)
	return notes, err
}

func (s *Store) NotesByIDs(ctx context.Context, ids []primitive.ObjectID) ([]models.Note, error) {
	notes := []models.Note{}
	err := s.findAll(ctx, collNotes, bson.M{"_id": bson.M{"$in": ids}}, byUpdatedDesc, &notes)
	return notes, err
}

// Edit access

func (s *Store) NoteEditorIDs(ctx context.Context, noteID primitive.ObjectID) ([]primitive.ObjectID, error) {
	grants := []models.NoteEditAccess{}
	if err := s.findAll(ctx, collEditAccess, bson.M{"noteId": noteID}, nil, &grants); err != nil {
		return nil, err
	}
	ids := make([]primitive.ObjectID, 0, len(grants))
	for _, g := range grants {
		ids = append(ids, g.UserID)
	}
	return ids, nil
}

func (s *Store) AddNoteEditor(ctx context.Context, noteID, userID primitive.ObjectID) error {
	return s.insertOne(ctx, collEditAccess, models.NoteEditAccess{
		ID:     primitive.NewObjectID(),
		NoteID: noteID,
		UserID: userID,
	})
}

func (s *Store) RemoveNoteEditors(ctx context.Context, noteID primitive.ObjectID, userIDs []primitive.ObjectID) error {
	return s.deleteAll(ctx, collEditAccess, bson.M{"noteId": noteID, "userId": bson.M{"$in": userIDs}})
}

func (s *Store) NoteIDsEditableBy(ctx context.Context, userID primitive.ObjectID) ([]primitive.ObjectID, error) {
	grants := []models.NoteEditAccess{}
	if err := s.findAll(ctx, collEditAccess, bson.M{"userId": userID}, nil, &grants); err != nil {
		return nil, err
	}
	ids := make([]primitive.ObjectID, 0, len(grants))
	for _, g := range grants {
		ids = append(ids, g.NoteID)
	}
	return ids, nil
}

func (s *Store) DeleteNoteEditors(ctx context.Context, noteID primitive.ObjectID) error {
	return s.deleteAll(ctx, collEditAccess, bson.M{"noteId": noteID})
}

// Favorites

func (s *Store) AddFavorite(ctx context.Context, favorite *models.NoteUserFavorite) error {
	if favorite.ID.IsZero() {
		favorite.ID = primitive.NewObjectID()
	}
	return s.insertOne(ctx, collFavorites, favorite)
}

func (s *Store) RemoveFavorite(ctx context.Context, noteID, userID primitive.ObjectID) error {
	res, err := s.db.Collection(collFavorites).DeleteOne(ctx, bson.M{"noteId": noteID, "userId": userID})
	if err != nil {
		return mapErr(err)
	}
	if res.DeletedCount == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *Store) IsFavorite(ctx context.Context, noteID, userID primitive.ObjectID) (bool, error) {
	return s.exists(ctx, collFavorites, bson.M{"noteId": noteID, "userId": userID})
}

func (s *Store) NoteIDsFavoritedBy(ctx context.Context, userID primitive.ObjectID) ([]primitive.ObjectID, error) {
	favorites := []models.NoteUserFavorite{}
	if err := s.findAll(ctx, collFavorites, bson.M{"userId": userID}, nil, &favorites); err != nil {
		return nil, err
	}
	ids := make([]primitive.ObjectID, 0, len(favorites))
	for _, f := range favorites {
		ids = append(ids, f.NoteID)
	}
	return ids, nil
}

func (s *Store) DeleteFavoritesByNote(ctx context.Context, noteID primitive.ObjectID) error {
	return s.deleteAll(ctx, collFavorites, bson.M{"noteId": noteID})
}

// Last-open tracking

func (s *Store) TouchNoteOpen(ctx context.Context, noteID, userID primitive.ObjectID, at time.Time) error {
	_, err := s.db.Collection(collOpens).UpdateOne(ctx,
		bson.M{"noteId": noteID, "userId": userID},
		bson.M{"$set": bson.M{"openAt": at}},
		options.Update().SetUpsert(true),
	)
	return mapErr(err)
}

func (s *Store) NoteOpens(ctx context.Context, userID primitive.ObjectID) (map[primitive.ObjectID]time.Time, error) {
	opens := []models.NoteUserOpen{}
	if err := s.findAll(ctx, collOpens, bson.M{"userId": userID}, nil, &opens); err != nil {
		return nil, err
	}
	out := make(map[primitive.ObjectID]time.Time, len(opens))
	for _, o := range opens {
		out[o.NoteID] = o.OpenAt
	}
	return out, nil
}

func (s *Store) DeleteNoteOpensByNote(ctx context.Context, noteID primitive.ObjectID) error {
	return s.deleteAll(ctx, collOpens, bson.M{"noteId": noteID})
}

// Note blocks

func (s *Store) CreateNoteBlock(ctx context.Context, block *models.NoteBlock) error {
	if block.ID.IsZero() {
		block.ID = primitive.NewObjectID()
	}
	return s.insertOne(ctx, collBlocks, block)
}

func (s *Store) NoteBlockByID(ctx context.Context, id primitive.ObjectID) (*models.NoteBlock, error) {
	var block models.NoteBlock
	if err := s.findOne(ctx, collBlocks, bson.M{"_id": id}, &block); err != nil {
		return nil, err
	}
	return &block, nil
}

func (s *Store) NoteBlocks(ctx context.Context, noteID primitive.ObjectID) ([]models.NoteBlock, error) {
	blocks := []models.NoteBlock{}
	err := s.findAll(ctx, collBlocks, bson.M{"noteId": noteID}, bson.D{{Key: "position", Value: 1}}, &blocks)
	return blocks, err
}

func (s *Store) SetNoteBlockPositions(ctx context.Context, blocks []models.NoteBlock) error {
	if len(blocks) == 0 {
		return nil
	}
	writes := make([]mongo.WriteModel, 0, len(blocks))
	for _, b := range blocks {
		writes = append(writes, mongo.NewUpdateOneModel().
			SetFilter(bson.M{"_id": b.ID}).
			SetUpdate(bson.M{"$set": bson.M{"position": b.Position}}))
	}
	_, err := s.db.Collection(collBlocks).BulkWrite(ctx, writes)
	return mapErr(err)
}

func (s *Store) DeleteNoteBlocksByReference(ctx context.Context, referenceID primitive.ObjectID) error {
	return s.deleteAll(ctx, collBlocks, bson.M{"referenceId": referenceID})
}

func (s *Store) DeleteNoteBlocksByNote(ctx context.Context, noteID primitive.ObjectID) error {
	return s.deleteAll(ctx, collBlocks, bson.M{"noteId": noteID})
}
