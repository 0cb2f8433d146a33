package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// NoteStatus controls who can see a note.
type NoteStatus string

const (
	StatusPrivate NoteStatus = "private"
	StatusAccess  NoteStatus = "access"
	StatusPublic  NoteStatus = "public"
)

func (s NoteStatus) Valid() bool {
	switch s {
	case StatusPrivate, StatusAccess, StatusPublic:
		return true
	}
	return false
}

// Editable controls who can mutate a note. It is independent of
// visibility: a user who cannot view a note is never granted edit.
type Editable string

const (
	EditableMe       Editable = "me"
	EditableAccess   Editable = "access"
	EditableEveryone Editable = "everyone"
)

func (e Editable) Valid() bool {
	switch e {
	case EditableMe, EditableAccess, EditableEveryone:
		return true
	}
	return false
}

// BlockType names the sub-entity a note block points at.
type BlockType string

const (
	BlockTable    BlockType = "table"
	BlockDocument BlockType = "document"
	BlockBoard    BlockType = "board"
)

type User struct {
	ID         primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Email      string             `bson:"email" json:"email"`
	Name       string             `bson:"name" json:"name"`
	Password   string             `bson:"password,omitempty" json:"-"`
	Provider   string             `bson:"provider,omitempty" json:"provider,omitempty"`
	ProviderID string             `bson:"providerId,omitempty" json:"-"`
	IsVerified bool               `bson:"isVerified" json:"isVerified"`
	CreatedAt  time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt  time.Time          `bson:"updatedAt" json:"updatedAt"`
}

type Note struct {
	ID         primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	UserID     primitive.ObjectID `bson:"userId" json:"userId"`
	Title      string             `bson:"title" json:"title"`
	Status     NoteStatus         `bson:"status" json:"status"`
	Editable   Editable           `bson:"editable" json:"editable"`
	Begin      *time.Time         `bson:"begin,omitempty" json:"begin,omitempty"`
	Due        *time.Time         `bson:"due,omitempty" json:"due,omitempty"`
	ConfirmDue bool               `bson:"confirmDue" json:"confirmDue"`
	CreatedAt  time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt  time.Time          `bson:"updatedAt" json:"updatedAt"`
}

// DateStatus is derived from a note's begin/due window on every read;
// only the terminal confirmation is stored (Note.ConfirmDue).
type DateStatus string

const (
	DateNone              DateStatus = "none"
	DateTodo              DateStatus = "todo"
	DateProgress          DateStatus = "progress"
	DateConfirmToComplete DateStatus = "confirmToComplete"
	DateComplete          DateStatus = "complete"
)

// DateStatusAt computes the note's date status at the given instant.
// Order matters: complete wins over everything, then overdue, then the
// in-window progress state.
func (n *Note) DateStatusAt(now time.Time) DateStatus {
	if n.Due == nil {
		return DateNone
	}
	if n.ConfirmDue {
		return DateComplete
	}
	if now.After(*n.Due) {
		return DateConfirmToComplete
	}
	if n.Begin != nil && !now.Before(*n.Begin) {
		return DateProgress
	}
	return DateTodo
}

// NoteEditAccess grants a user membership in a note's edit-access list.
type NoteEditAccess struct {
	ID     primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	NoteID primitive.ObjectID `bson:"noteId" json:"noteId"`
	UserID primitive.ObjectID `bson:"userId" json:"userId"`
}

type NoteUserFavorite struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	NoteID    primitive.ObjectID `bson:"noteId" json:"noteId"`
	UserID    primitive.ObjectID `bson:"userId" json:"userId"`
	CreatedAt time.Time          `bson:"createdAt" json:"createdAt"`
}

type NoteUserOpen struct {
	ID     primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	NoteID primitive.ObjectID `bson:"noteId" json:"noteId"`
	UserID primitive.ObjectID `bson:"userId" json:"userId"`
	OpenAt time.Time          `bson:"openAt" json:"openAt"`
}

// NoteBlock is a positioned reference inside a note. ReferenceID points
// at the join record (TableNote/DocumentNote/BoardNote), not at the
// sub-entity itself, so the same sub-entity can be embedded into
// several notes with an independent position in each.
type NoteBlock struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	NoteID      primitive.ObjectID `bson:"noteId" json:"noteId"`
	Type        BlockType          `bson:"type" json:"type"`
	ReferenceID primitive.ObjectID `bson:"referenceId" json:"referenceId"`
	Position    int                `bson:"position" json:"position"`
}

type Table struct {
	ID           primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	SourceNoteID primitive.ObjectID `bson:"sourceNoteId" json:"sourceNoteId"`
	Name         string             `bson:"name" json:"name"`
	CreatedAt    time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt    time.Time          `bson:"updatedAt" json:"updatedAt"`
}

// TableNote binds a table to a hosting note. The row whose NoteID
// equals the table's SourceNoteID is the source relation; any other
// row is a read-only embedding.
type TableNote struct {
	ID      primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	TableID primitive.ObjectID `bson:"tableId" json:"tableId"`
	NoteID  primitive.ObjectID `bson:"noteId" json:"noteId"`
}

type Col struct {
	ID      primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	TableID primitive.ObjectID `bson:"tableId" json:"tableId"`
	Title   string             `bson:"title" json:"title"`
}

type Row struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	TableID   primitive.ObjectID `bson:"tableId" json:"tableId"`
	RowNumber int                `bson:"rowNumber" json:"rowNumber"`
}

type RowData struct {
	ID      primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	RowID   primitive.ObjectID `bson:"rowId" json:"rowId"`
	ColID   primitive.ObjectID `bson:"colId" json:"colId"`
	Content string             `bson:"content" json:"content"`
}

type Document struct {
	ID           primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	SourceNoteID primitive.ObjectID `bson:"sourceNoteId" json:"sourceNoteId"`
	Name         string             `bson:"name" json:"name"`
	Content      string             `bson:"content" json:"content"`
	Height       int                `bson:"height" json:"height"`
	CreatedAt    time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt    time.Time          `bson:"updatedAt" json:"updatedAt"`
}

type DocumentNote struct {
	ID         primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	DocumentID primitive.ObjectID `bson:"documentId" json:"documentId"`
	NoteID     primitive.ObjectID `bson:"noteId" json:"noteId"`
}

type Board struct {
	ID           primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	SourceNoteID primitive.ObjectID `bson:"sourceNoteId" json:"sourceNoteId"`
	Name         string             `bson:"name" json:"name"`
	CreatedAt    time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt    time.Time          `bson:"updatedAt" json:"updatedAt"`
}

type BoardNote struct {
	ID      primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	BoardID primitive.ObjectID `bson:"boardId" json:"boardId"`
	NoteID  primitive.ObjectID `bson:"noteId" json:"noteId"`
}

type BoardColumn struct {
	ID       primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	BoardID  primitive.ObjectID `bson:"boardId" json:"boardId"`
	Title    string             `bson:"title" json:"title"`
	Position int                `bson:"position" json:"position"`
}

type BoardCard struct {
	ID            primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	BoardColumnID primitive.ObjectID `bson:"boardColumnId" json:"boardColumnId"`
	Title         string             `bson:"title" json:"title"`
	Description   string             `bson:"description" json:"description"`
	Position      int                `bson:"position" json:"position"`
}
