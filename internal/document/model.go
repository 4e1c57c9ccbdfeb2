package document

import (
	"slices"
	"time"

	"github.com/google/uuid"
)

type Settings struct {
	LineLength int `json:"lineLength" dynamodbav:"lineLength"`
	PageCount  int `json:"pageCount" dynamodbav:"pageCount"`
}

type CharacterProfile struct {
	ID            string  `json:"id" dynamodbav:"id" validate:"required"`
	Name          string  `json:"name" dynamodbav:"name" validate:"required"`
	Age           *string `json:"age,omitempty" dynamodbav:"age,omitempty"`
	Traits        *string `json:"traits,omitempty" dynamodbav:"traits,omitempty"`
	Background    *string `json:"background,omitempty" dynamodbav:"background,omitempty"`
	Relationships *string `json:"relationships,omitempty" dynamodbav:"relationships,omitempty"`
	Notes         *string `json:"notes,omitempty" dynamodbav:"notes,omitempty"`
}

// ScriptDocument is the unit of storage. Version starts at 1 and grows by
// exactly one per accepted write.
type ScriptDocument struct {
	ID         string             `json:"id"`
	OwnerID    string             `json:"ownerId"`
	Title      string             `json:"title"`
	AuthorName string             `json:"authorName"`
	Synopsis   string             `json:"synopsis"`
	Content    string             `json:"content"`
	Settings   Settings           `json:"settings"`
	Characters []CharacterProfile `json:"characters"`
	CreatedAt  time.Time          `json:"createdAt"`
	UpdatedAt  time.Time          `json:"updatedAt"`
	Version    int                `json:"version"`
}

// Summary is the listing projection of a ScriptDocument.
type Summary struct {
	ID         string    `json:"id"`
	Title      string    `json:"title"`
	AuthorName string    `json:"authorName"`
	UpdatedAt  time.Time `json:"updatedAt"`
	Version    int       `json:"version"`
}

type CreateInput struct {
	Title      string   `validate:"notblank"`
	AuthorName string   `validate:"notblank"`
	Settings   Settings `validate:"-"`
}

// Patch is a partial update. Nil fields are left untouched.
type Patch struct {
	Title           *string
	AuthorName      *string
	Synopsis        *string
	Content         *string
	Settings        *Settings
	Characters      *[]CharacterProfile
	ExpectedVersion *int
}

// ChangedFields lists the wire names of the fields the patch sets, in a
// stable order. ExpectedVersion is a precondition, not a change.
func (p Patch) ChangedFields() []string {
	fields := make([]string, 0, 6)
	if p.Title != nil {
		fields = append(fields, "title")
	}
	if p.AuthorName != nil {
		fields = append(fields, "authorName")
	}
	if p.Synopsis != nil {
		fields = append(fields, "synopsis")
	}
	if p.Content != nil {
		fields = append(fields, "content")
	}
	if p.Settings != nil {
		fields = append(fields, "settings")
	}
	if p.Characters != nil {
		fields = append(fields, "characters")
	}
	return fields
}

func (p Patch) IsEmpty() bool {
	return len(p.ChangedFields()) == 0
}

// Apply returns the next revision of doc: patched fields, version+1 and an
// updatedAt strictly after the previous one.
func (p Patch) Apply(doc ScriptDocument, now time.Time) ScriptDocument {
	next := doc.Clone()
	if p.Title != nil {
		next.Title = *p.Title
	}
	if p.AuthorName != nil {
		next.AuthorName = *p.AuthorName
	}
	if p.Synopsis != nil {
		next.Synopsis = *p.Synopsis
	}
	if p.Content != nil {
		next.Content = *p.Content
	}
	if p.Settings != nil {
		next.Settings = *p.Settings
	}
	if p.Characters != nil {
		next.Characters = cloneCharacters(*p.Characters)
	}
	next.Version = doc.Version + 1
	next.UpdatedAt = nextTimestamp(doc.UpdatedAt, now)
	return next
}

// Clone returns a copy that shares no mutable state with d.
func (d ScriptDocument) Clone() ScriptDocument {
	d.Characters = cloneCharacters(d.Characters)
	return d
}

func (d ScriptDocument) Summary() Summary {
	return Summary{
		ID:         d.ID,
		Title:      d.Title,
		AuthorName: d.AuthorName,
		UpdatedAt:  d.UpdatedAt,
		Version:    d.Version,
	}
}

// NewDocument builds version 1 of a document from validated input.
func NewDocument(id, ownerID string, input CreateInput, now time.Time) ScriptDocument {
	ts := timestamp(now)
	return ScriptDocument{
		ID:         id,
		OwnerID:    ownerID,
		Title:      input.Title,
		AuthorName: input.AuthorName,
		Settings:   input.Settings,
		Characters: []CharacterProfile{},
		CreatedAt:  ts,
		UpdatedAt:  ts,
		Version:    1,
	}
}

// NewID returns an opaque id of the form doc_xxxxxxxx.
func NewID() string {
	return "doc_" + uuid.NewString()[:8]
}

func cloneCharacters(in []CharacterProfile) []CharacterProfile {
	out := slices.Clone(in)
	if out == nil {
		out = []CharacterProfile{}
	}
	return out
}

// timestamp normalizes to UTC at the precision every backend can store.
func timestamp(t time.Time) time.Time {
	return t.UTC().Truncate(time.Microsecond)
}

func nextTimestamp(prev, now time.Time) time.Time {
	ts := timestamp(now)
	if !ts.After(prev) {
		ts = prev.Add(time.Microsecond)
	}
	return ts
}

func summaries(docs []ScriptDocument) []Summary {
	out := make([]Summary, 0, len(docs))
	for _, d := range docs {
		out = append(out, d.Summary())
	}
	return out
}

func sortByUpdatedDesc(docs []ScriptDocument) {
	slices.SortStableFunc(docs, func(a, b ScriptDocument) int {
		return b.UpdatedAt.Compare(a.UpdatedAt)
	})
}
