package document

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"scenario-writing-lab/internal/config"
	"scenario-writing-lab/internal/db"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// documentRow is the postgres representation of a ScriptDocument. Characters
// are kept as a JSON column; settings are flattened.
type documentRow struct {
	ID         string    `gorm:"column:id;primaryKey;size:64"`
	OwnerID    string    `gorm:"column:owner_id;size:190;not null;index"`
	Title      string    `gorm:"column:title;type:text;not null"`
	AuthorName string    `gorm:"column:author_name;type:text;not null"`
	Synopsis   string    `gorm:"column:synopsis;type:text;not null"`
	Content    string    `gorm:"column:content;type:text;not null"`
	LineLength int       `gorm:"column:line_length;not null"`
	PageCount  int       `gorm:"column:page_count;not null"`
	Characters string    `gorm:"column:characters;type:jsonb;not null"`
	CreatedAt  time.Time `gorm:"column:created_at;not null;autoCreateTime:false"`
	UpdatedAt  time.Time `gorm:"column:updated_at;not null;autoUpdateTime:false"`
	Version    int       `gorm:"column:version;not null"`
}

func newRow(doc ScriptDocument) (documentRow, error) {
	chars, err := json.Marshal(cloneCharacters(doc.Characters))
	if err != nil {
		return documentRow{}, fmt.Errorf("encode characters: %w", err)
	}
	return documentRow{
		ID:         doc.ID,
		OwnerID:    doc.OwnerID,
		Title:      doc.Title,
		AuthorName: doc.AuthorName,
		Synopsis:   doc.Synopsis,
		Content:    doc.Content,
		LineLength: doc.Settings.LineLength,
		PageCount:  doc.Settings.PageCount,
		Characters: string(chars),
		CreatedAt:  doc.CreatedAt,
		UpdatedAt:  doc.UpdatedAt,
		Version:    doc.Version,
	}, nil
}

func (r documentRow) toDocument() (ScriptDocument, error) {
	var chars []CharacterProfile
	if r.Characters != "" {
		if err := json.Unmarshal([]byte(r.Characters), &chars); err != nil {
			return ScriptDocument{}, fmt.Errorf("decode characters of %s: %w", r.ID, err)
		}
	}
	return ScriptDocument{
		ID:         r.ID,
		OwnerID:    r.OwnerID,
		Title:      r.Title,
		AuthorName: r.AuthorName,
		Synopsis:   r.Synopsis,
		Content:    r.Content,
		Settings:   Settings{LineLength: r.LineLength, PageCount: r.PageCount},
		Characters: cloneCharacters(chars),
		CreatedAt:  r.CreatedAt.UTC(),
		UpdatedAt:  r.UpdatedAt.UTC(),
		Version:    r.Version,
	}, nil
}

// PostgresStore persists documents with gorm. Update locks the row with
// SELECT ... FOR UPDATE and writes with a version guard, so a concurrent
// writer that slipped past the lock still cannot reuse a version.
type PostgresStore struct {
	db    *gorm.DB
	table string
	now   func() time.Time
	newID func() string
}

// NewPostgresStore wraps gdb. When migrate is set the table is created or
// updated first.
func NewPostgresStore(gdb *gorm.DB, table string, migrate bool) (*PostgresStore, error) {
	if migrate {
		if err := db.Migrate(gdb, table, &documentRow{}); err != nil {
			return nil, err
		}
	}
	return &PostgresStore{db: gdb, table: table, now: time.Now, newID: NewID}, nil
}

func (s *PostgresStore) Backend() string {
	return config.BackendPostgres
}

func (s *PostgresStore) Close() error {
	return db.Close(s.db)
}

func (s *PostgresStore) ListByOwner(ctx context.Context, ownerID string) ([]ScriptDocument, error) {
	var rows []documentRow
	err := s.db.WithContext(ctx).
		Table(s.table).
		Where("owner_id = ?", ownerID).
		Order("updated_at DESC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}

	docs := make([]ScriptDocument, 0, len(rows))
	for _, row := range rows {
		doc, err := row.toDocument()
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	return docs, nil
}

func (s *PostgresStore) GetByID(ctx context.Context, id string) (*ScriptDocument, error) {
	var row documentRow
	err := s.db.WithContext(ctx).Table(s.table).Where("id = ?", id).Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	doc, err := row.toDocument()
	if err != nil {
		return nil, err
	}
	return &doc, nil
}

// Create inserts a new row, drawing a fresh id when the generated one is
// already taken.
func (s *PostgresStore) Create(ctx context.Context, ownerID string, input CreateInput) (*ScriptDocument, error) {
	for attempt := 0; attempt < maxCreateAttempts; attempt++ {
		doc := NewDocument(s.newID(), ownerID, input, s.now())
		row, err := newRow(doc)
		if err != nil {
			return nil, err
		}
		err = s.db.WithContext(ctx).Table(s.table).Create(&row).Error
		if err == nil {
			return &doc, nil
		}
		if !errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, err
		}
	}
	return nil, errors.New("could not allocate a document id")
}

func (s *PostgresStore) Update(ctx context.Context, id string, patch Patch) (*ScriptDocument, error) {
	var updated ScriptDocument

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var row documentRow
		err := tx.Table(s.table).
			Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("id = ?", id).
			Take(&row).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotFound
		}
		if err != nil {
			return err
		}

		current, err := row.toDocument()
		if err != nil {
			return err
		}
		if patch.ExpectedVersion != nil && *patch.ExpectedVersion != current.Version {
			return ErrVersionConflict
		}

		next := patch.Apply(current, s.now())
		nextRow, err := newRow(next)
		if err != nil {
			return err
		}

		// map Updates so empty strings are written, not skipped
		res := tx.Table(s.table).
			Where("id = ? AND version = ?", id, current.Version).
			Updates(map[string]any{
				"title":       nextRow.Title,
				"author_name": nextRow.AuthorName,
				"synopsis":    nextRow.Synopsis,
				"content":     nextRow.Content,
				"line_length": nextRow.LineLength,
				"page_count":  nextRow.PageCount,
				"characters":  nextRow.Characters,
				"updated_at":  nextRow.UpdatedAt,
				"version":     nextRow.Version,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrVersionConflict
		}

		updated = next
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &updated, nil
}
