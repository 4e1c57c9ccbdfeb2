package document

import (
	"context"
	defError "errors"
	"fmt"
	"sync"
	"time"

	"scenario-writing-lab/internal/errors"
	"scenario-writing-lab/internal/logging"
	"scenario-writing-lab/internal/worker"
	"scenario-writing-lab/redis"

	"github.com/rs/zerolog"
)

const (
	CodeNotFound        = "DOCUMENT_NOT_FOUND"
	CodeAccessDenied    = "DOCUMENT_ACCESS_DENIED"
	CodeVersionConflict = "DOCUMENT_VERSION_CONFLICT"
	CodeInternal        = "DOCUMENT_INTERNAL_ERROR"

	feature      = "documents"
	listCacheTTL = 10 * time.Minute
)

type Service interface {
	ListDocuments(ctx context.Context, ownerID string) ([]Summary, error)
	CreateDocument(ctx context.Context, ownerID string, input CreateInput) (*ScriptDocument, error)
	GetDocument(ctx context.Context, ownerID, docID string) (*ScriptDocument, error)
	// UpdateDocument takes the raw patch body: existence and ownership are
	// checked before the body is parsed.
	UpdateDocument(ctx context.Context, ownerID, docID string, body []byte) (*ScriptDocument, error)
}

type DefaultService struct {
	store Store
	cache *redis.Cache
	pool  *worker.WorkerPool

	// owners whose listing version could not be bumped after a write; their
	// cached summaries are bypassed until a bump succeeds
	stale sync.Map
}

// NewService wires a document service. cache and pool may be nil; listing
// summaries are then always read from the store.
func NewService(store Store, cache *redis.Cache, pool *worker.WorkerPool) Service {
	return &DefaultService{
		store: store,
		cache: cache,
		pool:  pool,
	}
}

func versionKey(ownerID string) string {
	return fmt.Sprintf("owner:%s:docs:version", ownerID)
}

func (s *DefaultService) ListDocuments(ctx context.Context, ownerID string) ([]Summary, error) {
	if !s.cacheUsable(ctx, ownerID) {
		return s.listFromStore(ctx, ownerID)
	}

	// Get the current data version for this owner's documents
	v, err := s.cache.GetVersion(ctx, versionKey(ownerID))
	if err != nil {
		s.cacheLogger(ctx, "listDocuments", ownerID).Warn().Err(err).Msg("Listing cache version unavailable, reading from store")
		return s.listFromStore(ctx, ownerID)
	}
	cacheKey := fmt.Sprintf("docs:o:%s:v:%d", ownerID, v)

	var result []Summary
	if found, _ := s.cache.Get(ctx, cacheKey, &result); found {
		return result, nil
	}

	result, err = s.listFromStore(ctx, ownerID)
	if err != nil {
		return nil, err
	}

	if s.pool != nil {
		s.pool.Submit(func(ctx context.Context) error {
			return s.cache.Set(ctx, cacheKey, result, listCacheTTL)
		})
	}
	return result, nil
}

func (s *DefaultService) listFromStore(ctx context.Context, ownerID string) ([]Summary, error) {
	docs, err := s.store.ListByOwner(ctx, ownerID)
	if err != nil {
		return nil, errors.Internal(CodeInternal, err)
	}
	return summaries(docs), nil
}

// cacheUsable reports whether ownerID's cached summaries can be trusted,
// retrying a version bump that failed after an earlier write.
func (s *DefaultService) cacheUsable(ctx context.Context, ownerID string) bool {
	if _, stale := s.stale.Load(ownerID); !stale {
		return true
	}
	if err := s.cache.IncrementVersion(ctx, versionKey(ownerID)); err != nil {
		return false
	}
	s.stale.Delete(ownerID)
	return true
}

func (s *DefaultService) CreateDocument(ctx context.Context, ownerID string, input CreateInput) (*ScriptDocument, error) {
	start := time.Now()
	doc, err := s.store.Create(ctx, ownerID, input)
	if err != nil {
		return nil, errors.Internal(CodeInternal, err)
	}
	s.invalidate(ctx, ownerID)

	logging.LogDocumentSave(ctx, logging.Context{
		Feature:    feature,
		Operation:  "createDocument",
		OwnerID:    ownerID,
		DocumentID: doc.ID,
	}, doc.Version, []string{"title", "authorName", "settings"}, time.Since(start))
	return doc, nil
}

func (s *DefaultService) GetDocument(ctx context.Context, ownerID, docID string) (*ScriptDocument, error) {
	start := time.Now()
	doc, err := s.owned(ctx, ownerID, docID)
	if err != nil {
		return nil, err
	}

	logging.LogDocumentLoad(ctx, logging.Context{
		Feature:    feature,
		Operation:  "getDocument",
		OwnerID:    ownerID,
		DocumentID: docID,
	}, s.store.Backend(), doc.Version, time.Since(start))
	return doc, nil
}

func (s *DefaultService) UpdateDocument(ctx context.Context, ownerID, docID string, body []byte) (*ScriptDocument, error) {
	start := time.Now()
	existing, err := s.owned(ctx, ownerID, docID)
	if err != nil {
		return nil, err
	}

	patch, err := ParsePatch(body)
	if err != nil {
		return nil, err
	}
	if patch.ExpectedVersion != nil && *patch.ExpectedVersion != existing.Version {
		return nil, errors.Conflict(CodeVersionConflict, nil)
	}

	changed := patch.ChangedFields()
	if len(changed) == 0 {
		return existing, nil
	}

	updated, err := s.store.Update(ctx, docID, patch)
	if err != nil {
		return nil, storeError(err)
	}
	s.invalidate(ctx, ownerID)

	logging.LogDocumentSave(ctx, logging.Context{
		Feature:    feature,
		Operation:  "updateDocument",
		OwnerID:    ownerID,
		DocumentID: docID,
	}, updated.Version, changed, time.Since(start))
	return updated, nil
}

// owned loads docID and checks that ownerID owns it.
func (s *DefaultService) owned(ctx context.Context, ownerID, docID string) (*ScriptDocument, error) {
	doc, err := s.store.GetByID(ctx, docID)
	if err != nil {
		return nil, storeError(err)
	}
	if doc.OwnerID != ownerID {
		return nil, errors.Forbidden(CodeAccessDenied, nil)
	}
	return doc, nil
}

// invalidate bumps the owner's listing version so cached summaries are no
// longer read.
func (s *DefaultService) invalidate(ctx context.Context, ownerID string) {
	if err := s.cache.IncrementVersion(ctx, versionKey(ownerID)); err != nil {
		s.stale.Store(ownerID, struct{}{})
		s.cacheLogger(ctx, "invalidateListing", ownerID).Warn().Err(err).Msg("Listing cache invalidation failed")
	}
}

func (s *DefaultService) cacheLogger(ctx context.Context, operation, ownerID string) zerolog.Logger {
	return logging.Context{Feature: feature, Operation: operation, OwnerID: ownerID}.Logger(ctx)
}

func storeError(err error) error {
	switch {
	case defError.Is(err, ErrNotFound):
		return errors.NotFound(CodeNotFound, err)
	case defError.Is(err, ErrVersionConflict):
		return errors.Conflict(CodeVersionConflict, err)
	default:
		return errors.Internal(CodeInternal, err)
	}
}
