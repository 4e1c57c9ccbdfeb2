package document

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"scenario-writing-lab/internal/errors"
	"scenario-writing-lab/internal/middleware"
	"scenario-writing-lab/internal/redact"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// mock implementation of the Service interface
type MockService struct {
	mock.Mock
}

func (m *MockService) ListDocuments(ctx context.Context, ownerID string) ([]Summary, error) {
	args := m.Called(ctx, ownerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]Summary), args.Error(1)
}

func (m *MockService) CreateDocument(ctx context.Context, ownerID string, input CreateInput) (*ScriptDocument, error) {
	args := m.Called(ctx, ownerID, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ScriptDocument), args.Error(1)
}

func (m *MockService) GetDocument(ctx context.Context, ownerID, docID string) (*ScriptDocument, error) {
	args := m.Called(ctx, ownerID, docID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ScriptDocument), args.Error(1)
}

func (m *MockService) UpdateDocument(ctx context.Context, ownerID, docID string, body []byte) (*ScriptDocument, error) {
	args := m.Called(ctx, ownerID, docID, body)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ScriptDocument), args.Error(1)
}

func setupRouter(h *Handler) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(middleware.Correlation(zerolog.Nop()), middleware.ErrorHandler(redact.New()))
	auth := &middleware.Auth{}
	h.RegisterRoutes(router.Group("/api/documents", auth.AuthMiddleWare()))
	return router
}

func newRequest(method, path string, body []byte) *http.Request {
	req, _ := http.NewRequest(method, path, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(middleware.UserHeader, "u1")
	req.Header.Set(middleware.CorrelationHeader, "corr-doc")
	return req
}

func sampleDocument() *ScriptDocument {
	ts := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	return &ScriptDocument{
		ID:         "doc_12345678",
		OwnerID:    "u1",
		Title:      "Draft A",
		AuthorName: "Kim",
		Settings:   Settings{LineLength: 20, PageCount: 20},
		Characters: []CharacterProfile{},
		CreatedAt:  ts,
		UpdatedAt:  ts,
		Version:    1,
	}
}

func TestHandler_List(t *testing.T) {
	svc := new(MockService)
	router := setupRouter(NewHandler(svc))

	doc := sampleDocument()
	svc.On("ListDocuments", mock.Anything, "u1").Return([]Summary{doc.Summary()}, nil)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, newRequest(http.MethodGet, "/api/documents", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	var body []map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Len(t, body, 1)
	assert.Equal(t, map[string]any{
		"id":         "doc_12345678",
		"title":      "Draft A",
		"authorName": "Kim",
		"updatedAt":  "2026-03-01T10:00:00Z",
		"version":    float64(1),
	}, body[0])
	svc.AssertExpectations(t)
}

func TestHandler_Create(t *testing.T) {
	svc := new(MockService)
	router := setupRouter(NewHandler(svc))

	input := CreateInput{Title: "Draft A", AuthorName: "Kim", Settings: Settings{LineLength: 20, PageCount: 20}}
	svc.On("CreateDocument", mock.Anything, "u1", input).Return(sampleDocument(), nil)

	body := []byte(`{"title":"Draft A","authorName":"Kim","settings":{"lineLength":20,"pageCount":20}}`)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, newRequest(http.MethodPost, "/api/documents", body))

	assert.Equal(t, http.StatusCreated, w.Code)
	var got map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Equal(t, "doc_12345678", got["id"])
	assert.Equal(t, "u1", got["ownerId"])
	assert.Equal(t, []any{}, got["characters"])
	svc.AssertExpectations(t)
}

func TestHandler_CreateValidationError(t *testing.T) {
	svc := new(MockService)
	router := setupRouter(NewHandler(svc))

	w := httptest.NewRecorder()
	router.ServeHTTP(w, newRequest(http.MethodPost, "/api/documents", []byte(`{"title":" ","authorName":"Kim"}`)))

	assert.Equal(t, http.StatusBadRequest, w.Code)
	var got map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Equal(t, CodeTitleRequired, got["error"])
	assert.Equal(t, "corr-doc", got["correlationId"])
	svc.AssertNotCalled(t, "CreateDocument", mock.Anything, mock.Anything, mock.Anything)
}

func TestHandler_Show(t *testing.T) {
	svc := new(MockService)
	router := setupRouter(NewHandler(svc))

	svc.On("GetDocument", mock.Anything, "u1", "doc_12345678").Return(sampleDocument(), nil)
	svc.On("GetDocument", mock.Anything, "u1", "doc_other").Return(nil, errors.Forbidden(CodeAccessDenied, nil))

	w := httptest.NewRecorder()
	router.ServeHTTP(w, newRequest(http.MethodGet, "/api/documents/doc_12345678", nil))
	assert.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	router.ServeHTTP(w, newRequest(http.MethodGet, "/api/documents/doc_other", nil))
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Contains(t, w.Body.String(), CodeAccessDenied)
	svc.AssertExpectations(t)
}

func TestHandler_Update(t *testing.T) {
	svc := new(MockService)
	router := setupRouter(NewHandler(svc))

	body := []byte(`{"content":"FADE IN:","expectedVersion":1}`)
	updated := sampleDocument()
	updated.Content = "FADE IN:"
	updated.Version = 2
	svc.On("UpdateDocument", mock.Anything, "u1", "doc_12345678", body).Return(updated, nil)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, newRequest(http.MethodPatch, "/api/documents/doc_12345678", body))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"version":2`)
	svc.AssertExpectations(t)
}

func TestHandler_UpdateConflict(t *testing.T) {
	svc := new(MockService)
	router := setupRouter(NewHandler(svc))

	body := []byte(`{"synopsis":"x","expectedVersion":999}`)
	svc.On("UpdateDocument", mock.Anything, "u1", "doc_12345678", body).
		Return(nil, errors.Conflict(CodeVersionConflict, nil))

	w := httptest.NewRecorder()
	router.ServeHTTP(w, newRequest(http.MethodPatch, "/api/documents/doc_12345678", body))

	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Contains(t, w.Body.String(), CodeVersionConflict)
}

func TestHandler_RequiresIdentity(t *testing.T) {
	svc := new(MockService)
	router := setupRouter(NewHandler(svc))

	req := newRequest(http.MethodGet, "/api/documents", nil)
	req.Header.Del(middleware.UserHeader)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	svc.AssertNotCalled(t, "ListDocuments", mock.Anything, mock.Anything)
}
