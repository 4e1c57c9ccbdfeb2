package export

import (
	"bytes"
	"encoding/json"
	"net/http"
	"time"

	"scenario-writing-lab/internal/errors"
	"scenario-writing-lab/internal/logging"
	"scenario-writing-lab/internal/middleware"

	"github.com/gin-gonic/gin"
)

type Handler struct{}

func NewHandler() *Handler {
	return &Handler{}
}

// ParseBody reads {title, authorName, content}. Non-string fields count as
// empty; a body that is not a JSON object is rejected.
func ParseBody(body []byte) (Input, error) {
	if len(bytes.TrimSpace(body)) == 0 {
		body = []byte("{}")
	}
	var raw any
	if err := json.Unmarshal(body, &raw); err != nil {
		return Input{}, errors.BadRequest(CodeInvalidBody, err)
	}
	obj, ok := raw.(map[string]any)
	if !ok {
		return Input{}, errors.BadRequest(CodeInvalidBody, nil)
	}

	str := func(key string) string {
		s, _ := obj[key].(string)
		return s
	}
	return Input{Title: str("title"), AuthorName: str("authorName"), Content: str("content")}, nil
}

func (h *Handler) Export(c *gin.Context) {
	start := time.Now()
	documentID := c.Param("id")
	if documentID == "" {
		c.Error(errors.BadRequest(errors.CodeDocumentIDEmpty, nil))
		return
	}

	l := logging.Context{
		Feature:    "export",
		Operation:  "handleExportDocument",
		OwnerID:    middleware.UserID(c),
		DocumentID: documentID,
	}.Logger(c.Request.Context())

	data, err := c.GetRawData()
	if err != nil {
		c.Error(errors.BadRequest(CodeInvalidBody, err))
		return
	}
	input, err := ParseBody(data)
	if err != nil {
		c.Error(err)
		return
	}

	payload, err := Render(input)
	if err != nil {
		l.Error().Str("error", err.Error()).Msg(logging.ExportFailed)
		c.Error(err)
		return
	}

	l.Info().
		Str("fileName", payload.FileName).
		Int("byteLength", len(payload.Content)).
		Int64("elapsedMs", time.Since(start).Milliseconds()).
		Msg(logging.ExportSucceeded)
	c.JSON(http.StatusOK, payload)
}
