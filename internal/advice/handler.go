package advice

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"time"
	"unicode/utf8"

	"scenario-writing-lab/internal/errors"
	"scenario-writing-lab/internal/logging"
	"scenario-writing-lab/internal/middleware"
	"scenario-writing-lab/internal/ratelimit"
	"scenario-writing-lab/internal/redact"
	"scenario-writing-lab/internal/secret"

	"github.com/gin-gonic/gin"
)

const (
	CodeInvalidBody     = "INVALID_ADVICE_BODY"
	CodeRateLimited     = "ADVICE_RATE_LIMITED"
	CodeTimeout         = "ADVICE_TIMEOUT"
	CodeProviderFailure = "ADVICE_PROVIDER_FAILURE"

	MaxSynopsisChars     = 8000
	MaxContentChars      = 50000
	MaxSelectedTextChars = 10000

	DefaultPanelA = Gemini
	DefaultPanelB = OpenAI
)

type Handler struct {
	generator      Generator
	limiter        ratelimit.Limiter
	secrets        secret.Resolver
	redactor       *redact.Redactor
	defaultTimeout time.Duration
}

func NewHandler(generator Generator, limiter ratelimit.Limiter, secrets secret.Resolver, redactor *redact.Redactor, defaultTimeout time.Duration) *Handler {
	return &Handler{
		generator:      generator,
		limiter:        limiter,
		secrets:        secrets,
		redactor:       redactor,
		defaultTimeout: defaultTimeout,
	}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/generate", h.Generate)
	rg.GET("/models", h.Models)
}

// GenerateBody is the parsed advice request. Fields with the wrong JSON
// type are treated as absent, matching what clients have always sent.
type GenerateBody struct {
	DocumentID     string
	Synopsis       string
	Content        string
	SelectedText   string
	PanelAProvider Provider
	PanelBProvider Provider
	Timeout        time.Duration
}

// ParseGenerateBody reads the advice request body. An empty body is {}.
func ParseGenerateBody(body []byte, defaultTimeout time.Duration) (GenerateBody, error) {
	if len(bytes.TrimSpace(body)) == 0 {
		body = []byte("{}")
	}
	var raw any
	if err := json.Unmarshal(body, &raw); err != nil {
		return GenerateBody{}, errors.BadRequest(CodeInvalidBody, err)
	}
	obj, ok := raw.(map[string]any)
	if !ok {
		return GenerateBody{}, errors.BadRequest(CodeInvalidBody, nil)
	}

	str := func(key string) string {
		s, _ := obj[key].(string)
		return s
	}
	provider := func(key string, fallback Provider) Provider {
		if p, ok := ParseProvider(str(key)); ok {
			return p
		}
		return fallback
	}

	parsed := GenerateBody{
		DocumentID:     str("documentId"),
		Synopsis:       str("synopsis"),
		Content:        str("content"),
		SelectedText:   str("selectedText"),
		PanelAProvider: provider("panelAProvider", DefaultPanelA),
		PanelBProvider: provider("panelBProvider", DefaultPanelB),
		Timeout:        defaultTimeout,
	}
	if ms, ok := obj["timeoutMs"].(float64); ok {
		parsed.Timeout = time.Duration(ms * float64(time.Millisecond))
	}
	if parsed.DocumentID == "" {
		return GenerateBody{}, errors.BadRequest(errors.CodeDocumentIDEmpty, nil)
	}
	return parsed, nil
}

func checkSizes(b GenerateBody) error {
	if utf8.RuneCountInString(b.Synopsis) > MaxSynopsisChars {
		return errors.BadRequest("SYNOPSIS_TOO_LARGE", nil)
	}
	if utf8.RuneCountInString(b.Content) > MaxContentChars {
		return errors.BadRequest("CONTENT_TOO_LARGE", nil)
	}
	if b.SelectedText != "" && utf8.RuneCountInString(b.SelectedText) > MaxSelectedTextChars {
		return errors.BadRequest("SELECTED_TEXT_TOO_LARGE", nil)
	}
	return nil
}

func (h *Handler) Generate(c *gin.Context) {
	start := time.Now()
	ctx := c.Request.Context()
	ownerID := middleware.UserID(c)

	data, err := c.GetRawData()
	if err != nil {
		c.Error(errors.BadRequest(CodeInvalidBody, err))
		return
	}
	body, err := ParseGenerateBody(data, h.defaultTimeout)
	if err != nil {
		c.Error(err)
		return
	}

	lc := logging.Context{
		Feature:    "advice",
		Operation:  "handleGenerateAdvice",
		OwnerID:    ownerID,
		DocumentID: body.DocumentID,
	}
	l := lc.Logger(ctx)

	rate, err := h.limiter.Check(ctx, ownerID)
	if err != nil {
		// limiter backend down: let the request through
		l.Warn().Str("error", h.redactor.Error(err)).Msg("ADVICE_RATE_LIMIT_UNAVAILABLE")
	} else if !rate.Allowed {
		l.Warn().Int64("retryAfterMs", rate.RetryAfterMs()).Msg(logging.AdviceRateLimited)
		c.Error(errors.TooManyRequests(CodeRateLimited, rate.RetryAfterMs()))
		return
	}

	if err := checkSizes(body); err != nil {
		c.Error(err)
		return
	}

	resp, err := h.generator.Generate(ctx, Request{
		OwnerID:      ownerID,
		DocumentID:   body.DocumentID,
		Synopsis:     body.Synopsis,
		Content:      body.Content,
		SelectedText: body.SelectedText,
		PanelA:       PanelConfig{Provider: body.PanelAProvider, Preset: DefaultPreset},
		PanelB:       PanelConfig{Provider: body.PanelBProvider, Preset: DefaultPreset},
		Timeout:      body.Timeout,
	})
	if err != nil {
		msg := h.redactor.Error(err)
		if errors.HasCode(err, "TIMEOUT") {
			l.Warn().Str("error", msg).Msg(logging.AdviceRequestTimeout)
			c.Error(errors.GatewayTimeout(CodeTimeout, err))
			return
		}
		l.Error().Str("error", msg).Msg(logging.AdviceRequestFailed)
		c.Error(errors.BadGateway(CodeProviderFailure, err))
		return
	}

	l.Info().
		Str("panelAProvider", string(body.PanelAProvider)).
		Str("panelBProvider", string(body.PanelBProvider)).
		Int64("elapsedMs", time.Since(start).Milliseconds()).
		Msg(logging.AdviceRequestSucceeded)
	c.JSON(http.StatusOK, resp)
}

type ModelDescriptor struct {
	Provider Provider `json:"provider"`
	Label    string   `json:"label"`
	Enabled  bool     `json:"enabled"`
}

// ListModels reports each provider and whether its credential is present.
func ListModels(ctx context.Context, secrets secret.Resolver) []ModelDescriptor {
	models := make([]ModelDescriptor, 0, len(Providers))
	for _, p := range Providers {
		models = append(models, ModelDescriptor{
			Provider: p,
			Label:    p.Label(),
			Enabled:  secret.Present(ctx, secrets, p.CredentialName()),
		})
	}
	return models
}

func (h *Handler) Models(c *gin.Context) {
	c.JSON(http.StatusOK, ListModels(c.Request.Context(), h.secrets))
}
