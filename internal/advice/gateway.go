package advice

import (
	"context"
	defError "errors"
	"time"

	"scenario-writing-lab/internal/errors"
	"scenario-writing-lab/internal/logging"
	"scenario-writing-lab/internal/redact"
	"scenario-writing-lab/internal/secret"

	"golang.org/x/sync/errgroup"
)

const (
	CodeOwnerOrDocumentMissing = "OWNER_OR_DOCUMENT_MISSING"
	CodeContextRequired        = "CONTEXT_REQUIRED"
	CodeInvalidTimeoutRange    = "INVALID_TIMEOUT_RANGE"
	CodeProviderKeyMissing     = "PROVIDER_KEY_MISSING"
	CodeUnknownProvider        = "UNKNOWN_PROVIDER"
	CodeProviderTimeout        = "PROVIDER_TIMEOUT"

	MinTimeout    = time.Second
	MaxTimeout    = 30 * time.Second
	DefaultPreset = "standard"
)

type PanelConfig struct {
	Provider Provider
	Preset   string
}

type Request struct {
	OwnerID      string
	DocumentID   string
	Synopsis     string
	Content      string
	SelectedText string
	PanelA       PanelConfig
	PanelB       PanelConfig
	Timeout      time.Duration
}

type Response struct {
	PanelA PanelResponse `json:"panelA"`
	PanelB PanelResponse `json:"panelB"`
}

// Generator produces dual-panel advice.
type Generator interface {
	Generate(ctx context.Context, req Request) (*Response, error)
}

// Gateway validates a request, checks that both panels have credentials and
// runs the two provider calls concurrently under one deadline.
type Gateway struct {
	secrets  secret.Resolver
	caller   Caller
	redactor *redact.Redactor
}

func NewGateway(secrets secret.Resolver, caller Caller, redactor *redact.Redactor) *Gateway {
	return &Gateway{secrets: secrets, caller: caller, redactor: redactor}
}

func validateRequest(req Request) error {
	if req.OwnerID == "" || req.DocumentID == "" {
		return errors.Code(CodeOwnerOrDocumentMissing)
	}
	if req.Synopsis == "" && req.Content == "" {
		return errors.Code(CodeContextRequired)
	}
	if req.Timeout < MinTimeout || req.Timeout > MaxTimeout {
		return errors.Code(CodeInvalidTimeoutRange)
	}
	return nil
}

func (g *Gateway) Generate(ctx context.Context, req Request) (*Response, error) {
	if err := validateRequest(req); err != nil {
		return nil, err
	}

	lc := logging.Context{
		Feature:    "advice",
		Operation:  "generateDualAdvice",
		OwnerID:    req.OwnerID,
		DocumentID: req.DocumentID,
	}
	l := lc.Logger(ctx)

	resp, err := g.generate(ctx, req)
	if err != nil {
		l.Error().Str("error", g.redactor.Error(err)).Msg(logging.AdviceGenerationFailed)
		return nil, err
	}

	l.Info().
		Str("panelAProvider", string(req.PanelA.Provider)).
		Str("panelBProvider", string(req.PanelB.Provider)).
		Bool("selectedText", req.SelectedText != "").
		Msg(logging.AdviceGenerated)
	return resp, nil
}

func (g *Gateway) generate(ctx context.Context, req Request) (*Response, error) {
	panels := []PanelConfig{req.PanelA, req.PanelB}
	for _, panel := range panels {
		if !panel.Provider.Valid() {
			return nil, errors.Code(CodeUnknownProvider + ":" + string(panel.Provider))
		}
	}
	// both credentials are required before either call starts
	for _, panel := range panels {
		name := panel.Provider.CredentialName()
		if !secret.Present(ctx, g.secrets, name) {
			return nil, errors.Code(CodeProviderKeyMissing + ":" + name)
		}
	}

	ctx, cancel := context.WithTimeout(ctx, req.Timeout)
	defer cancel()

	var resp Response
	group, gctx := errgroup.WithContext(ctx)
	group.Go(func() error {
		r, err := g.call(gctx, req.PanelA.Provider, promptFor(req, req.PanelA))
		resp.PanelA = r
		return err
	})
	group.Go(func() error {
		r, err := g.call(gctx, req.PanelB.Provider, promptFor(req, req.PanelB))
		resp.PanelB = r
		return err
	})

	err := group.Wait()
	if defError.Is(err, context.DeadlineExceeded) || defError.Is(ctx.Err(), context.DeadlineExceeded) {
		return nil, errors.Code(CodeProviderTimeout)
	}
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

type callResult struct {
	resp PanelResponse
	err  error
}

// call returns when the caller answers or ctx is done, whichever comes first.
// A late answer is dropped.
func (g *Gateway) call(ctx context.Context, provider Provider, prompt Prompt) (PanelResponse, error) {
	done := make(chan callResult, 1)
	go func() {
		r, err := g.caller.Call(ctx, provider, prompt)
		done <- callResult{resp: r, err: err}
	}()

	select {
	case res := <-done:
		return res.resp, res.err
	case <-ctx.Done():
		return PanelResponse{}, ctx.Err()
	}
}

func promptFor(req Request, panel PanelConfig) Prompt {
	preset := panel.Preset
	if preset == "" {
		preset = DefaultPreset
	}
	return Prompt{
		Synopsis:     req.Synopsis,
		Content:      req.Content,
		SelectedText: req.SelectedText,
		Preset:       preset,
	}
}
