package advice

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"
)

type Provider string

const (
	OpenAI    Provider = "openai"
	Gemini    Provider = "gemini"
	Anthropic Provider = "anthropic"
)

// Providers lists every known provider in display order.
var Providers = []Provider{Gemini, OpenAI, Anthropic}

var providerInfo = map[Provider]struct {
	credential string
	label      string
}{
	OpenAI:    {credential: "OPENAI_API_KEY", label: "OpenAI"},
	Gemini:    {credential: "GEMINI_API_KEY", label: "Gemini"},
	Anthropic: {credential: "ANTHROPIC_API_KEY", label: "Anthropic"},
}

// ParseProvider returns the provider named s, if known.
func ParseProvider(s string) (Provider, bool) {
	p := Provider(s)
	_, ok := providerInfo[p]
	return p, ok
}

func (p Provider) Valid() bool {
	_, ok := providerInfo[p]
	return ok
}

// CredentialName is the variable holding the provider's API key.
func (p Provider) CredentialName() string {
	return providerInfo[p].credential
}

func (p Provider) Label() string {
	return providerInfo[p].label
}

// CredentialNames returns the credential variable names of all providers.
func CredentialNames() []string {
	names := make([]string, 0, len(Providers))
	for _, p := range Providers {
		names = append(names, p.CredentialName())
	}
	return names
}

// Prompt is what a single panel call sees.
type Prompt struct {
	Synopsis     string
	Content      string
	SelectedText string
	Preset       string
}

type PanelResponse struct {
	Provider          Provider `json:"provider"`
	StructureFeedback string   `json:"structureFeedback"`
	EmotionalFeedback string   `json:"emotionalFeedback"`
}

// Caller performs one provider call. Implementations must return promptly
// once ctx is done.
type Caller interface {
	Call(ctx context.Context, provider Provider, prompt Prompt) (PanelResponse, error)
}

// SimulatedCaller produces deterministic feedback without contacting any
// provider. Latency, when set, is waited out before answering.
type SimulatedCaller struct {
	Latency time.Duration
}

const previewChars = 120

var whitespaceRun = regexp.MustCompile(`\s+`)

func (s SimulatedCaller) Call(ctx context.Context, provider Provider, prompt Prompt) (PanelResponse, error) {
	if s.Latency > 0 {
		timer := time.NewTimer(s.Latency)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return PanelResponse{}, ctx.Err()
		case <-timer.C:
		}
	}

	scope := "full"
	source := prompt.Content
	if prompt.SelectedText != "" {
		scope = "partial"
		source = prompt.SelectedText
	}

	return PanelResponse{
		Provider: provider,
		StructureFeedback: fmt.Sprintf("[%s/%s] Consider narrative pacing and transitions. Context: %s",
			provider, scope, preview(source)),
		EmotionalFeedback: fmt.Sprintf("[%s/%s] Clarify emotional intent and character motivation. Synopsis length: %d",
			provider, scope, utf8.RuneCountInString(prompt.Synopsis)),
	}, nil
}

// preview keeps the first previewChars characters with whitespace runs
// collapsed to a single space.
func preview(s string) string {
	if utf8.RuneCountInString(s) > previewChars {
		s = string([]rune(s)[:previewChars])
	}
	return strings.TrimSpace(whitespaceRun.ReplaceAllString(s, " "))
}
