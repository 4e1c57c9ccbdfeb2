package advice

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSimulatedCaller_FullScope(t *testing.T) {
	resp, err := SimulatedCaller{}.Call(context.Background(), Gemini, Prompt{
		Synopsis: "A lighthouse keeper",
		Content:  "INT.  LIGHTHOUSE\n\n\tNIGHT ",
	})

	require.NoError(t, err)
	assert.Equal(t, Gemini, resp.Provider)
	assert.Equal(t, "[gemini/full] Consider narrative pacing and transitions. Context: INT. LIGHTHOUSE NIGHT", resp.StructureFeedback)
	assert.Equal(t, "[gemini/full] Clarify emotional intent and character motivation. Synopsis length: 19", resp.EmotionalFeedback)
}

func TestSimulatedCaller_PartialScope(t *testing.T) {
	resp, err := SimulatedCaller{}.Call(context.Background(), OpenAI, Prompt{
		Content:      "whole scene",
		SelectedText: "just this line",
	})

	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(resp.StructureFeedback, "[openai/partial]"))
	assert.True(t, strings.HasSuffix(resp.StructureFeedback, "Context: just this line"))
	assert.True(t, strings.HasSuffix(resp.EmotionalFeedback, "Synopsis length: 0"))
}

func TestPreview_TruncatesBeforeCollapsing(t *testing.T) {
	long := strings.Repeat("가", 119) + "   tail"

	assert.Equal(t, strings.Repeat("가", 119), preview(long))
	assert.Equal(t, "a b", preview("  a \n\n b  "))
}

func TestSimulatedCaller_LatencyHonoursContext(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err := SimulatedCaller{Latency: time.Minute}.Call(ctx, Anthropic, Prompt{Content: "x"})

	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), time.Second)
}

func TestProviders(t *testing.T) {
	p, ok := ParseProvider("anthropic")
	assert.True(t, ok)
	assert.Equal(t, "ANTHROPIC_API_KEY", p.CredentialName())
	assert.Equal(t, "Anthropic", p.Label())

	_, ok = ParseProvider("mistral")
	assert.False(t, ok)
	assert.Equal(t, []string{"GEMINI_API_KEY", "OPENAI_API_KEY", "ANTHROPIC_API_KEY"}, CredentialNames())
}
