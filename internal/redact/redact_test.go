package redact

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

var names = []string{"OPENAI_API_KEY", "GEMINI_API_KEY", "ANTHROPIC_API_KEY"}

func TestMessage_RedactsCredentialNamesAndBearer(t *testing.T) {
	r := New(names...)

	out := r.Message("missing OPENAI_API_KEY and Bearer supersecrettoken")

	assert.NotContains(t, out, "OPENAI_API_KEY")
	assert.NotContains(t, out, "supersecrettoken")
	assert.Equal(t, "missing [REDACTED] and [REDACTED]", out)
}

func TestMessage_CaseInsensitive(t *testing.T) {
	r := New(names...)

	out := r.Message("gemini_api_key unset; bearer abc.def-ghi_1")

	assert.Equal(t, "[REDACTED] unset; [REDACTED]", out)
}

func TestMessage_LeavesUnrelatedTextAlone(t *testing.T) {
	r := New(names...)

	in := "PROVIDER_TIMEOUT after 8000ms for document doc_1234abcd"
	assert.Equal(t, in, r.Message(in))
}

func TestMessage_AllOccurrences(t *testing.T) {
	r := New(names...)

	out := r.Message("ANTHROPIC_API_KEY, ANTHROPIC_API_KEY and OPENAI_API_KEY")

	assert.Equal(t, "[REDACTED], [REDACTED] and [REDACTED]", out)
}

func TestError_NilSafe(t *testing.T) {
	r := New()
	assert.Equal(t, "", r.Error(nil))
	assert.Equal(t, "token [REDACTED]", r.Error(errors.New("token Bearer xyz")))
}
