// Package redact strips credential-like substrings from error messages
// before they are logged or returned to a client.
package redact

import (
	"regexp"
)

const Placeholder = "[REDACTED]"

var bearerPattern = regexp.MustCompile(`(?i)Bearer\s+[A-Za-z0-9_.\-]+`)

// Redactor replaces credential variable names and bearer tokens with Placeholder.
type Redactor struct {
	patterns []*regexp.Regexp
}

// New builds a Redactor for the given credential variable names. Bearer
// tokens are always redacted.
func New(credentialNames ...string) *Redactor {
	patterns := make([]*regexp.Regexp, 0, len(credentialNames)+1)
	for _, name := range credentialNames {
		if name == "" {
			continue
		}
		patterns = append(patterns, regexp.MustCompile(`(?i)`+regexp.QuoteMeta(name)))
	}
	patterns = append(patterns, bearerPattern)
	return &Redactor{patterns: patterns}
}

// Message returns msg with every sensitive match replaced.
func (r *Redactor) Message(msg string) string {
	if r == nil {
		return bearerPattern.ReplaceAllString(msg, Placeholder)
	}
	for _, p := range r.patterns {
		msg = p.ReplaceAllString(msg, Placeholder)
	}
	return msg
}

// Error is a nil-safe shortcut for Message(err.Error()).
func (r *Redactor) Error(err error) string {
	if err == nil {
		return ""
	}
	return r.Message(err.Error())
}
