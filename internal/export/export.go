// Package export renders a script into the downloadable payload the editor
// saves as a .docx file.
package export

import (
	"regexp"
	"strings"

	"scenario-writing-lab/internal/errors"
)

const (
	CodeInvalidBody      = "INVALID_EXPORT_BODY"
	CodeMetadataRequired = "EXPORT_METADATA_REQUIRED"
	CodeContentRequired  = "EXPORT_CONTENT_REQUIRED"

	MimeTypeDocx = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
)

type Input struct {
	Title      string
	AuthorName string
	Content    string
}

type Payload struct {
	FileName string `json:"fileName"`
	MimeType string `json:"mimeType"`
	Content  string `json:"content"`
}

var unsafeFileChars = regexp.MustCompile(`[^a-zA-Z0-9_-]`)

// SanitizeFileName replaces every character outside [A-Za-z0-9_-] with '_'.
func SanitizeFileName(s string) string {
	return unsafeFileChars.ReplaceAllString(s, "_")
}

func (in Input) Validate() error {
	if strings.TrimSpace(in.Title) == "" || strings.TrimSpace(in.AuthorName) == "" {
		return errors.BadRequest(CodeMetadataRequired, nil)
	}
	if strings.TrimSpace(in.Content) == "" {
		return errors.BadRequest(CodeContentRequired, nil)
	}
	return nil
}

// Render validates in and builds the export payload.
func Render(in Input) (Payload, error) {
	if err := in.Validate(); err != nil {
		return Payload{}, err
	}
	return Payload{
		FileName: SanitizeFileName(in.Title) + ".docx",
		MimeType: MimeTypeDocx,
		Content:  strings.Join([]string{"# " + in.Title, "Author: " + in.AuthorName, "", in.Content}, "\n"),
	}, nil
}
