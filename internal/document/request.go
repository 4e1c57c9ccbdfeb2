package document

import (
	"bytes"
	"encoding/json"
	"math"
	"strings"

	"scenario-writing-lab/internal/errors"

	"github.com/go-playground/validator/v10"
)

// Stable validation codes.
const (
	CodeTitleRequired        = "TITLE_REQUIRED"
	CodeAuthorNameRequired   = "AUTHOR_NAME_REQUIRED"
	CodeInvalidTitle         = "INVALID_TITLE"
	CodeInvalidAuthorName    = "INVALID_AUTHOR_NAME"
	CodeInvalidSynopsis      = "INVALID_SYNOPSIS"
	CodeInvalidContent       = "INVALID_CONTENT"
	CodeInvalidSettings      = "INVALID_SETTINGS"
	CodeInvalidLineLength    = "INVALID_LINE_LENGTH"
	CodeInvalidPageCount     = "INVALID_PAGE_COUNT"
	CodeInvalidCharacters    = "INVALID_CHARACTERS"
	CodeInvalidCharacterItem = "INVALID_CHARACTER_ITEM"
	CodeInvalidExpectedVer   = "INVALID_EXPECTED_VERSION"
	CodeInvalidBody          = "INVALID_DOCUMENT_BODY"
	CodeInvalidPatch         = "INVALID_DOCUMENT_PATCH"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	_ = v.RegisterValidation("notblank", func(fl validator.FieldLevel) bool {
		return strings.TrimSpace(fl.Field().String()) != ""
	})
	return v
}

var createFieldCodes = map[string]string{
	"Title":      CodeTitleRequired,
	"AuthorName": CodeAuthorNameRequired,
}

type object map[string]json.RawMessage

func decodeObject(raw json.RawMessage, code string) (object, error) {
	var obj object
	if err := json.Unmarshal(raw, &obj); err != nil || obj == nil {
		return nil, errors.BadRequest(code, err)
	}
	return obj, nil
}

func isNull(raw json.RawMessage) bool {
	return bytes.Equal(bytes.TrimSpace(raw), []byte("null"))
}

// optionalString returns nil when key is absent. Present values must be
// JSON strings; null is rejected like any other non-string.
func optionalString(obj object, key, code string) (*string, error) {
	raw, ok := obj[key]
	if !ok {
		return nil, nil
	}
	var s string
	if isNull(raw) {
		return nil, errors.BadRequest(code, nil)
	}
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, errors.BadRequest(code, err)
	}
	return &s, nil
}

// integer accepts JSON numbers with no fractional part.
func integer(raw json.RawMessage, code string) (int, error) {
	var f float64
	if raw == nil || isNull(raw) {
		return 0, errors.BadRequest(code, nil)
	}
	if err := json.Unmarshal(raw, &f); err != nil {
		return 0, errors.BadRequest(code, err)
	}
	if f != math.Trunc(f) || math.Abs(f) > math.MaxInt32 {
		return 0, errors.BadRequest(code, nil)
	}
	return int(f), nil
}

func positiveInt(raw json.RawMessage, code string) (int, error) {
	n, err := integer(raw, code)
	if err != nil {
		return 0, err
	}
	if err := validate.Var(n, "gt=0"); err != nil {
		return 0, errors.BadRequest(code, err)
	}
	return n, nil
}

func parseSettings(raw json.RawMessage) (Settings, error) {
	if raw == nil {
		return Settings{}, errors.BadRequest(CodeInvalidSettings, nil)
	}
	obj, err := decodeObject(raw, CodeInvalidSettings)
	if err != nil {
		return Settings{}, err
	}
	lineLength, err := positiveInt(obj["lineLength"], CodeInvalidLineLength)
	if err != nil {
		return Settings{}, err
	}
	pageCount, err := positiveInt(obj["pageCount"], CodeInvalidPageCount)
	if err != nil {
		return Settings{}, err
	}
	return Settings{LineLength: lineLength, PageCount: pageCount}, nil
}

var characterOptionalFields = []struct {
	key string
	set func(*CharacterProfile, *string)
}{
	{"age", func(c *CharacterProfile, v *string) { c.Age = v }},
	{"traits", func(c *CharacterProfile, v *string) { c.Traits = v }},
	{"background", func(c *CharacterProfile, v *string) { c.Background = v }},
	{"relationships", func(c *CharacterProfile, v *string) { c.Relationships = v }},
	{"notes", func(c *CharacterProfile, v *string) { c.Notes = v }},
}

func parseCharacter(raw json.RawMessage) (CharacterProfile, error) {
	obj, err := decodeObject(raw, CodeInvalidCharacterItem)
	if err != nil {
		return CharacterProfile{}, err
	}

	id, err := optionalString(obj, "id", "INVALID_CHARACTER_ID")
	if err != nil {
		return CharacterProfile{}, err
	}
	name, err := optionalString(obj, "name", "INVALID_CHARACTER_NAME")
	if err != nil {
		return CharacterProfile{}, err
	}

	var c CharacterProfile
	if id != nil {
		c.ID = *id
	}
	if name != nil {
		c.Name = *name
	}
	if err := validate.Struct(c); err != nil {
		return CharacterProfile{}, errors.BadRequest(CodeInvalidCharacterItem, err)
	}

	for _, f := range characterOptionalFields {
		v, err := optionalString(obj, f.key, "INVALID_CHARACTER_"+strings.ToUpper(f.key))
		if err != nil {
			return CharacterProfile{}, err
		}
		f.set(&c, v)
	}
	return c, nil
}

// parseCharacters treats an absent key as an empty list.
func parseCharacters(raw json.RawMessage) ([]CharacterProfile, error) {
	if raw == nil {
		return []CharacterProfile{}, nil
	}
	var items []json.RawMessage
	if isNull(raw) {
		return nil, errors.BadRequest(CodeInvalidCharacters, nil)
	}
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, errors.BadRequest(CodeInvalidCharacters, err)
	}

	out := make([]CharacterProfile, 0, len(items))
	for _, item := range items {
		c, err := parseCharacter(item)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// ParseCreate validates a create body. An empty body is treated as {}.
// Only title, authorName and settings are read; a new document starts with
// empty synopsis, content and characters.
func ParseCreate(body []byte) (CreateInput, error) {
	if len(bytes.TrimSpace(body)) == 0 {
		body = []byte("{}")
	}
	obj, err := decodeObject(body, CodeInvalidBody)
	if err != nil {
		return CreateInput{}, err
	}

	title, err := optionalString(obj, "title", CodeInvalidTitle)
	if err != nil {
		return CreateInput{}, err
	}
	author, err := optionalString(obj, "authorName", CodeInvalidAuthorName)
	if err != nil {
		return CreateInput{}, err
	}

	input := CreateInput{Title: deref(title), AuthorName: deref(author)}
	if err := validate.StructPartial(input, "Title", "AuthorName"); err != nil {
		return CreateInput{}, errors.BadRequest(firstFieldCode(err, createFieldCodes, CodeInvalidBody), err)
	}

	if input.Settings, err = parseSettings(obj["settings"]); err != nil {
		return CreateInput{}, err
	}
	return input, nil
}

// ParsePatch validates a partial update. Unknown keys are ignored.
func ParsePatch(body []byte) (Patch, error) {
	if len(bytes.TrimSpace(body)) == 0 {
		body = []byte("{}")
	}
	obj, err := decodeObject(body, CodeInvalidPatch)
	if err != nil {
		return Patch{}, err
	}

	var p Patch
	for _, f := range []struct {
		key  string
		code string
		dst  **string
	}{
		{"title", CodeInvalidTitle, &p.Title},
		{"authorName", CodeInvalidAuthorName, &p.AuthorName},
		{"synopsis", CodeInvalidSynopsis, &p.Synopsis},
		{"content", CodeInvalidContent, &p.Content},
	} {
		if *f.dst, err = optionalString(obj, f.key, f.code); err != nil {
			return Patch{}, err
		}
	}

	if raw, ok := obj["settings"]; ok {
		settings, err := parseSettings(raw)
		if err != nil {
			return Patch{}, err
		}
		p.Settings = &settings
	}
	if raw, ok := obj["characters"]; ok {
		chars, err := parseCharacters(raw)
		if err != nil {
			return Patch{}, err
		}
		p.Characters = &chars
	}
	if raw, ok := obj["expectedVersion"]; ok {
		v, err := positiveInt(raw, CodeInvalidExpectedVer)
		if err != nil {
			return Patch{}, err
		}
		p.ExpectedVersion = &v
	}
	return p, nil
}

func firstFieldCode(err error, codes map[string]string, fallback string) string {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		if code, ok := codes[verrs[0].StructField()]; ok {
			return code
		}
	}
	return fallback
}
