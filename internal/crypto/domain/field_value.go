package domain

import (
	"encoding/json"

	"github.com/finsec/keyguard/internal/errors"
)

// FieldKind discriminates the closed set of field value representations.
type FieldKind string

const (
	// FieldKindString is a raw string stored without further encoding.
	FieldKindString FieldKind = "string"
	// FieldKindJSON is any non-string value, stored as its JSON encoding.
	FieldKindJSON FieldKind = "json"
)

// FieldValue is the tagged variant carried through field-level encryption.
//
// Strings pass through as-is; every other value is JSON-encoded before
// encryption and JSON-decoded after decryption. Keeping the two cases in one
// closed type lets typed and untyped callers share a single code path without
// runtime type inspection.
type FieldValue struct {
	Kind FieldKind
	Str  string
	JSON json.RawMessage
}

// NewStringFieldValue builds a FieldValue that passes the string through as-is.
func NewStringFieldValue(s string) FieldValue {
	return FieldValue{Kind: FieldKindString, Str: s}
}

// NewJSONFieldValue builds a FieldValue from any JSON-encodable value.
func NewJSONFieldValue(v any) (FieldValue, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return FieldValue{}, errors.Wrap(errors.ErrInvalidInput, "value is not json-encodable")
	}
	return FieldValue{Kind: FieldKindJSON, JSON: raw}, nil
}

// Bytes returns the plaintext representation that gets encrypted.
func (f FieldValue) Bytes() []byte {
	if f.Kind == FieldKindString {
		return []byte(f.Str)
	}
	return []byte(f.JSON)
}

// DecodeFieldValue reconstructs a FieldValue from decrypted plaintext and the
// kind recorded in the field envelope at encryption time. The plaintext bytes
// are never inspected to infer the kind: a string field holding JSON-looking
// text (digits, "true", a quoted value) must come back as exactly that string.
func DecodeFieldValue(kind FieldKind, plaintext []byte) FieldValue {
	if kind == FieldKindJSON {
		return FieldValue{Kind: FieldKindJSON, JSON: append(json.RawMessage(nil), plaintext...)}
	}
	return FieldValue{Kind: FieldKindString, Str: string(plaintext)}
}

// Unmarshal decodes a JSON field value into target. String field values are
// returned through target when it is a *string.
func (f FieldValue) Unmarshal(target any) error {
	if f.Kind == FieldKindString {
		if s, ok := target.(*string); ok {
			*s = f.Str
			return nil
		}
		return errors.Wrap(errors.ErrInvalidInput, "string field value requires *string target")
	}
	if err := json.Unmarshal(f.JSON, target); err != nil {
		return errors.Wrap(errors.ErrInvalidInput, "failed to decode json field value")
	}
	return nil
}
