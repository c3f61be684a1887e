// Package notes decodes and encodes the annotation text stored in a content
// library item's description.
//
// Two formats exist in the wild: strict JSON, written by this tool, and a
// legacy single-quoted dictionary ({'published': 'True', ...}) written by
// older automation. Both decode to the same Record.
package notes

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"maps"
	"math"
	"strings"

	"gopkg.in/yaml.v3"
)

// Annotation field names.
const (
	KeyPublished = "published"
	KeyFamily    = "family"
	KeyOSVersion = "operatingSystemVersion"
)

// ErrDecode is matched by every *DecodeError.
var ErrDecode = errors.New("malformed notes")

// DecodeError reports annotation text that could not be parsed.
type DecodeError struct {
	Reason string
	Err    error
}

func (e *DecodeError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("decode notes: %s: %v", e.Reason, e.Err)
	}
	return "decode notes: " + e.Reason
}

func (e *DecodeError) Unwrap() error { return e.Err }

// Is reports ErrDecode as a match.
func (e *DecodeError) Is(target error) bool { return target == ErrDecode }

// Record is the structured form of a template's notes.
type Record struct {
	Status    Status
	Family    string // explicit family tag; empty means "derive from name"
	OSVersion string
	// Extra holds every other field untouched so rewrites preserve it.
	// Nil when the notes carry no other fields.
	Extra map[string]any
}

// WithStatus returns a copy of r with the given status.
func (r Record) WithStatus(s Status) Record {
	out := r
	out.Status = s
	if r.Extra != nil {
		out.Extra = maps.Clone(r.Extra)
	}
	return out
}

// Decode parses annotation text in either the strict or the legacy format.
// A missing "published" field means Draft.
func Decode(raw string) (Record, error) {
	text := strings.TrimSpace(raw)
	if text == "" {
		return Record{}, &DecodeError{Reason: "empty notes"}
	}

	// JSON is a subset of YAML flow syntax, and YAML also accepts the
	// single-quoted legacy dictionaries, so one parser covers both formats
	// and yields the same value types for either.
	var fields map[string]any
	if err := yaml.Unmarshal([]byte(text), &fields); err != nil {
		return Record{}, &DecodeError{Reason: "not a mapping", Err: err}
	}
	if fields == nil {
		return Record{}, &DecodeError{Reason: "not a mapping"}
	}

	var rec Record
	if v, ok := fields[KeyPublished]; ok {
		s, err := statusFromValue(v)
		if err != nil {
			return Record{}, &DecodeError{Reason: "invalid published field", Err: err}
		}
		rec.Status = s
		delete(fields, KeyPublished)
	}
	if v, ok := fields[KeyFamily]; ok {
		rec.Family = scalarString(v)
		delete(fields, KeyFamily)
	}
	if v, ok := fields[KeyOSVersion]; ok {
		rec.OSVersion = scalarString(v)
		delete(fields, KeyOSVersion)
	}
	if len(fields) > 0 {
		extra, err := normalizeMap(fields)
		if err != nil {
			return Record{}, &DecodeError{Reason: "unsupported field value", Err: err}
		}
		rec.Extra = extra
	}
	return rec, nil
}

// Encode renders r as strict JSON with sorted keys. Extra values that JSON
// cannot represent are dropped; records returned by Decode have none.
func Encode(r Record) string {
	fields := make(map[string]any, len(r.Extra)+3)
	for k, v := range r.Extra {
		if nv, err := normalizeValue(v); err == nil {
			fields[k] = nv
		}
	}
	fields[KeyPublished] = r.Status.wireValue()
	if r.Family != "" {
		fields[KeyFamily] = r.Family
	} else {
		delete(fields, KeyFamily)
	}
	if r.OSVersion != "" {
		fields[KeyOSVersion] = r.OSVersion
	} else {
		delete(fields, KeyOSVersion)
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(fields); err != nil {
		// Unreachable after normalization; fall back to the tagged fields.
		return Encode(Record{Status: r.Status, Family: r.Family, OSVersion: r.OSVersion})
	}
	return strings.TrimSpace(buf.String())
}

// normalizeMap converts a decoded mapping into JSON-representable values.
func normalizeMap(m map[string]any) (map[string]any, error) {
	out := make(map[string]any, len(m))
	for k, v := range m {
		nv, err := normalizeValue(v)
		if err != nil {
			return nil, fmt.Errorf("field %q: %w", k, err)
		}
		out[k] = nv
	}
	return out, nil
}

// normalizeValue stringifies non-string mapping keys and rejects values
// JSON cannot carry (NaN, infinities, unknown types).
func normalizeValue(v any) (any, error) {
	switch t := v.(type) {
	case nil, string, bool, int, int64, uint64:
		return t, nil
	case float64:
		if math.IsNaN(t) || math.IsInf(t, 0) {
			return nil, fmt.Errorf("non-finite number %v", t)
		}
		return t, nil
	case map[string]any:
		return normalizeMap(t)
	case map[any]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			key, err := mapKey(k)
			if err != nil {
				return nil, err
			}
			if _, dup := out[key]; dup {
				return nil, fmt.Errorf("duplicate key %q", key)
			}
			nv, err := normalizeValue(val)
			if err != nil {
				return nil, fmt.Errorf("field %q: %w", key, err)
			}
			out[key] = nv
		}
		return out, nil
	case []any:
		out := make([]any, len(t))
		for i, val := range t {
			nv, err := normalizeValue(val)
			if err != nil {
				return nil, fmt.Errorf("item %d: %w", i, err)
			}
			out[i] = nv
		}
		return out, nil
	}
	if _, err := json.Marshal(v); err != nil {
		return nil, fmt.Errorf("unsupported value %v (%T)", v, v)
	}
	return v, nil
}

func mapKey(k any) (string, error) {
	switch t := k.(type) {
	case string:
		return t, nil
	case bool, int, int64, uint64, float64:
		return fmt.Sprint(t), nil
	case nil:
		return "", fmt.Errorf("null mapping key")
	}
	return "", fmt.Errorf("unsupported mapping key %v (%T)", k, k)
}

func statusFromValue(v any) (Status, error) {
	switch t := v.(type) {
	case bool:
		if t {
			return Published, nil
		}
		return Draft, nil
	case string:
		return parseStatus(t)
	case nil:
		return Draft, nil
	}
	return Draft, fmt.Errorf("unsupported published value %v (%T)", v, v)
}

func scalarString(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	}
	return fmt.Sprint(v)
}
