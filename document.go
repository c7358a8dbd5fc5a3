package authsync

import (
	"strings"

	goerrors "github.com/goliatone/go-errors"
)

// ErrDocumentNotFound is returned by DocumentStore.Update when the target
// document does not exist.
var ErrDocumentNotFound = goerrors.New("document not found", goerrors.CategoryNotFound).
	WithTextCode("DOCUMENT_NOT_FOUND").
	WithCode(goerrors.CodeNotFound)

// Document is a schemaless record. Values are JSON compatible: strings,
// bools, numbers, nested maps and slices.
type Document map[string]any

// Clone returns a deep copy of d.
func (d Document) Clone() Document {
	if d == nil {
		return nil
	}
	out := make(Document, len(d))
	for k, v := range d {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v any) any {
	switch t := v.(type) {
	case Document:
		return t.Clone()
	case map[string]any:
		return map[string]any(Document(t).Clone())
	case []any:
		out := make([]any, len(t))
		for i := range t {
			out[i] = cloneValue(t[i])
		}
		return out
	default:
		return v
	}
}

// Merge applies fields on top of d and returns the result. d is not mutated.
// Keys containing dots address nested maps ("settings.timezone"), missing
// intermediate maps are created. Plain keys replace the whole value.
func (d Document) Merge(fields Document) Document {
	out := d.Clone()
	if out == nil {
		out = Document{}
	}
	for key, value := range fields {
		if !strings.Contains(key, ".") {
			out[key] = cloneValue(value)
			continue
		}
		setPath(out, strings.Split(key, "."), cloneValue(value))
	}
	return out
}

func setPath(m map[string]any, path []string, value any) {
	for i, part := range path {
		if i == len(path)-1 {
			m[part] = value
			return
		}
		next, ok := asMap(m[part])
		if !ok {
			next = map[string]any{}
		}
		m[part] = next
		m = next
	}
}

func asMap(v any) (map[string]any, bool) {
	switch t := v.(type) {
	case map[string]any:
		return t, true
	case Document:
		return map[string]any(t), true
	default:
		return nil, false
	}
}

// IsDocumentNotFound reports whether err is a missing document error.
func IsDocumentNotFound(err error) bool {
	return HasTextCode(err, ErrDocumentNotFound.TextCode)
}
