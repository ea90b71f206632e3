package docstore

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/ppiankov/safeupdate/internal/model"
)

// ErrUnsupportedOperator is returned for $-operators the store does not
// implement, in modifiers and selectors alike.
var ErrUnsupportedOperator = errors.New("docstore: unsupported operator")

func validateModifier(mod model.Document) error {
	if !mod.HasOperator() {
		return nil
	}
	for _, k := range mod.Keys() {
		switch k {
		case "$set", "$unset", "$inc":
		default:
			if strings.HasPrefix(k, "$") {
				return fmt.Errorf("%w: %s", ErrUnsupportedOperator, k)
			}
			return fmt.Errorf("cannot mix operators and plain field %q", k)
		}
		if _, ok := asDocument(mod[k]); !ok {
			return fmt.Errorf("%s expects an object, got %T", k, mod[k])
		}
	}
	return nil
}

// apply returns the result of applying mod to doc. doc is not modified.
func apply(doc, mod model.Document) (model.Document, error) {
	if !mod.HasOperator() {
		return replace(doc, mod)
	}

	out := doc.Clone()
	if out == nil {
		out = model.Document{}
	}
	for _, op := range mod.Keys() {
		fields, _ := asDocument(mod[op])
		for _, path := range fields.Keys() {
			if path == IDField {
				return nil, fmt.Errorf("%s cannot modify %s", op, IDField)
			}
			var err error
			switch op {
			case "$set":
				err = setPath(out, path, cloneAny(fields[path]))
			case "$unset":
				unsetPath(out, path)
			case "$inc":
				err = incPath(out, path, fields[path])
			}
			if err != nil {
				return nil, fmt.Errorf("%s %s: %w", op, path, err)
			}
		}
	}
	return out, nil
}

func replace(doc, mod model.Document) (model.Document, error) {
	out := mod.Clone()
	if id, ok := doc[IDField]; ok {
		if newID, has := out[IDField]; has && !sameValue(newID, id) {
			return nil, fmt.Errorf("replacement cannot change %s", IDField)
		}
		out[IDField] = id
	}
	return out, nil
}

func setPath(doc model.Document, path string, value any) error {
	parts := strings.Split(path, ".")
	cur := doc
	for _, p := range parts[:len(parts)-1] {
		next, ok := cur[p]
		if !ok || next == nil {
			child := model.Document{}
			cur[p] = child
			cur = child
			continue
		}
		child, ok := asDocument(next)
		if !ok {
			return fmt.Errorf("field %q is not an object", p)
		}
		cur[p] = child
		cur = child
	}
	cur[parts[len(parts)-1]] = value
	return nil
}

func unsetPath(doc model.Document, path string) {
	parts := strings.Split(path, ".")
	cur := doc
	for _, p := range parts[:len(parts)-1] {
		child, ok := asDocument(cur[p])
		if !ok {
			return
		}
		cur = child
	}
	delete(cur, parts[len(parts)-1])
}

func incPath(doc model.Document, path string, by any) error {
	delta, ok := toFloat(by)
	if !ok {
		return fmt.Errorf("increment must be numeric, got %T", by)
	}
	current := 0.0
	if v, found := getPath(doc, path); found && v != nil {
		current, ok = toFloat(v)
		if !ok {
			return fmt.Errorf("cannot increment non-numeric value %T", v)
		}
	}
	return setPath(doc, path, current+delta)
}

func getPath(doc model.Document, path string) (any, bool) {
	parts := strings.Split(path, ".")
	cur := doc
	for _, p := range parts[:len(parts)-1] {
		child, ok := asDocument(cur[p])
		if !ok {
			return nil, false
		}
		cur = child
	}
	v, ok := cur[parts[len(parts)-1]]
	return v, ok
}

func asDocument(v any) (model.Document, bool) {
	switch t := v.(type) {
	case model.Document:
		return t, true
	case map[string]any:
		return model.Document(t), true
	}
	return nil, false
}

func cloneAny(v any) any {
	return model.Document{"v": v}.Clone()["v"]
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	}
	return 0, false
}
