package docstore

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/ppiankov/safeupdate/internal/model"
)

// matches reports whether doc satisfies selector. Selectors are conjunctions
// of top-level (or dotted) field equality; values compare by their JSON form,
// so 1 and 1.0 are equal. Callers run validateSelector first.
func matches(doc, selector model.Document) bool {
	for k, want := range selector {
		got, ok := getPath(doc, k)
		if !ok {
			if want == nil {
				continue
			}
			return false
		}
		if !sameValue(got, want) {
			return false
		}
	}
	return true
}

// validateSelector refuses $-prefixed keys. Selectors match by field equality only.
func validateSelector(selector model.Document) error {
	for _, k := range selector.Keys() {
		if len(k) > 0 && k[0] == '$' {
			return fmt.Errorf("%w: %s in selector", ErrUnsupportedOperator, k)
		}
	}
	return nil
}

func sameValue(a, b any) bool {
	ja, errA := json.Marshal(a)
	jb, errB := json.Marshal(b)
	if errA != nil || errB != nil {
		return false
	}
	return bytes.Equal(ja, jb)
}
