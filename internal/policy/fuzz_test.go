package policy

import (
	"testing"

	"github.com/ppiankov/safeupdate/internal/model"
)

func FuzzParseConfig(f *testing.F) {
	f.Add([]byte("only:\n  - users\n"))
	f.Add([]byte("except: [logs]\n"))
	f.Add([]byte{})
	f.Add([]byte(`{{{not yaml at all`))

	f.Fuzz(func(t *testing.T, data []byte) {
		// Must not panic on any input
		cfg, err := ParseConfig(data)
		if err != nil {
			return
		}
		cfg.Exempt("users")
		cfg.Validate()
	})
}

func FuzzEvaluateModifierKey(f *testing.F) {
	f.Add("$set", "A")
	f.Add("count", "B")
	f.Add("", "")

	cfg := &PolicyConfig{Except: []string{"A"}}
	f.Fuzz(func(t *testing.T, key, collection string) {
		req := model.UpdateRequest{
			Collection: collection,
			Selector:   model.Document{"_id": "x"},
			Modifier:   model.Document{key: 1},
		}
		result := Evaluate(req, cfg)
		wantApprove := collection == "A" || (len(key) > 0 && key[0] == '$')
		if result.Approved() != wantApprove {
			t.Fatalf("key=%q collection=%q: expected approved=%v, got %+v", key, collection, wantApprove, result)
		}
	})
}
