package policy

import (
	"testing"

	"github.com/ppiankov/safeupdate/internal/model"
)

func BenchmarkEvaluate_Operator(b *testing.B) {
	cfg := DefaultConfig()
	req := model.UpdateRequest{
		Collection: "counters",
		Selector:   model.Document{"_id": "counter"},
		Modifier:   model.Document{"$inc": model.Document{"count": 1}},
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		Evaluate(req, cfg)
	}
}

func BenchmarkEvaluate_Reject(b *testing.B) {
	cfg := &PolicyConfig{Except: []string{"logs", "sessions", "events"}}
	req := model.UpdateRequest{
		Collection: "counters",
		Selector:   model.Document{"_id": "counter"},
		Modifier:   model.Document{"count": 1},
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		Evaluate(req, cfg)
	}
}

func BenchmarkStoreCurrent(b *testing.B) {
	s := NewStore(&PolicyConfig{Only: []string{"users"}})

	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			s.Current()
		}
	})
}
