package mcp

import (
	"context"
	"errors"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/ppiankov/safeupdate/internal/guard"
	"github.com/ppiankov/safeupdate/internal/model"
)

// --- Input/Output types ---

// UpdateInput defines parameters for the safeupdate_update and safeupdate_check tools.
type UpdateInput struct {
	Collection string              `json:"collection" jsonschema:"collection name"`
	Selector   map[string]any      `json:"selector,omitempty" jsonschema:"documents to match by field equality"`
	Modifier   map[string]any      `json:"modifier,omitempty" jsonschema:"$-operator patch ($set/$unset/$inc) or replacement document"`
	Options    model.UpdateOptions `json:"options,omitempty" jsonschema:"replace, upsert, allowEmptySelector, multi"`
}

func (in UpdateInput) request() model.UpdateRequest {
	return model.UpdateRequest{
		Collection: in.Collection,
		Selector:   model.Document(in.Selector),
		Modifier:   model.Document(in.Modifier),
		Options:    in.Options,
	}
}

// UpdateOutput contains the number of updated documents or rejection details.
type UpdateOutput struct {
	Updated  int64  `json:"updated"`
	Rejected bool   `json:"rejected,omitempty"`
	Code     int    `json:"code,omitempty"`
	Kind     string `json:"kind,omitempty"`
	Message  string `json:"message,omitempty"`
	Error    string `json:"error,omitempty"`
}

// CheckOutput contains the guard decision.
type CheckOutput struct {
	Decision string `json:"decision"`
	Kind     string `json:"kind,omitempty"`
	Reason   string `json:"reason,omitempty"`
	PolicyID string `json:"policy_id,omitempty"`
	Exempt   bool   `json:"exempt,omitempty"`
}

// FindInput defines parameters for the safeupdate_find tool.
type FindInput struct {
	Collection string         `json:"collection" jsonschema:"collection name"`
	Selector   map[string]any `json:"selector,omitempty" jsonschema:"documents to match by field equality"`
}

// FindOutput lists matching documents.
type FindOutput struct {
	Documents []map[string]any `json:"documents"`
	Count     int              `json:"count"`
}

// PolicyInput is empty; no parameters needed.
type PolicyInput struct{}

// PolicyOutput describes the active policy.
type PolicyOutput struct {
	Only     []string `json:"only,omitempty"`
	Except   []string `json:"except,omitempty"`
	Hash     string   `json:"hash"`
	Warnings []string `json:"warnings,omitempty"`
}

// --- Handlers ---

func (s *Server) handleUpdate(ctx context.Context, req *mcpsdk.CallToolRequest, input UpdateInput) (*mcpsdk.CallToolResult, UpdateOutput, error) {
	r := input.request()
	coll := s.guard.Wrap(r.Collection, s.db.Collection(r.Collection))

	updated, err := coll.Update(ctx, r.Selector, r.Modifier, r.Options)
	if err != nil {
		var rej *guard.RejectedError
		if errors.As(err, &rej) {
			return &mcpsdk.CallToolResult{IsError: true}, UpdateOutput{
				Rejected: true,
				Code:     rej.Code,
				Kind:     string(rej.Kind),
				Message:  rej.Message,
			}, nil
		}
		s.logger.Error("store update failed", "collection", r.Collection, "error", err)
		return &mcpsdk.CallToolResult{IsError: true}, UpdateOutput{Error: err.Error()}, nil
	}
	return nil, UpdateOutput{Updated: updated}, nil
}

func (s *Server) handleCheck(ctx context.Context, req *mcpsdk.CallToolRequest, input UpdateInput) (*mcpsdk.CallToolResult, CheckOutput, error) {
	result := s.guard.Check(input.request())
	return nil, CheckOutput{
		Decision: string(result.Decision),
		Kind:     string(result.Kind),
		Reason:   result.Reason,
		PolicyID: result.PolicyID,
		Exempt:   result.Exempt,
	}, nil
}

func (s *Server) handleFind(ctx context.Context, req *mcpsdk.CallToolRequest, input FindInput) (*mcpsdk.CallToolResult, FindOutput, error) {
	docs, err := s.db.Collection(input.Collection).Find(ctx, model.Document(input.Selector))
	if err != nil {
		return nil, FindOutput{}, err
	}
	out := FindOutput{Documents: make([]map[string]any, len(docs)), Count: len(docs)}
	for i, d := range docs {
		out.Documents[i] = map[string]any(d)
	}
	return nil, out, nil
}

func (s *Server) handlePolicy(ctx context.Context, req *mcpsdk.CallToolRequest, input PolicyInput) (*mcpsdk.CallToolResult, PolicyOutput, error) {
	cfg, hash := s.guard.Policy().Snapshot()
	return nil, PolicyOutput{
		Only:     cfg.Only,
		Except:   cfg.Except,
		Hash:     hash,
		Warnings: cfg.Validate(),
	}, nil
}
