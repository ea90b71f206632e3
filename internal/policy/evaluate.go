package policy

import (
	"github.com/ppiankov/safeupdate/internal/model"
)

// Rejection messages returned to callers.
const (
	EmptySelectorMessage      = "Selector is empty. To use an empty selector, pass {allowEmptySelector: true} in the update options."
	NoModifierOperatorMessage = "Modifier does not contain any $-operators. To replace the document, pass {replace: true} in the update options."
)

// Policy IDs identifying which step produced a decision.
const (
	IDEmptySelector  = "selector.empty"
	IDNoOperator     = "modifier.no_operator"
	IDModifierAbsent = "modifier.absent"
	IDReplace        = "modifier.replace"
	IDExempt         = "collection.exempt"
	IDOperator       = "modifier.operator"
)

// Evaluate decides whether req may be forwarded to the store.
//
// Evaluation order (must not be changed):
//  1. Empty selector, unless allowEmptySelector or upsert
//  2. Modifier shape: absent, replace, exempt collection, or a $-operator key
//
// cfg is the single policy snapshot used for the whole decision.
func Evaluate(req model.UpdateRequest, cfg *PolicyConfig) model.GuardResult {
	opts := req.Options

	allowEmpty := opts.AllowEmptySelector || opts.Upsert
	if !allowEmpty && len(req.Selector) == 0 {
		return reject(model.KindEmptySelector, EmptySelectorMessage, IDEmptySelector)
	}

	exempt := cfg.Exempt(req.Collection)

	switch {
	case req.Modifier == nil:
		return approve(IDModifierAbsent, exempt)
	case opts.Replace:
		return approve(IDReplace, exempt)
	case exempt:
		return approve(IDExempt, exempt)
	case req.Modifier.HasOperator():
		return approve(IDOperator, exempt)
	}

	return reject(model.KindNoModifierOperator, NoModifierOperatorMessage, IDNoOperator)
}

func approve(policyID string, exempt bool) model.GuardResult {
	return model.GuardResult{
		Decision: model.Approve,
		PolicyID: policyID,
		Exempt:   exempt,
	}
}

func reject(kind model.RejectKind, reason, policyID string) model.GuardResult {
	return model.GuardResult{
		Decision: model.Reject,
		Kind:     kind,
		Code:     model.RejectCode,
		Reason:   reason,
		PolicyID: policyID,
	}
}
