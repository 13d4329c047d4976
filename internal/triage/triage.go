// Package triage tracks the symptom-triage conversation state. The core
// never triages anything itself: all clinical routing comes from the live
// triage tool, and this package only parses that tool's structured output
// and keeps the cross-turn bookkeeping (active flag, accumulated answers,
// question count) the pinned model instruction is built from.
package triage

import (
	"encoding/json"
	"fmt"
)

// Tool is the registered name of the live triage tool.
const Tool = "nhs_111_live_triage"

// Status discriminates the triage tool's result shape.
type Status string

const (
	// StatusNeedMoreInfo means triage wants further follow-up questions.
	StatusNeedMoreInfo Status = "need_more_info"

	// StatusFinal means triage reached a routing decision.
	StatusFinal Status = "final"
)

// Convergence bounds for the pinned instruction.
const (
	// TargetFollowUps is the soft range limit communicated to the model.
	TargetFollowUps = 8

	// MaxFollowUps is the hard cap the model must never exceed.
	MaxFollowUps = 10

	// ForceDecisionAt forces a final decision once this many answers or
	// questions have accumulated.
	ForceDecisionAt = 5
)

// Result is the parsed, validated output of the triage tool. Exactly one of
// the two well-formed variants applies, discriminated by Status.
type Result struct {
	Status Status

	// NeedMoreInfo variant: incremental updates to the known answers.
	Updates map[string]any

	// Final variant.
	Severity     string
	Service      string
	Rationale    string
	PostcodeFull string
	ShouldLookup bool
}

// Parse validates a raw tool result against the two recognized shapes. It
// accepts either a decoded map or a JSON string and returns (nil, false) for
// anything else; the caller substitutes its deterministic fallback rather
// than propagating malformed data to the model.
func Parse(raw any) (*Result, bool) {
	m, ok := asMap(raw)
	if !ok {
		return nil, false
	}

	status, _ := m["status"].(string)
	switch Status(status) {
	case StatusNeedMoreInfo:
		updates, _ := asMap(m["known_answers_update"])
		return &Result{Status: StatusNeedMoreInfo, Updates: updates}, true
	case StatusFinal:
		severity, _ := m["severity_level"].(string)
		service, _ := m["suggested_service"].(string)
		rationale, _ := m["rationale"].(string)
		postcode, _ := m["postcode_full"].(string)
		lookup, _ := m["should_lookup"].(bool)
		return &Result{
			Status:       StatusFinal,
			Severity:     severity,
			Service:      service,
			Rationale:    rationale,
			PostcodeFull: postcode,
			ShouldLookup: lookup,
		}, true
	default:
		return nil, false
	}
}

// FallbackResult is the deterministic stand-in used when the triage tool
// returns a malformed shape: safe routing through NHS 111, no auto-lookup.
func FallbackResult(postcodeFull string) map[string]any {
	return map[string]any{
		"status":            string(StatusFinal),
		"severity_level":    "medium",
		"suggested_service": "NHS_111",
		"rationale":         "I could not complete live triage, so I recommend NHS 111 for safe routing.",
		"postcode_full":     postcodeFull,
		"should_lookup":     false,
	}
}

// Tracker accumulates triage state across turns of one session. It is not
// safe for concurrent use; the session serializes turns.
type Tracker struct {
	active       bool
	knownAnswers map[string]any
	questions    int
}

// NewTracker returns an idle tracker.
func NewTracker() *Tracker {
	return &Tracker{knownAnswers: map[string]any{}}
}

// Active reports whether a triage conversation is in progress.
func (t *Tracker) Active() bool { return t.active }

// KnownAnswers returns the accumulated answers map. Callers must not mutate
// the result.
func (t *Tracker) KnownAnswers() map[string]any { return t.knownAnswers }

// QuestionCount returns how many follow-ups have been asked so far.
func (t *Tracker) QuestionCount() int { return t.questions }

// Observe applies a parsed triage result to the tracker state:
// need_more_info activates triage, merges updates and counts one question;
// final deactivates and clears everything. A nil result (malformed tool
// output) leaves the state untouched.
func (t *Tracker) Observe(res *Result) {
	if res == nil {
		return
	}
	switch res.Status {
	case StatusNeedMoreInfo:
		t.active = true
		for k, v := range res.Updates {
			t.knownAnswers[k] = v
		}
		t.questions++
	case StatusFinal:
		t.Reset()
	}
}

// Reset returns the tracker to idle: inactive, empty answers, zero count.
// Called on a final result and when another flow (onboarding, profile
// emission) takes over the session.
func (t *Tracker) Reset() {
	t.active = false
	t.knownAnswers = map[string]any{}
	t.questions = 0
}

// PinnedInstruction renders the system-level instruction injected into every
// model call while triage is active. It embeds the current known answers and
// question count so the model does not repeat covered topics, and directs it
// to converge within the bounded follow-up budget.
func (t *Tracker) PinnedInstruction() string {
	known, err := json.Marshal(t.knownAnswers)
	if err != nil {
		known = []byte("{}")
	}
	return fmt.Sprintf(
		"TRIAGE MODE IS ACTIVE. "+
			"Do NOT call onboarding unless user explicitly says 'onboarding'. "+
			"Use %s with known_answers=%s. "+
			"Ask only triage follow-up questions until triage status='final'. "+
			"Do NOT repeat topics already in known_answers (e.g., severity, onset, injury/trauma, functional ability, red flags already covered). "+
			"You have already asked %d follow-ups. "+
			"Tailor follow-ups to the presenting issue, keep them concise, aim to finish within 5-%d questions, and NEVER exceed %d; "+
			"if you already have %d answers or %d questions asked, move to a final decision.",
		Tool, known, t.questions, TargetFollowUps, MaxFollowUps, ForceDecisionAt, ForceDecisionAt,
	)
}

func asMap(v any) (map[string]any, bool) {
	switch x := v.(type) {
	case map[string]any:
		return x, true
	case string:
		var m map[string]any
		if err := json.Unmarshal([]byte(x), &m); err != nil {
			return nil, false
		}
		return m, true
	default:
		return nil, false
	}
}
