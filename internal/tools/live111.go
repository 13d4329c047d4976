package tools

import (
	"context"
	"strings"
)

// Follow-up topics the triage engine works through, in order. A topic is
// considered covered once a matching key appears in known_answers.
var triageTopics = []struct {
	Key      string
	Question string
}{
	{"onset", "When did this start, and has it been getting better or worse?"},
	{"severity", "How bad is it right now on a scale of mild, moderate, or severe?"},
	{"red_flags", "Any chest pain, trouble breathing, confusion, heavy bleeding, or fainting?"},
	{"functional_impact", "Is this stopping you from eating, sleeping, or moving around normally?"},
	{"history", "Do you have any existing conditions or take regular medication?"},
}

var (
	triageEmergencyMarkers = []string{
		"chest pain", "can't breathe", "cannot breathe", "struggling to breathe",
		"heavy bleeding", "bleeding heavily", "unconscious", "confusion", "fainted",
		"suicid", "overdose", "stroke", "seizure", "anaphyla",
	}
	triageSevereMarkers = []string{"severe", "worst", "unbearable", "10/10", "getting much worse"}
	triageMildMarkers   = []string{"mild", "slight", "minor", "cold", "cough", "sore throat", "hay fever", "runny nose"}
)

func liveTriageTool() *Tool {
	return &Tool{
		Name: NameLiveTriage,
		Description: "Run NHS 111 style triage on the user's presenting issue. Returns " +
			"status \"need_more_info\" with follow-up questions, or \"final\" with routing.",
		InputSchema: map[string]any{
			"presenting_issue": map[string]any{"type": "string", "description": "The symptom or concern in the user's words"},
			"postcode_full":    map[string]any{"type": "string", "description": "Full UK postcode if known"},
			"known_answers":    map[string]any{"type": "object", "description": "Answers gathered so far, keyed by topic"},
		},
		Run: LiveTriage,
	}
}

// LiveTriage is a deterministic rule engine standing in for the NHS 111
// clinical pathway. Red-flag wording routes straight to emergency care; the
// engine otherwise asks one follow-up per uncovered topic and converges to
// a routing decision once every topic is answered.
func LiveTriage(_ context.Context, args map[string]any) (any, error) {
	issue := strings.ToLower(strArg(args, "presenting_issue"))
	postcode := strArg(args, "postcode_full")
	known := mapArg(args, "known_answers")

	combined := issue
	for _, v := range known {
		if s, ok := v.(string); ok {
			combined += " " + strings.ToLower(s)
		}
	}

	if containsMarker(combined, triageEmergencyMarkers) {
		return map[string]any{
			"status":            "final",
			"severity_level":    "high",
			"suggested_service": "A&E",
			"rationale":         "The symptoms described include red-flag features that need emergency assessment.",
			"postcode_full":     postcode,
			"should_lookup":     postcode != "",
		}, nil
	}

	// Ask the next uncovered topic until all are answered. The caller's
	// pinned instruction forces convergence after 5 answers regardless.
	if next, ok := nextTriageTopic(known); ok && len(known) < 5 {
		update := map[string]any{}
		if issue != "" {
			update["presenting_issue"] = strArg(args, "presenting_issue")
		}
		return map[string]any{
			"status":               "need_more_info",
			"known_answers_update": update,
			"next_question":        next,
		}, nil
	}

	severity, service := routeByMarkers(combined)
	return map[string]any{
		"status":            "final",
		"severity_level":    severity,
		"suggested_service": service,
		"rationale":         triageRationale(service),
		"postcode_full":     postcode,
		"should_lookup":     postcode != "" && (service == "GP" || service == "A&E"),
	}, nil
}

func nextTriageTopic(known map[string]any) (string, bool) {
	for _, t := range triageTopics {
		if _, covered := known[t.Key]; !covered {
			return t.Question, true
		}
	}
	return "", false
}

func routeByMarkers(text string) (severity, service string) {
	switch {
	case containsMarker(text, triageSevereMarkers):
		return "high", "A&E"
	case containsMarker(text, triageMildMarkers):
		return "low", "Pharmacy"
	default:
		return "medium", "GP"
	}
}

func triageRationale(service string) string {
	switch service {
	case "A&E":
		return "Severity indicators suggest urgent in-person assessment."
	case "Pharmacy":
		return "The symptoms described are usually self-limiting; a pharmacist can advise on relief."
	default:
		return "The symptoms warrant a routine clinical review with a GP."
	}
}

func containsMarker(text string, markers []string) bool {
	for _, m := range markers {
		if strings.Contains(text, m) {
			return true
		}
	}
	return false
}
