// Package onboarding implements the fixed-question intake flow that builds
// the initial user profile. The flow is a deterministic short-circuit: while
// it is active the model is never consulted, and completion emits the
// profile inside a <USER_PROFILE> tag so the caller's finalization step can
// detect and persist it.
package onboarding

import (
	"strings"

	"github.com/evihealth/evi/internal/catalog"
	"github.com/evihealth/evi/internal/profile"
)

// CompletionNote opens the finalization reply.
const CompletionNote = "Onboarding is complete. I have saved these details for future chats."

// RestartHint is returned when the flow is consulted without loaded
// questions, which can only happen on a programming error.
const RestartHint = "I hit a snag loading the onboarding questions. Please say 'onboarding' to restart."

// Flow walks the fixed question list one answer per turn. It is not safe
// for concurrent use; the session serializes turns.
type Flow struct {
	questions  []catalog.Question
	idx        int
	answers    map[string]any
	active     bool
	expecting  bool
	reprompted bool
}

// New creates an idle flow over the given question list.
func New(questions []catalog.Question) *Flow {
	return &Flow{questions: questions, answers: map[string]any{}}
}

// Start resets the flow to question zero with an empty answer map and marks
// it active. Any in-flight state from a previous run is discarded.
func (f *Flow) Start() {
	f.idx = 0
	f.answers = map[string]any{}
	f.active = true
	f.expecting = false
	f.reprompted = false
}

// Active reports whether the flow is collecting answers.
func (f *Flow) Active() bool { return f.active }

// Deactivate marks the flow idle. Called by the session once the emitted
// profile has been persisted.
func (f *Flow) Deactivate() { f.active = false }

// Expecting reports whether the current question has been asked and an
// answer is awaited.
func (f *Flow) Expecting() bool { return f.expecting }

// Index returns the current question index.
func (f *Flow) Index() int { return f.idx }

// Current returns the question at the current index, or false when the flow
// is past the end.
func (f *Flow) Current() (catalog.Question, bool) {
	if f.idx >= len(f.questions) {
		return catalog.Question{}, false
	}
	return f.questions[f.idx], true
}

// PromptNext surfaces the current question's text and marks an answer as
// expected. When no question remains it finalizes instead.
func (f *Flow) PromptNext() string {
	q, ok := f.Current()
	if !ok {
		return f.Finalize()
	}
	f.expecting = true
	f.reprompted = false
	return strings.TrimSpace(q.Text)
}

// Submit normalizes and records one answer, then returns the next prompt or
// the finalization reply.
//
// Normalization: the input is trimmed. A first empty submission re-asks the
// same question once; a second consecutive empty submission counts as an
// explicit skip. Skip synonyms always skip, regardless of reprompt state. A
// question-level validator may reject a non-empty answer with a hint; the
// hint re-asks without consuming the reprompt-once allowance. Everything
// else is stored verbatim (trimmed).
func (f *Flow) Submit(raw string) string {
	if len(f.questions) == 0 {
		return RestartHint
	}
	q, ok := f.Current()
	if !ok {
		return f.Finalize()
	}

	text := strings.TrimSpace(raw)
	switch {
	case text == "" && !f.reprompted:
		f.reprompted = true
		f.expecting = true
		return "I did not catch that. " + strings.TrimSpace(q.Text)
	case text == "":
		// Second consecutive empty submission: explicit skip.
		f.store(q.Key, nil)
	case catalog.IsSkip(text):
		f.store(q.Key, nil)
	default:
		if q.Validate != nil {
			if hint := q.Validate(text); hint != "" {
				f.expecting = true
				return hint + " " + strings.TrimSpace(q.Text)
			}
		}
		f.store(q.Key, text)
	}

	if _, ok := f.Current(); ok {
		return f.PromptNext()
	}
	return f.Finalize()
}

// store commits an accepted answer and advances. State only changes here,
// after the submission is known-valid.
func (f *Flow) store(key string, value any) {
	f.answers[key] = value
	f.idx++
	f.expecting = false
	f.reprompted = false
}

// Finalize builds the profile from every question key (absent answers stay
// nil), merges the derived postcode fields, and returns the tagged profile
// followed by the completion note and the eligibility narrative.
func (f *Flow) Finalize() string {
	p := profile.Profile{}
	for _, q := range f.questions {
		p[q.Key] = f.answers[q.Key]
	}
	profile.MergePostcode(p)

	summary := CompletionNote
	if narrative := EligibilitySummary(p); narrative != "" {
		summary += "\n\n" + narrative
	}
	return profile.WrapTag(p) + "\n" + summary
}

// Keyword sets for the deterministic eligibility narrative.
var (
	longStayKeywords = []string{"year", "yr", "6", "twelve", "12", "long", "permanent", "settled"}
	ukStatusKeywords = []string{"student", "work", "skilled", "settled", "ilr", "british", "uk"}
)

// EligibilitySummary derives the likely-eligibility narrative from stored
// onboarding answers. Pure function of the profile; output is a fixed-order
// list of non-empty lines.
func EligibilitySummary(p profile.Profile) string {
	stay := strings.ToLower(profile.Str(p, "stay_length"))
	visa := strings.ToLower(profile.Str(p, "visa_status"))
	postcodeFull := profile.Str(p, "postcode_full")
	postcodeArea := profile.Str(p, "postcode_area")
	gpRegistered := strings.ToLower(profile.Str(p, "gp_registered"))

	longStay := containsAny(stay, longStayKeywords)
	hasUKStatus := containsAny(visa, ukStatusKeywords)

	gpLine := "Short-term visitors may be asked about stay length for GP registration; urgent/111/A&E remain available."
	if longStay || hasUKStatus {
		gpLine = "Likely eligible to register with a GP (typical for stays 6+ months). " +
			"Use your UK address and bring ID/proof of address if asked."
	}

	lines := []string{
		"Based on your details, here are likely options:",
		"- " + gpLine,
		"- Urgent and emergency care (NHS 111, A&E) are available regardless of GP registration.",
		"- Some services may have charges depending on visa/immigration status. " +
			"If unsure, check NHS charging guidance or ask your university support team.",
	}
	if strings.Contains(gpRegistered, "yes") {
		lines = append(lines, "- You already have a GP registered.")
	}
	switch {
	case postcodeFull != "":
		lines = append(lines, "- Postcode on file: "+postcodeFull)
	case postcodeArea != "":
		lines = append(lines, "- Area on file: "+postcodeArea)
	}
	lines = append(lines, "If you'd like, I can look up nearby GP practices or urgent care options.")

	return strings.Join(lines, "\n")
}

func containsAny(s string, keywords []string) bool {
	for _, k := range keywords {
		if strings.Contains(s, k) {
			return true
		}
	}
	return false
}
