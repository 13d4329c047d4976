// Package catalog holds the static configuration data the session core runs
// on: the onboarding question list, the curated link catalogue, and the
// phrase sets used for routing heuristics.
//
// Everything here is immutable after process start. Components receive the
// catalogue by reference through their constructors; nothing mutates it at
// runtime.
package catalog

import "strings"

// Question is a single onboarding question. Key is unique and never reused;
// question order is fixed by the Questions slice.
type Question struct {
	Key      string
	Text     string
	Optional bool

	// Validate, when non-nil, checks a non-empty trimmed answer and returns
	// a re-prompt hint if the answer is unacceptable ("" accepts). Skip
	// synonyms bypass validation.
	Validate func(answer string) string
}

// Link is one entry of the curated link catalogue.
type Link struct {
	Title string   `json:"title"`
	URL   string   `json:"url"`
	Tags  []string `json:"-"`
}

// yesNo accepts answers that contain a clear yes or no.
func yesNo(answer string) string {
	lowered := strings.ToLower(answer)
	if strings.Contains(lowered, "yes") || strings.Contains(lowered, "no") {
		return ""
	}
	return "Please answer yes or no."
}

// Questions is the fixed onboarding sequence. Index order is the ask order.
var Questions = []Question{
	{Key: "name", Text: "What's your name? (optional - you can say 'skip')", Optional: true},
	{Key: "age_range", Text: "What's your age range?"},
	{Key: "stay_length", Text: "How long will you stay in the UK?"},
	{Key: "postcode", Text: "What's your London postcode / area?"},
	{Key: "visa_status", Text: "Do you hold a UK visa/status (e.g., student, work, settled, visitor)?"},
	{Key: "gp_registered", Text: "Do you already have a registered GP in the UK?", Validate: yesNo},
	{Key: "conditions", Text: "Any long-term health conditions you'd like me to be aware of? (optional - say 'skip')", Optional: true},
	{Key: "medications", Text: "Do you take any regular medications or receive ongoing treatment? (optional - say 'skip')", Optional: true},
	{Key: "lifestyle_focus", Text: "Is there any lifestyle area you want to improve while in the UK?"},
	{Key: "mental_wellbeing", Text: "How has your mental wellbeing been recently? (optional - say 'skip')", Optional: true},
}

// Links is the curated catalogue. Selection preserves this order.
var Links = []Link{
	{Title: "Find a GP", URL: "https://www.nhs.uk/service-search/find-a-gp", Tags: []string{"gp", "register"}},
	{Title: "Register with a GP", URL: "https://www.nhs.uk/nhs-services/gps/how-to-register-with-a-gp-surgery/", Tags: []string{"gp", "register"}},
	{Title: "Use NHS 111 online", URL: "https://111.nhs.uk/", Tags: []string{"111", "urgent", "triage"}},
	{Title: "NHS services guide", URL: "https://www.nhs.uk/using-the-nhs/nhs-services/", Tags: []string{"nhs", "services", "eligibility"}},
	{Title: "LBS health and wellbeing", URL: "https://www.london.edu/masters-experience/student-support", Tags: []string{"lbs", "wellbeing"}},
	{Title: "LBS mental wellbeing support", URL: "https://www.london.edu/masters-experience/student-support/mental-health", Tags: []string{"mental", "wellbeing", "lbs"}},
}

// GenericLinks is the fallback pair attached when tags matched an action but
// no catalogue entry intersected.
var GenericLinks = []Link{
	{Title: "NHS services guide", URL: "https://www.nhs.uk/using-the-nhs/nhs-services/"},
	{Title: "LBS health and wellbeing", URL: "https://www.london.edu/masters-experience/student-support"},
}

// OnboardingTriggers are the phrases that start the onboarding flow.
// Matched by substring against the lowercased user input.
var OnboardingTriggers = []string{
	"onboarding",
	"on board me",
	"onboard me",
	"set up my profile",
	"update my details",
	"redo onboarding",
	"start onboarding",
}

// SkipSynonyms are accepted, case-insensitively, as an explicit skip of the
// current onboarding question.
var SkipSynonyms = map[string]struct{}{
	"skip":              {},
	"prefer not to say": {},
	"n/a":               {},
	"na":                {},
}

// ActionKeywords mark a reply as actionable for link attachment.
var ActionKeywords = []string{
	"register",
	"book",
	"call",
	"use nhs 111",
	"use 111",
	"go to a&e",
	"go to ae",
	"go to a and e",
	"find a gp",
	"find gp",
	"sign up",
	"contact your gp",
	"contact gp",
}

// IsSkip reports whether the trimmed answer is an explicit skip.
func IsSkip(answer string) bool {
	_, ok := SkipSynonyms[strings.ToLower(answer)]
	return ok
}

// IsOnboardingTrigger reports whether the input asks to start onboarding.
func IsOnboardingTrigger(input string) bool {
	lowered := strings.ToLower(input)
	for _, phrase := range OnboardingTriggers {
		if strings.Contains(lowered, phrase) {
			return true
		}
	}
	return false
}

// ContainsAction reports whether the lowercased text contains an action
// keyword.
func ContainsAction(text string) bool {
	lowered := strings.ToLower(text)
	for _, keyword := range ActionKeywords {
		if strings.Contains(lowered, keyword) {
			return true
		}
	}
	return false
}
