// Package safety implements the emergency short-circuit: a stateless keyword
// checker evaluated before anything else in a turn, and the fixed response
// returned when it fires. No clinical judgment happens here; the patterns
// only catch phrasings that should never wait for a model round-trip.
package safety

import "strings"

// emergencyPatterns are matched as substrings against the lowercased input.
var emergencyPatterns = []string{
	"chest pain",
	"can't breathe",
	"cannot breathe",
	"difficulty breathing",
	"struggling to breathe",
	"severe bleeding",
	"bleeding heavily",
	"unconscious",
	"passed out",
	"suicide",
	"suicidal",
	"kill myself",
	"end my life",
	"overdose",
	"stroke",
	"heart attack",
	"seizure",
	"anaphyla",
	"allergic reaction",
}

// EmergencyResponse is the fixed reply for an emergency turn. The model is
// never consulted and no links are attached.
const EmergencyResponse = "This sounds like it could be an emergency. " +
	"Please call 999 now, or go to your nearest A&E department immediately. " +
	"If you are not sure, call NHS 111 and they will direct you. " +
	"If you are thinking about harming yourself, you can also call Samaritans free on 116 123, any time."

// Checker reports whether free text indicates an immediate emergency.
// It is pure and safe for concurrent use.
type Checker struct{}

// NewChecker returns the default keyword checker.
func NewChecker() *Checker {
	return &Checker{}
}

// IsEmergency reports whether text matches an emergency pattern.
func (c *Checker) IsEmergency(text string) bool {
	lowered := strings.ToLower(text)
	for _, pattern := range emergencyPatterns {
		if strings.Contains(lowered, pattern) {
			return true
		}
	}
	return false
}
