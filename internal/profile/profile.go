// Package profile handles the user-profile payloads that flow through model
// output: the delimited <USER_PROFILE> tag and the postcode fields derived
// from free-text answers.
package profile

import (
	"encoding/json"
	"regexp"
	"strings"
)

// Profile maps onboarding question keys (plus the derived postcode fields)
// to stored answers. Skipped answers are stored as nil.
type Profile = map[string]any

var (
	tagRe     = regexp.MustCompile(`(?s)<USER_PROFILE>(.*?)</USER_PROFILE>`)
	compactRe = regexp.MustCompile(`^[A-Z]{1,2}\d[A-Z\d]?\d[A-Z]{2}$`)
)

// Extract parses the first <USER_PROFILE> block out of text. It reports
// false when no tag is present or the payload is not valid JSON.
func Extract(text string) (Profile, bool) {
	m := tagRe.FindStringSubmatch(text)
	if m == nil {
		return nil, false
	}
	raw := strings.TrimSpace(m[1])
	if raw == "" {
		return nil, false
	}
	var p Profile
	if err := json.Unmarshal([]byte(raw), &p); err != nil {
		return nil, false
	}
	return p, true
}

// StripTag removes every <USER_PROFILE> block from text and trims the result.
func StripTag(text string) string {
	return strings.TrimSpace(tagRe.ReplaceAllString(text, ""))
}

// WrapTag serializes p into a <USER_PROFILE> block for model-visible output.
func WrapTag(p Profile) string {
	raw, err := json.Marshal(p)
	if err != nil {
		// Profiles come from JSON or string answers; marshal cannot fail in
		// practice, but an empty tag keeps the flow alive if it ever does.
		raw = []byte("{}")
	}
	return "<USER_PROFILE>" + string(raw) + "</USER_PROFILE>"
}

// DerivePostcode normalizes raw free-text postcode input against the UK
// postcode grammar. A grammar match yields the canonical full form with a
// single space before the final 3 characters ("nw89hu" -> "NW8 9HU") and the
// area prefix ("NW8"). Otherwise the first whitespace token is kept as an
// area-only guess. Empty input yields two empty strings.
func DerivePostcode(raw string) (full, area string) {
	text := strings.ToUpper(strings.TrimSpace(raw))
	if text == "" {
		return "", ""
	}

	compact := strings.ReplaceAll(text, " ", "")
	if compactRe.MatchString(compact) {
		full = compact[:len(compact)-3] + " " + compact[len(compact)-3:]
		area, _, _ = strings.Cut(full, " ")
		return full, area
	}

	area, _, _ = strings.Cut(text, " ")
	return "", area
}

// MergePostcode recomputes the derived postcode fields from p["postcode"]
// and merges them into p. Called whenever a profile is set or onboarding
// finalizes.
func MergePostcode(p Profile) {
	raw, _ := p["postcode"].(string)
	full, area := DerivePostcode(raw)
	if full != "" {
		p["postcode_full"] = full
	}
	if area != "" {
		p["postcode_area"] = area
	}
}

// Str returns the profile value under key as a string, or "" when absent or
// not a string.
func Str(p Profile, key string) string {
	s, _ := p[key].(string)
	return s
}
