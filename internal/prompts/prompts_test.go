package prompts

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/evihealth/evi/internal/profile"
)

func TestSystemEmbedsProfile(t *testing.T) {
	got := System(profile.Profile{"name": "Amira"})
	if !strings.Contains(got, `"name":"Amira"`) {
		t.Errorf("system prompt missing profile JSON:\n%s", got)
	}
	for _, rule := range []string{
		"nhs_111_live_triage",
		"nearest_nhs_services",
		"trigger_safety_protocol",
		"guided_search",
		"PRIORITY ORDER",
	} {
		if !strings.Contains(got, rule) {
			t.Errorf("system prompt missing %q", rule)
		}
	}
}

func TestSystemEmptyProfile(t *testing.T) {
	got := System(nil)
	if !strings.Contains(got, "{}") {
		t.Errorf("empty profile should render as {}:\n%s", got)
	}
}

func TestParseSuggestions(t *testing.T) {
	tests := []struct {
		name   string
		raw    string
		want   []string
		wantOK bool
	}{
		{
			name:   "valid list",
			raw:    `["Find a GP", "What is NHS 111?", "Book a check-up"]`,
			want:   []string{"Find a GP", "What is NHS 111?", "Book a check-up"},
			wantOK: true,
		},
		{
			name:   "caps at three",
			raw:    `["a", "b", "c", "d"]`,
			want:   []string{"a", "b", "c"},
			wantOK: true,
		},
		{
			name:   "trims and drops blanks",
			raw:    `["  spaced  ", "", "ok"]`,
			want:   []string{"spaced", "ok"},
			wantOK: true,
		},
		{name: "not json", raw: "sorry, no", wantOK: false},
		{name: "empty list", raw: "[]", wantOK: false},
		{name: "json object", raw: `{"a": 1}`, wantOK: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ParseSuggestions(tt.raw)
			if ok != tt.wantOK {
				t.Fatalf("ok = %v, want %v", ok, tt.wantOK)
			}
			if diff := cmp.Diff(tt.want, got); tt.wantOK && diff != "" {
				t.Errorf("suggestions mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestFollowUpsMentionsProfile(t *testing.T) {
	got := FollowUps(profile.Profile{"postcode_area": "NW8"})
	if !strings.Contains(got, "NW8") {
		t.Errorf("follow-up prompt missing profile data:\n%s", got)
	}
}
