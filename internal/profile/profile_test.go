package profile

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestExtract(t *testing.T) {
	tests := []struct {
		name string
		text string
		want Profile
	}{
		{
			name: "embedded tag",
			text: `Hello <USER_PROFILE>{"name": "A", "postcode": "NW8"}</USER_PROFILE> world`,
			want: Profile{"name": "A", "postcode": "NW8"},
		},
		{
			name: "multiline payload",
			text: "<USER_PROFILE>\n{\"age_range\": \"25-34\"}\n</USER_PROFILE>",
			want: Profile{"age_range": "25-34"},
		},
		{
			name: "no tag",
			text: "just a reply",
			want: nil,
		},
		{
			name: "empty payload",
			text: "<USER_PROFILE></USER_PROFILE>",
			want: nil,
		},
		{
			name: "malformed json",
			text: "<USER_PROFILE>{not json}</USER_PROFILE>",
			want: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Extract(tt.text)
			if ok != (tt.want != nil) {
				t.Errorf("Extract() ok = %v, want %v", ok, tt.want != nil)
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("Extract() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestStripTag(t *testing.T) {
	text := `Hello <USER_PROFILE>{"name": "A"}</USER_PROFILE> world`
	if got := StripTag(text); got != "Hello  world" {
		t.Errorf("StripTag() = %q, want %q", got, "Hello  world")
	}

	if got := StripTag("no tag here"); got != "no tag here" {
		t.Errorf("StripTag() = %q, want input unchanged", got)
	}
}

func TestDerivePostcode(t *testing.T) {
	tests := []struct {
		raw      string
		wantFull string
		wantArea string
	}{
		{"nw89hu", "NW8 9HU", "NW8"},
		{"NW8 9HU", "NW8 9HU", "NW8"},
		{"sw1a 1aa", "SW1A 1AA", "SW1A"},
		{"e1 6an", "E1 6AN", "E1"},
		{"NW8", "", "NW8"},
		{"nw8 area maybe", "", "NW8"},
		{"", "", ""},
		{"   ", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			full, area := DerivePostcode(tt.raw)
			if full != tt.wantFull || area != tt.wantArea {
				t.Errorf("DerivePostcode(%q) = (%q, %q), want (%q, %q)",
					tt.raw, full, area, tt.wantFull, tt.wantArea)
			}
		})
	}
}

func TestMergePostcode(t *testing.T) {
	p := Profile{"postcode": "nw8 9hu"}
	MergePostcode(p)

	want := Profile{"postcode": "nw8 9hu", "postcode_full": "NW8 9HU", "postcode_area": "NW8"}
	if diff := cmp.Diff(want, p); diff != "" {
		t.Errorf("MergePostcode() mismatch (-want +got):\n%s", diff)
	}

	// Area-only input sets only the area field.
	p = Profile{"postcode": "NW8"}
	MergePostcode(p)
	if _, ok := p["postcode_full"]; ok {
		t.Error("MergePostcode() set postcode_full for an area-only input")
	}
	if p["postcode_area"] != "NW8" {
		t.Errorf("postcode_area = %v, want NW8", p["postcode_area"])
	}
}

func TestWrapTagRoundTrip(t *testing.T) {
	p := Profile{"name": "A", "gp_registered": "Yes"}
	got, ok := Extract(WrapTag(p))
	if !ok {
		t.Fatal("Extract() did not find the wrapped tag")
	}
	if diff := cmp.Diff(p, got); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}
}
