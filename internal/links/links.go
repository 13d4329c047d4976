// Package links selects curated "useful links" for a finished turn and
// strips any link section the model emitted on its own.
package links

import (
	"strings"

	"github.com/evihealth/evi/internal/catalog"
)

// MaxLinks caps how many links a single turn may attach.
const MaxLinks = 4

// Select keyword-tags the combined user input and reply, then picks
// catalogue entries whose tag sets intersect. Selection is a pure function
// of the texts: catalogue order is preserved, at most MaxLinks entries are
// returned, and when the texts carry neither a tag nor an action keyword no
// links are attached at all.
func Select(userInput, reply string) []catalog.Link {
	lowered := strings.ToLower(userInput + "\n" + reply)

	tags := map[string]struct{}{}
	add := func(ts ...string) {
		for _, t := range ts {
			tags[t] = struct{}{}
		}
	}

	if strings.Contains(lowered, "gp") || strings.Contains(lowered, "register") {
		add("gp", "register")
	}
	if strings.Contains(lowered, "111") || strings.Contains(lowered, "urgent") || strings.Contains(lowered, "triage") {
		add("111")
	}
	if strings.Contains(lowered, "a&e") || strings.Contains(lowered, "a and e") || strings.Contains(lowered, "emergency") {
		add("111", "services")
	}
	if strings.Contains(lowered, "mental") || strings.Contains(lowered, "wellbeing") {
		add("mental", "wellbeing", "lbs")
	}
	if strings.Contains(lowered, "eligib") || strings.Contains(lowered, "visa") {
		add("eligibility", "services")
	}
	if strings.Contains(lowered, "nhs") {
		add("services")
	}

	if len(tags) == 0 && !catalog.ContainsAction(lowered) {
		return nil
	}

	var selected []catalog.Link
	for _, link := range catalog.Links {
		if intersects(tags, link.Tags) {
			selected = append(selected, catalog.Link{Title: link.Title, URL: link.URL})
		}
	}

	if len(selected) == 0 {
		selected = append(selected, catalog.GenericLinks...)
	}
	if len(selected) > MaxLinks {
		selected = selected[:MaxLinks]
	}
	return selected
}

// StripSection removes any "Useful links" section the model emitted: the
// heading line and every following line up to the next blank line.
func StripSection(reply string) string {
	lines := strings.Split(reply, "\n")
	rebuilt := make([]string, 0, len(lines))

	for i := 0; i < len(lines); i++ {
		if strings.HasPrefix(strings.ToLower(strings.TrimSpace(lines[i])), "useful links") {
			for i+1 < len(lines) && strings.TrimSpace(lines[i+1]) != "" {
				i++
			}
			continue
		}
		rebuilt = append(rebuilt, lines[i])
	}
	return strings.TrimSpace(strings.Join(rebuilt, "\n"))
}

func intersects(tags map[string]struct{}, linkTags []string) bool {
	for _, t := range linkTags {
		if _, ok := tags[t]; ok {
			return true
		}
	}
	return false
}
