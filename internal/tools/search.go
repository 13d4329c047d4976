package tools

import (
	"context"
	"strings"
)

// Curated source snippets for the guided search tool. Entries are matched
// by keyword against the query; everything here is from allowlisted
// official sources, so fallback_used stays false for these hits.
type searchEntry struct {
	Keywords []string
	Source   string
	Context  string
}

var allowlistedSources = []searchEntry{
	{
		Keywords: []string{"register", "gp"},
		Source:   "https://www.nhs.uk/nhs-services/gps/how-to-register-with-a-gp-surgery/",
		Context: "Anyone in England can register with a GP surgery for free. You do not need proof " +
			"of address or immigration status, though practices may ask for ID.",
	},
	{
		Keywords: []string{"111", "urgent"},
		Source:   "https://www.nhs.uk/nhs-services/urgent-and-emergency-care-services/when-to-use-111/",
		Context: "NHS 111 helps when you need medical help fast but it is not a 999 emergency. " +
			"Available online at 111.nhs.uk or by phone, 24 hours a day.",
	},
	{
		Keywords: []string{"dentist", "dental"},
		Source:   "https://www.nhs.uk/nhs-services/dentists/how-to-find-an-nhs-dentist/",
		Context: "NHS dental care is charged in bands. Use the NHS service search to find a practice " +
			"accepting new NHS patients near you.",
	},
	{
		Keywords: []string{"prescription", "pharmacy", "medicine"},
		Source:   "https://www.nhs.uk/nhs-services/prescriptions-and-pharmacies/",
		Context: "Prescriptions in England cost a flat fee per item. Pharmacists can advise on minor " +
			"illnesses without an appointment.",
	},
	{
		Keywords: []string{"mental", "wellbeing", "counsell", "therapy"},
		Source:   "https://www.nhs.uk/mental-health/",
		Context: "You can self-refer to NHS talking therapies without seeing a GP first. Urgent mental " +
			"health support is available from NHS 111 (option 2).",
	},
	{
		Keywords: []string{"charge", "visitor", "overseas", "surcharge", "ihs"},
		Source:   "https://www.gov.uk/healthcare-immigration-application",
		Context: "Most visa holders pay the immigration health surcharge, which covers NHS hospital " +
			"care. GP and A&E services are free regardless of immigration status.",
	},
}

// Fallback sources cited when nothing in the allowlist matches.
var fallbackSources = []string{
	"https://www.nhs.uk/",
	"https://www.gov.uk/health",
}

func guidedSearchTool() *Tool {
	return &Tool{
		Name: NameGuidedSearch,
		Description: "Search allowlisted official health sources (NHS, GOV.UK) for context " +
			"on a user question. Only available when the user explicitly asks to search.",
		InputSchema: map[string]any{
			"query": map[string]any{"type": "string", "description": "What the user wants to find"},
		},
		Run: func(_ context.Context, args map[string]any) (any, error) {
			query := strings.ToLower(strArg(args, "query"))

			var contexts []string
			var sources []string
			for _, e := range allowlistedSources {
				for _, k := range e.Keywords {
					if strings.Contains(query, k) {
						contexts = append(contexts, e.Context)
						sources = append(sources, e.Source)
						break
					}
				}
			}

			fallback := len(contexts) == 0
			if fallback {
				contexts = []string{
					"No allowlisted match for this query. General NHS guidance: use NHS 111 for urgent " +
						"advice, your GP for ongoing concerns, and the NHS website for service information.",
				}
				sources = fallbackSources
			}

			return map[string]any{
				"query":         strArg(args, "query"),
				"context":       contexts,
				"sources":       sources,
				"fallback_used": fallback,
			}, nil
		},
	}
}
