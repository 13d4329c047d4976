package tools

import (
	"context"
	"strings"
	"testing"

	"github.com/evihealth/evi/internal/triage"
)

func TestRegistryExecuteUnknownTool(t *testing.T) {
	r := NewRegistry()
	out := r.Execute(context.Background(), "no_such_tool", nil)
	s, ok := out.(string)
	if !ok || !strings.Contains(s, "Unknown tool 'no_such_tool'") {
		t.Errorf("unknown tool output = %v, want error string", out)
	}
}

func TestRegistryDefinitionsFilterSearch(t *testing.T) {
	r := NewRegistry()

	withSearch := r.Definitions(true)
	without := r.Definitions(false)
	if len(withSearch) != len(without)+1 {
		t.Fatalf("definitions: with search %d, without %d", len(withSearch), len(without))
	}
	for _, d := range without {
		if d.Name == NameGuidedSearch {
			t.Error("guided_search advertised despite includeSearch=false")
		}
	}
}

func TestNearestServices(t *testing.T) {
	r := NewRegistry()
	out := r.Execute(context.Background(), NameNearestServices, map[string]any{
		"postcode_full": "NW8 9HU",
		"service_type":  "GP",
		"n":             float64(2),
	})
	m, ok := out.(map[string]any)
	if !ok {
		t.Fatalf("output = %T, want map", out)
	}
	results, ok := m["results"].([]Service)
	if !ok {
		t.Fatalf("results = %T, want []Service", m["results"])
	}
	if len(results) != 2 {
		t.Errorf("got %d results, want 2", len(results))
	}
	if !strings.Contains(results[0].Postcode, "NW8") {
		t.Errorf("first result %+v, want NW8 area practice", results[0])
	}
}

func TestNearestServicesRejectsPartialPostcode(t *testing.T) {
	r := NewRegistry()
	out := r.Execute(context.Background(), NameNearestServices, map[string]any{
		"postcode_full": "NW8",
		"service_type":  "GP",
	})
	s, ok := out.(string)
	if !ok || !strings.Contains(s, "full UK postcode") {
		t.Errorf("partial postcode output = %v, want error string", out)
	}
}

func TestNearestServicesUnknownAreaFallsBack(t *testing.T) {
	out, err := NearestServices(context.Background(), map[string]any{
		"postcode_full": "ZZ9 9ZZ",
		"service_type":  "A&E",
	})
	if err != nil {
		t.Fatalf("NearestServices: %v", err)
	}
	results := out.(map[string]any)["results"].([]Service)
	if len(results) == 0 {
		t.Error("unknown area returned no citywide fallback")
	}
}

func TestGuidedSearchAllowlistHit(t *testing.T) {
	r := NewRegistry()
	out := r.Execute(context.Background(), NameGuidedSearch, map[string]any{
		"query": "how do I register with a GP",
	})
	m := out.(map[string]any)
	if m["fallback_used"] != false {
		t.Errorf("fallback_used = %v, want false", m["fallback_used"])
	}
	sources := m["sources"].([]string)
	if len(sources) == 0 || !strings.Contains(sources[0], "nhs.uk") {
		t.Errorf("sources = %v, want nhs.uk match", sources)
	}
}

func TestGuidedSearchFallback(t *testing.T) {
	r := NewRegistry()
	out := r.Execute(context.Background(), NameGuidedSearch, map[string]any{
		"query": "quantum entanglement",
	})
	m := out.(map[string]any)
	if m["fallback_used"] != true {
		t.Errorf("fallback_used = %v, want true", m["fallback_used"])
	}
}

func TestLiveTriageEmergencyShortCircuits(t *testing.T) {
	out, err := LiveTriage(context.Background(), map[string]any{
		"presenting_issue": "crushing chest pain",
		"postcode_full":    "NW1 2BU",
	})
	if err != nil {
		t.Fatalf("LiveTriage: %v", err)
	}
	res, ok := triage.Parse(out)
	if !ok {
		t.Fatalf("triage output unparseable: %v", out)
	}
	if res.Status != triage.StatusFinal || res.Service != "A&E" {
		t.Errorf("result = %+v, want final A&E", res)
	}
	if !res.ShouldLookup {
		t.Error("should_lookup = false with postcode present")
	}
}

func TestLiveTriageAsksFollowUpsThenConcludes(t *testing.T) {
	known := map[string]any{}
	var lastQuestion string
	for i := 0; i < len(triageTopics); i++ {
		out, err := LiveTriage(context.Background(), map[string]any{
			"presenting_issue": "stomach ache",
			"known_answers":    known,
		})
		if err != nil {
			t.Fatalf("round %d: %v", i, err)
		}
		res, ok := triage.Parse(out)
		if !ok {
			t.Fatalf("round %d unparseable: %v", i, out)
		}
		if res.Status != triage.StatusNeedMoreInfo {
			t.Fatalf("round %d status = %s, want need_more_info", i, res.Status)
		}
		q := out.(map[string]any)["next_question"].(string)
		if q == lastQuestion {
			t.Fatalf("round %d repeated question %q", i, q)
		}
		lastQuestion = q
		known[triageTopics[i].Key] = "answered"
	}

	out, err := LiveTriage(context.Background(), map[string]any{
		"presenting_issue": "stomach ache",
		"postcode_full":    "NW8 9HU",
		"known_answers":    known,
	})
	if err != nil {
		t.Fatalf("final round: %v", err)
	}
	res, _ := triage.Parse(out)
	if res.Status != triage.StatusFinal {
		t.Fatalf("all topics answered but status = %s", res.Status)
	}
	if res.Service != "GP" || !res.ShouldLookup {
		t.Errorf("result = %+v, want GP with lookup", res)
	}
}

func TestLiveTriageMildRoutesToPharmacy(t *testing.T) {
	known := map[string]any{
		"onset": "yesterday", "severity": "mild", "red_flags": "none",
		"functional_impact": "no", "history": "none",
	}
	out, _ := LiveTriage(context.Background(), map[string]any{
		"presenting_issue": "a mild cough",
		"known_answers":    known,
	})
	res, _ := triage.Parse(out)
	if res.Service != "Pharmacy" || res.ShouldLookup {
		t.Errorf("result = %+v, want Pharmacy without lookup", res)
	}
}

func TestSafetyProtocolTool(t *testing.T) {
	r := NewRegistry()
	out := r.Execute(context.Background(), NameSafetyProtocol, map[string]any{
		"message": "I want to hurt myself",
	})
	m := out.(map[string]any)
	resp, _ := m["response"].(string)
	if !strings.Contains(resp, "999") {
		t.Errorf("safety response missing 999 guidance: %q", resp)
	}
}
