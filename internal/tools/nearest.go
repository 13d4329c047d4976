package tools

import (
	"context"
	"fmt"
	"strings"

	"github.com/evihealth/evi/internal/profile"
)

// Service is one directory entry returned by the nearest-services lookup.
type Service struct {
	Name       string  `json:"name"`
	Address    string  `json:"address"`
	Postcode   string  `json:"postcode"`
	Phone      string  `json:"phone,omitempty"`
	DistanceKm float64 `json:"distance_km"`
}

// Static directory keyed by postcode area. Coverage is the central and
// north-west London areas the student population actually lives in; other
// areas fall back to the citywide entries.
var serviceDirectory = map[string]map[string][]Service{
	"NW1": {
		"GP": {
			{Name: "Regent's Park Practice", Address: "Park Village East, London", Postcode: "NW1 7PX", Phone: "020 7387 1075", DistanceKm: 0.6},
			{Name: "Albany Street Surgery", Address: "Albany Street, London", Postcode: "NW1 4EA", Phone: "020 7388 5800", DistanceKm: 0.9},
			{Name: "Camden Health Centre", Address: "Plender Street, London", Postcode: "NW1 0JP", Phone: "020 7530 3800", DistanceKm: 1.4},
		},
		"A&E": {
			{Name: "University College Hospital A&E", Address: "235 Euston Road, London", Postcode: "NW1 2BU", Phone: "020 3456 7890", DistanceKm: 1.1},
			{Name: "St Mary's Hospital A&E", Address: "Praed Street, London", Postcode: "W2 1NY", Phone: "020 3312 6666", DistanceKm: 3.2},
		},
	},
	"NW8": {
		"GP": {
			{Name: "Abbey Road Medical Practice", Address: "Abbey Road, London", Postcode: "NW8 9AA", Phone: "020 7328 0188", DistanceKm: 0.4},
			{Name: "St John's Wood Medical Practice", Address: "Circus Road, London", Postcode: "NW8 6PD", Phone: "020 7722 1093", DistanceKm: 0.8},
			{Name: "Lisson Grove Health Centre", Address: "Gateforth Street, London", Postcode: "NW8 8EG", Phone: "020 7723 0066", DistanceKm: 1.2},
		},
		"A&E": {
			{Name: "St Mary's Hospital A&E", Address: "Praed Street, London", Postcode: "W2 1NY", Phone: "020 3312 6666", DistanceKm: 2.1},
			{Name: "University College Hospital A&E", Address: "235 Euston Road, London", Postcode: "NW1 2BU", Phone: "020 3456 7890", DistanceKm: 3.5},
		},
	},
	"EC2": {
		"GP": {
			{Name: "The City Medical Practice", Address: "Finsbury Square, London", Postcode: "EC2A 1AH", Phone: "020 7628 4001", DistanceKm: 0.5},
			{Name: "Spitalfields Practice", Address: "Brick Lane, London", Postcode: "E1 6RU", Phone: "020 7247 7070", DistanceKm: 1.3},
		},
		"A&E": {
			{Name: "Royal London Hospital A&E", Address: "Whitechapel Road, London", Postcode: "E1 1FR", Phone: "020 7377 7000", DistanceKm: 1.8},
		},
	},
}

// Citywide fallback for areas outside the directory.
var citywideServices = map[string][]Service{
	"GP": {
		{Name: "Find a GP (NHS service search)", Address: "www.nhs.uk/service-search/find-a-gp", Postcode: "", DistanceKm: 0},
	},
	"A&E": {
		{Name: "St Thomas' Hospital A&E", Address: "Westminster Bridge Road, London", Postcode: "SE1 7EH", Phone: "020 7188 7188", DistanceKm: 0},
		{Name: "University College Hospital A&E", Address: "235 Euston Road, London", Postcode: "NW1 2BU", Phone: "020 3456 7890", DistanceKm: 0},
	},
}

func nearestServicesTool() *Tool {
	return &Tool{
		Name: NameNearestServices,
		Description: "Look up the nearest NHS services for a full UK postcode. " +
			"service_type is \"GP\" or \"A&E\".",
		InputSchema: map[string]any{
			"postcode_full": map[string]any{"type": "string", "description": "Full UK postcode, e.g. NW1 2BU"},
			"service_type":  map[string]any{"type": "string", "enum": []string{"GP", "A&E"}},
			"n":             map[string]any{"type": "integer", "description": "Max results, default 3"},
		},
		Run: NearestServices,
	}
}

// NearestServices resolves a directory lookup. Exported so the session can
// auto-chain it after a final triage result without a model round-trip.
func NearestServices(_ context.Context, args map[string]any) (any, error) {
	full, area := profile.DerivePostcode(strArg(args, "postcode_full"))
	if full == "" {
		return nil, fmt.Errorf("postcode_full must be a full UK postcode (e.g. NW1 2BU)")
	}
	serviceType := strings.ToUpper(strings.TrimSpace(strArg(args, "service_type")))
	if serviceType != "GP" && serviceType != "A&E" {
		return nil, fmt.Errorf("service_type must be \"GP\" or \"A&E\", got %q", serviceType)
	}
	n := intArg(args, "n", 3)
	if n < 1 {
		n = 1
	}

	results := citywideServices[serviceType]
	if byType, ok := serviceDirectory[area]; ok {
		if local := byType[serviceType]; len(local) > 0 {
			results = local
		}
	}
	if len(results) > n {
		results = results[:n]
	}

	return map[string]any{
		"postcode_full": full,
		"service_type":  serviceType,
		"results":       results,
	}, nil
}
