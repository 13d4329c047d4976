// Package tools implements the callable tool surface the model is given:
// a nearest-services directory lookup, the safety protocol trigger, a
// guided search over allowlisted sources, and the live 111 triage engine.
// The registry dispatches by name and never panics or returns a Go error
// to the caller; failures become error strings the model can read.
package tools

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// Tool names as advertised to the model.
const (
	NameNearestServices = "nearest_nhs_services"
	NameSafetyProtocol  = "trigger_safety_protocol"
	NameGuidedSearch    = "guided_search"
	NameLiveTriage      = "nhs_111_live_triage"
)

// Handler executes one tool call. Returned results are either a structured
// map (serialized to JSON for the model) or a plain string.
type Handler func(ctx context.Context, args map[string]any) (any, error)

// Tool couples an advertised definition with its handler.
type Tool struct {
	Name        string
	Description string
	// InputSchema is the JSON-schema properties map advertised to the
	// model. Top-level type is always "object".
	InputSchema map[string]any
	Run         Handler
}

// Registry holds the registered tools. Registration happens once at
// startup; lookups are concurrent.
type Registry struct {
	mu    sync.RWMutex
	tools map[string]*Tool
}

// NewRegistry builds a registry containing the full default tool set.
func NewRegistry() *Registry {
	r := &Registry{tools: map[string]*Tool{}}
	r.Register(nearestServicesTool())
	r.Register(safetyProtocolTool())
	r.Register(guidedSearchTool())
	r.Register(liveTriageTool())
	return r
}

// Register adds or replaces a tool by name.
func (r *Registry) Register(t *Tool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tools[t.Name] = t
}

// Get returns the named tool.
func (r *Registry) Get(name string) (*Tool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.tools[name]
	return t, ok
}

// Definitions returns the advertised tool set in stable order. The guided
// search tool is withheld unless includeSearch is set; the model only sees
// it on turns where the user explicitly asked to search.
func (r *Registry) Definitions(includeSearch bool) []*Tool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	defs := make([]*Tool, 0, len(r.tools))
	for name, t := range r.tools {
		if name == NameGuidedSearch && !includeSearch {
			continue
		}
		defs = append(defs, t)
	}
	sort.Slice(defs, func(i, j int) bool { return defs[i].Name < defs[j].Name })
	return defs
}

// Execute dispatches one call by name. Unknown tools and handler failures
// come back as error strings, never as Go errors; the model reads them as
// tool output and recovers conversationally.
func (r *Registry) Execute(ctx context.Context, name string, args map[string]any) any {
	t, ok := r.Get(name)
	if !ok {
		return fmt.Sprintf("[Error: Unknown tool '%s']", name)
	}
	out, err := t.Run(ctx, args)
	if err != nil {
		return fmt.Sprintf("[Error: %v]", err)
	}
	return out
}

func strArg(args map[string]any, key string) string {
	s, _ := args[key].(string)
	return s
}

func intArg(args map[string]any, key string, def int) int {
	switch v := args[key].(type) {
	case int:
		return v
	case float64:
		return int(v)
	default:
		return def
	}
}

func mapArg(args map[string]any, key string) map[string]any {
	m, _ := args[key].(map[string]any)
	return m
}
