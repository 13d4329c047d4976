// Package session is the per-conversation state machine. Each turn is
// classified into a mode (safety, onboarding, eligibility FAQ, or normal
// model-driven chat); deterministic modes short-circuit the model entirely,
// and the normal mode runs a bounded tool-orchestration loop around it.
package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/evihealth/evi/internal/catalog"
	"github.com/evihealth/evi/internal/links"
	"github.com/evihealth/evi/internal/log"
	"github.com/evihealth/evi/internal/onboarding"
	"github.com/evihealth/evi/internal/profile"
	"github.com/evihealth/evi/internal/prompts"
	"github.com/evihealth/evi/internal/safety"
	"github.com/evihealth/evi/internal/tools"
	"github.com/evihealth/evi/internal/triage"
)

// Per-turn limits.
const (
	// HistoryWindow is how many trailing transcript messages each model
	// call sees.
	HistoryWindow = 15

	// MaxOut caps output tokens on regular calls.
	MaxOut = 250

	// ForcedOut caps output tokens on forced plain-text calls.
	ForcedOut = 200

	// MaxToolRounds bounds the tool-orchestration loop per turn.
	MaxToolRounds = 4

	// followUpOut and suggestionOut cap the two auxiliary calls made
	// after a turn completes.
	followUpOut   = 220
	suggestionOut = 120
)

// Mode classifies one user turn. Evaluation order is fixed: safety wins
// over everything, onboarding over eligibility, eligibility over normal.
type Mode int

const (
	ModeSafety Mode = iota
	ModeOnboardingStart
	ModeOnboardingActive
	ModeEligibility
	ModeNormal
)

func (m Mode) String() string {
	switch m {
	case ModeSafety:
		return "safety"
	case ModeOnboardingStart:
		return "onboarding_start"
	case ModeOnboardingActive:
		return "onboarding_active"
	case ModeEligibility:
		return "eligibility"
	case ModeNormal:
		return "normal"
	default:
		return fmt.Sprintf("mode(%d)", int(m))
	}
}

// TurnResult is everything one completed turn produced for the caller.
type TurnResult struct {
	Reply       string
	Links       []catalog.Link
	Suggestions []string
}

// Config contains all required parameters for a session.
type Config struct {
	Model    Model
	Registry *tools.Registry
	Logger   log.Logger

	// Limiter proactively spaces model calls. Nil gets a fresh default.
	Limiter *rate.Limiter

	// Sleep is the pause function used between retries. Nil means
	// time.Sleep; tests inject a no-op.
	Sleep func(time.Duration)
}

func (cfg Config) validate() error {
	if cfg.Model == nil {
		return errors.New("model is required")
	}
	if cfg.Registry == nil {
		return errors.New("tool registry is required")
	}
	if cfg.Logger == nil {
		return errors.New("logger is required")
	}
	return nil
}

// Session holds one conversation's state. Methods are not safe for
// concurrent use; the Store serializes turns per session.
type Session struct {
	id uuid.UUID

	model    Model
	registry *tools.Registry
	logger   log.Logger
	limiter  *rate.Limiter
	sleep    func(time.Duration)

	history      []Message
	userProfile  profile.Profile
	systemPrompt string

	checker *safety.Checker
	flow    *onboarding.Flow
	tracker *triage.Tracker

	suggestions []string
	lastLinks   []catalog.Link

	// lastActive is read by the store's idle purge while a turn may be
	// writing it, so it gets its own lock.
	activeMu   sync.Mutex
	lastActive time.Time
}

// New creates a session with an empty profile and idle flows.
func New(cfg Config) (*Session, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	limiter := cfg.Limiter
	if limiter == nil {
		limiter = newLimiter()
	}
	sleep := cfg.Sleep
	if sleep == nil {
		sleep = time.Sleep
	}

	return &Session{
		id:           uuid.New(),
		model:        cfg.Model,
		registry:     cfg.Registry,
		logger:       cfg.Logger,
		limiter:      limiter,
		sleep:        sleep,
		userProfile:  profile.Profile{},
		checker:      safety.NewChecker(),
		flow:         onboarding.New(catalog.Questions),
		tracker:      triage.NewTracker(),
		systemPrompt: prompts.System(nil),
		lastActive:   time.Now(),
	}, nil
}

// ID returns the session identifier.
func (s *Session) ID() uuid.UUID { return s.id }

// Profile returns the stored user profile. Callers must not mutate it.
func (s *Session) Profile() profile.Profile { return s.userProfile }

// Suggestions returns the quick-reply prompts from the last normal turn.
func (s *Session) Suggestions() []string { return s.suggestions }

// LastLinks returns the links selected for the last reply.
func (s *Session) LastLinks() []catalog.Link { return s.lastLinks }

// LastActive returns when the session last processed a turn.
func (s *Session) LastActive() time.Time {
	s.activeMu.Lock()
	defer s.activeMu.Unlock()
	return s.lastActive
}

func (s *Session) touch() {
	s.activeMu.Lock()
	s.lastActive = time.Now()
	s.activeMu.Unlock()
}

// TriageActive reports whether a triage conversation is in progress.
func (s *Session) TriageActive() bool { return s.tracker.Active() }

// SetProfile replaces the stored profile, derives postcode fields, and
// rebuilds the system prompt. A system note lands in the transcript so the
// model sees the update on later turns.
func (s *Session) SetProfile(p profile.Profile) {
	profile.MergePostcode(p)
	s.userProfile = p
	s.systemPrompt = prompts.System(p)
	s.history = append(s.history, Message{
		Role:    RoleSystem,
		Content: "Updated user profile for memory:\n" + profile.WrapTag(p),
	})
}

// classify picks the turn's mode. Safety always wins; an explicit
// onboarding request beats an active flow so "redo onboarding" restarts.
func (s *Session) classify(input string) Mode {
	switch {
	case s.checker.IsEmergency(input):
		return ModeSafety
	case catalog.IsOnboardingTrigger(input) && !s.flow.Active():
		return ModeOnboardingStart
	case s.flow.Active():
		return ModeOnboardingActive
	case isEligibilityQuery(input):
		return ModeEligibility
	default:
		return ModeNormal
	}
}

func isEligibilityQuery(input string) bool {
	lowered := strings.ToLower(input)
	return strings.Contains(lowered, "eligible") || strings.Contains(lowered, "eligibility")
}

func isSearchRequest(input string) bool {
	lowered := strings.ToLower(input)
	return strings.Contains(lowered, "search") ||
		strings.Contains(lowered, "find info") ||
		strings.Contains(lowered, "find information")
}

// Turn processes one user message and returns the visible reply plus the
// selected links and refreshed suggestions.
func (s *Session) Turn(ctx context.Context, userInput string) (*TurnResult, error) {
	s.touch()
	s.history = append(s.history, Message{Role: RoleUser, Content: userInput})

	mode := s.classify(userInput)
	s.logger.Debug("turn classified", "session_id", s.id, "mode", mode.String())

	switch mode {
	case ModeSafety:
		// Emergency replies bypass finalization entirely: no links, no
		// profile extraction, no suggestion refresh.
		reply := safety.EmergencyResponse
		s.lastLinks = nil
		s.history = append(s.history, Message{Role: RoleAssistant, Content: reply})
		return &TurnResult{Reply: reply, Suggestions: s.suggestions}, nil

	case ModeOnboardingStart:
		s.flow.Start()
		s.tracker.Reset()
		return s.finalize(ctx, userInput, s.flow.PromptNext()), nil

	case ModeOnboardingActive:
		var reply string
		if !s.flow.Expecting() && s.flow.Index() == 0 {
			reply = s.flow.PromptNext()
		} else {
			reply = s.flow.Submit(userInput)
		}
		return s.finalize(ctx, userInput, reply), nil

	case ModeEligibility:
		return s.finalize(ctx, userInput, prompts.EligibilityFAQ), nil
	}

	reply, err := s.modelTurn(ctx, userInput)
	if err != nil {
		// Roll the user message back so a retried request does not see a
		// duplicated turn.
		s.history = s.history[:len(s.history)-1]
		return nil, err
	}

	result := s.finalize(ctx, userInput, reply)
	s.suggestions = s.generateSuggestions(ctx, result.Reply)
	result.Suggestions = s.suggestions
	return result, nil
}

// modelTurn runs the first model call plus the tool-orchestration loop and
// returns the raw (unfinalized) reply text.
func (s *Session) modelTurn(ctx context.Context, userInput string) (string, error) {
	toolset := s.registry.Definitions(isSearchRequest(userInput))
	stack := s.buildStack()

	resp, err := s.generateWithRetry(ctx, &ModelRequest{
		Messages:        stack,
		Tools:           toolset,
		ToolChoice:      ToolChoiceAuto,
		MaxOutputTokens: MaxOut,
	})
	if err != nil {
		return "", fmt.Errorf("model turn: %w", err)
	}

	convo := stack
	var (
		triageCalled bool
		lookupDone   bool
		bailed       bool
	)

	for rounds := 1; ; rounds++ {
		if rounds > MaxToolRounds {
			bailed = true
			break
		}
		if len(resp.ToolCalls) == 0 {
			break
		}
		if triageCalled && allTriage(resp.ToolCalls) {
			// The model is looping on triage; one call per turn is the
			// contract. Bail to a forced text reply instead.
			bailed = true
			break
		}

		outputs := make([]ToolOutput, 0, len(resp.ToolCalls)+1)
		for _, call := range resp.ToolCalls {
			result := s.registry.Execute(ctx, call.Name, call.Args)

			if call.Name == triage.Tool {
				triageCalled = true
				parsed, ok := triage.Parse(result)
				if !ok {
					fallback := triage.FallbackResult(argString(call.Args, "postcode_full"))
					result = fallback
					parsed, _ = triage.Parse(fallback)
				}
				s.tracker.Observe(parsed)

				outputs = append(outputs, ToolOutput{Ref: call.Ref, Name: call.Name, Output: result})
				if chained, ok := s.autoChain(ctx, parsed, lookupDone); ok {
					outputs = append(outputs, chained)
					lookupDone = true
				}
				continue
			}

			outputs = append(outputs, ToolOutput{Ref: call.Ref, Name: call.Name, Output: result})
		}

		convo = append(convo,
			Message{Role: RoleAssistant, Content: resp.Text, ToolRequests: resp.ToolCalls},
			Message{Role: RoleTool, ToolOutputs: outputs},
		)

		resp, err = s.generateWithRetry(ctx, &ModelRequest{
			Messages:        convo,
			Tools:           toolset,
			ToolChoice:      ToolChoiceAuto,
			MaxOutputTokens: MaxOut,
		})
		if err != nil {
			return "", fmt.Errorf("tool round %d: %w", rounds, err)
		}
	}

	reply := resp.Text
	switch {
	case bailed:
		// Unresolved tool calls: restart from the pinned stack with tools
		// disabled so the model must answer in text.
		forced := append(s.buildStack(), Message{Role: RoleSystem, Content: prompts.ForcedPlainText})
		resp, err = s.generateWithRetry(ctx, &ModelRequest{
			Messages:        forced,
			Tools:           toolset,
			ToolChoice:      ToolChoiceNone,
			MaxOutputTokens: ForcedOut,
		})
		if err != nil {
			return "", fmt.Errorf("forced reply: %w", err)
		}
		reply = resp.Text

	case strings.TrimSpace(reply) == "":
		// The loop resolved but produced no text; continue the same
		// conversation with tools disabled.
		forced := append(convo, Message{Role: RoleSystem, Content: prompts.ForcedPlainText})
		resp, err = s.generateWithRetry(ctx, &ModelRequest{
			Messages:        forced,
			Tools:           toolset,
			ToolChoice:      ToolChoiceNone,
			MaxOutputTokens: ForcedOut,
		})
		if err != nil {
			return "", fmt.Errorf("blank-reply fix: %w", err)
		}
		reply = resp.Text
	}

	return reply, nil
}

// autoChain runs the nearest-services lookup that follows a final triage
// result. Lookup failures are swallowed: a missing extra result is better
// than a failed turn.
func (s *Session) autoChain(ctx context.Context, parsed *triage.Result, alreadyDone bool) (ToolOutput, bool) {
	if alreadyDone ||
		parsed == nil ||
		parsed.Status != triage.StatusFinal ||
		!parsed.ShouldLookup ||
		parsed.PostcodeFull == "" ||
		(parsed.Service != "GP" && parsed.Service != "A&E") {
		return ToolOutput{}, false
	}

	lookup, err := tools.NearestServices(ctx, map[string]any{
		"postcode_full": parsed.PostcodeFull,
		"service_type":  parsed.Service,
		"n":             3,
	})
	if err != nil {
		s.logger.Warn("auto-chained lookup failed",
			"session_id", s.id,
			"postcode", parsed.PostcodeFull,
			"error", err)
		return ToolOutput{}, false
	}
	return ToolOutput{
		Ref:    "auto__nearest_services",
		Name:   tools.NameNearestServices,
		Output: lookup,
	}, true
}

// buildStack assembles one model call's message stack: system prompt,
// pinned triage instruction when active, then the trailing history window.
func (s *Session) buildStack() []Message {
	stack := []Message{{Role: RoleSystem, Content: s.systemPrompt}}
	if s.tracker.Active() {
		stack = append(stack, Message{Role: RoleSystem, Content: s.tracker.PinnedInstruction()})
	}
	hist := s.history
	if len(hist) > HistoryWindow {
		hist = hist[len(hist)-HistoryWindow:]
	}
	return append(stack, hist...)
}

// finalize post-processes a reply: select links, strip the link section
// and any profile tag, record the clean reply, and handle an emitted
// profile (persist it, reset flows, append model-written follow-ups).
func (s *Session) finalize(ctx context.Context, userInput, reply string) *TurnResult {
	s.lastLinks = links.Select(userInput, reply)

	clean := links.StripSection(profile.StripTag(reply))
	s.history = append(s.history, Message{Role: RoleAssistant, Content: clean})

	if p, ok := profile.Extract(reply); ok {
		s.SetProfile(p)
		s.flow.Deactivate()
		s.tracker.Reset()

		if followUp := s.profileFollowUps(ctx); followUp != "" {
			s.history = append(s.history, Message{Role: RoleAssistant, Content: followUp})
			clean = clean + "\n\n" + followUp
		}
	}

	return &TurnResult{Reply: clean, Links: s.lastLinks, Suggestions: s.suggestions}
}

// profileFollowUps asks the model for tailored next steps right after a
// profile save. Failures degrade to a canned list.
func (s *Session) profileFollowUps(ctx context.Context) string {
	if len(s.userProfile) == 0 {
		return ""
	}
	resp, err := s.model.Generate(ctx, &ModelRequest{
		Messages:        []Message{{Role: RoleUser, Content: prompts.FollowUps(s.userProfile)}},
		MaxOutputTokens: followUpOut,
	})
	if err != nil || strings.TrimSpace(resp.Text) == "" {
		s.logger.Debug("follow-up generation failed, using fallback", "session_id", s.id)
		return prompts.FollowUpFallback
	}
	return resp.Text
}

// generateSuggestions refreshes the quick-reply prompts shown after a
// normal turn. Failures degrade to the canned set.
func (s *Session) generateSuggestions(ctx context.Context, lastReply string) []string {
	resp, err := s.model.Generate(ctx, &ModelRequest{
		Messages:        []Message{{Role: RoleUser, Content: prompts.Suggestions(s.userProfile, lastReply)}},
		MaxOutputTokens: suggestionOut,
	})
	if err == nil {
		if parsed, ok := prompts.ParseSuggestions(resp.Text); ok {
			return parsed
		}
	}
	return prompts.SuggestionFallback
}

func allTriage(calls []ToolCall) bool {
	for _, c := range calls {
		if c.Name != triage.Tool {
			return false
		}
	}
	return true
}

func argString(args map[string]any, key string) string {
	s, _ := args[key].(string)
	return s
}
