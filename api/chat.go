package api

import (
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/evihealth/evi/internal/log"
	"github.com/evihealth/evi/internal/session"
)

// TriageNotice accompanies replies while triage is in progress.
const TriageNotice = "Note: This triage is experimental and not medical advice. " +
	"For urgent concerns, use NHS 111 at https://111.nhs.uk/."

// ChatRequest is one user turn. SessionID is optional; omitting it starts
// a new conversation.
type ChatRequest struct {
	Message   string `json:"message"`
	SessionID string `json:"session_id,omitempty"`
}

// LinkEntry is one useful link in a chat response.
type LinkEntry struct {
	Title string `json:"title"`
	URL   string `json:"url"`
}

// ChatResponse carries the turn's reply and the session state the
// frontend renders around it.
type ChatResponse struct {
	SessionID         string         `json:"session_id"`
	Reply             string         `json:"reply"`
	PromptSuggestions []string       `json:"prompt_suggestions"`
	UsefulLinks       []LinkEntry    `json:"useful_links"`
	UserProfile       map[string]any `json:"user_profile"`
	TriageActive      bool           `json:"triage_active"`
	TriageNotice      string         `json:"triage_notice"`
}

// ChatHandler handles the chat endpoint.
type ChatHandler struct {
	store  *session.Store
	logger log.Logger
}

// NewChatHandler creates a new chat handler.
func NewChatHandler(store *session.Store, logger log.Logger) *ChatHandler {
	return &ChatHandler{store: store, logger: logger}
}

// RegisterRoutes registers chat routes on the given mux.
func (h *ChatHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/chat", h.chat)
}

func (h *ChatHandler) chat(w http.ResponseWriter, r *http.Request) {
	var req ChatRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	message := strings.TrimSpace(req.Message)
	if message == "" {
		writeError(w, http.StatusBadRequest, "Message cannot be empty.")
		return
	}

	sess, err := resolveSession(h.store, req.SessionID)
	if err != nil {
		h.logger.Error("session create failed", "error", err)
		writeError(w, http.StatusInternalServerError, "could not create session")
		return
	}

	var (
		result       *session.TurnResult
		userProfile  map[string]any
		triageActive bool
	)
	err = h.store.WithTurnLock(sess.ID(), func(s *session.Session) error {
		var turnErr error
		result, turnErr = s.Turn(r.Context(), message)
		if turnErr != nil {
			return turnErr
		}
		userProfile = s.Profile()
		triageActive = s.TriageActive()
		return nil
	})
	if err != nil {
		h.logger.Error("turn failed", "session_id", sess.ID(), "error", err)
		writeError(w, http.StatusInternalServerError, "Agent error: "+err.Error())
		return
	}

	resp := ChatResponse{
		SessionID:         sess.ID().String(),
		Reply:             result.Reply,
		PromptSuggestions: orEmpty(result.Suggestions),
		UsefulLinks:       []LinkEntry{},
		UserProfile:       userProfile,
		TriageActive:      triageActive,
	}
	for _, l := range result.Links {
		resp.UsefulLinks = append(resp.UsefulLinks, LinkEntry{Title: l.Title, URL: l.URL})
	}
	if resp.TriageActive {
		resp.TriageNotice = TriageNotice
	}
	writeJSON(w, http.StatusOK, resp)
}

// resolveSession looks a session up by id and falls back to creating a
// fresh one when the id is absent, malformed, or unknown. The client keys
// follow-up requests off the returned session_id.
func resolveSession(store *session.Store, id string) (*session.Session, error) {
	if id != "" {
		if parsed, err := uuid.Parse(id); err == nil {
			if sess, err := store.Get(parsed); err == nil {
				return sess, nil
			}
		}
	}
	return store.Create()
}

func orEmpty(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
