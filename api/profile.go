package api

import (
	"net/http"

	"github.com/evihealth/evi/internal/log"
	"github.com/evihealth/evi/internal/profile"
	"github.com/evihealth/evi/internal/session"
)

// ProfileRequest replaces a session's stored profile.
type ProfileRequest struct {
	SessionID string         `json:"session_id,omitempty"`
	Profile   map[string]any `json:"profile"`
}

// ProfileResponse echoes the stored profile after derivation.
type ProfileResponse struct {
	SessionID   string         `json:"session_id"`
	UserProfile map[string]any `json:"user_profile"`
}

// ProfileHandler handles profile endpoints.
type ProfileHandler struct {
	store  *session.Store
	logger log.Logger
}

// NewProfileHandler creates a new profile handler.
func NewProfileHandler(store *session.Store, logger log.Logger) *ProfileHandler {
	return &ProfileHandler{store: store, logger: logger}
}

// RegisterRoutes registers profile routes on the given mux.
func (h *ProfileHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/profile", h.update)
	mux.HandleFunc("GET /api/profile", h.get)
}

func (h *ProfileHandler) update(w http.ResponseWriter, r *http.Request) {
	var req ProfileRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Profile == nil {
		writeError(w, http.StatusBadRequest, "Profile must be an object.")
		return
	}

	sess, err := resolveSession(h.store, req.SessionID)
	if err != nil {
		h.logger.Error("session create failed", "error", err)
		writeError(w, http.StatusInternalServerError, "could not create session")
		return
	}

	var userProfile map[string]any
	err = h.store.WithTurnLock(sess.ID(), func(s *session.Session) error {
		s.SetProfile(profile.Profile(req.Profile))
		userProfile = s.Profile()
		return nil
	})
	if err != nil {
		writeError(w, http.StatusInternalServerError, "could not update profile")
		return
	}

	writeJSON(w, http.StatusOK, ProfileResponse{
		SessionID:   sess.ID().String(),
		UserProfile: userProfile,
	})
}

func (h *ProfileHandler) get(w http.ResponseWriter, r *http.Request) {
	sess, err := resolveSession(h.store, r.URL.Query().Get("session_id"))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "could not create session")
		return
	}

	var userProfile map[string]any
	if err := h.store.WithTurnLock(sess.ID(), func(s *session.Session) error {
		userProfile = s.Profile()
		return nil
	}); err != nil {
		writeError(w, http.StatusInternalServerError, "could not read profile")
		return
	}
	writeJSON(w, http.StatusOK, ProfileResponse{
		SessionID:   sess.ID().String(),
		UserProfile: userProfile,
	})
}
