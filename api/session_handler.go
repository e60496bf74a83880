package api

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/lensora/tryon-backend/models"
	"github.com/lensora/tryon-backend/utils"
)

// SessionListResponse is the paginated try-on history payload
type SessionListResponse struct {
	Sessions    []models.TryOn `json:"sessions"`
	Total       int64          `json:"total"`
	CurrentPage int            `json:"current_page"`
	TotalPages  int            `json:"total_pages"`
}

// List handles GET /api/tryon/sessions: the requester's try-on history,
// newest first, paginated via ?page= and ?limit=.
func (h *TryOnHandler) List(w http.ResponseWriter, r *http.Request) {
	var logMessageBuilder strings.Builder
	defer func() {
		fmt.Println(logMessageBuilder.String())
	}()
	utils.AddToLogMessage(&logMessageBuilder, "[Try-On History API]")

	if r.Method != http.MethodGet {
		utils.RespondError(w, &logMessageBuilder, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	userID, err := GetUserIDFromContext(r.Context())
	if err != nil {
		utils.RespondError(w, &logMessageBuilder, "Unauthorized", http.StatusUnauthorized)
		return
	}

	page := 1
	limit := 10
	if p, err := strconv.Atoi(r.URL.Query().Get("page")); err == nil && p > 0 {
		page = p
	}
	if l, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil && l > 0 {
		limit = l
	}

	sessions, total, err := h.Service.List(r.Context(), userID, page, limit)
	if err != nil {
		respondPipelineError(w, &logMessageBuilder, err)
		return
	}

	for i := range sessions {
		sessions[i] = presignSession(r.Context(), sessions[i])
	}

	// Ensure empty slice is returned as [] instead of null
	if sessions == nil {
		sessions = []models.TryOn{}
	}

	totalPages := 0
	if total > 0 {
		totalPages = int((total + int64(limit) - 1) / int64(limit))
	}

	utils.AddToLogMessage(&logMessageBuilder, fmt.Sprintf("Listed %d of %d sessions for user %s", len(sessions), total, userID))

	utils.RespondJSON(w, http.StatusOK, SessionListResponse{
		Sessions:    sessions,
		Total:       total,
		CurrentPage: page,
		TotalPages:  totalPages,
	})
}

// Session handles GET and DELETE on /api/tryon/sessions/{id}. Both
// require the session to belong to the requester.
func (h *TryOnHandler) Session(w http.ResponseWriter, r *http.Request) {
	var logMessageBuilder strings.Builder
	defer func() {
		fmt.Println(logMessageBuilder.String())
	}()
	utils.AddToLogMessage(&logMessageBuilder, "[Try-On Session API]")

	userID, err := GetUserIDFromContext(r.Context())
	if err != nil {
		utils.RespondError(w, &logMessageBuilder, "Unauthorized", http.StatusUnauthorized)
		return
	}

	sessionID := r.PathValue("id")
	if sessionID == "" {
		utils.RespondError(w, &logMessageBuilder, "Session id is required", http.StatusBadRequest)
		return
	}

	switch r.Method {
	case http.MethodGet:
		session, err := h.Service.Get(r.Context(), userID, sessionID)
		if err != nil {
			respondPipelineError(w, &logMessageBuilder, err)
			return
		}
		utils.RespondJSON(w, http.StatusOK, map[string]interface{}{
			"session": presignSession(r.Context(), *session),
		})

	case http.MethodDelete:
		if err := h.Service.Delete(r.Context(), userID, sessionID); err != nil {
			respondPipelineError(w, &logMessageBuilder, err)
			return
		}
		utils.AddToLogMessage(&logMessageBuilder, fmt.Sprintf("Deleted session %s", sessionID))
		utils.RespondJSON(w, http.StatusOK, map[string]string{
			"message": "Virtual try-on session deleted successfully",
		})

	default:
		utils.RespondError(w, &logMessageBuilder, "Method not allowed", http.StatusMethodNotAllowed)
	}
}
