package handlers

import (
	"net/http"

	"pdfchat-backend/internal/middleware"
	"pdfchat-backend/internal/models"
	"pdfchat-backend/internal/services"
)

type SessionHandler struct {
	chat *services.ChatService
	auth *middleware.SessionAuth
}

func NewSessionHandler(chat *services.ChatService, auth *middleware.SessionAuth) *SessionHandler {
	return &SessionHandler{chat: chat, auth: auth}
}

func (h *SessionHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req models.CreateSessionRequest
	if err := decodeOptionalJSON(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid request body", r))
		return
	}

	session, err := h.chat.StartSession(r.Context(), req.Model)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	token, err := h.auth.IssueToken(session.ID)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Failed to issue session token", r))
		return
	}
	h.auth.SetCookie(w, token)

	writeJSON(w, http.StatusCreated, models.CreateSessionResponse{Token: token, Session: session})
}

func (h *SessionHandler) Get(w http.ResponseWriter, r *http.Request) {
	session, err := h.chat.GetSession(r.Context(), middleware.GetSessionID(r.Context()))
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, session)
}

func (h *SessionHandler) UpdateSettings(w http.ResponseWriter, r *http.Request) {
	var req models.UpdateSettingsRequest
	if err := decodeOptionalJSON(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid request body", r))
		return
	}

	session, err := h.chat.Configure(r.Context(), middleware.GetSessionID(r.Context()), req.Model, req.APIKey)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, session)
}

func (h *SessionHandler) Reset(w http.ResponseWriter, r *http.Request) {
	turns, err := h.chat.Reset(r.Context(), middleware.GetSessionID(r.Context()))
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"turns": turns})
}

func (h *SessionHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.chat.EndSession(r.Context(), middleware.GetSessionID(r.Context())); err != nil {
		handleServiceError(w, r, err)
		return
	}
	h.auth.ClearCookie(w)
	writeJSON(w, http.StatusOK, map[string]string{"message": "Session ended"})
}
