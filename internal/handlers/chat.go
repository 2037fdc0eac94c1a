package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"pdfchat-backend/internal/middleware"
	"pdfchat-backend/internal/models"
	"pdfchat-backend/internal/services"
)

// multipart framing allowance on top of the file size limit
const multipartOverhead = 1 << 20

type ChatHandler struct {
	chat           *services.ChatService
	maxUploadBytes int64
}

func NewChatHandler(chat *services.ChatService, maxUploadBytes int64) *ChatHandler {
	return &ChatHandler{chat: chat, maxUploadBytes: maxUploadBytes}
}

func (h *ChatHandler) SendMessage(w http.ResponseWriter, r *http.Request) {
	var req models.SendMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid request body", r))
		return
	}

	sessionID := middleware.GetSessionID(r.Context())
	reply, err := h.chat.SendPrompt(r.Context(), sessionID, req.Prompt)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	h.writeReply(w, r, reply)
}

func (h *ChatHandler) UploadDocument(w http.ResponseWriter, r *http.Request) {
	tooLarge := fmt.Sprintf("File size exceeds %dMB limit", h.maxUploadBytes>>20)

	if r.ContentLength > h.maxUploadBytes+multipartOverhead {
		writeJSON(w, http.StatusRequestEntityTooLarge, errorResp("FILE_TOO_LARGE", tooLarge, r))
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes+multipartOverhead)

	file, header, err := r.FormFile("file")
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			writeJSON(w, http.StatusRequestEntityTooLarge, errorResp("FILE_TOO_LARGE", tooLarge, r))
			return
		}
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "No file provided", r))
		return
	}
	defer file.Close()

	if header.Size > h.maxUploadBytes {
		writeJSON(w, http.StatusRequestEntityTooLarge, errorResp("FILE_TOO_LARGE", tooLarge, r))
		return
	}

	data, err := io.ReadAll(file)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Failed to read file", r))
		return
	}

	// magic byte check on the first 512 bytes
	head := data
	if len(head) > 512 {
		head = head[:512]
	}
	if !services.IsPDF(head, header.Filename) {
		handleServiceError(w, r, &services.UnsupportedMediaError{Message: "Only PDF files are supported"})
		return
	}

	sessionID := middleware.GetSessionID(r.Context())
	reply, err := h.chat.AnalyzePDF(r.Context(), sessionID, data)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	h.writeReply(w, r, reply)
}

func (h *ChatHandler) writeReply(w http.ResponseWriter, r *http.Request, reply *models.ChatTurn) {
	session, err := h.chat.GetSession(r.Context(), middleware.GetSessionID(r.Context()))
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, models.SendMessageResponse{
		Reply: *reply,
		Turns: session.Turns,
	})
}
