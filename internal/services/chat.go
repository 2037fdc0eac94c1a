package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"pdfchat-backend/internal/models"
	"pdfchat-backend/internal/repository"
)

// EventPublisher pushes conversation state changes to connected widgets.
type EventPublisher interface {
	Publish(ctx context.Context, sessionID uuid.UUID, msg models.WSMessage)
}

type noopPublisher struct{}

func (noopPublisher) Publish(context.Context, uuid.UUID, models.WSMessage) {}

// TextExtractor pulls plain text out of an uploaded document.
type TextExtractor interface {
	ExtractPDF(data []byte) (string, error)
}

type ChatService struct {
	sessions     repository.SessionStore
	completer    Completer
	extractor    TextExtractor
	events       EventPublisher
	defaultModel string
	logger       *zap.Logger
}

func NewChatService(
	sessions repository.SessionStore,
	completer Completer,
	extractor TextExtractor,
	events EventPublisher,
	defaultModel string,
	logger *zap.Logger,
) *ChatService {
	if events == nil {
		events = noopPublisher{}
	}
	if _, ok := models.LookupModel(defaultModel); !ok {
		defaultModel = models.Catalog[0].ID
	}
	return &ChatService{
		sessions:     sessions,
		completer:    completer,
		extractor:    extractor,
		events:       events,
		defaultModel: defaultModel,
		logger:       logger,
	}
}

func (s *ChatService) DefaultModel() string {
	return s.defaultModel
}

// StartSession creates a session holding only the greeting.
func (s *ChatService) StartSession(ctx context.Context, model string) (*models.Session, error) {
	if model == "" {
		model = s.defaultModel
	}
	if _, ok := models.LookupModel(model); !ok {
		return nil, &ValidationError{Fields: map[string]string{"model": "Unknown model " + model}}
	}

	session := &models.Session{Model: model}
	if err := s.sessions.Create(ctx, session); err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	s.logger.Info("session started", zap.String("session_id", session.ID.String()), zap.String("model", model))
	return session.Clone(), nil
}

func (s *ChatService) GetSession(ctx context.Context, id uuid.UUID) (*models.Session, error) {
	session, err := s.sessions.GetByID(ctx, id)
	if err != nil {
		return nil, s.storeError(err)
	}
	return session, nil
}

// Configure changes the selected model and/or the API credential.
func (s *ChatService) Configure(ctx context.Context, id uuid.UUID, model, credential *string) (*models.Session, error) {
	if model != nil {
		if _, ok := models.LookupModel(*model); !ok {
			return nil, &ValidationError{Fields: map[string]string{"model": "Unknown model " + *model}}
		}
	}
	if credential != nil {
		trimmed := strings.TrimSpace(*credential)
		credential = &trimmed
	}

	if err := s.sessions.UpdateSettings(ctx, id, model, credential); err != nil {
		return nil, s.storeError(err)
	}
	return s.GetSession(ctx, id)
}

// Reset clears the conversation back to the greeting.
func (s *ChatService) Reset(ctx context.Context, id uuid.UUID) ([]models.ChatTurn, error) {
	turns, err := s.sessions.Reset(ctx, id)
	if err != nil {
		return nil, s.storeError(err)
	}
	return turns, nil
}

func (s *ChatService) EndSession(ctx context.Context, id uuid.UUID) error {
	if err := s.sessions.Delete(ctx, id); err != nil {
		return s.storeError(err)
	}
	return nil
}

// SendPrompt appends the prompt as a user turn and asks the model for a reply.
// On failure the user turn stays as the last turn.
func (s *ChatService) SendPrompt(ctx context.Context, id uuid.UUID, prompt string) (*models.ChatTurn, error) {
	if strings.TrimSpace(prompt) == "" {
		return nil, &ValidationError{Fields: map[string]string{"prompt": "Prompt is required"}}
	}

	session, err := s.readySession(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := s.sessions.AppendTurn(ctx, id, models.ChatTurn{Role: models.RoleUser, Content: prompt}); err != nil {
		return nil, s.storeError(err)
	}

	return s.respond(ctx, session, prompt)
}

// AnalyzePDF extracts the document text and asks the model to summarize it.
// Nothing is appended if extraction fails.
func (s *ChatService) AnalyzePDF(ctx context.Context, id uuid.UUID, data []byte) (*models.ChatTurn, error) {
	session, err := s.readySession(ctx, id)
	if err != nil {
		return nil, err
	}

	text, err := s.extractor.ExtractPDF(data)
	if err != nil {
		s.logger.Warn("pdf extraction failed", zap.String("session_id", id.String()), zap.Error(err))
		s.publishState(ctx, session, models.StateErrorReported, len(session.Turns), err)
		return nil, err
	}

	if err := s.sessions.AppendTurn(ctx, id, models.ChatTurn{Role: models.RoleUser, Content: models.PDFUploadNotice}); err != nil {
		return nil, s.storeError(err)
	}

	return s.respond(ctx, session, buildPDFPrompt(text))
}

func (s *ChatService) readySession(ctx context.Context, id uuid.UUID) (*models.Session, error) {
	session, err := s.sessions.GetByID(ctx, id)
	if err != nil {
		return nil, s.storeError(err)
	}
	if session.Credential == "" {
		return nil, &CredentialRequiredError{}
	}
	return session, nil
}

// respond runs CallingModel and then AssistantTurnAppended or ErrorReported.
// session.Turns is the transcript before the user turn was appended.
func (s *ChatService) respond(ctx context.Context, session *models.Session, prompt string) (*models.ChatTurn, error) {
	turnCount := len(session.Turns) + 1
	s.publishState(ctx, session, models.StateCallingModel, turnCount, nil)

	reply, err := s.completer.Complete(ctx, prompt, session.Model, session.Credential)
	if err != nil {
		s.logger.Warn("completion failed",
			zap.String("session_id", session.ID.String()),
			zap.String("model", session.Model),
			zap.Error(err),
		)
		s.publishState(ctx, session, models.StateErrorReported, turnCount, err)
		return nil, err
	}

	turn := models.ChatTurn{Role: models.RoleAssistant, Content: reply}
	if err := s.sessions.AppendTurn(ctx, session.ID, turn); err != nil {
		err = s.storeError(err)
		s.publishState(ctx, session, models.StateErrorReported, turnCount, err)
		return nil, err
	}

	s.publishState(ctx, session, models.StateAssistantTurnAppended, turnCount+1, nil)
	return &turn, nil
}

func (s *ChatService) publishState(ctx context.Context, session *models.Session, state string, turnCount int, err error) {
	update := models.StatusUpdate{
		SessionID: session.ID,
		State:     state,
		Model:     session.Model,
		TurnCount: turnCount,
	}
	if err != nil {
		update.Error = err.Error()
	}
	s.events.Publish(ctx, session.ID, models.WSMessage{Type: "status_update", Payload: update})
}

func (s *ChatService) storeError(err error) error {
	if errors.Is(err, repository.ErrSessionNotFound) {
		return &NotFoundError{Message: "Session not found or expired"}
	}
	return err
}

func buildPDFPrompt(text string) string {
	var b strings.Builder
	b.WriteString("The following is the content of the PDF file:\n")
	b.WriteString(text)
	b.WriteString("\n\nPlease analyze it and give me a brief and concise summary or answer questions based on the content.")
	return b.String()
}
