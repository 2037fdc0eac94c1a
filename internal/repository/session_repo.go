package repository

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"pdfchat-backend/internal/models"
)

var ErrSessionNotFound = errors.New("session not found")

// SessionStore keeps one ordered turn list per chat session.
type SessionStore interface {
	Create(ctx context.Context, s *models.Session) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Session, error)
	Turns(ctx context.Context, id uuid.UUID) ([]models.ChatTurn, error)
	AppendTurn(ctx context.Context, id uuid.UUID, turn models.ChatTurn) error
	Reset(ctx context.Context, id uuid.UUID) ([]models.ChatTurn, error)
	UpdateSettings(ctx context.Context, id uuid.UUID, model, credential *string) error
	Delete(ctx context.Context, id uuid.UUID) error
}

// MemorySessionRepo holds sessions in process memory. Sessions idle for
// longer than ttl are evicted; everything is lost on restart.
type MemorySessionRepo struct {
	mu       sync.RWMutex
	sessions map[uuid.UUID]*models.Session
	ttl      time.Duration
	now      func() time.Time
	stop     chan struct{}
	stopOnce sync.Once
}

func NewMemorySessionRepo(ttl time.Duration) *MemorySessionRepo {
	r := &MemorySessionRepo{
		sessions: make(map[uuid.UUID]*models.Session),
		ttl:      ttl,
		now:      time.Now,
		stop:     make(chan struct{}),
	}

	// Cleanup goroutine
	go func() {
		ticker := time.NewTicker(ttl)
		defer ticker.Stop()
		for {
			select {
			case <-r.stop:
				return
			case <-ticker.C:
				r.evictExpired()
			}
		}
	}()

	return r
}

// Close stops the cleanup goroutine.
func (r *MemorySessionRepo) Close() {
	r.stopOnce.Do(func() { close(r.stop) })
}

func (r *MemorySessionRepo) evictExpired() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	evicted := 0
	for id, s := range r.sessions {
		if r.now().Sub(s.UpdatedAt) > r.ttl {
			delete(r.sessions, id)
			evicted++
		}
	}
	return evicted
}

func (r *MemorySessionRepo) Create(_ context.Context, s *models.Session) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	now := r.now().UTC()
	s.CreatedAt = now
	s.UpdatedAt = now
	if len(s.Turns) == 0 {
		s.Turns = models.SeedTurns()
	}
	s.HasCredential = s.Credential != ""

	r.mu.Lock()
	r.sessions[s.ID] = s.Clone()
	r.mu.Unlock()

	return nil
}

func (r *MemorySessionRepo) GetByID(_ context.Context, id uuid.UUID) (*models.Session, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, ok := r.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return s.Clone(), nil
}

func (r *MemorySessionRepo) Turns(ctx context.Context, id uuid.UUID) ([]models.ChatTurn, error) {
	s, err := r.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.Turns, nil
}

func (r *MemorySessionRepo) AppendTurn(_ context.Context, id uuid.UUID, turn models.ChatTurn) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sessions[id]
	if !ok {
		return ErrSessionNotFound
	}
	s.Turns = append(s.Turns, turn)
	s.UpdatedAt = r.now().UTC()
	return nil
}

func (r *MemorySessionRepo) Reset(_ context.Context, id uuid.UUID) ([]models.ChatTurn, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	s.Turns = models.SeedTurns()
	s.UpdatedAt = r.now().UTC()
	return models.SeedTurns(), nil
}

func (r *MemorySessionRepo) UpdateSettings(_ context.Context, id uuid.UUID, model, credential *string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sessions[id]
	if !ok {
		return ErrSessionNotFound
	}
	if model != nil {
		s.Model = *model
	}
	if credential != nil {
		s.Credential = *credential
		s.HasCredential = *credential != ""
	}
	s.UpdatedAt = r.now().UTC()
	return nil
}

func (r *MemorySessionRepo) Delete(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.sessions[id]; !ok {
		return ErrSessionNotFound
	}
	delete(r.sessions, id)
	return nil
}
