package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"pdfchat-backend/internal/models"
)

// RedisSessionRepo stores session metadata in a hash and turns in a list,
// both expiring ttl after the last write.
type RedisSessionRepo struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisSessionRepo(client *redis.Client, ttl time.Duration) *RedisSessionRepo {
	return &RedisSessionRepo{client: client, ttl: ttl}
}

func metaKey(id uuid.UUID) string  { return "chat_session:" + id.String() }
func turnsKey(id uuid.UUID) string { return "chat_session:" + id.String() + ":turns" }

func encodeTurns(turns []models.ChatTurn) ([]interface{}, error) {
	out := make([]interface{}, len(turns))
	for i, t := range turns {
		b, err := json.Marshal(t)
		if err != nil {
			return nil, err
		}
		out[i] = string(b)
	}
	return out, nil
}

func (r *RedisSessionRepo) Create(ctx context.Context, s *models.Session) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	now := time.Now().UTC()
	s.CreatedAt = now
	s.UpdatedAt = now
	if len(s.Turns) == 0 {
		s.Turns = models.SeedTurns()
	}
	s.HasCredential = s.Credential != ""

	turns, err := encodeTurns(s.Turns)
	if err != nil {
		return fmt.Errorf("failed to encode turns: %w", err)
	}

	_, err = r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, metaKey(s.ID),
			"model", s.Model,
			"credential", s.Credential,
			"created_at", now.Format(time.RFC3339Nano),
			"updated_at", now.Format(time.RFC3339Nano),
		)
		pipe.RPush(ctx, turnsKey(s.ID), turns...)
		pipe.Expire(ctx, metaKey(s.ID), r.ttl)
		pipe.Expire(ctx, turnsKey(s.ID), r.ttl)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to create session: %w", err)
	}
	return nil
}

func (r *RedisSessionRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Session, error) {
	meta, err := r.client.HGetAll(ctx, metaKey(id)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to load session: %w", err)
	}
	if len(meta) == 0 {
		return nil, ErrSessionNotFound
	}

	turns, err := r.loadTurns(ctx, id)
	if err != nil {
		return nil, err
	}

	s := &models.Session{
		ID:            id,
		Model:         meta["model"],
		Credential:    meta["credential"],
		HasCredential: meta["credential"] != "",
		Turns:         turns,
	}
	s.CreatedAt, _ = time.Parse(time.RFC3339Nano, meta["created_at"])
	s.UpdatedAt, _ = time.Parse(time.RFC3339Nano, meta["updated_at"])
	return s, nil
}

func (r *RedisSessionRepo) loadTurns(ctx context.Context, id uuid.UUID) ([]models.ChatTurn, error) {
	raw, err := r.client.LRange(ctx, turnsKey(id), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to load turns: %w", err)
	}

	turns := make([]models.ChatTurn, 0, len(raw))
	for _, item := range raw {
		var t models.ChatTurn
		if err := json.Unmarshal([]byte(item), &t); err != nil {
			return nil, fmt.Errorf("failed to decode turn: %w", err)
		}
		turns = append(turns, t)
	}
	return turns, nil
}

func (r *RedisSessionRepo) exists(ctx context.Context, id uuid.UUID) error {
	n, err := r.client.Exists(ctx, metaKey(id)).Result()
	if err != nil {
		return fmt.Errorf("failed to check session: %w", err)
	}
	if n == 0 {
		return ErrSessionNotFound
	}
	return nil
}

func (r *RedisSessionRepo) Turns(ctx context.Context, id uuid.UUID) ([]models.ChatTurn, error) {
	if err := r.exists(ctx, id); err != nil {
		return nil, err
	}
	return r.loadTurns(ctx, id)
}

func (r *RedisSessionRepo) AppendTurn(ctx context.Context, id uuid.UUID, turn models.ChatTurn) error {
	if err := r.exists(ctx, id); err != nil {
		return err
	}

	b, err := json.Marshal(turn)
	if err != nil {
		return fmt.Errorf("failed to encode turn: %w", err)
	}

	_, err = r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.RPush(ctx, turnsKey(id), string(b))
		r.touch(ctx, pipe, id)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to append turn: %w", err)
	}
	return nil
}

func (r *RedisSessionRepo) Reset(ctx context.Context, id uuid.UUID) ([]models.ChatTurn, error) {
	if err := r.exists(ctx, id); err != nil {
		return nil, err
	}

	seed := models.SeedTurns()
	turns, err := encodeTurns(seed)
	if err != nil {
		return nil, fmt.Errorf("failed to encode turns: %w", err)
	}

	_, err = r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, turnsKey(id))
		pipe.RPush(ctx, turnsKey(id), turns...)
		r.touch(ctx, pipe, id)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to reset session: %w", err)
	}
	return seed, nil
}

func (r *RedisSessionRepo) UpdateSettings(ctx context.Context, id uuid.UUID, model, credential *string) error {
	if err := r.exists(ctx, id); err != nil {
		return err
	}

	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		if model != nil {
			pipe.HSet(ctx, metaKey(id), "model", *model)
		}
		if credential != nil {
			pipe.HSet(ctx, metaKey(id), "credential", *credential)
		}
		r.touch(ctx, pipe, id)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to update session: %w", err)
	}
	return nil
}

func (r *RedisSessionRepo) Delete(ctx context.Context, id uuid.UUID) error {
	n, err := r.client.Del(ctx, metaKey(id), turnsKey(id)).Result()
	if err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	if n == 0 {
		return ErrSessionNotFound
	}
	return nil
}

func (r *RedisSessionRepo) touch(ctx context.Context, pipe redis.Pipeliner, id uuid.UUID) {
	pipe.HSet(ctx, metaKey(id), "updated_at", time.Now().UTC().Format(time.RFC3339Nano))
	pipe.Expire(ctx, metaKey(id), r.ttl)
	pipe.Expire(ctx, turnsKey(id), r.ttl)
}
