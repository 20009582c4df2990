// Package drafts keeps in-progress booking sessions in Redis so a stepper
// survives across requests. Sessions expire after a period of inactivity.
package drafts

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/Gustavouu/unclic-manager-sub000/internal/booking"
)

const DefaultTTL = 2 * time.Hour

var ErrNotFound = errors.New("booking session not found or expired")

// Session is a stored stepper with its id.
type Session struct {
	ID      string          `json:"id"`
	Stepper booking.Stepper `json:"stepper"`
}

type Store struct {
	redis *redis.Client
	ttl   time.Duration
}

func NewStore(redisClient *redis.Client, ttl time.Duration) *Store {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Store{redis: redisClient, ttl: ttl}
}

func (s *Store) key(id string) string {
	return fmt.Sprintf("booking:draft:%s", id)
}

// Start opens a new session for businessID on the first step.
func (s *Store) Start(ctx context.Context, businessID string) (Session, error) {
	sess := Session{ID: uuid.NewString(), Stepper: booking.NewStepper(businessID)}
	if err := s.Save(ctx, sess); err != nil {
		return Session{}, err
	}
	return sess, nil
}

func (s *Store) Load(ctx context.Context, id string) (Session, error) {
	data, err := s.redis.Get(ctx, s.key(id)).Bytes()
	if err == redis.Nil {
		return Session{}, ErrNotFound
	}
	if err != nil {
		return Session{}, fmt.Errorf("drafts: get session: %w", err)
	}
	var st booking.Stepper
	if err := json.Unmarshal(data, &st); err != nil {
		return Session{}, fmt.Errorf("drafts: unmarshal session: %w", err)
	}
	return Session{ID: id, Stepper: st}, nil
}

// Save writes the session and refreshes its expiry.
func (s *Store) Save(ctx context.Context, sess Session) error {
	data, err := json.Marshal(sess.Stepper)
	if err != nil {
		return fmt.Errorf("drafts: marshal session: %w", err)
	}
	if err := s.redis.Set(ctx, s.key(sess.ID), data, s.ttl).Err(); err != nil {
		return fmt.Errorf("drafts: set session: %w", err)
	}
	return nil
}

func (s *Store) Delete(ctx context.Context, id string) error {
	if err := s.redis.Del(ctx, s.key(id)).Err(); err != nil {
		return fmt.Errorf("drafts: delete session: %w", err)
	}
	return nil
}
