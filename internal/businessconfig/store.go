// Package businessconfig persists per-business scheduling settings in Redis.
package businessconfig

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/Gustavouu/unclic-manager-sub000/internal/scheduling"
)

var ErrInvalidSettings = errors.New("invalid business settings")

// Store provides persistence for business settings.
type Store struct {
	redis    *redis.Client
	defaults scheduling.Settings
}

// NewStore creates a settings store. defaults is returned for businesses that
// never saved their own settings.
func NewStore(redisClient *redis.Client, defaults scheduling.Settings) *Store {
	return &Store{redis: redisClient, defaults: defaults}
}

func (s *Store) key(businessID string) string {
	return fmt.Sprintf("business:settings:%s", businessID)
}

// Settings retrieves the business settings, returning the defaults if none
// were saved.
func (s *Store) Settings(ctx context.Context, businessID string) (scheduling.Settings, error) {
	data, err := s.redis.Get(ctx, s.key(businessID)).Bytes()
	if err == redis.Nil {
		return s.defaultsCopy(), nil
	}
	if err != nil {
		return scheduling.Settings{}, fmt.Errorf("businessconfig: get settings: %w", err)
	}

	var cfg scheduling.Settings
	if err := json.Unmarshal(data, &cfg); err != nil {
		return scheduling.Settings{}, fmt.Errorf("businessconfig: unmarshal settings: %w", err)
	}
	return cfg, nil
}

// Save validates and stores the business settings.
func (s *Store) Save(ctx context.Context, businessID string, cfg scheduling.Settings) error {
	if err := Validate(cfg); err != nil {
		return err
	}
	data, err := json.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("businessconfig: marshal settings: %w", err)
	}
	if err := s.redis.Set(ctx, s.key(businessID), data, 0).Err(); err != nil {
		return fmt.Errorf("businessconfig: set settings: %w", err)
	}
	return nil
}

func (s *Store) defaultsCopy() scheduling.Settings {
	out := s.defaults
	out.BusinessHours = make(scheduling.BusinessHours, len(s.defaults.BusinessHours))
	for day, hours := range s.defaults.BusinessHours {
		out.BusinessHours[day] = hours
	}
	return out
}

// Validate rejects settings the scheduler cannot work with. Closed days may
// carry any hours; enabled days need a well-formed window.
func Validate(cfg scheduling.Settings) error {
	for day, hours := range cfg.BusinessHours {
		if day < time.Sunday || day > time.Saturday {
			return fmt.Errorf("%w: unknown weekday %d", ErrInvalidSettings, day)
		}
		if !hours.Enabled {
			continue
		}
		start, errStart := scheduling.ParseClock(hours.Start)
		end, errEnd := scheduling.ParseClock(hours.End)
		if errStart != nil || errEnd != nil {
			return fmt.Errorf("%w: %s hours must be HH:MM", ErrInvalidSettings, day)
		}
		if end <= start {
			return fmt.Errorf("%w: %s closes before it opens", ErrInvalidSettings, day)
		}
	}
	if cfg.MinAdvanceMinutes < 0 {
		return fmt.Errorf("%w: min advance minutes cannot be negative", ErrInvalidSettings)
	}
	if cfg.MaxFutureDays < 0 {
		return fmt.Errorf("%w: max future days cannot be negative", ErrInvalidSettings)
	}
	if cfg.SlotIntervalMinutes < 0 || cfg.SlotIntervalMinutes > 24*60 {
		return fmt.Errorf("%w: slot interval out of range", ErrInvalidSettings)
	}
	if cfg.Timezone != "" {
		if _, err := time.LoadLocation(cfg.Timezone); err != nil {
			return fmt.Errorf("%w: unknown timezone %q", ErrInvalidSettings, cfg.Timezone)
		}
	}
	return nil
}
