package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/JetsonAtWork/incident-triage/internal/models"
	"github.com/JetsonAtWork/incident-triage/internal/service"
)

// RedisStorage keeps the serialized incident collection under a single Redis
// key. Same contract as FileStorage: one keyed entry, fully rewritten on every
// mutation, no coordination between writers.
type RedisStorage struct {
	client *redis.Client
	key    string
}

func NewRedisStorage(client *redis.Client, key string) service.IncidentStorage {
	return &RedisStorage{
		client: client,
		key:    key,
	}
}

// Load reads the collection from the store key. A missing key yields an empty
// collection.
func (s *RedisStorage) Load(ctx context.Context) ([]models.Incident, error) {
	val, err := s.client.Get(ctx, s.key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return []models.Incident{}, nil
		}
		return nil, fmt.Errorf("failed to read incident store key %q: %w", s.key, err)
	}

	incidents := make([]models.Incident, 0)
	if err := json.Unmarshal(val, &incidents); err != nil {
		return nil, fmt.Errorf("failed to parse incident store key %q: %w", s.key, err)
	}
	return incidents, nil
}

// Save overwrites the store key with the given collection. The entry does not
// expire; deletion of incidents is only ever explicit.
func (s *RedisStorage) Save(ctx context.Context, incidents []models.Incident) error {
	val, err := json.Marshal(incidents)
	if err != nil {
		return fmt.Errorf("failed to marshal incidents: %w", err)
	}
	if err := s.client.Set(ctx, s.key, val, 0).Err(); err != nil {
		return fmt.Errorf("failed to write incident store key %q: %w", s.key, err)
	}
	return nil
}
