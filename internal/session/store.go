// Package session реализует хранение пользовательских сессий в Redis.
//
// Сессии хранятся во внешнем общем хранилище, а не в памяти процесса,
// поэтому несколько экземпляров сервиса видят один и тот же набор сессий.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/mmeshcher/franchise-hub/internal/model"
)

// TTL задаёт время жизни сессии. Окно скользящее: каждое успешно
// авторизованное обращение продлевает его.
const TTL = 24 * time.Hour

const keyPrefix = "session:"

// ErrSessionNotFound возвращается, если сессия отсутствует или истекла.
var ErrSessionNotFound = errors.New("session not found")

// Store сохраняет сессии в Redis с автоматическим истечением по TTL.
type Store struct {
	client *redis.Client
}

// NewStore создаёт хранилище сессий поверх Redis по указанному адресу.
func NewStore(ctx context.Context, addr string) (*Store, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         addr,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("ping redis: %w", err)
	}

	return &Store{client: client}, nil
}

// NewStoreWithClient создаёт хранилище поверх готового клиента Redis.
func NewStoreWithClient(client *redis.Client) *Store {
	return &Store{client: client}
}

// Close закрывает соединение с Redis.
func (s *Store) Close() error {
	return s.client.Close()
}

// Create создаёт новую сессию для указанной роли и email и возвращает её.
func (s *Store) Create(ctx context.Context, role model.Role, email string) (*model.Session, error) {
	sess := &model.Session{
		ID:        uuid.NewString(),
		Role:      role,
		Email:     email,
		CreatedAt: time.Now().UTC(),
	}

	payload, err := json.Marshal(sess)
	if err != nil {
		return nil, fmt.Errorf("marshal session: %w", err)
	}

	if err := s.client.Set(ctx, keyPrefix+sess.ID, payload, TTL).Err(); err != nil {
		return nil, fmt.Errorf("store session: %w", err)
	}

	return sess, nil
}

// Get возвращает сессию по идентификатору и продлевает её TTL.
func (s *Store) Get(ctx context.Context, id string) (*model.Session, error) {
	payload, err := s.client.Get(ctx, keyPrefix+id).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("load session: %w", err)
	}

	var sess model.Session
	if err := json.Unmarshal(payload, &sess); err != nil {
		return nil, fmt.Errorf("unmarshal session: %w", err)
	}

	// Скользящее окно: обращение к сессии продлевает её жизнь.
	if err := s.client.Expire(ctx, keyPrefix+id, TTL).Err(); err != nil {
		return nil, fmt.Errorf("refresh session ttl: %w", err)
	}

	return &sess, nil
}

// Delete удаляет сессию. Отсутствующая сессия не считается ошибкой.
func (s *Store) Delete(ctx context.Context, id string) error {
	if err := s.client.Del(ctx, keyPrefix+id).Err(); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}
