// Package session хранит серверные сессии пользователей и выдает
// подписанную cookie, по которой сессия находится в хранилище.
package session

import (
	"context"
	"errors"
	"time"
)

// Session - серверная сессия пользователя.
type Session struct {
	ID        string    `json:"id"`
	UserID    int64     `json:"userId"`
	CreatedAt time.Time `json:"createdAt"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// Expired сообщает, истекла ли сессия к моменту now.
func (s *Session) Expired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}

// Store - хранилище сессий.
type Store interface {
	// Save сохраняет сессию до s.ExpiresAt, перезаписывая существующую.
	Save(ctx context.Context, s *Session) error
	// Get возвращает ErrNotFound для отсутствующей или истекшей сессии.
	Get(ctx context.Context, id string) (*Session, error)
	Delete(ctx context.Context, id string) error
}

// ErrNotFound - сессия не найдена или истекла.
var ErrNotFound = errors.New("сессия не найдена")
