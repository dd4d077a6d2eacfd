// Package events публикует доменные события в RabbitMQ.
package events

import (
	"context"
	"time"
)

// Ключи маршрутизации доменных событий.
const (
	FocusSessionCompleted = "focus.session.completed"
	HabitEntryCreated     = "habit.entry.created"
	JournalEntryCreated   = "journal.entry.created"
	RitualCompleted       = "ritual.completed"
	SubscriptionUpdated   = "billing.subscription.updated"
)

// Event - конверт доменного события.
type Event struct {
	Type       string    `json:"type"`
	UserID     int64     `json:"userId"`
	OccurredAt time.Time `json:"occurredAt"`
	Data       any       `json:"data,omitempty"`
}

// New создает событие с текущим временем.
func New(eventType string, userID int64, data any) Event {
	return Event{Type: eventType, UserID: userID, OccurredAt: time.Now().UTC(), Data: data}
}

// Publisher публикует события. Ошибка публикации не должна ломать запрос:
// вызывающий ее логирует и продолжает работу.
type Publisher interface {
	Publish(ctx context.Context, event Event) error
	Close() error
}

// Noop - публикатор, который ничего не делает. Используется, если брокер не настроен.
type Noop struct{}

func (Noop) Publish(context.Context, Event) error { return nil }

func (Noop) Close() error { return nil }
