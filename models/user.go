package models

import "time"

// Статусы подписки пользователя. Совпадают со статусами Stripe,
// плюс SubscriptionNone для пользователей без подписки.
const (
	SubscriptionNone       = "none"
	SubscriptionActive     = "active"
	SubscriptionTrialing   = "trialing"
	SubscriptionPastDue    = "past_due"
	SubscriptionCanceled   = "canceled"
	SubscriptionIncomplete = "incomplete"
)

// User представляет пользователя системы.
// Тэги `db` используются для маппинга с полями БД с помощью sqlx.
// Тэги `json` используются для (де)сериализации JSON.
type User struct {
	ID                   int64     `db:"id" json:"id"`
	Email                string    `db:"email" json:"email"`
	PasswordHash         string    `db:"password_hash" json:"-"` // Не отправляем хеш пароля в JSON
	FirstName            string    `db:"first_name" json:"firstName"`
	LastName             string    `db:"last_name" json:"lastName"`
	StripeCustomerID     *string   `db:"stripe_customer_id" json:"-"`
	StripeSubscriptionID *string   `db:"stripe_subscription_id" json:"-"`
	SubscriptionStatus   string    `db:"subscription_status" json:"subscriptionStatus"`
	CreatedAt            time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt            time.Time `db:"updated_at" json:"updatedAt"`
}

// RegisterRequest представляет тело запроса на регистрацию.
type RegisterRequest struct {
	Email     string `json:"email" validate:"required,email,max=254"`
	Password  string `json:"password" validate:"required,min=8,max=128"`
	FirstName string `json:"firstName" validate:"max=100"`
	LastName  string `json:"lastName" validate:"max=100"`
}

// LoginRequest представляет тело запроса на вход.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// ErrorResponse - тело ответа с ошибкой.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}
