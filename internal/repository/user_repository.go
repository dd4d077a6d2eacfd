package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/maynagashev/flowkeeper/models"
)

const userColumns = `id, email, password_hash, first_name, last_name, stripe_customer_id,
	stripe_subscription_id, subscription_status, created_at, updated_at`

// postgresUserRepository реализует UserRepository для PostgreSQL.
type postgresUserRepository struct {
	db     *sqlx.DB
	logger *zap.Logger
}

// NewPostgresUserRepository создает новый экземпляр репозитория пользователей для PostgreSQL.
func NewPostgresUserRepository(db *sqlx.DB, logger *zap.Logger) UserRepository {
	return &postgresUserRepository{db: db, logger: logger.Named("user_repo")}
}

// CreateUser создает нового пользователя в базе данных.
// Возвращает ID созданного пользователя или ошибку.
func (r *postgresUserRepository) CreateUser(ctx context.Context, user *models.User) (int64, error) {
	query := `INSERT INTO users (email, password_hash, first_name, last_name, subscription_status)
	          VALUES ($1, $2, $3, $4, $5) RETURNING id`
	var userID int64

	err := r.db.QueryRowxContext(ctx, query,
		user.Email, user.PasswordHash, user.FirstName, user.LastName, user.SubscriptionStatus,
	).Scan(&userID)
	if err != nil {
		if isUniqueViolation(err) {
			r.logger.Debug("Email уже занят", zap.String("email", user.Email))
			return 0, ErrEmailTaken
		}
		return 0, fmt.Errorf("ошибка выполнения запроса на создание пользователя: %w", err)
	}

	r.logger.Info("Пользователь создан", zap.Int64("user_id", userID))
	return userID, nil
}

// GetUserByEmail находит пользователя по email.
func (r *postgresUserRepository) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	return r.getOne(ctx, `SELECT `+userColumns+` FROM users WHERE email=$1`, email)
}

// GetUserByID находит пользователя по ID.
func (r *postgresUserRepository) GetUserByID(ctx context.Context, id int64) (*models.User, error) {
	return r.getOne(ctx, `SELECT `+userColumns+` FROM users WHERE id=$1`, id)
}

// GetUserByStripeCustomerID находит пользователя по ID клиента Stripe.
func (r *postgresUserRepository) GetUserByStripeCustomerID(
	ctx context.Context,
	customerID string,
) (*models.User, error) {
	return r.getOne(ctx, `SELECT `+userColumns+` FROM users WHERE stripe_customer_id=$1`, customerID)
}

func (r *postgresUserRepository) getOne(ctx context.Context, query string, arg any) (*models.User, error) {
	var user models.User
	err := r.db.GetContext(ctx, &user, query, arg)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("ошибка выполнения запроса на получение пользователя: %w", err)
	}
	return &user, nil
}

// UpdateUserBilling сохраняет идентификаторы Stripe и статус подписки.
// nil в customerID/subscriptionID оставляет текущее значение.
func (r *postgresUserRepository) UpdateUserBilling(
	ctx context.Context,
	userID int64,
	customerID, subscriptionID *string,
	status string,
) error {
	query := `UPDATE users SET
	            stripe_customer_id = COALESCE($2, stripe_customer_id),
	            stripe_subscription_id = COALESCE($3, stripe_subscription_id),
	            subscription_status = $4,
	            updated_at = NOW()
	          WHERE id=$1`
	res, err := r.db.ExecContext(ctx, query, userID, customerID, subscriptionID, status)
	if err != nil {
		return fmt.Errorf("ошибка обновления данных оплаты: %w", err)
	}
	return checkAffected(res)
}
