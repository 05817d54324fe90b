package repository

import (
	"context"
	"time"

	"collage-sync/internal/models"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const userColumns = `id, email, username, avatar_url, push_token, created_at, updated_at`

// UserRepository handles database operations for users
type UserRepository struct {
	db *pgxpool.Pool
}

// NewUserRepository creates a new user repository
func NewUserRepository(db *pgxpool.Pool) *UserRepository {
	return &UserRepository{db: db}
}

func scanUser(row pgx.Row) (*models.User, error) {
	var user models.User
	err := row.Scan(
		&user.ID, &user.Email, &user.Username, &user.AvatarURL,
		&user.PushToken, &user.CreatedAt, &user.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// Create creates a new user with its password hash
func (r *UserRepository) Create(ctx context.Context, user *models.User, passwordHash string) error {
	query := `
		INSERT INTO users (id, email, username, password_hash, avatar_url, push_token, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err := r.db.Exec(ctx, query,
		user.ID, user.Email, user.Username, passwordHash,
		user.AvatarURL, user.PushToken, user.CreatedAt, user.UpdatedAt,
	)
	return classify("create user", err)
}

// GetByID retrieves a user by ID
func (r *UserRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	user, err := scanUser(r.db.QueryRow(ctx, query, id))
	if err != nil {
		return nil, classify("get user", err)
	}
	return user, nil
}

// GetByIDs retrieves every user whose id is in ids
func (r *UserRepository) GetByIDs(ctx context.Context, ids []string) ([]*models.User, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	query := `SELECT ` + userColumns + ` FROM users WHERE id = ANY($1) ORDER BY username`
	rows, err := r.db.Query(ctx, query, ids)
	if err != nil {
		return nil, classify("list users", err)
	}
	defer rows.Close()

	var users []*models.User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, classify("scan user", err)
		}
		users = append(users, user)
	}
	if err := rows.Err(); err != nil {
		return nil, classify("iterate users", err)
	}
	return users, nil
}

// GetByUsername retrieves a user by username
func (r *UserRepository) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE username = $1`
	user, err := scanUser(r.db.QueryRow(ctx, query, username))
	if err != nil {
		return nil, classify("get user by username", err)
	}
	return user, nil
}

// GetCredentials retrieves a user and its password hash by email
func (r *UserRepository) GetCredentials(ctx context.Context, email string) (*models.User, string, error) {
	query := `
		SELECT id, email, username, avatar_url, push_token, created_at, updated_at, password_hash
		FROM users
		WHERE lower(email) = lower($1)
	`
	var user models.User
	var hash string
	err := r.db.QueryRow(ctx, query, email).Scan(
		&user.ID, &user.Email, &user.Username, &user.AvatarURL,
		&user.PushToken, &user.CreatedAt, &user.UpdatedAt, &hash,
	)
	if err != nil {
		return nil, "", classify("get credentials", err)
	}
	return &user, hash, nil
}

// UpdateUsername changes a user's username
func (r *UserRepository) UpdateUsername(ctx context.Context, userID, username string, ts time.Time) error {
	query := `UPDATE users SET username = $1, updated_at = $2 WHERE id = $3`
	tag, err := r.db.Exec(ctx, query, username, ts, userID)
	return expectOne("update username", tag, err)
}

// UpdateAvatar changes a user's avatar URL
func (r *UserRepository) UpdateAvatar(ctx context.Context, userID, avatarURL string, ts time.Time) error {
	query := `UPDATE users SET avatar_url = $1, updated_at = $2 WHERE id = $3`
	tag, err := r.db.Exec(ctx, query, avatarURL, ts, userID)
	return expectOne("update avatar", tag, err)
}

// UpdatePushToken updates the push token for a user
func (r *UserRepository) UpdatePushToken(ctx context.Context, userID string, pushToken *string, ts time.Time) error {
	query := `UPDATE users SET push_token = $1, updated_at = $2 WHERE id = $3`
	tag, err := r.db.Exec(ctx, query, pushToken, ts, userID)
	return expectOne("update push token", tag, err)
}
