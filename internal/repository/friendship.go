package repository

import (
	"context"
	"time"

	"collage-sync/internal/models"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const friendshipColumns = `id, user_id, friend_id, status, created_at, updated_at`

// FriendshipRepository handles database operations for friendships
type FriendshipRepository struct {
	db *pgxpool.Pool
}

// NewFriendshipRepository creates a new friendship repository
func NewFriendshipRepository(db *pgxpool.Pool) *FriendshipRepository {
	return &FriendshipRepository{db: db}
}

func scanFriendship(row pgx.Row) (*models.Friendship, error) {
	var f models.Friendship
	if err := row.Scan(&f.ID, &f.UserID, &f.FriendID, &f.Status, &f.CreatedAt, &f.UpdatedAt); err != nil {
		return nil, err
	}
	return &f, nil
}

// Create inserts a friendship. A second row for the same pair is a Conflict.
func (r *FriendshipRepository) Create(ctx context.Context, f *models.Friendship) error {
	query := `INSERT INTO friendships (` + friendshipColumns + `) VALUES ($1, $2, $3, $4, $5, $6)`
	_, err := r.db.Exec(ctx, query, f.ID, f.UserID, f.FriendID, f.Status, f.CreatedAt, f.UpdatedAt)
	return classify("create friendship", err)
}

// GetByID retrieves a friendship by ID
func (r *FriendshipRepository) GetByID(ctx context.Context, id string) (*models.Friendship, error) {
	query := `SELECT ` + friendshipColumns + ` FROM friendships WHERE id = $1`
	f, err := scanFriendship(r.db.QueryRow(ctx, query, id))
	if err != nil {
		return nil, classify("get friendship", err)
	}
	return f, nil
}

// GetByPair retrieves the friendship between two users in either direction
func (r *FriendshipRepository) GetByPair(ctx context.Context, a, b string) (*models.Friendship, error) {
	query := `
		SELECT ` + friendshipColumns + `
		FROM friendships
		WHERE (user_id = $1 AND friend_id = $2) OR (user_id = $2 AND friend_id = $1)
	`
	f, err := scanFriendship(r.db.QueryRow(ctx, query, a, b))
	if err != nil {
		return nil, classify("get friendship by pair", err)
	}
	return f, nil
}

// ListByUser returns the friendships a user is part of
func (r *FriendshipRepository) ListByUser(ctx context.Context, userID string) ([]*models.Friendship, error) {
	query := `
		SELECT ` + friendshipColumns + `
		FROM friendships
		WHERE user_id = $1 OR friend_id = $1
		ORDER BY updated_at DESC
	`
	rows, err := r.db.Query(ctx, query, userID)
	if err != nil {
		return nil, classify("list friendships", err)
	}
	defer rows.Close()

	var out []*models.Friendship
	for rows.Next() {
		f, err := scanFriendship(rows)
		if err != nil {
			return nil, classify("scan friendship", err)
		}
		out = append(out, f)
	}
	if err := rows.Err(); err != nil {
		return nil, classify("iterate friendships", err)
	}
	return out, nil
}

// Reopen sets a friendship back to pending with requesterID as the sender
func (r *FriendshipRepository) Reopen(ctx context.Context, id, requesterID, receiverID string, ts time.Time) error {
	query := `UPDATE friendships SET user_id = $1, friend_id = $2, status = 'pending', updated_at = $3 WHERE id = $4`
	tag, err := r.db.Exec(ctx, query, requesterID, receiverID, ts, id)
	return expectOne("reopen friendship", tag, err)
}

// UpdateStatus changes a friendship's status
func (r *FriendshipRepository) UpdateStatus(ctx context.Context, id string, status models.Status, ts time.Time) error {
	query := `UPDATE friendships SET status = $1, updated_at = $2 WHERE id = $3`
	tag, err := r.db.Exec(ctx, query, status, ts, id)
	return expectOne("update friendship status", tag, err)
}
