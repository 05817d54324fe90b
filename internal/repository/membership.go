package repository

import (
	"context"
	"time"

	"collage-sync/internal/models"

	"github.com/jackc/pgx/v5/pgxpool"
)

// MembershipRepository handles database operations for collage members
type MembershipRepository struct {
	db *pgxpool.Pool
}

// NewMembershipRepository creates a new membership repository
func NewMembershipRepository(db *pgxpool.Pool) *MembershipRepository {
	return &MembershipRepository{db: db}
}

// Add inserts a membership. A duplicate pair is reported as Conflict.
func (r *MembershipRepository) Add(ctx context.Context, collageID, userID string, ts time.Time) error {
	query := `INSERT INTO collage_members (collage_id, user_id, joined_at) VALUES ($1, $2, $3)`
	_, err := r.db.Exec(ctx, query, collageID, userID, ts)
	return classify("add member", err)
}

// ListByCollage returns the memberships of a collage in join order
func (r *MembershipRepository) ListByCollage(ctx context.Context, collageID string) ([]models.Membership, error) {
	return r.list(ctx, "list collage members",
		`SELECT collage_id, user_id, joined_at FROM collage_members WHERE collage_id = $1 ORDER BY joined_at`,
		collageID)
}

// ListByUser returns the memberships of a user, newest first
func (r *MembershipRepository) ListByUser(ctx context.Context, userID string) ([]models.Membership, error) {
	return r.list(ctx, "list user memberships",
		`SELECT collage_id, user_id, joined_at FROM collage_members WHERE user_id = $1 ORDER BY joined_at DESC`,
		userID)
}

// Exists checks if a user belongs to a collage
func (r *MembershipRepository) Exists(ctx context.Context, collageID, userID string) (bool, error) {
	query := `SELECT EXISTS(SELECT 1 FROM collage_members WHERE collage_id = $1 AND user_id = $2)`
	var exists bool
	if err := r.db.QueryRow(ctx, query, collageID, userID).Scan(&exists); err != nil {
		return false, classify("check membership", err)
	}
	return exists, nil
}

func (r *MembershipRepository) list(ctx context.Context, op, query, arg string) ([]models.Membership, error) {
	rows, err := r.db.Query(ctx, query, arg)
	if err != nil {
		return nil, classify(op, err)
	}
	defer rows.Close()

	var members []models.Membership
	for rows.Next() {
		var m models.Membership
		if err := rows.Scan(&m.CollageID, &m.UserID, &m.JoinedAt); err != nil {
			return nil, classify(op, err)
		}
		members = append(members, m)
	}
	if err := rows.Err(); err != nil {
		return nil, classify(op, err)
	}
	return members, nil
}
