package repository

import (
	"context"
	"time"

	"collage-sync/internal/models"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const inviteColumns = `id, collage_id, sender_id, receiver_id, status, created_at, updated_at`

// InviteRepository handles database operations for collage invites
type InviteRepository struct {
	db *pgxpool.Pool
}

// NewInviteRepository creates a new invite repository
func NewInviteRepository(db *pgxpool.Pool) *InviteRepository {
	return &InviteRepository{db: db}
}

func scanInvite(row pgx.Row) (*models.CollageInvite, error) {
	var inv models.CollageInvite
	err := row.Scan(&inv.ID, &inv.CollageID, &inv.SenderID, &inv.ReceiverID, &inv.Status, &inv.CreatedAt, &inv.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &inv, nil
}

// Create inserts an invite. A second invite for the same receiver is a Conflict.
func (r *InviteRepository) Create(ctx context.Context, inv *models.CollageInvite) error {
	query := `INSERT INTO collage_invites (` + inviteColumns + `) VALUES ($1, $2, $3, $4, $5, $6, $7)`
	_, err := r.db.Exec(ctx, query,
		inv.ID, inv.CollageID, inv.SenderID, inv.ReceiverID, inv.Status, inv.CreatedAt, inv.UpdatedAt,
	)
	return classify("create invite", err)
}

// GetByID retrieves an invite by ID
func (r *InviteRepository) GetByID(ctx context.Context, id string) (*models.CollageInvite, error) {
	query := `SELECT ` + inviteColumns + ` FROM collage_invites WHERE id = $1`
	inv, err := scanInvite(r.db.QueryRow(ctx, query, id))
	if err != nil {
		return nil, classify("get invite", err)
	}
	return inv, nil
}

// GetByReceiver retrieves the invite of a receiver to a collage
func (r *InviteRepository) GetByReceiver(ctx context.Context, collageID, receiverID string) (*models.CollageInvite, error) {
	query := `SELECT ` + inviteColumns + ` FROM collage_invites WHERE collage_id = $1 AND receiver_id = $2`
	inv, err := scanInvite(r.db.QueryRow(ctx, query, collageID, receiverID))
	if err != nil {
		return nil, classify("get invite by receiver", err)
	}
	return inv, nil
}

// ListPending returns a receiver's pending invites, newest first
func (r *InviteRepository) ListPending(ctx context.Context, receiverID string) ([]*models.CollageInvite, error) {
	query := `
		SELECT ` + inviteColumns + `
		FROM collage_invites
		WHERE receiver_id = $1 AND status = 'pending'
		ORDER BY created_at DESC
	`
	rows, err := r.db.Query(ctx, query, receiverID)
	if err != nil {
		return nil, classify("list pending invites", err)
	}
	defer rows.Close()

	invites := []*models.CollageInvite{}
	for rows.Next() {
		inv, err := scanInvite(rows)
		if err != nil {
			return nil, classify("scan invite", err)
		}
		invites = append(invites, inv)
	}
	if err := rows.Err(); err != nil {
		return nil, classify("iterate invites", err)
	}
	return invites, nil
}

// Reopen sets a rejected invite back to pending from a new sender
func (r *InviteRepository) Reopen(ctx context.Context, id, senderID string, ts time.Time) error {
	query := `UPDATE collage_invites SET sender_id = $1, status = 'pending', updated_at = $2 WHERE id = $3`
	tag, err := r.db.Exec(ctx, query, senderID, ts, id)
	return expectOne("reopen invite", tag, err)
}

// UpdateStatus changes an invite's status
func (r *InviteRepository) UpdateStatus(ctx context.Context, id string, status models.Status, ts time.Time) error {
	query := `UPDATE collage_invites SET status = $1, updated_at = $2 WHERE id = $3`
	tag, err := r.db.Exec(ctx, query, status, ts, id)
	return expectOne("update invite status", tag, err)
}
