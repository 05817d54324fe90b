package repository

import (
	"context"
	"time"

	"collage-sync/internal/models"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const collageColumns = `id, theme, creator_id, invite_code, starts_at, expires_at, preview_url, party_mode, created_at, updated_at`

// CollageRepository handles database operations for collages
type CollageRepository struct {
	db *pgxpool.Pool
}

// NewCollageRepository creates a new collage repository
func NewCollageRepository(db *pgxpool.Pool) *CollageRepository {
	return &CollageRepository{db: db}
}

func scanCollage(row pgx.Row) (*models.Collage, error) {
	var c models.Collage
	err := row.Scan(
		&c.ID, &c.Theme, &c.CreatorID, &c.InviteCode, &c.StartsAt, &c.ExpiresAt,
		&c.PreviewURL, &c.PartyMode, &c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// Create inserts a collage and its creator's membership in one transaction
func (r *CollageRepository) Create(ctx context.Context, c *models.Collage) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return classify("begin create collage", err)
	}
	defer tx.Rollback(ctx)

	query := `
		INSERT INTO collages (` + collageColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`
	_, err = tx.Exec(ctx, query,
		c.ID, c.Theme, c.CreatorID, c.InviteCode, c.StartsAt, c.ExpiresAt,
		c.PreviewURL, c.PartyMode, c.CreatedAt, c.UpdatedAt,
	)
	if err != nil {
		return classify("create collage", err)
	}

	_, err = tx.Exec(ctx,
		`INSERT INTO collage_members (collage_id, user_id, joined_at) VALUES ($1, $2, $3)`,
		c.ID, c.CreatorID, c.CreatedAt,
	)
	if err != nil {
		return classify("add creator membership", err)
	}

	return classify("commit create collage", tx.Commit(ctx))
}

// GetByID retrieves a collage by ID
func (r *CollageRepository) GetByID(ctx context.Context, id string) (*models.Collage, error) {
	query := `SELECT ` + collageColumns + ` FROM collages WHERE id = $1`
	c, err := scanCollage(r.db.QueryRow(ctx, query, id))
	if err != nil {
		return nil, classify("get collage", err)
	}
	return c, nil
}

// GetByInviteCode retrieves a collage by its invite code
func (r *CollageRepository) GetByInviteCode(ctx context.Context, code string) (*models.Collage, error) {
	query := `SELECT ` + collageColumns + ` FROM collages WHERE invite_code = $1`
	c, err := scanCollage(r.db.QueryRow(ctx, query, code))
	if err != nil {
		return nil, classify("get collage by invite code", err)
	}
	return c, nil
}

// ListExpired returns every collage whose expiry has passed by the database clock
func (r *CollageRepository) ListExpired(ctx context.Context) ([]*models.Collage, error) {
	query := `SELECT ` + collageColumns + ` FROM collages WHERE expires_at <= now() ORDER BY expires_at`
	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, classify("list expired collages", err)
	}
	defer rows.Close()

	var collages []*models.Collage
	for rows.Next() {
		c, err := scanCollage(rows)
		if err != nil {
			return nil, classify("scan collage", err)
		}
		collages = append(collages, c)
	}
	if err := rows.Err(); err != nil {
		return nil, classify("iterate collages", err)
	}
	return collages, nil
}

// IsExpired asks the database whether a collage has expired
func (r *CollageRepository) IsExpired(ctx context.Context, id string) (bool, error) {
	var expired bool
	err := r.db.QueryRow(ctx, `SELECT expires_at <= now() FROM collages WHERE id = $1`, id).Scan(&expired)
	if err != nil {
		return false, classify("check collage expiry", err)
	}
	return expired, nil
}

// UpdatePreview sets the preview image URL
func (r *CollageRepository) UpdatePreview(ctx context.Context, id, previewURL string, ts time.Time) error {
	query := `UPDATE collages SET preview_url = $1, updated_at = $2 WHERE id = $3`
	tag, err := r.db.Exec(ctx, query, previewURL, ts, id)
	return expectOne("update collage preview", tag, err)
}
