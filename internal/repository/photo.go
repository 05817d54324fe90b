package repository

import (
	"context"
	"time"

	"collage-sync/internal/models"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const photoColumns = `id, collage_id, owner_id, image_url, storage_path, x, y, rotation, scale, created_at, updated_at`

// PhotoRepository handles database operations for photos
type PhotoRepository struct {
	db *pgxpool.Pool
}

// NewPhotoRepository creates a new photo repository
func NewPhotoRepository(db *pgxpool.Pool) *PhotoRepository {
	return &PhotoRepository{db: db}
}

func scanPhoto(row pgx.Row) (*models.Photo, error) {
	var p models.Photo
	err := row.Scan(
		&p.ID, &p.CollageID, &p.OwnerID, &p.ImageURL, &p.StoragePath,
		&p.X, &p.Y, &p.Rotation, &p.Scale, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// Create creates a new photo
func (r *PhotoRepository) Create(ctx context.Context, p *models.Photo) error {
	query := `
		INSERT INTO photos (` + photoColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`
	_, err := r.db.Exec(ctx, query,
		p.ID, p.CollageID, p.OwnerID, p.ImageURL, p.StoragePath,
		p.X, p.Y, p.Rotation, p.Scale, p.CreatedAt, p.UpdatedAt,
	)
	return classify("create photo", err)
}

// GetByID retrieves a photo by ID
func (r *PhotoRepository) GetByID(ctx context.Context, id string) (*models.Photo, error) {
	query := `SELECT ` + photoColumns + ` FROM photos WHERE id = $1`
	p, err := scanPhoto(r.db.QueryRow(ctx, query, id))
	if err != nil {
		return nil, classify("get photo", err)
	}
	return p, nil
}

// ListByCollage returns a collage's photos in layering order, oldest first
func (r *PhotoRepository) ListByCollage(ctx context.Context, collageID string) ([]*models.Photo, error) {
	query := `SELECT ` + photoColumns + ` FROM photos WHERE collage_id = $1 ORDER BY created_at ASC, id ASC`
	rows, err := r.db.Query(ctx, query, collageID)
	if err != nil {
		return nil, classify("list photos", err)
	}
	defer rows.Close()

	photos := []*models.Photo{}
	for rows.Next() {
		p, err := scanPhoto(rows)
		if err != nil {
			return nil, classify("scan photo", err)
		}
		photos = append(photos, p)
	}
	if err := rows.Err(); err != nil {
		return nil, classify("iterate photos", err)
	}
	return photos, nil
}

// UpdateTransform stores a photo's committed placement
func (r *PhotoRepository) UpdateTransform(ctx context.Context, id string, t models.Transform, ts time.Time) error {
	query := `UPDATE photos SET x = $1, y = $2, rotation = $3, scale = $4, updated_at = $5 WHERE id = $6`
	tag, err := r.db.Exec(ctx, query, t.X, t.Y, t.Rotation, t.Scale, ts, id)
	return expectOne("update photo transform", tag, err)
}

// Delete removes a photo owned by ownerID
func (r *PhotoRepository) Delete(ctx context.Context, id, ownerID string) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM photos WHERE id = $1 AND owner_id = $2`, id, ownerID)
	return expectOne("delete photo", tag, err)
}

// DeleteByCollage removes every photo row of a collage in one statement
func (r *PhotoRepository) DeleteByCollage(ctx context.Context, collageID string) (int64, error) {
	tag, err := r.db.Exec(ctx, `DELETE FROM photos WHERE collage_id = $1`, collageID)
	if err != nil {
		return 0, classify("delete collage photos", err)
	}
	return tag.RowsAffected(), nil
}
