package repository

import (
	"context"

	"collage-sync/internal/models"

	"github.com/jackc/pgx/v5/pgxpool"
)

// ThemeRepository reads the collage theme catalogue
type ThemeRepository struct {
	db *pgxpool.Pool
}

// NewThemeRepository creates a new theme repository
func NewThemeRepository(db *pgxpool.Pool) *ThemeRepository {
	return &ThemeRepository{db: db}
}

// List returns every theme ordered by name
func (r *ThemeRepository) List(ctx context.Context) ([]*models.Theme, error) {
	rows, err := r.db.Query(ctx, `SELECT id, name, prompt FROM themes ORDER BY name`)
	if err != nil {
		return nil, classify("list themes", err)
	}
	defer rows.Close()

	themes := []*models.Theme{}
	for rows.Next() {
		var t models.Theme
		if err := rows.Scan(&t.ID, &t.Name, &t.Prompt); err != nil {
			return nil, classify("scan theme", err)
		}
		themes = append(themes, &t)
	}
	if err := rows.Err(); err != nil {
		return nil, classify("iterate themes", err)
	}
	return themes, nil
}
