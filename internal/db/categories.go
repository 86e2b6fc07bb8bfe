package db

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/railmadad/backend/internal/models"
)

const categoryColumns = `id, name, description, priority, color, aliases, is_active, created_at, updated_at`

func scanCategory(row pgx.Row) (models.Category, error) {
	var c models.Category
	var priority string
	err := row.Scan(&c.ID, &c.Name, &c.Description, &priority, &c.Color, &c.Aliases, &c.IsActive, &c.CreatedAt, &c.UpdatedAt)
	c.Priority = models.Priority(priority)
	return c, err
}

// ListCategories returns categories in storage order; ranking is applied by the caller.
func (s *Store) ListCategories(ctx context.Context, activeOnly bool) ([]models.Category, error) {
	query := `SELECT ` + categoryColumns + ` FROM categories`
	if activeOnly {
		query += ` WHERE is_active`
	}
	rows, err := s.Pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Category
	for rows.Next() {
		c, err := scanCategory(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (s *Store) GetCategory(ctx context.Context, id string) (models.Category, error) {
	c, err := scanCategory(s.Pool.QueryRow(ctx, `SELECT `+categoryColumns+` FROM categories WHERE id = $1`, id))
	return c, notFound(err)
}

func (s *Store) GetCategoryByName(ctx context.Context, name string) (models.Category, error) {
	c, err := scanCategory(s.Pool.QueryRow(ctx, `SELECT `+categoryColumns+` FROM categories WHERE lower(name) = lower($1)`, name))
	return c, notFound(err)
}

func (s *Store) InsertCategory(ctx context.Context, c models.Category) error {
	if c.Aliases == nil {
		c.Aliases = []string{}
	}
	_, err := s.Pool.Exec(ctx, `INSERT INTO categories (`+categoryColumns+`) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		c.ID, c.Name, c.Description, string(c.Priority), c.Color, c.Aliases, c.IsActive, c.CreatedAt, c.UpdatedAt)
	if isUniqueViolation(err, "") {
		return ErrDuplicate
	}
	return err
}

func (s *Store) UpdateCategory(ctx context.Context, c models.Category) error {
	if c.Aliases == nil {
		c.Aliases = []string{}
	}
	tag, err := s.Pool.Exec(ctx, `UPDATE categories
		SET name = $2, description = $3, priority = $4, color = $5, aliases = $6, is_active = $7, updated_at = $8
		WHERE id = $1`,
		c.ID, c.Name, c.Description, string(c.Priority), c.Color, c.Aliases, c.IsActive, c.UpdatedAt)
	if isUniqueViolation(err, "") {
		return ErrDuplicate
	}
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
