package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/pennyworth-dev/pennyworth/internal/common"
	"github.com/pennyworth-dev/pennyworth/internal/model"
)

// GetCategories returns all active categories, i.e. the current taxonomy.
func (s *SQLiteStorage) GetCategories(ctx context.Context) ([]model.Category, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, description, created_at, is_active
		FROM categories
		WHERE is_active = 1
		ORDER BY name
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query categories: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var categories []model.Category
	for rows.Next() {
		var cat model.Category
		if err := rows.Scan(&cat.ID, &cat.Name, &cat.Description, &cat.CreatedAt, &cat.IsActive); err != nil {
			return nil, fmt.Errorf("failed to scan category: %w", err)
		}
		categories = append(categories, cat)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating categories: %w", err)
	}
	return categories, nil
}

// GetCategoryByName returns an active category by its name, or ErrNotFound.
func (s *SQLiteStorage) GetCategoryByName(ctx context.Context, name string) (*model.Category, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(name, "name"); err != nil {
		return nil, err
	}

	var cat model.Category
	err := s.db.QueryRowContext(ctx, `
		SELECT id, name, description, created_at, is_active
		FROM categories
		WHERE name = ? AND is_active = 1
	`, name).Scan(&cat.ID, &cat.Name, &cat.Description, &cat.CreatedAt, &cat.IsActive)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: category %q", common.ErrNotFound, name)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query category: %w", err)
	}
	return &cat, nil
}

// CreateCategory adds a label to the taxonomy. Re-adding a retired label
// reactivates it instead of creating a duplicate.
func (s *SQLiteStorage) CreateCategory(ctx context.Context, name, description string) (*model.Category, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(name, "name"); err != nil {
		return nil, err
	}

	var existing model.Category
	err := s.db.QueryRowContext(ctx, `
		SELECT id, name, description, created_at, is_active
		FROM categories WHERE name = ?
	`, name).Scan(&existing.ID, &existing.Name, &existing.Description, &existing.CreatedAt, &existing.IsActive)

	switch {
	case err == nil:
		if !existing.IsActive {
			if _, updateErr := s.db.ExecContext(ctx,
				`UPDATE categories SET is_active = 1 WHERE id = ?`, existing.ID); updateErr != nil {
				return nil, fmt.Errorf("failed to reactivate category: %w", updateErr)
			}
			existing.IsActive = true
			slog.Info("reactivated retired category", "name", name)
		}
		return &existing, nil
	case !errors.Is(err, sql.ErrNoRows):
		return nil, fmt.Errorf("failed to check existing category: %w", err)
	}

	now := time.Now()
	result, err := s.db.ExecContext(ctx, `
		INSERT INTO categories (name, description, created_at, is_active)
		VALUES (?, ?, ?, 1)
	`, name, description, now)
	if err != nil {
		return nil, fmt.Errorf("failed to create category: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("failed to get category ID: %w", err)
	}

	slog.Info("created category", "name", name, "id", id)
	return &model.Category{
		ID:          int(id),
		Name:        name,
		Description: description,
		CreatedAt:   now,
		IsActive:    true,
	}, nil
}

// RetireCategory removes a label from the active taxonomy. Historical
// transactions keep referencing it; it just stops appearing in predictions
// and training sets.
func (s *SQLiteStorage) RetireCategory(ctx context.Context, name string) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateString(name, "name"); err != nil {
		return err
	}

	res, err := s.db.ExecContext(ctx,
		`UPDATE categories SET is_active = 0 WHERE name = ? AND is_active = 1`, name)
	if err != nil {
		return fmt.Errorf("failed to retire category: %w", err)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("%w: category %q", common.ErrNotFound, name)
	}

	slog.Info("retired category", "name", name)
	return nil
}
