package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/centavoapp/centavo/internal/domain"
)

func (s *Store) CreateCategory(ctx context.Context, c *domain.Category) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	_, err := s.pool.Exec(ctx, `
		INSERT INTO categories (id, owner_id, name, kind) VALUES ($1, $2, $3, $4)`,
		c.ID, c.OwnerID, c.Name, c.Kind)
	if err != nil {
		return fmt.Errorf("postgres: creating category: %w", err)
	}
	return nil
}

func (s *Store) GetCategory(ctx context.Context, owner, id uuid.UUID) (*domain.Category, error) {
	var c domain.Category
	err := s.pool.QueryRow(ctx,
		`SELECT id, owner_id, name, kind FROM categories WHERE id = $1 AND owner_id = $2`, id, owner).
		Scan(&c.ID, &c.OwnerID, &c.Name, &c.Kind)
	if err != nil {
		return nil, asNotFound(err)
	}
	return &c, nil
}

func (s *Store) ListCategories(ctx context.Context, owner uuid.UUID) ([]*domain.Category, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, owner_id, name, kind FROM categories WHERE owner_id = $1 ORDER BY name`, owner)
	if err != nil {
		return nil, fmt.Errorf("postgres: listing categories: %w", err)
	}
	defer rows.Close()

	var out []*domain.Category
	for rows.Next() {
		var c domain.Category
		if err := rows.Scan(&c.ID, &c.OwnerID, &c.Name, &c.Kind); err != nil {
			return nil, fmt.Errorf("postgres: scanning category: %w", err)
		}
		out = append(out, &c)
	}
	return out, rows.Err()
}

func (s *Store) UpdateCategory(ctx context.Context, c *domain.Category) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE categories SET name = $1, kind = $2 WHERE id = $3 AND owner_id = $4`,
		c.Name, c.Kind, c.ID, c.OwnerID)
	if err != nil {
		return fmt.Errorf("postgres: updating category: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (s *Store) DeleteCategory(ctx context.Context, owner, id uuid.UUID) error {
	// transactions.category_id is ON DELETE SET NULL: history survives,
	// the label goes.
	tag, err := s.pool.Exec(ctx,
		`DELETE FROM categories WHERE id = $1 AND owner_id = $2`, id, owner)
	if err != nil {
		return fmt.Errorf("postgres: deleting category: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (s *Store) CreateAccountType(ctx context.Context, t *domain.AccountType) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	_, err := s.pool.Exec(ctx,
		`INSERT INTO account_types (id, owner_id, name) VALUES ($1, $2, $3)`,
		t.ID, t.OwnerID, t.Name)
	if err != nil {
		return fmt.Errorf("postgres: creating account type: %w", err)
	}
	return nil
}

func (s *Store) ListAccountTypes(ctx context.Context, owner uuid.UUID) ([]*domain.AccountType, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, owner_id, name FROM account_types WHERE owner_id = $1 ORDER BY name`, owner)
	if err != nil {
		return nil, fmt.Errorf("postgres: listing account types: %w", err)
	}
	defer rows.Close()

	var out []*domain.AccountType
	for rows.Next() {
		var t domain.AccountType
		if err := rows.Scan(&t.ID, &t.OwnerID, &t.Name); err != nil {
			return nil, fmt.Errorf("postgres: scanning account type: %w", err)
		}
		out = append(out, &t)
	}
	return out, rows.Err()
}

func (s *Store) DeleteAccountType(ctx context.Context, owner, id uuid.UUID) error {
	tag, err := s.pool.Exec(ctx,
		`DELETE FROM account_types WHERE id = $1 AND owner_id = $2`, id, owner)
	if err != nil {
		return fmt.Errorf("postgres: deleting account type: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}
