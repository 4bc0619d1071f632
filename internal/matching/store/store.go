package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/MrJamesThe3rd/studiobooks/internal/matching"
)

type Store struct {
	db *sql.DB
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

func (s *Store) FindMatch(ctx context.Context, ownerID uuid.UUID, rawDescription string) (string, error) {
	query := `
		SELECT preferred_description
		FROM description_aliases
		WHERE owner_id = $1 AND $2 ILIKE '%' || raw_pattern || '%'
		ORDER BY LENGTH(raw_pattern) DESC, created_at DESC
		LIMIT 1
	`

	var preferred string

	err := s.db.QueryRowContext(ctx, query, ownerID, rawDescription).Scan(&preferred)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", nil
		}

		return "", fmt.Errorf("finding match: %w", err)
	}

	return preferred, nil
}

func (s *Store) CreateAlias(ctx context.Context, alias matching.Alias) error {
	query := `
		INSERT INTO description_aliases (owner_id, raw_pattern, preferred_description, created_at)
		VALUES ($1, $2, $3, NOW())
	`

	if _, err := s.db.ExecContext(ctx, query, alias.OwnerID, alias.RawPattern, alias.PreferredDescription); err != nil {
		return fmt.Errorf("creating alias: %w", err)
	}

	return nil
}
