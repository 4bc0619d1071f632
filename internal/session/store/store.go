package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/MrJamesThe3rd/studiobooks/internal/session"
)

type Store struct {
	db *sql.DB
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

type scanner interface {
	Scan(dest ...any) error
}

func scanSession(s scanner) (*session.Session, error) {
	var sess session.Session

	if err := s.Scan(
		&sess.ID, &sess.OwnerID, &sess.ClientID, &sess.Title, &sess.ScheduledAt,
		&sess.TotalAmount, &sess.AmountPaid, &sess.UpdatedAt,
	); err != nil {
		return nil, err
	}

	return &sess, nil
}

const selectSessionColumns = `id, owner_id, client_id, title, scheduled_at, total_amount, amount_paid, updated_at`

func (s *Store) Create(ctx context.Context, sess *session.Session) error {
	query := `
		INSERT INTO sessions (owner_id, client_id, title, scheduled_at, total_amount)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`

	err := s.db.QueryRowContext(ctx, query,
		sess.OwnerID,
		sess.ClientID,
		sess.Title,
		sess.ScheduledAt,
		sess.TotalAmount,
	).Scan(&sess.ID)
	if err != nil {
		return fmt.Errorf("creating session: %w", err)
	}

	return nil
}

func (s *Store) Get(ctx context.Context, id uuid.UUID) (*session.Session, error) {
	query := `SELECT ` + selectSessionColumns + ` FROM sessions WHERE id = $1`

	sess, err := scanSession(s.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, session.ErrNotFound
		}

		return nil, fmt.Errorf("getting session: %w", err)
	}

	return sess, nil
}

func (s *Store) ListByPeriod(ctx context.Context, ownerID uuid.UUID, from, to time.Time) ([]*session.Session, error) {
	query := `SELECT ` + selectSessionColumns + `
		FROM sessions
		WHERE owner_id = $1 AND scheduled_at >= $2 AND scheduled_at <= $3
		ORDER BY scheduled_at ASC`

	rows, err := s.db.QueryContext(ctx, query, ownerID, from, to)
	if err != nil {
		return nil, fmt.Errorf("listing sessions: %w", err)
	}
	defer rows.Close()

	var sessions []*session.Session

	for rows.Next() {
		sess, err := scanSession(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning session: %w", err)
		}

		sessions = append(sessions, sess)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating session rows: %w", err)
	}

	return sessions, nil
}

func (s *Store) UpdateAmountPaid(ctx context.Context, id uuid.UUID, amount int64) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE sessions SET amount_paid = $1, updated_at = NOW() WHERE id = $2`, amount, id)
	if err != nil {
		return fmt.Errorf("updating amount paid: %w", err)
	}

	if n, _ := res.RowsAffected(); n == 0 {
		return session.ErrNotFound
	}

	return nil
}
