package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/MrJamesThe3rd/studiobooks/internal/ledger"
)

type Store struct {
	db *sql.DB
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// scanner is satisfied by both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

// scanEntry reads a ledger entry row.
// Expected column order matches selectEntryColumns.
func scanEntry(s scanner) (*ledger.Entry, error) {
	var e ledger.Entry

	var statusStr string

	var idx, count sql.NullInt32

	var cycle sql.NullString

	if err := s.Scan(
		&e.ID, &e.OwnerID, &e.OwnerItemID, &e.Description, &e.Amount, &e.DueDate, &statusStr,
		&e.SeriesID, &idx, &count, &cycle, &e.CardID,
		&e.CreatedAt, &e.UpdatedAt,
	); err != nil {
		return nil, err
	}

	e.Status = ledger.Status(statusStr)
	e.DueDate = ledger.DateOf(e.DueDate)

	if idx.Valid {
		e.InstallmentIndex = new(int(idx.Int32))
	}

	if count.Valid {
		e.InstallmentCount = new(int(count.Int32))
	}

	if cycle.Valid {
		e.SourceCycle = &cycle.String
	}

	return &e, nil
}

const selectEntryColumns = `
	id, owner_id, owner_item_id, description, amount, due_date, status,
	series_id, installment_index, installment_count, source_cycle, card_id,
	created_at, updated_at
`

// Insert writes the batch inside a single database transaction.
func (s *Store) Insert(ctx context.Context, entries []*ledger.Entry) error {
	if len(entries) == 0 {
		return nil
	}

	dbTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer dbTx.Rollback()

	query := `
		INSERT INTO ledger_entries (
			id, owner_id, owner_item_id, description, amount, due_date, status,
			series_id, installment_index, installment_count, source_cycle, card_id, created_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`

	for _, e := range entries {
		if _, err := dbTx.ExecContext(ctx, query,
			e.ID,
			e.OwnerID,
			e.OwnerItemID,
			e.Description,
			e.Amount,
			e.DueDate,
			e.Status,
			e.SeriesID,
			e.InstallmentIndex,
			e.InstallmentCount,
			e.SourceCycle,
			e.CardID,
			e.CreatedAt,
		); err != nil {
			return fmt.Errorf("inserting entry: %w", err)
		}
	}

	if err := dbTx.Commit(); err != nil {
		return fmt.Errorf("committing entries: %w", err)
	}

	return nil
}

func (s *Store) Get(ctx context.Context, id uuid.UUID) (*ledger.Entry, error) {
	return getEntry(ctx, s.db, id, "")
}

func (s *Store) Update(ctx context.Context, id uuid.UUID, patch ledger.Patch) error {
	return updateEntry(ctx, s.db, id, patch)
}

// querier is satisfied by *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func getEntry(ctx context.Context, q querier, id uuid.UUID, suffix string) (*ledger.Entry, error) {
	query := `SELECT ` + selectEntryColumns + ` FROM ledger_entries WHERE id = $1` + suffix

	e, err := scanEntry(q.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ledger.ErrNotFound
		}

		return nil, fmt.Errorf("getting entry: %w", err)
	}

	return e, nil
}

func updateEntry(ctx context.Context, q querier, id uuid.UUID, patch ledger.Patch) error {
	var (
		sets []string
		args []any
	)

	argIdx := 1

	if patch.Amount != nil {
		sets = append(sets, fmt.Sprintf("amount = $%d", argIdx))
		args = append(args, *patch.Amount)
		argIdx++
	}

	if patch.DueDate != nil {
		sets = append(sets, fmt.Sprintf("due_date = $%d", argIdx))
		args = append(args, *patch.DueDate)
		argIdx++
	}

	if patch.Status != nil {
		sets = append(sets, fmt.Sprintf("status = $%d", argIdx))
		args = append(args, *patch.Status)
		argIdx++
	}

	if len(sets) == 0 {
		return nil
	}

	query := "UPDATE ledger_entries SET " + strings.Join(sets, ", ") +
		fmt.Sprintf(", updated_at = NOW() WHERE id = $%d", argIdx)

	args = append(args, id)
	argIdx++

	if patch.FromStatus != nil {
		query += fmt.Sprintf(" AND status = $%d", argIdx)

		args = append(args, *patch.FromStatus)
	}

	res, err := q.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("updating entry: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("reading affected rows: %w", err)
	}

	if n == 0 {
		if patch.FromStatus != nil {
			return ledger.ErrStaleStatus
		}

		return ledger.ErrNotFound
	}

	return nil
}

// Tx reads and patches entries inside a transaction opened by another store,
// so a reconciliation can settle the entry it bills in the same commit.
type Tx struct {
	tx *sql.Tx
}

func NewTx(tx *sql.Tx) *Tx {
	return &Tx{tx: tx}
}

// LockEntry reads the entry holding its row lock until the transaction ends.
func (t *Tx) LockEntry(ctx context.Context, id uuid.UUID) (*ledger.Entry, error) {
	return getEntry(ctx, t.tx, id, " FOR UPDATE")
}

func (t *Tx) UpdateEntry(ctx context.Context, id uuid.UUID, patch ledger.Patch) error {
	return updateEntry(ctx, t.tx, id, patch)
}

func (s *Store) Delete(ctx context.Context, id uuid.UUID) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM ledger_entries WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("deleting entry: %w", err)
	}

	if n, _ := res.RowsAffected(); n == 0 {
		return ledger.ErrNotFound
	}

	return nil
}

func (s *Store) QueryByDateRange(ctx context.Context, ownerID uuid.UUID, from, to time.Time) ([]*ledger.Entry, error) {
	query := `SELECT ` + selectEntryColumns + `
		FROM ledger_entries
		WHERE owner_id = $1 AND due_date >= $2 AND due_date <= $3
		ORDER BY due_date ASC, installment_index ASC NULLS FIRST, created_at ASC`

	return s.query(ctx, query, ownerID, from, to)
}

func (s *Store) QueryBySeries(ctx context.Context, seriesID uuid.UUID) ([]*ledger.Entry, error) {
	query := `SELECT ` + selectEntryColumns + `
		FROM ledger_entries
		WHERE series_id = $1
		ORDER BY due_date ASC, installment_index ASC NULLS FIRST`

	return s.query(ctx, query, seriesID)
}

func (s *Store) ListDue(ctx context.Context, status ledger.Status, onOrBefore time.Time) ([]*ledger.Entry, error) {
	query := `SELECT ` + selectEntryColumns + `
		FROM ledger_entries
		WHERE status = $1 AND due_date <= $2
		ORDER BY due_date ASC`

	return s.query(ctx, query, status, onOrBefore)
}

func (s *Store) query(ctx context.Context, query string, args ...any) ([]*ledger.Entry, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying entries: %w", err)
	}
	defer rows.Close()

	var entries []*ledger.Entry

	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning entry: %w", err)
		}

		entries = append(entries, e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating entry rows: %w", err)
	}

	return entries, nil
}

func (s *Store) GetCard(ctx context.Context, id uuid.UUID) (*ledger.Card, error) {
	query := `SELECT id, owner_id, name, closing_day, due_day FROM cards WHERE id = $1`

	var c ledger.Card

	err := s.db.QueryRowContext(ctx, query, id).Scan(&c.ID, &c.OwnerID, &c.Name, &c.ClosingDay, &c.DueDay)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ledger.ErrCardNotFound
		}

		return nil, fmt.Errorf("getting card: %w", err)
	}

	return &c, nil
}

func (s *Store) CreateCard(ctx context.Context, c *ledger.Card) error {
	query := `
		INSERT INTO cards (owner_id, name, closing_day, due_day)
		VALUES ($1, $2, $3, $4)
		RETURNING id
	`

	if err := s.db.QueryRowContext(ctx, query, c.OwnerID, c.Name, c.ClosingDay, c.DueDay).Scan(&c.ID); err != nil {
		return fmt.Errorf("creating card: %w", err)
	}

	return nil
}
