package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/MrJamesThe3rd/studiobooks/internal/ledger"
	ledgerStore "github.com/MrJamesThe3rd/studiobooks/internal/ledger/store"
	"github.com/MrJamesThe3rd/studiobooks/internal/payment"
	receivableStore "github.com/MrJamesThe3rd/studiobooks/internal/receivable/store"
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

func scanCharge(s scanner) (*payment.Charge, error) {
	var (
		c         payment.Charge
		statusStr string
	)

	if err := s.Scan(
		&c.ID, &c.OwnerID, &c.ClientID, &c.SessionID, &c.LedgerEntryID, &c.Provider, &c.ProviderPaymentID,
		&c.ProviderPreferenceID, &c.ExternalReference, &c.Amount, &statusStr, &c.CheckoutURL,
		&c.CreatedAt, &c.UpdatedAt,
	); err != nil {
		return nil, err
	}

	c.Status = payment.Status(statusStr)

	return &c, nil
}

const selectChargeColumns = `
	id, owner_id, client_id, session_id, ledger_entry_id, provider, provider_payment_id,
	provider_preference_id, external_reference, amount, status, checkout_url,
	created_at, updated_at
`

func (s *Store) CreateCharge(ctx context.Context, c *payment.Charge) error {
	query := `
		INSERT INTO charges (
			owner_id, client_id, session_id, ledger_entry_id, provider, provider_payment_id,
			provider_preference_id, external_reference, amount, status, checkout_url
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING id, created_at
	`

	err := s.db.QueryRowContext(ctx, query,
		c.OwnerID,
		c.ClientID,
		c.SessionID,
		c.LedgerEntryID,
		c.Provider,
		c.ProviderPaymentID,
		c.ProviderPreferenceID,
		c.ExternalReference,
		c.Amount,
		c.Status,
		c.CheckoutURL,
	).Scan(&c.ID, &c.CreatedAt)
	if err != nil {
		return fmt.Errorf("creating charge: %w", err)
	}

	return nil
}

func (s *Store) getOne(ctx context.Context, where string, arg any) (*payment.Charge, error) {
	query := `SELECT ` + selectChargeColumns + ` FROM charges WHERE ` + where

	c, err := scanCharge(s.db.QueryRowContext(ctx, query, arg))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, payment.ErrNotFound
		}

		return nil, fmt.Errorf("getting charge: %w", err)
	}

	return c, nil
}

func (s *Store) GetCharge(ctx context.Context, id uuid.UUID) (*payment.Charge, error) {
	return s.getOne(ctx, "id = $1", id)
}

func (s *Store) FindByProviderPaymentID(ctx context.Context, providerPaymentID string) (*payment.Charge, error) {
	return s.getOne(ctx, "provider_payment_id = $1", providerPaymentID)
}

func (s *Store) FindByPreferenceID(ctx context.Context, preferenceID string) (*payment.Charge, error) {
	return s.getOne(ctx, "provider_preference_id = $1 ORDER BY created_at DESC LIMIT 1", preferenceID)
}

func (s *Store) FindLatestPending(ctx context.Context, ref payment.Reference) (*payment.Charge, error) {
	query := `SELECT ` + selectChargeColumns + `
		FROM charges
		WHERE owner_id = $1 AND client_id = $2 AND status = $3
			AND ($4::uuid IS NULL OR session_id = $4)
		ORDER BY created_at DESC
		LIMIT 1`

	c, err := scanCharge(s.db.QueryRowContext(ctx, query, ref.OwnerID, ref.ClientID, payment.StatusPending, ref.SessionID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, payment.ErrNotFound
		}

		return nil, fmt.Errorf("finding pending charge: %w", err)
	}

	return c, nil
}

func (s *Store) ListCharges(ctx context.Context, ownerID uuid.UUID, status *payment.Status) ([]*payment.Charge, error) {
	query := `SELECT ` + selectChargeColumns + ` FROM charges WHERE owner_id = $1`
	args := []any{ownerID}

	if status != nil {
		query += " AND status = $2"

		args = append(args, *status)
	}

	query += " ORDER BY created_at DESC"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing charges: %w", err)
	}
	defer rows.Close()

	var charges []*payment.Charge

	for rows.Next() {
		c, err := scanCharge(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning charge: %w", err)
		}

		charges = append(charges, c)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating charge rows: %w", err)
	}

	return charges, nil
}

// reconcileTx adds charge writes to the plan transaction so the charge, its
// payment line, the session total and the billed ledger entry commit together.
type reconcileTx struct {
	*receivableStore.Tx
	entries *ledgerStore.Tx
	tx      *sql.Tx
}

func (s *Store) BeginReconcile(ctx context.Context) (payment.ReconcileTx, error) {
	dbTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning reconcile tx: %w", err)
	}

	return &reconcileTx{
		Tx:      receivableStore.NewTx(dbTx),
		entries: ledgerStore.NewTx(dbTx),
		tx:      dbTx,
	}, nil
}

func (r *reconcileTx) LockEntry(ctx context.Context, id uuid.UUID) (*ledger.Entry, error) {
	return r.entries.LockEntry(ctx, id)
}

func (r *reconcileTx) UpdateEntry(ctx context.Context, id uuid.UUID, patch ledger.Patch) error {
	return r.entries.UpdateEntry(ctx, id, patch)
}

func (r *reconcileTx) LockCharge(ctx context.Context, id uuid.UUID) (*payment.Charge, error) {
	query := `SELECT ` + selectChargeColumns + ` FROM charges WHERE id = $1 FOR UPDATE`

	c, err := scanCharge(r.tx.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, payment.ErrNotFound
		}

		return nil, fmt.Errorf("locking charge: %w", err)
	}

	return c, nil
}

func (r *reconcileTx) SetChargeStatus(ctx context.Context, id uuid.UUID, status payment.Status, providerPaymentID string) error {
	query := `
		UPDATE charges
		SET status = $1,
			provider_payment_id = COALESCE(NULLIF($2, ''), provider_payment_id),
			updated_at = NOW()
		WHERE id = $3
	`

	res, err := r.tx.ExecContext(ctx, query, status, providerPaymentID, id)
	if err != nil {
		return fmt.Errorf("updating charge status: %w", err)
	}

	if n, _ := res.RowsAffected(); n == 0 {
		return payment.ErrNotFound
	}

	return nil
}
