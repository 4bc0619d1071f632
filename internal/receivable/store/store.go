package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/MrJamesThe3rd/studiobooks/internal/ledger"
	"github.com/MrJamesThe3rd/studiobooks/internal/receivable"
	"github.com/MrJamesThe3rd/studiobooks/internal/session"
)

const uniqueViolation = "23505"

type Store struct {
	db *sql.DB
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

type scanner interface {
	Scan(dest ...any) error
}

func scanInstallment(s scanner) (*receivable.Installment, error) {
	var (
		inst      receivable.Installment
		statusStr string
	)

	if err := s.Scan(
		&inst.ID, &inst.PlanID, &inst.SessionID, &inst.InstallmentNumber, &inst.Amount,
		&inst.DueDate, &statusStr, &inst.PaidAt, &inst.ProviderPaymentID,
	); err != nil {
		return nil, err
	}

	inst.Status = ledger.Status(statusStr)
	inst.DueDate = ledger.DateOf(inst.DueDate)

	return &inst, nil
}

const selectInstallmentColumns = `
	id, plan_id, session_id, installment_number, amount, due_date, status, paid_at, provider_payment_id
`

// ListPlans returns the session's plans oldest first, each with its installments
// ordered by number.
func (s *Store) ListPlans(ctx context.Context, sessionID uuid.UUID) ([]*receivable.Plan, error) {
	planQuery := `
		SELECT id, session_id, client_id, total_amount, mode, kind, installment_count, created_at
		FROM payment_plans
		WHERE session_id = $1
		ORDER BY created_at ASC`

	rows, err := s.db.QueryContext(ctx, planQuery, sessionID)
	if err != nil {
		return nil, fmt.Errorf("listing plans: %w", err)
	}
	defer rows.Close()

	var plans []*receivable.Plan

	byID := make(map[uuid.UUID]*receivable.Plan)

	for rows.Next() {
		var (
			p          receivable.Plan
			mode, kind string
		)

		if err := rows.Scan(&p.ID, &p.SessionID, &p.ClientID, &p.TotalAmount, &mode, &kind, &p.InstallmentCount, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning plan: %w", err)
		}

		p.Mode = receivable.Mode(mode)
		p.Kind = receivable.Kind(kind)

		plans = append(plans, &p)
		byID[p.ID] = &p
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating plan rows: %w", err)
	}

	instQuery := `SELECT ` + selectInstallmentColumns + `
		FROM installments
		WHERE session_id = $1
		ORDER BY installment_number ASC, due_date ASC, created_at ASC`

	instRows, err := s.db.QueryContext(ctx, instQuery, sessionID)
	if err != nil {
		return nil, fmt.Errorf("listing installments: %w", err)
	}
	defer instRows.Close()

	for instRows.Next() {
		inst, err := scanInstallment(instRows)
		if err != nil {
			return nil, fmt.Errorf("scanning installment: %w", err)
		}

		if p, ok := byID[inst.PlanID]; ok {
			p.Installments = append(p.Installments, inst)
		}
	}

	if err := instRows.Err(); err != nil {
		return nil, fmt.Errorf("iterating installment rows: %w", err)
	}

	return plans, nil
}

func (s *Store) BeginPlan(ctx context.Context, sessionID uuid.UUID) (receivable.PlanTx, error) {
	dbTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning plan tx: %w", err)
	}

	ptx := NewTx(dbTx)
	if err := ptx.LockSession(ctx, sessionID); err != nil {
		dbTx.Rollback()
		return nil, err
	}

	return ptx, nil
}

// Tx implements receivable.PlanTx on a database transaction. Other stores
// embed it to write payment lines inside their own transactions.
type Tx struct {
	tx *sql.Tx
}

func NewTx(tx *sql.Tx) *Tx {
	return &Tx{tx: tx}
}

func (t *Tx) Commit() error   { return t.tx.Commit() }
func (t *Tx) Rollback() error { return t.tx.Rollback() }

// LockSession takes the session row lock. Statements issued after it see every
// payment line committed by transactions that held the lock before.
func (t *Tx) LockSession(ctx context.Context, sessionID uuid.UUID) error {
	var id uuid.UUID

	err := t.tx.QueryRowContext(ctx, `SELECT id FROM sessions WHERE id = $1 FOR UPDATE`, sessionID).Scan(&id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return session.ErrNotFound
		}

		return fmt.Errorf("locking session: %w", err)
	}

	return nil
}

func (t *Tx) ClearScheduled(ctx context.Context, sessionID uuid.UUID) error {
	instQuery := `
		DELETE FROM installments i
		USING payment_plans p
		WHERE i.plan_id = p.id
			AND p.session_id = $1
			AND p.kind = $2
			AND i.status <> $3
	`
	if _, err := t.tx.ExecContext(ctx, instQuery, sessionID, receivable.KindScheduled, ledger.StatusPaid); err != nil {
		return fmt.Errorf("deleting open installments: %w", err)
	}

	return t.deleteEmptyPlans(ctx, sessionID, new(receivable.KindScheduled))
}

// deleteEmptyPlans drops plans without installments, optionally only of one kind.
func (t *Tx) deleteEmptyPlans(ctx context.Context, sessionID uuid.UUID, kind *receivable.Kind) error {
	query := `
		DELETE FROM payment_plans p
		WHERE p.session_id = $1
			AND ($2::text IS NULL OR p.kind = $2)
			AND NOT EXISTS (SELECT 1 FROM installments i WHERE i.plan_id = p.id)
	`
	if _, err := t.tx.ExecContext(ctx, query, sessionID, kind); err != nil {
		return fmt.Errorf("deleting empty plans: %w", err)
	}

	return nil
}

func (t *Tx) CreatePlan(ctx context.Context, plan *receivable.Plan) error {
	planQuery := `
		INSERT INTO payment_plans (session_id, client_id, total_amount, mode, kind, installment_count)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at
	`

	err := t.tx.QueryRowContext(ctx, planQuery,
		plan.SessionID,
		plan.ClientID,
		plan.TotalAmount,
		plan.Mode,
		plan.Kind,
		plan.InstallmentCount,
	).Scan(&plan.ID, &plan.CreatedAt)
	if err != nil {
		return fmt.Errorf("inserting plan: %w", err)
	}

	for _, inst := range plan.Installments {
		inst.PlanID = plan.ID
		if err := t.insertInstallment(ctx, inst); err != nil {
			return err
		}
	}

	return nil
}

func (t *Tx) insertInstallment(ctx context.Context, inst *receivable.Installment) error {
	query := `
		INSERT INTO installments (plan_id, session_id, installment_number, amount, due_date, status, paid_at, provider_payment_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id
	`

	err := t.tx.QueryRowContext(ctx, query,
		inst.PlanID,
		inst.SessionID,
		inst.InstallmentNumber,
		inst.Amount,
		inst.DueDate,
		inst.Status,
		inst.PaidAt,
		inst.ProviderPaymentID,
	).Scan(&inst.ID)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return receivable.ErrDuplicatePayment
		}

		return fmt.Errorf("inserting installment: %w", err)
	}

	return nil
}

func (t *Tx) AppendQuickPayment(ctx context.Context, inst *receivable.Installment, clientID uuid.UUID, sessionTotal int64) error {
	var planID uuid.UUID

	findQuery := `SELECT id FROM payment_plans WHERE session_id = $1 AND kind = $2`

	err := t.tx.QueryRowContext(ctx, findQuery, inst.SessionID, receivable.KindQuick).Scan(&planID)

	switch {
	case errors.Is(err, sql.ErrNoRows):
		createQuery := `
			INSERT INTO payment_plans (session_id, client_id, total_amount, mode, kind, installment_count)
			SELECT $1, $2, COALESCE(NULLIF($3::bigint, 0), s.total_amount), $4, $5, 0
			FROM sessions s
			WHERE s.id = $1
			RETURNING id
		`

		err = t.tx.QueryRowContext(ctx, createQuery,
			inst.SessionID, clientID, sessionTotal, receivable.ModeFull, receivable.KindQuick,
		).Scan(&planID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return session.ErrNotFound
			}

			return fmt.Errorf("creating quick plan: %w", err)
		}
	case err != nil:
		return fmt.Errorf("finding quick plan: %w", err)
	}

	inst.PlanID = planID

	return t.insertInstallment(ctx, inst)
}

func (t *Tx) PaymentLineExists(ctx context.Context, providerPaymentID string) (bool, error) {
	var exists bool

	query := `SELECT EXISTS (SELECT 1 FROM installments WHERE provider_payment_id = $1)`
	if err := t.tx.QueryRowContext(ctx, query, providerPaymentID).Scan(&exists); err != nil {
		return false, fmt.Errorf("checking payment line: %w", err)
	}

	return exists, nil
}

func (t *Tx) RecomputeAmountPaid(ctx context.Context, sessionID uuid.UUID) (int64, error) {
	var paid int64

	sumQuery := `SELECT COALESCE(SUM(amount), 0) FROM installments WHERE session_id = $1 AND status = $2`
	if err := t.tx.QueryRowContext(ctx, sumQuery, sessionID, ledger.StatusPaid).Scan(&paid); err != nil {
		return 0, fmt.Errorf("summing paid installments: %w", err)
	}

	res, err := t.tx.ExecContext(ctx,
		`UPDATE sessions SET amount_paid = $1, updated_at = NOW() WHERE id = $2`, paid, sessionID)
	if err != nil {
		return 0, fmt.Errorf("updating amount paid: %w", err)
	}

	if n, _ := res.RowsAffected(); n == 0 {
		return 0, session.ErrNotFound
	}

	return paid, nil
}

func (t *Tx) DeleteSessionData(ctx context.Context, sessionID uuid.UUID, preservePaid bool) error {
	if !preservePaid {
		if _, err := t.tx.ExecContext(ctx, `DELETE FROM payment_plans WHERE session_id = $1`, sessionID); err != nil {
			return fmt.Errorf("deleting plans: %w", err)
		}

		return nil
	}

	query := `DELETE FROM installments WHERE session_id = $1 AND status <> $2`
	if _, err := t.tx.ExecContext(ctx, query, sessionID, ledger.StatusPaid); err != nil {
		return fmt.Errorf("deleting open installments: %w", err)
	}

	return t.deleteEmptyPlans(ctx, sessionID, nil)
}
