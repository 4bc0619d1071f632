package store_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MrJamesThe3rd/studiobooks/internal/ledger"
	"github.com/MrJamesThe3rd/studiobooks/internal/receivable"
	"github.com/MrJamesThe3rd/studiobooks/internal/receivable/store"
	"github.com/MrJamesThe3rd/studiobooks/internal/session"
	sessionStore "github.com/MrJamesThe3rd/studiobooks/internal/session/store"
)

type fixture struct {
	sessions *sessionStore.Memory
	svc      *receivable.Service
	session  *session.Session
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	sessions := sessionStore.NewMemory()
	sess := &session.Session{
		OwnerID:     uuid.New(),
		ClientID:    uuid.New(),
		Title:       "Ensaio gestante",
		ScheduledAt: time.Date(2024, 5, 4, 15, 0, 0, 0, time.UTC),
		TotalAmount: 120000,
	}
	require.NoError(t, sessions.Create(context.Background(), sess))

	svc := receivable.NewService(store.NewMemory(sessions), receivable.WithClock(func() time.Time {
		return time.Date(2024, 4, 1, 12, 0, 0, 0, time.UTC)
	}))

	return &fixture{sessions: sessions, svc: svc, session: sess}
}

func (f *fixture) amountPaid(t *testing.T) int64 {
	t.Helper()

	sess, err := f.sessions.Get(context.Background(), f.session.ID)
	require.NoError(t, err)

	return sess.AmountPaid
}

func (f *fixture) schedule(t *testing.T, amount int64, count int) *receivable.Plan {
	t.Helper()

	plan, err := f.svc.Schedule(context.Background(), receivable.ScheduleParams{
		SessionID:    f.session.ID,
		ClientID:     f.session.ClientID,
		Amount:       amount,
		Mode:         receivable.ModeInstallments,
		Count:        count,
		FirstDueDate: ledger.Date(2024, 5, 4),
	})
	require.NoError(t, err)

	return plan
}

func (f *fixture) quick(t *testing.T, amount int64) {
	t.Helper()

	_, err := f.svc.RecordQuickPayment(context.Background(), receivable.QuickPaymentParams{
		SessionID:    f.session.ID,
		ClientID:     f.session.ClientID,
		Amount:       amount,
		SessionTotal: f.session.TotalAmount,
	})
	require.NoError(t, err)
}

func TestQuickPaymentsSurviveReplanning(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.schedule(t, 120000, 4)
	f.quick(t, 20000)
	f.quick(t, 15000)

	// Renegotiated twice.
	f.schedule(t, 100000, 2)
	f.schedule(t, 90000, 3)

	plans, err := f.svc.Plans(ctx, f.session.ID)
	require.NoError(t, err)

	var quick, scheduled []*receivable.Plan

	for _, p := range plans {
		if p.Kind == receivable.KindQuick {
			quick = append(quick, p)
		} else {
			scheduled = append(scheduled, p)
		}
	}

	require.Len(t, quick, 1)
	require.Len(t, quick[0].Installments, 2)

	for _, inst := range quick[0].Installments {
		assert.Equal(t, receivable.QuickNumber, inst.InstallmentNumber)
		assert.Equal(t, ledger.StatusPaid, inst.Status)
		assert.Equal(t, ledger.Date(2024, 4, 1), inst.DueDate)
		require.NotNil(t, inst.PaidAt)
	}

	assert.Equal(t, receivable.ModeFull, quick[0].Mode)
	assert.Equal(t, int64(120000), quick[0].TotalAmount)

	require.Len(t, scheduled, 1)
	assert.Len(t, scheduled[0].Installments, 3)
	assert.Equal(t, int64(90000), scheduled[0].TotalAmount)

	assert.Equal(t, int64(35000), f.amountPaid(t))

	paid, err := f.svc.AmountPaid(ctx, f.session.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(35000), paid)
}

func TestRemoveSessionData(t *testing.T) {
	type testCase struct {
		name          string
		preserve      bool
		wantPlans     int
		wantPaidTotal int64
	}

	tests := []testCase{
		{name: "PreservePayments", preserve: true, wantPlans: 1, wantPaidTotal: 30000},
		{name: "HardDelete", preserve: false, wantPlans: 0, wantPaidTotal: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			ctx := context.Background()

			f.schedule(t, 120000, 3)
			f.quick(t, 30000)

			require.NoError(t, f.svc.RemoveSessionData(ctx, f.session.ID, tt.preserve))

			plans, err := f.svc.Plans(ctx, f.session.ID)
			require.NoError(t, err)
			assert.Len(t, plans, tt.wantPlans)
			assert.Equal(t, tt.wantPaidTotal, f.amountPaid(t))
		})
	}
}

func TestRecordQuickPayment_UnknownSession(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.RecordQuickPayment(context.Background(), receivable.QuickPaymentParams{
		SessionID: uuid.New(),
		Amount:    100,
	})

	assert.ErrorIs(t, err, session.ErrNotFound)
}

func TestRecordQuickPayment_Overpayment(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.quick(t, 100000)

	_, err := f.svc.RecordQuickPayment(ctx, receivable.QuickPaymentParams{
		SessionID:    f.session.ID,
		ClientID:     f.session.ClientID,
		Amount:       20001,
		SessionTotal: f.session.TotalAmount,
	})
	assert.ErrorIs(t, err, receivable.ErrOverpayment)
	assert.Equal(t, int64(100000), f.amountPaid(t))

	f.quick(t, 20000)
	assert.Equal(t, int64(120000), f.amountPaid(t))
}

func TestRecordQuickPayment_ProviderTagIsUnique(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	params := receivable.QuickPaymentParams{
		SessionID:         f.session.ID,
		ClientID:          f.session.ClientID,
		Amount:            25000,
		ProviderPaymentID: new("123456789"),
	}

	_, err := f.svc.RecordQuickPayment(ctx, params)
	require.NoError(t, err)

	_, err = f.svc.RecordQuickPayment(ctx, params)
	assert.ErrorIs(t, err, receivable.ErrDuplicatePayment)

	assert.Equal(t, int64(25000), f.amountPaid(t))
}
