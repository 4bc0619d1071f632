package payment_test

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/MrJamesThe3rd/studiobooks/internal/ledger"
	"github.com/MrJamesThe3rd/studiobooks/internal/payment"
	"github.com/MrJamesThe3rd/studiobooks/internal/receivable"
)

func TestService_Reconcile(t *testing.T) {
	type mocks struct {
		repo     *payment.MockRepository
		rtx      *payment.MockReconcileTx
		provider *payment.MockProvider
	}

	type testCase struct {
		name         string
		setupMock    func(m mocks, charge *payment.Charge)
		wantOutcome  payment.Outcome
		wantStrategy payment.Strategy
		wantErr      error
	}

	const paymentID = "1320001"

	tests := []testCase{
		{
			name: "StoredTerminalSkipsProvider",
			setupMock: func(m mocks, charge *payment.Charge) {
				charge.Status = payment.StatusPaid
				m.repo.EXPECT().FindByProviderPaymentID(gomock.Any(), paymentID).Return(charge, nil)
			},
			wantOutcome:  payment.OutcomeDuplicate,
			wantStrategy: payment.StrategyPaymentID,
		},
		{
			name: "ProviderUnavailable",
			setupMock: func(m mocks, _ *payment.Charge) {
				m.repo.EXPECT().FindByProviderPaymentID(gomock.Any(), paymentID).Return(nil, payment.ErrNotFound)
				m.provider.EXPECT().
					GetPayment(gomock.Any(), paymentID).
					Return(nil, &payment.TransientError{Op: "get payment", Err: errors.New("502 bad gateway")})
			},
			wantErr: payment.ErrTransient,
		},
		{
			name: "StoreFailure",
			setupMock: func(m mocks, _ *payment.Charge) {
				m.repo.EXPECT().FindByProviderPaymentID(gomock.Any(), paymentID).Return(nil, errors.New("connection reset"))
			},
			wantErr: errors.New("connection reset"),
		},
		{
			name: "Unmatched",
			setupMock: func(m mocks, _ *payment.Charge) {
				m.repo.EXPECT().FindByProviderPaymentID(gomock.Any(), paymentID).Return(nil, payment.ErrNotFound)
				m.provider.EXPECT().
					GetPayment(gomock.Any(), paymentID).
					Return(&payment.PaymentDetails{ID: paymentID, Status: "approved", PreferenceID: "pref-x"}, nil)
				m.repo.EXPECT().FindByPreferenceID(gomock.Any(), "pref-x").Return(nil, payment.ErrNotFound)
			},
			wantOutcome:  payment.OutcomeUnmatched,
			wantStrategy: payment.StrategyNone,
		},
		{
			name: "UnreadableReference",
			setupMock: func(m mocks, _ *payment.Charge) {
				m.repo.EXPECT().FindByProviderPaymentID(gomock.Any(), paymentID).Return(nil, payment.ErrNotFound)
				m.provider.EXPECT().
					GetPayment(gomock.Any(), paymentID).
					Return(&payment.PaymentDetails{ID: paymentID, Status: "approved", ExternalReference: "order-17"}, nil)
			},
			wantOutcome:  payment.OutcomeUnmatched,
			wantStrategy: payment.StrategyNone,
		},
		{
			name: "StillInProcess",
			setupMock: func(m mocks, charge *payment.Charge) {
				m.repo.EXPECT().FindByProviderPaymentID(gomock.Any(), paymentID).Return(nil, payment.ErrNotFound)
				m.provider.EXPECT().
					GetPayment(gomock.Any(), paymentID).
					Return(&payment.PaymentDetails{ID: paymentID, Status: "in_process", PreferenceID: "pref-1"}, nil)
				m.repo.EXPECT().FindByPreferenceID(gomock.Any(), "pref-1").Return(charge, nil)
			},
			wantOutcome:  payment.OutcomePending,
			wantStrategy: payment.StrategyPreferenceID,
		},
		{
			name: "ApprovedByPreference",
			setupMock: func(m mocks, charge *payment.Charge) {
				m.repo.EXPECT().FindByProviderPaymentID(gomock.Any(), paymentID).Return(nil, payment.ErrNotFound)
				m.provider.EXPECT().
					GetPayment(gomock.Any(), paymentID).
					Return(&payment.PaymentDetails{ID: paymentID, Status: "approved", Amount: 25000, PreferenceID: "pref-1"}, nil)
				m.repo.EXPECT().FindByPreferenceID(gomock.Any(), "pref-1").Return(charge, nil)
				m.repo.EXPECT().BeginReconcile(gomock.Any()).Return(m.rtx, nil)

				gomock.InOrder(
					m.rtx.EXPECT().LockCharge(gomock.Any(), charge.ID).Return(charge, nil),
					m.rtx.EXPECT().SetChargeStatus(gomock.Any(), charge.ID, payment.StatusPaid, paymentID).Return(nil),
					m.rtx.EXPECT().LockSession(gomock.Any(), *charge.SessionID).Return(nil),
					m.rtx.EXPECT().PaymentLineExists(gomock.Any(), paymentID).Return(false, nil),
					m.rtx.EXPECT().
						AppendQuickPayment(gomock.Any(), gomock.Any(), charge.ClientID, int64(0)).
						DoAndReturn(func(_ context.Context, inst *receivable.Installment, _ uuid.UUID, _ int64) error {
							assert.Equal(t, int64(25000), inst.Amount)
							assert.Equal(t, receivable.QuickNumber, inst.InstallmentNumber)
							assert.Equal(t, paymentID, *inst.ProviderPaymentID)
							return nil
						}),
					m.rtx.EXPECT().RecomputeAmountPaid(gomock.Any(), *charge.SessionID).Return(int64(25000), nil),
					m.rtx.EXPECT().Commit().Return(nil),
				)
				m.rtx.EXPECT().Rollback().Return(nil)
			},
			wantOutcome:  payment.OutcomeApplied,
			wantStrategy: payment.StrategyPreferenceID,
		},
		{
			name: "RecoveredByReference",
			setupMock: func(m mocks, charge *payment.Charge) {
				ref := payment.Reference{OwnerID: charge.OwnerID, ClientID: charge.ClientID, SessionID: charge.SessionID}

				m.repo.EXPECT().FindByProviderPaymentID(gomock.Any(), paymentID).Return(nil, payment.ErrNotFound)
				m.provider.EXPECT().
					GetPayment(gomock.Any(), paymentID).
					Return(&payment.PaymentDetails{ID: paymentID, Status: "rejected", ExternalReference: ref.String()}, nil)
				m.repo.EXPECT().FindLatestPending(gomock.Any(), ref).Return(charge, nil)
			},
			wantOutcome:  payment.OutcomeRejected,
			wantStrategy: payment.StrategyExternalReference,
		},
		{
			name: "ChargedBackIsLoggedOnly",
			setupMock: func(m mocks, charge *payment.Charge) {
				m.repo.EXPECT().FindByProviderPaymentID(gomock.Any(), paymentID).Return(nil, payment.ErrNotFound)
				m.provider.EXPECT().
					GetPayment(gomock.Any(), paymentID).
					Return(&payment.PaymentDetails{ID: paymentID, Status: "charged_back", PreferenceID: "pref-1"}, nil)
				m.repo.EXPECT().FindByPreferenceID(gomock.Any(), "pref-1").Return(charge, nil)
			},
			wantOutcome:  payment.OutcomeReversed,
			wantStrategy: payment.StrategyPreferenceID,
		},
		{
			name: "ApprovedSettlesLedgerEntry",
			setupMock: func(m mocks, charge *payment.Charge) {
				entryID := uuid.New()
				charge.SessionID = nil
				charge.LedgerEntryID = &entryID

				m.repo.EXPECT().FindByProviderPaymentID(gomock.Any(), paymentID).Return(nil, payment.ErrNotFound)
				m.provider.EXPECT().
					GetPayment(gomock.Any(), paymentID).
					Return(&payment.PaymentDetails{ID: paymentID, Status: "approved", Amount: 25000, PreferenceID: "pref-1"}, nil)
				m.repo.EXPECT().FindByPreferenceID(gomock.Any(), "pref-1").Return(charge, nil)
				m.repo.EXPECT().BeginReconcile(gomock.Any()).Return(m.rtx, nil)

				paid, billed := ledger.StatusPaid, ledger.StatusBilled

				gomock.InOrder(
					m.rtx.EXPECT().LockCharge(gomock.Any(), charge.ID).Return(charge, nil),
					m.rtx.EXPECT().SetChargeStatus(gomock.Any(), charge.ID, payment.StatusPaid, paymentID).Return(nil),
					m.rtx.EXPECT().LockEntry(gomock.Any(), entryID).Return(&ledger.Entry{ID: entryID, Status: billed}, nil),
					m.rtx.EXPECT().UpdateEntry(gomock.Any(), entryID, ledger.Patch{Status: &paid, FromStatus: &billed}).Return(nil),
					m.rtx.EXPECT().Commit().Return(nil),
				)
				m.rtx.EXPECT().Rollback().Return(nil)
			},
			wantOutcome:  payment.OutcomeApplied,
			wantStrategy: payment.StrategyPreferenceID,
		},
		{
			name: "LockedChargeAlreadyPaid",
			setupMock: func(m mocks, charge *payment.Charge) {
				m.repo.EXPECT().FindByProviderPaymentID(gomock.Any(), paymentID).Return(charge, nil)
				m.provider.EXPECT().
					GetPayment(gomock.Any(), paymentID).
					Return(&payment.PaymentDetails{ID: paymentID, Status: "approved"}, nil)
				m.repo.EXPECT().BeginReconcile(gomock.Any()).Return(m.rtx, nil)

				paid := *charge
				paid.Status = payment.StatusPaid
				m.rtx.EXPECT().LockCharge(gomock.Any(), charge.ID).Return(&paid, nil)
				m.rtx.EXPECT().Rollback().Return(nil)
			},
			wantOutcome:  payment.OutcomeDuplicate,
			wantStrategy: payment.StrategyPaymentID,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			defer ctrl.Finish()

			m := mocks{
				repo:     payment.NewMockRepository(ctrl),
				rtx:      payment.NewMockReconcileTx(ctrl),
				provider: payment.NewMockProvider(ctrl),
			}

			sessionID := uuid.New()
			charge := &payment.Charge{
				ID:        uuid.New(),
				OwnerID:   uuid.New(),
				ClientID:  uuid.New(),
				SessionID: &sessionID,
				Amount:    25000,
				Status:    payment.StatusPending,
			}

			tt.setupMock(m, charge)

			svc := payment.NewService(m.repo, m.provider)
			got, err := svc.Reconcile(context.Background(), payment.Event{ProviderPaymentID: paymentID})

			if tt.wantErr != nil {
				require.Error(t, err)

				if errors.Is(tt.wantErr, payment.ErrTransient) {
					assert.ErrorIs(t, err, payment.ErrTransient)
				}

				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.wantOutcome, got.Outcome)
			assert.Equal(t, tt.wantStrategy, got.Strategy)
		})
	}
}

func TestService_Reconcile_MissingID(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	svc := payment.NewService(payment.NewMockRepository(ctrl), payment.NewMockProvider(ctrl))

	_, err := svc.Reconcile(context.Background(), payment.Event{})
	assert.ErrorIs(t, err, payment.ErrMalformedEvent)
}

func TestService_CreateCheckout(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	repo := payment.NewMockRepository(ctrl)
	provider := payment.NewMockProvider(ctrl)

	owner, client, session := uuid.New(), uuid.New(), uuid.New()
	wantRef := owner.String() + "|" + client.String() + "|" + session.String()

	provider.EXPECT().
		CreateCheckout(gomock.Any(), payment.CheckoutRequest{Title: "Ensaio", Amount: 25000, ExternalReference: wantRef}).
		Return(&payment.Checkout{PreferenceID: "pref-9", URL: "https://mp.example/checkout/pref-9"}, nil)
	provider.EXPECT().Name().Return("mercadopago")
	repo.EXPECT().
		CreateCharge(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, c *payment.Charge) error {
			c.ID = uuid.New()
			return nil
		})

	svc := payment.NewService(repo, provider)
	got, err := svc.CreateCheckout(context.Background(), payment.CheckoutParams{
		OwnerID:   owner,
		ClientID:  client,
		SessionID: &session,
		Title:     "Ensaio",
		Amount:    25000,
	})
	require.NoError(t, err)

	assert.Equal(t, payment.StatusPending, got.Status)
	assert.Equal(t, wantRef, got.ExternalReference)
	assert.Equal(t, "pref-9", *got.ProviderPreferenceID)
	assert.Equal(t, "mercadopago", got.Provider)

	_, err = svc.CreateCheckout(context.Background(), payment.CheckoutParams{Amount: 0})
	assert.ErrorIs(t, err, payment.ErrInvalidCharge)
}
