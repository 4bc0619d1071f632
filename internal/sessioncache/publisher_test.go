package sessioncache_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MrJamesThe3rd/studiobooks/internal/ledger"
	ledgerStore "github.com/MrJamesThe3rd/studiobooks/internal/ledger/store"
	"github.com/MrJamesThe3rd/studiobooks/internal/payment"
	paymentStore "github.com/MrJamesThe3rd/studiobooks/internal/payment/store"
	receivableStore "github.com/MrJamesThe3rd/studiobooks/internal/receivable/store"
	"github.com/MrJamesThe3rd/studiobooks/internal/session"
	sessionStore "github.com/MrJamesThe3rd/studiobooks/internal/session/store"
	"github.com/MrJamesThe3rd/studiobooks/internal/sessioncache"
)

type approvingProvider struct {
	details payment.PaymentDetails
}

func (p *approvingProvider) Name() string { return "stub" }

func (p *approvingProvider) GetPayment(context.Context, string) (*payment.PaymentDetails, error) {
	return new(p.details), nil
}

func (p *approvingProvider) CreateCheckout(context.Context, payment.CheckoutRequest) (*payment.Checkout, error) {
	return &payment.Checkout{PreferenceID: "pref-77", URL: "https://checkout.example/pref-77"}, nil
}

func TestPublisher_ChargePaidReachesOwnerCaches(t *testing.T) {
	ctx := context.Background()
	owner := uuid.New()
	may := sessioncache.Period{Year: 2024, Month: time.May}

	sessions := sessionStore.NewMemory()
	sess := &session.Session{
		OwnerID:     owner,
		ClientID:    uuid.New(),
		Title:       "Ensaio newborn",
		ScheduledAt: time.Date(2024, 5, 18, 9, 0, 0, 0, time.UTC),
		TotalAmount: 50000,
	}
	require.NoError(t, sessions.Create(ctx, sess))

	entries := ledgerStore.NewMemory()
	entry := &ledger.Entry{
		ID:          uuid.New(),
		OwnerID:     owner,
		OwnerItemID: sess.ID,
		Description: "Sinal newborn",
		Amount:      12000,
		DueDate:     ledger.Date(2024, 5, 10),
		Status:      ledger.StatusBilled,
		CreatedAt:   time.Now(),
	}
	require.NoError(t, entries.Insert(ctx, []*ledger.Entry{entry}))

	hub := sessioncache.NewMemoryHub()
	sessionSvc := session.NewService(sessions)

	mgr, err := sessioncache.New(
		sessioncache.NewSource(owner, sessionSvc, ledger.NewService(entries, entries)),
		hub,
		sessioncache.WithRefreshDelay(time.Hour),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = mgr.Close() })

	_, err = mgr.Get(ctx, 2024, time.May, false)
	require.NoError(t, err)

	var busOwners []uuid.UUID

	publisher := sessioncache.NewPublisher(func(id uuid.UUID) sessioncache.Bus {
		busOwners = append(busOwners, id)
		return hub
	}, sessionSvc)

	provider := &approvingProvider{}
	charges := paymentStore.NewMemory(receivableStore.NewMemory(sessions), entries)
	svc := payment.NewService(charges, provider, payment.WithNotifier(publisher))

	c, err := svc.CreateCheckout(ctx, payment.CheckoutParams{
		OwnerID:       owner,
		ClientID:      sess.ClientID,
		SessionID:     &sess.ID,
		LedgerEntryID: &entry.ID,
		Title:         "Sinal",
		Amount:        12000,
	})
	require.NoError(t, err)

	provider.details = payment.PaymentDetails{
		ID:                "1320042",
		Status:            "approved",
		Amount:            12000,
		PreferenceID:      *c.ProviderPreferenceID,
		ExternalReference: c.ExternalReference,
	}

	res, err := svc.Reconcile(ctx, payment.Event{ProviderPaymentID: "1320042"})
	require.NoError(t, err)
	require.Equal(t, payment.OutcomeApplied, res.Outcome)

	assert.Equal(t, []uuid.UUID{owner}, busOwners)

	items, _, ok := mgr.Peek(may)
	require.True(t, ok)
	require.Len(t, items, 2)

	assert.Equal(t, entry.ID, items[0].ID)
	assert.Equal(t, string(ledger.StatusPaid), items[0].Status)

	assert.Equal(t, sess.ID, items[1].ID)
	assert.Equal(t, int64(12000), items[1].AmountPaid)
	assert.Equal(t, string(session.PaymentPartial), items[1].Status)

	// A redelivery settles nothing and publishes nothing.
	res, err = svc.Reconcile(ctx, payment.Event{ProviderPaymentID: "1320042"})
	require.NoError(t, err)
	assert.Equal(t, payment.OutcomeDuplicate, res.Outcome)
	assert.Len(t, busOwners, 1)
}
