package sessioncache

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/MrJamesThe3rd/studiobooks/internal/ledger"
	"github.com/MrJamesThe3rd/studiobooks/internal/payment"
	"github.com/MrJamesThe3rd/studiobooks/internal/session"
)

type SessionGetter interface {
	Get(ctx context.Context, id uuid.UUID) (*session.Session, error)
}

// Publisher tells the cache instances of an owner about rows changed by
// processes that hold no Manager, like the API and the worker settling a
// payment. Receivers patch the item and schedule a silent refresh of its month.
type Publisher struct {
	origin   string
	busFor   func(ownerID uuid.UUID) Bus
	sessions SessionGetter
	now      func() time.Time
	logger   *slog.Logger
}

func NewPublisher(busFor func(ownerID uuid.UUID) Bus, sessions SessionGetter) *Publisher {
	return &Publisher{
		origin:   "publisher-" + uuid.NewString(),
		busFor:   busFor,
		sessions: sessions,
		now:      time.Now,
		logger:   slog.Default(),
	}
}

// ChargePaid publishes the new paid total of the charge's session and the
// paid status of the ledger entry it settled.
func (p *Publisher) ChargePaid(ctx context.Context, c *payment.Charge, res payment.Result) {
	bus := p.busFor(c.OwnerID)

	if c.SessionID != nil {
		s, err := p.sessions.Get(ctx, *c.SessionID)
		if err != nil {
			p.logger.Warn("loading paid session for cache update", "session_id", *c.SessionID, "error", err)
		} else {
			state := string(s.PaymentState())
			p.publish(ctx, bus, ItemUpdated{ID: s.ID, Patch: ItemPatch{AmountPaid: &s.AmountPaid, Status: &state}})
		}
	}

	if res.EntryPaid && c.LedgerEntryID != nil {
		paid := string(ledger.StatusPaid)
		p.publish(ctx, bus, ItemUpdated{ID: *c.LedgerEntryID, Patch: ItemPatch{Status: &paid}})
	}
}

func (p *Publisher) publish(ctx context.Context, bus Bus, msg Message) {
	data, err := EncodeMessage(p.origin, p.now(), msg)
	if err != nil {
		p.logger.Error("encoding cache message", "action", msg.Action(), "error", err)
		return
	}

	if err := bus.Publish(ctx, data); err != nil {
		p.logger.Warn("publishing cache message failed", "action", msg.Action(), "error", err)
	}
}
