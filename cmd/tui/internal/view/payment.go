package view

import (
	"errors"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"

	"github.com/MrJamesThe3rd/studiobooks/internal/money"
	"github.com/MrJamesThe3rd/studiobooks/internal/receivable"
	"github.com/MrJamesThe3rd/studiobooks/internal/sessioncache"
)

type payForm struct {
	item   sessioncache.Item
	amount string
}

func validateAmount(s string) error {
	cents, err := money.Parse(s)
	if err != nil {
		return errors.New("valor inválido")
	}

	if cents <= 0 {
		return errors.New("o valor deve ser positivo")
	}

	return nil
}

func (m MonthModel) enterPay() (tea.Model, tea.Cmd) {
	it, ok := m.selected()
	if !ok || it.Kind != sessioncache.ItemSession {
		m.status = "Selecione uma sessão para registrar o pagamento"
		return m, nil
	}

	m.pay = &payForm{item: it, amount: money.Format(max(it.Amount-it.AmountPaid, 0))}
	m.form = huh.NewForm(
		huh.NewGroup(
			huh.NewNote().
				Title(it.Title).
				Description(fmt.Sprintf("Total %s, pago %s", FormatAmount(it.Amount), FormatAmount(it.AmountPaid))),
			huh.NewInput().
				Key("amount").
				Title("Valor recebido").
				Value(&m.pay.amount).
				Validate(validateAmount),
		),
	).WithWidth(45).WithShowHelp(false)

	m.state = monthStatePay
	m.table.Blur()

	return m, m.form.Init()
}

func (m MonthModel) payCmd() tea.Cmd {
	f := m.pay

	return func() tea.Msg {
		ctx, cancel := DbCtx()
		defer cancel()

		amount, err := money.Parse(f.amount)
		if err != nil {
			return actionMsg{err: err}
		}

		sess, err := m.svc.Sessions.Get(ctx, f.item.ID)
		if err != nil {
			return actionMsg{err: err}
		}

		if _, err := m.svc.Plans.RecordQuickPayment(ctx, receivable.QuickPaymentParams{
			SessionID:    sess.ID,
			ClientID:     sess.ClientID,
			Amount:       amount,
			SessionTotal: sess.TotalAmount,
		}); err != nil {
			return actionMsg{err: err}
		}

		sess, err = m.svc.Sessions.Get(ctx, sess.ID)
		if err != nil {
			return actionMsg{err: err}
		}

		status := string(sess.PaymentState())
		if err := m.svc.Cache.UpdateItem(sess.ID, sessioncache.ItemPatch{
			AmountPaid: &sess.AmountPaid,
			Status:     &status,
		}); err != nil {
			return actionMsg{err: err}
		}

		return actionMsg{status: fmt.Sprintf("Pagamento de %s registrado", money.Format(amount))}
	}
}
