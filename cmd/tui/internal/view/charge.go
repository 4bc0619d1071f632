package view

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/google/uuid"

	"github.com/MrJamesThe3rd/studiobooks/internal/ledger"
	"github.com/MrJamesThe3rd/studiobooks/internal/money"
	"github.com/MrJamesThe3rd/studiobooks/internal/sessioncache"
)

const dateLayout = "02/01/2006"

type chargeForm struct {
	ownerItemID uuid.UUID
	description string
	amount      string
	firstDue    string
	mode        ledger.Mode
	count       string
	fixed       bool
}

func (m MonthModel) enterCharge() (tea.Model, tea.Cmd) {
	f := &chargeForm{
		ownerItemID: uuid.New(),
		firstDue:    m.period.Start().Format(dateLayout),
		mode:        ledger.ModeSingle,
		count:       "1",
		fixed:       true,
	}

	// A charge created on a session row belongs to that session.
	if it, ok := m.selected(); ok && it.Kind == sessioncache.ItemSession {
		f.ownerItemID = it.ID
		f.description = it.Title
	}

	m.charge = f
	m.form = huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Key("description").
				Title("Descrição").
				Value(&f.description).
				Validate(func(s string) error {
					if s == "" {
						return errors.New("a descrição é obrigatória")
					}
					return nil
				}),
			huh.NewInput().
				Key("amount").
				Title("Valor total").
				Value(&f.amount).
				Validate(validateAmount),
			huh.NewInput().
				Key("first_due").
				Title("Primeiro vencimento (DD/MM/AAAA)").
				Value(&f.firstDue).
				Validate(func(s string) error {
					if _, err := time.Parse(dateLayout, s); err != nil {
						return errors.New("data inválida")
					}
					return nil
				}),
		),
		huh.NewGroup(
			huh.NewSelect[ledger.Mode]().
				Key("mode").
				Title("Forma").
				Options(
					huh.NewOption("À vista", ledger.ModeSingle),
					huh.NewOption("Parcelado", ledger.ModeInstallments),
					huh.NewOption("Mensal", ledger.ModeRecurring),
				).
				Value(&f.mode),
			huh.NewInput().
				Key("count").
				Title("Parcelas / meses").
				Value(&f.count).
				Validate(func(s string) error {
					n, err := strconv.Atoi(s)
					if err != nil || n < 1 {
						return errors.New("informe um número a partir de 1")
					}
					return nil
				}),
			huh.NewConfirm().
				Key("fixed").
				Title("Valor fixo todo mês?").
				Value(&f.fixed),
		),
	).WithWidth(45).WithShowHelp(false)

	m.state = monthStateCharge
	m.table.Blur()

	return m, m.form.Init()
}

func (f *chargeForm) intent(ownerID uuid.UUID) (ledger.Intent, error) {
	amount, err := money.Parse(f.amount)
	if err != nil {
		return ledger.Intent{}, err
	}

	first, err := time.Parse(dateLayout, f.firstDue)
	if err != nil {
		return ledger.Intent{}, fmt.Errorf("parsing first due date: %w", err)
	}

	count, err := strconv.Atoi(f.count)
	if err != nil {
		return ledger.Intent{}, fmt.Errorf("parsing count: %w", err)
	}

	return ledger.Intent{
		OwnerID:       ownerID,
		OwnerItemID:   f.ownerItemID,
		Description:   f.description,
		TotalAmount:   amount,
		FirstDueDate:  first,
		Mode:          f.mode,
		Count:         count,
		IsFixedAmount: f.fixed,
	}, nil
}

func (m MonthModel) chargeCmd() tea.Cmd {
	f := m.charge

	return func() tea.Msg {
		ctx, cancel := DbCtx()
		defer cancel()

		intent, err := f.intent(m.svc.OwnerID)
		if err != nil {
			return actionMsg{err: err}
		}

		entries, err := m.svc.Ledger.Expand(ctx, intent)
		if err != nil {
			return actionMsg{err: err}
		}

		for _, e := range entries {
			if err := m.svc.Cache.AddItem(sessioncache.EntryItem(e)); err != nil {
				return actionMsg{err: err}
			}
		}

		return actionMsg{status: fmt.Sprintf("%d lançamento(s) criado(s)", len(entries))}
	}
}
