package view

import (
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
	"github.com/google/uuid"

	"github.com/MrJamesThe3rd/studiobooks/internal/ledger"
	"github.com/MrJamesThe3rd/studiobooks/internal/receivable"
	"github.com/MrJamesThe3rd/studiobooks/internal/session"
	"github.com/MrJamesThe3rd/studiobooks/internal/sessioncache"
)

const syncInterval = 2 * time.Second

// Services is what the month browser reads from and writes to. Writes always
// go to the services first and are then mirrored into the cache.
type Services struct {
	OwnerID  uuid.UUID
	Cache    *sessioncache.Manager
	Sessions *session.Service
	Plans    *receivable.Service
	Ledger   *ledger.Service
}

type monthState int

const (
	monthStateBrowse monthState = iota
	monthStatePay
	monthStateCharge
)

type MonthModel struct {
	CommonModel
	svc Services

	state  monthState
	period sessioncache.Period
	table  table.Model
	items  []sessioncache.Item
	synced time.Time

	form   *huh.Form
	pay    *payForm
	charge *chargeForm

	loading bool
	err     error
	status  string
}

func NewMonthModel(svc Services, now time.Time) MonthModel {
	columns := []table.Column{
		{Title: "Data", Width: 7},
		{Title: "Tipo", Width: 8},
		{Title: "Descrição", Width: 36},
		{Title: "Valor", Width: 14},
		{Title: "Pago", Width: 14},
		{Title: "Status", Width: 10},
	}

	t := table.New(
		table.WithColumns(columns),
		table.WithFocused(true),
		table.WithHeight(15),
	)

	s := table.DefaultStyles()
	s.Header = s.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(lipgloss.Color("240")).
		BorderBottom(true).
		Bold(false)
	s.Selected = s.Selected.
		Foreground(lipgloss.Color("229")).
		Background(lipgloss.Color("57")).
		Bold(false)
	t.SetStyles(s)

	return MonthModel{
		svc:     svc,
		period:  sessioncache.PeriodOf(now),
		table:   t,
		loading: true,
	}
}

func (m MonthModel) Title() string { return "Month" }

func (m MonthModel) ShortHelp() string {
	if m.state != monthStateBrowse {
		return "Navigate form | Esc: cancel"
	}

	return "Esc: back | ←/→: month | r: refresh | p: payment | n: new charge | c: cancel entry"
}

func (m MonthModel) Init() tea.Cmd {
	return tea.Batch(m.loadCmd(false), syncTick())
}

func (m MonthModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case loadMonthMsg:
		if msg.period != m.period {
			return m, nil
		}

		m.loading = false
		m.err = msg.err

		if msg.err == nil {
			m.setItems(msg.items)
			m.synced = time.Now()
		}

		return m, nil

	case syncMsg:
		// Other terminals publish through the bus; pick up whatever the
		// cache now holds for the visible month.
		if items, at, ok := m.svc.Cache.Peek(m.period); ok && at.After(m.synced) {
			m.setItems(items)
			m.synced = at
		}

		return m, syncTick()

	case actionMsg:
		m.status = msg.status
		if msg.err != nil {
			m.status = fmt.Sprintf("Error: %v", msg.err)
		}

		m.reset()

		return m, m.loadCmd(false)

	case tea.WindowSizeMsg:
		m.Width, m.Height = msg.Width, msg.Height
		m.table.SetHeight(max(msg.Height-10, 5))

		return m, nil
	}

	switch m.state {
	case monthStatePay, monthStateCharge:
		return m.updateForm(msg)
	}

	return m.updateBrowse(msg)
}

func (m MonthModel) updateBrowse(msg tea.Msg) (tea.Model, tea.Cmd) {
	if keyMsg, ok := msg.(tea.KeyMsg); ok {
		switch keyMsg.String() {
		case "esc":
			return m, Back
		case "left", "h":
			return m.moveTo(m.period.Add(-1))
		case "right", "l":
			return m.moveTo(m.period.Add(1))
		case "r":
			m.loading = true
			return m, m.loadCmd(true)
		case "p":
			return m.enterPay()
		case "n":
			return m.enterCharge()
		case "c":
			return m, m.cancelEntryCmd()
		}
	}

	var cmd tea.Cmd
	m.table, cmd = m.table.Update(msg)

	return m, cmd
}

func (m MonthModel) moveTo(p sessioncache.Period) (tea.Model, tea.Cmd) {
	m.period = p
	m.loading = true
	m.status = ""
	m.items = nil
	m.table.SetRows(nil)

	return m, m.loadCmd(false)
}

func (m MonthModel) selected() (sessioncache.Item, bool) {
	idx := m.table.Cursor()
	if idx < 0 || idx >= len(m.items) {
		return sessioncache.Item{}, false
	}

	return m.items[idx], true
}

func (m MonthModel) updateForm(msg tea.Msg) (tea.Model, tea.Cmd) {
	if keyMsg, ok := msg.(tea.KeyMsg); ok && keyMsg.Type == tea.KeyEsc {
		m.reset()
		return m, nil
	}

	form, cmd := m.form.Update(msg)
	if f, ok := form.(*huh.Form); ok {
		m.form = f
	}

	switch m.form.State {
	case huh.StateAborted:
		m.reset()
		return m, nil
	case huh.StateCompleted:
		if m.state == monthStatePay {
			return m, m.payCmd()
		}

		return m, m.chargeCmd()
	}

	return m, cmd
}

func (m *MonthModel) reset() {
	m.state = monthStateBrowse
	m.form = nil
	m.pay = nil
	m.charge = nil
	m.table.Focus()
}

func (m *MonthModel) setItems(items []sessioncache.Item) {
	m.items = items

	rows := make([]table.Row, 0, len(items))
	for _, it := range items {
		kind := "Sessão"
		if it.Kind == sessioncache.ItemEntry {
			kind = "Conta"
		}

		rows = append(rows, table.Row{
			FormatDate(it.Date),
			kind,
			it.Title,
			FormatAmount(it.Amount),
			FormatAmount(it.AmountPaid),
			it.Status,
		})
	}

	m.table.SetRows(rows)
}

func (m MonthModel) View() string {
	header := fmt.Sprintf("Mês: %s", activeStyle(FormatPeriod(m.period)))

	var body string

	switch {
	case m.loading:
		body = "Loading month..."
	case m.err != nil:
		body = fmt.Sprintf("Error: %v", m.err)
	default:
		body = lipgloss.NewStyle().
			BorderStyle(lipgloss.NormalBorder()).
			BorderForeground(lipgloss.Color("240")).
			Render(m.table.View())
	}

	content := lipgloss.JoinVertical(lipgloss.Left,
		lipgloss.NewStyle().PaddingBottom(1).Render(header),
		body,
		lipgloss.NewStyle().Faint(true).PaddingTop(1).Render(m.ShortHelp()),
	)

	if m.form != nil {
		title := "Novo lançamento"
		if m.state == monthStatePay {
			title = "Registrar pagamento"
		}

		panel := panelStyle().Render(fmt.Sprintf("%s\n\n%s", title, m.form.View()))
		content = lipgloss.JoinHorizontal(lipgloss.Top, content, panel)
	}

	if m.status != "" {
		content = lipgloss.NewStyle().Faint(true).Render(m.status) + "\n" + content
	}

	return lipgloss.NewStyle().Padding(1).Render(content)
}

// Messages

type loadMonthMsg struct {
	period sessioncache.Period
	items  []sessioncache.Item
	err    error
}

type syncMsg time.Time

type actionMsg struct {
	status string
	err    error
}

func syncTick() tea.Cmd {
	return tea.Tick(syncInterval, func(t time.Time) tea.Msg {
		return syncMsg(t)
	})
}

func (m MonthModel) loadCmd(force bool) tea.Cmd {
	p := m.period

	return func() tea.Msg {
		ctx, cancel := DbCtx()
		defer cancel()

		items, err := m.svc.Cache.Get(ctx, p.Year, p.Month, force)

		return loadMonthMsg{period: p, items: items, err: err}
	}
}

func (m MonthModel) cancelEntryCmd() tea.Cmd {
	it, ok := m.selected()
	if !ok || it.Kind != sessioncache.ItemEntry {
		return nil
	}

	return func() tea.Msg {
		ctx, cancel := DbCtx()
		defer cancel()

		if err := m.svc.Ledger.Cancel(ctx, it.ID); err != nil {
			return actionMsg{err: err}
		}

		status := string(ledger.StatusCancelled)
		if err := m.svc.Cache.UpdateItem(it.ID, sessioncache.ItemPatch{Status: &status}); err != nil {
			return actionMsg{err: err}
		}

		return actionMsg{status: fmt.Sprintf("%s cancelado", it.Title)}
	}
}
