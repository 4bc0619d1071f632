package view

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/MrJamesThe3rd/studiobooks/internal/money"
	"github.com/MrJamesThe3rd/studiobooks/internal/sessioncache"
)

const dbTimeout = 5 * time.Second

var monthNames = [...]string{
	"janeiro", "fevereiro", "março", "abril", "maio", "junho",
	"julho", "agosto", "setembro", "outubro", "novembro", "dezembro",
}

func FormatAmount(cents int64) string {
	return money.Format(cents)
}

// FormatDate formats a time.Time as DD/MM.
func FormatDate(t time.Time) string {
	return t.Format("02/01")
}

// FormatPeriod renders a period as "maio de 2024".
func FormatPeriod(p sessioncache.Period) string {
	return fmt.Sprintf("%s de %d", monthNames[p.Month-1], p.Year)
}

// DbCtx returns a context with a standard timeout for database operations.
func DbCtx() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), dbTimeout)
}

func activeStyle(s string) string {
	return lipgloss.NewStyle().Foreground(lipgloss.Color("205")).Render(s)
}

func panelStyle() lipgloss.Style {
	return lipgloss.NewStyle().
		Padding(1, 2).
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("63")).
		Width(48)
}
