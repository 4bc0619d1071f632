package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"github.com/MrJamesThe3rd/studiobooks/cmd/tui/internal/view"
	"github.com/MrJamesThe3rd/studiobooks/internal/config"
	"github.com/MrJamesThe3rd/studiobooks/internal/database"
	"github.com/MrJamesThe3rd/studiobooks/internal/ledger"
	ledgerStore "github.com/MrJamesThe3rd/studiobooks/internal/ledger/store"
	"github.com/MrJamesThe3rd/studiobooks/internal/receivable"
	receivableStore "github.com/MrJamesThe3rd/studiobooks/internal/receivable/store"
	"github.com/MrJamesThe3rd/studiobooks/internal/session"
	sessionStore "github.com/MrJamesThe3rd/studiobooks/internal/session/store"
	"github.com/MrJamesThe3rd/studiobooks/internal/sessioncache"
	"github.com/MrJamesThe3rd/studiobooks/internal/sessioncache/redisbus"
)

type model struct {
	appName  string
	services view.Services

	currentView View
	screen      view.View
}

type View int

const (
	ViewMenu  View = 0
	ViewMonth View = 1
)

func setup() (model, func(), error) {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return model{}, nil, err
	}

	ownerID, err := uuid.Parse(cfg.Owner.ID)
	if err != nil {
		return model{}, nil, fmt.Errorf("parsing OWNER_ID: %w", err)
	}

	db, err := database.New(cfg.ConnectionString())
	if err != nil {
		return model{}, nil, fmt.Errorf("connecting to database: %w", err)
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})

	ledgerRepo := ledgerStore.New(db)

	var (
		ledgerSvc  = ledger.NewService(ledgerRepo, ledgerRepo)
		sessionSvc = session.NewService(sessionStore.New(db))
		planSvc    = receivable.NewService(receivableStore.New(db))
	)

	cache, err := sessioncache.New(
		sessioncache.NewSource(ownerID, sessionSvc, ledgerSvc),
		redisbus.New(rdb, ownerID),
		sessioncache.WithTTL(cfg.Cache.TTL),
		sessioncache.WithRefreshDelay(cfg.Cache.RefreshDelay),
	)
	if err != nil {
		_ = rdb.Close()
		_ = db.Close()

		return model{}, nil, fmt.Errorf("creating session cache: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := cache.Preload(ctx); err != nil {
		slog.Warn("failed to preload months", "error", err)
	}

	teardown := func() {
		if err := cache.Close(); err != nil {
			slog.Error("failed to close session cache", "error", err)
		}

		_ = rdb.Close()
		_ = db.Close()
	}

	services := view.Services{
		OwnerID:  ownerID,
		Cache:    cache,
		Sessions: sessionSvc,
		Plans:    planSvc,
		Ledger:   ledgerSvc,
	}

	return model{
		appName:     cfg.App.Name,
		services:    services,
		currentView: ViewMenu,
	}, teardown, nil
}

func (m model) Init() tea.Cmd {
	return nil
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return m, tea.Quit
		}

		if m.currentView == ViewMenu {
			switch msg.String() {
			case "q":
				return m, tea.Quit
			case "1":
				m.currentView = ViewMonth
				m.screen = view.NewMonthModel(m.services, time.Now())

				return m, m.screen.Init()
			}
		}
	case view.BackMsg:
		m.currentView = ViewMenu
		return m, nil
	}

	if m.currentView == ViewMonth {
		var newModel tea.Model
		newModel, cmd = m.screen.Update(msg)
		m.screen = newModel.(view.View)
	}

	return m, cmd
}

func (m model) View() string {
	switch m.currentView {
	case ViewMenu:
		return lipgloss.NewStyle().Padding(2).Render(
			m.appName + "\n\n" +
				"1. Month overview\n\n" +
				"q. Quit",
		)
	case ViewMonth:
		return m.screen.View()
	}

	return "Unknown View"
}

func main() {
	m, teardown, err := setup()
	if err != nil {
		slog.Error("failed to start TUI", "error", err)
		os.Exit(1)
	}

	p := tea.NewProgram(m)
	_, err = p.Run()

	teardown()

	if err != nil {
		slog.Error("failed to run TUI", "error", err)
		os.Exit(1)
	}
}
