package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/fluentdeck/srs_engine/config"
	"github.com/fluentdeck/srs_engine/internal/scheduler"
	"github.com/fluentdeck/srs_engine/internal/session"
	"github.com/fluentdeck/srs_engine/internal/stores"
	"github.com/fluentdeck/srs_engine/internal/stores/sqlitestore"
)

type model struct {
	ctx       context.Context
	ctrl      *session.Controller
	deckID    int64
	textInput textinput.Model
	status    string
	lastGuess string
}

func initialModel(ctx context.Context, ctrl *session.Controller, deckID int64) model {
	ti := textinput.New()
	ti.Placeholder = "Answer"
	ti.Focus()
	ti.CharLimit = 60
	ti.Width = 40

	return model{
		ctx:       ctx,
		ctrl:      ctrl,
		deckID:    deckID,
		textInput: ti,
	}
}

func (m model) Init() tea.Cmd {
	return textinput.Blink
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {

	case tea.KeyMsg:
		switch msg.Type {

		case tea.KeyCtrlC:
			return m, tea.Quit

		case tea.KeyEnter:
			if m.ctrl.CurrentCard() != nil && !m.ctrl.Revealed() {
				m.lastGuess = strings.TrimSpace(m.textInput.Value())
				m.ctrl.Reveal()
				m.textInput.Reset()
			}
			return m, nil

		case tea.KeyRunes:
			if handled, next := m.handleRune(msg.Runes); handled {
				return next, nil
			}
		}
	}
	m.textInput, cmd = m.textInput.Update(msg)

	return m, cmd
}

// handleRune dispatches the rating and undo keys. Ratings are accepted only
// with the answer shown, so a stray keypress while the input has focus can't
// score a card sight unseen.
func (m model) handleRune(runes []rune) (bool, model) {
	if len(runes) != 1 {
		return false, m
	}
	var rating scheduler.Rating
	switch runes[0] {
	case '1':
		rating = scheduler.Failed
	case '2':
		rating = scheduler.Hard
	case '3':
		rating = scheduler.Good
	case '4':
		rating = scheduler.Easy
	case 'u', 'U':
		if err := m.ctrl.Undo(m.ctx); err != nil {
			m.status = err.Error()
		} else {
			m.status = "undid last rating"
		}
		m.textInput.Reset()
		return true, m
	default:
		return false, m
	}

	if !m.ctrl.Revealed() {
		return false, m
	}
	if err := m.ctrl.Rate(m.ctx, rating); err != nil {
		m.status = err.Error()
	} else {
		m.status = ""
		m.lastGuess = ""
	}
	return true, m
}

func (m model) View() string {
	stats := m.ctrl.Stats()
	header := fmt.Sprintf("Deck %d    %d left today    %d done",
		m.deckID, stats.RemainingToday, stats.CompletedCount)

	var body string
	var footer string
	cur := m.ctrl.CurrentCard()
	if cur == nil {
		body = "Nothing left to study today. Come back tomorrow,\n" +
			"or add new pairs with srsimport."
	} else {
		body = strings.Repeat("-", 20)
		body += "\n\n"
		body += "  " + cur.Prompt
		body += "\n\n"
		if m.ctrl.Revealed() {
			body += "  " + cur.Answer + "\n"
			if m.lastGuess != "" {
				if strings.EqualFold(m.lastGuess, cur.Answer) {
					body += "\n  you said: " + m.lastGuess + "  ✓\n"
				} else {
					body += "\n  you said: " + m.lastGuess + "  ✗\n"
				}
			}
			footer = "(1) Missed    (2) Hard    (3) Good    (4) Easy \n\n      (U) Undo"
		} else {
			footer = "Type your answer and hit enter to flip.\n\n      (U) Undo"
		}
	}

	out := header + "\n\n" + body + "\n\n" +
		strings.Repeat("-", 25) + "\n" + footer + "\n"
	if m.status != "" {
		out += "\n" + m.status + "\n"
	}
	if cur != nil && !m.ctrl.Revealed() {
		out += "\n" + m.textInput.View() + "\n"
	}
	return out
}

func main() {
	cfg := &config.Config{}
	if err := cfg.Load(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "bad config: %v\n", err)
		os.Exit(1)
	}
	zerolog.SetGlobalLevel(zerolog.WarnLevel)
	if strings.ToLower(cfg.LogLevel) == "debug" {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}

	store, err := sqlitestore.Open(cfg.VaultPath)
	if err != nil {
		log.Fatal().Err(err).Str("vault", cfg.VaultPath).Msg("opening vault")
	}
	defer store.Close()

	ctrl := session.NewController(store, store, stores.Settings{
		DayStartHour:     cfg.DayStartHour,
		MaxNewPerDay:     cfg.MaxNewPerDay,
		MaxReviewsPerDay: cfg.MaxReviewsPerDay,
	})

	ctx := log.Logger.WithContext(context.Background())
	if err := ctrl.Start(ctx, cfg.DeckID); err != nil {
		log.Fatal().Err(err).Msg("starting session")
	}
	defer ctrl.Teardown()

	p := tea.NewProgram(initialModel(ctx, ctrl, cfg.DeckID))
	if _, err := p.Run(); err != nil {
		fmt.Printf("Alas, there's been an error: %v", err)
		os.Exit(1)
	}
}
