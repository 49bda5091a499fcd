package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/tatianab/franco-game/internal/engine"
	"github.com/tatianab/franco-game/internal/models"
	"github.com/tatianab/franco-game/internal/persistence"
	"github.com/tatianab/franco-game/internal/session"
)

type sessionState int

const (
	stateLoading sessionState = iota
	statePlaying
	stateOver
)

type model struct {
	ctx      context.Context
	state    sessionState
	session  *session.Session
	player   string
	game     models.GameState
	keys     keyMap
	help     help.Model
	spinner  spinner.Model
	viewport viewport.Model
	gameLog  string
	notice   string
	width    int
	height   int
}

var (
	userStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#EEEEEE")).
			Background(lipgloss.Color("#5F5F87")).
			Bold(true).
			PaddingLeft(1)

	gameStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFFFFF"))

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#888888")).
			Italic(true)

	noticeStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF8787"))

	stateStyle = lipgloss.NewStyle().
			Border(lipgloss.NormalBorder(), false, false, false, true).
			BorderForeground(lipgloss.Color("#3C3C3C")).
			PaddingLeft(2).
			Foreground(lipgloss.Color("#AAAAAA"))

	titleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFA500")).
			Bold(true).
			Underline(true)
)

type keyMap struct {
	North   key.Binding
	South   key.Binding
	East    key.Binding
	West    key.Binding
	Collect key.Binding
	Restart key.Binding
	Quit    key.Binding
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.North, k.South, k.East, k.West, k.Collect, k.Restart, k.Quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{k.ShortHelp()}
}

var defaultKeys = keyMap{
	North:   key.NewBinding(key.WithKeys("up", "w"), key.WithHelp("↑/w", "north")),
	South:   key.NewBinding(key.WithKeys("down", "s"), key.WithHelp("↓/s", "south")),
	East:    key.NewBinding(key.WithKeys("right", "d"), key.WithHelp("→/d", "east")),
	West:    key.NewBinding(key.WithKeys("left", "a"), key.WithHelp("←/a", "west")),
	Collect: key.NewBinding(key.WithKeys("g"), key.WithHelp("g", "grab")),
	Restart: key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "restart")),
	Quit:    key.NewBinding(key.WithKeys("q", "esc", "ctrl+c"), key.WithHelp("q", "quit")),
}

// NewModel builds the game screen. player, when set, is used to address the
// player at the end of a game.
func NewModel(ctx context.Context, sess *session.Session, player string) model {
	sp := spinner.New()
	sp.Spinner = spinner.Dot

	return model{
		ctx:      ctx,
		state:    stateLoading,
		session:  sess,
		player:   strings.TrimSpace(player),
		game:     sess.State(),
		keys:     defaultKeys,
		help:     help.New(),
		spinner:  sp,
		viewport: viewport.New(60, 16),
	}
}

func (m model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.resume())
}

type resumedMsg struct {
	err error
}

type persistedMsg struct {
	err error
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if key.Matches(msg, m.keys.Quit) {
			return m, tea.Quit
		}
		if m.state == stateLoading {
			return m, nil
		}
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.viewport.Width = m.logWidth()
		m.viewport.Height = max(msg.Height-8, 4)
		m.viewport.SetContent(m.gameLog)

	case resumedMsg:
		m.game = m.session.State()
		m.state = statePlaying
		if m.game.GameOver {
			m.state = stateOver
		}
		if msg.err != nil {
			m.notice = "Could not load your saved game, starting fresh."
		}
		world := m.session.Engine().World()
		m.appendLog(gameStyle.Bold(true).Render(world.Title()))
		m.appendLog(m.describe(m.game))
		return m, nil

	case persistedMsg:
		switch {
		case msg.err == nil:
		case errors.Is(msg.err, persistence.ErrUnreachable):
			m.notice = "You're offline. Your progress will be saved when the connection is back."
		default:
			m.notice = "Your progress could not be saved."
		}
		return m, nil

	case spinner.TickMsg:
		if m.state != stateLoading {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

func (m model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	var (
		in     session.Intent
		action string
	)
	switch {
	case key.Matches(msg, m.keys.North):
		in, action = session.MoveIntent{Direction: models.North}, "go north"
	case key.Matches(msg, m.keys.South):
		in, action = session.MoveIntent{Direction: models.South}, "go south"
	case key.Matches(msg, m.keys.East):
		in, action = session.MoveIntent{Direction: models.East}, "go east"
	case key.Matches(msg, m.keys.West):
		in, action = session.MoveIntent{Direction: models.West}, "go west"
	case key.Matches(msg, m.keys.Collect):
		in, action = session.CollectIntent{}, "grab"
	case key.Matches(msg, m.keys.Restart):
		in, action = session.RestartIntent{}, "restart"
	default:
		return m, nil
	}

	cp, err := m.session.Accept(in)
	if err != nil {
		m.notice = rejection(m.game, err)
		return m, nil
	}
	next := cp.State

	m.notice = ""
	m.game = next
	m.state = statePlaying
	if next.GameOver {
		m.state = stateOver
	}

	m.appendLog(userStyle.Width(m.logWidth()).Render("> " + action))
	m.appendLog(m.narrate(next, in))
	return m, m.persist(cp)
}

// rejection explains why an intent did nothing.
func rejection(state models.GameState, err error) string {
	switch {
	case state.GameOver:
		return "The game is over. Press r to play again."
	case errors.Is(err, engine.ErrIllegalMove):
		return "You can't go that way."
	case errors.Is(err, engine.ErrIllegalCollect):
		return "There's nothing here to pick up."
	default:
		return err.Error()
	}
}

func (m model) narrate(next models.GameState, in session.Intent) string {
	switch in.(type) {
	case session.RestartIntent:
		return "You start over in the lobby.\n\n" + m.describe(next)
	case session.CollectIntent:
		item := next.Inventory[len(next.Inventory)-1]
		s := fmt.Sprintf("You pick up the %s. (%d/%d)", strings.ToLower(string(item)), len(next.Inventory), len(models.AllItems))
		if next.IsWin {
			s += "\n\n" + m.addressed("Congratulations") + " You've collected all the food and won! Press r to play again."
		}
		return s
	default:
		return m.describe(next)
	}
}

func (m model) describe(state models.GameState) string {
	eng := m.session.Engine()
	room, err := eng.DescribeRoom(state.CurrentRoom)
	if err != nil {
		return err.Error()
	}

	var b strings.Builder
	b.WriteString(gameStyle.Bold(true).Render(string(room.ID)))
	b.WriteString("\n")
	b.WriteString(room.Description)
	switch {
	case state.GameOver && !state.IsWin:
		b.WriteString("\n\nFranco caught you! " + m.addressed("Better luck next time") + " Press r to try again.")
	case state.IsWin:
	default:
		if item, ok := eng.CollectibleItem(state); ok {
			fmt.Fprintf(&b, "\n\nThe %s is yours for the taking.", strings.ToLower(string(item)))
		}
	}
	return gameStyle.Width(m.logWidth()).Render(b.String())
}

// addressed ends a phrase with the player's name when there is one.
func (m model) addressed(phrase string) string {
	if m.player == "" {
		return phrase + "!"
	}
	return phrase + ", " + m.player + "!"
}

func (m *model) appendLog(s string) {
	if m.gameLog != "" {
		m.gameLog += "\n\n"
	}
	m.gameLog += s
	m.viewport.SetContent(m.gameLog)
	m.viewport.GotoBottom()
}

func (m model) logWidth() int {
	if m.width == 0 {
		return 60
	}
	return int(float64(m.width) * 0.7)
}

func (m model) View() string {
	var s string

	switch m.state {
	case stateLoading:
		s = fmt.Sprintf("\n  %s Loading your game...\n", m.spinner.View())

	default:
		mainView := lipgloss.JoinHorizontal(lipgloss.Top,
			m.viewport.View(),
			m.renderState(),
		)
		parts := []string{mainView}
		if m.notice != "" {
			parts = append(parts, "\n"+noticeStyle.Render(m.notice))
		}
		parts = append(parts, "\n"+helpStyle.Render(m.help.View(m.keys)))
		s = lipgloss.JoinVertical(lipgloss.Left, parts...)
	}

	return "\n" + s + "\n"
}

func (m model) renderState() string {
	eng := m.session.Engine()
	state := m.game

	location := titleStyle.Render("LOCATION") + "\n" + string(state.CurrentRoom) + "\n\n"

	exits := titleStyle.Render("EXITS") + "\n"
	for _, dir := range eng.AvailableDirections(state) {
		exits += string(dir) + "\n"
	}
	exits += "\n"

	invTitle := titleStyle.Render(fmt.Sprintf("INVENTORY %d/%d", len(state.Inventory), len(models.AllItems))) + "\n"
	inventory := ""
	if len(state.Inventory) == 0 {
		inventory = "(empty)"
	} else {
		for _, item := range state.Inventory {
			inventory += "- " + string(item) + "\n"
		}
	}

	content := location + exits + invTitle + inventory

	stateWidth := 24
	if m.width > 0 {
		stateWidth = int(float64(m.width) * 0.25)
	}
	return stateStyle.Width(stateWidth).Height(m.viewport.Height).Render(content)
}

// resume loads the saved game before any input is taken.
func (m model) resume() tea.Cmd {
	return func() tea.Msg {
		return resumedMsg{err: m.session.Resume(m.ctx)}
	}
}

// persist commits an accepted state. Commands may run in any order; the
// checkpoint's revision keeps an older state from replacing a newer one.
func (m model) persist(cp session.Checkpoint) tea.Cmd {
	return func() tea.Msg {
		return persistedMsg{err: m.session.Commit(m.ctx, cp)}
	}
}

func Run(ctx context.Context, sess *session.Session, player string) error {
	p := tea.NewProgram(NewModel(ctx, sess, player), tea.WithAltScreen(), tea.WithContext(ctx))
	_, err := p.Run()
	return err
}
