package main

import (
	"context"
	"strings"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/jwebster45206/anima-narrator/internal/handlers"
	"github.com/jwebster45206/anima-narrator/pkg/chat"
	"github.com/jwebster45206/anima-narrator/pkg/state"
)

const (
	AgentName       = "Narrator"
	PlaceHolderText = "What do you do?"
	DefaultPlayer   = "Wanderer"
)

const helpText = `How to play:
• Type what your character does and press Enter
• look, inventory and sheet are answered without the narrator
• When the narrator asks for a roll, press Ctrl+R
• Ctrl+T rolls the alternative the narrator offered
• /help shows this again`

// ConsoleUI is the bubbletea model for one play session.
type ConsoleUI struct {
	config *ConsoleConfig
	client *apiClient
	keys   keyMap

	gameState *state.GameState
	phase     string

	chatViewport viewport.Model
	metaViewport viewport.Model
	textarea     textarea.Model
	help         help.Model
	spinner      spinner.Model

	ready         bool
	width, height int
	err           error
	notice        string

	// loading is set while a command or roll is with the API
	loading      bool
	loadingLabel string
	pendingInput string

	showClassModal bool
	classes        []handlers.ClassSummary
	selectedClass  int
	loadingClasses bool

	showQuitModal bool
}

type commandResponseMsg struct {
	response *chat.CommandResponse
	err      error
}

type gameStateMsg struct {
	game *handlers.GameResponse
	err  error
}

type classesLoadedMsg struct {
	classes []handlers.ClassSummary
	err     error
}

type gameCreatedMsg struct {
	game *handlers.GameResponse
	err  error
}

func NewConsoleUI(cfg *ConsoleConfig, client *apiClient) ConsoleUI {
	ta := textarea.New()
	ta.Placeholder = PlaceHolderText
	ta.Prompt = theme.muted.Render(":: ")
	ta.CharLimit = chat.MaxMessageLength
	ta.ShowLineNumbers = false
	ta.SetHeight(3)
	ta.Focus()

	chatVp := viewport.New(50, 20)
	chatVp.MouseWheelEnabled = true

	h := help.New()
	h.ShowAll = true

	return ConsoleUI{
		config:         cfg,
		client:         client,
		keys:           newKeyMap(),
		textarea:       ta,
		chatViewport:   chatVp,
		metaViewport:   viewport.New(20, 20),
		help:           h,
		spinner:        spinner.New(spinner.WithSpinner(spinner.Dot), spinner.WithStyle(theme.busy)),
		showClassModal: true,
		loadingClasses: true,
	}
}

func (m ConsoleUI) Init() tea.Cmd {
	if m.showClassModal {
		return m.loadClasses()
	}
	return textarea.Blink
}

func (m ConsoleUI) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch {
	case m.showQuitModal:
		return m.updateQuitModal(msg)
	case m.showClassModal:
		return m.updateClassModal(msg)
	}

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.resize()
		m.ready = true
		m.refresh()

	case tea.MouseMsg:
		var chatCmd, metaCmd tea.Cmd
		m.chatViewport, chatCmd = m.chatViewport.Update(msg)
		m.metaViewport, metaCmd = m.metaViewport.Update(msg)
		return m, tea.Batch(chatCmd, metaCmd)

	case tea.KeyMsg:
		if model, cmd, handled := m.handleKey(msg); handled {
			return model, cmd
		}

	case commandResponseMsg:
		m.loading, m.pendingInput = false, ""
		m.err = msg.err
		if msg.err != nil {
			m.notice = theme.errText.Render("Error: " + msg.err.Error())
		} else {
			m.applyResponse(msg.response)
		}
		m.refresh()
		return m, m.refreshGameState()

	case gameStateMsg:
		if msg.err == nil && msg.game != nil {
			m.gameState, m.phase = msg.game.State, msg.game.Phase
			m.refresh()
		}

	case spinner.TickMsg:
		if !m.loading {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		m.writeChatContent()
		return m, cmd
	}

	var taCmd, chatCmd, metaCmd tea.Cmd
	m.textarea, taCmd = m.textarea.Update(msg)
	m.chatViewport, chatCmd = m.chatViewport.Update(msg)
	m.metaViewport, metaCmd = m.metaViewport.Update(msg)
	return m, tea.Batch(taCmd, chatCmd, metaCmd)
}

// handleKey deals with the game's own bindings. Anything unhandled falls
// through to the textarea and viewports.
func (m ConsoleUI) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd, bool) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		m.showQuitModal = true
		return m, nil, true

	case key.Matches(msg, m.keys.Roll, m.keys.RollAlt):
		if m.loading {
			return m, nil, true
		}
		if m.phase != string(state.PhaseAwaitingRoll) {
			m.notice = theme.errText.Render("No roll is pending.")
			m.writeChatContent()
			return m, nil, true
		}
		m.startLoading("", "The dice tumble")
		return m, tea.Batch(m.confirmRoll(key.Matches(msg, m.keys.RollAlt)), m.spinner.Tick), true

	case key.Matches(msg, m.keys.Copy):
		text := lastNarration(m.gameState)
		if text == "" {
			return m, nil, true
		}
		if err := clipboard.WriteAll(text); err != nil {
			m.notice = theme.errText.Render("Copy failed: " + err.Error())
		} else {
			m.notice = theme.muted.Render("Copied the last narration to the clipboard.")
		}
		m.writeChatContent()
		return m, nil, true

	case key.Matches(msg, m.keys.Send):
		input := strings.TrimSpace(m.textarea.Value())
		if m.loading || input == "" {
			return m, nil, true
		}
		m.textarea.Reset()
		if strings.HasPrefix(input, "/") {
			m.runSlashCommand(input)
			return m, nil, true
		}
		m.startLoading(input, "The narrator considers")
		return m, tea.Batch(m.sendCommand(input), m.spinner.Tick), true
	}
	return m, nil, false
}

func (m *ConsoleUI) runSlashCommand(input string) {
	switch cmd := strings.ToLower(input); cmd {
	case "/help":
		m.notice = theme.system.Render(helpText)
	default:
		m.notice = theme.errText.Render("Unknown command: " + cmd)
	}
	m.writeChatContent()
}

func (m *ConsoleUI) startLoading(input, label string) {
	m.loading = true
	m.loadingLabel = label
	m.pendingInput = input
	m.notice = ""
	m.writeChatContent()
}

// applyResponse folds the new transcript entries into the local copy until
// the refreshed state arrives.
func (m *ConsoleUI) applyResponse(resp *chat.CommandResponse) {
	if m.gameState == nil || resp == nil {
		return
	}
	for _, msg := range resp.Messages {
		m.gameState.AddMessage(msg)
	}
	m.phase = resp.Phase
	if resp.PendingRoll != "" {
		m.notice = theme.roll.Render("Roll required: ") + resp.PendingRoll + theme.muted.Render("  (Ctrl+R to roll)")
	}
}

// lastNarration returns the most recent game master text.
func lastNarration(gs *state.GameState) string {
	if gs == nil {
		return ""
	}
	for i := len(gs.Transcript) - 1; i >= 0; i-- {
		if gs.Transcript[i].Role == chat.ChatRoleMaster {
			return gs.Transcript[i].Content
		}
	}
	return ""
}

// refresh redraws both panels.
func (m *ConsoleUI) refresh() {
	m.writeChatContent()
	if m.gameState != nil {
		m.metaViewport.SetContent(writeMetadata(m.gameState, m.phase) + m.help.View(m.keys))
	}
}

func (m *ConsoleUI) writeChatContent() {
	width := m.chatViewport.Width - 6

	var b strings.Builder
	b.WriteString(transcriptHeader(width))
	if m.gameState != nil {
		for _, msg := range m.gameState.Transcript {
			b.WriteString(formatTranscriptMessage(msg, width) + "\n\n")
		}
	}
	if m.pendingInput != "" {
		b.WriteString(formatTranscriptMessage(chat.ChatMessage{Role: chat.ChatRoleUser, Content: m.pendingInput}, width) + "\n\n")
	}
	if m.notice != "" {
		b.WriteString(m.notice + "\n\n")
	}
	if m.loading {
		b.WriteString(m.spinner.View() + " " + theme.busy.Render(m.loadingLabel+"..."))
	}

	m.chatViewport.SetContent(b.String())
	m.chatViewport.GotoBottom()
}

func (m *ConsoleUI) resize() {
	chatW, metaW := panelWidths(m.width)
	m.chatViewport.Width = chatW - 2
	m.chatViewport.Height = m.height - 7
	m.metaViewport.Width = metaW - 2
	m.metaViewport.Height = m.height - 4
	m.textarea.SetWidth(chatW - 4)
	m.help.Width = metaW - 2
}

func (m ConsoleUI) sendCommand(message string) tea.Cmd {
	id := m.gameState.ID.String()
	return func() tea.Msg {
		resp, err := m.client.sendCommand(context.Background(), id, message)
		return commandResponseMsg{resp, err}
	}
}

func (m ConsoleUI) confirmRoll(useAlternative bool) tea.Cmd {
	id := m.gameState.ID.String()
	return func() tea.Msg {
		resp, err := m.client.confirmRoll(context.Background(), id, useAlternative)
		return commandResponseMsg{resp, err}
	}
}

func (m ConsoleUI) refreshGameState() tea.Cmd {
	if m.gameState == nil {
		return nil
	}
	id := m.gameState.ID.String()
	return func() tea.Msg {
		game, err := m.client.getGame(context.Background(), id)
		return gameStateMsg{game, err}
	}
}

func (m ConsoleUI) loadClasses() tea.Cmd {
	return func() tea.Msg {
		classes, err := m.client.listClasses(context.Background())
		return classesLoadedMsg{classes, err}
	}
}

func (m ConsoleUI) createGame(class string) tea.Cmd {
	name := m.config.PlayerName
	if name == "" {
		name = DefaultPlayer
	}
	return func() tea.Msg {
		game, err := m.client.createGame(context.Background(), name, class)
		return gameCreatedMsg{game, err}
	}
}

func (m ConsoleUI) updateClassModal(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height

	case classesLoadedMsg:
		m.loadingClasses = false
		m.classes, m.err = msg.classes, msg.err

	case gameCreatedMsg:
		m.loading = false
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		m.gameState, m.phase = msg.game.State, msg.game.Phase
		m.showClassModal = false
		if m.width > 0 && m.height > 0 {
			m.resize()
		}
		m.ready = true
		m.refresh()
		m.textarea.Focus()
		return m, textarea.Blink

	case tea.KeyMsg:
		if key.Matches(msg, m.keys.Quit) {
			if m.loadingClasses {
				return m, tea.Quit
			}
			m.showQuitModal = true
			return m, nil
		}
		if m.loadingClasses || m.loading || m.err != nil {
			return m, nil
		}
		switch msg.String() {
		case "up", "k":
			m.selectedClass = max(m.selectedClass-1, 0)
		case "down", "j":
			m.selectedClass = min(m.selectedClass+1, max(len(m.classes)-1, 0))
		case "enter":
			if len(m.classes) > 0 {
				m.loading = true
				return m, m.createGame(m.classes[m.selectedClass].Name)
			}
		}
	}
	return m, nil
}

func (m ConsoleUI) updateQuitModal(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
	case tea.KeyMsg:
		switch msg.String() {
		case "y", "Y", "enter", "ctrl+c":
			return m, tea.Quit
		case "n", "N", "esc":
			m.showQuitModal = false
			if m.showClassModal {
				return m, nil
			}
			m.textarea.Focus()
			return m, textarea.Blink
		}
	}
	return m, nil
}
