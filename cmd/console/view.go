package main

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/jwebster45206/anima-narrator/internal/handlers"
	"github.com/jwebster45206/anima-narrator/pkg/chat"
	"github.com/jwebster45206/anima-narrator/pkg/state"
	"github.com/muesli/reflow/wordwrap"
)

// 256-colour palette
var theme = struct {
	title, speaker, narrator, player, art, roll, system lipgloss.Style
	errText, busy, muted                                lipgloss.Style
	modal, modalTitle, item, selected                   lipgloss.Style
	chatPanel, metaPanel                                lipgloss.Style
}{
	title:    lipgloss.NewStyle().Foreground(lipgloss.Color("205")).Bold(true),
	speaker:  lipgloss.NewStyle().Foreground(lipgloss.Color("212")).Bold(true),
	narrator: lipgloss.NewStyle().Foreground(lipgloss.Color("86")),
	player:   lipgloss.NewStyle().Foreground(lipgloss.Color("39")),
	art:      lipgloss.NewStyle().Foreground(lipgloss.Color("245")),
	roll:     lipgloss.NewStyle().Foreground(lipgloss.Color("178")).Bold(true),
	system:   lipgloss.NewStyle().Foreground(lipgloss.Color("141")).Italic(true),

	errText: lipgloss.NewStyle().Foreground(lipgloss.Color("196")),
	busy:    lipgloss.NewStyle().Foreground(lipgloss.Color("214")),
	muted:   lipgloss.NewStyle().Foreground(lipgloss.Color("240")),

	modal: lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("62")).
		Padding(1, 2).Background(lipgloss.Color("235")).Foreground(lipgloss.Color("255")),
	modalTitle: lipgloss.NewStyle().Foreground(lipgloss.Color("205")).Bold(true).Align(lipgloss.Center),
	item:       lipgloss.NewStyle().Foreground(lipgloss.Color("255")),
	selected:   lipgloss.NewStyle().Foreground(lipgloss.Color("0")).Background(lipgloss.Color("205")).Bold(true),

	chatPanel: lipgloss.NewStyle().Padding(2, 0, 1, 3),
	metaPanel: lipgloss.NewStyle().Padding(2, 2, 0, 0),
}

const maxSpeakerPrefix = 20

// splitSpeaker recognises a short "Name:" lead such as "Old Mara: ...".
func splitSpeaker(line string) (speaker, rest string, ok bool) {
	idx := strings.Index(line, ":")
	if idx <= 0 || idx > maxSpeakerPrefix {
		return "", line, false
	}
	if len(strings.Fields(line[:idx])) > 2 {
		return "", line, false
	}
	return line[:idx], line[idx+1:], true
}

// formatNarratorResponse wraps narration and highlights speakers. Narration
// without its own speaker is attributed to the narrator.
func formatNarratorResponse(response string, width int) string {
	_, _, voiced := splitSpeaker(response)
	lead := ""
	if !voiced {
		lead = AgentName + ": "
	}

	lines := strings.Split(wordwrap.String(response, max(width-len(lead), 1)), "\n")
	for i, line := range lines {
		if speaker, rest, ok := splitSpeaker(strings.TrimSpace(line)); ok {
			lines[i] = theme.speaker.Render(speaker+":") + rest
		}
	}

	out := strings.Join(lines, "\n")
	if lead != "" {
		out = theme.narrator.Render(lead) + out
	}
	return out
}

// formatTranscriptMessage renders one transcript entry for the chat panel.
func formatTranscriptMessage(msg chat.ChatMessage, width int) string {
	switch msg.Role {
	case chat.ChatRoleMaster, chat.ChatRoleAgent:
		return formatNarratorResponse(msg.Content, width)
	case chat.ChatRoleArt:
		// pre-formatted; wrapping would break it
		return theme.art.Render(msg.Content)
	case chat.ChatRoleRoll:
		return theme.roll.Render("🎲 ") + wordwrap.String(msg.Content, max(width-3, 1))
	case chat.ChatRoleSystem:
		return theme.system.Render(wordwrap.String(msg.Content, width))
	case chat.ChatRoleUser:
		return theme.player.Render("You: ") + wordwrap.String(msg.Content, max(width-5, 1))
	}
	return wordwrap.String(msg.Content, width)
}

// writeMetadata renders the character panel.
func writeMetadata(gs *state.GameState, phase string) string {
	var b strings.Builder
	section := func(label, value string) {
		fmt.Fprintf(&b, "%s\n%s\n\n", theme.muted.Render(label), value)
	}

	b.WriteString(theme.title.Render("CHARACTER") + "\n\n")
	b.WriteString(gs.DescribeSheet() + "\n\n")
	if room, ok := gs.CurrentRoom(); ok {
		section("Location", room.Name)
	}
	section("Phase", phase)
	if gs.RollPrompt != "" {
		b.WriteString(theme.roll.Render("Roll pending") + "\n" + gs.RollPrompt + "\n\n")
	}
	section("Game", gs.ID.String()[:8])
	return b.String()
}

func transcriptHeader(width int) string {
	return theme.title.Render("ANIMA NARRATOR") + "\n\n" +
		"Type what your character does. Try look, inventory or sheet.\n\n" +
		theme.muted.Render(strings.Repeat("─", max(width, 1))) + "\n\n"
}

// panelWidths splits the terminal 70/30 between transcript and sheet.
func panelWidths(total int) (chatW, metaW int) {
	chatW = total*7/10 - 4
	return chatW, total - chatW - 6
}

func (m ConsoleUI) View() string {
	switch {
	case m.showQuitModal:
		return m.centered(50, theme.modalTitle.Render("Quit Game?")+"\n\n"+
			"Are you sure you want to leave your adventure?\n\n"+
			theme.muted.Render("Y to quit, N to keep playing"))
	case m.showClassModal:
		return m.centered(60, m.classPicker())
	case !m.ready:
		return "\n  Initializing..."
	}

	chatW, metaW := panelWidths(m.width)
	left := theme.chatPanel.Width(chatW).Height(m.height - 3).Render(lipgloss.JoinVertical(lipgloss.Left,
		m.chatViewport.View(),
		"",
		theme.muted.Render(strings.Repeat("─", max(chatW-4, 1))),
		m.textarea.View(),
	))
	right := theme.metaPanel.Width(metaW).Height(m.height - 2).Render(m.metaViewport.View())
	return lipgloss.JoinHorizontal(lipgloss.Top, left, right)
}

func (m ConsoleUI) centered(width int, body string) string {
	if m.width == 0 || m.height == 0 {
		return "Loading..."
	}
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center,
		theme.modal.Width(width).Render(body), lipgloss.WithWhitespaceChars(" "))
}

func (m ConsoleUI) classPicker() string {
	switch {
	case m.loadingClasses:
		return theme.modalTitle.Render("Loading Classes...") + "\n\n" +
			theme.busy.Render("Fetching the classes this world offers...")
	case m.err != nil:
		return theme.modalTitle.Render("Error") + "\n\n" +
			theme.errText.Render(fmt.Sprintf("Failed to start a game: %v", m.err)) + "\n\n" +
			"Press Ctrl+C to exit"
	case m.loading:
		return theme.modalTitle.Render("Creating Game...") + "\n\n" +
			theme.busy.Render("The narrator is setting the scene...")
	}

	var b strings.Builder
	b.WriteString(theme.modalTitle.Render("Choose a Class") + "\n\n")
	for i, c := range m.classes {
		b.WriteString(classLine(c, i == m.selectedClass) + "\n")
	}
	if len(m.classes) > 0 {
		if desc := m.classes[m.selectedClass].Description; desc != "" {
			b.WriteString("\n" + wordwrap.String(desc, 54) + "\n")
		}
	}
	b.WriteString("\n" + theme.muted.Render("↑/↓ to choose, Enter to begin, Ctrl+C to exit"))
	return b.String()
}

func classLine(c handlers.ClassSummary, selected bool) string {
	line := fmt.Sprintf("%s (health %d)", c.Name, c.Health)
	if selected {
		return theme.selected.Render("▶ " + line)
	}
	return theme.item.Render("  " + line)
}
