package main

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/wordwrap"

	"github.com/jwebster45206/table-assist/pkg/actor"
	"github.com/jwebster45206/table-assist/pkg/chat"
)

const (
	PlaceHolderText = "Say something, or ask with /? /i /s /w [gpt] ..."
	maxNotices      = 6
)

// ConsoleUI is the BubbleTea model that runs the UI.
// https://github.com/charmbracelet/bubbletea
type ConsoleUI struct {
	config       *ConsoleConfig
	client       *http.Client
	streamClient *http.Client
	user         *actor.User
	entries      []chat.Entry
	seen         map[string]bool
	notices      []chat.Notice
	stream       *stream
	chatViewport viewport.Model
	metaViewport viewport.Model
	textarea     textarea.Model
	ready        bool
	width        int
	height       int
	err          error
	loading      bool

	// User selection state
	showUserModal bool
	users         []actor.User
	selectedUser  int
	loadingUsers  bool

	// Quit confirmation state
	showQuitModal bool

	// Progress bar state
	progressTick int
}

type stream struct {
	entries chan chat.Entry
	cancel  context.CancelFunc
}

type chatResponseMsg struct {
	response *chat.ChatResponse
	err      error
}

type chatLogMsg struct {
	entries []chat.Entry
	err     error
}

type entryMsg struct {
	entry chat.Entry
}

type streamClosedMsg struct{}

type usersLoadedMsg struct {
	users []actor.User
	err   error
}

type historyClearedMsg struct {
	err error
}

type progressTickMsg struct{}

var (
	chatPanelStyle = lipgloss.NewStyle().
			PaddingTop(2).
			PaddingBottom(1).
			PaddingLeft(3).
			PaddingRight(0)

	metaPanelStyle = lipgloss.NewStyle().
			PaddingTop(2).
			PaddingBottom(0).
			PaddingLeft(0).
			PaddingRight(2)

	titleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("205")). // pink
			Bold(true)

	gptStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("86")). // green
			Bold(true)

	userStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("39")). // teal
			Bold(true)

	whisperStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("141")). // lavender
			Italic(true)

	infoStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("250"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196")) // red

	loadingStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("214")) // yellow

	promptStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240")) // dark grey

	modalStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("62")).
			Padding(1, 2).
			Background(lipgloss.Color("235")).
			Foreground(lipgloss.Color("255"))

	modalTitleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("205")).
			Bold(true).
			Align(lipgloss.Center)

	modalItemStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("255"))

	modalSelectedItemStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("0")).
				Background(lipgloss.Color("205")).
				Bold(true)
)

var separatorStyle = lipgloss.NewStyle().
	Foreground(lipgloss.Color("240")) // dark grey

func NewConsoleUI(cfg *ConsoleConfig, client *http.Client) ConsoleUI {
	ta := textarea.New()
	ta.Placeholder = PlaceHolderText
	ta.Focus()
	ta.Prompt = promptStyle.Render(":: ")
	ta.CharLimit = chat.MaxMessageLength
	ta.SetWidth(50)
	ta.SetHeight(3)
	ta.ShowLineNumbers = false

	chatVp := viewport.New(50, 20)
	chatVp.MouseWheelEnabled = true

	metaVp := viewport.New(20, 20)

	return ConsoleUI{
		config:        cfg,
		client:        client,
		streamClient:  &http.Client{}, // the stream stays open, so no timeout
		seen:          make(map[string]bool),
		textarea:      ta,
		chatViewport:  chatVp,
		metaViewport:  metaVp,
		showUserModal: true,
		loadingUsers:  true,
	}
}

func writeMetadata(u *actor.User, notices []chat.Notice, width int) string {
	var content strings.Builder
	content.WriteString(titleStyle.Render("TABLE ASSIST") + "\n\n")

	content.WriteString("Playing as:\n")
	content.WriteString(u.Name)
	if u.IsGM {
		content.WriteString(" (GM)")
	}
	content.WriteString("\n\n")

	content.WriteString("Notices:\n")
	if len(notices) == 0 {
		content.WriteString("None\n")
	}
	for _, n := range notices {
		line := wordwrap.String("• "+n.Message, max(width, 10))
		if n.Level == chat.NoticeError {
			content.WriteString(errorStyle.Render(line) + "\n")
		} else {
			content.WriteString(infoStyle.Render(line) + "\n")
		}
	}

	content.WriteString("\n")
	content.WriteString("Commands:\n")
	content.WriteString("• /? question\n")
	content.WriteString("• /w [gpt, name] question\n")
	content.WriteString("• /i add 1 rope\n")
	content.WriteString("• /s add 1 rank to stealth\n")
	content.WriteString("• /help: Help\n")
	content.WriteString("• /forget: Clear history\n")
	content.WriteString("• Ctrl+Y: Copy last reply\n")
	content.WriteString("• Ctrl+C: Quit\n")

	return content.String()
}

func formatEntry(e chat.Entry, width int) string {
	style := userStyle
	if e.Speaker == chat.ReplySpeaker {
		style = gptStyle
	}
	header := style.Render(e.Speaker + ":")
	if e.Whisper {
		header += " " + whisperStyle.Render("(whisper)")
	}
	return header + "\n" + wordwrap.String(chat.StripMarkup(e.Content), width)
}

// writeChatContent renders the chat log for the current viewport width
func (m *ConsoleUI) writeChatContent() {
	chatWidth := m.chatViewport.Width - 6 // Account for left(3) + right(3) padding

	var content strings.Builder
	content.WriteString(titleStyle.Render("TABLE ASSIST") + "\n\n")
	content.WriteString("Chat with the table. Commands starting with /? /i /s or /w [gpt] are answered by GPT.\n\n")
	content.WriteString(separatorStyle.Render(strings.Repeat("─", max(chatWidth-6, 1))) + "\n\n")

	for _, e := range m.entries {
		content.WriteString(formatEntry(e, chatWidth) + "\n\n")
	}

	if m.err != nil {
		content.WriteString(errorStyle.Render("Error: "+m.err.Error()) + "\n\n")
	}
	if m.loading {
		content.WriteString(m.renderProgressBar())
	}

	m.chatViewport.SetContent(content.String())
	m.chatViewport.GotoBottom()
}

func (m *ConsoleUI) writeMetaContent() {
	if m.user != nil {
		m.metaViewport.SetContent(writeMetadata(m.user, m.notices, m.metaViewport.Width-2))
	}
}

func (m *ConsoleUI) addEntries(entries ...chat.Entry) {
	for _, e := range entries {
		if e.ID != "" && m.seen[e.ID] {
			continue
		}
		m.seen[e.ID] = true
		m.entries = append(m.entries, e)
	}
}

func (m *ConsoleUI) addNotices(notices ...chat.Notice) {
	m.notices = append(m.notices, notices...)
	if len(m.notices) > maxNotices {
		m.notices = m.notices[len(m.notices)-maxNotices:]
	}
}

// lastReply returns the plain text of the newest assistant reply.
func (m *ConsoleUI) lastReply() string {
	for i := len(m.entries) - 1; i >= 0; i-- {
		if m.entries[i].Speaker == chat.ReplySpeaker {
			return chat.StripMarkup(m.entries[i].Content)
		}
	}
	return ""
}

func (m *ConsoleUI) resize() {
	chatWidth := int(float64(m.width)*0.75) - 4
	metaWidth := m.width - chatWidth - 6
	m.chatViewport.Width = chatWidth - 2
	m.chatViewport.Height = m.height - 7
	m.metaViewport.Width = metaWidth - 2
	m.metaViewport.Height = m.height - 4
	m.textarea.SetWidth(chatWidth - 4)
}

func (m ConsoleUI) Init() tea.Cmd {
	return m.loadUsers()
}

func (m ConsoleUI) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	// Handle user modal first
	if m.showUserModal {
		return m.updateUserModal(msg)
	}

	// Handle quit modal second
	if m.showQuitModal {
		return m.updateQuitModal(msg)
	}

	var (
		tiCmd tea.Cmd
		vpCmd tea.Cmd
		mvCmd tea.Cmd
	)

	switch msg := msg.(type) {
	case tea.MouseMsg:
		m.chatViewport, vpCmd = m.chatViewport.Update(msg)
		m.metaViewport, mvCmd = m.metaViewport.Update(msg)
		return m, tea.Batch(vpCmd, mvCmd)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.resize()
		m.ready = true
		m.writeChatContent()
		m.writeMetaContent()

	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			m.showQuitModal = true
			return m, nil
		case tea.KeyCtrlY:
			reply := m.lastReply()
			if reply == "" {
				m.addNotices(chat.Notice{Level: chat.NoticeInfo, Message: "No reply to copy yet"})
			} else if err := clipboard.WriteAll(reply); err != nil {
				m.addNotices(chat.Notice{Level: chat.NoticeError, Message: "Copy failed: " + err.Error()})
			} else {
				m.addNotices(chat.Notice{Level: chat.NoticeInfo, Message: "Copied last reply"})
			}
			m.writeMetaContent()
			return m, nil
		case tea.KeyEnter:
			if m.loading {
				return m, nil
			}
			input := strings.TrimSpace(m.textarea.Value())
			if input == "" {
				return m, nil
			}
			if cmd, ok := m.handleLocalCommand(input); ok {
				m.textarea.Reset()
				return m, cmd
			}

			m.textarea.Reset()
			m.loading = true
			m.err = nil
			m.progressTick = 0
			m.writeChatContent()

			return m, tea.Batch(m.sendChatMessage(input), progressTick())
		}

	case chatResponseMsg:
		m.loading = false
		if msg.err != nil {
			m.err = msg.err
		} else {
			m.addNotices(msg.response.Notices...)
		}
		m.writeChatContent()
		m.writeMetaContent()
		// Catch up on entries even when the stream is unavailable.
		return m, m.refreshChatLog()

	case chatLogMsg:
		if msg.err != nil {
			m.err = msg.err
		} else {
			m.addEntries(msg.entries...)
		}
		m.writeChatContent()

	case entryMsg:
		m.addEntries(msg.entry)
		m.writeChatContent()
		return m, m.waitForEntry()

	case streamClosedMsg:
		m.addNotices(chat.Notice{Level: chat.NoticeInfo, Message: "Live updates stopped"})
		m.writeMetaContent()

	case historyClearedMsg:
		if msg.err != nil {
			m.addNotices(chat.Notice{Level: chat.NoticeError, Message: "Failed to clear history: " + msg.err.Error()})
		} else {
			m.addNotices(chat.Notice{Level: chat.NoticeInfo, Message: "Chat history cleared."})
		}
		m.writeMetaContent()

	case progressTickMsg:
		if m.loading {
			m.progressTick++
			m.writeChatContent()
			return m, progressTick()
		}
	}

	m.textarea, tiCmd = m.textarea.Update(msg)
	m.chatViewport, vpCmd = m.chatViewport.Update(msg)
	m.metaViewport, mvCmd = m.metaViewport.Update(msg)

	return m, tea.Batch(tiCmd, vpCmd, mvCmd)
}

// handleLocalCommand runs console-only commands. Every other line goes to the API.
func (m *ConsoleUI) handleLocalCommand(input string) (tea.Cmd, bool) {
	switch strings.ToLower(input) {
	case "/help":
		helpText := `
Commands:
• /? question - Ask GPT in public
• /w [gpt, gm] question - Ask GPT in a whisper
• /i question - Ask about your inventory
• /i add 2 arrows, /i remove 1 potion, /i give 1 rope to Bob
• /i equip longsword, /i unequip longsword
• /s question - Ask about your skills
• /s add 1 rank to stealth, /s set my climb ranks to 3
• /forget - Clear your conversation history
• Ctrl+Y - Copy the last GPT reply
• Ctrl+C - Quit
`
		m.chatViewport.SetContent(m.chatViewport.View() + "\n" + titleStyle.Render("Help:") + helpText + "\n")
		m.chatViewport.GotoBottom()
		return nil, true

	case "/forget":
		return m.forgetHistory(), true
	}
	return nil, false
}

func (m ConsoleUI) sendChatMessage(message string) tea.Cmd {
	return func() tea.Msg {
		resp, err := sendChat(m.client, m.config.APIBaseURL, m.user.ID, message)
		return chatResponseMsg{resp, err}
	}
}

func (m ConsoleUI) refreshChatLog() tea.Cmd {
	return func() tea.Msg {
		entries, err := getChatLog(m.client, m.config.APIBaseURL, m.user.ID, m.config.LogLimit)
		return chatLogMsg{entries, err}
	}
}

func (m ConsoleUI) forgetHistory() tea.Cmd {
	return func() tea.Msg {
		return historyClearedMsg{clearHistory(m.client, m.config.APIBaseURL, m.user.ID)}
	}
}

func (m ConsoleUI) loadUsers() tea.Cmd {
	return func() tea.Msg {
		users, err := listUsers(m.client, m.config.APIBaseURL)
		return usersLoadedMsg{users, err}
	}
}

// startStream subscribes to live chat entries for the selected user.
func (m *ConsoleUI) startStream() {
	ctx, cancel := context.WithCancel(context.Background())
	s := &stream{entries: make(chan chat.Entry, 16), cancel: cancel}
	client, baseURL, userID := m.streamClient, m.config.APIBaseURL, m.user.ID
	go func() {
		defer close(s.entries)
		_ = listenToChatLog(ctx, client, baseURL, userID, s.entries)
	}()
	m.stream = s
}

func (m ConsoleUI) waitForEntry() tea.Cmd {
	if m.stream == nil {
		return nil
	}
	entries := m.stream.entries
	return func() tea.Msg {
		e, ok := <-entries
		if !ok {
			return streamClosedMsg{}
		}
		return entryMsg{e}
	}
}

func (m ConsoleUI) quit() (tea.Model, tea.Cmd) {
	if m.stream != nil {
		m.stream.cancel()
	}
	return m, tea.Quit
}

func (m ConsoleUI) updateUserModal(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case usersLoadedMsg:
		m.loadingUsers = false
		if msg.err != nil {
			m.err = msg.err
		} else if len(msg.users) == 0 {
			m.err = fmt.Errorf("no users are configured")
		} else {
			m.users = msg.users
		}

	case tea.KeyMsg:
		if m.loadingUsers || m.err != nil {
			if msg.Type == tea.KeyCtrlC || msg.Type == tea.KeyEsc {
				return m.quit()
			}
			return m, nil
		}

		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			return m.quit()
		case tea.KeyUp:
			if m.selectedUser > 0 {
				m.selectedUser--
			}
		case tea.KeyDown:
			if m.selectedUser < len(m.users)-1 {
				m.selectedUser++
			}
		case tea.KeyEnter:
			u := m.users[m.selectedUser]
			m.user = &u
			m.showUserModal = false
			if m.width > 0 && m.height > 0 {
				m.resize()
			}
			m.ready = true
			m.startStream()
			m.writeChatContent()
			m.writeMetaContent()
			m.textarea.Focus()
			return m, tea.Batch(textarea.Blink, m.refreshChatLog(), m.waitForEntry())
		}
	}

	return m, nil
}

func (m ConsoleUI) updateQuitModal(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc, tea.KeyEnter:
			return m.quit()
		default:
			switch msg.String() {
			case "y", "Y":
				return m.quit()
			case "n", "N":
				m.showQuitModal = false
				m.textarea.Focus()
				return m, textarea.Blink
			}
		}
	}

	return m, nil
}

func (m ConsoleUI) renderQuitModal() string {
	if m.width == 0 || m.height == 0 {
		return "Loading..."
	}

	var content strings.Builder
	content.WriteString(modalTitleStyle.Render("Quit?"))
	content.WriteString("\n\n")
	content.WriteString("Are you sure you want to leave the table?")
	content.WriteString("\n\n")
	content.WriteString(promptStyle.Render("Press Y to quit, N to continue, or Ctrl+C to force quit"))

	modal := modalStyle.Width(50).Render(content.String())
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, modal, lipgloss.WithWhitespaceChars(" "))
}

func (m ConsoleUI) renderUserModal() string {
	if m.width == 0 || m.height == 0 {
		return "Loading..."
	}

	var content strings.Builder

	switch {
	case m.loadingUsers:
		content.WriteString(modalTitleStyle.Render("Loading Users..."))
		content.WriteString("\n\n")
		content.WriteString(loadingStyle.Render("Please wait while we fetch the players at this table..."))
	case m.err != nil:
		content.WriteString(modalTitleStyle.Render("Error"))
		content.WriteString("\n\n")
		content.WriteString(errorStyle.Render(fmt.Sprintf("Failed to load users: %v", m.err)))
		content.WriteString("\n\n")
		content.WriteString("Press Ctrl+C to exit")
	default:
		content.WriteString(modalTitleStyle.Render("Who are you?"))
		content.WriteString("\n\n")

		for i, u := range m.users {
			label := u.Name
			if u.IsGM {
				label += " (GM)"
			}
			if i == m.selectedUser {
				content.WriteString(modalSelectedItemStyle.Render("▶ " + label))
			} else {
				content.WriteString(modalItemStyle.Render("  " + label))
			}
			content.WriteString("\n")
		}

		content.WriteString("\n")
		content.WriteString(promptStyle.Render("Use ↑/↓ to navigate, Enter to select, Ctrl+C to exit"))
	}

	modal := modalStyle.Width(60).Render(content.String())
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, modal, lipgloss.WithWhitespaceChars(" "))
}

func (m ConsoleUI) View() string {
	if m.showUserModal {
		return m.renderUserModal()
	}

	if m.showQuitModal {
		return m.renderQuitModal()
	}

	if !m.ready {
		return "\n  Initializing..."
	}

	chatWidth := int(float64(m.width)*0.75) - 4
	metaWidth := m.width - chatWidth - 6

	chatPanel := chatPanelStyle.Width(chatWidth).Height(m.height - 3).Render(
		lipgloss.JoinVertical(lipgloss.Left,
			m.chatViewport.View(),
			"",
			separatorStyle.Render(strings.Repeat("─", max(chatWidth-4, 1))),
			m.textarea.View(),
		),
	)

	metaPanel := metaPanelStyle.Width(metaWidth).Height(m.height - 2).Render(
		m.metaViewport.View(),
	)

	return lipgloss.JoinHorizontal(lipgloss.Top, chatPanel, metaPanel)
}

// renderProgressBar creates an animated progress bar while waiting for a reply
func (m ConsoleUI) renderProgressBar() string {
	usable := m.chatViewport.Width - 6
	if usable <= 0 {
		usable = 30
	}
	usable = min(max(usable, 10), 80)

	const totalFrames = 40
	frame := m.progressTick % totalFrames
	filled := (frame * usable) / totalFrames

	var bar strings.Builder
	for i := 0; i < usable; i++ {
		switch {
		case i < filled:
			bar.WriteString("█")
		case i == filled && frame%4 < 2:
			bar.WriteString("▓")
		default:
			bar.WriteString("░")
		}
	}
	return separatorStyle.Render(bar.String())
}

func progressTick() tea.Cmd {
	return tea.Tick(time.Millisecond*200, func(time.Time) tea.Msg {
		return progressTickMsg{}
	})
}
