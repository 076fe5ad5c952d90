package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"go_branch_chat/bootstrap"
	"go_branch_chat/config"
	"go_branch_chat/models"
	"go_branch_chat/navigator"
	"go_branch_chat/pkg/logging"
	"go_branch_chat/render"
	"go_branch_chat/services"
)

const chatHelp = `commands:
  /regen          regenerate the last reply
  /edit <text>    replace your last message with a new variant
  /prev, /next    switch the last reply between variants
  /path           print the displayed conversation
  /new [title]    start a new conversation
  /list           list conversations
  /load <id>      load a conversation
  /quit           exit
Ctrl+C while a reply streams stops it; otherwise it exits.`

func newChatCommand() *cobra.Command {
	var width int
	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Chat in the terminal",
		RunE: func(cmd *cobra.Command, args []string) error {
			logging.SetLevel("error")
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			ctx, cancel := context.WithCancel(ctx)
			defer cancel()

			app, err := bootstrap.NewApp(ctx, config.LoadConfig())
			if err != nil {
				return err
			}
			defer app.Shutdown()

			events, err := app.Infrastructure.EventPublisher.Subscribe(ctx)
			if err != nil {
				return err
			}
			m := newChatModel(ctx, app.Services.ChatService, app.Services.ConversationService,
				render.NewRenderer(nil, width), events)

			// inline mode, no alt screen; output stays in the scrollback
			p := tea.NewProgram(m, tea.WithInput(cmd.InOrStdin()), tea.WithOutput(cmd.OutOrStdout()))
			if _, err := p.Run(); err != nil {
				return errors.Wrap(err, "run chat")
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&width, "width", 80, "terminal width used for rules")
	return cmd
}

// chatEventMsg carries one controller event into the program.
type chatEventMsg struct{ event *models.ChatEvent }

type eventsClosedMsg struct{}

// commandDoneMsg reports a command run off the update loop.
type commandDoneMsg struct {
	output string
	err    error
}

type chatModel struct {
	ctx      context.Context
	chat     *services.ChatService
	conv     *services.ConversationService
	renderer *render.Renderer
	events   <-chan *models.ChatEvent

	input  textinput.Model
	live   strings.Builder
	status string
}

var (
	liveStyle   = lipgloss.NewStyle().PaddingLeft(2)
	statusStyle = lipgloss.NewStyle().Faint(true)
)

func newChatModel(ctx context.Context, chat *services.ChatService, conv *services.ConversationService, renderer *render.Renderer, events <-chan *models.ChatEvent) *chatModel {
	input := textinput.New()
	input.Prompt = "> "
	input.Placeholder = "Message, or /help"
	input.CharLimit = 8000
	input.Focus()
	return &chatModel{
		ctx:      ctx,
		chat:     chat,
		conv:     conv,
		renderer: renderer,
		events:   events,
		input:    input,
	}
}

func waitEvent(events <-chan *models.ChatEvent) tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-events
		if !ok {
			return eventsClosedMsg{}
		}
		return chatEventMsg{event: ev}
	}
}

func (m *chatModel) Init() tea.Cmd {
	return tea.Batch(
		textinput.Blink,
		waitEvent(m.events),
		tea.Println(m.renderer.Path(m.chat.Render())),
	)
}

func (m *chatModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.input.Width = msg.Width - len(m.input.Prompt) - 1
		return m, nil

	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC:
			if m.chat.Streaming() {
				m.chat.Stop()
				m.status = "stopping…"
				return m, nil
			}
			return m, tea.Quit
		case tea.KeyEnter:
			line := strings.TrimSpace(m.input.Value())
			m.input.Reset()
			if line == "" {
				return m, nil
			}
			if line == "/quit" || line == "/exit" {
				return m, tea.Quit
			}
			m.status = ""
			if strings.HasPrefix(line, "/") {
				return m, m.run(line)
			}
			return m, tea.Sequence(tea.Println(m.renderer.Notice("you: ")+line), m.run(line))
		}

	case chatEventMsg:
		return m, tea.Batch(m.onEvent(msg.event), waitEvent(m.events))

	case eventsClosedMsg:
		return m, nil

	case commandDoneMsg:
		if msg.err != nil {
			m.status = m.chat.Notice()
			if m.status == "" {
				m.status = msg.err.Error()
			}
		}
		if msg.output == "" {
			return m, nil
		}
		return m, tea.Println(msg.output)
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m *chatModel) onEvent(ev *models.ChatEvent) tea.Cmd {
	switch ev.Type {
	case models.EventDelta:
		m.live.WriteString(ev.Delta)
	case models.EventNotice:
		m.status = ev.Message
	case models.EventCompleted, models.EventStopped, models.EventFailed:
		m.live.Reset()
		if ev.Type != models.EventFailed {
			m.status = ""
		}
		return tea.Println(m.lastReply())
	}
	return nil
}

// lastReply renders the final message of the displayed path with its variant
// label and stop text.
func (m *chatModel) lastReply() string {
	rendered := m.chat.Render()
	if len(rendered) == 0 {
		return ""
	}
	last := rendered[len(rendered)-1]
	if last.Role != models.RoleAssistant {
		return ""
	}
	return m.renderer.Node(last)
}

func (m *chatModel) View() string {
	var b strings.Builder
	if m.live.Len() > 0 {
		b.WriteString(liveStyle.Render(m.live.String()))
		b.WriteString("\n")
	}
	if m.status != "" {
		b.WriteString(m.renderer.Notice(m.status))
		b.WriteString("\n")
	} else if m.chat.Streaming() {
		b.WriteString(statusStyle.Render("streaming, Ctrl+C to stop"))
		b.WriteString("\n")
	}
	b.WriteString(m.input.View())
	return b.String()
}

// run executes a line off the update loop. Generations report back through
// the event channel.
func (m *chatModel) run(line string) tea.Cmd {
	return func() tea.Msg {
		output, err := m.handle(line)
		return commandDoneMsg{output: output, err: err}
	}
}

func (m *chatModel) handle(line string) (string, error) {
	command, arg, _ := strings.Cut(line, " ")
	arg = strings.TrimSpace(arg)
	switch command {
	case "/help":
		return chatHelp, nil
	case "/path":
		return m.renderer.Path(m.chat.Render()), nil
	case "/regen":
		last, ok := m.last(models.RoleAssistant)
		if !ok {
			return "", errors.New("no reply to regenerate")
		}
		_, err := m.chat.Regenerate(last.ID)
		return "", err
	case "/edit":
		last, ok := m.last(models.RoleUser)
		if !ok {
			return "", errors.New("no message to edit")
		}
		gen, err := m.chat.Edit(m.ctx, last.ID, arg)
		if err == nil && gen == nil {
			return "unchanged", nil
		}
		return "", err
	case "/prev", "/next":
		last, ok := m.last(models.RoleAssistant)
		if !ok {
			return "", errors.New("no reply to switch")
		}
		direction := navigator.Next
		if command == "/prev" {
			direction = navigator.Previous
		}
		if err := m.chat.SwitchVariant(last.ID, direction); err != nil {
			return "", err
		}
		return m.renderer.Path(m.chat.Render()), nil
	case "/new":
		if _, err := m.conv.CreateConversation(m.ctx, arg); err != nil {
			return "", err
		}
		return "", m.chat.Refresh()
	case "/list":
		list, err := m.conv.ListConversations(m.ctx)
		if err != nil {
			return "", err
		}
		rows := make([]string, 0, len(list))
		for _, c := range list {
			rows = append(rows, fmt.Sprintf("%s  %s  %s", c.ID, c.UpdatedAt.Format("2006-01-02 15:04"), c.Title))
		}
		return strings.Join(rows, "\n"), nil
	case "/load":
		if err := m.conv.LoadConversation(m.ctx, arg); err != nil {
			return "", err
		}
		if err := m.chat.Refresh(); err != nil {
			return "", err
		}
		return m.renderer.Path(m.chat.Render()), nil
	default:
		if strings.HasPrefix(command, "/") {
			return "", errors.Errorf("unknown command %s", command)
		}
		_, err := m.chat.Send(m.ctx, line)
		return "", err
	}
}

func (m *chatModel) last(role models.Role) (models.ConversationNode, bool) {
	path := m.chat.DisplayPath()
	for i := len(path) - 1; i >= 0; i-- {
		if path[i].Role == role {
			return path[i], true
		}
	}
	return models.ConversationNode{}, false
}
