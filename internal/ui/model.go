package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/whisper786/chat/internal/media"
	"github.com/whisper786/chat/internal/room"
)

const (
	rosterWidth  = 30
	chromeHeight = 5
)

// Controller is the part of room.Session the screen drives.
type Controller interface {
	State() room.State
	Updates() <-chan struct{}
	SendMessage(text string)
	EndCall()
	KickUser(id string)
	PromoteToHost(id string)
	MakeCall(id string)
	AnswerCall()
	RejectCall()
	HangUp()
}

type stateMsg room.State

// RoomModel is the bubbletea model of the room screen.
type RoomModel struct {
	ctrl  Controller
	local *media.Local

	viewport viewport.Model
	input    textinput.Model
	spinner  spinner.Model

	state    room.State
	notice   string
	width    int
	height   int
	ready    bool
	quitting bool
}

// NewRoomModel builds the screen. local may be nil when no capture device
// is available; /mic and /cam then report that.
func NewRoomModel(ctrl Controller, local *media.Local) *RoomModel {
	in := textinput.New()
	in.Placeholder = "Type a message or /help"
	in.Prompt = "> "
	in.CharLimit = 2000
	in.Focus()

	s := spinner.New()
	s.Spinner = spinner.Globe
	s.Style = SpinnerStyle

	return &RoomModel{
		ctrl:    ctrl,
		local:   local,
		input:   in,
		spinner: s,
		state:   ctrl.State(),
	}
}

// State returns the last state the screen rendered.
func (m *RoomModel) State() room.State { return m.state }

func (m *RoomModel) Init() tea.Cmd {
	return tea.Batch(
		textinput.Blink,
		m.spinner.Tick,
		m.waitForUpdates(),
	)
}

// waitForUpdates blocks until the session publishes a new state.
func (m *RoomModel) waitForUpdates() tea.Cmd {
	updates := m.ctrl.Updates()
	ctrl := m.ctrl
	return func() tea.Msg {
		<-updates
		return stateMsg(ctrl.State())
	}
}

func (m *RoomModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			return m, m.leave()
		case tea.KeyEnter:
			line := m.input.Value()
			m.input.Reset()
			if cmd := m.execute(line); cmd != nil {
				return m, cmd
			}
			return m, nil
		case tea.KeyPgUp, tea.KeyPgDown:
			var cmd tea.Cmd
			m.viewport, cmd = m.viewport.Update(msg)
			return m, cmd
		}

	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		w, h := m.logSize()
		if !m.ready {
			m.viewport = viewport.New(w, h)
			m.ready = true
		} else {
			m.viewport.Width, m.viewport.Height = w, h
		}
		m.input.Width = max(10, msg.Width-4)
		m.refreshLog()

	case stateMsg:
		m.state = room.State(msg)
		m.refreshLog()
		cmds = append(cmds, m.waitForUpdates())

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		cmds = append(cmds, cmd)
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	cmds = append(cmds, cmd)
	return m, tea.Batch(cmds...)
}

func (m *RoomModel) leave() tea.Cmd {
	m.ctrl.EndCall()
	m.quitting = true
	return tea.Quit
}

// execute runs one input line. It returns a command only when the screen
// should quit.
func (m *RoomModel) execute(line string) tea.Cmd {
	if strings.TrimSpace(line) == "" {
		return nil
	}

	c, err := ParseCommand(line)
	if err != nil {
		m.notice = ErrorStyle.Render(err.Error())
		return nil
	}
	m.notice = ""

	switch c.Kind {
	case CmdSay:
		m.ctrl.SendMessage(c.Arg)
	case CmdAnswer:
		m.ctrl.AnswerCall()
	case CmdReject:
		m.ctrl.RejectCall()
	case CmdHangUp:
		m.ctrl.HangUp()
	case CmdLeave:
		return m.leave()
	case CmdHelp:
		m.notice = MutedStyle.Render(HelpText)
	case CmdMic, CmdCam:
		m.toggleMedia(c.Kind)
	case CmdCall, CmdKick, CmdPromote:
		id, err := ResolveName(m.state, c.Arg)
		if err != nil {
			m.notice = ErrorStyle.Render(err.Error())
			return nil
		}
		switch c.Kind {
		case CmdCall:
			m.ctrl.MakeCall(id)
		case CmdKick:
			m.ctrl.KickUser(id)
		case CmdPromote:
			m.ctrl.PromoteToHost(id)
		}
	}
	return nil
}

func (m *RoomModel) toggleMedia(kind CommandKind) {
	if m.local == nil {
		m.notice = WarningStyle.Render("no camera or microphone available")
		return
	}
	onOff := map[bool]string{true: "on", false: "off"}
	if kind == CmdMic {
		m.notice = fmt.Sprintf("%s microphone %s", IconMic, onOff[m.local.ToggleMic()])
	} else {
		m.notice = fmt.Sprintf("%s camera %s", IconCamera, onOff[m.local.ToggleCamera()])
	}
}

func (m *RoomModel) logSize() (int, int) {
	return max(20, m.width-rosterWidth-2), max(3, m.height-chromeHeight)
}

func (m *RoomModel) refreshLog() {
	if !m.ready {
		return
	}
	m.viewport.SetContent(RenderMessages(m.state.Messages, m.viewport.Width))
	m.viewport.GotoBottom()
}

func (m *RoomModel) View() string {
	if m.quitting {
		return ""
	}
	if !m.ready {
		return m.spinner.View() + " Starting..."
	}

	var b strings.Builder
	b.WriteString(HeaderStyle.Render(RoomBanner(m.state)))
	b.WriteString("\n")

	body := lipgloss.JoinHorizontal(lipgloss.Top,
		m.viewport.View(),
		lipgloss.NewStyle().Width(rosterWidth).PaddingLeft(1).Render(RosterView(m.state)),
	)
	b.WriteString(body)
	b.WriteString("\n")

	b.WriteString(m.statusLine())
	b.WriteString("\n")
	b.WriteString(m.input.View())
	b.WriteString("\n")
	if m.notice != "" {
		b.WriteString(m.notice)
	} else {
		b.WriteString(FooterStyle.Render("esc to leave, /help for commands"))
	}
	return b.String()
}

// statusLine shows connection progress, fatal errors and the call.
func (m *RoomModel) statusLine() string {
	s := m.state
	switch {
	case s.IsConnecting:
		return fmt.Sprintf("%s Connecting to %s...", m.spinner.View(), s.Room)
	case s.LastError != nil:
		return ErrorStyle.Render(fmt.Sprintf("%s %v", IconError, s.LastError))
	case s.HostLost:
		return WarningStyle.Render(IconWarning + " The host left; new guests cannot join")
	}
	return CallStatus(s)
}

// CallStatus describes the call state, or "" when idle.
func CallStatus(s room.State) string {
	if s.CallPartner == nil {
		return ""
	}
	name := s.CallPartner.Name
	switch s.CallState {
	case room.CallOutgoing:
		return CallBannerStyle.Render(fmt.Sprintf("%s Calling %s...", IconCall, name))
	case room.CallIncoming:
		return CallBannerStyle.Render(fmt.Sprintf("%s %s is calling: /answer or /reject", IconCall, name))
	case room.CallConnected:
		return SuccessStyle.Render(fmt.Sprintf("%s In call with %s (/hangup)", IconCall, name))
	}
	return ""
}

// RenderMessages formats the message log for a pane width wide.
func RenderMessages(msgs []room.Message, width int) string {
	if len(msgs) == 0 {
		return MutedStyle.Render("No messages yet")
	}

	line := lipgloss.NewStyle().Width(width)
	var b strings.Builder
	for i, msg := range msgs {
		if i > 0 {
			b.WriteString("\n")
		}
		stamp := TimestampStyle.Render(msg.At.Format("15:04"))
		if msg.Kind == room.MessageSystem {
			b.WriteString(line.Render(fmt.Sprintf("%s %s", stamp, SystemLineStyle.Render("* "+msg.Text))))
			continue
		}
		name := PeerNameStyle.Render(msg.SenderName)
		if msg.Self {
			name = SelfNameStyle.Render(msg.SenderName)
		}
		b.WriteString(line.Render(fmt.Sprintf("%s %s: %s", stamp, name, msg.Text)))
	}
	return b.String()
}

// RunRoom shows the room screen until the user leaves and returns the last
// rendered state.
func RunRoom(ctrl Controller, local *media.Local) (room.State, error) {
	final, err := tea.NewProgram(NewRoomModel(ctrl, local), tea.WithAltScreen()).Run()
	if err != nil {
		return room.State{}, err
	}
	return final.(*RoomModel).State(), nil
}
