// Package portalui renders the interactive session surface: engine log
// tail, setup progress, and the portal navigation driven by the lifecycle
// reducer.
package portalui

import (
	"context"
	"encoding/json"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/biomelabs/biomectl/internal/engine"
	"github.com/biomelabs/biomectl/internal/observability"
	"github.com/biomelabs/biomectl/internal/session"
	"github.com/biomelabs/biomectl/internal/transport"
)

// syncInterval is the reducer's observation cadence.
const syncInterval = 100 * time.Millisecond

// logTailCap bounds the retained log lines.
const logTailCap = 100

type keyMap struct {
	Engage    key.Binding
	Start     key.Binding
	Back      key.Binding
	Settings  key.Binding
	NextModel key.Binding
	PrevModel key.Binding
	Quit      key.Binding
}

var keys = keyMap{
	Engage:    key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "engage")),
	Start:     key.NewBinding(key.WithKeys("s"), key.WithHelp("s", "start session")),
	Back:      key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "back")),
	Settings:  key.NewBinding(key.WithKeys("o"), key.WithHelp("o", "settings")),
	NextModel: key.NewBinding(key.WithKeys("tab", "right"), key.WithHelp("tab", "next model")),
	PrevModel: key.NewBinding(key.WithKeys("shift+tab", "left"), key.WithHelp("shift+tab", "previous model")),
	Quit:      key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
}

var (
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("86"))
	statusStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("244"))
	errorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	logStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("250"))
	helpStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
)

// Session bundles the collaborators the model drives.
type Session struct {
	Portal       *session.Portal
	Orchestrator *session.Orchestrator
	Events       *engine.Broadcaster
	Mode         string
	Port         int
	Model        string
	Models       []string
	Token        string
}

type (
	syncTickMsg    struct{}
	engineEventMsg engine.Event
	connStateMsg   struct {
		state transport.ConnectionState
		err   error
	}
	connectResultMsg struct {
		seq    uint64
		client *transport.WSClient
		err    error
	}
	transitionDoneMsg struct{}
)

// Model is the bubbletea model for the session surface.
type Model struct {
	ctx     context.Context
	session Session

	lifecycle session.LifecycleState

	connState  transport.ConnectionState
	connErr    string
	client     *transport.WSClient
	connectSeq uint64

	models        []string
	selectedModel string
	appliedModel  string
	socketReady   bool
	pointerLocked bool
	paused        bool

	stage     engine.ProgressStage
	logLines  []string
	errBanner string
	connLost  bool

	events <-chan engine.Event
	unsub  func()
	connCh chan connStateMsg

	progress progress.Model
	spin     spinner.Model
	width    int
	height   int
	quitting bool
}

// New returns a model for the given session collaborators.
func New(ctx context.Context, s Session) *Model {
	events, unsub := s.Events.Subscribe()

	sp := spinner.New()
	sp.Spinner = spinner.Dot

	// The starting model is always offered, even when the picker list
	// comes from config and does not mention it.
	models := s.Models
	if !containsModel(models, s.Model) {
		models = append([]string{s.Model}, models...)
	}

	return &Model{
		ctx:           ctx,
		session:       s,
		models:        models,
		selectedModel: s.Model,
		events:        events,
		unsub:         unsub,
		connCh:        make(chan connStateMsg, 16),
		progress:      progress.New(progress.WithDefaultGradient()),
		spin:          sp,
		logLines:      s.Events.Tail(),
	}
}

func containsModel(models []string, name string) bool {
	for _, m := range models {
		if m == name {
			return true
		}
	}

	return false
}

// Init starts the observation loops.
func (m *Model) Init() tea.Cmd {
	return tea.Batch(m.spin.Tick, m.waitEvent(), m.waitConnState(), syncTick())
}

func syncTick() tea.Cmd {
	return tea.Tick(syncInterval, func(time.Time) tea.Msg { return syncTickMsg{} })
}

func (m *Model) waitEvent() tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-m.events
		if !ok {
			return nil
		}

		return engineEventMsg(ev)
	}
}

func (m *Model) waitConnState() tea.Cmd {
	return func() tea.Msg {
		return <-m.connCh
	}
}

// Update handles messages and applies reducer effects.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.progress.Width = msg.Width - 8

		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spin, cmd = m.spin.Update(msg)

		return m, cmd

	case engineEventMsg:
		m.applyEngineEvent(engine.Event(msg))

		return m, m.waitEvent()

	case connStateMsg:
		m.connState = msg.state
		if msg.err != nil {
			m.connErr = msg.err.Error()
		}

		return m, m.waitConnState()

	case connectResultMsg:
		return m.handleConnectResult(msg)

	case syncTickMsg:
		cmds := m.sync()
		cmds = append(cmds, syncTick())

		return m, tea.Batch(cmds...)

	case transitionDoneMsg:
		return m, nil
	}

	return m, nil
}

func (m *Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.session.Portal.SettingsOpen() {
		return m.handleSettingsKey(msg)
	}

	switch {
	case key.Matches(msg, keys.Quit):
		m.quitting = true
		m.session.Portal.Shutdown()
		m.teardown()
		m.unsub()

		return m, tea.Quit

	case key.Matches(msg, keys.Engage):
		if _, err := m.session.Portal.Transition(session.Warm); err != nil {
			observability.FromContext(m.ctx).Debug("transition rejected", "error", err)
		}

	case key.Matches(msg, keys.Start):
		if _, err := m.session.Portal.Transition(session.Loading); err != nil {
			observability.FromContext(m.ctx).Debug("transition rejected", "error", err)
		}

	case key.Matches(msg, keys.Back):
		state := m.session.Portal.State()
		if state.IsSession() || state == session.Warm {
			target := session.Warm
			if state == session.Warm {
				target = session.Cold
			}

			if _, err := m.session.Portal.Transition(target); err != nil {
				observability.FromContext(m.ctx).Debug("transition rejected", "error", err)
			}
		}

	case key.Matches(msg, keys.Settings):
		m.session.Portal.SetSettingsOpen(true)
	}

	return m, nil
}

// handleSettingsKey drives the model picker. A selection that differs from
// the applied model is picked up by the reducer, which reconnects.
func (m *Model) handleSettingsKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, keys.NextModel):
		m.cycleModel(1)

	case key.Matches(msg, keys.PrevModel):
		m.cycleModel(-1)

	case key.Matches(msg, keys.Back), key.Matches(msg, keys.Settings), key.Matches(msg, keys.Engage):
		m.session.Portal.SetSettingsOpen(false)

	case key.Matches(msg, keys.Quit):
		m.quitting = true
		m.session.Portal.Shutdown()
		m.teardown()
		m.unsub()

		return m, tea.Quit
	}

	return m, nil
}

func (m *Model) cycleModel(delta int) {
	if len(m.models) == 0 {
		return
	}

	idx := 0
	for i, name := range m.models {
		if name == m.selectedModel {
			idx = i
			break
		}
	}

	idx = (idx + delta + len(m.models)) % len(m.models)
	m.selectedModel = m.models[idx]
}

func (m *Model) applyEngineEvent(ev engine.Event) {
	if ev.Line != "" {
		m.logLines = append(m.logLines, ev.Line)
		if len(m.logLines) > logTailCap {
			m.logLines = m.logLines[len(m.logLines)-logTailCap:]
		}
	}

	if ev.Kind == engine.ProgressLine {
		m.stage = ev.Stage
	}
}

// sync snapshots the observed signals, runs the reducer, and turns its
// one-shot effects into commands.
func (m *Model) sync() []tea.Cmd {
	ev := session.SyncEvent{
		Portal:         m.session.Portal.State(),
		Connection:     m.connState,
		TransportError: m.connErr,
		SelectedModel:  m.selectedModel,
		AppliedModel:   m.appliedModel,
		StatusCode:     m.statusCode(),
		SocketReady:    m.socketReady,
		PointerLocked:  m.pointerLocked,
		SettingsOpen:   m.session.Portal.SettingsOpen(),
		Paused:         m.paused,
	}

	var effects []session.Effect
	m.lifecycle, effects = session.Reduce(m.lifecycle, ev)

	var cmds []tea.Cmd
	for _, effect := range effects {
		if cmd := m.applyEffect(effect); cmd != nil {
			cmds = append(cmds, cmd)
		}
	}

	return cmds
}

func (m *Model) statusCode() int {
	if m.connState == transport.Connected {
		return session.StatusCodeReady
	}

	return 0
}

func (m *Model) applyEffect(effect session.Effect) tea.Cmd {
	logger := observability.FromContext(m.ctx)
	logger.Debug("lifecycle effect", "kind", effect.Kind.String())

	switch effect.Kind {
	case session.EffectStartConnect:
		m.errBanner = ""
		m.connectSeq = effect.Seq

		return m.connect(effect.Seq)

	case session.EffectTransitionToStreaming:
		return m.streamingTransition()

	case session.EffectTransitionToLoading:
		if _, err := m.session.Portal.Transition(session.Loading); err != nil {
			logger.Debug("transition rejected", "error", err)
		}

	case session.EffectRequestPointerLock:
		m.pointerLocked = true

	case session.EffectRequestPause:
		m.paused = true

		return m.sendAction("pause")

	case session.EffectRequestResume:
		m.paused = false

		return m.sendAction("resume")

	case session.EffectSurfaceLoadingError:
		m.errBanner = effect.Message
		if _, err := m.session.Portal.Transition(session.Warm); err != nil {
			logger.Debug("transition rejected", "error", err)
		}

	case session.EffectSurfaceConnectionLost:
		m.connLost = true

	case session.EffectClearConnectionLost:
		m.connLost = false

	case session.EffectTeardown:
		m.teardown()
	}

	return nil
}

// connect resolves a reachable server through the orchestrator and dials
// the realtime channel. The sequence number makes stale attempts droppable.
func (m *Model) connect(seq uint64) tea.Cmd {
	s := m.session

	return func() tea.Msg {
		url, err := s.Orchestrator.Connect(m.ctx, s.Mode, s.Port)
		if err != nil {
			return connectResultMsg{seq: seq, err: err}
		}

		client := transport.NewWSClient(url, s.Token, func(state transport.ConnectionState, err error) {
			select {
			case m.connCh <- connStateMsg{state: state, err: err}:
			default:
			}
		})

		if err := client.Connect(m.ctx); err != nil {
			return connectResultMsg{seq: seq, err: err}
		}

		return connectResultMsg{seq: seq, client: client}
	}
}

func (m *Model) handleConnectResult(msg connectResultMsg) (tea.Model, tea.Cmd) {
	// A superseding connection attempt invalidates this result.
	if msg.seq != m.connectSeq {
		if msg.client != nil {
			msg.client.Close()
		}

		return m, nil
	}

	if msg.err != nil {
		m.connState = transport.Failed
		m.connErr = msg.err.Error()

		return m, nil
	}

	m.client = msg.client
	m.appliedModel = m.selectedModel
	m.socketReady = true

	return m, nil
}

func (m *Model) streamingTransition() tea.Cmd {
	portal := m.session.Portal

	return func() tea.Msg {
		if err := portal.TransitionToStreaming(m.ctx); err != nil {
			observability.FromContext(m.ctx).Debug("transition rejected", "error", err)
		}

		return transitionDoneMsg{}
	}
}

func (m *Model) sendAction(action string) tea.Cmd {
	client := m.client
	if client == nil {
		return nil
	}

	payload, err := json.Marshal(map[string]string{"type": "action", "action": action})
	if err != nil {
		return nil
	}

	return func() tea.Msg {
		if err := client.Send(m.ctx, payload); err != nil {
			observability.FromContext(m.ctx).Debug("action send failed", "error", err)
		}

		return nil
	}
}

func (m *Model) teardown() {
	if m.client != nil {
		m.client.Close()
		m.client = nil
	}

	m.socketReady = false
	m.pointerLocked = false
	m.paused = false
	m.stage = engine.ProgressStage{}
}

// View renders the session surface.
func (m *Model) View() string {
	if m.quitting {
		return ""
	}

	var b []string

	state := m.session.Portal.State()
	b = append(b, titleStyle.Render("biome session"))
	b = append(b, statusStyle.Render(
		"portal: "+state.String()+"  connection: "+m.connState.String()+"  model: "+m.selectedModel))

	if m.session.Portal.SettingsOpen() {
		b = append(b, titleStyle.Render("settings: model"))
		for _, name := range m.models {
			marker := "  "
			if name == m.selectedModel {
				marker = "> "
			}

			b = append(b, logStyle.Render(marker+name))
		}

		b = append(b, helpStyle.Render("tab next · shift+tab previous · esc close"))

		return lipgloss.JoinVertical(lipgloss.Left, b...)
	}

	if m.errBanner != "" {
		b = append(b, errorStyle.Render("error: "+m.errBanner))
	}

	if m.connLost {
		b = append(b, errorStyle.Render("connection lost"))
	}

	switch state {
	case session.Cold:
		b = append(b, helpStyle.Render("press enter to engage"))
	case session.Warm:
		b = append(b, helpStyle.Render("press s to start a session"))
	case session.Loading:
		label := m.stage.Label
		if label == "" {
			label = "Starting engine"
		}

		b = append(b, m.spin.View()+" "+label)
		b = append(b, m.progress.ViewAs(m.stage.Percent/100))
	case session.Streaming:
		status := "streaming"
		if m.paused {
			status = "paused"
		}

		b = append(b, titleStyle.Render(status))
	}

	tail := m.logLines
	if limit := m.height - len(b) - 3; limit > 0 && len(tail) > limit {
		tail = tail[len(tail)-limit:]
	}

	for _, line := range tail {
		b = append(b, logStyle.Render(line))
	}

	b = append(b, helpStyle.Render("enter engage · s start · esc back · o settings · q quit"))

	return lipgloss.JoinVertical(lipgloss.Left, b...)
}
