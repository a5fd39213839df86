package ui

import (
	"fmt"
	"sort"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/n3ms/medialib/internal/events"
)

// historySize bounds the rolling activity log.
const historySize = 12

// activeDownload is the monitor's view of one in-flight download.
type activeDownload struct {
	itemID  string
	percent float64
	speed   string
}

type eventMsg events.Event

type streamClosedMsg struct{}

// keyMap defines the key bindings for the monitor.
type keyMap struct {
	quit key.Binding
}

func newKeyMap() keyMap {
	return keyMap{
		quit: key.NewBinding(
			key.WithKeys("q", "ctrl+c"),
			key.WithHelp("q", "quit"),
		),
	}
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{{k.quit}}
}

// Model is the live activity monitor. It consumes a subscription channel
// from the event bus and re-arms a wait command after every message.
type Model struct {
	stream  <-chan events.Event
	cancel  func()
	active  map[string]*activeDownload
	history []string
	width   int
	help    help.Model
	keys    keyMap
}

// NewModel creates a monitor over an event subscription. cancel is invoked
// when the monitor quits.
func NewModel(stream <-chan events.Event, cancel func()) *Model {
	return &Model{
		stream: stream,
		cancel: cancel,
		active: make(map[string]*activeDownload),
		help:   help.New(),
		keys:   newKeyMap(),
	}
}

// Init arms the first event wait.
func (m *Model) Init() tea.Cmd {
	return m.waitForEvent()
}

// Update handles incoming messages and updates the model state.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		return m, nil

	case tea.KeyMsg:
		if key.Matches(msg, m.keys.quit) {
			m.cancel()
			return m, tea.Quit
		}
		return m, nil

	case eventMsg:
		m.apply(events.Event(msg))
		return m, m.waitForEvent()

	case streamClosedMsg:
		return m, tea.Quit
	}

	return m, nil
}

// View renders the active downloads and the rolling activity log.
func (m *Model) View() string {
	var b strings.Builder

	b.WriteString(styles.title.Render("Library Activity"))
	b.WriteString("\n")

	if len(m.active) == 0 {
		b.WriteString(styles.help.Render("no downloads in flight"))
		b.WriteString("\n")
	} else {
		for _, d := range m.sortedActive() {
			b.WriteString(fmt.Sprintf("%s %s %5.1f%% %s\n",
				d.itemID, renderBar(d.percent), d.percent, d.speed))
		}
	}

	if len(m.history) > 0 {
		b.WriteString("\n")
		for _, line := range m.history {
			b.WriteString(line)
			b.WriteString("\n")
		}
	}

	b.WriteString("\n")
	b.WriteString(m.help.ShortHelpView(m.keys.ShortHelp()))
	return b.String()
}

func (m *Model) waitForEvent() tea.Cmd {
	return func() tea.Msg {
		evt, ok := <-m.stream
		if !ok {
			return streamClosedMsg{}
		}
		return eventMsg(evt)
	}
}

func (m *Model) apply(evt events.Event) {
	switch evt.Type {
	case events.DownloadStarted:
		m.active[evt.FeedItemID] = &activeDownload{itemID: evt.FeedItemID, speed: "starting"}

	case events.DownloadProgress:
		if d, ok := m.active[evt.FeedItemID]; ok {
			d.percent = evt.Percent
			d.speed = evt.Speed
		}

	case events.DownloadCompleted:
		delete(m.active, evt.FeedItemID)
		m.remember(styles.ok.Render(fmt.Sprintf("downloaded %s", evt.FeedItemID)))

	case events.DownloadError:
		delete(m.active, evt.FeedItemID)
		m.remember(styles.err.Render(fmt.Sprintf("download %s failed: %s", evt.FeedItemID, evt.Message)))

	case events.SyncStarted:
		m.remember(styles.help.Render(fmt.Sprintf("syncing %s", evt.SourceID)))

	case events.SyncCompleted:
		m.remember(styles.ok.Render(fmt.Sprintf("synced %s: %s", evt.SourceID, evt.Message)))

	case events.SyncError:
		m.remember(styles.err.Render(fmt.Sprintf("sync %s failed: %s", evt.SourceID, evt.Message)))

	case events.MetadataUpdate:
		switch evt.Status {
		case "completed":
			m.remember(styles.help.Render(fmt.Sprintf("metadata refreshed for %s", evt.FeedItemID)))
		case "error":
			m.remember(styles.warn.Render(fmt.Sprintf("metadata for %s failed: %s", evt.FeedItemID, evt.Message)))
		}
	}
}

func (m *Model) remember(line string) {
	m.history = append(m.history, line)
	if len(m.history) > historySize {
		m.history = m.history[len(m.history)-historySize:]
	}
}

func (m *Model) sortedActive() []*activeDownload {
	out := make([]*activeDownload, 0, len(m.active))
	for _, d := range m.active {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].itemID < out[j].itemID })
	return out
}

// renderBar draws a fixed-width progress bar.
func renderBar(percent float64) string {
	const width = 20
	filled := int(percent / 100 * width)
	if filled > width {
		filled = width
	}
	if filled < 0 {
		filled = 0
	}
	return "[" + strings.Repeat("█", filled) + strings.Repeat("░", width-filled) + "]"
}
