package ui

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/desertthunder/mixlink/internal/catalog"
	"github.com/desertthunder/mixlink/internal/models"
	"github.com/desertthunder/mixlink/internal/services"
	"github.com/desertthunder/mixlink/internal/shared"
)

// ViewState represents the current view in the TUI.
type ViewState int

const (
	ArtistListView ViewState = iota
	TrackListView
	HistoryView
)

const historyLimit = 20

// Verifier resolves track ids against Spotify.
type Verifier interface {
	Verify(ctx context.Context, ids []string) ([]services.TrackStatus, error)
}

// HistoryLister lists recent materializations for an artist.
type HistoryLister interface {
	List(ctx context.Context, artist string, limit int) ([]*models.Materialization, error)
}

// Deps configures a [Model]. Verifier and History are optional; the matching keys report that the
// feature is unavailable when they are nil.
type Deps struct {
	Catalog  *catalog.Store
	BaseURL  string
	Verifier Verifier
	History  HistoryLister
	Open     func(url string) error
}

// Model represents the TUI application state.
type Model struct {
	ctx         context.Context
	view        ViewState
	deps        Deps
	width       int
	height      int
	artistList  list.Model
	trackList   list.Model
	historyList list.Model
	selected    string
	template    catalog.Template
	status      string
	err         error
	help        help.Model
	keys        keyMap
}

// LandingURL returns the public landing page for artist under baseURL.
func LandingURL(baseURL, artist string) string {
	return strings.TrimRight(baseURL, "/") + "/" + url.PathEscape(artist)
}

// NewModel creates a new TUI model over the current catalog snapshot.
func NewModel(ctx context.Context, deps Deps) *Model {
	if deps.Open == nil {
		deps.Open = shared.OpenBrowser
	}

	snapshot := deps.Catalog.Current()
	artists := snapshot.Artists()
	items := make([]list.Item, 0, len(artists))
	for _, artist := range artists {
		tpl, _ := snapshot.Lookup(artist)
		items = append(items, artistItem{artist: artist, template: tpl})
	}

	artistList := list.New(items, list.NewDefaultDelegate(), 0, 0)
	artistList.Title = "Artists"

	return &Model{
		ctx:         ctx,
		view:        ArtistListView,
		deps:        deps,
		artistList:  artistList,
		trackList:   list.New(nil, list.NewDefaultDelegate(), 0, 0),
		historyList: list.New(nil, list.NewDefaultDelegate(), 0, 0),
		help:        help.New(),
		keys:        newKeyMap(),
	}
}

// Init implements [tea.Model]; the catalog is already loaded.
func (m *Model) Init() tea.Cmd {
	return nil
}

// ViewState returns the active view.
func (m *Model) ViewState() ViewState {
	return m.view
}

// Update handles incoming messages and updates the model state.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.artistList.SetSize(msg.Width-4, msg.Height-8)
		m.trackList.SetSize(msg.Width-4, msg.Height-8)
		m.historyList.SetSize(msg.Width-4, msg.Height-8)
		return m, nil

	case tea.KeyMsg:
		switch m.view {
		case ArtistListView:
			return m.handleArtistListKeys(msg)
		case TrackListView:
			return m.handleTrackListKeys(msg)
		case HistoryView:
			return m.handleHistoryKeys(msg)
		}

	case verifiedMsg:
		if msg.artist != m.selected {
			return m, nil
		}
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		m.applyStatuses(msg.statuses)
		return m, nil

	case historyFetchedMsg:
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		items := make([]list.Item, len(msg.records))
		for i, rec := range msg.records {
			items[i] = historyItem{record: rec}
		}
		m.historyList = list.New(items, list.NewDefaultDelegate(), 0, 0)
		m.historyList.Title = fmt.Sprintf("Playlists created from '%s'", msg.artist)
		m.historyList.SetSize(m.width-4, m.height-8)
		m.view = HistoryView
		return m, nil

	case openedMsg:
		if msg.err != nil {
			m.err = msg.err
		} else {
			m.status = "Opened " + msg.url
		}
		return m, nil
	}

	return m.updateLists(msg)
}

// View renders the UI based on the current view state.
func (m *Model) View() string {
	var body string
	switch m.view {
	case ArtistListView:
		body = m.renderArtistList()
	case TrackListView:
		body = m.renderTrackList()
	case HistoryView:
		body = m.renderHistory()
	}

	switch {
	case m.err != nil:
		body += "\n" + styles.err.Render(fmt.Sprintf("Error: %v", m.err))
	case m.status != "":
		body += "\n" + styles.ok.Render(m.status)
	}
	return body
}

func (m *Model) handleArtistListKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.artistList.FilterState() == list.Filtering {
		var cmd tea.Cmd
		m.artistList, cmd = m.artistList.Update(msg)
		return m, cmd
	}

	switch msg.String() {
	case "q", "ctrl+c":
		return m, tea.Quit
	case "enter":
		if item, ok := m.artistList.SelectedItem().(artistItem); ok {
			m.selectArtist(item)
		}
		return m, nil
	case "o":
		if item, ok := m.artistList.SelectedItem().(artistItem); ok {
			return m, m.openLanding(item.artist)
		}
		return m, nil
	}

	var cmd tea.Cmd
	m.artistList, cmd = m.artistList.Update(msg)
	return m, cmd
}

func (m *Model) handleTrackListKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		return m, tea.Quit
	case "esc":
		m.view = ArtistListView
		m.clearStatus()
		return m, nil
	case "o":
		return m, m.openLanding(m.selected)
	case "v":
		return m, m.verify()
	case "h":
		return m, m.fetchHistory()
	}

	var cmd tea.Cmd
	m.trackList, cmd = m.trackList.Update(msg)
	return m, cmd
}

func (m *Model) handleHistoryKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		return m, tea.Quit
	case "esc":
		m.view = TrackListView
		m.clearStatus()
		return m, nil
	case "o":
		if item, ok := m.historyList.SelectedItem().(historyItem); ok && item.record.PlaylistURL != "" {
			return m, m.open(item.record.PlaylistURL)
		}
		return m, nil
	}

	var cmd tea.Cmd
	m.historyList, cmd = m.historyList.Update(msg)
	return m, cmd
}

func (m *Model) selectArtist(item artistItem) {
	m.selected = item.artist
	m.template = item.template
	m.clearStatus()

	uris := item.template.TrackURIs()
	items := make([]list.Item, len(uris))
	for i, uri := range uris {
		items[i] = trackItem{uri: uri}
	}
	m.trackList = list.New(items, list.NewDefaultDelegate(), 0, 0)
	m.trackList.Title = item.template.Name
	m.trackList.SetSize(m.width-4, m.height-8)
	m.view = TrackListView
}

func (m *Model) applyStatuses(statuses []services.TrackStatus) {
	byID := make(map[string]services.TrackStatus, len(statuses))
	for _, s := range statuses {
		byID[s.ID] = s
	}

	found := 0
	items := m.trackList.Items()
	for i, it := range items {
		track := it.(trackItem)
		if s, ok := byID[catalog.TrackID(track.uri)]; ok {
			track.status = &s
			if s.Found {
				found++
			}
		}
		items[i] = track
	}
	m.trackList.SetItems(items)
	m.status = fmt.Sprintf("%d/%d tracks found", found, len(items))
}

func (m *Model) clearStatus() {
	m.status = ""
	m.err = nil
}

func (m *Model) updateLists(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	switch m.view {
	case ArtistListView:
		m.artistList, cmd = m.artistList.Update(msg)
	case TrackListView:
		m.trackList, cmd = m.trackList.Update(msg)
	case HistoryView:
		m.historyList, cmd = m.historyList.Update(msg)
	}
	return m, cmd
}

func (m *Model) openLanding(artist string) tea.Cmd {
	if m.deps.BaseURL == "" {
		m.err = fmt.Errorf("%w: no public base URL configured", shared.ErrInvalidConfig)
		return nil
	}
	return m.open(LandingURL(m.deps.BaseURL, artist))
}

func (m *Model) open(target string) tea.Cmd {
	open := m.deps.Open
	return func() tea.Msg {
		return openedMsg{url: target, err: open(target)}
	}
}

func (m *Model) verify() tea.Cmd {
	if m.deps.Verifier == nil {
		m.err = fmt.Errorf("%w: verification needs credentials.spotify.client_secret", shared.ErrMissingCredentials)
		return nil
	}

	artist := m.selected
	uris := m.template.TrackURIs()
	ids := make([]string, len(uris))
	for i, uri := range uris {
		ids[i] = catalog.TrackID(uri)
	}

	m.clearStatus()
	m.status = "Verifying..."
	verifier, ctx := m.deps.Verifier, m.ctx
	return func() tea.Msg {
		statuses, err := verifier.Verify(ctx, ids)
		return verifiedMsg{artist: artist, statuses: statuses, err: err}
	}
}

func (m *Model) fetchHistory() tea.Cmd {
	if m.deps.History == nil {
		m.err = fmt.Errorf("%w: history needs a database", shared.ErrMissingConfig)
		return nil
	}

	artist := m.selected
	history, ctx := m.deps.History, m.ctx
	return func() tea.Msg {
		records, err := history.List(ctx, artist, historyLimit)
		return historyFetchedMsg{artist: artist, records: records, err: err}
	}
}

func (m *Model) renderArtistList() string {
	helpKeys := []key.Binding{m.keys.enter, m.keys.open, m.keys.quit}
	return fmt.Sprintf("%s\n\n%s", m.artistList.View(), m.help.ShortHelpView(helpKeys))
}

func (m *Model) renderTrackList() string {
	header := styles.title.Render(m.template.Name)
	if m.template.Description != "" {
		header += "\n" + styles.help.Render(m.template.Description)
	}
	for _, s := range m.template.SocialLinks() {
		header += "\n" + fmt.Sprintf("%s: %s", s.Platform, s.URL)
	}

	helpKeys := []key.Binding{m.keys.open, m.keys.verify, m.keys.history, m.keys.back, m.keys.quit}
	return fmt.Sprintf("%s\n\n%s\n\n%s", header, m.trackList.View(), m.help.ShortHelpView(helpKeys))
}

func (m *Model) renderHistory() string {
	if len(m.historyList.Items()) == 0 {
		return styles.warn.Render(fmt.Sprintf("No playlists created from '%s' yet", m.selected)) +
			"\n\n" + m.help.ShortHelpView([]key.Binding{m.keys.back, m.keys.quit})
	}
	helpKeys := []key.Binding{m.keys.open, m.keys.back, m.keys.quit}
	return fmt.Sprintf("%s\n\n%s", m.historyList.View(), m.help.ShortHelpView(helpKeys))
}
