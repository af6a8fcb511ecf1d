package ui

import (
	tea "github.com/charmbracelet/bubbletea"

	"github.com/desertthunder/mixlink/internal/models"
	"github.com/desertthunder/mixlink/internal/services"
)

var (
	_ tea.Msg = verifiedMsg{}
	_ tea.Msg = historyFetchedMsg{}
	_ tea.Msg = openedMsg{}
)

// verifiedMsg carries the verification results for the selected template.
type verifiedMsg struct {
	artist   string
	statuses []services.TrackStatus
	err      error
}

// historyFetchedMsg carries recent materializations for the selected artist.
type historyFetchedMsg struct {
	artist  string
	records []*models.Materialization
	err     error
}

// openedMsg reports the result of launching the browser.
type openedMsg struct {
	url string
	err error
}
