package ui

import (
	"fmt"

	"github.com/charmbracelet/bubbles/list"

	"github.com/desertthunder/mixlink/internal/catalog"
	"github.com/desertthunder/mixlink/internal/models"
	"github.com/desertthunder/mixlink/internal/services"
)

var (
	_ list.Item = artistItem{}
	_ list.Item = trackItem{}
	_ list.Item = historyItem{}
)

// artistItem wraps a catalog entry to implement [list.Item].
type artistItem struct {
	artist   string
	template catalog.Template
}

func (i artistItem) FilterValue() string { return i.artist + " " + i.template.Name }
func (i artistItem) Title() string       { return i.template.Name }
func (i artistItem) Description() string {
	return fmt.Sprintf("/%s • %d tracks", i.artist, len(i.template.TrackURIs()))
}

// trackItem is one template track, with its verification result once known.
type trackItem struct {
	uri    string
	status *services.TrackStatus
}

func (i trackItem) FilterValue() string { return i.Title() }
func (i trackItem) Title() string {
	if i.status != nil && i.status.Name != "" {
		return i.status.Name
	}
	return i.uri
}
func (i trackItem) Description() string {
	switch {
	case i.status == nil:
		return "unverified"
	case !i.status.Found:
		return "missing • " + i.uri
	default:
		return i.status.Artist + " • " + i.uri
	}
}

// historyItem wraps [models.Materialization] to implement [list.Item].
type historyItem struct {
	record *models.Materialization
}

func (i historyItem) FilterValue() string { return i.record.PlaylistID }
func (i historyItem) Title() string       { return i.record.CreatedAt.Local().Format("2006-01-02 15:04") }
func (i historyItem) Description() string {
	desc := fmt.Sprintf("%d tracks • %s", i.record.TrackCount, i.record.PlaylistURL)
	if !i.record.TracksAdded && i.record.TrackCount > 0 {
		desc += " • tracks not added"
	}
	return desc
}
