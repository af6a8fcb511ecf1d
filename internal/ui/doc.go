// Package ui implements an interactive catalog browser using bubbletea's Elm architecture.
//
// The TUI moves between three views:
//  1. [ArtistListView] : Browse the artists in the catalog
//  2. [TrackListView] : Inspect a template's tracks, verify them against Spotify, open the landing page
//  3. [HistoryView] : Recent playlists created from the template
//
// The (view) [Model] implements bubbletea's Init/Update/View pattern. Verification and history lookups run as
// [tea.Cmd] functions and report back through the messages in message.go.
//
// Keyboard navigation uses vim-style bindings (j/k, enter, esc, q) with contextual help displayed via
// charmbracelet/bubbles/help.
package ui
