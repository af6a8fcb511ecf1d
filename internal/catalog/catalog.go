// Package catalog loads the artist playlist templates served by mixlink.
//
// The catalog file is a JSON object keyed by artist slug; each value is a [Template].
// A [Store] holds the current snapshot and can be swapped atomically when the file changes.
package catalog

import (
	"fmt"
	"os"
	"slices"
	"strings"

	"github.com/goccy/go-json"

	"github.com/desertthunder/mixlink/internal/shared"
)

const trackURIPrefix = "spotify:track:"

// Template is the pre-defined playlist materialized for an artist.
type Template struct {
	Name               string            `json:"playlistName"`
	Description        string            `json:"playlistDescription"`
	TrackIDs           []string          `json:"playlistTrackIds"`
	BackgroundImageURL string            `json:"backgroundImageUrl"`
	Socials            map[string]string `json:"socials"`
}

// TrackURIs returns the template's tracks as Spotify URIs, in catalog order.
//
// Entries already in URI form are passed through; bare IDs get the track prefix. Surrounding
// whitespace is trimmed and blank entries are dropped.
func (t Template) TrackURIs() []string {
	uris := make([]string, 0, len(t.TrackIDs))
	for _, id := range t.TrackIDs {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		if !strings.HasPrefix(id, "spotify:") {
			id = trackURIPrefix + id
		}
		uris = append(uris, id)
	}
	return uris
}

// SocialLinks returns non-empty social links sorted by platform name.
func (t Template) SocialLinks() []SocialLink {
	links := make([]SocialLink, 0, len(t.Socials))
	for platform, url := range t.Socials {
		if url == "" {
			continue
		}
		links = append(links, SocialLink{Platform: platform, URL: url})
	}
	slices.SortFunc(links, func(a, b SocialLink) int { return strings.Compare(a.Platform, b.Platform) })
	return links
}

// SocialLink is one artist profile link shown on the landing page.
type SocialLink struct {
	Platform string `json:"platform"`
	URL      string `json:"url"`
}

// TrackID extracts the bare track ID from a URI or open.spotify.com link.
func TrackID(ref string) string {
	ref = strings.TrimSpace(ref)
	if id, ok := strings.CutPrefix(ref, trackURIPrefix); ok {
		return id
	}
	if _, rest, ok := strings.Cut(ref, "open.spotify.com/track/"); ok {
		id, _, _ := strings.Cut(rest, "?")
		return id
	}
	return ref
}

// Catalog is an immutable set of templates keyed by artist.
type Catalog struct {
	templates map[string]Template
}

// New builds a catalog from templates.
func New(templates map[string]Template) *Catalog {
	c := &Catalog{templates: make(map[string]Template, len(templates))}
	for artist, t := range templates {
		c.templates[artist] = t
	}
	return c
}

// Parse decodes catalog JSON.
func Parse(data []byte) (*Catalog, error) {
	var templates map[string]Template
	if err := json.Unmarshal(data, &templates); err != nil {
		return nil, fmt.Errorf("%w: failed to parse catalog: %v", shared.ErrInvalidInput, err)
	}

	for artist, t := range templates {
		if artist == "" {
			return nil, fmt.Errorf("%w: catalog contains an empty artist key", shared.ErrInvalidInput)
		}
		if t.Name == "" {
			return nil, fmt.Errorf("%w: template %q has no playlistName", shared.ErrInvalidInput, artist)
		}
	}
	return New(templates), nil
}

// Load reads and parses the catalog file at path.
func Load(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog: %w", err)
	}
	return Parse(data)
}

// Lookup returns the template for artist.
func (c *Catalog) Lookup(artist string) (Template, bool) {
	if c == nil {
		return Template{}, false
	}
	t, ok := c.templates[artist]
	return t, ok
}

// Artists returns every artist key in sorted order.
func (c *Catalog) Artists() []string {
	if c == nil {
		return nil
	}
	artists := make([]string, 0, len(c.templates))
	for artist := range c.templates {
		artists = append(artists, artist)
	}
	slices.Sort(artists)
	return artists
}

// Len reports the number of templates.
func (c *Catalog) Len() int {
	if c == nil {
		return 0
	}
	return len(c.templates)
}
