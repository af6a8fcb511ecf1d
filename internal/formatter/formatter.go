// package formatter renders artist playlist templates as text, Markdown, CSV or JSON
package formatter

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"github.com/desertthunder/mixlink/internal/catalog"
	"github.com/desertthunder/mixlink/internal/services"
	"github.com/desertthunder/mixlink/internal/shared"
)

// Format names an output format.
type Format string

const (
	Text     Format = "text"
	Markdown Format = "markdown"
	CSV      Format = "csv"
	JSON     Format = "json"
)

// Formats lists every supported [Format].
var Formats = []Format{Text, Markdown, CSV, JSON}

// ParseFormat resolves a user-supplied format name; "md" and "txt" are accepted as aliases.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "text", "txt":
		return Text, nil
	case "markdown", "md":
		return Markdown, nil
	case "csv":
		return CSV, nil
	case "json":
		return JSON, nil
	}
	return "", fmt.Errorf("%w: unknown format %q", shared.ErrInvalidArgument, s)
}

// ExportTrack is one template track, optionally enriched by verification.
type ExportTrack struct {
	Position int    `json:"position"`
	URI      string `json:"uri"`
	ID       string `json:"id"`
	Name     string `json:"name,omitempty"`
	Artist   string `json:"artist,omitempty"`
	Verified bool   `json:"verified"`
	Found    bool   `json:"found"`
}

// Export is an artist's template prepared for output.
type Export struct {
	Artist      string               `json:"artist"`
	Name        string               `json:"name"`
	Description string               `json:"description,omitempty"`
	ImageURL    string               `json:"image_url,omitempty"`
	Socials     []catalog.SocialLink `json:"socials,omitempty"`
	Tracks      []ExportTrack        `json:"tracks"`
}

// NewExport builds an [Export] from a catalog template.
func NewExport(artist string, tpl catalog.Template) *Export {
	uris := tpl.TrackURIs()
	e := &Export{
		Artist:      artist,
		Name:        tpl.Name,
		Description: tpl.Description,
		ImageURL:    tpl.BackgroundImageURL,
		Socials:     tpl.SocialLinks(),
		Tracks:      make([]ExportTrack, 0, len(uris)),
	}
	for i, uri := range uris {
		e.Tracks = append(e.Tracks, ExportTrack{Position: i + 1, URI: uri, ID: catalog.TrackID(uri)})
	}
	return e
}

// WithStatuses copies verification results onto the matching tracks by id.
func (e *Export) WithStatuses(statuses []services.TrackStatus) *Export {
	byID := make(map[string]services.TrackStatus, len(statuses))
	for _, s := range statuses {
		byID[s.ID] = s
	}
	for i := range e.Tracks {
		s, ok := byID[e.Tracks[i].ID]
		if !ok {
			continue
		}
		e.Tracks[i].Verified = true
		e.Tracks[i].Found = s.Found
		e.Tracks[i].Name = s.Name
		e.Tracks[i].Artist = s.Artist
	}
	return e
}

// Render produces e in format f. Markdown output references no cover image.
func Render(e *Export, f Format) ([]byte, error) {
	switch f {
	case Text:
		return ExportToText(e)
	case Markdown:
		return ExportToMarkdown(e, "")
	case CSV:
		return ExportToCSV(e)
	case JSON:
		return ExportToJSON(e)
	}
	return nil, fmt.Errorf("%w: unknown format %q", shared.ErrInvalidArgument, f)
}

// ExportToCSV writes one row per track with columns: Position, ID, URI, Name, Artist, Status
func ExportToCSV(e *Export) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	if err := writer.Write([]string{"Position", "ID", "URI", "Name", "Artist", "Status"}); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}

	for _, track := range e.Tracks {
		record := []string{
			strconv.Itoa(track.Position),
			track.ID,
			track.URI,
			track.Name,
			track.Artist,
			status(track),
		}
		if err := writer.Write(record); err != nil {
			return nil, fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("CSV writer error: %w", err)
	}

	return buf.Bytes(), nil
}

// ExportToMarkdown renders e as a Markdown document with an optional cover image
func ExportToMarkdown(e *Export, imageFilename string) ([]byte, error) {
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "# %s\n\n", e.Name)

	if imageFilename != "" {
		fmt.Fprintf(&buf, "![Cover](%s)\n\n", imageFilename)
	}

	if e.Description != "" {
		fmt.Fprintf(&buf, "**Description**: %s\n\n", e.Description)
	}

	fmt.Fprintf(&buf, "**Artist**: `%s`\n", e.Artist)
	fmt.Fprintf(&buf, "**Tracks**: %d\n\n", len(e.Tracks))

	if len(e.Socials) > 0 {
		buf.WriteString("## Links\n\n")
		for _, s := range e.Socials {
			fmt.Fprintf(&buf, "- [%s](%s)\n", s.Platform, s.URL)
		}
		buf.WriteString("\n")
	}

	buf.WriteString("## Tracks\n\n")
	for _, track := range e.Tracks {
		fmt.Fprintf(&buf, "%d. %s\n", track.Position, describe(track))
	}

	return buf.Bytes(), nil
}

// ExportToText renders e as plain text
func ExportToText(e *Export) ([]byte, error) {
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "Playlist: %s\n", e.Name)
	fmt.Fprintf(&buf, "Artist: %s\n", e.Artist)
	if e.Description != "" {
		fmt.Fprintf(&buf, "Description: %s\n", e.Description)
	}
	for _, s := range e.Socials {
		fmt.Fprintf(&buf, "%s: %s\n", s.Platform, s.URL)
	}
	fmt.Fprintf(&buf, "Tracks: %d\n\n", len(e.Tracks))

	for _, track := range e.Tracks {
		fmt.Fprintf(&buf, "%d. %s\n", track.Position, describe(track))
	}

	return buf.Bytes(), nil
}

// ExportToJSON renders e as indented JSON
func ExportToJSON(e *Export) ([]byte, error) {
	data, err := json.MarshalIndent(e, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode JSON: %w", err)
	}
	return append(data, '\n'), nil
}

func describe(t ExportTrack) string {
	label := t.URI
	if t.Name != "" {
		label = fmt.Sprintf("%s - %s (%s)", t.Artist, t.Name, t.URI)
	}
	if t.Verified && !t.Found {
		label += " [missing]"
	}
	return label
}

func status(t ExportTrack) string {
	switch {
	case !t.Verified:
		return ""
	case t.Found:
		return "found"
	default:
		return "missing"
	}
}

// DownloadImage downloads an image from the given URL and returns the raw bytes
func DownloadImage(url string) ([]byte, error) {
	if url == "" {
		return nil, fmt.Errorf("empty URL provided")
	}

	client := &http.Client{
		Timeout: 30 * time.Second,
	}

	resp, err := client.Get(url)
	if err != nil {
		return nil, fmt.Errorf("failed to download image: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed to download image: status %d", resp.StatusCode)
	}

	imageData, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read image data: %w", err)
	}

	return imageData, nil
}

// MarkdownExportResult contains information about files created by WriteMarkdownExport
type MarkdownExportResult struct {
	Directory  string
	Files      []string
	CoverImage string
}

// WriteMarkdownExport writes e to {dir}/README.md, downloading the template's background image to
// {dir}/cover.jpg when one is set.
//
// Directory name defaults to the artist key. A failed image download is reported on warn and skipped.
func WriteMarkdownExport(e *Export, outputDir string, warn io.Writer) (*MarkdownExportResult, error) {
	if outputDir == "" {
		outputDir = e.Artist
	}
	if warn == nil {
		warn = os.Stderr
	}

	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	result := &MarkdownExportResult{Directory: outputDir, Files: []string{}}

	var coverImageFilename string
	if e.ImageURL != "" {
		imageData, err := DownloadImage(e.ImageURL)
		if err != nil {
			fmt.Fprintf(warn, "Warning: failed to download cover image: %v\n", err)
		} else {
			coverImageFilename = "cover.jpg"
			coverImagePath := filepath.Join(outputDir, coverImageFilename)
			if err := os.WriteFile(coverImagePath, imageData, 0644); err != nil {
				fmt.Fprintf(warn, "Warning: failed to save cover image: %v\n", err)
				coverImageFilename = ""
			} else {
				result.CoverImage = coverImagePath
				result.Files = append(result.Files, coverImagePath)
			}
		}
	}

	mdData, err := ExportToMarkdown(e, coverImageFilename)
	if err != nil {
		return nil, fmt.Errorf("failed to generate Markdown: %w", err)
	}

	mdFile := filepath.Join(outputDir, "README.md")
	if err := os.WriteFile(mdFile, mdData, 0644); err != nil {
		return nil, fmt.Errorf("failed to write Markdown file: %w", err)
	}
	result.Files = append(result.Files, mdFile)

	return result, nil
}

// WriteExport renders e in format f to path, defaulting to {artist}.{ext}.
func WriteExport(e *Export, f Format, path string) (string, error) {
	if path == "" {
		path = e.Artist + "." + extension(f)
	}

	data, err := Render(e, f)
	if err != nil {
		return "", err
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write %s file: %w", f, err)
	}
	return path, nil
}

func extension(f Format) string {
	switch f {
	case Markdown:
		return "md"
	case Text:
		return "txt"
	default:
		return string(f)
	}
}
