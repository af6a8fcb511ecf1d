package formatter

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/goccy/go-json"

	"github.com/desertthunder/mixlink/internal/catalog"
	"github.com/desertthunder/mixlink/internal/services"
	"github.com/desertthunder/mixlink/internal/shared"
	th "github.com/desertthunder/mixlink/internal/testing"
)

func sampleExport() *Export {
	return NewExport("trinix", catalog.Template{
		Name:        "TRINIX Picks",
		Description: "Afro House favourites",
		TrackIDs:    []string{"abc", "spotify:track:def", " "},
		Socials:     map[string]string{"instagram": "https://instagram.com/trinix", "tiktok": ""},
	})
}

func TestNewExport(t *testing.T) {
	e := sampleExport()

	if len(e.Tracks) != 2 {
		t.Fatalf("expected 2 tracks, got %d", len(e.Tracks))
	}
	if e.Tracks[0].URI != "spotify:track:abc" || e.Tracks[0].ID != "abc" || e.Tracks[0].Position != 1 {
		t.Errorf("unexpected first track %+v", e.Tracks[0])
	}
	if e.Tracks[1].ID != "def" || e.Tracks[1].Position != 2 {
		t.Errorf("unexpected second track %+v", e.Tracks[1])
	}
	if len(e.Socials) != 1 || e.Socials[0].Platform != "instagram" {
		t.Errorf("expected empty socials dropped, got %+v", e.Socials)
	}

	t.Run("WithStatuses", func(t *testing.T) {
		e := sampleExport().WithStatuses([]services.TrackStatus{
			{ID: "abc", Name: "Song One", Artist: "Artist One", Found: true},
			{ID: "def", Found: false},
		})
		if !e.Tracks[0].Verified || !e.Tracks[0].Found || e.Tracks[0].Name != "Song One" {
			t.Errorf("expected first track enriched, got %+v", e.Tracks[0])
		}
		if !e.Tracks[1].Verified || e.Tracks[1].Found {
			t.Errorf("expected second track missing, got %+v", e.Tracks[1])
		}
	})
}

func TestExporters(t *testing.T) {
	t.Run("ExportToCSV", func(t *testing.T) {
		data, err := ExportToCSV(sampleExport())
		if err != nil {
			t.Fatalf("ExportToCSV failed: %v", err)
		}

		output := string(data)
		if !strings.HasPrefix(output, "Position,ID,URI,Name,Artist,Status\n") {
			t.Errorf("CSV missing headers, got: %s", output)
		}
		if !strings.Contains(output, "1,abc,spotify:track:abc,,,\n") {
			t.Errorf("CSV missing first row, got: %s", output)
		}
	})

	t.Run("ExportToMarkdown", func(t *testing.T) {
		t.Run("without cover image", func(t *testing.T) {
			data, err := ExportToMarkdown(sampleExport(), "")
			if err != nil {
				t.Fatalf("ExportToMarkdown failed: %v", err)
			}

			output := string(data)
			for _, want := range []string{
				"# TRINIX Picks",
				"**Description**: Afro House favourites",
				"**Tracks**: 2",
				"- [instagram](https://instagram.com/trinix)",
				"1. spotify:track:abc",
				"2. spotify:track:def",
			} {
				if !strings.Contains(output, want) {
					t.Errorf("Markdown missing %q", want)
				}
			}
			if strings.Contains(output, "![Cover]") {
				t.Error("Markdown should not reference a cover image")
			}
		})

		t.Run("with cover image", func(t *testing.T) {
			data, err := ExportToMarkdown(sampleExport(), "cover.jpg")
			if err != nil {
				t.Fatalf("ExportToMarkdown failed: %v", err)
			}
			if !strings.Contains(string(data), "![Cover](cover.jpg)") {
				t.Error("Markdown missing cover image")
			}
		})

		t.Run("marks missing tracks", func(t *testing.T) {
			e := sampleExport().WithStatuses([]services.TrackStatus{{ID: "def", Found: false}})
			data, _ := ExportToMarkdown(e, "")
			if !strings.Contains(string(data), "2. spotify:track:def [missing]") {
				t.Errorf("expected missing marker, got %s", data)
			}
		})
	})

	t.Run("ExportToText", func(t *testing.T) {
		data, err := ExportToText(sampleExport())
		if err != nil {
			t.Fatalf("ExportToText failed: %v", err)
		}

		output := string(data)
		for _, want := range []string{"Playlist: TRINIX Picks", "Artist: trinix", "instagram: https://instagram.com/trinix", "Tracks: 2"} {
			if !strings.Contains(output, want) {
				t.Errorf("text missing %q", want)
			}
		}
	})

	t.Run("ExportToJSON", func(t *testing.T) {
		data, err := ExportToJSON(sampleExport())
		if err != nil {
			t.Fatalf("ExportToJSON failed: %v", err)
		}

		var decoded Export
		if err := json.Unmarshal(data, &decoded); err != nil {
			t.Fatalf("output is not valid JSON: %v", err)
		}
		if decoded.Artist != "trinix" || decoded.Name != "TRINIX Picks" || len(decoded.Tracks) != 2 {
			t.Errorf("unexpected decoded export %+v", decoded)
		}
		if !strings.Contains(string(data), `"platform": "instagram"`) {
			t.Errorf("expected lower-case social keys, got %s", data)
		}
	})
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in   string
		want Format
	}{
		{"", Text},
		{"txt", Text},
		{"md", Markdown},
		{"Markdown", Markdown},
		{"csv", CSV},
		{" json ", JSON},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseFormat(tt.in)
			if err != nil || got != tt.want {
				t.Errorf("ParseFormat(%q) = %q, %v; want %q", tt.in, got, err, tt.want)
			}
		})
	}

	t.Run("unknown", func(t *testing.T) {
		if _, err := ParseFormat("yaml"); !errors.Is(err, shared.ErrInvalidArgument) {
			t.Errorf("expected ErrInvalidArgument, got %v", err)
		}
	})
}

func TestDownloadImage(t *testing.T) {
	t.Run("EmptyURL", func(t *testing.T) {
		if _, err := DownloadImage(""); err == nil {
			t.Error("DownloadImage with empty URL should return error")
		}
	})

	t.Run("NonOK", func(t *testing.T) {
		srv := httptest.NewServer(http.NotFoundHandler())
		defer srv.Close()
		if _, err := DownloadImage(srv.URL); err == nil {
			t.Error("expected error for 404")
		}
	})
}

func TestWriters(t *testing.T) {
	t.Run("WriteExport", func(t *testing.T) {
		t.Run("WithDefaultPath", func(t *testing.T) {
			th.MustChdir(t, t.TempDir())

			path, err := WriteExport(sampleExport(), CSV, "")
			if err != nil {
				t.Fatalf("WriteExport failed: %v", err)
			}
			if path != "trinix.csv" {
				t.Errorf("expected trinix.csv, got %s", path)
			}
			th.AssertFileExists(t, path)
		})

		t.Run("WithCustomPath", func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "out.md")

			got, err := WriteExport(sampleExport(), Markdown, path)
			if err != nil {
				t.Fatalf("WriteExport failed: %v", err)
			}
			if got != path {
				t.Errorf("expected %s, got %s", path, got)
			}
			if content := th.MustReadFile(t, path); !strings.Contains(content, "# TRINIX Picks") {
				t.Errorf("unexpected content %s", content)
			}
		})
	})

	t.Run("WriteMarkdownExport", func(t *testing.T) {
		t.Run("WithCoverImage", func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte("jpeg"))
			}))
			defer srv.Close()

			e := sampleExport()
			e.ImageURL = srv.URL + "/cover.jpg"
			dir := filepath.Join(t.TempDir(), "export")

			result, err := WriteMarkdownExport(e, dir, &th.FWriter{})
			if err != nil {
				t.Fatalf("WriteMarkdownExport failed: %v", err)
			}
			if result.CoverImage != filepath.Join(dir, "cover.jpg") || len(result.Files) != 2 {
				t.Errorf("unexpected result %+v", result)
			}
			if content := th.MustReadFile(t, filepath.Join(dir, "README.md")); !strings.Contains(content, "![Cover](cover.jpg)") {
				t.Errorf("README missing cover reference: %s", content)
			}
		})

		t.Run("WithDefaultDirectory", func(t *testing.T) {
			th.MustChdir(t, t.TempDir())

			result, err := WriteMarkdownExport(sampleExport(), "", nil)
			if err != nil {
				t.Fatalf("WriteMarkdownExport failed: %v", err)
			}
			if result.Directory != "trinix" {
				t.Errorf("expected trinix directory, got %s", result.Directory)
			}
			if _, err := os.Stat(filepath.Join("trinix", "README.md")); err != nil {
				t.Errorf("README.md not written: %v", err)
			}
		})
	})
}
