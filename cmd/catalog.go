package main

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/desertthunder/mixlink/internal/catalog"
	"github.com/desertthunder/mixlink/internal/formatter"
	"github.com/desertthunder/mixlink/internal/services"
	"github.com/desertthunder/mixlink/internal/shared"
)

func (r *Runner) loadCatalog() (*catalog.Catalog, error) {
	if r.config.Catalog.Path == "" {
		return nil, fmt.Errorf("%w: catalog.path is required", shared.ErrInvalidConfig)
	}
	return catalog.Load(r.config.Catalog.Path)
}

func (r *Runner) lookupTemplate(c *catalog.Catalog, artist string) (catalog.Template, error) {
	if artist == "" {
		return catalog.Template{}, fmt.Errorf("%w: artist", shared.ErrMissingArgument)
	}
	tpl, ok := c.Lookup(artist)
	if !ok {
		return catalog.Template{}, fmt.Errorf("%w: %s", shared.ErrUnknownArtist, artist)
	}
	return tpl, nil
}

// CatalogList prints every artist in the catalog with its landing URL.
func (r *Runner) CatalogList(ctx context.Context, cmd *cli.Command) error {
	c, err := r.loadCatalog()
	if err != nil {
		return err
	}

	type entry struct {
		Artist string `json:"artist"`
		Name   string `json:"name"`
		Tracks int    `json:"tracks"`
		URL    string `json:"url"`
	}

	base := r.config.Server.BaseURL()
	entries := make([]entry, 0, c.Len())
	for _, artist := range c.Artists() {
		tpl, _ := c.Lookup(artist)
		entries = append(entries, entry{Artist: artist, Name: tpl.Name, Tracks: len(tpl.TrackURIs()), URL: base + "/" + artist})
	}

	if cmd.Bool("json") {
		return r.writeJSON(entries, true)
	}

	r.writePlainHeader(fmt.Sprintf("Catalog: %d artists", len(entries)))
	for _, e := range entries {
		r.writePlain("%-20s %-32s %3d tracks  %s\n", e.Artist, e.Name, e.Tracks, e.URL)
	}
	return nil
}

// CatalogShow prints one artist's template in the requested format.
func (r *Runner) CatalogShow(ctx context.Context, cmd *cli.Command) error {
	format, err := formatter.ParseFormat(cmd.String("format"))
	if err != nil {
		return err
	}

	c, err := r.loadCatalog()
	if err != nil {
		return err
	}
	artist := cmd.StringArg("artist")
	tpl, err := r.lookupTemplate(c, artist)
	if err != nil {
		return err
	}

	export := formatter.NewExport(artist, tpl)
	if cmd.Bool("verify") {
		verifier, err := r.trackVerifier(ctx)
		if err != nil {
			return err
		}
		statuses, err := verify(ctx, verifier, tpl)
		if err != nil {
			return err
		}
		export.WithStatuses(statuses)
	}

	if output := cmd.String("output"); output != "" {
		if format == formatter.Markdown {
			result, err := formatter.WriteMarkdownExport(export, output, r.output)
			if err != nil {
				return err
			}
			for _, f := range result.Files {
				r.writePlain("✓ Wrote %s\n", f)
			}
			return nil
		}
		path, err := formatter.WriteExport(export, format, output)
		if err != nil {
			return err
		}
		return r.writePlain("✓ Wrote %s\n", path)
	}

	data, err := formatter.Render(export, format)
	if err != nil {
		return err
	}
	_, err = r.output.Write(data)
	return err
}

// CatalogVerify resolves every track of one artist, or of the whole catalog, against Spotify.
//
// It fails when any reference is missing so it can gate catalog changes.
func (r *Runner) CatalogVerify(ctx context.Context, cmd *cli.Command) error {
	c, err := r.loadCatalog()
	if err != nil {
		return err
	}

	artists := c.Artists()
	if artist := cmd.StringArg("artist"); artist != "" {
		if _, err := r.lookupTemplate(c, artist); err != nil {
			return err
		}
		artists = []string{artist}
	}

	verifier, err := r.trackVerifier(ctx)
	if err != nil {
		return err
	}

	missing := 0
	for _, artist := range artists {
		tpl, _ := c.Lookup(artist)
		statuses, err := verify(ctx, verifier, tpl)
		if err != nil {
			return err
		}

		found := 0
		for _, s := range statuses {
			if s.Found {
				found++
				continue
			}
			missing++
			r.writePlain("  ✗ %s/%s: %v\n", artist, s.ID, s.Err)
		}
		r.writePlain("%s: %d/%d tracks found\n", artist, found, len(statuses))
	}

	if missing > 0 {
		return fmt.Errorf("%w: %d track references do not resolve", shared.ErrTrackNotFound, missing)
	}
	return nil
}

func verify(ctx context.Context, verifier *services.TrackVerifier, tpl catalog.Template) ([]services.TrackStatus, error) {
	uris := tpl.TrackURIs()
	ids := make([]string, len(uris))
	for i, uri := range uris {
		ids[i] = catalog.TrackID(uri)
	}
	return verifier.Verify(ctx, ids)
}
