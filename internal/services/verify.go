package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/zmb3/spotify/v2"
	"golang.org/x/oauth2/clientcredentials"

	"github.com/desertthunder/mixlink/internal/shared"
)

// TrackStatus is the verification result for one catalog track reference.
type TrackStatus struct {
	Ref    string
	ID     string
	Name   string
	Artist string
	Found  bool
	Err    error
}

// TrackVerifier resolves catalog track references against the Spotify catalog.
type TrackVerifier struct {
	client *spotify.Client
}

// NewTrackVerifier builds a verifier authenticated with the client-credentials grant.
//
// tokenURL and apiBaseURL may be empty to use Spotify's endpoints.
func NewTrackVerifier(ctx context.Context, conf shared.SpotifyConfig, tokenURL, apiBaseURL string) (*TrackVerifier, error) {
	if conf.ClientID == "" || conf.ClientSecret == "" {
		return nil, fmt.Errorf("%w: catalog verification needs client_id and client_secret", shared.ErrMissingCredentials)
	}
	if tokenURL == "" {
		tokenURL = spotifyTokenURL
	}

	cc := &clientcredentials.Config{
		ClientID:     conf.ClientID,
		ClientSecret: conf.ClientSecret,
		TokenURL:     tokenURL,
	}

	var opts []spotify.ClientOption
	if apiBaseURL != "" {
		opts = append(opts, spotify.WithBaseURL(strings.TrimSuffix(apiBaseURL, "/")+"/"))
	}
	return &TrackVerifier{client: spotify.New(cc.Client(ctx), opts...)}, nil
}

// Verify looks up each track id. A missing track is reported with Found=false rather than as an error;
// any other failure stops verification.
func (v *TrackVerifier) Verify(ctx context.Context, ids []string) ([]TrackStatus, error) {
	results := make([]TrackStatus, 0, len(ids))
	for _, id := range ids {
		status := TrackStatus{Ref: id, ID: id}

		track, err := v.client.GetTrack(ctx, spotify.ID(id))
		switch {
		case err == nil:
			status.Found = true
			status.Name = track.Name
			if len(track.Artists) > 0 {
				status.Artist = track.Artists[0].Name
			}
		case isMissingTrack(err):
			status.Err = fmt.Errorf("%w: %s", shared.ErrTrackNotFound, id)
		default:
			return results, fmt.Errorf("failed to verify track %s: %w", id, err)
		}
		results = append(results, status)
	}
	return results, nil
}

func isMissingTrack(err error) bool {
	var spErr spotify.Error
	if !errors.As(err, &spErr) {
		return false
	}
	return spErr.Status == http.StatusNotFound || spErr.Status == http.StatusBadRequest
}
