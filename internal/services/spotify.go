// Spotify API implementation
//
// Spotify API response types based on https://developer.spotify.com/documentation/web-api/reference/
package services

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/goccy/go-json"
	"golang.org/x/oauth2"

	"github.com/desertthunder/mixlink/internal/pkce"
	"github.com/desertthunder/mixlink/internal/shared"
)

const (
	spotifyAuthURL  = "https://accounts.spotify.com/authorize"
	spotifyTokenURL = "https://accounts.spotify.com/api/token"
	spotifyBaseURL  = "https://api.spotify.com/v1"
)

// Scopes requested on every authorization.
var Scopes = []string{
	"playlist-modify-public",
	"playlist-modify-private",
	"user-read-private",
	"user-read-email",
}

// SpotifyUser represents a Spotify user profile.
type SpotifyUser struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
	Email       string `json:"email"`
	Country     string `json:"country"`
	Product     string `json:"product"`
}

type externalURLs struct {
	Spotify string `json:"spotify"`
}

// SpotifyPlaylist represents a Spotify playlist.
type SpotifyPlaylist struct {
	ID           string       `json:"id"`
	Name         string       `json:"name"`
	Description  string       `json:"description"`
	Public       bool         `json:"public"`
	URI          string       `json:"uri"`
	ExternalURLs externalURLs `json:"external_urls"`
}

// URL returns the playlist's open.spotify.com link.
func (p *SpotifyPlaylist) URL() string {
	return p.ExternalURLs.Spotify
}

type createPlaylistRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Public      bool   `json:"public"`
}

type addTracksRequest struct {
	URIs []string `json:"uris"`
}

type snapshotResponse struct {
	SnapshotID string `json:"snapshot_id"`
}

// SpotifyService talks to the Spotify accounts service and Web API.
type SpotifyService struct {
	config     *oauth2.Config
	baseURL    string
	httpClient *http.Client
}

// Option customizes a [SpotifyService].
type Option func(*SpotifyService)

// WithEndpoints overrides the authorize and token URLs.
func WithEndpoints(authURL, tokenURL string) Option {
	return func(s *SpotifyService) {
		s.config.Endpoint.AuthURL = authURL
		s.config.Endpoint.TokenURL = tokenURL
	}
}

// WithBaseURL overrides the Web API base URL.
func WithBaseURL(baseURL string) Option {
	return func(s *SpotifyService) { s.baseURL = strings.TrimSuffix(baseURL, "/") }
}

// WithHTTPClient sets the client used for token and API requests.
func WithHTTPClient(c *http.Client) Option {
	return func(s *SpotifyService) { s.httpClient = c }
}

// NewSpotifyService creates a public (PKCE) Spotify client for conf.
func NewSpotifyService(conf shared.SpotifyConfig, opts ...Option) (*SpotifyService, error) {
	if conf.ClientID == "" {
		return nil, fmt.Errorf("%w: missing client_id", shared.ErrMissingCredentials)
	}
	if conf.RedirectURI == "" {
		return nil, fmt.Errorf("%w: missing redirect_uri", shared.ErrInvalidConfig)
	}

	s := &SpotifyService{
		config: &oauth2.Config{
			ClientID:    conf.ClientID,
			RedirectURL: conf.RedirectURI,
			Scopes:      Scopes,
			Endpoint: oauth2.Endpoint{
				AuthURL:   spotifyAuthURL,
				TokenURL:  spotifyTokenURL,
				AuthStyle: oauth2.AuthStyleInParams,
			},
		},
		baseURL:    spotifyBaseURL,
		httpClient: http.DefaultClient,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

func (s *SpotifyService) Name() string {
	return "Spotify"
}

// AuthCodeURL returns the authorize URL for an S256 PKCE request carrying state.
func (s *SpotifyService) AuthCodeURL(state, challenge string) string {
	return s.config.AuthCodeURL(state,
		oauth2.SetAuthURLParam("code_challenge_method", pkce.Method),
		oauth2.SetAuthURLParam("code_challenge", challenge),
		oauth2.SetAuthURLParam("show_dialog", "true"),
	)
}

// Exchange trades an authorization code and its PKCE verifier for tokens.
func (s *SpotifyService) Exchange(ctx context.Context, code, verifier string) (*oauth2.Token, error) {
	token, err := s.config.Exchange(s.clientContext(ctx), code, oauth2.VerifierOption(verifier))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", shared.ErrTokenExchange, err)
	}
	return token, nil
}

// Refresh obtains a new access token from refreshToken.
//
// When the provider does not reissue a refresh token the returned token carries the old one.
func (s *SpotifyService) Refresh(ctx context.Context, refreshToken string) (*oauth2.Token, error) {
	if refreshToken == "" {
		return nil, shared.ErrNoRefreshToken
	}

	token, err := s.config.TokenSource(s.clientContext(ctx), &oauth2.Token{RefreshToken: refreshToken}).Token()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", shared.ErrRefreshFailed, err)
	}
	return token, nil
}

// clientContext routes oauth2's token requests through s.httpClient.
func (s *SpotifyService) clientContext(ctx context.Context) context.Context {
	return context.WithValue(ctx, oauth2.HTTPClient, s.httpClient)
}

// doRequest performs an authenticated HTTP request to the Spotify API.
func (s *SpotifyService) doRequest(ctx context.Context, accessToken, method, endpoint string, body, result any) error {
	if accessToken == "" {
		return fmt.Errorf("%w: missing access token", shared.ErrAPIRequest)
	}

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, s.baseURL+endpoint, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %w", shared.ErrAPIRequest, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
		return &APIError{StatusCode: resp.StatusCode, Body: data}
	}

	if result != nil {
		if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}

	return nil
}

// CurrentUser retrieves the profile of the listener owning accessToken.
func (s *SpotifyService) CurrentUser(ctx context.Context, accessToken string) (*SpotifyUser, error) {
	var user SpotifyUser
	if err := s.doRequest(ctx, accessToken, http.MethodGet, "/me", nil, &user); err != nil {
		return nil, err
	}
	if user.ID == "" {
		return nil, fmt.Errorf("%w: profile has no id", shared.ErrAPIRequest)
	}
	return &user, nil
}

// CreatePlaylist creates a playlist owned by userID.
func (s *SpotifyService) CreatePlaylist(ctx context.Context, accessToken, userID, name, description string, public bool) (*SpotifyPlaylist, error) {
	endpoint := fmt.Sprintf("/users/%s/playlists", url.PathEscape(userID))
	req := createPlaylistRequest{Name: name, Description: description, Public: public}

	var playlist SpotifyPlaylist
	if err := s.doRequest(ctx, accessToken, http.MethodPost, endpoint, req, &playlist); err != nil {
		return nil, err
	}
	return &playlist, nil
}

// AddTracks appends uris to a playlist in order with a single request and returns the new snapshot id.
func (s *SpotifyService) AddTracks(ctx context.Context, accessToken, playlistID string, uris []string) (string, error) {
	if len(uris) == 0 {
		return "", fmt.Errorf("%w: no tracks to add", shared.ErrInvalidInput)
	}

	endpoint := fmt.Sprintf("/playlists/%s/tracks", url.PathEscape(playlistID))

	var resp snapshotResponse
	if err := s.doRequest(ctx, accessToken, http.MethodPost, endpoint, addTracksRequest{URIs: uris}, &resp); err != nil {
		return "", err
	}
	return resp.SnapshotID, nil
}
