package testing

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/goccy/go-json"

	"github.com/desertthunder/mixlink/internal/services"
	"github.com/desertthunder/mixlink/internal/shared"
)

// Endpoint keys counted by [FakeSpotify].
const (
	TokenExchange  = "exchange"
	TokenRefresh   = "refresh"
	CurrentUser    = "me"
	CreatePlaylist = "create_playlist"
	AddTracks      = "add_tracks"
)

// FakeSpotify is an httptest server standing in for the Spotify accounts service and Web API.
//
// Configure the exported fields before the first request.
type FakeSpotify struct {
	*httptest.Server

	IssuedAccessToken    string
	IssuedRefreshToken   string
	RefreshedAccessToken string
	ReissueRefreshToken  string
	UserID               string
	PlaylistID           string
	PlaylistURL          string

	FailExchange bool
	FailRefresh  bool
	FailCreate   bool
	FailTracks   bool

	mu             sync.Mutex
	calls          map[string]int
	acceptedTokens map[string]bool
	trackURIs      []string
	lastForm       map[string]string
}

// NewFakeSpotify starts a fake with a successful default scenario; it is closed on cleanup.
func NewFakeSpotify(t *testing.T) *FakeSpotify {
	t.Helper()

	f := &FakeSpotify{
		IssuedAccessToken:    "A1",
		IssuedRefreshToken:   "R1",
		RefreshedAccessToken: "A2",
		UserID:               "u1",
		PlaylistID:           "p1",
		calls:                map[string]int{},
		acceptedTokens:       map[string]bool{},
	}
	f.Server = httptest.NewServer(http.HandlerFunc(f.serve))
	t.Cleanup(f.Close)
	return f
}

// Service returns a [services.SpotifyService] wired to the fake.
func (f *FakeSpotify) Service(t *testing.T) *services.SpotifyService {
	t.Helper()
	s, err := services.NewSpotifyService(
		shared.SpotifyConfig{ClientID: "test-client", RedirectURI: "http://127.0.0.1:3000/callback"},
		services.WithEndpoints(f.URL+"/authorize", f.URL+"/api/token"),
		services.WithBaseURL(f.URL+"/v1"),
		services.WithHTTPClient(f.Client()),
	)
	if err != nil {
		t.Fatalf("failed to create spotify service: %v", err)
	}
	return s
}

// Accept marks token as valid for Web API calls. Issued and refreshed tokens are accepted automatically.
func (f *FakeSpotify) Accept(token string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.acceptedTokens[token] = true
}

// Revoke makes token fail Web API calls with 401.
func (f *FakeSpotify) Revoke(token string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.acceptedTokens[token] = false
}

// Calls returns how many requests hit endpoint.
func (f *FakeSpotify) Calls(endpoint string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[endpoint]
}

// TotalCalls returns the number of requests served.
func (f *FakeSpotify) TotalCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	total := 0
	for _, n := range f.calls {
		total += n
	}
	return total
}

// TrackURIs returns the URIs sent by the last add-tracks request.
func (f *FakeSpotify) TrackURIs() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.trackURIs...)
}

// LastTokenForm returns the form fields of the last token request.
func (f *FakeSpotify) LastTokenForm() map[string]string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lastForm
}

func (f *FakeSpotify) serve(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	switch {
	case r.Method == http.MethodPost && r.URL.Path == "/api/token":
		f.serveToken(w, r)
	case r.Method == http.MethodGet && r.URL.Path == "/v1/me":
		f.calls[CurrentUser]++
		if !f.authorized(r) {
			writeJSON(w, http.StatusUnauthorized, `{"error":{"status":401,"message":"The access token expired"}}`)
			return
		}
		writeJSON(w, http.StatusOK, `{"id":"`+f.UserID+`","display_name":"Listener"}`)
	case r.Method == http.MethodPost && r.URL.Path == "/v1/users/"+f.UserID+"/playlists":
		f.calls[CreatePlaylist]++
		if f.FailCreate || !f.authorized(r) {
			writeJSON(w, http.StatusForbidden, `{"error":{"status":403,"message":"Forbidden"}}`)
			return
		}
		url := f.PlaylistURL
		if url == "" {
			url = "https://open.spotify.com/playlist/" + f.PlaylistID
		}
		writeJSON(w, http.StatusCreated, `{"id":"`+f.PlaylistID+`","external_urls":{"spotify":"`+url+`"}}`)
	case r.Method == http.MethodPost && strings.HasSuffix(r.URL.Path, "/tracks"):
		f.calls[AddTracks]++
		var body struct {
			URIs []string `json:"uris"`
		}
		data, _ := io.ReadAll(r.Body)
		json.Unmarshal(data, &body)
		f.trackURIs = body.URIs
		if f.FailTracks {
			writeJSON(w, http.StatusBadRequest, `{"error":{"status":400,"message":"Invalid track uri"}}`)
			return
		}
		writeJSON(w, http.StatusCreated, `{"snapshot_id":"snap"}`)
	default:
		http.NotFound(w, r)
	}
}

func (f *FakeSpotify) serveToken(w http.ResponseWriter, r *http.Request) {
	r.ParseForm()
	f.lastForm = map[string]string{}
	for key := range r.PostForm {
		f.lastForm[key] = r.PostForm.Get(key)
	}

	switch r.PostForm.Get("grant_type") {
	case "authorization_code":
		f.calls[TokenExchange]++
		if f.FailExchange {
			writeJSON(w, http.StatusBadRequest, `{"error":"invalid_grant","error_description":"Invalid authorization code"}`)
			return
		}
		f.acceptedTokens[f.IssuedAccessToken] = true
		writeJSON(w, http.StatusOK, `{"access_token":"`+f.IssuedAccessToken+`","refresh_token":"`+f.IssuedRefreshToken+`","token_type":"Bearer","expires_in":3600}`)
	case "refresh_token":
		f.calls[TokenRefresh]++
		if f.FailRefresh {
			writeJSON(w, http.StatusBadRequest, `{"error":"invalid_grant","error_description":"Refresh token revoked"}`)
			return
		}
		f.acceptedTokens[f.RefreshedAccessToken] = true
		body := `{"access_token":"` + f.RefreshedAccessToken + `","token_type":"Bearer","expires_in":3600`
		if f.ReissueRefreshToken != "" {
			body += `,"refresh_token":"` + f.ReissueRefreshToken + `"`
		}
		writeJSON(w, http.StatusOK, body+"}")
	default:
		writeJSON(w, http.StatusBadRequest, `{"error":"unsupported_grant_type"}`)
	}
}

func (f *FakeSpotify) authorized(r *http.Request) bool {
	token := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
	return f.acceptedTokens[token]
}

func writeJSON(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	io.WriteString(w, body)
}
