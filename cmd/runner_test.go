package main

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/goccy/go-json"

	"github.com/desertthunder/mixlink/internal/models"
	"github.com/desertthunder/mixlink/internal/repositories"
	"github.com/desertthunder/mixlink/internal/shared"
	tu "github.com/desertthunder/mixlink/internal/testing"
)

const catalogJSON = `{
  "trinix": {
    "playlistName": "TRINIX Picks",
    "playlistDescription": "Afro House favourites",
    "playlistTrackIds": ["abc", "spotify:track:def"],
    "socials": {"instagram": "https://instagram.com/trinix"}
  },
  "alta": {"playlistName": "Alta Mix", "playlistTrackIds": []}
}`

// fixture writes a config, catalog and database path into a temp dir.
type fixture struct {
	dir        string
	configPath string
	config     *shared.Config
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	dir := t.TempDir()

	config := shared.DefaultConfig()
	config.Credentials.Spotify.ClientID = "test-client"
	config.Credentials.Spotify.ClientSecret = "test-secret"
	config.Credentials.Spotify.RedirectURI = "http://127.0.0.1:3000/callback"
	config.Database.Path = filepath.Join(dir, "mixlink.db")
	config.Catalog.Path = filepath.Join(dir, "playlist_info.json")
	config.Catalog.Watch = false
	config.Log.Level = "error"

	configPath := filepath.Join(dir, "config.toml")
	if err := shared.SaveConfig(configPath, config); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
	tu.MustWriteFile(t, config.Catalog.Path, catalogJSON)

	return &fixture{dir: dir, configPath: configPath, config: config}
}

// run executes args against a fresh command tree and returns what the command printed.
func (f *fixture) run(t *testing.T, opts RunnerOpts, args ...string) (string, error) {
	t.Helper()
	output := &bytes.Buffer{}
	opts.Output = output
	runner := NewRunner(opts)

	argv := append([]string{"mixlink", "--config", f.configPath}, args...)
	err := rootCommand(runner).Run(context.Background(), argv)
	return output.String(), err
}

func (f *fixture) seed(t *testing.T, fn func(db *repositories.MaterializationRepository, creds *repositories.CredentialRepository)) {
	t.Helper()
	db, err := shared.OpenDatabase(f.config.Database)
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	defer db.Close()
	fn(repositories.NewMaterializationRepository(db), repositories.NewCredentialRepository(db))
}

func newVerifyServer(t *testing.T) *httptest.Server {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/api/token":
			w.Write([]byte(`{"access_token":"cc","token_type":"Bearer","expires_in":3600}`))
		case "/v1/tracks/abc":
			w.Write([]byte(`{"id":"abc","name":"Song One","artists":[{"id":"a1","name":"Artist One"}]}`))
		default:
			w.WriteHeader(http.StatusNotFound)
			w.Write([]byte(`{"error":{"status":404,"message":"Non existing id"}}`))
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestRunner(t *testing.T) {
	t.Run("NewRunner", func(t *testing.T) {
		t.Run("with all dependencies provided", func(t *testing.T) {
			config := shared.DefaultConfig()
			logger := shared.NewLogger(nil)
			output := &bytes.Buffer{}
			httpClient := &http.Client{}

			runner := NewRunner(RunnerOpts{
				Config:     config,
				ConfigPath: "/test/path/config.toml",
				Logger:     logger,
				Output:     output,
				HTTPClient: httpClient,
				Endpoints:  Endpoints{TokenURL: "http://token.example"},
			})

			if runner.config != config {
				t.Error("expected config to be set")
			}
			if runner.configPath != "/test/path/config.toml" {
				t.Errorf("expected configPath to be set, got %s", runner.configPath)
			}
			if runner.logger != logger {
				t.Error("expected logger to be set")
			}
			if runner.output != output {
				t.Error("expected output to be set")
			}
			if runner.httpClient != httpClient {
				t.Error("expected httpClient to be set")
			}
			if runner.endpoints.TokenURL != "http://token.example" {
				t.Error("expected endpoints to be set")
			}
		})

		t.Run("with nil dependencies uses defaults", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{})

			if runner.config == nil {
				t.Error("expected default config to be set")
			}
			if runner.logger == nil {
				t.Error("expected default logger to be set")
			}
			if runner.output != os.Stdout {
				t.Error("expected output to default to os.Stdout")
			}
			if runner.httpClient != http.DefaultClient {
				t.Error("expected httpClient to default to http.DefaultClient")
			}
		})
	})

	t.Run("writeJSON", func(t *testing.T) {
		t.Run("writes formatted JSON successfully", func(t *testing.T) {
			output := &bytes.Buffer{}
			runner := NewRunner(RunnerOpts{Output: output})

			if err := runner.writeJSON(map[string]string{"key": "value"}, true); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}

			result := output.String()
			if !strings.Contains(result, `"key": "value"`) {
				t.Errorf("expected formatted JSON, got %s", result)
			}
			if !strings.HasSuffix(result, "\n") {
				t.Error("expected output to end with newline")
			}
		})

		t.Run("writes compact JSON successfully", func(t *testing.T) {
			output := &bytes.Buffer{}
			runner := NewRunner(RunnerOpts{Output: output})

			if err := runner.writeJSON(map[string]string{"key": "value"}, false); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}

			expected := `{"key":"value"}` + "\n"
			if result := output.String(); result != expected {
				t.Errorf("expected %q, got %q", expected, result)
			}
		})

		t.Run("handles marshal error with non-serializable data", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Output: &bytes.Buffer{}})

			err := runner.writeJSON(make(chan int), false)
			if err == nil {
				t.Fatal("expected error for non-serializable data")
			}
			if !strings.Contains(err.Error(), "failed to marshal JSON") {
				t.Errorf("expected marshal error, got %v", err)
			}
		})

		t.Run("handles write failure", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Output: &tu.FWriter{}})

			err := runner.writeJSON(map[string]string{"key": "value"}, false)
			if err == nil || !strings.Contains(err.Error(), "failed to write output") {
				t.Errorf("expected write error, got %v", err)
			}
		})

		t.Run("handles newline write failure", func(t *testing.T) {
			limitedWriter := tu.NewLimitedWriter(1, 0, &bytes.Buffer{})
			runner := NewRunner(RunnerOpts{Output: &limitedWriter})

			err := runner.writeJSON(map[string]string{"key": "value"}, false)
			if err == nil || !strings.Contains(err.Error(), "failed to write newline") {
				t.Errorf("expected newline write error, got %v", err)
			}
		})
	})

	t.Run("writePlain", func(t *testing.T) {
		t.Run("writes plain text successfully", func(t *testing.T) {
			output := &bytes.Buffer{}
			runner := NewRunner(RunnerOpts{Output: output})

			if err := runner.writePlain("hello %s", "world"); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if result := output.String(); result != "hello world" {
				t.Errorf("expected 'hello world', got %q", result)
			}
		})

		t.Run("handles write failure", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Output: &tu.FWriter{}})

			err := runner.writePlain("test")
			if err == nil || !strings.Contains(err.Error(), "failed to write output") {
				t.Errorf("expected write error, got %v", err)
			}
		})
	})

	t.Run("register", func(t *testing.T) {
		commands := NewRunner(RunnerOpts{}).register()

		names := make([]string, 0, len(commands))
		for i, cmd := range commands {
			if cmd == nil {
				t.Fatalf("command at index %d is nil", i)
			}
			names = append(names, cmd.Name)
		}
		if got := strings.Join(names, ","); got != "serve,setup,catalog,history,sessions,tui" {
			t.Errorf("unexpected commands %s", got)
		}
	})
}

func TestSetup(t *testing.T) {
	t.Run("config", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "config.toml")
		output := &bytes.Buffer{}
		runner := NewRunner(RunnerOpts{Output: output})

		if err := rootCommand(runner).Run(context.Background(), []string{"mixlink", "--config", path, "setup", "config"}); err != nil {
			t.Fatalf("setup config failed: %v", err)
		}
		tu.AssertFileExists(t, path)
		if !strings.Contains(output.String(), path) {
			t.Errorf("expected output to mention %s, got %s", path, output.String())
		}

		if err := rootCommand(runner).Run(context.Background(), []string{"mixlink", "--config", path, "setup", "config"}); err == nil {
			t.Error("expected error when config already exists")
		}
	})

	t.Run("database", func(t *testing.T) {
		f := newFixture(t)

		if _, err := f.run(t, RunnerOpts{}, "setup", "database"); err != nil {
			t.Fatalf("setup database failed: %v", err)
		}
		tu.AssertFileExists(t, f.config.Database.Path)
	})
}

func TestCatalogCommands(t *testing.T) {
	t.Run("list", func(t *testing.T) {
		f := newFixture(t)

		out, err := f.run(t, RunnerOpts{}, "catalog", "list", "--json")
		if err != nil {
			t.Fatalf("catalog list failed: %v", err)
		}

		var entries []struct {
			Artist string `json:"artist"`
			Tracks int    `json:"tracks"`
			URL    string `json:"url"`
		}
		if err := json.Unmarshal([]byte(out), &entries); err != nil {
			t.Fatalf("invalid JSON output: %v\n%s", err, out)
		}
		if len(entries) != 2 || entries[0].Artist != "alta" || entries[1].Artist != "trinix" {
			t.Fatalf("unexpected entries %+v", entries)
		}
		if entries[1].Tracks != 2 || entries[1].URL != "http://127.0.0.1:3000/trinix" {
			t.Errorf("unexpected trinix entry %+v", entries[1])
		}
	})

	t.Run("show", func(t *testing.T) {
		f := newFixture(t)

		out, err := f.run(t, RunnerOpts{}, "catalog", "show", "--format", "markdown", "trinix")
		if err != nil {
			t.Fatalf("catalog show failed: %v", err)
		}
		if !strings.Contains(out, "# TRINIX Picks") || !strings.Contains(out, "1. spotify:track:abc") {
			t.Errorf("unexpected markdown output %s", out)
		}
	})

	t.Run("show writes file", func(t *testing.T) {
		f := newFixture(t)
		path := filepath.Join(f.dir, "trinix.csv")

		if _, err := f.run(t, RunnerOpts{}, "catalog", "show", "--format", "csv", "--output", path, "trinix"); err != nil {
			t.Fatalf("catalog show failed: %v", err)
		}
		if content := tu.MustReadFile(t, path); !strings.HasPrefix(content, "Position,ID,URI") {
			t.Errorf("unexpected csv %s", content)
		}
	})

	t.Run("show unknown artist", func(t *testing.T) {
		f := newFixture(t)

		_, err := f.run(t, RunnerOpts{}, "catalog", "show", "nobody")
		if !errors.Is(err, shared.ErrUnknownArtist) {
			t.Errorf("expected ErrUnknownArtist, got %v", err)
		}
	})

	t.Run("verify reports missing tracks", func(t *testing.T) {
		f := newFixture(t)
		srv := newVerifyServer(t)
		opts := RunnerOpts{Endpoints: Endpoints{TokenURL: srv.URL + "/api/token", APIBaseURL: srv.URL + "/v1"}}

		out, err := f.run(t, opts, "catalog", "verify", "trinix")
		if !errors.Is(err, shared.ErrTrackNotFound) {
			t.Fatalf("expected ErrTrackNotFound, got %v", err)
		}
		if !strings.Contains(out, "trinix: 1/2 tracks found") || !strings.Contains(out, "trinix/def") {
			t.Errorf("unexpected verify output %s", out)
		}
	})

	t.Run("show with verification", func(t *testing.T) {
		f := newFixture(t)
		srv := newVerifyServer(t)
		opts := RunnerOpts{Endpoints: Endpoints{TokenURL: srv.URL + "/api/token", APIBaseURL: srv.URL + "/v1"}}

		out, err := f.run(t, opts, "catalog", "show", "--verify", "trinix")
		if err != nil {
			t.Fatalf("catalog show failed: %v", err)
		}
		if !strings.Contains(out, "Artist One - Song One") || !strings.Contains(out, "spotify:track:def [missing]") {
			t.Errorf("unexpected output %s", out)
		}
	})
}

func TestHistoryAndSessions(t *testing.T) {
	ctx := context.Background()

	t.Run("history", func(t *testing.T) {
		f := newFixture(t)
		f.seed(t, func(history *repositories.MaterializationRepository, _ *repositories.CredentialRepository) {
			for _, artist := range []string{"trinix", "alta"} {
				if err := history.Record(ctx, &models.Materialization{Artist: artist, PlaylistID: "p-" + artist, TrackCount: 2, TracksAdded: true}); err != nil {
					t.Fatalf("seed failed: %v", err)
				}
			}
		})

		out, err := f.run(t, RunnerOpts{}, "history", "--artist", "trinix", "--json")
		if err != nil {
			t.Fatalf("history failed: %v", err)
		}
		var records []models.Materialization
		if err := json.Unmarshal([]byte(out), &records); err != nil {
			t.Fatalf("invalid JSON output: %v\n%s", err, out)
		}
		if len(records) != 1 || records[0].PlaylistID != "p-trinix" {
			t.Errorf("unexpected records %+v", records)
		}
	})

	t.Run("sessions", func(t *testing.T) {
		f := newFixture(t)
		f.seed(t, func(_ *repositories.MaterializationRepository, creds *repositories.CredentialRepository) {
			if err := creds.SaveTokens(ctx, "s1", models.TokenRecord{AccessToken: "A1"}); err != nil {
				t.Fatalf("seed failed: %v", err)
			}
		})

		out, err := f.run(t, RunnerOpts{}, "sessions", "count")
		if err != nil || strings.TrimSpace(out) != "1 sessions" {
			t.Fatalf("unexpected count output %q, err %v", out, err)
		}

		out, err = f.run(t, RunnerOpts{}, "sessions", "prune", "--older-than", "1h")
		if err != nil || !strings.Contains(out, "Removed 0 sessions") {
			t.Errorf("expected fresh session kept, got %q, err %v", out, err)
		}

		if _, err := f.run(t, RunnerOpts{}, "sessions", "prune", "--older-than=0s"); !errors.Is(err, shared.ErrInvalidArgument) {
			t.Errorf("expected ErrInvalidArgument, got %v", err)
		}
	})
}

func TestNewApplication(t *testing.T) {
	f := newFixture(t)
	fake := tu.NewFakeSpotify(t)

	runner := NewRunner(RunnerOpts{
		Config:     f.config,
		HTTPClient: fake.Client(),
		Endpoints: Endpoints{
			AuthURL:    fake.URL + "/authorize",
			TokenURL:   fake.URL + "/api/token",
			APIBaseURL: fake.URL + "/v1",
		},
		Output: &bytes.Buffer{},
	})

	app, err := runner.newApplication()
	if err != nil {
		t.Fatalf("newApplication failed: %v", err)
	}
	defer app.Close()

	rec := httptest.NewRecorder()
	app.server.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("expected healthz 200, got %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	app.server.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/trinix/playlist", nil))
	if rec.Code != http.StatusFound || !strings.HasPrefix(rec.Header().Get("Location"), fake.URL+"/authorize?") {
		t.Errorf("expected redirect to authorize, got %d %q", rec.Code, rec.Header().Get("Location"))
	}
	if app.transactions.Len() != 1 {
		t.Errorf("expected one pending transaction, got %d", app.transactions.Len())
	}

	t.Run("invalid config", func(t *testing.T) {
		conf := *f.config
		conf.Credentials.Spotify.ClientID = ""
		runner := NewRunner(RunnerOpts{Config: &conf})
		if _, err := runner.newApplication(); !errors.Is(err, shared.ErrMissingCredentials) {
			t.Errorf("expected ErrMissingCredentials, got %v", err)
		}
	})
}
