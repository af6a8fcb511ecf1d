package main

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/charmbracelet/log"
	"github.com/goccy/go-json"
	"github.com/urfave/cli/v3"
	"golang.org/x/oauth2"

	"github.com/desertthunder/mixlink/internal/services"
	"github.com/desertthunder/mixlink/internal/shared"
)

// Endpoints overrides the Spotify hosts, for tests and local fakes.
type Endpoints struct {
	AuthURL    string
	TokenURL   string
	APIBaseURL string
}

// Runner holds all dependencies for CLI commands and provides methods for each command action.
type Runner struct {
	config     *shared.Config
	configPath string
	httpClient *http.Client
	endpoints  Endpoints
	logger     *log.Logger
	output     io.Writer
}

// RunnerOpts contains configuration options for creating a Runner.
type RunnerOpts struct {
	Config     *shared.Config
	ConfigPath string
	HTTPClient *http.Client
	Endpoints  Endpoints
	Logger     *log.Logger
	Output     io.Writer
}

// NewRunner creates a new Runner with the provided configuration
func NewRunner(opts RunnerOpts) *Runner {
	if opts.Config == nil {
		opts.Config = shared.DefaultConfig()
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.Output == nil {
		opts.Output = os.Stdout
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = http.DefaultClient
	}

	return &Runner{
		config:     opts.Config,
		configPath: opts.ConfigPath,
		httpClient: opts.HTTPClient,
		endpoints:  opts.Endpoints,
		logger:     opts.Logger,
		output:     opts.Output,
	}
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		serveCommand, setupCommand, catalogCommand, historyCommand, sessionsCommand, tuiCommand,
	} {
		commands = append(commands, fn(r))
	}

	return commands
}

// SetLogger replaces the logger used by subsequent commands.
func (r *Runner) SetLogger(l *log.Logger) {
	r.logger = l
}

// LoadConfig resolves the configuration named by --config before any command runs.
func (r *Runner) LoadConfig(ctx context.Context, cmd *cli.Command) (context.Context, error) {
	path := cmd.String("config")

	config, err := shared.ResolveConfig(path)
	if err != nil {
		return ctx, err
	}

	logger, err := shared.LoggerFromConfig(config.Log)
	if err != nil {
		return ctx, err
	}
	if cmd.Bool("verbose") {
		shared.SetLogLevel(logger, log.DebugLevel)
	}

	r.config = config
	r.configPath = path
	r.logger = logger
	return ctx, nil
}

func (r *Runner) openDatabase() (*sql.DB, error) {
	db, err := shared.OpenDatabase(r.config.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to open database %s: %w", r.config.Database.Path, err)
	}
	return db, nil
}

func (r *Runner) spotifyService() (*services.SpotifyService, error) {
	opts := []services.Option{services.WithHTTPClient(r.httpClient)}
	if r.endpoints.AuthURL != "" || r.endpoints.TokenURL != "" {
		opts = append(opts, services.WithEndpoints(r.endpoints.AuthURL, r.endpoints.TokenURL))
	}
	if r.endpoints.APIBaseURL != "" {
		opts = append(opts, services.WithBaseURL(r.endpoints.APIBaseURL))
	}
	return services.NewSpotifyService(r.config.Credentials.Spotify, opts...)
}

func (r *Runner) trackVerifier(ctx context.Context) (*services.TrackVerifier, error) {
	ctx = context.WithValue(ctx, oauth2.HTTPClient, r.httpClient)
	return services.NewTrackVerifier(ctx, r.config.Credentials.Spotify, r.endpoints.TokenURL, r.endpoints.APIBaseURL)
}

func (r *Runner) writeJSON(data any, pretty bool) error {
	var output []byte
	var err error

	if pretty {
		output, err = json.MarshalIndent(data, "", "  ")
	} else {
		output, err = json.Marshal(data)
	}

	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}

	if _, err := r.output.Write(output); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}

	if _, err := r.output.Write([]byte("\n")); err != nil {
		return fmt.Errorf("failed to write newline: %w", err)
	}

	return nil
}

func (r *Runner) writePlain(format string, args ...any) error {
	text := fmt.Sprintf(format, args...)
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlainln(format string, args ...any) error {
	text := "\n" + fmt.Sprintf(format, args...) + "\n"
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlainHeader(title string) {
	r.writePlain("═══════════════════════════════════════\n")
	r.writePlain("%v\n", title)
	r.writePlain("═══════════════════════════════════════\n")
}
