package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/encore/internal/draft"
	"github.com/desertthunder/encore/internal/models"
	"github.com/desertthunder/encore/internal/repositories"
	"github.com/desertthunder/encore/internal/services"
	"github.com/desertthunder/encore/internal/shared"
	"github.com/desertthunder/encore/internal/tasks"
	"github.com/urfave/cli/v3"
)

// Runner holds all dependencies for CLI commands and provides methods for each command action.
//
// The draft database, backend client and session are opened on first use so that commands which need
// none of them (setup, draft editing) work without a configured backend.
type Runner struct {
	config     *shared.Config
	configPath string
	httpClient *http.Client
	logger     *log.Logger
	output     io.Writer
	db         *sql.DB
	client     *services.Client
	session    *services.Session
	backend    tasks.Backend
	catalog    *services.Catalog
}

// RunnerOpts contains configuration options for creating a Runner.
type RunnerOpts struct {
	Config     *shared.Config
	ConfigPath string
	HTTPClient *http.Client
	Logger     *log.Logger
	Output     io.Writer
	// DB replaces the configured draft database.
	DB *sql.DB
	// Backend replaces the remote catalog used by upload and album commands.
	Backend tasks.Backend
	// Session replaces the session loaded from disk.
	Session *services.Session
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
		logger:     opts.Logger,
		output:     opts.Output,
		db:         opts.DB,
		backend:    opts.Backend,
		session:    opts.Session,
	}
}

// SetLogger replaces the logger, e.g. to keep log lines out of the TUI.
func (r *Runner) SetLogger(l *log.Logger) { r.logger = l }

// Close releases the draft database if the runner opened it.
func (r *Runner) Close() error {
	if r.db == nil {
		return nil
	}
	err := r.db.Close()
	r.db = nil
	return err
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		setupCommand, authCommand, draftCommand, payoutCommand, tagsCommand, uploadCommand, uploadsCommand,
		albumCommand, fnCommand, listenCommand, apiCommand, tuiCommand,
	} {
		commands = append(commands, fn(r))
	}

	return commands
}

// store opens the draft database; [shared.OpenStore] applies pending migrations.
func (r *Runner) store() (*sql.DB, error) {
	if r.db != nil {
		return r.db, nil
	}
	db, err := shared.OpenStore(r.config.Database)
	if err != nil {
		return nil, err
	}
	r.db = db
	return db, nil
}

func (r *Runner) drafts() (*repositories.DraftRepository, error) {
	db, err := r.store()
	if err != nil {
		return nil, err
	}
	return repositories.NewDraftRepository(db), nil
}

func (r *Runner) uploads() (*repositories.UploadRepository, error) {
	db, err := r.store()
	if err != nil {
		return nil, err
	}
	return repositories.NewUploadRepository(db), nil
}

// backendClient returns the anonymous backend client.
func (r *Runner) backendClient() (*services.Client, error) {
	if r.client != nil {
		return r.client, nil
	}
	c, err := services.New(services.Config{
		URL:        r.config.Backend.URL,
		APIKey:     r.config.Backend.AnonKey,
		HTTPClient: r.httpClient,
		RateLimit:  r.config.Backend.RateLimit,
		Logger:     shared.WithLogger(r.logger, "component", "backend"),
	})
	if err != nil {
		return nil, err
	}
	r.client = c
	return c, nil
}

func (r *Runner) sessionPath() (string, error) {
	return r.config.Backend.ResolveSessionPath()
}

// currentSession returns the signed-in session.
func (r *Runner) currentSession() (*services.Session, error) {
	if r.session != nil {
		return r.session, nil
	}
	path, err := r.sessionPath()
	if err != nil {
		return nil, err
	}
	s, err := services.LoadSession(path)
	if err != nil {
		return nil, fmt.Errorf("%w (run `encore auth login`)", err)
	}
	r.session = s
	return s, nil
}

// userCatalog returns a catalog that acts as the signed-in user. Refreshed sessions are written back to disk.
func (r *Runner) userCatalog() (*services.Catalog, error) {
	if r.catalog != nil {
		return r.catalog, nil
	}
	client, err := r.backendClient()
	if err != nil {
		return nil, err
	}
	session, err := r.currentSession()
	if err != nil {
		return nil, err
	}
	path, err := r.sessionPath()
	if err != nil {
		return nil, err
	}

	_, ts := services.NewSessionSource(client, session, func(s *services.Session) error {
		r.logger.Debug("session refreshed", "expires_at", s.ExpiresAt)
		r.session = s
		return services.SaveSession(path, s)
	})
	authed := client.WithSession(ts)

	r.catalog = services.NewCatalog(authed, authed, authed, services.Buckets{
		Music:  r.config.Upload.MusicBucket,
		Images: r.config.Upload.ImageBucket,
	})
	return r.catalog, nil
}

// remote returns the backend the album engine talks to.
func (r *Runner) remote() (tasks.Backend, error) {
	if r.backend != nil {
		return r.backend, nil
	}
	c, err := r.userCatalog()
	if err != nil {
		return nil, err
	}
	r.backend = c
	return c, nil
}

// userID returns the signed-in user's id, which is also their artist and listener id.
func (r *Runner) userID() (string, error) {
	s, err := r.currentSession()
	if err != nil {
		return "", err
	}
	id := s.UserID()
	if id == "" {
		return "", fmt.Errorf("%w: session has no user", shared.ErrNotAuthenticated)
	}
	return id, nil
}

// engine builds an album engine that records uploads in the local history when the database is available.
func (r *Runner) engine() (*tasks.AlbumEngine, error) {
	backend, err := r.remote()
	if err != nil {
		return nil, err
	}
	e := tasks.NewAlbumEngine(backend, shared.WithLogger(r.logger, "component", "engine"))
	if repo, err := r.uploads(); err == nil {
		e.SetJobRecorder(repositories.NewUploadJobAdapter(repo))
	} else {
		r.logger.Warn("upload history unavailable", "error", err)
	}
	return e, nil
}

// minThreshold resolves the platform minimum stream threshold: --min wins, then the backend, then config.
func (r *Runner) minThreshold(ctx context.Context, cmd *cli.Command) int {
	if cmd.IsSet("min") {
		return cmd.Int("min")
	}
	fallback := r.config.Upload.MinStreamThreshold
	e, err := r.engine()
	if err != nil {
		r.logger.Debug("using configured minimum stream threshold", "reason", err)
		return fallback
	}
	return e.MinStreamThreshold(ctx, fallback)
}

// loadDraft finds the draft named by ref (sequence number or id), or the most recently updated one.
func (r *Runner) loadDraft(ref string) (*models.Draft, *draft.State, error) {
	repo, err := r.drafts()
	if err != nil {
		return nil, nil, err
	}

	var d *models.Draft
	if ref == "" {
		d, err = repo.Latest()
	} else {
		d, err = repo.Find(ref)
	}
	if err != nil {
		return nil, nil, err
	}

	state := draft.New(d.Album())
	state.RestoreSelection(d.Selected())
	return d, state, nil
}

// saveDraft writes the state's album and selection back to d.
func (r *Runner) saveDraft(d *models.Draft, state *draft.State) error {
	repo, err := r.drafts()
	if err != nil {
		return err
	}
	d.SetAlbum(state.Album())
	d.SetSelected(state.SelectedIDs())
	return repo.Update(d)
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
