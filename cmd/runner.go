package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/gerak/internal/capture"
	"github.com/desertthunder/gerak/internal/coach"
	"github.com/desertthunder/gerak/internal/models"
	"github.com/desertthunder/gerak/internal/server"
	"github.com/desertthunder/gerak/internal/services"
	"github.com/desertthunder/gerak/internal/shared"
	"github.com/desertthunder/gerak/internal/tasks"
	"github.com/desertthunder/gerak/internal/web"
	"github.com/urfave/cli/v3"
)

// Runner holds all dependencies for CLI commands and provides methods for each command action.
type Runner struct {
	config     *shared.Config
	configPath string
	analyzer   services.Analyzer
	source     capture.Source
	httpClient *http.Client
	logger     *log.Logger
	output     io.Writer
}

// RunnerOpts contains configuration options for creating a Runner.
//
// Analyzer and Source are built from the config when nil.
type RunnerOpts struct {
	Config     *shared.Config
	ConfigPath string
	Analyzer   services.Analyzer
	Source     capture.Source
	HTTPClient *http.Client
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
		analyzer:   opts.Analyzer,
		source:     opts.Source,
		httpClient: opts.HTTPClient,
		logger:     opts.Logger,
		output:     opts.Output,
	}
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		tuiCommand, serveCommand, analyzeCommand, movementsCommand, setupCommand, checkCommand,
	} {
		commands = append(commands, fn(r))
	}

	return commands
}

// Configure loads the file named by --config before any command runs.
//
// A missing file falls back to the embedded defaults; an invalid one is fatal.
func (r *Runner) Configure(ctx context.Context, cmd *cli.Command) (context.Context, error) {
	path := cmd.String("config")
	r.configPath = path

	if _, err := os.Stat(path); err == nil {
		config, err := shared.LoadConfig(path)
		if err != nil {
			return ctx, err
		}
		r.config = config
	} else if errors.Is(err, os.ErrNotExist) {
		r.logger.Debug("config file not found, using defaults", "path", path)
	} else {
		return ctx, fmt.Errorf("failed to stat config: %w", err)
	}

	level, err := shared.ParseLogLevel(r.config.Log.Level)
	if err != nil {
		return ctx, err
	}
	shared.SetLogLevel(r.logger, level)
	return ctx, nil
}

// SetLogger replaces the logger used by the runner and everything it builds afterwards.
func (r *Runner) SetLogger(l *log.Logger) {
	r.logger = l
}

// catalog builds the movement catalog, replaced by [[movements]] entries when the config has any.
func (r *Runner) catalog() ([]models.Movement, error) {
	movements := make([]models.Movement, 0, len(r.config.Movements))
	for _, m := range r.config.Movements {
		movements = append(movements, models.Movement{
			ID:          m.ID,
			Name:        m.Name,
			Description: m.Description,
			ImageURL:    m.Image,
		})
	}
	return models.NewCatalog(movements)
}

// newAnalyzer returns the injected analyzer or a Gemini client built from the config.
func (r *Runner) newAnalyzer() (services.Analyzer, error) {
	if r.analyzer != nil {
		return r.analyzer, nil
	}

	key, err := r.config.APIKey()
	if err != nil {
		return nil, err
	}

	gemini := r.config.Credentials.Gemini
	return services.NewGeminiService(services.GeminiOpts{
		APIKey:     key,
		Model:      gemini.Model,
		BaseURL:    gemini.BaseURL,
		APIVersion: gemini.APIVersion,
		Timeout:    gemini.TimeoutDuration(),
		HTTPClient: r.httpClient,
		Logger:     r.logger,
	})
}

func (r *Runner) newSource() (capture.Source, error) {
	if r.source != nil {
		return r.source, nil
	}
	return capture.NewSource(r.config.Capture, r.logger)
}

// newSession wires the catalog, the camera and the analyzer into a coaching session bound to ctx.
func (r *Runner) newSession(ctx context.Context) (*coach.Session, error) {
	catalog, err := r.catalog()
	if err != nil {
		return nil, err
	}

	analyzer, err := r.newAnalyzer()
	if err != nil {
		return nil, err
	}

	source, err := r.newSource()
	if err != nil {
		return nil, err
	}

	loop := tasks.NewCaptureLoop(tasks.LoopOpts{
		Source:      source,
		Analyzer:    analyzer,
		Interval:    r.config.Capture.IntervalDuration(),
		JPEGQuality: r.config.Capture.JPEGQuality,
		Logger:      r.logger,
	})

	session := coach.NewSession(ctx, coach.SessionOpts{
		Catalog: catalog,
		Loop:    loop,
		Logger:  r.logger,
	})
	r.logger.Info("session ready", "id", session.ID(), "analyzer", analyzer.Name(), "source", source.Name())
	return session, nil
}

// newWebServer mounts the web shell for session on addr.
func (r *Runner) newWebServer(session *coach.Session, addr string) (*server.Server, error) {
	handler, err := web.NewHandler(web.Opts{
		Session:       session,
		Logger:        r.logger,
		OverlayWidth:  r.config.Overlay.Width,
		OverlayHeight: r.config.Overlay.Height,
		JPEGQuality:   r.config.Capture.JPEGQuality,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to build web handler: %w", err)
	}

	router := server.NewBasicRouter()
	router.Use(
		server.Logging(r.logger, "/api/state", "/frame.jpg", "/overlay.png"),
		server.Recover(r.logger),
	)
	router.Handler(handler)

	return server.New(addr, router, shared.WithLogger(r.logger, "component", "server")), nil
}

func (r *Runner) writeJSON(data any, pretty bool) error {
	output, err := shared.MarshalJSON(data, pretty)
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
