package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/charmbracelet/log"
	"github.com/urfave/cli/v3"

	"github.com/n3ms/medialib/internal/events"
	"github.com/n3ms/medialib/internal/fetch"
	"github.com/n3ms/medialib/internal/formatter"
	"github.com/n3ms/medialib/internal/notify"
	"github.com/n3ms/medialib/internal/repositories"
	"github.com/n3ms/medialib/internal/shared"
	"github.com/n3ms/medialib/internal/tasks"
)

// Runner holds all dependencies for CLI commands and provides methods for each command action.
type Runner struct {
	config *shared.Config
	logger *log.Logger
	output io.Writer
}

// RunnerOpts contains configuration options for creating a Runner.
type RunnerOpts struct {
	Config *shared.Config
	Logger *log.Logger
	Output io.Writer
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

	return &Runner{
		config: opts.Config,
		logger: opts.Logger,
		output: opts.Output,
	}
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		setupCommand, daemonCommand, monitorCommand, sourceCommand, feedCommand,
		creatorCommand, credentialCommand, warehouseCommand, settingsCommand,
	} {
		commands = append(commands, fn(r))
	}

	return commands
}

// openStore opens the configured database and wraps it in a Store. The
// caller owns the returned close func.
func (r *Runner) openStore(cmd *cli.Command) (*repositories.Store, func(), error) {
	config := r.loadConfig(cmd)

	db, err := shared.NewDatabase(config.Database.Path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open database: %w", err)
	}
	shared.ConfigureDatabase(db, config.Database.MaxOpenConns, config.Database.MaxIdleConns)

	return repositories.NewStore(db), func() { db.Close() }, nil
}

// loadConfig resolves the --config flag, falling back to the runner's
// startup config when the file is absent or unreadable.
func (r *Runner) loadConfig(cmd *cli.Command) *shared.Config {
	path := cmd.String("config")
	if path == "" {
		return r.config
	}

	if _, err := os.Stat(path); err != nil {
		return r.config
	}

	config, err := shared.LoadConfig(path)
	if err != nil {
		r.logger.Warn("failed to load config, using defaults", "path", path, "error", err)
		return r.config
	}
	return config
}

// session wires the three managers, the event bus, and the fetch registry
// over one open store. Used by the daemon, the monitor, and the one-shot
// commands.
type session struct {
	store     *repositories.Store
	bus       *events.Bus
	downloads *tasks.DownloadManager
	sync      *tasks.SyncManager
	metadata  *tasks.MetadataWorker
	close     func()
}

// newSession opens the store and constructs the managers. start launches
// the three consumer loops; they stop when ctx is cancelled.
func (r *Runner) newSession(cmd *cli.Command) (*session, error) {
	store, closeStore, err := r.openStore(cmd)
	if err != nil {
		return nil, err
	}

	config := r.loadConfig(cmd)
	registry := fetch.DefaultRegistry(fetch.NewRunner(config.Tool.YtdlpPath))
	bus := events.NewBus()
	notifier := notify.NewLogNotifier(r.logger, store)

	downloads := tasks.NewDownloadManager(
		store, registry, bus, notifier, r.logger,
		config.Downloads.MaxParallel,
		time.Duration(config.Downloads.StallTimeoutSeconds)*time.Second,
	)
	syncManager := tasks.NewSyncManager(store, registry, bus, notifier, r.logger)
	metadata := tasks.NewMetadataWorker(
		store, registry, bus, r.logger,
		time.Duration(config.Metadata.SweepIntervalSeconds)*time.Second,
		config.Metadata.BatchSize,
	)

	return &session{
		store:     store,
		bus:       bus,
		downloads: downloads,
		sync:      syncManager,
		metadata:  metadata,
		close:     closeStore,
	}, nil
}

func (s *session) start(ctx context.Context) {
	go s.downloads.Run(ctx)
	go s.sync.Run(ctx)
	go s.metadata.Run(ctx)
}

// awaitEvents drains the subscription until done reports completion or the
// context ends.
func awaitEvents(ctx context.Context, stream <-chan events.Event, done func(events.Event) bool) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case evt, ok := <-stream:
			if !ok {
				return nil
			}
			if done(evt) {
				return nil
			}
		}
	}
}

func (r *Runner) writeJSON(data any) error {
	output, err := formatter.MarshalJSON(data)
	if err != nil {
		return err
	}

	if _, err := r.output.Write(append(output, '\n')); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
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
