// Package app wires configuration, logging, the audit store, the event bus
// and the curve engine into one process.
package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/rovshanmuradov/launchpad-curve/internal/config"
	"github.com/rovshanmuradov/launchpad-curve/internal/curve"
	"github.com/rovshanmuradov/launchpad-curve/internal/events"
	"github.com/rovshanmuradov/launchpad-curve/internal/ledger"
	"github.com/rovshanmuradov/launchpad-curve/internal/logger"
	"github.com/rovshanmuradov/launchpad-curve/internal/scenario"
	"github.com/rovshanmuradov/launchpad-curve/internal/storage"
	"github.com/rovshanmuradov/launchpad-curve/internal/storage/pebble"
)

// ShutdownTimeout bounds Close when the caller's context has no deadline.
const ShutdownTimeout = 10 * time.Second

// App holds the process-wide components. Fields are read-only after New.
type App struct {
	Config    *config.Config
	Log       *logger.Logger
	Store     *pebble.Store
	Bus       *events.Bus
	Publisher *events.CurvePublisher
	Ledger    *ledger.Memory
	Engine    *curve.Engine

	shutdown *shutdown
}

// Options select how New builds the process.
type Options struct {
	ConfigPath string
	Debug      bool
	// Logger overrides the configured file logger, mainly for tests.
	Logger *zap.Logger
}

// New loads configuration and builds every component. On error anything
// already opened is closed again.
func New(opts Options) (*App, error) {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return nil, err
	}
	return Build(cfg, opts)
}

// Build assembles an App from an already loaded configuration.
func Build(cfg *config.Config, opts Options) (*App, error) {
	log := &logger.Logger{Logger: opts.Logger}
	if opts.Logger == nil {
		var err error
		log, err = logger.New(logger.FromConfig(cfg.Log, opts.Debug))
		if err != nil {
			return nil, fmt.Errorf("failed to create logger: %w", err)
		}
	}

	a := &App{
		Config:   cfg,
		Log:      log,
		shutdown: &shutdown{logger: log.Named("shutdown")},
	}
	a.shutdown.addFunc("logger", log.Close)

	if err := a.build(); err != nil {
		_ = a.Close(context.Background())
		return nil, err
	}

	a.Log.WithComponent("app").Info("Application initialized",
		zap.String("storage_path", cfg.Storage.Path),
		zap.Bool("in_memory", cfg.Storage.InMemory),
		zap.Int("event_buffer", cfg.Engine.EventBuffer))
	return a, nil
}

func (a *App) build() error {
	cfg := a.Config
	programID, err := cfg.ProgramID()
	if err != nil {
		return err
	}
	authority, err := cfg.PlatformAuthority()
	if err != nil {
		return err
	}

	a.Store, err = pebble.Open(cfg.Storage.Path, cfg.Storage.InMemory, a.Log.Logger)
	if err != nil {
		return fmt.Errorf("failed to open audit store: %w", err)
	}
	a.shutdown.add("audit_store", a.Store)

	a.Bus = events.NewBus(a.Log.Logger, cfg.Engine.EventBuffer)
	a.Bus.SubscribeFunc(events.All, a.logEvent)
	a.shutdown.addFunc("event_bus", func() error {
		ctx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
		defer cancel()
		return a.Bus.Shutdown(ctx)
	})
	a.Publisher = events.NewCurvePublisher(a.Bus)

	a.Ledger = ledger.NewMemory(a.Log.Logger)
	a.Engine, err = curve.NewEngine(curve.Options{
		Ledger:            a.Ledger,
		Fees:              cfg.FeeSchedule(),
		PlatformAuthority: authority,
		ProgramID:         programID,
		Recorder:          storage.NewRecorder(a.Store),
		Publisher:         a.Publisher,
		Logger:            a.Log.Logger,
	})
	if err != nil {
		return fmt.Errorf("failed to create engine: %w", err)
	}
	return nil
}

// ScenarioRunner returns a scenario runner over the app's engine and ledger.
func (a *App) ScenarioRunner() *scenario.Runner {
	return scenario.NewRunner(a.Engine, a.Ledger, a.Config.CurveDefaults,
		scenario.WithWrapperPublisher(a.Publisher),
		scenario.WithLogger(a.Log.Logger))
}

func (a *App) logEvent(_ context.Context, ev events.Event) error {
	a.Log.Debug("Event delivered",
		zap.String("event_type", string(ev.Type())),
		zap.Time("timestamp", ev.Timestamp()))
	return nil
}

// Close shuts components down in reverse build order: the bus drains before
// the store closes, and the logger goes last.
func (a *App) Close(ctx context.Context) error {
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, ShutdownTimeout)
		defer cancel()
	}
	err := a.shutdown.run(ctx)
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("shutdown incomplete: %w", err)
	}
	return err
}
