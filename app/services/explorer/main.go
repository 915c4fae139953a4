package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ardanlabs/conf/v3"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"

	"github.com/ardanlabs/blockvault/app/services/explorer/handlers"
	"github.com/ardanlabs/blockvault/business/sys/metrics"
	"github.com/ardanlabs/blockvault/foundation/blockchain/genesis"
	"github.com/ardanlabs/blockvault/foundation/blockchain/persist"
	"github.com/ardanlabs/blockvault/foundation/blockchain/state"
	"github.com/ardanlabs/blockvault/foundation/blockchain/storage"
	"github.com/ardanlabs/blockvault/foundation/blockchain/storage/leveldb"
	"github.com/ardanlabs/blockvault/foundation/blockchain/storage/memory"
	"github.com/ardanlabs/blockvault/foundation/blockchain/worker"
	"github.com/ardanlabs/blockvault/foundation/events"
	"github.com/ardanlabs/blockvault/foundation/logger"
)

// build is the git version of this program. It is set using build flags in the makefile.
var build = "develop"

func main() {

	// Construct the application logger.
	log, err := logger.New("EXPLORER")
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
	defer log.Sync()

	// Perform the startup and shutdown sequence.
	if err := run(log); err != nil {
		log.Errorw("startup", "ERROR", err)
		log.Sync()
		os.Exit(1)
	}
}

func run(log *zap.SugaredLogger) error {

	// =========================================================================
	// Configuration

	// This is all the configuration for the application and the default values.
	// Configuration values will be passed through the application as individual
	// values.
	cfg := struct {
		conf.Version
		Web struct {
			ReadTimeout     time.Duration `conf:"default:5s"`
			WriteTimeout    time.Duration `conf:"default:10s"`
			IdleTimeout     time.Duration `conf:"default:120s"`
			ShutdownTimeout time.Duration `conf:"default:20s"`
			DebugHost       string        `conf:"default:0.0.0.0:7080"`
			PublicHost      string        `conf:"default:0.0.0.0:8080"`
			CorsOrigin      string        `conf:"default:*"`
			MaxBodyBytes    int64         `conf:"default:67108864"`
		}
		DB struct {
			Engine string `conf:"default:leveldb"`
			Path   string `conf:"default:zblock/vault.db"`
		}
		Backup struct {
			Retention int `conf:"default:5"`
		}
		Mining struct {
			Difficulty     uint   `conf:"help:overrides the genesis difficulty when set"`
			Reward         uint64 `conf:"help:overrides the genesis mining reward when set"`
			Workers        int    `conf:"help:overrides the genesis worker count when set"`
			BatchSize      uint64 `conf:"default:5000"`
			WarnDifficulty uint   `conf:"default:6"`
		}
		Genesis struct {
			Path string `conf:"default:zblock/genesis.json"`
		}
	}{
		Version: conf.Version{
			Build: build,
			Desc:  "copyright information here",
		},
	}

	// Parse will set the defaults and then look for any overriding values
	// in environment variables and command line flags.
	const prefix = "EXPLORER"
	help, err := conf.Parse(prefix, &cfg)
	if err != nil {
		if errors.Is(err, conf.ErrHelpWanted) {
			fmt.Println(help)
			return nil
		}
		return fmt.Errorf("parsing config: %w", err)
	}

	// =========================================================================
	// App Starting

	log.Infow("starting service", "version", build)
	defer log.Infow("shutdown complete")

	// Display the current configuration to the logs.
	out, err := conf.String(&cfg)
	if err != nil {
		return fmt.Errorf("generating config for output: %w", err)
	}
	log.Infow("startup", "config", out)

	// =========================================================================
	// Genesis Support

	gen, err := genesis.Load(cfg.Genesis.Path)
	if err != nil {
		return fmt.Errorf("unable to load genesis: %w", err)
	}

	if cfg.Mining.Difficulty > 0 {
		gen.Difficulty = cfg.Mining.Difficulty
	}
	if cfg.Mining.Reward > 0 {
		gen.MiningReward = cfg.Mining.Reward
	}
	if cfg.Mining.Workers > 0 {
		gen.Workers = cfg.Mining.Workers
	}

	log.Infow("startup", "status", "genesis", "difficulty", gen.Difficulty, "reward", gen.MiningReward, "workers", gen.Workers)

	// =========================================================================
	// Metrics Support

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	mtr, err := metrics.New(reg)
	if err != nil {
		return fmt.Errorf("unable to register metrics: %w", err)
	}

	// =========================================================================
	// Blockchain Support

	// The blockchain packages accept a function of this signature to allow the
	// application to log. Store and mining changes are delivered to websocket
	// clients as typed events through the events package.
	evts := events.New()
	ev := func(v string, args ...any) {
		s := fmt.Sprintf(v, args...)
		log.Infow(s, "traceid", "00000000-0000-0000-0000-000000000000")
	}

	// The metrics collectors are fed from the same events the clients see.
	go mtr.Consume(evts.Acquire("metrics"))

	engine, err := openEngine(cfg.DB.Engine, cfg.DB.Path)
	if err != nil {
		return err
	}

	log.Infow("startup", "status", "storage engine opened", "engine", cfg.DB.Engine, "path", cfg.DB.Path)

	mgr, err := persist.New(persist.Config{
		Engine:    engine,
		Retention: cfg.Backup.Retention,
		EvHandler: ev,
		Events:    evts,
	})
	if err != nil {
		engine.Close()
		return err
	}

	// The state value represents the blockchain and manages the persistence
	// manager and provides an API for application support.
	state, err := state.New(state.Config{
		Manager:   mgr,
		Genesis:   gen,
		BatchSize: cfg.Mining.BatchSize,
		EvHandler: ev,
		Events:    evts,
	})
	if err != nil {
		mgr.Close()
		return err
	}
	defer state.Shutdown()

	// The worker package runs the mining sessions. The worker will register
	// itself with the state.
	worker.Run(state, evts, ev)

	// =========================================================================
	// Start Debug Service

	log.Infow("startup", "status", "debug v1 router started", "host", cfg.Web.DebugHost)

	// The Debug function returns a mux to listen and serve on for all the debug
	// related endpoints. This includes the standard library endpoints.

	// Construct the mux for the debug calls.
	debugMux := handlers.DebugMux(build, log, state, reg)

	// Start the service listening for debug requests.
	// Not concerned with shutting this down with load shedding.
	go func() {
		if err := http.ListenAndServe(cfg.Web.DebugHost, debugMux); err != nil {
			log.Errorw("shutdown", "status", "debug v1 router closed", "host", cfg.Web.DebugHost, "ERROR", err)
		}
	}()

	// =========================================================================
	// Service Start/Stop Support

	// Make a channel to listen for an interrupt or terminate signal from the OS.
	// Use a buffered channel because the signal package requires it.
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)

	// Make a channel to listen for errors coming from the listener. Use a
	// buffered channel so the goroutine can exit if we don't collect this error.
	serverErrors := make(chan error, 1)

	// =========================================================================
	// Start Public Service

	log.Infow("startup", "status", "initializing V1 public API support")

	// Construct the mux for the public API calls.
	publicMux := handlers.PublicMux(handlers.MuxConfig{
		Shutdown:       shutdown,
		Log:            log,
		State:          state,
		Evts:           evts,
		Metrics:        mtr,
		Origin:         cfg.Web.CorsOrigin,
		WarnDifficulty: cfg.Mining.WarnDifficulty,
		MaxBodyBytes:   cfg.Web.MaxBodyBytes,
	})

	// Construct a server to service the requests against the mux.
	public := http.Server{
		Addr:         cfg.Web.PublicHost,
		Handler:      publicMux,
		ReadTimeout:  cfg.Web.ReadTimeout,
		WriteTimeout: cfg.Web.WriteTimeout,
		IdleTimeout:  cfg.Web.IdleTimeout,
		ErrorLog:     zap.NewStdLog(log.Desugar()),
	}

	// Start the service listening for api requests.
	go func() {
		log.Infow("startup", "status", "public api router started", "host", public.Addr)
		serverErrors <- public.ListenAndServe()
	}()

	// =========================================================================
	// Shutdown

	// Blocking main and waiting for shutdown.
	select {
	case err := <-serverErrors:
		return fmt.Errorf("server error: %w", err)

	case sig := <-shutdown:
		log.Infow("shutdown", "status", "shutdown started", "signal", sig)
		defer log.Infow("shutdown", "status", "shutdown complete", "signal", sig)

		// Give outstanding requests a deadline for completion.
		ctx, cancelPub := context.WithTimeout(context.Background(), cfg.Web.ShutdownTimeout)
		defer cancelPub()

		// Asking listener to shut down and shed load.
		log.Infow("shutdown", "status", "shutdown public API started")
		if err := public.Shutdown(ctx); err != nil {
			public.Close()
			return fmt.Errorf("could not stop public service gracefully: %w", err)
		}

		// Release any web sockets that are currently active.
		log.Infow("shutdown", "status", "shutdown web socket channels")
		evts.Shutdown()
	}

	return nil
}

// openEngine opens the storage engine named in the configuration.
func openEngine(name string, path string) (storage.Engine, error) {
	switch name {
	case "leveldb":
		db, err := leveldb.New(path)
		if err != nil {
			return nil, fmt.Errorf("unable to open leveldb: %w", err)
		}
		return db, nil

	case "memory":
		return memory.New(), nil
	}

	return nil, fmt.Errorf("unknown storage engine %q", name)
}
