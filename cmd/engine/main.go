package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"sync/atomic"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"gradtrack-engine/internal/config"
	"gradtrack-engine/internal/cursor"
	"gradtrack-engine/internal/domain"
	"gradtrack-engine/internal/events"
	"gradtrack-engine/internal/httpapi"
	"gradtrack-engine/internal/normalize"
	"gradtrack-engine/internal/pipeline"
	"gradtrack-engine/internal/scheduler"
	"gradtrack-engine/internal/scrape"
	"gradtrack-engine/internal/store"
)

// sourceFunc rebuilds the fetcher from the live config on every run, so a
// config PUT takes effect without a restart.
type sourceFunc func(ctx context.Context, since time.Time, emit func(domain.RawRecord) error) (int, error)

func (f sourceFunc) Fetch(ctx context.Context, since time.Time, emit func(domain.RawRecord) error) (int, error) {
	return f(ctx, since, emit)
}

func main() {
	dataDir := os.Getenv("GRADTRACK_DATA_DIR")
	if dataDir == "" {
		dataDir = "."
	}
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		log.Fatal(err)
	}

	if err := normalize.ValidateLabels(); err != nil {
		log.Fatalf("label mapping invalid: %v", err)
	}

	userCfgPath, err := config.EnsureUserConfig(dataDir)
	if err != nil {
		log.Fatalf("config bootstrap failed: %v", err)
	}

	loadCfg := func() (config.Config, error) {
		cfg, err := config.Load(userCfgPath)
		if err != nil {
			return cfg, err
		}
		return cfg, config.Validate(cfg)
	}
	cfg, err := loadCfg()
	if err != nil {
		log.Fatalf("config load failed (%s): %v", userCfgPath, err)
	}
	var cfgVal atomic.Value
	cfgVal.Store(cfg)

	db, err := store.Open(filepath.Join(dataDir, "gradtrack.db"))
	if err != nil {
		log.Fatal(err)
	}
	defer db.Close()
	if err := store.Migrate(db.Pool); err != nil {
		log.Fatal(err)
	}

	hub := events.NewHub()

	src := sourceFunc(func(ctx context.Context, since time.Time, emit func(domain.RawRecord) error) (int, error) {
		f, err := scrape.New(cfgVal.Load().(config.Config))
		if err != nil {
			return 0, err
		}
		return f.Fetch(ctx, since, emit)
	})

	orc := &pipeline.Orchestrator{
		Lock:      pipeline.NewFileRunLock(filepath.Join(dataDir, "pipeline.lock")),
		Cursor:    cursor.FileCursor{Path: filepath.Join(dataDir, "last_run.txt")},
		Source:    src,
		Loader:    store.Loader{DB: db.Pool},
		Hub:       hub,
		BatchSize: cfg.Load.BatchSize,
		Backfill:  time.Duration(cfg.Source.BackfillDays) * 24 * time.Hour,
	}

	mux := httpapi.NewMux(httpapi.Deps{
		Orchestrator: orc,
		Cursor:       cursor.FileCursor{Path: filepath.Join(dataDir, "last_run.txt")},
		Hub:          hub,
		CfgVal:       &cfgVal,
		UserCfgPath:  userCfgPath,
		LoadCfg:      loadCfg,
	})
	handler := httpapi.Chain(mux,
		httpapi.RequestID,
		httpapi.Recover,
		httpapi.AccessLog,
		httpapi.Cors,
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.App.Port),
		Handler: handler,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Printf("[http] listening on %s", srv.Addr)
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutCtx)
	})
	if cfg.Scheduler.Enabled {
		g.Go(func() error {
			scheduler.Every(gctx, cfg.SchedulerInterval(), "sched", func(ctx context.Context) error {
				_, err := orc.Run(ctx)
				if errors.Is(err, pipeline.ErrBusy) {
					log.Printf("[sched] previous run still active, skipping tick")
					return nil
				}
				return err
			})
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		log.Fatal(err)
	}
}
