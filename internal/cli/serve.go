package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/echiweshe/sceneforge/pkg/bus"
	"github.com/echiweshe/sceneforge/pkg/registry"
	"github.com/echiweshe/sceneforge/pkg/settings"
	"github.com/echiweshe/sceneforge/pkg/worker"
)

// shutdownGrace is how long in-flight jobs and requests get to finish
// after the serve command receives a termination signal.
const shutdownGrace = 30 * time.Second

// serveOpts holds the command-line flags for the serve command.
type serveOpts struct {
	addr       string        // listen address
	workers    int           // concurrent pipeline jobs (0: one per CPU)
	jobTimeout time.Duration // per-job deadline
	redisAddr  string        // redis address for the shared event bus (optional)
	mongoURI   string        // mongodb URI for shared settings (optional)
	mongoDB    string        // mongodb database name
	noCache    bool          // disable the pipeline cache
}

// serveCommand creates the serve command. It exposes the pipeline over
// HTTP: jobs are submitted to a worker pool, their state transitions are
// published on an event bus, and results can be polled by job ID.
//
// Without --redis the event bus is in-process and without --mongo the
// conversion settings live in a local TOML file. Both flags switch the
// server to shared backends so multiple instances can cooperate.
func (c *CLI) serveCommand() *cobra.Command {
	var opts serveOpts

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the conversion pipeline over HTTP",
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runServe(cmd.Context(), &opts)
		},
	}

	cmd.Flags().StringVar(&opts.addr, "addr", ":8080", "listen address")
	cmd.Flags().IntVar(&opts.workers, "workers", 0, "concurrent jobs (default: one per CPU)")
	cmd.Flags().DurationVar(&opts.jobTimeout, "job-timeout", worker.DefaultJobTimeout, "per-job deadline")
	cmd.Flags().StringVar(&opts.redisAddr, "redis", "", "redis address for the job event bus")
	cmd.Flags().StringVar(&opts.mongoURI, "mongo", "", "mongodb URI for shared settings")
	cmd.Flags().StringVar(&opts.mongoDB, "mongo-db", appName, "mongodb database name")
	cmd.Flags().BoolVar(&opts.noCache, "no-cache", false, "disable the pipeline cache")

	return cmd
}

func (c *CLI) runServe(ctx context.Context, opts *serveOpts) error {
	runner, err := c.newRunner(opts.noCache)
	if err != nil {
		return err
	}
	defer runner.Close()

	eventBus, err := c.newBus(ctx, opts)
	if err != nil {
		return err
	}
	defer eventBus.Close()

	store, err := c.newSettingsStore(ctx, opts)
	if err != nil {
		return err
	}
	defer store.Close()

	pool := worker.NewPool(runner, worker.Config{
		Workers:    opts.workers,
		JobTimeout: opts.jobTimeout,
		Bus:        eventBus,
		Logger:     c.Logger,
	})

	reg := registry.New(pool, store, c.Logger)
	srv := &http.Server{
		Addr:              opts.addr,
		Handler:           reg.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		c.Logger.Info("listening", "addr", opts.addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("serve: %w", err)
	case <-ctx.Done():
	}

	c.Logger.Info("shutting down", "grace", shutdownGrace)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		c.Logger.Warn("http shutdown", "err", err)
	}
	if err := pool.Shutdown(shutdownCtx); err != nil {
		c.Logger.Warn("pool shutdown", "err", err)
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("serve: %w", err)
	}
	return nil
}

// newBus selects the job event bus backend. Redis is used when --redis is
// set so multiple server instances share job state, otherwise events stay
// in-process.
func (c *CLI) newBus(ctx context.Context, opts *serveOpts) (bus.Bus, error) {
	if opts.redisAddr == "" {
		return bus.NewMemoryBus(), nil
	}
	b, err := bus.NewRedisBus(ctx, bus.RedisConfig{Addr: opts.redisAddr})
	if err != nil {
		return nil, fmt.Errorf("connect redis: %w", err)
	}
	c.Logger.Info("using redis event bus", "addr", opts.redisAddr)
	return b, nil
}

// newSettingsStore selects the settings backend. MongoDB is used when
// --mongo is set, otherwise settings live in the local config file.
func (c *CLI) newSettingsStore(ctx context.Context, opts *serveOpts) (settings.Store, error) {
	if opts.mongoURI == "" {
		path, err := settingsPath()
		if err != nil {
			return nil, fmt.Errorf("get settings path: %w", err)
		}
		return settings.NewFileStore(path), nil
	}
	store, err := settings.NewMongoStore(ctx, settings.MongoConfig{
		URI:      opts.mongoURI,
		Database: opts.mongoDB,
	})
	if err != nil {
		return nil, fmt.Errorf("connect mongodb: %w", err)
	}
	c.Logger.Info("using mongodb settings store", "db", opts.mongoDB)
	return store, nil
}
