package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/flowgrid/flowgrid/internal/server"
	"github.com/flowgrid/flowgrid/pkg/cache"
	"github.com/flowgrid/flowgrid/pkg/pipeline"
	"github.com/flowgrid/flowgrid/pkg/store"
)

// serveOpts holds the command-line flags for the serve command.
type serveOpts struct {
	addr     string // listen address
	redisURL string // Redis URL for the result cache; empty uses the file cache
	mongoURI string // MongoDB URI for the diagram store; empty uses memory
	database string // MongoDB database name
	noCache  bool   // disable result caching
}

// serveCommand creates the serve command for running the HTTP API.
func (c *CLI) serveCommand() *cobra.Command {
	opts := serveOpts{
		addr:     ":8080",
		database: appName,
	}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Long: `Serve runs the FlowGrid HTTP API: POST /v1/tidy refines posted diagrams
and /v1/diagrams stores them by name.

Without --redis the result cache falls back to the local file cache; without
--mongo diagrams are stored in memory and lost on restart.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runServe(cmd.Context(), &opts)
		},
	}

	cmd.Flags().StringVar(&opts.addr, "addr", opts.addr, "listen address")
	cmd.Flags().StringVar(&opts.redisURL, "redis", "", "Redis URL for the result cache")
	cmd.Flags().StringVar(&opts.mongoURI, "mongo", "", "MongoDB URI for the diagram store")
	cmd.Flags().StringVar(&opts.database, "db", opts.database, "MongoDB database name")
	cmd.Flags().BoolVar(&opts.noCache, "no-cache", false, "disable result caching")

	return cmd
}

// runServe wires cache, store, and pipeline runner into the HTTP server and
// blocks until ctx is cancelled.
func (c *CLI) runServe(ctx context.Context, opts *serveOpts) error {
	cc, err := c.serveCache(ctx, opts)
	if err != nil {
		return err
	}

	st, err := c.serveStore(ctx, opts)
	if err != nil {
		cc.Close()
		return err
	}
	defer func() {
		if err := st.Close(context.Background()); err != nil {
			c.Logger.Warn("closing store", "err", err)
		}
	}()

	// Scope keys when sharing a Redis instance with other tenants.
	var keyer cache.Keyer
	if opts.redisURL != "" {
		keyer = cache.NewScopedKeyer(nil, appName+":")
	}

	runner := pipeline.NewRunner(cc, keyer, c.Logger)
	defer runner.Close()

	return server.New(st, runner, c.Logger).Serve(ctx, opts.addr)
}

func (c *CLI) serveCache(ctx context.Context, opts *serveOpts) (cache.Cache, error) {
	if opts.noCache {
		return cache.NewNullCache(), nil
	}
	if opts.redisURL != "" {
		c.Logger.Info("using redis cache")
		return cache.NewRedisCache(ctx, opts.redisURL)
	}
	return newCache(false)
}

func (c *CLI) serveStore(ctx context.Context, opts *serveOpts) (store.Store, error) {
	if opts.mongoURI != "" {
		c.Logger.Info("using mongodb store", "database", opts.database)
		return store.NewMongoStore(ctx, opts.mongoURI, opts.database)
	}
	c.Logger.Warn("no --mongo given, diagrams are stored in memory only")
	return store.NewMemoryStore(), nil
}
