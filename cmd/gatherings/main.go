package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"
	_ "time/tzdata"

	urfavecli "github.com/urfave/cli/v2"
	"go.uber.org/zap"

	"github.com/hyperjump/gatherings/internal/cli"
	"github.com/hyperjump/gatherings/internal/config"
	"github.com/hyperjump/gatherings/internal/importer"
	"github.com/hyperjump/gatherings/internal/models"
	"github.com/hyperjump/gatherings/internal/query"
	"github.com/hyperjump/gatherings/internal/search"
	"github.com/hyperjump/gatherings/internal/server"
	"github.com/hyperjump/gatherings/internal/storage"
	"github.com/hyperjump/gatherings/internal/watcher"
	"github.com/hyperjump/gatherings/pkg/utils"
)

const defaultConfigPath = "/usr/local/etc/gatherings/config.yaml"

var version = "dev"

const (
	metaConfig = "config"
	metaLogger = "logger"
)

func main() {
	if err := newApp().Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newApp() *urfavecli.App {
	return &urfavecli.App{
		Name:    "gatherings",
		Usage:   "Search locations and happenings imported from seed files",
		Version: version,
		Flags: []urfavecli.Flag{
			&urfavecli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Value:   defaultConfigPath,
				Usage:   "config file path",
				EnvVars: []string{"GATHERINGS_CONFIG"},
			},
			&urfavecli.BoolFlag{
				Name:  "debug",
				Usage: "enable debug logging",
			},
			&urfavecli.StringFlag{
				Name:  "log-level",
				Usage: "log level: debug, info, warn, error",
			},
		},
		Before: setup,
		After: func(c *urfavecli.Context) error {
			if l, ok := c.App.Metadata[metaLogger].(*zap.Logger); ok {
				_ = l.Sync()
			}
			return nil
		},
		Commands: []*urfavecli.Command{
			serverCommand(),
			searchCommand(),
			explainCommand(),
			importCommand(),
			removeCommand(),
			watchCommand(),
			statusCommand(),
		},
	}
}

// setup loads the config and builds the logger shared by every command.
func setup(c *urfavecli.Context) error {
	cfg, _, err := loadConfig(c.String("config"))
	if err != nil {
		return err
	}
	level := cfg.Log.Level
	if c.IsSet("log-level") {
		level = c.String("log-level")
	}
	logger, err := utils.NewLogger(cfg.Debug || c.Bool("debug"), level)
	if err != nil {
		return err
	}
	if c.App.Metadata == nil {
		c.App.Metadata = map[string]interface{}{}
	}
	c.App.Metadata[metaConfig] = cfg
	c.App.Metadata[metaLogger] = logger
	return nil
}

func appConfig(c *urfavecli.Context) *config.Config {
	return c.App.Metadata[metaConfig].(*config.Config)
}

func appLogger(c *urfavecli.Context) *zap.Logger {
	return c.App.Metadata[metaLogger].(*zap.Logger)
}

// loadConfig loads the config at path. When path is the default and missing, config.yaml in
// the working directory is tried, then built-in defaults. The returned path is the file used,
// or empty for defaults.
func loadConfig(path string) (*config.Config, string, error) {
	if path != defaultConfigPath {
		cfg, err := config.Load(path)
		return cfg, path, err
	}
	if _, err := os.Stat(path); err == nil {
		cfg, err := config.Load(path)
		return cfg, path, err
	}
	if cwd, err := os.Getwd(); err == nil {
		local := filepath.Join(cwd, "config.yaml")
		if _, err := os.Stat(local); err == nil {
			cfg, err := config.Load(local)
			return cfg, local, err
		}
	}
	cfg := &config.Config{}
	config.ApplyDefaults(cfg)
	return cfg, "", cfg.Validate()
}

// Components holds initialized services.
type Components struct {
	Storage  *storage.SQLiteStorage
	Engine   *search.Engine
	Importer *importer.Importer
}

func (c *Components) Close() {
	if c.Storage != nil {
		_ = c.Storage.Close()
	}
}

func initializeComponents(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Components, error) {
	store, err := storage.NewSQLiteStorage(cfg.Storage.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}
	engine, err := search.NewEngine(store, &cfg.Search, logger)
	if err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("failed to initialize search engine: %w", err)
	}
	if err := engine.ValidateSchema(ctx); err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("schema check failed: %w", err)
	}
	loc, err := cfg.Search.Location()
	if err != nil {
		_ = store.Close()
		return nil, err
	}
	imp := importer.New(store,
		importer.WithExtensions(cfg.Import.Extensions),
		importer.WithTimeLocation(loc),
		importer.WithLogger(logger),
	)
	return &Components{Storage: store, Engine: engine, Importer: imp}, nil
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func serverCommand() *urfavecli.Command {
	return &urfavecli.Command{
		Name:  "server",
		Usage: "Run the HTTP API and watch the import directories",
		Flags: []urfavecli.Flag{
			&urfavecli.BoolFlag{Name: "no-watch", Usage: "do not watch import directories"},
		},
		Action: func(c *urfavecli.Context) error {
			cfg, logger := appConfig(c), appLogger(c)
			ctx, stop := signalContext()
			defer stop()

			components, err := initializeComponents(ctx, cfg, logger)
			if err != nil {
				return err
			}
			defer components.Close()

			var watch server.WatchService
			if !c.Bool("no-watch") {
				w := watcher.New(components.Importer, cfg.Import.Directories, cfg.Import.Extensions,
					cfg.Import.RecursiveOrDefault(), watcher.WithLogger(logger))
				if err := w.Start(ctx); err != nil {
					return fmt.Errorf("failed to start watcher: %w", err)
				}
				defer w.Stop()
				go w.SyncExistingFiles()
				watch = w
			}

			srv := server.NewServer(components.Engine, components.Storage, components.Importer, watch, cfg, logger)
			errCh := make(chan error, 1)
			go func() {
				logger.Info("Starting server", zap.String("addr", cfg.Server.Addr()))
				if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					errCh <- err
				}
				close(errCh)
			}()

			select {
			case err := <-errCh:
				if err != nil {
					return fmt.Errorf("server failed: %w", err)
				}
				return nil
			case <-ctx.Done():
			}

			logger.Info("Shutting down server")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := srv.Stop(shutdownCtx); err != nil {
				return fmt.Errorf("shutdown failed: %w", err)
			}
			return nil
		},
	}
}

func searchFlags() []urfavecli.Flag {
	return []urfavecli.Flag{
		&urfavecli.StringFlag{Name: "order", Aliases: []string{"o"}, Usage: "sort order symbol, e.g. name, venue, date"},
		&urfavecli.IntFlag{Name: "limit", Aliases: []string{"n"}, Usage: "maximum results; 0 or less for no limit"},
		&urfavecli.BoolFlag{Name: "wifi", Usage: "only locations with wifi"},
		&urfavecli.BoolFlag{Name: "include-closed", Usage: "keep locations that are out of business"},
		&urfavecli.BoolFlag{Name: "skip-old", Usage: "drop happenings that started before yesterday"},
		&urfavecli.StringFlag{Name: "output", Value: string(cli.OutputText), Usage: "output format: text, compact, json"},
		&urfavecli.StringFlag{Name: "server", Usage: "server URL; when set, the search runs on the server", EnvVars: []string{"GATHERINGS_SERVER"}},
	}
}

// searchArgs parses "<kind> <query...>" and the search flags.
func searchArgs(c *urfavecli.Context) (query.EntityKind, *models.SearchRequest, error) {
	if c.NArg() < 1 {
		return "", nil, fmt.Errorf("usage: gatherings %s [flags] <kind> [query...]", c.Command.Name)
	}
	kind := query.ParseEntityKind(c.Args().First())
	req := &models.SearchRequest{Query: buildSearchQuery(c.Args().Tail())}
	req.Order = c.String("order")
	if c.IsSet("limit") {
		n := c.Int("limit")
		req.Limit = &n
	}
	req.Wifi = c.Bool("wifi")
	req.IncludeClosed = c.Bool("include-closed")
	req.SkipOld = c.Bool("skip-old")
	return kind, req, nil
}

// buildSearchQuery joins the positional words into one query string.
func buildSearchQuery(args []string) string {
	return strings.TrimSpace(strings.Join(args, " "))
}

func searchCommand() *urfavecli.Command {
	return &urfavecli.Command{
		Name:      "search",
		Usage:     "Search locations or happenings",
		ArgsUsage: "<location|happening> [query...]",
		Flags:     searchFlags(),
		Action: func(c *urfavecli.Context) error {
			kind, req, err := searchArgs(c)
			if err != nil {
				return err
			}
			format, err := cli.ParseOutputFormat(c.String("output"))
			if err != nil {
				return err
			}
			ctx := c.Context
			var resp *models.SearchResponse
			if url := c.String("server"); url != "" {
				resp, err = cli.NewClient(url).Search(ctx, kind, req)
			} else {
				components, cerr := initializeComponents(ctx, appConfig(c), appLogger(c))
				if cerr != nil {
					return cerr
				}
				defer components.Close()
				resp, err = components.Engine.Search(ctx, kind, req)
			}
			if err != nil {
				return fmt.Errorf("search failed: %w", err)
			}
			return cli.WriteSearchResults(c.App.Writer, resp, format)
		},
	}
}

func explainCommand() *urfavecli.Command {
	return &urfavecli.Command{
		Name:      "explain",
		Usage:     "Show the SQL a search compiles to",
		ArgsUsage: "<location|happening> [query...]",
		Flags:     searchFlags(),
		Action: func(c *urfavecli.Context) error {
			kind, req, err := searchArgs(c)
			if err != nil {
				return err
			}
			format, err := cli.ParseOutputFormat(c.String("output"))
			if err != nil {
				return err
			}
			ctx := c.Context
			var resp *models.ExplainResponse
			if url := c.String("server"); url != "" {
				resp, err = cli.NewClient(url).Explain(ctx, kind, req)
			} else {
				components, cerr := initializeComponents(ctx, appConfig(c), appLogger(c))
				if cerr != nil {
					return cerr
				}
				defer components.Close()
				resp, err = components.Engine.Explain(kind, req)
			}
			if err != nil {
				return fmt.Errorf("explain failed: %w", err)
			}
			return cli.WriteExplain(c.App.Writer, resp, format)
		},
	}
}

func importCommand() *urfavecli.Command {
	return &urfavecli.Command{
		Name:      "import",
		Usage:     "Import seed files or directories of seed files",
		ArgsUsage: "<path...>",
		Flags: []urfavecli.Flag{
			&urfavecli.BoolFlag{Name: "recursive", Aliases: []string{"r"}, Value: true, Usage: "descend into subdirectories"},
			&urfavecli.StringFlag{Name: "output", Value: string(cli.OutputText), Usage: "output format: text, compact, json"},
			&urfavecli.StringFlag{Name: "server", Usage: "server URL; when set, files are imported by the server", EnvVars: []string{"GATHERINGS_SERVER"}},
		},
		Action: func(c *urfavecli.Context) error {
			if c.NArg() < 1 {
				return fmt.Errorf("usage: gatherings import [flags] <path...>")
			}
			format, err := cli.ParseOutputFormat(c.String("output"))
			if err != nil {
				return err
			}
			ctx := c.Context
			var results []*importer.Result
			if url := c.String("server"); url != "" {
				client := cli.NewClient(url)
				for _, p := range c.Args().Slice() {
					abs, err := filepath.Abs(p)
					if err != nil {
						return err
					}
					res, err := client.ImportFile(ctx, abs)
					if err != nil {
						return fmt.Errorf("import %s: %w", p, err)
					}
					results = append(results, res)
				}
				return cli.WriteImportResults(c.App.Writer, results, format)
			}

			components, err := initializeComponents(ctx, appConfig(c), appLogger(c))
			if err != nil {
				return err
			}
			defer components.Close()
			results, err = importPaths(ctx, components.Importer, c.Args().Slice(), c.Bool("recursive"))
			if werr := cli.WriteImportResults(c.App.Writer, results, format); werr != nil && err == nil {
				err = werr
			}
			return err
		},
	}
}

// importPaths imports each path, which may be a file or a directory.
func importPaths(ctx context.Context, imp *importer.Importer, paths []string, recursive bool) ([]*importer.Result, error) {
	var results []*importer.Result
	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil {
			return results, err
		}
		if info.IsDir() {
			res, err := imp.ImportDirectory(ctx, p, recursive)
			results = append(results, res...)
			if err != nil {
				return results, err
			}
			continue
		}
		res, err := imp.ImportFile(ctx, p)
		if err != nil {
			return results, err
		}
		results = append(results, res)
	}
	return results, nil
}

func removeCommand() *urfavecli.Command {
	return &urfavecli.Command{
		Name:      "remove",
		Usage:     "Delete the records imported from seed files",
		ArgsUsage: "<path...>",
		Action: func(c *urfavecli.Context) error {
			if c.NArg() < 1 {
				return fmt.Errorf("usage: gatherings remove <path...>")
			}
			ctx := c.Context
			components, err := initializeComponents(ctx, appConfig(c), appLogger(c))
			if err != nil {
				return err
			}
			defer components.Close()
			for _, p := range c.Args().Slice() {
				n, err := components.Importer.RemoveFile(ctx, p)
				if err != nil {
					return fmt.Errorf("remove %s: %w", p, err)
				}
				fmt.Fprintf(c.App.Writer, "%s: %d records removed\n", p, n)
			}
			return nil
		},
	}
}

func watchCommand() *urfavecli.Command {
	return &urfavecli.Command{
		Name:      "watch",
		Usage:     "Import seed files as they change, without serving HTTP",
		ArgsUsage: "[directory...]",
		Action: func(c *urfavecli.Context) error {
			cfg, logger := appConfig(c), appLogger(c)
			dirs := cfg.Import.Directories
			if c.NArg() > 0 {
				dirs = c.Args().Slice()
			}
			if len(dirs) == 0 {
				return fmt.Errorf("no directories to watch; pass them as arguments or set import.directories")
			}
			ctx, stop := signalContext()
			defer stop()

			components, err := initializeComponents(ctx, cfg, logger)
			if err != nil {
				return err
			}
			defer components.Close()

			w := watcher.New(components.Importer, dirs, cfg.Import.Extensions,
				cfg.Import.RecursiveOrDefault(), watcher.WithLogger(logger))
			if err := w.Start(ctx); err != nil {
				return fmt.Errorf("failed to start watcher: %w", err)
			}
			defer w.Stop()
			w.SyncExistingFiles()
			logger.Info("Watching", zap.Strings("directories", w.Directories()))
			<-ctx.Done()
			return nil
		},
	}
}

func statusCommand() *urfavecli.Command {
	return &urfavecli.Command{
		Name:  "status",
		Usage: "Show record counts, disk usage and configuration",
		Flags: []urfavecli.Flag{
			&urfavecli.StringFlag{Name: "output", Value: string(cli.OutputText), Usage: "output format: text, json"},
			&urfavecli.StringFlag{Name: "server", Usage: "server URL; when set, status is read from the server", EnvVars: []string{"GATHERINGS_SERVER"}},
		},
		Action: func(c *urfavecli.Context) error {
			format, err := cli.ParseOutputFormat(c.String("output"))
			if err != nil {
				return err
			}
			ctx := c.Context
			var st *cli.Status
			if url := c.String("server"); url != "" {
				st, err = cli.NewClient(url).Status(ctx)
				if err != nil {
					return fmt.Errorf("status failed: %w", err)
				}
			} else {
				components, err := initializeComponents(ctx, appConfig(c), appLogger(c))
				if err != nil {
					return err
				}
				defer components.Close()
				st, err = localStatus(ctx, appConfig(c), components.Storage)
				if err != nil {
					return err
				}
			}
			return cli.WriteStatus(c.App.Writer, st, format)
		},
	}
}

// localStatus builds the status report from the database directly.
func localStatus(ctx context.Context, cfg *config.Config, store *storage.SQLiteStorage) (*cli.Status, error) {
	locs, err := store.CountLocations(ctx)
	if err != nil {
		return nil, fmt.Errorf("count locations: %w", err)
	}
	haps, err := store.CountHappenings(ctx)
	if err != nil {
		return nil, fmt.Errorf("count happenings: %w", err)
	}
	st := &cli.Status{
		Locations:  locs,
		Happenings: haps,
		Config: &cli.StatusConfig{
			DatabasePath:      cfg.Storage.DatabasePath,
			DefaultLimit:      cfg.Search.DefaultLimit,
			Timezone:          cfg.Search.Timezone,
			ImportDirectories: cfg.Import.Directories,
			ImportExtensions:  cfg.Import.Extensions,
			MetricsEnabled:    cfg.Metrics.EnabledOrDefault(),
		},
	}
	if n, err := store.DatabaseBytes(); err == nil {
		st.DatabaseBytes = &n
	}
	if n, err := storage.ImportBytes(cfg.Import.Directories, cfg.Import.Extensions); err == nil {
		st.ImportBytes = &n
	}
	return st, nil
}
