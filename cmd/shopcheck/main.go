package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	internalcli "github.com/testathon/shopcheck/internal/cli"
	"github.com/testathon/shopcheck/internal/config"
	"github.com/testathon/shopcheck/internal/database"
	"github.com/testathon/shopcheck/internal/discovery"
	"github.com/testathon/shopcheck/internal/driver"
	"github.com/testathon/shopcheck/internal/fixtures"
	"github.com/testathon/shopcheck/internal/handlers"
	"github.com/testathon/shopcheck/internal/repository"
	"github.com/testathon/shopcheck/internal/services"
	"github.com/joho/godotenv"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"
)

var version = "0.1.0"

// replicaBaseURL is the address recorded for runs against the in-memory replica
const replicaBaseURL = "http://replica.local"

// replicaFlag runs a command against the in-process replica instead of a browser
var replicaFlag = &cli.StringFlag{
	Name:  "replica",
	Usage: "drive the in-memory replica storefront (full or live) instead of a browser",
}

// buildLogger creates the process logger; --verbose switches to development output
func buildLogger(c *cli.Context) (*zap.Logger, error) {
	if c.Bool("verbose") {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

func loggerFrom(c *cli.Context) *zap.Logger {
	if log, ok := c.App.Metadata["log"].(*zap.Logger); ok {
		return log
	}
	return zap.NewNop()
}

// loadCatalog loads the embedded fixtures with the sign-in overrides applied
func loadCatalog() (*fixtures.Catalog, error) {
	catalog, err := fixtures.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load fixtures: %w", err)
	}
	config.LoadLoginConfig(os.Getenv).Apply(&catalog.Login)
	return catalog, nil
}

func replicaOptions(mode string) (handlers.StorefrontOptions, error) {
	switch mode {
	case config.ReplicaFull:
		return handlers.StorefrontOptions{FilterPanel: true, Interactive: true}, nil
	case config.ReplicaLiveLike:
		return handlers.LiveLike(), nil
	default:
		return handlers.StorefrontOptions{}, fmt.Errorf("unknown replica mode %q", mode)
	}
}

// buildLauncher starts the configured browser, or the replica when --replica is set
func buildLauncher(c *cli.Context, cfg *config.SuiteConfig, catalog *fixtures.Catalog) (driver.Launcher, string, error) {
	if mode := c.String("replica"); mode != "" {
		opts, err := replicaOptions(mode)
		if err != nil {
			return nil, "", err
		}
		replica, err := handlers.NewReplica(catalog, opts)
		if err != nil {
			return nil, "", fmt.Errorf("failed to build replica: %w", err)
		}
		return replica.Launcher(catalog.Login.Path), "replica-" + mode, nil
	}

	launcher, err := driver.Launch(c.Context, cfg.Driver, cfg.LaunchOptions())
	if err != nil {
		return nil, "", fmt.Errorf("failed to launch %s: %w", cfg.Driver, err)
	}
	return launcher, cfg.Driver, nil
}

// buildRunService persists runs in Postgres when it is configured and keeps
// them in memory otherwise. The returned func closes the database.
func buildRunService(log *zap.Logger) (services.RunService, func(), error) {
	if !config.PostgresConfigured(os.Getenv) {
		log.Info("postgres not configured, keeping runs in memory")
		return services.NewRunService(services.NewMemoryRunRepository()), func() {}, nil
	}

	if err := database.Connect(); err != nil {
		return nil, nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if err := database.RunMigrations(); err != nil {
		database.Close()
		return nil, nil, fmt.Errorf("failed to run database migrations: %w", err)
	}
	log.Info("connected to database")
	return services.NewRunService(repository.NewRunRepository()), func() { database.Close() }, nil
}

// buildSuiteDependencies creates everything a suite run needs. The returned
// func releases the browser and the database.
func buildSuiteDependencies(c *cli.Context) (services.SuiteDependencies, func(), error) {
	var deps services.SuiteDependencies
	log := loggerFrom(c)

	cfg, err := config.LoadSuiteConfig(os.Getenv)
	if err != nil {
		return deps, nil, fmt.Errorf("invalid suite configuration: %w", err)
	}
	if c.IsSet("workers") {
		cfg.Workers = c.Int("workers")
	}
	if c.IsSet("seed") {
		cfg.Seed = c.Uint64("seed")
	}

	catalog, err := loadCatalog()
	if err != nil {
		return deps, nil, err
	}

	launcher, driverName, err := buildLauncher(c, cfg, catalog)
	if err != nil {
		return deps, nil, err
	}

	runs, closeDB, err := buildRunService(log)
	if err != nil {
		launcher.Close()
		return deps, nil, err
	}

	options := cfg.PageOptions(catalog.SuiteConfig)
	if c.String("replica") != "" {
		options.BaseURL = replicaBaseURL
	}

	deps = services.SuiteDependencies{
		Launcher:   launcher,
		DriverName: driverName,
		Options:    options,
		LoginPath:  catalog.Login.Path,
		Catalog:    catalog,
		Probe:      services.NewProbeService(log.Named("probe")),
		Runs:       runs,
		Log:        log,
		Workers:    cfg.Workers,
		Seed:       cfg.Seed,
	}
	cleanup := func() {
		if err := launcher.Close(); err != nil {
			log.Warn("failed to close browser", zap.Error(err))
		}
		closeDB()
	}
	return deps, cleanup, nil
}

// RunCommand returns the run command
func RunCommand() *cli.Command {
	return &cli.Command{
		Name:  "run",
		Usage: "Probe the storefront and run the scenario suite",
		Flags: []cli.Flag{
			&cli.StringSliceFlag{Name: "scenario", Aliases: []string{"s"}, Usage: "run only scenarios whose name starts with `PREFIX` (repeatable)"},
			&cli.IntFlag{Name: "workers", Aliases: []string{"w"}, Usage: "scenarios running at once"},
			&cli.Uint64Flag{Name: "seed", Usage: "seed for the random filter scenario"},
			&cli.BoolFlag{Name: "list", Usage: "print the selected scenario names and exit"},
			replicaFlag,
		},
		Action: func(c *cli.Context) error {
			catalog, err := loadCatalog()
			if err != nil {
				return err
			}
			scenarios := services.SelectScenarios(services.DefaultScenarios(catalog), c.StringSlice("scenario"))
			if c.Bool("list") {
				for _, s := range scenarios {
					fmt.Fprintln(c.App.Writer, s.Name)
				}
				return nil
			}

			ctx, stop := internalcli.SignalContext(c.Context)
			defer stop()

			deps, cleanup, err := buildSuiteDependencies(c)
			if err != nil {
				return err
			}
			defer cleanup()

			return internalcli.RunSuite(ctx, services.NewSuiteRunner(deps), scenarios, c.App.Writer)
		},
	}
}

// ProbeCommand returns the probe command
func ProbeCommand() *cli.Command {
	return &cli.Command{
		Name:  "probe",
		Usage: "Report which filter-panel affordances the storefront has",
		Flags: []cli.Flag{replicaFlag},
		Action: func(c *cli.Context) error {
			ctx, stop := internalcli.SignalContext(c.Context)
			defer stop()

			deps, cleanup, err := buildSuiteDependencies(c)
			if err != nil {
				return err
			}
			defer cleanup()

			return internalcli.RunProbe(ctx, services.NewSuiteRunner(deps), c.App.Writer)
		},
	}
}

// DiscoverCommand returns the discover command
func DiscoverCommand() *cli.Command {
	return &cli.Command{
		Name:  "discover",
		Usage: "Log which candidate selectors match on the storefront",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "static", Usage: "fetch the server-rendered HTML instead of driving a browser"},
			replicaFlag,
		},
		Action: func(c *cli.Context) error {
			ctx, stop := internalcli.SignalContext(c.Context)
			defer stop()

			log := loggerFrom(c)
			cfg, err := config.LoadSuiteConfig(os.Getenv)
			if err != nil {
				return fmt.Errorf("invalid suite configuration: %w", err)
			}
			catalog, err := loadCatalog()
			if err != nil {
				return err
			}
			options := cfg.PageOptions(catalog.SuiteConfig)

			if c.Bool("static") {
				discoverer := discovery.NewStaticDiscoverer(options.PageLoadTimeout, log.Named("discovery"))
				mode := c.String("replica")
				if mode == "" {
					return internalcli.RunStaticDiscover(ctx, discoverer, cfg.BaseURL+"/", c.App.Writer)
				}
				deps, err := replicaServerDependencies(catalog, mode, log)
				if err != nil {
					return err
				}
				return internalcli.RunStaticDiscoverReplica(ctx, discoverer, deps, c.App.Writer)
			}

			launcher, _, err := buildLauncher(c, cfg, catalog)
			if err != nil {
				return err
			}
			defer launcher.Close()

			if c.String("replica") != "" {
				options.BaseURL = replicaBaseURL
			}
			discoverer := discovery.NewDiscoverer(options, log.Named("discovery"))
			return internalcli.RunDiscover(ctx, launcher, discoverer, c.App.Writer)
		},
	}
}

// HistoryCommand returns the history command
func HistoryCommand() *cli.Command {
	return &cli.Command{
		Name:  "history",
		Usage: "List recorded runs, or the findings of one run",
		Flags: []cli.Flag{
			&cli.IntFlag{Name: "limit", Value: 20, Usage: "runs to list"},
			&cli.StringFlag{Name: "run", Usage: "show the findings of run `ID`"},
		},
		Action: func(c *cli.Context) error {
			if !config.PostgresConfigured(os.Getenv) {
				return errors.New("history needs a configured Postgres database")
			}
			runs, closeDB, err := buildRunService(loggerFrom(c))
			if err != nil {
				return err
			}
			defer closeDB()

			return internalcli.RunHistory(runs, c.String("run"), c.Int("limit"), c.App.Writer)
		},
	}
}

// ServeCommand returns the serve command
func ServeCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Serve the replica storefront over HTTP",
		Action: func(c *cli.Context) error {
			serverConfig, err := config.LoadServerConfig(os.Getenv)
			if err != nil {
				return err
			}
			catalog, err := loadCatalog()
			if err != nil {
				return err
			}
			deps, err := replicaServerDependencies(catalog, serverConfig.Mode, loggerFrom(c))
			if err != nil {
				return err
			}
			deps.ServerConfig = serverConfig
			return internalcli.RunServe(deps)
		},
	}
}

// replicaServerDependencies builds the HTTP handlers of the replica in mode
func replicaServerDependencies(catalog *fixtures.Catalog, mode string, log *zap.Logger) (internalcli.ServerDependencies, error) {
	opts, err := replicaOptions(mode)
	if err != nil {
		return internalcli.ServerDependencies{}, err
	}
	replica, err := handlers.NewReplica(catalog, opts)
	if err != nil {
		return internalcli.ServerDependencies{}, fmt.Errorf("failed to build replica: %w", err)
	}
	return internalcli.ServerDependencies{
		ServerConfig:      config.ServerConfig{Mode: mode},
		LoginPath:         catalog.Login.Path,
		StorefrontHandler: replica.Storefront,
		SignInHandler:     replica.SignIn,
		Log:               log,
	}, nil
}

func main() {
	// Load environment variables from .env file
	envErr := godotenv.Load()

	app := &cli.App{
		Name:    "shopcheck",
		Usage:   "UI verification suite for the testathon.live storefront",
		Version: version,
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "verbose", Aliases: []string{"v"}, Usage: "development logging at debug level"},
		},
		Before: func(c *cli.Context) error {
			log, err := buildLogger(c)
			if err != nil {
				return fmt.Errorf("failed to build logger: %w", err)
			}
			if envErr != nil {
				log.Debug(".env file not found, using environment variables")
			}
			c.App.Metadata = map[string]any{"log": log}
			return nil
		},
		After: func(c *cli.Context) error {
			_ = loggerFrom(c).Sync()
			return nil
		},
		Commands: []*cli.Command{
			RunCommand(),
			ProbeCommand(),
			DiscoverCommand(),
			HistoryCommand(),
			ServeCommand(),
		},
	}

	if err := app.RunContext(context.Background(), os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
