package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/leandroluk/golem-admin/config"
	"github.com/leandroluk/golem-admin/core"
	"github.com/leandroluk/golem-admin/driver/mongo"
	"github.com/leandroluk/golem-admin/driver/postgres"
	"github.com/leandroluk/golem-admin/geocode"
	"github.com/leandroluk/golem-admin/logger"
	"github.com/leandroluk/golem-admin/metrics"
	"github.com/leandroluk/golem-admin/server"
	"github.com/spf13/cobra"
	"golang.org/x/time/rate"
)

var rootCmd = &cobra.Command{
	Use:          "backoffice",
	Short:        "Model-driven admin back-office",
	SilenceUsage: true,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	var configPath string

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve listings and record changes over HTTP",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			return serve(cmd.Context(), cfg)
		},
	}
	serveCmd.Flags().StringVarP(&configPath, "config", "c", "", "path to the YAML configuration file")

	var catalogPath string
	checkCmd := &cobra.Command{
		Use:   "check",
		Short: "Validate a catalog file and print the filter operators of every field",
		RunE: func(cmd *cobra.Command, args []string) error {
			catalog, err := core.LoadCatalogFile(catalogPath)
			if err != nil {
				return err
			}
			printCatalog(cmd, catalog)
			return nil
		},
	}
	checkCmd.Flags().StringVar(&catalogPath, "catalog", "catalog.yaml", "path to the catalog file")

	catalogCmd := &cobra.Command{
		Use:   "catalog",
		Short: "Inspect the model catalog",
	}
	catalogCmd.AddCommand(checkCmd)

	rootCmd.AddCommand(serveCmd, catalogCmd)
}

func printCatalog(cmd *cobra.Command, catalog *core.Catalog) {
	out := cmd.OutOrStdout()
	for _, model := range catalog.Models() {
		fmt.Fprintf(out, "%s (%s)\n", model.Name, model.Collection)
		for _, field := range model.Fields {
			operatorList := core.OperatorsFor(field.Type)
			if !field.Persisted() {
				operatorList = nil
			}
			names := make([]string, 0, len(operatorList))
			for _, op := range operatorList {
				names = append(names, string(op))
			}
			if len(names) == 0 {
				names = append(names, "-")
			}
			fmt.Fprintf(out, "  %-24s %-10s %s\n", field.Name, field.Type, strings.Join(names, " "))
		}
		for _, association := range model.Associations {
			fmt.Fprintf(out, "  %-24s has_many   %s.%s\n", association.Name, association.Model, association.ForeignKey)
		}
	}
}

func openDriver(ctx context.Context, cfg *config.Config) (core.Driver, error) {
	switch cfg.Database.Backend {
	case config.BackendMongo:
		return mongo.NewMongoDriver(ctx, mongo.Config{
			URI:      cfg.Database.URL,
			Database: cfg.Database.Name,
			Timeout:  cfg.Database.Timeout,
		})
	default:
		return postgres.NewPostgresDriver(ctx, postgres.Config{
			URL:        cfg.Database.URL,
			SearchPath: cfg.Database.Name,
			MaxConns:   cfg.Database.MaxConns,
		})
	}
}

func newGeocoder(cfg config.GeocoderConfig) core.Geocoder {
	switch cfg.Provider {
	case "nominatim":
		return geocode.NewNominatim(cfg.UserAgent,
			geocode.WithEndpoint(cfg.Endpoint),
			geocode.WithRateLimit(rate.Limit(cfg.RateLimit), 1))
	case "static":
		return geocode.NewStatic(cfg.Places)
	}
	return nil
}

func serve(ctx context.Context, cfg *config.Config) error {
	if ctx == nil {
		ctx = context.Background()
	}
	log := logger.Init(logger.Config{Level: cfg.Log.Level, Format: cfg.Log.Format})

	catalog, err := core.LoadCatalogFile(cfg.Catalog)
	if err != nil {
		return err
	}

	connectCtx, cancel := context.WithTimeout(ctx, cfg.Database.Timeout)
	defer cancel()
	driver, err := openDriver(connectCtx, cfg)
	if err != nil {
		return err
	}
	defer driver.Close(context.Background())
	if err := driver.Ping(connectCtx); err != nil {
		return fmt.Errorf("%s: ping: %w", cfg.Database.Backend, err)
	}

	pipeline := &core.Pipeline{}
	pipeline.Use(metrics.Middleware())
	pipeline.Use(core.LoggingMiddleware(log))

	options := []core.CompilerOption{
		core.WithPipeline(pipeline),
		core.WithLogger(log),
		core.WithClauseObserver(metrics.ObserveClause),
	}
	if geocoder := newGeocoder(cfg.Geocoder); geocoder != nil {
		options = append(options, core.WithGeocoder(geocoder))
	}
	compiler := core.NewCompiler(catalog, driver, options...)

	srv := server.New(server.Options{
		Compiler:       compiler,
		Pipeline:       pipeline,
		Logger:         log,
		PerPage:        cfg.Server.PerPage,
		PermittedIPs:   cfg.Server.PermittedIPs,
		ClientIPHeader: cfg.Server.ClientIPHeader,
		Location:       cfg.Location(),
	})
	httpServer := &http.Server{
		Addr:    cfg.Server.Address,
		Handler: srv.Router(),
	}

	serveErr := make(chan error, 1)
	go func() {
		log.Info("back-office listening",
			slog.String("address", cfg.Server.Address),
			slog.String("backend", cfg.Database.Backend),
			slog.Int("models", len(catalog.Models())))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	select {
	case err := <-serveErr:
		return err
	case <-quit:
	}

	log.Info("shutting down")
	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancelShutdown()
	return httpServer.Shutdown(shutdownCtx)
}
