package server

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/gzip"
	"github.com/gin-contrib/logger"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	ginSwagger "github.com/swaggo/gin-swagger"
	"github.com/swaggo/gin-swagger/swaggerFiles"
	"go.elastic.co/apm/module/apmgin"

	_ "github.com/taules/taules/docs"

	tablesController "github.com/taules/taules/internal/api/controllers/tables"
	"github.com/taules/taules/internal/config"
	"github.com/taules/taules/internal/domain/policy"
	"github.com/taules/taules/internal/domain/storage"
	domainTable "github.com/taules/taules/internal/domain/table"
	"github.com/taules/taules/internal/infra/apm/tracing"
	"github.com/taules/taules/internal/infra/bbolt"
	"github.com/taules/taules/internal/infra/cron/purge"
	esCommon "github.com/taules/taules/internal/infra/elasticsearch/common"
	"github.com/taules/taules/internal/infra/elasticsearch/index"
	esRecords "github.com/taules/taules/internal/infra/elasticsearch/records"
	"github.com/taules/taules/internal/infra/memory"
	"github.com/taules/taules/internal/infra/metrics"
	"github.com/taules/taules/internal/infra/postgres"
	"github.com/taules/taules/internal/infra/server/auth"
	"github.com/taules/taules/internal/infra/server/routing"
	tablesRoutes "github.com/taules/taules/internal/infra/server/routing/tables"
)

var (
	fallbackPageSize        = uint(50)
	fallbackMaxPageSize     = uint(1000)
	fallbackPurgeInterval   = 1 * time.Hour
	fallbackShutdownTimeout = 10 * time.Second
)

// Components holds everything a running server is made of, fully wired.
type Components struct {
	Config *config.App

	ginEngine *gin.Engine
	repo      storage.Repository
	purger    purge.Purger
	closers   []io.Closer
}

// NewComponents builds the server from config: storage backend, table
// definitions with their policies, authentication, metrics, routes and the
// purge job. The backend's setup routines (index templates, schema
// migrations) are run here, so an unreachable or unprepared backend fails
// fast instead of mid-request.
func NewComponents(appConfig *config.App) (*Components, error) {
	ctx := context.Background()

	repo, setup, closers, err := buildStorage(appConfig)
	if err != nil {
		return nil, err
	}
	if err := setup.RunIfNeeded(ctx); err != nil {
		return nil, fmt.Errorf("storage setup failed: %w", err)
	}
	if err := setup.Check(ctx); err != nil {
		return nil, fmt.Errorf("storage setup check failed: %w", err)
	}

	definitions, err := buildDefinitions(appConfig)
	if err != nil {
		return nil, err
	}

	authenticator := auth.NewAuthenticator(appConfig.Auth)
	appMetrics := metrics.NewMetrics(nil)
	controller := tablesController.New(repo, definitions)
	engine := buildGinEngine(authenticator, controller, appMetrics, repo)

	var purger purge.Purger
	if retentions := buildRetentions(definitions); len(retentions) > 0 {
		interval := appConfig.Purge.RunInterval
		if interval <= 0 {
			interval = fallbackPurgeInterval
		}
		purger = purge.NewPurger(repo, retentions, interval, tracing.NewTracer(), appMetrics)
	}

	return &Components{
		Config:    appConfig,
		ginEngine: engine,
		repo:      repo,
		purger:    purger,
		closers:   closers,
	}, nil
}

// Handler exposes the HTTP surface, for tests that drive the server without
// binding a port.
func (c *Components) Handler() http.Handler {
	return c.ginEngine
}

// Run serves until SIGINT or SIGTERM, then drains in-flight requests within
// the configured shutdown timeout.
func (c *Components) Run() {
	srv := &http.Server{
		Addr:    c.Config.BindAddress,
		Handler: c.ginEngine,
	}

	if c.purger != nil {
		c.purger.Start()
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Server failed to start")
		}
	}()
	log.Info().Str("address", c.Config.BindAddress).Msg("Serving tables")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("Shutting down server")

	if c.purger != nil {
		c.purger.Stop()
	}

	shutdownTimeout := c.Config.ShutdownTimeout
	if shutdownTimeout <= 0 {
		shutdownTimeout = fallbackShutdownTimeout
	}
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("Server forced to shut down")
	}
	c.closeStorage()
	log.Info().Msg("Server exited")
}

func (c *Components) closeStorage() {
	for _, closer := range c.closers {
		if err := closer.Close(); err != nil {
			log.Error().Err(err).Msg("Failed to close a storage handle")
		}
	}
}

// RunSetup prepares the configured storage backend and returns: index
// templates for Elasticsearch, schema migrations for Postgres, nothing for
// the embedded backends. The server runs the same routines on boot; a
// separate invocation is for when the serving process must not own schema
// changes.
func RunSetup(ctx context.Context, appConfig *config.App) error {
	_, setup, closers, err := buildStorage(appConfig)
	if err != nil {
		return err
	}
	defer func() {
		for _, closer := range closers {
			if err := closer.Close(); err != nil {
				log.Error().Err(err).Msg("Failed to close a storage handle")
			}
		}
	}()
	if err := setup.RunIfNeeded(ctx); err != nil {
		return err
	}
	return setup.Check(ctx)
}

// buildGinEngine assembles the HTTP surface. The table routes sit behind the
// authenticator; health, metrics and API docs stay open.
func buildGinEngine(authenticator *auth.Authenticator, controller tablesController.Controller, appMetrics *metrics.Metrics, repo storage.Repository) *gin.Engine {
	if zerolog.GlobalLevel() > zerolog.DebugLevel {
		gin.SetMode(gin.ReleaseMode)
	}
	engine := gin.New()
	engine.Use(logger.SetLogger(), gin.Recovery())
	engine.Use(apmgin.Middleware(engine))
	engine.Use(gzip.Gzip(gzip.DefaultCompression))
	engine.Use(appMetrics.RequestMiddleware(tablesRoutes.TableNamePathKey))
	engine.HandleMethodNotAllowed = true
	engine.NoRoute(routing.NoRoute)
	engine.NoMethod(routing.NoMethod)

	engine.GET("/healthz", routing.NewHealthCheckHandler(repo.Check))
	engine.GET("/metrics", gin.WrapH(promhttp.Handler()))
	engine.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	topLevelRoutesGroup := routing.NewTopLevelRoutesGroup(authenticator, engine)
	tablesHandler := tablesRoutes.RoutesHandler{
		Controller: controller,
		Challenge:  authenticator.Challenge(),
	}
	tablesHandler.RegisterRoutes(topLevelRoutesGroup)
	return engine
}

// buildStorage picks and opens the configured backend. The returned Setup
// knows how to prepare that backend, and the closers release whatever the
// backend holds open.
func buildStorage(appConfig *config.App) (storage.Repository, Setup, []io.Closer, error) {
	storageConf := appConfig.Storage
	switch storageConf.Backend {
	case config.MemoryBackend, "":
		if storageConf.Backend == "" {
			log.Info().Msg("No storage backend configured, records will live in memory only")
		}
		return memory.NewRepo(), noopSetup{}, nil, nil
	case config.BboltBackend:
		if storageConf.Bbolt == nil {
			return nil, nil, nil, fmt.Errorf("storage backend is [%v] but no bbolt settings are present", storageConf.Backend)
		}
		repo, err := bbolt.NewRepo(storageConf.Bbolt.Path)
		if err != nil {
			return nil, nil, nil, err
		}
		return repo, noopSetup{}, []io.Closer{repo}, nil
	case config.PostgresBackend:
		if storageConf.Postgres == nil {
			return nil, nil, nil, fmt.Errorf("storage backend is [%v] but no postgres settings are present", storageConf.Backend)
		}
		repo, err := postgres.NewRepo(storageConf.Postgres.DSN)
		if err != nil {
			return nil, nil, nil, err
		}
		return repo, postgresSetup{repo: repo}, []io.Closer{repo}, nil
	case config.ElasticsearchBackend:
		if storageConf.Elasticsearch == nil {
			return nil, nil, nil, fmt.Errorf("storage backend is [%v] but no elasticsearch settings are present", storageConf.Backend)
		}
		esClient, err := esCommon.NewClient(storageConf.Elasticsearch.ElasticsearchClient)
		if err != nil {
			return nil, nil, nil, err
		}
		repo := esRecords.NewRepo(esClient, *storageConf.Elasticsearch)
		return repo, esSetup{templates: index.DefaultTemplateSetup(esClient)}, nil, nil
	default:
		return nil, nil, nil, fmt.Errorf("unknown storage backend [%v]", storageConf.Backend)
	}
}

// buildDefinitions resolves the configured tables into runtime definitions,
// validating names and policies up front so a bad config never serves.
func buildDefinitions(appConfig *config.App) ([]tablesController.Definition, error) {
	defaultPageSize := appConfig.Defaults.PageSize
	if defaultPageSize == 0 {
		defaultPageSize = fallbackPageSize
	}
	defaultMaxPageSize := appConfig.Defaults.MaxPageSize
	if defaultMaxPageSize == 0 {
		defaultMaxPageSize = fallbackMaxPageSize
	}

	definitions := make([]tablesController.Definition, 0, len(appConfig.Tables))
	seen := make(map[domainTable.Name]bool, len(appConfig.Tables))
	for _, tableConf := range appConfig.Tables {
		name, err := domainTable.NameFromString(tableConf.Name)
		if err != nil {
			return nil, fmt.Errorf("table [%v]: %w", tableConf.Name, err)
		}
		if seen[*name] {
			return nil, fmt.Errorf("table [%v] is declared more than once", tableConf.Name)
		}
		seen[*name] = true

		provider, policyName, err := resolvePolicy(tableConf.Policy)
		if err != nil {
			return nil, fmt.Errorf("table [%v]: %w", tableConf.Name, err)
		}

		def := tablesController.Definition{
			Name:            *name,
			SoftDelete:      tableConf.SoftDelete,
			Policy:          provider,
			PolicyName:      policyName,
			DefaultPageSize: defaultPageSize,
			MaxPageSize:     defaultMaxPageSize,
			PurgeOlderThan:  tableConf.PurgeOlderThan,
		}
		if tableConf.PageSize != nil {
			def.DefaultPageSize = *tableConf.PageSize
		}
		if tableConf.MaxPageSize != nil {
			def.MaxPageSize = *tableConf.MaxPageSize
		}
		if def.DefaultPageSize > def.MaxPageSize {
			return nil, fmt.Errorf("table [%v]: page_size [%d] exceeds max_page_size [%d]", tableConf.Name, def.DefaultPageSize, def.MaxPageSize)
		}
		definitions = append(definitions, def)
	}
	return definitions, nil
}

// Policy kinds as spelled in config files.
const (
	policyOpen        = "open"
	policyRequireAuth = "require_auth"
	policyPersonal    = "personal"
	policyApproval    = "approval"
)

func resolvePolicy(policyConf *config.TablePolicy) (policy.Provider, string, error) {
	if policyConf == nil {
		return policy.Open{}, policyOpen, nil
	}
	switch policyConf.Kind {
	case policyOpen, "":
		return policy.Open{}, policyOpen, nil
	case policyRequireAuth:
		return policy.RequireAuth{AllowAnonymousRead: policyConf.AllowAnonymousRead}, policyRequireAuth, nil
	case policyPersonal:
		if policyConf.OwnerField == "" {
			return nil, "", fmt.Errorf("the [%v] policy needs owner_field", policyPersonal)
		}
		return policy.Personal{OwnerField: policyConf.OwnerField}, policyPersonal, nil
	case policyApproval:
		if policyConf.FlagField == "" {
			return nil, "", fmt.Errorf("the [%v] policy needs flag_field", policyApproval)
		}
		return policy.Approval{FlagField: policyConf.FlagField, OwnerField: policyConf.OwnerField}, policyApproval, nil
	default:
		return nil, "", fmt.Errorf("unknown policy kind [%v]", policyConf.Kind)
	}
}

// buildRetentions collects the purge-eligible tables: soft-delete tables
// with a retention window configured.
func buildRetentions(definitions []tablesController.Definition) []purge.Retention {
	var retentions []purge.Retention
	for _, def := range definitions {
		if def.PurgeOlderThan == nil {
			continue
		}
		if !def.SoftDelete {
			log.Warn().
				Str("table", string(def.Name)).
				Msg("purge_older_than is set but soft_delete is off; nothing will ever be purged")
			continue
		}
		retentions = append(retentions, purge.Retention{
			Table:     def.Name,
			OlderThan: *def.PurgeOlderThan,
		})
	}
	return retentions
}
