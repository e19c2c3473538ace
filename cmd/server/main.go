package main

import (
	"context"
	stderrors "errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog/log"

	"docketflow/internal/api"
	"docketflow/internal/api/handlers"
	"docketflow/internal/api/middleware"
	"docketflow/internal/engine/company"
	"docketflow/internal/engine/compliance"
	"docketflow/internal/engine/events"
	"docketflow/internal/engine/extraction"
	"docketflow/internal/engine/ingestion"
	"docketflow/internal/engine/team"
	"docketflow/internal/engine/uploads"
	"docketflow/internal/engine/webhooks"
	"docketflow/internal/pkg/logger"
	"docketflow/internal/platform/audit"
	"docketflow/internal/platform/auth"
	"docketflow/internal/platform/authz"
	"docketflow/internal/platform/cache"
	"docketflow/internal/platform/config"
	"docketflow/internal/platform/database"
	"docketflow/internal/platform/repositories"
	"docketflow/internal/platform/storage"
	_ "docketflow/internal/platform/storage/azure"
	_ "docketflow/internal/platform/storage/gcs"
	"docketflow/internal/platform/storage/local"
	_ "docketflow/internal/platform/storage/s3"
	"docketflow/internal/workers"
)

func main() {
	configPath := flag.String("config", "configs/config.yaml", "Path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger.Init(cfg.Logging)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Every backend is optional at boot; missing ones degrade the routes that need them.
	db := openDatabase(cfg.Database)
	if db != nil {
		defer db.Close()
	}

	rdb, err := cache.NewClient(ctx, cfg.Redis)
	if err != nil {
		log.Warn().Err(err).Msg("redis unavailable, using in-process rate limiting without ingestion locks")
		rdb = nil
	}
	if rdb != nil {
		defer rdb.Close()
	}

	objects, err := storage.New(cfg.Storage)
	if err != nil {
		log.Fatal().Err(err).Str("backend", cfg.Storage.Backend).Msg("failed to configure storage")
	}

	// Repositories
	tenantRepo := repositories.NewTenantRepository(db)
	membershipRepo := repositories.NewMembershipRepository(db)
	docketRepo := repositories.NewDocketRepository(db)
	alertRepo := repositories.NewAlertRepository(db)
	webhookRepo := repositories.NewWebhookRepository(db)
	auditLog := audit.NewLogger(db)

	authorizer := authz.New(membershipRepo)

	// Services
	publisher, closePublishers := buildPublishers(ctx, cfg.Events, webhookRepo)
	defer closePublishers()

	var extractor extraction.Extractor
	if ex, err := extraction.New(ctx, cfg.Extraction, objects); err != nil {
		log.Warn().Err(err).Msg("extraction service not configured, docket processing will fail")
	} else {
		extractor = ex
	}

	var locker ingestion.Locker
	if l := cache.NewLocker(rdb); l != nil {
		locker = l
	}

	issuer := uploads.NewIssuer(objects, cfg.Storage)
	orchestrator := ingestion.NewOrchestrator(docketRepo, alertRepo, extractor, locker, publisher, auditLog, ingestion.Config{
		Category:          issuer.Category(),
		ExtractionTimeout: cfg.Extraction.Timeout,
		Thresholds:        compliance.ThresholdsFrom(cfg.Compliance),
	})
	records := ingestion.NewRecords(docketRepo, auditLog)
	alertSvc := compliance.NewService(alertRepo, authorizer)
	companySvc := company.NewService(tenantRepo, membershipRepo, authorizer, auditLog)
	teamSvc := team.NewService(membershipRepo, authorizer, auditLog)
	registry := webhooks.NewRegistry(webhookRepo, auditLog)

	if db != nil && cfg.Events.Webhooks.Enabled {
		workers.Start(ctx, workers.PauseFailingWebhooks(webhookRepo, cfg.Events.Webhooks.MaxFailures))
	}

	gateway, err := buildGateway(ctx, cfg.Auth)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to configure authentication")
	}

	deps := &api.Dependencies{
		HealthHandler:  handlers.NewHealthHandler(db, rdb),
		MetricsHandler: handlers.NewMetricsHandler(),
		UploadHandler:  handlers.NewUploadHandler(issuer, authorizer),
		DocketHandler:  handlers.NewDocketHandler(orchestrator, records, authorizer),
		AlertHandler:   handlers.NewAlertHandler(alertSvc, authorizer),
		CompanyHandler: handlers.NewCompanyHandler(companySvc),
		TeamHandler:    handlers.NewTeamHandler(teamSvc),
		WebhookHandler: handlers.NewWebhookHandler(registry),
		AuditHandler:   handlers.NewAuditHandler(auditLog),
		SessionHandler: handlers.NewSessionHandler(membershipRepo),

		AuthMiddleware:       middleware.NewAuthMiddleware(gateway, auth.NewServiceKeyVerifier(cfg.Auth.ServiceKeyHash)),
		MembershipMiddleware: middleware.NewMembershipMiddleware(authorizer),
		RateLimiter:          middleware.NewRateLimiter(rdb, cfg.RateLimit),
	}
	if lb, ok := objects.(*local.Backend); ok {
		deps.LocalUpload = handlers.NewLocalUploadHandler(lb)
	}

	srv := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      api.NewRouter(deps),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		log.Info().Str("addr", srv.Addr).Str("storage", objects.Name()).Msg("server starting")
		if err := srv.ListenAndServe(); err != nil && !stderrors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("graceful shutdown failed")
	}
}

func openDatabase(cfg config.DatabaseConfig) *sqlx.DB {
	db, err := database.Open(cfg)
	if stderrors.Is(err, database.ErrNotConfigured) {
		log.Warn().Msg("database url not set, running without a store")
		return nil
	}
	if stderrors.Is(err, database.ErrUnreachable) {
		log.Error().Err(err).Msg("database unreachable, skipping migrations")
		return db
	}
	if err != nil {
		log.Error().Err(err).Msg("failed to connect to database, running without a store")
		return nil
	}

	if cfg.AutoMigrate {
		if err := database.Migrate(db, "up"); err != nil {
			log.Fatal().Err(err).Msg("failed to migrate database")
		}
	}
	return db
}

func buildGateway(ctx context.Context, cfg config.AuthConfig) (*auth.Gateway, error) {
	var verifiers []auth.Verifier
	if cfg.JWT.Secret != "" {
		verifiers = append(verifiers, auth.NewTokenService(cfg.JWT))
	}
	if cfg.OIDC.IssuerURL != "" {
		oidc, err := auth.NewOIDCVerifier(ctx, cfg.OIDC)
		if err != nil {
			return nil, err
		}
		verifiers = append(verifiers, oidc)
	}
	if len(verifiers) == 0 {
		log.Warn().Msg("no session verifier configured, every authenticated route will return 401")
	}
	return auth.NewGateway(verifiers...), nil
}

func buildPublishers(ctx context.Context, cfg config.EventsConfig, hooks webhooks.Store) (events.Publisher, func()) {
	var sinks []events.Publisher
	var closers []func() error

	if kp := events.NewKafkaPublisher(cfg.Kafka); kp != nil {
		sinks = append(sinks, kp)
		closers = append(closers, kp.Close)
	}

	ps, err := events.NewPubSubPublisher(ctx, cfg.PubSub)
	if err != nil {
		log.Error().Err(err).Msg("pubsub publisher disabled")
	} else if ps != nil {
		sinks = append(sinks, ps)
		closers = append(closers, ps.Close)
	}

	if cfg.Webhooks.Enabled {
		sinks = append(sinks, webhooks.NewDispatcher(hooks, cfg.Webhooks.Timeout))
	}

	closeAll := func() {
		for _, c := range closers {
			if err := c(); err != nil {
				log.Warn().Err(err).Msg("failed to close event publisher")
			}
		}
	}
	if len(sinks) == 0 {
		return nil, closeAll
	}
	return events.NewMulti(sinks...), closeAll
}
