// Command server runs the custom-domain service: registration and
// verification APIs, certificate lifecycle management, the storefront
// debouncer, and the periodic sweep, behind one HTTP listener.
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

	"golang.org/x/crypto/acme/autocert"
	"golang.org/x/sync/errgroup"

	certmetrics "github.com/kessotolo/ConversationalCommerce-sub002/internal/certificate/metrics"
	"github.com/kessotolo/ConversationalCommerce-sub002/internal/certificate/provider"
	certservice "github.com/kessotolo/ConversationalCommerce-sub002/internal/certificate/service"
	certstore "github.com/kessotolo/ConversationalCommerce-sub002/internal/certificate/store/certificate"
	"github.com/kessotolo/ConversationalCommerce-sub002/internal/customdomain/handler"
	cdmetrics "github.com/kessotolo/ConversationalCommerce-sub002/internal/customdomain/metrics"
	cdmodels "github.com/kessotolo/ConversationalCommerce-sub002/internal/customdomain/models"
	cdservice "github.com/kessotolo/ConversationalCommerce-sub002/internal/customdomain/service"
	"github.com/kessotolo/ConversationalCommerce-sub002/internal/customdomain/store/domainconfig"
	"github.com/kessotolo/ConversationalCommerce-sub002/internal/debounce"
	"github.com/kessotolo/ConversationalCommerce-sub002/internal/events"
	"github.com/kessotolo/ConversationalCommerce-sub002/internal/health"
	healthcache "github.com/kessotolo/ConversationalCommerce-sub002/internal/health/cache"
	healthmetrics "github.com/kessotolo/ConversationalCommerce-sub002/internal/health/metrics"
	"github.com/kessotolo/ConversationalCommerce-sub002/internal/inspector"
	"github.com/kessotolo/ConversationalCommerce-sub002/internal/jwttoken"
	"github.com/kessotolo/ConversationalCommerce-sub002/internal/platform/config"
	"github.com/kessotolo/ConversationalCommerce-sub002/internal/platform/httpserver"
	"github.com/kessotolo/ConversationalCommerce-sub002/internal/platform/logger"
	"github.com/kessotolo/ConversationalCommerce-sub002/internal/platform/middleware"
	"github.com/kessotolo/ConversationalCommerce-sub002/internal/platform/postgres"
	platformredis "github.com/kessotolo/ConversationalCommerce-sub002/internal/platform/redis"
	"github.com/kessotolo/ConversationalCommerce-sub002/internal/sweep"
	sweepmetrics "github.com/kessotolo/ConversationalCommerce-sub002/internal/sweep/metrics"
	httptransport "github.com/kessotolo/ConversationalCommerce-sub002/internal/transport/http"
	httpmetrics "github.com/kessotolo/ConversationalCommerce-sub002/internal/transport/http/metrics"
	"github.com/kessotolo/ConversationalCommerce-sub002/pkg/domain"
	"github.com/kessotolo/ConversationalCommerce-sub002/pkg/platform/tasks"
)

const (
	jwtIssuer   = "convocommerce"
	jwtAudience = "admin-api"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "configuration error: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(cfg.LogLevel)
	slog.SetDefault(log)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil && !errors.Is(err, context.Canceled) {
		log.Error("service exited", "error", err)
		os.Exit(1)
	}
}

// run wires the dependency graph and supervises the long-running pieces.
// Everything it builds is torn down before it returns so os.Exit in main
// never skips a teardown.
func run(ctx context.Context, cfg *config.Config, log *slog.Logger) error {
	apex, err := domain.ParseDomainName(cfg.PlatformApex)
	if err != nil {
		return fmt.Errorf("PLATFORM_APEX: %w", err)
	}

	readyChecks := map[string]httptransport.ReadyCheck{}

	// Stores. Without postgres everything is process-local, which is fine
	// for development and single-node evaluation.
	var domainStore cdservice.DomainStore
	var certificateStore certservice.CertificateStore
	if cfg.PostgresURL != "" {
		db, err := postgres.Open(ctx, cfg.PostgresURL)
		if err != nil {
			return fmt.Errorf("postgres: %w", err)
		}
		defer db.Close()
		domainStore = domainconfig.NewPostgres(db)
		certificateStore = certstore.NewPostgres(db)
		readyChecks["postgres"] = db.PingContext
		log.Info("postgres stores enabled")
	} else {
		domainStore = domainconfig.NewInMemory()
		certificateStore = certstore.NewInMemory()
		log.Warn("POSTGRES_URL not set, using in-memory stores")
	}

	rdb, err := platformredis.New(ctx, cfg.Redis)
	if err != nil {
		return fmt.Errorf("redis: %w", err)
	}
	var healthCache healthcache.Cache = healthcache.NewMemory(cfg.HealthCacheTTL)
	var debounceStore debounce.Store = debounce.NewMemoryStore(cfg.VerificationInterval)
	if rdb != nil {
		defer rdb.Close()
		healthCache = healthcache.NewRedis(rdb.Client, cfg.HealthCacheTTL)
		debounceStore = debounce.NewRedisStore(rdb.Client, cfg.VerificationInterval)
		readyChecks["redis"] = rdb.Health
		log.Info("redis caches enabled")
	}

	// Lifecycle events. Without brokers they stay in process memory, which
	// keeps the emit paths exercised in development.
	var sink events.Sink = events.NewMemorySink()
	if len(cfg.KafkaBrokers) > 0 {
		kafkaSink, err := events.NewKafkaSink(ctx, cfg.KafkaBrokers, cfg.KafkaTopic)
		if err != nil {
			return fmt.Errorf("kafka: %w", err)
		}
		defer kafkaSink.Close()
		readyChecks["kafka"] = kafkaSink.Ping
		sink = kafkaSink
		log.Info("kafka event publishing enabled", "topic", cfg.KafkaTopic)
	}
	publisher := events.NewPublisher(sink,
		events.WithAsyncBuffer(256),
		events.WithPublisherLogger(log),
	)
	defer publisher.Close()

	insp := inspector.NewNetInspector(cfg.ProbeTimeout)

	monitor := health.NewMonitor(insp, healthCache,
		health.WithMonitorLogger(log),
		health.WithMonitorMetrics(healthmetrics.New()),
	)

	// Certificate providers. ACME is always available; the platform CA
	// joins the registry when its endpoint is configured. Domains pick a
	// provider per registration, CERT_PROVIDER names the one that must be
	// up for the process to boot.
	authorize := func(ctx context.Context, host string) error {
		name, err := domain.ParseDomainName(host)
		if err != nil {
			return err
		}
		_, err = domainStore.FindByDomain(ctx, name)
		return err
	}
	providers := provider.NewRegistry()
	acmeProvider := provider.NewACME(
		autocert.DirCache(cfg.ACME.CacheDir),
		cfg.ACME.Email,
		authorize,
		provider.WithACMELogger(log),
	)
	providers.Register(cdmodels.SSLProviderACME, acmeProvider)
	if cfg.Managed.APIURL != "" {
		providers.Register(cdmodels.SSLProviderPlatformManaged, provider.NewPlatformManaged(
			cfg.Managed.APIURL,
			provider.WithPlatformAPIKey(cfg.Managed.APIKey),
			provider.WithPlatformHTTPClient(&http.Client{Timeout: cfg.Managed.Timeout}),
			provider.WithPlatformLogger(log),
		))
	}
	defaultKind, err := providerKind(cfg.CertProvider)
	if err != nil {
		return fmt.Errorf("CERT_PROVIDER: %w", err)
	}
	if _, err := providers.Get(defaultKind); err != nil {
		return fmt.Errorf("CERT_PROVIDER %q is not configured: %w", cfg.CertProvider, err)
	}

	pool := tasks.New(cfg.TaskWorkers, cfg.TaskQueueSize, tasks.WithLogger(log))

	// The scheduler fires renewals through the pool. The closure reads
	// manager lazily; no timer can fire before New below assigns it.
	certMetrics := certmetrics.New()
	var manager *certservice.Manager
	scheduler := certservice.NewRenewalScheduler(func(name domain.DomainName) {
		err := pool.Submit("certificate-renewal", func(taskCtx context.Context) {
			if _, err := manager.Renew(taskCtx, name); err != nil {
				log.ErrorContext(taskCtx, "scheduled renewal failed",
					"domain", name.String(),
					"error", err,
				)
			}
		})
		if err != nil {
			log.Error("could not queue renewal", "domain", name.String(), "error", err)
		}
	},
		certservice.WithSchedulerLogger(log),
		certservice.WithSchedulerMetrics(certMetrics),
	)
	defer scheduler.Stop()

	manager = certservice.New(domainStore, certificateStore, providers,
		certservice.WithManagerLogger(log),
		certservice.WithManagerMetrics(certMetrics),
		certservice.WithScheduler(scheduler),
		certservice.WithManagerEventPublisher(publisher),
		certservice.WithRenewalLead(cfg.RenewalLead),
	)

	domainService := cdservice.New(domainStore, insp, apex,
		cdservice.WithLogger(log),
		cdservice.WithMetrics(cdmetrics.New()),
		cdservice.WithCertificateManager(manager),
		cdservice.WithTaskQueue(pool),
		cdservice.WithEventPublisher(publisher),
	)

	debouncer := debounce.New(debounceStore, domainStore, domainService, pool, cfg.VerificationInterval,
		debounce.WithLogger(log),
		debounce.WithHealthMonitor(monitor),
	)

	sweeper := sweep.New(domainStore, domainService, cfg.SweepInterval,
		sweep.WithLogger(log),
		sweep.WithMetrics(sweepmetrics.New()),
		sweep.WithCertificateManager(manager),
		sweep.WithHealthMonitor(monitor),
		sweep.WithDomainDelay(cfg.SweepDomainDelay),
	)

	// Re-arm renewal timers lost to the restart.
	if n, err := manager.ScheduleRenewals(ctx); err != nil {
		log.Warn("could not restore renewal timers", "error", err)
	} else if n > 0 {
		log.Info("renewal timers restored", "count", n)
	}

	jwtService := jwttoken.New(cfg.JWTSigningKey, jwtIssuer, jwtAudience)
	domainHandler := handler.New(domainService, manager, monitor, log)
	transportMetrics := httpmetrics.New()

	router := httptransport.New(httptransport.Config{
		Logger:          log,
		Domains:         domainHandler,
		AdminGate:       middleware.RequireAdmin(jwtService.Identity, log),
		Debounce:        debouncer.Middleware,
		LatencyObserver: transportMetrics.ObserveRequest,
		ReadyChecks:     readyChecks,
	})

	// The ACME responder answers HTTP-01 challenges arriving on customer
	// domains; everything else falls through to the API router.
	var root http.Handler = router
	if defaultKind == cdmodels.SSLProviderACME {
		root = acmeProvider.HTTPHandler(router)
	}

	server := httpserver.New(cfg.HTTPAddr, root,
		httpserver.WithShutdownTimeout(cfg.ShutdownTimeout),
	)

	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		log.Info("http server listening", "addr", cfg.HTTPAddr, "apex", apex.String())
		return server.Run(groupCtx)
	})
	group.Go(func() error {
		return pool.Run(groupCtx)
	})
	group.Go(func() error {
		return sweeper.Run(groupCtx)
	})

	err = group.Wait()
	log.Info("service stopped")
	return err
}

// providerKind maps the CERT_PROVIDER setting onto the provider enum.
func providerKind(raw string) (cdmodels.SSLProvider, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "letsencrypt", "acme":
		return cdmodels.SSLProviderACME, nil
	case "platform_managed", "platform-managed", "managed":
		return cdmodels.SSLProviderPlatformManaged, nil
	default:
		return "", fmt.Errorf("unknown certificate provider %q", raw)
	}
}
