// Package app wires configuration, storage, domain services and the HTTP
// server into a runnable application.
package app

import (
	"context"
	"net/http"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/app"
	"github.com/go-faster/sdk/zctx"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"

	"github.com/avelours/orderdesk/internal/domain/order"
	"github.com/avelours/orderdesk/internal/domain/report"
	"github.com/avelours/orderdesk/internal/handler"
	"github.com/avelours/orderdesk/internal/notify"
	"github.com/avelours/orderdesk/internal/repository"
	"github.com/avelours/orderdesk/pkg/health"
	"github.com/avelours/orderdesk/pkg/httpmiddleware"
)

// Run creates all dependencies, starts the HTTP server, and handles graceful
// shutdown. It is the single wiring point for the application.
func Run(ctx context.Context, lg *zap.Logger, m *app.Telemetry, cfg *Config) error {
	lg.Info("Initializing", zap.String("addr", cfg.Addr))

	loc, err := time.LoadLocation(cfg.TimeZone)
	if err != nil {
		return errors.Wrapf(err, "load time zone %q", cfg.TimeZone)
	}
	pricingCfg, err := pricingConfig(cfg.Points)
	if err != nil {
		return errors.Wrap(err, "points config")
	}

	// PostgreSQL pool + migrations.
	pool, err := repository.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		return errors.Wrap(err, "create db pool")
	}
	defer pool.Close()

	if err := repository.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	// Health check service.
	healthSvc := health.New()
	healthSvc.AddReadinessCheck("postgres", 5*time.Second, func(ctx context.Context) error {
		return pool.Ping(ctx)
	})
	healthSvc.AddLivenessCheck("goroutines", time.Second, health.GoroutineCountCheck(10000))
	healthSvc.Start(ctx, 10*time.Second)
	healthSvc.SetReady(true)

	// Storage layer.
	calculator := order.NewCalculator(pricingCfg)
	customerRepo := repository.NewCustomerRepository(pool)
	variantRepo := repository.NewVariantRepository(pool)
	couponRepo := repository.NewCouponRepository(pool)
	orderRepo := repository.NewOrderRepository(pool, calculator)
	apikeyRepo := repository.NewAPIKeyRepository(pool)
	reportStore := repository.NewReportStore(pool)

	// Optional Kafka notification sink.
	var notifier order.Notifier
	if len(cfg.Kafka.Brokers) > 0 {
		publisher := notify.NewStatusPublisher(cfg.Kafka.Brokers, cfg.Kafka.Topic)
		defer func() {
			if err := publisher.Close(); err != nil {
				lg.Warn("Kafka publisher close error", zap.Error(err))
			}
		}()
		notifier = publisher
		lg.Info("Status notifications enabled",
			zap.Strings("brokers", cfg.Kafka.Brokers),
			zap.String("topic", cfg.Kafka.Topic),
		)
	}

	// Domain services.
	machine := order.NewMachine(order.DefaultTransitions())
	orderService := order.NewService(
		customerRepo, variantRepo, couponRepo, orderRepo,
		machine, calculator, notifier,
	)
	reportService := report.NewService(reportStore, report.Config{
		Location:            loc,
		WeeklyThresholdDays: cfg.Reports.WeeklyThresholdDays,
		TopSellers:          cfg.Reports.TopSellers,
	})

	// HTTP handlers.
	securityHandler := handler.NewSecurityHandler(apikeyRepo, []byte(cfg.APIKeyPepper))
	h := handler.NewHandler(orderService, reportService, securityHandler, loc)

	mux := http.NewServeMux()
	mux.HandleFunc("/livez", healthSvc.LiveEndpoint)
	mux.HandleFunc("/readyz", healthSvc.ReadyEndpoint)
	h.Register(mux)

	api := otelhttp.NewHandler(mux, "orderdesk-api",
		otelhttp.WithTracerProvider(m.TracerProvider()),
		otelhttp.WithMeterProvider(m.MeterProvider()),
	)

	server := &http.Server{
		ReadHeaderTimeout: time.Second,
		ReadTimeout:       5 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       120 * time.Second,
		MaxHeaderBytes:    1 << 20,
		Addr:              cfg.Addr,
		Handler: httpmiddleware.Wrap(api,
			httpmiddleware.Recovery(),
			httpmiddleware.CORS(httpmiddleware.CORSConfig{
				AllowOrigins:     cfg.CORS.Origins,
				AllowHeaders:     []string{"Content-Type", "Authorization", "api_key"},
				AllowCredentials: cfg.CORS.AllowCredentials,
				MaxAge:           86400,
			}),
			httpmiddleware.RateLimitWithCleanup(ctx, httpmiddleware.RateLimitConfig{
				Max:    cfg.RateLimit.Max,
				Window: cfg.RateLimit.Window,
			}),
			httpmiddleware.RequestID(),
			httpmiddleware.InjectLogger(zctx.From(ctx)),
			httpmiddleware.LogRequests(),
		),
	}

	// Graceful shutdown: wait for context cancellation, drain, then stop.
	shutdownDone := make(chan struct{})
	go func() {
		<-ctx.Done()
		healthSvc.SetReady(false)
		lg.Info("Readiness set to false, draining", zap.Duration("delay", cfg.Graceful.ReadinessDelay))
		time.Sleep(cfg.Graceful.ReadinessDelay)

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Graceful.ShutdownTimeout)
		defer cancel()

		lg.Info("Shutting down server", zap.Duration("timeout", cfg.Graceful.ShutdownTimeout))
		if err := server.Shutdown(shutdownCtx); err != nil {
			lg.Error("Server shutdown error", zap.Error(err))
		}
		healthSvc.Stop()
		close(shutdownDone)
	}()

	lg.Info("Server listening", zap.String("addr", cfg.Addr))
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return errors.Wrap(err, "server")
	}
	<-shutdownDone
	return nil
}

// pricingConfig parses the decimal pricing knobs from their string form.
func pricingConfig(cfg PointsConfig) (order.PricingConfig, error) {
	rate, err := decimal.NewFromString(cfg.Rate)
	if err != nil {
		return order.PricingConfig{}, errors.Wrapf(err, "parse rate %q", cfg.Rate)
	}
	divisor, err := decimal.NewFromString(cfg.AccrualDivisor)
	if err != nil {
		return order.PricingConfig{}, errors.Wrapf(err, "parse accrual divisor %q", cfg.AccrualDivisor)
	}
	return order.PricingConfig{
		PointsRate:           rate,
		PointsAccrualDivisor: divisor,
	}, nil
}
