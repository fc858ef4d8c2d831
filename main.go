package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	appcatalog "github.com/shopflow/fulfillment/internal/application/catalog"
	"github.com/shopflow/fulfillment/internal/application/eligibility"
	"github.com/shopflow/fulfillment/internal/application/ledger"
	"github.com/shopflow/fulfillment/internal/application/notification"
	apporder "github.com/shopflow/fulfillment/internal/application/order"
	apppayment "github.com/shopflow/fulfillment/internal/application/payment"
	"github.com/shopflow/fulfillment/internal/config"
	dompay "github.com/shopflow/fulfillment/internal/domain/payment"
	"github.com/shopflow/fulfillment/internal/infrastructure/gateway"
	"github.com/shopflow/fulfillment/internal/infrastructure/id"
	"github.com/shopflow/fulfillment/internal/infrastructure/memory"
	"github.com/shopflow/fulfillment/internal/infrastructure/notify"
	obsprovider "github.com/shopflow/fulfillment/internal/infrastructure/observability"
	"github.com/shopflow/fulfillment/internal/infrastructure/observability/oteltrace"
	"github.com/shopflow/fulfillment/internal/infrastructure/observability/prometrics"
	"github.com/shopflow/fulfillment/internal/infrastructure/observability/zaplogger"
	"github.com/shopflow/fulfillment/internal/infrastructure/outbox"
	"github.com/shopflow/fulfillment/internal/observability"
	httppresentation "github.com/shopflow/fulfillment/internal/presentation/http"
	tracemem "github.com/shopflow/fulfillment/internal/tracing/memory"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	baseLogger := zaplogger.New(
		observability.F("service", cfg.ServiceName),
		observability.F("env", cfg.Env),
	)
	type syncer interface{ Sync() error }
	if s, ok := baseLogger.(syncer); ok {
		defer func() { _ = s.Sync() }()
	}

	reg := prometrics.New("shopflow", "fulfillment")
	counters := map[observability.MetricKey]observability.Counter{
		observability.MUsecaseRequests: reg.Counter(
			string(observability.MUsecaseRequests),
			"Total number of use case invocations.",
			"use_case", "outcome",
		),
		observability.MHTTPRequests: reg.Counter(
			string(observability.MHTTPRequests),
			"Total number of HTTP requests.",
			"method", "route", "status",
		),
		observability.MSagaStepFailures: reg.Counter(
			string(observability.MSagaStepFailures),
			"Count of order saga step failures.",
			"step",
		),
		observability.MNotificationsSent: reg.Counter(
			string(observability.MNotificationsSent),
			"Count of notification channel sends.",
			"channel", "outcome",
		),
	}
	histograms := map[observability.MetricKey]observability.Histogram{
		observability.MUsecaseDuration: reg.Histogram(
			string(observability.MUsecaseDuration),
			"Duration of use case execution in seconds.",
			prometheus.DefBuckets,
			"use_case",
		),
		observability.MHTTPRequestDuration: reg.Histogram(
			string(observability.MHTTPRequestDuration),
			"Duration of HTTP requests in seconds.",
			prometheus.DefBuckets,
			"method", "route", "status",
		),
	}
	obs := obsprovider.New(oteltrace.New(cfg.ServiceName), baseLogger, counters, histograms)
	logger := obs.Logger()

	// Repositories and the demo fixture.
	customerRepo := memory.NewCustomerRepository()
	productRepo := memory.NewProductRepository()
	inventoryRepo := memory.NewInventoryRepository()
	orderRepo := memory.NewOrderRepository()
	paymentRepo := memory.NewPaymentRepository()
	ids := id.NewUUIDGenerator()

	if err := memory.Seed(context.Background(), customerRepo, productRepo, inventoryRepo, ids.NewID); err != nil {
		logger.Error("seed_failed", observability.F("error", err.Error()))
		os.Exit(1)
	}

	// Trace recorder with background retention sweeps.
	recorder := tracemem.NewRecorder(tracemem.WithRetention(cfg.TraceRetention))
	sweepCtx, stopSweep := context.WithCancel(context.Background())
	recorder.StartSweeper(sweepCtx, cfg.SweepInterval)
	defer func() {
		stopSweep()
		recorder.StopSweeper()
	}()

	// Event bus for the detached notification path.
	var busOpts []outbox.Option
	if cfg.NotifyDelay > 0 {
		busOpts = append(busOpts, outbox.WithDispatchDelay(cfg.NotifyDelay))
	}
	bus := outbox.NewBus(logger, busOpts...)
	bus.Start(context.Background())
	defer bus.Stop(context.Background())

	// Application services.
	checker := eligibility.NewChecker(customerRepo, orderRepo, logger)
	invLedger := ledger.NewService(inventoryRepo, cfg.LowStockThreshold, logger)
	paymentGateway := gateway.NewSimulated(
		gateway.RandomFaults(cfg.GatewayFailureRate, dompay.ReasonInsufficientFunds),
		logger,
	)
	processor := apppayment.NewProcessor(paymentGateway, paymentRepo, ids, logger)
	catalog := appcatalog.NewService(customerRepo, productRepo, inventoryRepo, recorder, cfg.LowStockThreshold, logger)

	dispatcher := notification.NewDispatcher(notify.NewSimulated(logger), recorder, cfg.SMSThreshold, obs)
	dispatcher.Register(bus)

	saga := apporder.NewSaga(
		orderRepo,
		catalog,
		checker,
		invLedger,
		processor,
		bus,
		recorder,
		ids,
		obs,
		apporder.Options{
			SampleRate:    cfg.TraceSampleRate,
			PreserveTotal: cfg.PreserveTotal,
		},
	)

	handler := httppresentation.NewHandler(saga, catalog, recorder, obs)
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.Handle("/", handler.Router())

	server := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: mux,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		logger.Info("http_server_start", observability.F("addr", server.Addr))
		err := server.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http_server_error", observability.F("error", err.Error()))
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("http_server_shutdown_error", observability.F("error", err.Error()))
	} else {
		logger.Info("http_server_stopped")
	}
}
