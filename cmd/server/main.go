package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/666daji/Food-Craft-sub000/internal/api"
	"github.com/666daji/Food-Craft-sub000/internal/config"
	"github.com/666daji/Food-Craft-sub000/internal/eventbus"
	"github.com/666daji/Food-Craft-sub000/internal/logging"
	"github.com/666daji/Food-Craft-sub000/internal/multiblock"
	"github.com/666daji/Food-Craft-sub000/internal/observability"
	"github.com/666daji/Food-Craft-sub000/internal/storage"
	"github.com/666daji/Food-Craft-sub000/internal/world"
	_ "github.com/666daji/Food-Craft-sub000/internal/world/block/implementations"
)

func main() {
	configPath := flag.String("config", "", "path to YAML config (FOODCRAFT_CONFIG if empty)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("❌ Ошибка загрузки конфигурации: %v", err)
	}

	if cfg.Logging.Dir != "" {
		logging.SetLogDir(cfg.Logging.Dir)
	}
	if err := logging.InitDefaultLogger("server"); err != nil {
		log.Fatalf("❌ Ошибка инициализации логирования: %v", err)
	}
	defer logging.CloseDefaultLogger()

	consoleLevel := logging.ParseLevel(cfg.Logging.ConsoleLevel, logging.INFO)
	fileLevel := logging.ParseLevel(cfg.Logging.FileLevel, logging.DEBUG)
	logging.SetDefaultLevels(consoleLevel, fileLevel)
	logging.GetLoggerManager().SetAllLevels(consoleLevel, fileLevel)
	defer logging.GetLoggerManager().CloseAll()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		logging.Error("❌ %v", err)
		os.Exit(1)
	}
	logging.Info("👋 Сервер успешно остановлен")
}

func run(ctx context.Context, cfg *config.Config) error {
	logging.Info("Запуск %s (world=%s, storage=%s)", cfg.Server.ServiceName, cfg.World.DefaultWorld, cfg.Storage.Backend)

	// === Observability ===
	shutdownTracing := observability.ShutdownFunc(observability.Noop)
	if cfg.Server.Tracing {
		sd, err := observability.InitTelemetry(ctx, cfg.Server)
		if err != nil {
			logging.Warn("tracing disabled: %v", err)
		} else {
			shutdownTracing = sd
		}
	}
	defer func() {
		if err := shutdownTracing(context.Background()); err != nil {
			logging.Warn("tracing shutdown: %v", err)
		}
	}()

	promReg := prometheus.NewRegistry()
	promReg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	// === Event bus ===
	bus, err := openBus(cfg.EventBus)
	if err != nil {
		return err
	}
	defer bus.Close()
	if _, err := eventbus.StartLoggingListener(ctx, bus); err != nil {
		logging.Warn("event logging listener: %v", err)
	}
	busMetrics := eventbus.NewMetricsExporter(bus, promReg)
	busMetrics.Start()
	defer busMetrics.Stop()

	// === World and structures ===
	registry := multiblock.NewRegistry()
	worlds := world.NewWorldManager(registry, world.NewGenerator(cfg.World.Seed))
	coordinator := multiblock.NewCoordinator(registry, worlds, worlds,
		multiblock.WithMergeRoundCap(cfg.Multiblock.MergeRoundCap),
		multiblock.WithEventPublisher(eventbus.NewStructurePublisher(bus, cfg.Server.ServiceName)),
		multiblock.WithMetrics(multiblock.NewMetrics(promReg)),
	)
	worlds.SetListener(coordinator)
	worlds.GenerateArea(multiblock.WorldID(cfg.World.DefaultWorld), cfg.World.GenerateArea)

	// === Storage ===
	store, err := storage.Open(cfg.Storage)
	if err != nil {
		return fmt.Errorf("open storage: %w", err)
	}
	defer store.Close()
	persistent := storage.NewPersistentStore(store, registry, worlds, coordinator)
	if _, err := persistent.LoadAll(ctx); err != nil {
		logging.Warn("load structures: %v", err)
	}

	// === HTTP ===
	rest := api.NewRestServer(api.Config{
		Addr:        fmt.Sprintf(":%d", cfg.Server.GetRESTPort()),
		ServiceName: cfg.Server.ServiceName,
		Registry:    registry,
		Worlds:      worlds,
		Store:       persistent,
		Registerer:  promReg,
		Gatherer:    promReg,
	})
	metricsSrv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.GetMetricsPort()),
		Handler:           promhttp.HandlerFor(promReg, promhttp.HandlerOpts{}),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 2)
	go func() { errCh <- rest.Start() }()
	go func() {
		logging.Info("📈 Prometheus /metrics доступен по адресу %s", metricsSrv.Addr)
		if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	go maintenance(ctx, cfg, registry, persistent)

	logging.Info("✅ Все сервисы запущены")

	var runErr error
	select {
	case <-ctx.Done():
		logging.Info("📡 Получен сигнал завершения")
	case runErr = <-errCh:
		logging.Error("HTTP server failed: %v", runErr)
	}

	// === Graceful shutdown ===
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := rest.Stop(shutdownCtx); err != nil {
		logging.Warn("REST shutdown: %v", err)
	}
	if err := metricsSrv.Shutdown(shutdownCtx); err != nil {
		logging.Warn("metrics shutdown: %v", err)
	}

	if n, err := persistent.SaveAll(shutdownCtx); err != nil {
		logging.Error("final save: %v", err)
	} else {
		logging.Info("💾 Сохранено %d структур", n)
	}
	if cfg.Storage.SnapshotPath != "" {
		if _, err := storage.ExportSnapshot(shutdownCtx, store, cfg.Storage.SnapshotPath); err != nil {
			logging.Warn("snapshot %s: %v", cfg.Storage.SnapshotPath, err)
		}
	}
	return runErr
}

func openBus(cfg config.EventBusConfig) (eventbus.EventBus, error) {
	if cfg.URL == "" {
		return eventbus.NewMemoryBus(cfg.Buffer), nil
	}
	bus, err := eventbus.NewJetStreamBus(cfg.URL, cfg.Stream, time.Duration(cfg.Retention)*time.Hour)
	if err != nil {
		return nil, fmt.Errorf("event bus: %w", err)
	}
	return bus, nil
}

// maintenance периодически сохраняет структуры и вычищает уничтоженные из регистра
func maintenance(ctx context.Context, cfg *config.Config, registry *multiblock.Registry, persistent *storage.PersistentStore) {
	sweepEvery := time.Duration(cfg.Multiblock.SweepEverySeconds) * time.Second
	saveEvery := time.Duration(cfg.Storage.AutosaveSeconds) * time.Second
	if sweepEvery <= 0 {
		sweepEvery = time.Minute
	}

	sweep := time.NewTicker(sweepEvery)
	defer sweep.Stop()

	var autosave <-chan time.Time
	if saveEvery > 0 {
		t := time.NewTicker(saveEvery)
		defer t.Stop()
		autosave = t.C
	}

	for {
		select {
		case <-ctx.Done():
			return
		case <-sweep.C:
			if n := registry.SweepDisposed(); n > 0 {
				logging.Debug("sweep: removed %d disposed structures", n)
			}
		case <-autosave:
			if n, err := persistent.SaveAll(ctx); err != nil {
				logging.Warn("autosave: %v", err)
			} else {
				logging.Debug("autosave: %d structures", n)
			}
		}
	}
}
