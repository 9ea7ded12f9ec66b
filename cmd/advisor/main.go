// cmd/advisor/main.go
package main

import (
	"bufio"
	"context"
	"fmt"
	"net/http"
	_ "net/http/pprof"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"study-advisor/internal/catalog"
	"study-advisor/internal/common/config"
	"study-advisor/internal/common/database"
	"study-advisor/internal/common/logger"
	"study-advisor/internal/common/observability"
	"study-advisor/internal/models"
	"study-advisor/internal/notify"
	"study-advisor/internal/pipeline"
	"study-advisor/internal/reasoner"
	"study-advisor/internal/session"
	"study-advisor/internal/stages/applicationstrategy"
	"study-advisor/internal/stages/contingencyplan"
	"study-advisor/internal/stages/financialanalysis"
	"study-advisor/internal/stages/improvementplan"
	"study-advisor/internal/stages/scholarshipmatch"
	"study-advisor/pkg/registry"
)

// retryWithBackoff attempts to execute a function with exponential backoff
func retryWithBackoff(operation func() error, maxRetries int, initialDelay time.Duration, log *zap.Logger, operationName string) error {
	var err error
	delay := initialDelay

	for i := 0; i < maxRetries; i++ {
		err = operation()
		if err == nil {
			return nil
		}

		if i < maxRetries-1 {
			log.Warn(fmt.Sprintf("%s failed, retrying...", operationName),
				zap.Error(err),
				zap.Int("attempt", i+1),
				zap.Int("maxRetries", maxRetries),
				zap.Duration("nextRetryIn", delay),
			)
			time.Sleep(delay)
			delay *= 2
		}
	}

	return fmt.Errorf("%s failed after %d attempts: %w", operationName, maxRetries, err)
}

func main() {
	zapLog := logger.New("info", "console")
	defer zapLog.Sync()

	log := logger.NewZapAdapter(zapLog)

	zapLog.Info("Starting study advisor...")

	cfg, err := config.Load()
	if err != nil {
		zapLog.Fatal("config load failed", zap.Error(err))
	}

	obs := observability.New(cfg.App.Name, os.Getenv("JAEGER_ENDPOINT"))
	defer obs.Shutdown()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// --- Scholarship catalog backend ---
	var source catalog.Source
	switch cfg.Catalog.Source {
	case "postgres":
		var pg *database.PostgresClient
		err = retryWithBackoff(func() error {
			var err error
			pg, err = database.NewPostgres(cfg.Database.Postgres)
			if err != nil {
				return err
			}
			return pg.Ping(ctx)
		}, 15, 2*time.Second, zapLog, "PostgreSQL connection")
		if err != nil {
			zapLog.Fatal("postgres failed after retries", zap.Error(err))
		}
		defer pg.Close()
		source = catalog.NewPostgresSource(pg.DB)
		zapLog.Info("PostgreSQL catalog connected")

	case "elasticsearch":
		var esClient *database.ElasticsearchClient
		err = retryWithBackoff(func() error {
			var err error
			esClient, err = database.NewElasticsearch(cfg.Database.Elasticsearch)
			if err != nil {
				return err
			}
			return esClient.Ping()
		}, 15, 2*time.Second, zapLog, "Elasticsearch connection")
		if err != nil {
			zapLog.Fatal("elasticsearch failed after retries", zap.Error(err))
		}
		source = catalog.NewElasticsearchSource(esClient.Client, cfg.Database.Elasticsearch.Index)
		zapLog.Info("Elasticsearch catalog connected")

	default:
		source = catalog.NewStaticSource()
		zapLog.Info("Using built-in static catalog")
	}

	// --- Session store backend ---
	var store session.Store
	if cfg.Session.Backend == "redis" {
		var redisClient *database.RedisClient
		err = retryWithBackoff(func() error {
			var err error
			redisClient, err = database.NewRedis(cfg.Database.Redis)
			if err != nil {
				return err
			}
			return redisClient.Ping(ctx)
		}, 10, 2*time.Second, zapLog, "Redis connection")
		if err != nil {
			zapLog.Fatal("redis failed after retries", zap.Error(err))
		}
		defer redisClient.Close()
		store = session.NewRedisStore(redisClient.Client, time.Duration(cfg.Session.TTLMinutes)*time.Minute)
		zapLog.Info("Redis session store connected")
	} else {
		store = session.NewMemoryStore()
		zapLog.Info("Using in-memory session store")
	}

	// --- Reasoner backend ---
	var reasonerClient reasoner.Client
	if cfg.Reasoner.Mode == "http" {
		reasonerClient = reasoner.NewHTTPClient(
			cfg.Reasoner.BaseURL,
			time.Duration(cfg.Reasoner.TimeoutMS)*time.Millisecond,
			cfg.Reasoner.MaxRetries,
			log,
		)
	} else {
		reasonerClient = reasoner.NewLocal()
	}

	// --- Stage handlers ---
	matchCfg := scholarshipmatch.LoadConfig()
	matchCfg.Timeout = cfg.StageTimeout(scholarshipmatch.TaskType)
	stages := []pipeline.Stage{
		scholarshipmatch.NewHandler(matchCfg, source, reasonerClient, log),
		financialanalysis.NewHandler(financialanalysis.LoadConfig(), reasonerClient, log),
		improvementplan.NewHandler(improvementplan.LoadConfig(), reasonerClient, log),
		applicationstrategy.NewHandler(applicationstrategy.LoadConfig(), reasonerClient, log),
		contingencyplan.NewHandler(contingencyplan.LoadConfig(), reasonerClient, log),
	}

	orchestrator, err := pipeline.New(
		stages,
		registry.Default().OutputSchemas(),
		func(kind models.StageKind) time.Duration { return cfg.StageTimeout(string(kind)) },
		log,
		obs,
	)
	if err != nil {
		zapLog.Fatal("orchestrator init failed", zap.Error(err))
	}

	notifier, err := notify.New(ctx, cfg.Notifications, log)
	if err != nil {
		zapLog.Fatal("notifier init failed", zap.Error(err))
	}

	manager := session.NewManager(store, orchestrator, notifier, log)

	// --- Metrics and pprof endpoint ---
	go func() {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		mux.Handle("/debug/pprof/", http.DefaultServeMux)
		zapLog.Info("metrics server listening", zap.String("addr", cfg.Server.MetricsAddr))
		if err := http.ListenAndServe(cfg.Server.MetricsAddr, mux); err != nil {
			zapLog.Error("metrics server stopped", zap.Error(err))
		}
	}()

	runConsole(ctx, manager, zapLog)
	zapLog.Info("Shutting down")
}

// runConsole reads one message per line from stdin and prints the resulting
// report, streaming progress events as the pipeline advances.
func runConsole(ctx context.Context, manager *session.Manager, zapLog *zap.Logger) {
	sessionID := "console"
	if v := os.Getenv("ADVISOR_SESSION_ID"); v != "" {
		sessionID = v
	}

	fmt.Println("Tell me about your study abroad plans (Ctrl+C to exit):")
	scanner := bufio.NewScanner(os.Stdin)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	lines := make(chan string)
	go func() {
		defer close(lines)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
	}()

	for {
		fmt.Print("> ")
		select {
		case <-ctx.Done():
			fmt.Println()
			return
		case line, ok := <-lines:
			if !ok {
				return
			}
			if line == "" {
				continue
			}

			result, err := manager.ApplyTurn(ctx, sessionID, line, func(e pipeline.ProgressEvent) {
				fmt.Printf("  [%s] %s\n", e.State, e.Label)
			})
			if err != nil {
				if err == pipeline.ErrCancelled {
					return
				}
				zapLog.Error("turn failed", zap.Error(err))
				fmt.Println("Something went wrong while preparing your report. Please try again.")
				continue
			}

			if !result.PipelineRan {
				fmt.Println("(answered from your existing report)")
			}
			fmt.Println(result.Report.Render())
		}
	}
}
