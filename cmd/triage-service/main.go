package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/mediguide-ai/triage/pkg/advice"
	"github.com/mediguide-ai/triage/pkg/audit"
	"github.com/mediguide-ai/triage/pkg/common/config"
	"github.com/mediguide-ai/triage/pkg/common/database"
	"github.com/mediguide-ai/triage/pkg/common/kafka"
	"github.com/mediguide-ai/triage/pkg/common/logger"
	"github.com/mediguide-ai/triage/pkg/gateway/middleware"
	"github.com/mediguide-ai/triage/pkg/history"
	"github.com/mediguide-ai/triage/pkg/knowledge"
	"github.com/mediguide-ai/triage/pkg/matcher"
	"github.com/mediguide-ai/triage/pkg/pipeline"
	"github.com/mediguide-ai/triage/pkg/safety"
	"github.com/mediguide-ai/triage/pkg/triage"
)

func main() {
	logger.Init()
	cfg := config.Load()

	catalog, err := knowledge.Load(cfg.CatalogPath)
	if err != nil {
		logger.Log.WithError(err).Fatal("failed to load disease catalog")
	}
	store := knowledge.NewStore(catalog)

	table, err := matcher.LoadTable(cfg.KeywordMapPath)
	if err != nil {
		logger.Log.WithError(err).Fatal("failed to load keyword table")
	}
	m := matcher.New(table)

	rules, err := safety.LoadRules(cfg.SafetyRulesPath)
	if err != nil {
		logger.Log.WithError(err).Fatal("failed to load safety rules")
	}

	var generator advice.Generator
	if cfg.LLMAPIKey != "" {
		generator = advice.NewOpenAIGenerator(cfg)
	} else {
		logger.Log.Warn("LLM_API_KEY not set, using template advice generator")
		generator = advice.TemplateGenerator{}
	}

	classifier, err := safety.NewClassifier(rules, safety.DefaultThresholds(), advice.NewLLMJudge(generator))
	if err != nil {
		logger.Log.WithError(err).Fatal("failed to compile safety rules")
	}

	orchestrator := advice.NewOrchestrator(store, generator, cfg.AdviceTimeout)

	sinks, repo, producer := buildSinks(cfg)
	p := pipeline.New(classifier, m, orchestrator, audit.NewMultiSink(sinks...))

	handler := triage.NewHandler(p, store, repo)

	router := mux.NewRouter()
	router.Use(middleware.Recovery, middleware.Logging, middleware.CORS)
	router.Use(middleware.RateLimit(cfg.RateLimitRPS, cfg.RateLimitBurst))
	router.Use(middleware.BodyLimit(cfg.MaxRequestBody))
	handler.Register(router)

	address := fmt.Sprintf("%s:%s", cfg.ServerHost, cfg.ServerPort)
	server := &http.Server{
		Addr:         address,
		Handler:      router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	go func() {
		logger.Log.WithField("addr", address).Info("Triage service listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Log.WithError(err).Fatal("failed to start triage service")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Log.Info("Shutting down triage service...")
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		logger.Log.WithError(err).Error("Triage service forced to shutdown")
	}
	if producer != nil {
		if err := producer.Close(); err != nil {
			logger.Log.WithError(err).Warn("Failed to close kafka producer")
		}
	}
	logger.Log.Info("Triage service stopped")
}

// buildSinks assembles the audit fan-out. The file sink is mandatory; the
// database, redis and kafka sinks are attached when their backends are
// enabled. Returns the history repository (nil when the database is off) so
// the HTTP layer can serve history and stats.
func buildSinks(cfg *config.Config) ([]audit.Sink, *history.Repository, *kafka.Producer) {
	fileSink, err := audit.NewFileSink(cfg.AuditFilePath)
	if err != nil {
		logger.Log.WithError(err).Fatal("failed to open audit file")
	}
	sinks := []audit.Sink{fileSink}

	var repo *history.Repository
	if cfg.HistoryDBEnabled {
		db, err := database.GetPostgres()
		if err != nil {
			logger.Log.WithError(err).Warn("postgres unavailable, query history disabled")
		} else {
			repo = history.NewRepository(db)
			if err := repo.AutoMigrate(); err != nil {
				logger.Log.WithError(err).Fatal("failed to migrate query history table")
			}
			sinks = append(sinks, history.NewDBSink(repo))
		}
	}

	if cfg.AuditRedisEnabled {
		sinks = append(sinks, audit.NewRedisSink(database.GetRedis(), cfg.AuditRedisKey, cfg.AuditRedisMaxSize))
	}

	var producer *kafka.Producer
	if cfg.AuditKafkaEnabled {
		producer = kafka.NewProducer(cfg.KafkaAuditTopic)
		sinks = append(sinks, audit.NewKafkaSink(producer))
	}

	return sinks, repo, producer
}
