package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/wyfcoding/vehicletax/internal/taxengine/application"
	"github.com/wyfcoding/vehicletax/internal/taxengine/domain"
	"github.com/wyfcoding/vehicletax/internal/taxengine/infrastructure/messaging"
	"github.com/wyfcoding/vehicletax/internal/taxengine/infrastructure/persistence/mysql"
	"github.com/wyfcoding/vehicletax/internal/taxengine/infrastructure/ruleset"
	taxhttp "github.com/wyfcoding/vehicletax/internal/taxengine/interfaces/http"
	"github.com/wyfcoding/vehicletax/pkg/cache"
	"github.com/wyfcoding/vehicletax/pkg/config"
	"github.com/wyfcoding/vehicletax/pkg/db"
	"github.com/wyfcoding/vehicletax/pkg/logger"
	"github.com/wyfcoding/vehicletax/pkg/metrics"
	"github.com/wyfcoding/vehicletax/pkg/middleware"
	"github.com/wyfcoding/vehicletax/pkg/mq"
	"github.com/wyfcoding/vehicletax/pkg/utils"
)

func main() {
	var configPath string
	flag.StringVar(&configPath, "config", "configs/taxengine.toml", "path to config file")
	flag.Parse()

	// 1. Config
	cfg, err := config.Load(configPath)
	if err != nil {
		panic(fmt.Sprintf("load config failed: %v", err))
	}

	// 2. Logger
	if err := logger.Init(cfg.Logger); err != nil {
		panic(fmt.Sprintf("init logger failed: %v", err))
	}
	ctx := context.Background()

	// 3. 税则数据集：校验失败直接拒绝启动。
	registry, reciprocity, err := ruleset.LoadEmbedded()
	if err != nil {
		logger.Fatal(ctx, "load embedded ruleset failed", "error", err)
	}
	logger.Info(ctx, "ruleset loaded", "jurisdictions", registry.Len())

	// 4. 可选基础设施：按配置开关装配，缺省为纯内存运行。
	var (
		repo       domain.QuoteRepository
		publisher  domain.EventPublisher
		quoteCache application.QuoteCache
		relay      *messaging.OutboxRelay
		producer   *mq.Producer
	)

	var database *db.DB
	if cfg.Database.Enabled {
		database, err = db.Init(db.Config{
			Driver:             cfg.Database.Driver,
			DSN:                cfg.Database.DSN,
			MaxOpenConns:       cfg.Database.MaxOpenConns,
			MaxIdleConns:       cfg.Database.MaxIdleConns,
			ConnMaxLifetime:    cfg.Database.ConnMaxLifetime,
			LogEnabled:         cfg.Database.LogEnabled,
			SlowQueryThreshold: cfg.Database.SlowQueryThreshold,
		})
		if err != nil {
			logger.Fatal(ctx, "init database failed", "error", err)
		}
		if err := mysql.AutoMigrate(database.RawDB()); err != nil {
			logger.Fatal(ctx, "migrate quotes table failed", "error", err)
		}
		if err := messaging.AutoMigrate(database.RawDB()); err != nil {
			logger.Fatal(ctx, "migrate outbox table failed", "error", err)
		}
		repo = mysql.NewQuoteRepository(database.RawDB())
		publisher = messaging.NewOutboxEventPublisher(database.RawDB())
	}

	if cfg.Redis.Enabled {
		c, err := cache.New(&cache.Config{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			PoolSize: cfg.Redis.PoolSize,
		})
		if err != nil {
			logger.Fatal(ctx, "init redis failed", "error", err)
		}
		defer c.Close()
		quoteCache = c
	}

	if cfg.Kafka.Enabled && database != nil {
		producer, err = mq.NewProducer(mq.Config{
			Brokers:      cfg.Kafka.Brokers,
			Topic:        cfg.Kafka.Topic,
			MaxRetries:   cfg.Kafka.MaxRetries,
			RetryBackoff: cfg.Kafka.RetryBackoff,
		})
		if err != nil {
			logger.Fatal(ctx, "init kafka producer failed", "error", err)
		}
		defer producer.Close()
		relay = messaging.NewOutboxRelay(database.RawDB(), producer, 100, time.Second)
	}

	// 5. Domain & Application
	interpreter := domain.NewTaxabilityInterpreter()
	if cfg.Engine.UnknownChargeDefault != "" {
		interpreter.UnknownChargeDefault = domain.TaxabilityCode(cfg.Engine.UnknownChargeDefault)
	}
	calculator := domain.NewTaxCalculator(registry, interpreter, reciprocity)

	idGen, err := utils.NewSnowflakeID(cfg.Engine.SnowflakeNode)
	if err != nil {
		logger.Fatal(ctx, "init snowflake failed", "error", err)
	}
	service := application.NewTaxService(calculator, registry, repo, publisher, quoteCache, idGen, logger.Get())
	service.SetCacheTTL(time.Duration(cfg.Engine.QuoteCacheTTL) * time.Second)

	// 6. Interfaces
	m := metrics.New(cfg.ServiceName)
	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(middleware.Recovery(), middleware.Logging(), middleware.Metrics(m))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "version": cfg.Version})
	})
	metricsPath := cfg.Metrics.Path
	if metricsPath == "" {
		metricsPath = "/metrics"
	}
	router.GET(metricsPath, gin.WrapH(m.Handler()))

	handler := taxhttp.NewHandler(service, m)
	handler.RegisterRoutes(router.Group("/api/v1"))

	// 7. Start
	relayCtx, stopRelay := context.WithCancel(ctx)
	defer stopRelay()
	if relay != nil {
		go relay.Run(relayCtx)
	}

	addr := fmt.Sprintf("%s:%d", cfg.HTTP.Host, cfg.HTTP.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.HTTP.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.HTTP.WriteTimeout) * time.Second,
	}
	go func() {
		logger.Info(ctx, "starting http server", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal(ctx, "http server failed", "error", err)
		}
	}()

	// 8. Graceful Shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info(ctx, "shutting down server")

	stopRelay()
	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error(ctx, "server shutdown failed", "error", err)
	}
	if database != nil {
		_ = database.Close()
	}
	logger.Info(ctx, "server exiting")
}
