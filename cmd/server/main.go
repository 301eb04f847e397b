package main

import (
	"context"
	"encoding/json"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/adrewards/backend/docs"
	"github.com/adrewards/backend/internal/config"
	"github.com/adrewards/backend/internal/database"
	"github.com/adrewards/backend/internal/handlers"
	"github.com/adrewards/backend/internal/logger"
	mW "github.com/adrewards/backend/internal/middleware"
	"github.com/adrewards/backend/internal/services"
	"github.com/adrewards/backend/internal/store"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/robfig/cron/v3"
	"github.com/spf13/viper"
	httpSwagger "github.com/swaggo/http-swagger"
	"go.uber.org/zap"
)

// @title Ad Rewards Backend API
// @version 1.0
// @description Balance accrual and payout authorization for the ad-watching rewards platform
// @host localhost:8080
// @BasePath /api/v1
// @schemes http https
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

func main() {
	if err := config.Init(os.Getenv("CONFIG_FILE")); err != nil {
		panic(err)
	}

	log := logger.Must(viper.GetString("app.env"))
	defer log.Sync()

	rewards, err := config.LoadRewardsConfig()
	if err != nil {
		log.Fatal("Invalid rewards config", zap.Error(err))
	}

	// Initialize Swagger docs
	viper.SetDefault("server.host", "localhost:8080")
	docs.SwaggerInfo.Title = "Ad Rewards Backend API"
	docs.SwaggerInfo.Version = "1.0"
	docs.SwaggerInfo.Host = viper.GetString("server.host")
	docs.SwaggerInfo.BasePath = "/api/v1"
	docs.SwaggerInfo.Schemes = []string{"http", "https"}

	// Storage
	var ledger store.Store
	dbConfig := database.GetConfig()
	if dbConfig.Driver == "memory" {
		log.Warn("Using in-memory ledger; balances are lost on restart")
		ledger = store.NewMemStore()
	} else {
		db, err := database.Open(dbConfig, log)
		if err != nil {
			log.Fatal("Failed to open database", zap.Error(err))
		}
		defer db.Close()
		ledger = store.NewSQLStore(db, dbConfig.Driver)
	}

	redisClient := database.InitRedis(log)
	if redisClient != nil {
		defer redisClient.Close()
	}

	// Metrics
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := services.NewMetrics(registry)

	// Services
	audit := services.NewAuditLogger(log)
	catalog := services.NewAdCatalog(ledger, redisClient, rewards.AdCacheTTL, metrics, log)
	earningService := services.NewEarningService(ledger, catalog, rewards, audit, metrics, log)
	withdrawalService := services.NewWithdrawalService(ledger, rewards, audit, metrics, log)
	adminService := services.NewAdminService(ledger, audit, metrics, log)
	exporter := services.NewPayoutExporter(withdrawalService, rewards)

	viper.SetDefault("jwt.expiry_hours", 24)
	authenticator, err := mW.NewAuthenticator(viper.GetString("jwt.secret_key"), redisClient, ledger, rewards, log)
	if err != nil {
		log.Fatal("Refusing to start without JWT_SECRET_KEY", zap.Error(err))
	}
	clickLimiter := mW.NewClickLimiter(rewards.ClickRate, rewards.ClickBurst)

	ctx, stop := context.WithCancel(context.Background())
	defer stop()
	go clickLimiter.Cleanup(ctx)

	// Daily reward reset
	scheduler := cron.New()
	if _, err := scheduler.AddFunc(rewards.DailyResetSchedule, func() {
		if _, err := adminService.ResetAllDailyRewards(ctx); err != nil {
			log.Error("Scheduled daily reset failed", zap.Error(err))
		}
	}); err != nil {
		log.Fatal("Invalid daily reset schedule", zap.String("schedule", rewards.DailyResetSchedule), zap.Error(err))
	}
	scheduler.Start()

	api := &handlers.API{
		Ads:          handlers.NewAdHandler(catalog, earningService, log),
		Withdrawals:  handlers.NewWithdrawalHandler(withdrawalService, exporter, log),
		Admin:        handlers.NewAdminHandler(adminService, log),
		Auth:         handlers.NewAuthHandler(authenticator, time.Duration(viper.GetInt("jwt.expiry_hours"))*time.Hour, log),
		Authenticate: authenticator.Middleware,
		ClickLimit:   clickLimiter.Middleware,
	}

	// Setup router
	r := chi.NewRouter()

	// Middleware
	r.Use(mW.SecurityHeaders)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RealIP)
	r.Use(middleware.Timeout(60 * time.Second))

	// CORS
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"https://*", "http://*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           86400,
	}))

	// Health check
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{"status": "healthy"})
	})

	r.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))

	// Swagger documentation
	r.Get("/swagger/*", httpSwagger.Handler(
		httpSwagger.URL("/swagger/doc.json"),
	))

	// Ad creatives
	viper.SetDefault("static.ads_dir", "./static/ads")
	r.Handle("/static/ads/*", http.StripPrefix("/static/ads/",
		mW.CreativeServer(viper.GetString("static.ads_dir"))))

	r.Route("/api/v1", api.Mount)

	viper.SetDefault("server.port", "8080")
	port := viper.GetString("server.port")

	// Start server
	server := &http.Server{
		Addr:         ":" + port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown
	go func() {
		log.Info("Server starting", zap.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Server failed", zap.Error(err))
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Server shutting down")
	<-scheduler.Stop().Done()
	stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	}

	log.Info("Server stopped")
}
