package main

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/spf13/viper"
	httpSwagger "github.com/swaggo/http-swagger"

	"github.com/bytecord/backend/docs"
	"github.com/bytecord/backend/internal/config"
	"github.com/bytecord/backend/internal/database"
	"github.com/bytecord/backend/internal/handlers"
	"github.com/bytecord/backend/internal/jobs"
	mW "github.com/bytecord/backend/internal/middleware"
	"github.com/bytecord/backend/internal/services"
	"github.com/bytecord/backend/internal/streak"
)

// @title Bytecord Backend API
// @version 1.0
// @description API for the bytes community engagement system
// @host localhost:8080
// @BasePath /api/v1
// @schemes http https

func main() {
	// Initialize config
	viper.SetConfigFile(".env") // explicitly point to .env file
	viper.AutomaticEnv()        // allow environment variables to override .env
	viper.ReadInConfig()        // read .env file

	// Set environment variable prefix
	viper.SetEnvPrefix("")

	viper.BindEnv("database.host", "DATABASE_HOST")
	viper.BindEnv("database.port", "DATABASE_PORT")
	viper.BindEnv("database.user", "DATABASE_USER")
	viper.BindEnv("database.password", "DATABASE_PASSWORD")
	viper.BindEnv("database.name", "DATABASE_NAME")
	viper.BindEnv("database.ssl_mode", "DATABASE_SSL_MODE")

	viper.BindEnv("redis.host", "REDIS_HOST")
	viper.BindEnv("redis.port", "REDIS_PORT")
	viper.BindEnv("redis.password", "REDIS_PASSWORD")
	viper.BindEnv("redis.db", "REDIS_DB")

	viper.BindEnv("jwt.secret_key", "JWT_SECRET_KEY")
	viper.BindEnv("jwt.expiry_hours", "JWT_EXPIRY_HOURS")
	viper.BindEnv("auth.client_id", "AUTH_CLIENT_ID")
	viper.BindEnv("auth.api_key_hash", "AUTH_API_KEY_HASH")

	if err := viper.ReadInConfig(); err != nil {
		log.Printf("Config file not found, using defaults: %v", err)
	}

	// Initialize Swagger docs
	docs.SwaggerInfo.Title = "Bytecord Backend API"
	docs.SwaggerInfo.Description = "API for the bytes community engagement system"
	docs.SwaggerInfo.Version = "1.0"
	docs.SwaggerInfo.Host = "localhost:8080"
	docs.SwaggerInfo.BasePath = "/api/v1"
	docs.SwaggerInfo.Schemes = []string{"http", "https"}

	// Initialize services
	db := database.InitDatabase()
	defer db.Close()

	redisClient := database.InitRedis()
	if redisClient != nil {
		defer redisClient.Close()
	}

	defaults := config.LoadBytesDefaults()
	clock := streak.UTCClock{}

	configService := services.NewConfigService(db, redisClient, defaults)
	balanceService := services.NewBalanceService(db, configService)
	dailyService := services.NewDailyService(balanceService, configService, clock)
	dailyHandler := handlers.NewDailyHandler(dailyService)
	transactionService := services.NewTransactionService(db, balanceService, configService)
	squadService := services.NewSquadService(db, balanceService, configService)
	authService := services.NewAuthService(redisClient)

	// Initialize auth middleware with Redis
	mW.InitAuthMiddleware(redisClient)

	// Nightly streak data audit
	scheduler := jobs.NewScheduler(db, clock)
	if err := scheduler.Start(defaults.AuditSchedule); err != nil {
		log.Fatalf("Failed to start scheduler: %v", err)
	}
	defer scheduler.Stop()

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
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "Access-Control-Allow-Origin"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           86400,
	}))

	// Health check
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{"status": "healthy"})
	})

	// Swagger documentation
	r.Get("/swagger/*", httpSwagger.Handler(
		httpSwagger.URL("http://localhost:8080/swagger/doc.json"),
	))

	// API routes
	r.Route("/api/v1", func(r chi.Router) {
		// Public endpoints (no auth required)
		r.Post("/auth/token", authService.IssueToken)
		r.Post("/auth/revoke", authService.RevokeToken)

		// Protected endpoints (auth required)
		r.Group(func(r chi.Router) {
			r.Use(mW.AuthMiddleware)

			r.Route("/guilds/{guildID}", func(r chi.Router) {
				// Bytes economy endpoints
				r.Get("/bytes/balance/{userID}", balanceService.GetUserBalance)
				r.Post("/bytes/daily/{userID}", dailyHandler.ClaimDaily)
				r.Get("/bytes/leaderboard", balanceService.Leaderboard)
				r.Post("/bytes/streak/{userID}/reset", balanceService.ResetUserStreak)

				// Transfer ledger endpoints
				r.Post("/bytes/transactions", transactionService.CreateTransaction)
				r.Get("/bytes/transactions", transactionService.ListTransactions)

				// Guild configuration endpoints
				r.Get("/bytes/config", configService.GetGuildConfig)
				r.Put("/bytes/config", configService.UpdateGuildConfig)
				r.Delete("/bytes/config", configService.DeleteGuildConfig)

				// Squad endpoints
				r.Get("/squads", squadService.ListSquads)
				r.Get("/squads/members/{userID}", squadService.GetMembership)
				r.Post("/squads/{squadID}/join", squadService.JoinSquad)
				r.Delete("/squads/members/{userID}", squadService.LeaveSquad)
			})
		})
	})

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

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
		log.Printf("Server starting on :%s", port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Server shutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Fatal("Server forced to shutdown:", err)
	}

	log.Println("Server stopped")
}
