package main

import (
	"context"
	"encoding/json"
	"io"
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
	"github.com/walletapi/backend/docs"
	"github.com/walletapi/backend/internal/audit"
	"github.com/walletapi/backend/internal/auth"
	"github.com/walletapi/backend/internal/config"
	"github.com/walletapi/backend/internal/database"
	"github.com/walletapi/backend/internal/events"
	"github.com/walletapi/backend/internal/handlers"
	"github.com/walletapi/backend/internal/ledger"
	mW "github.com/walletapi/backend/internal/middleware"
	"github.com/walletapi/backend/internal/repository"
	"github.com/walletapi/backend/internal/repository/gormstore"
	"github.com/walletapi/backend/internal/repository/postgres"
	"github.com/walletapi/backend/internal/services"
)

const requestTimeout = 10 * time.Second

// @title Wallet Ledger API
// @version 1.0
// @description Wallet ledger: transfers, deposits, reversals and statements
// @host localhost:8080
// @BasePath /api/v1
// @schemes http https
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

func main() {
	// Initialize config
	viper.SetConfigFile(".env") // explicitly point to .env file
	viper.AutomaticEnv()        // allow environment variables to override .env

	viper.BindEnv("database.driver", "DATABASE_DRIVER")
	viper.BindEnv("database.host", "DATABASE_HOST")
	viper.BindEnv("database.port", "DATABASE_PORT")
	viper.BindEnv("database.user", "DATABASE_USER")
	viper.BindEnv("database.password", "DATABASE_PASSWORD")
	viper.BindEnv("database.name", "DATABASE_NAME")
	viper.BindEnv("database.ssl_mode", "DATABASE_SSL_MODE")
	viper.BindEnv("database.migrate", "DATABASE_MIGRATE")

	viper.BindEnv("mysql.host", "MYSQL_HOST")
	viper.BindEnv("mysql.port", "MYSQL_PORT")
	viper.BindEnv("mysql.user", "MYSQL_USER")
	viper.BindEnv("mysql.password", "MYSQL_PASSWORD")
	viper.BindEnv("mysql.name", "MYSQL_NAME")
	viper.BindEnv("mysql.log_level", "MYSQL_LOG_LEVEL")
	viper.BindEnv("mysql.migrate", "MYSQL_MIGRATE")

	viper.BindEnv("redis.host", "REDIS_HOST")
	viper.BindEnv("redis.port", "REDIS_PORT")
	viper.BindEnv("redis.password", "REDIS_PASSWORD")
	viper.BindEnv("redis.db", "REDIS_DB")

	viper.BindEnv("jwt.secret_key", "JWT_SECRET_KEY")
	viper.BindEnv("jwt.expiry_hours", "JWT_EXPIRY_HOURS")
	viper.BindEnv("argon2.time", "ARGON2_TIME")
	viper.BindEnv("argon2.memory", "ARGON2_MEMORY")
	viper.BindEnv("argon2.threads", "ARGON2_THREADS")
	viper.BindEnv("argon2.key_length", "ARGON2_KEY_LENGTH")
	viper.BindEnv("argon2.salt_length", "ARGON2_SALT_LENGTH")

	viper.BindEnv("ledger.currency", "LEDGER_CURRENCY")
	viper.BindEnv("ledger.bic", "LEDGER_BIC")
	viper.BindEnv("events.queue", "EVENTS_QUEUE")
	viper.BindEnv("http.max_inflight", "HTTP_MAX_INFLIGHT")

	viper.SetDefault("database.driver", "postgres")
	viper.SetDefault("mysql.migrate", true)
	viper.SetDefault("http.max_inflight", 100)

	if err := viper.ReadInConfig(); err != nil {
		log.Printf("Config file not found, using defaults: %v", err)
	}

	if viper.GetString("jwt.secret_key") == "" {
		log.Fatal("JWT_SECRET_KEY must be set")
	}

	// Initialize Swagger docs
	docs.SwaggerInfo.Title = "Wallet Ledger API"
	docs.SwaggerInfo.Version = "1.0"
	docs.SwaggerInfo.Host = "localhost:8080"
	docs.SwaggerInfo.BasePath = "/api/v1"
	docs.SwaggerInfo.Schemes = []string{"http", "https"}

	ctx := context.Background()

	store, users, closeDB := openStorage(ctx)
	defer closeDB.Close()

	redisClient := database.InitRedis(ctx)
	if redisClient != nil {
		defer redisClient.Close()
	}

	auditLogger := audit.NewAuditLogger()
	engineOpts := []ledger.Option{ledger.WithAuditor(auditLogger)}
	if redisClient != nil {
		engineOpts = append(engineOpts, ledger.WithPublisher(events.NewRedisPublisher(redisClient, viper.GetString("events.queue"))))
	}
	engine := ledger.NewEngine(store, engineOpts...)

	tokens := auth.NewTokenManagerFromConfig(redisClient)
	authService := services.NewAuthService(users, tokens, engine)
	transactionService := services.NewTransactionService(engine)
	iso20022Service := services.NewISO20022Service(engine, config.LoadLedgerConfig())

	var paymentRequestHandler *handlers.PaymentRequestHandler
	if redisClient != nil {
		paymentRequestService := services.NewPaymentRequestService(redisClient, engine, config.LoadPaymentRequestConfig())
		paymentRequestHandler = handlers.NewPaymentRequestHandler(paymentRequestService)
	} else {
		log.Println("Payment requests disabled: Redis unavailable")
	}

	// Setup router
	r := chi.NewRouter()

	// Middleware
	r.Use(mW.SecurityHeaders)
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(requestTimeout))
	r.Use(middleware.Throttle(viper.GetInt("http.max_inflight")))

	// CORS
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"https://*", "http://*"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
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

	// Swagger documentation
	r.Get("/swagger/*", httpSwagger.Handler(
		httpSwagger.URL("http://localhost:8080/swagger/doc.json"),
	))

	// API routes
	r.Route("/api/v1", func(r chi.Router) {
		// Public endpoints (no auth required)
		r.Post("/auth/register", authService.Register)
		r.Post("/auth/login", authService.Login)

		// Protected endpoints (auth required)
		r.Group(func(r chi.Router) {
			r.Use(mW.Authenticator(tokens))

			r.Post("/auth/logout", authService.Logout)
			r.Get("/auth/account", authService.GetUserAccount)

			r.Post("/transactions/transfer", transactionService.Transfer)
			r.Post("/transactions/deposit", transactionService.Deposit)
			r.Post("/transactions/reverse/{id}", transactionService.Reverse)
			r.Get("/transactions/statement", transactionService.Statement)
			r.Get("/transactions/{id}", transactionService.GetTransaction)

			// ISO 20022 export
			r.Get("/transactions/{id}/iso20022", iso20022Service.ExportTransaction)

			// QR payment requests
			if paymentRequestHandler != nil {
				r.Post("/payment-requests", paymentRequestHandler.Create)
				r.Post("/payment-requests/pay", paymentRequestHandler.Pay)
			}
		})
	})

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	// Start server
	server := newHTTPServer(":"+port, r)

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
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Fatal("Server forced to shutdown:", err)
	}

	log.Println("Server stopped")
}

// newHTTPServer keeps WriteTimeout above requestTimeout.
func newHTTPServer(addr string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: requestTimeout + 5*time.Second,
		IdleTimeout:  60 * time.Second,
	}
}

// openStorage selects the ledger store and user repository from database.driver.
func openStorage(ctx context.Context) (ledger.Store, repository.UserRepository, io.Closer) {
	switch driver := viper.GetString("database.driver"); driver {
	case "postgres":
		db := database.InitDatabase(ctx)
		return postgres.NewStore(db), postgres.NewUserRepository(db), db
	case "mysql":
		gormDB, err := database.OpenMySQL(database.GetMySQLConfig())
		if err != nil {
			log.Fatalf("Failed to initialize database: %v", err)
		}
		if viper.GetBool("mysql.migrate") {
			if err := gormstore.AutoMigrate(gormDB); err != nil {
				log.Fatalf("Failed to migrate database: %v", err)
			}
		}
		sqlDB, err := gormDB.DB()
		if err != nil {
			log.Fatalf("Failed to get database handle: %v", err)
		}
		return gormstore.NewStore(gormDB), gormstore.NewUserRepository(gormDB), sqlDB
	default:
		log.Fatalf("Unsupported database driver %q", driver)
		return nil, nil, nil
	}
}
