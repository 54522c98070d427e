package queue

import (
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"strconv"

	"github.com/hibiken/asynq"
	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/joho/godotenv/autoload"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/invory/notification-service/internal/cache"
	"github.com/invory/notification-service/internal/config"
	"github.com/invory/notification-service/internal/database"
	"github.com/invory/notification-service/internal/email"
	"github.com/invory/notification-service/internal/fcm"
	"github.com/invory/notification-service/internal/queue/handlers"
	"github.com/invory/notification-service/internal/usecase"
)

// Server wraps asynq.Server for processing tasks
type Server struct {
	asynqServer *asynq.Server
	mux         *asynq.ServeMux
	sqlDB       *sql.DB
}

// Worker represents a worker application with all its dependencies
type Worker struct {
	server *Server
}

// NewWorker creates a fully configured worker with all dependencies
func NewWorker(log *slog.Logger) (*Worker, error) {
	log.Info("Initializing worker dependencies...")

	// Setup database connection
	var (
		dbname = os.Getenv(config.ENV_KEY_DB_DATABASE)
		dbpass = os.Getenv(config.ENV_KEY_DB_PASSWORD)
		dbuser = os.Getenv(config.ENV_KEY_DB_USER)
		dbport = os.Getenv(config.ENV_KEY_DB_PORT)
		dbhost = os.Getenv(config.ENV_KEY_DB_HOST)
	)

	connStr := fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable", dbuser, dbpass, dbhost, dbport, dbname)
	sqlDB, err := sql.Open("pgx", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open database connection: %w", err)
	}

	gormDB, err := gorm.Open(postgres.New(postgres.Config{
		Conn: sqlDB,
	}), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("failed to open gorm database connection: %w", err)
	}

	repo := database.NewWithDB(gormDB)

	// Dispatch core
	sa, err := fcm.LoadServiceAccountFile(os.Getenv(config.ENV_KEY_FIREBASE_SERVICE_ACCOUNT_KEY_PATH))
	if err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("failed to load service account: %w", err)
	}
	src, err := fcm.NewGoogleTokenSource(sa)
	if err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("failed to create token source: %w", err)
	}
	projectID := os.Getenv(config.ENV_KEY_FIREBASE_PROJECT_ID)
	if projectID == "" {
		projectID = sa.ProjectID
	}
	creds := fcm.NewCredentialManager(src, 0)
	sender := fcm.NewClient(projectID, creds, fcm.WithLogger(log))

	redisAddr := fmt.Sprintf("%s:%s",
		os.Getenv(config.ENV_KEY_REDIS_HOST),
		os.Getenv(config.ENV_KEY_REDIS_PORT),
	)
	redisPassword := os.Getenv(config.ENV_KEY_REDIS_PASSWORD)

	limiter := cache.NewCooldown(redisAddr, redisPassword)

	var mailer usecase.EmailProvider
	if os.Getenv(config.ENV_KEY_SMTP_HOST) != "" {
		mp, err := email.NewEmailProvider(
			os.Getenv(config.ENV_KEY_SMTP_HOST),
			os.Getenv(config.ENV_KEY_SMTP_USERNAME),
			os.Getenv(config.ENV_KEY_SMTP_PASSWORD),
			os.Getenv(config.ENV_KEY_SMTP_PORT),
		)
		if err != nil {
			sqlDB.Close()
			return nil, err
		}
		mailer = mp
	}

	// Workers don't verify user tokens and don't enqueue
	uc := usecase.New(repo, nil, sender, limiter, mailer, nil, usecase.FromEnv()...)

	workerConcurrency := 10
	if n, err := strconv.Atoi(os.Getenv(config.ENV_KEY_WORKER_CONCURRENCY)); err == nil && n > 0 {
		workerConcurrency = n
	}

	asynqServer := asynq.NewServer(
		asynq.RedisClientOpt{
			Addr:     redisAddr,
			Password: redisPassword,
		},
		asynq.Config{
			Concurrency: workerConcurrency,
			Queues: map[string]int{
				"critical": 6,
				"default":  3,
				"low":      1,
			},
		},
	)

	mux := asynq.NewServeMux()

	h := handlers.NewHandlers(uc, log)

	// Register task handlers - one line per job type
	mux.HandleFunc(handlers.TypeStockAlert, h.HandleStockAlert)
	mux.HandleFunc(handlers.TypeCleanupPushTokens, h.HandleCleanupPushTokens)

	log.Info("Worker registered handlers",
		slog.String("stock_alert", handlers.TypeStockAlert),
		slog.String("cleanup", handlers.TypeCleanupPushTokens),
	)

	server := &Server{
		asynqServer: asynqServer,
		mux:         mux,
		sqlDB:       sqlDB,
	}

	return &Worker{
		server: server,
	}, nil
}

// Start starts the worker server
func (w *Worker) Start() error {
	return w.server.asynqServer.Start(w.server.mux)
}

// Stop stops the worker server gracefully
func (w *Worker) Stop() {
	w.server.asynqServer.Shutdown()

	if w.server.sqlDB != nil {
		if err := w.server.sqlDB.Close(); err != nil {
			slog.Error("closing database", slog.String("err", err.Error()))
		}
	}
}
