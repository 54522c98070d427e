package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	_ "github.com/joho/godotenv/autoload"

	"github.com/invory/notification-service/internal/cache"
	"github.com/invory/notification-service/internal/config"
	"github.com/invory/notification-service/internal/database"
	"github.com/invory/notification-service/internal/email"
	"github.com/invory/notification-service/internal/fcm"
	"github.com/invory/notification-service/internal/firebase"
	"github.com/invory/notification-service/internal/queue"
	"github.com/invory/notification-service/internal/telemetry"
	"github.com/invory/notification-service/internal/usecase"
)

// Service is the API-facing slice of the usecase layer.
type Service interface {
	// Health returns a map of health status information.
	// The keys and values in the map are service-specific.
	Health() map[string]string

	// Close terminates the database connection.
	// It returns an error if the connection cannot be closed.
	Close() error

	// VerifyGateway checks that the service can authenticate against the
	// push gateway.
	VerifyGateway(ctx context.Context) error
	VerifyIDToken(ctx context.Context, token string) (string, error)

	SendToToken(ctx context.Context, token string, n usecase.NotificationPayload) usecase.DeliveryOutcome
	SendToUser(ctx context.Context, userID string, n usecase.NotificationPayload) (usecase.BatchResult, error)
	SendToMany(ctx context.Context, tokens []string, n usecase.NotificationPayload) usecase.BatchResult
	QueueStockAlert(ctx context.Context, alert usecase.StockAlert) error

	SavePushToken(ctx context.Context, token, platform string, metadata map[string]any) error
	ListPushTokens(ctx context.Context, opt usecase.ListPushTokensOption) ([]usecase.PushToken, int, error)
	DeletePushToken(ctx context.Context, id uuid.UUID) error
}

type Server struct {
	server    Service
	validator *validator.Validate
	logger    *slog.Logger
}

// App owns the HTTP server and everything that must be torn down with it.
type App struct {
	httpServer *http.Server
	cleanups   []func(context.Context) error
}

// NewApp wires the API binary: database, push gateway client, auth provider,
// cooldown cache, queue client and the HTTP layer on top.
func NewApp() (*App, error) {
	ctx := context.Background()

	logger := slog.New(telemetry.NewTraceHandler(
		slog.NewJSONHandler(os.Stdout, nil),
	))
	slog.SetDefault(logger)

	shutdownTracer, err := telemetry.Setup(ctx, "notification-api")
	if err != nil {
		return nil, fmt.Errorf("failed to set up telemetry: %w", err)
	}

	repo := database.New()

	fb, err := firebase.New()
	if err != nil {
		return nil, fmt.Errorf("failed to create firebase provider: %w", err)
	}

	sa, err := fcm.LoadServiceAccountFile(os.Getenv(config.ENV_KEY_FIREBASE_SERVICE_ACCOUNT_KEY_PATH))
	if err != nil {
		return nil, fmt.Errorf("failed to load service account: %w", err)
	}
	src, err := fcm.NewGoogleTokenSource(sa)
	if err != nil {
		return nil, fmt.Errorf("failed to create token source: %w", err)
	}
	projectID := os.Getenv(config.ENV_KEY_FIREBASE_PROJECT_ID)
	if projectID == "" {
		projectID = sa.ProjectID
	}
	creds := fcm.NewCredentialManager(src, 0)
	sender := fcm.NewClient(projectID, creds, fcm.WithLogger(logger))

	redisAddr := fmt.Sprintf("%s:%s",
		os.Getenv(config.ENV_KEY_REDIS_HOST),
		os.Getenv(config.ENV_KEY_REDIS_PORT),
	)
	redisPassword := os.Getenv(config.ENV_KEY_REDIS_PASSWORD)

	limiter := cache.NewCooldown(redisAddr, redisPassword)
	q := queue.NewClient(redisAddr, redisPassword)

	var mailer usecase.EmailProvider
	if os.Getenv(config.ENV_KEY_SMTP_HOST) != "" {
		mp, err := email.NewEmailProvider(
			os.Getenv(config.ENV_KEY_SMTP_HOST),
			os.Getenv(config.ENV_KEY_SMTP_USERNAME),
			os.Getenv(config.ENV_KEY_SMTP_PASSWORD),
			os.Getenv(config.ENV_KEY_SMTP_PORT),
		)
		if err != nil {
			return nil, fmt.Errorf("failed to create email provider: %w", err)
		}
		mailer = mp
	}

	uc := usecase.New(repo, fb, sender, limiter, mailer, q, usecase.FromEnv()...)

	sv := &Server{
		server:    uc,
		validator: validator.New(),
		logger:    logger,
	}

	port, _ := strconv.Atoi(os.Getenv(config.ENV_KEY_PORT))
	if port == 0 {
		port = 8080
	}

	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      sv.RegisterRoutes(),
		IdleTimeout:  time.Minute,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	return &App{
		httpServer: httpServer,
		cleanups: []func(context.Context) error{
			func(context.Context) error { return uc.Close() },
			func(context.Context) error { return q.Close() },
			func(context.Context) error { return limiter.Close() },
			shutdownTracer,
		},
	}, nil
}

func (a *App) Addr() string {
	return a.httpServer.Addr
}

func (a *App) ListenAndServe() error {
	return a.httpServer.ListenAndServe()
}

// Shutdown stops the HTTP server and tears down the wired dependencies.
func (a *App) Shutdown(ctx context.Context) error {
	err := a.httpServer.Shutdown(ctx)
	for _, cleanup := range a.cleanups {
		if cerr := cleanup(ctx); cerr != nil && err == nil {
			err = cerr
		}
	}
	return err
}
