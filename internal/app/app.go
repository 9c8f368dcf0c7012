// Package app wires the gateway dependency graph.
package app

import (
	"context"
	"database/sql"
	"net/http"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"quickconnect/internal/auth"
	"quickconnect/internal/chat"
	"quickconnect/internal/config"
	httpserver "quickconnect/internal/http"
	"quickconnect/internal/http/handlers"
	"quickconnect/internal/http/middleware"
	"quickconnect/internal/payments"
	"quickconnect/internal/receipt"
	"quickconnect/internal/session"
	"quickconnect/internal/upstream"
	libdb "quickconnect/libs/db"
	libredis "quickconnect/libs/redis"
)

// App wires gateway dependencies.
type App struct {
	server      *httpserver.Server
	chatManager *chat.Manager
	db          *sql.DB
	redisClient *redis.Client
	logger      *zap.Logger
}

// New constructs the application graph.
func New(cfg *config.Config, logger *zap.Logger) (*App, error) {
	sqlDB, err := libdb.NewPostgres(cfg.Database.DSN)
	if err != nil {
		return nil, err
	}

	redisClient, err := libredis.NewClient(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		sqlDB.Close()
		return nil, err
	}

	sealKey, err := cfg.SealKeyBytes()
	if err != nil {
		sqlDB.Close()
		redisClient.Close()
		return nil, err
	}
	sealer, err := auth.NewSealer(sealKey)
	if err != nil {
		sqlDB.Close()
		redisClient.Close()
		return nil, err
	}

	resolver := upstream.NewResolver(cfg.Upstream.BaseURL, &http.Client{Timeout: cfg.UpstreamTimeout()}, logger)
	client := upstream.NewClient(resolver, logger)

	tokens := auth.NewTokenService(cfg.Auth.JWTSecret, cfg.TokenTTL())
	credentials := auth.NewService(client, tokens, sealer, redisClient, cfg.CredentialTTL(), logger)

	sessionStore := session.NewPostgresStore(sqlDB)
	activeStore := session.NewActiveStore(redisClient, cfg.CredentialTTL())
	flow := session.NewFlow(client, sessionStore, activeStore, logger)

	paymentStore := payments.NewPostgresStore(sqlDB)
	paymentService := payments.NewService(client, paymentStore, flow,
		cfg.Payments.Currency, cfg.PaymentPollInterval(), cfg.PaymentPollBudget(), logger)

	receiptStore := receipt.NewPostgresStore(sqlDB)
	chatManager := chat.NewManager(cfg.ChatPingInterval(), logger)

	authHandlers := handlers.NewAuthHandlers(credentials, logger)
	profileHandlers := handlers.NewProfileHandlers(client, logger)
	sessionHandlers := handlers.NewSessionHandlers(flow, chatManager, logger)
	paymentHandlers := handlers.NewPaymentHandlers(paymentService, logger)
	receiptHandlers := handlers.NewReceiptHandlers(flow, paymentService, receiptStore, client, logger)
	historyHandlers := handlers.NewHistoryHandlers(client, flow, logger)
	chatHandler := handlers.NewChatHandler(flow, chatManager, logger)

	routes := httpserver.Routes{
		Login:   authHandlers.Login,
		Refresh: authHandlers.Refresh,
		Logout:  authHandlers.Logout,

		Profile:        profileHandlers.Profile,
		UpdateProfile:  profileHandlers.UpdateProfile,
		Settings:       profileHandlers.Settings,
		UpdateSetting:  profileHandlers.UpdateSetting,
		PaymentMethods: profileHandlers.PaymentMethods,
		History:        historyHandlers.List,
		HistoryStats:   historyHandlers.Stats,

		SessionCreate: sessionHandlers.Create,
		SessionGet:    sessionHandlers.Get,
		SessionStart:  sessionHandlers.Start,
		SessionEnd:    sessionHandlers.End,
		SessionRate:   sessionHandlers.Rate,

		MpesaInitiate:  paymentHandlers.MpesaInitiate,
		PaymentConfirm: paymentHandlers.Confirm,
		CardInitiate:   paymentHandlers.CardInitiate,
		BankConfirm:    paymentHandlers.BankConfirm,

		Receipt:         receiptHandlers.Get,
		ReceiptDocument: receiptHandlers.Document,

		ChatJoin: chatHandler.Join,

		Health: handlers.NewHealthHandler(),
	}

	router := httpserver.NewRouter(routes, middleware.Auth(tokens, credentials))
	server := httpserver.NewServer(cfg.HTTPAddress(), middleware.Logging(logger)(router), logger)

	return &App{
		server:      server,
		chatManager: chatManager,
		db:          sqlDB,
		redisClient: redisClient,
		logger:      logger,
	}, nil
}

// Run starts the chat keepalive loop and the HTTP server.
func (a *App) Run(ctx context.Context) error {
	go a.chatManager.Start(ctx)
	return a.server.Run(ctx)
}

// Close releases resources.
func (a *App) Close() {
	if a.db != nil {
		if err := a.db.Close(); err != nil {
			a.logger.Warn("failed to close db", zap.Error(err))
		}
	}
	if a.redisClient != nil {
		if err := a.redisClient.Close(); err != nil {
			a.logger.Warn("failed to close redis", zap.Error(err))
		}
	}
}
