package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	_ "github.com/lib/pq"
	"github.com/mopay/agent-service/internal/config"
	"github.com/mopay/agent-service/internal/handler"
	"github.com/mopay/agent-service/internal/integrations/momo"
	"github.com/mopay/agent-service/internal/middleware"
	"github.com/mopay/agent-service/internal/network"
	"github.com/mopay/agent-service/internal/reports"
	"github.com/mopay/agent-service/internal/service"
	"github.com/mopay/agent-service/internal/storage"
	"github.com/mopay/agent-service/internal/store"
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

func main() {
	// Initialize logger
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})

	// Load configuration
	cfg, err := config.LoadConfig(".")
	if err != nil {
		logger.Fatalf("Failed to load config: %v", err)
	}
	logLevel, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		logLevel = logrus.InfoLevel
	}
	logger.SetLevel(logLevel)

	encryptionKey, err := cfg.EncryptionKeyBytes()
	if err != nil {
		logger.Fatalf("Invalid encryption key: %v", err)
	}

	// Initialize storage. Without a database the stores are in-memory and
	// state does not survive a restart.
	var secureRaw storage.SecureStore
	var appStore storage.AppStore
	if cfg.DBConn != "" {
		db, err := sql.Open("postgres", cfg.DBConn)
		if err != nil {
			logger.Fatalf("Failed to connect to database: %v", err)
		}
		defer db.Close()
		if err := db.Ping(); err != nil {
			logger.Fatalf("Failed to ping database: %v", err)
		}

		secureKV := storage.NewPostgresKV(db, "secure_kv")
		appKV := storage.NewPostgresKV(db, "app_kv")
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := secureKV.EnsureSchema(ctx); err != nil {
			logger.Fatalf("Failed to prepare secure storage: %v", err)
		}
		if err := appKV.EnsureSchema(ctx); err != nil {
			logger.Fatalf("Failed to prepare app storage: %v", err)
		}
		secureRaw = secureKV
		appStore = appKV
	} else {
		logger.Warn("No database configured, using in-memory storage")
		secureRaw = storage.NewMemoryKV()
		appStore = storage.NewMemoryKV()
	}
	secrets := storage.NewEncryptedStore(secureRaw, encryptionKey, cfg.HMACSecret)

	// Build the network registry, applying configured base URL overrides.
	networks := network.Defaults()
	overrides := map[string]string{
		"mtn":        cfg.MTNAPIURL,
		"airteltigo": cfg.AirtelTigoAPIURL,
		"vodafone":   cfg.VodafoneAPIURL,
	}
	for i, n := range networks {
		if url := overrides[n.ID]; url != "" {
			networks[i].APIBaseURL = url
		}
	}
	registry := network.NewRegistry(networks)

	// Initialize layers
	st := store.New(registry, secrets, appStore, logger)
	st.Load(context.Background())

	clientCfg := momo.DefaultConfig()
	clientCfg.Timeout = time.Duration(cfg.APITimeoutSecs) * time.Second
	manager := momo.NewManager(registry, clientCfg, secrets, logger)

	svc := service.NewService(st, manager, secrets, appStore, cfg, logger)
	h := handler.NewHandler(svc, st, registry, logger)

	// Schedule the daily report email
	if cfg.ReportRecipient != "" && cfg.SMTPHost != "" {
		mailer := reports.NewMailer(cfg, logger)
		scheduler := cron.New()
		_, err := scheduler.AddFunc(cfg.ReportSchedule, func() {
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			summary := reports.Summarize(st.Transactions(), reports.Range{
				From: time.Now().Add(-24 * time.Hour),
			})
			if err := mailer.SendDailySummary(cfg.ReportRecipient, svc.Profile(ctx), summary); err != nil {
				logger.Errorf("Daily report failed: %v", err)
			}
		})
		if err != nil {
			logger.Fatalf("Invalid report schedule %q: %v", cfg.ReportSchedule, err)
		}
		scheduler.Start()
		defer scheduler.Stop()
	}

	// Setup router
	r := mux.NewRouter()
	// Public routes
	r.HandleFunc("/login", h.Login).Methods("POST")
	r.HandleFunc("/pin", h.SetupPIN).Methods("POST")
	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}).Methods("GET")

	// Protected routes
	authRouter := r.PathPrefix("/").Subrouter()
	authRouter.Use(middleware.AuthMiddleware(cfg))
	authRouter.HandleFunc("/networks", h.Networks).Methods("GET")
	authRouter.HandleFunc("/networks/authenticate", h.AuthenticateNetworks).Methods("POST")
	authRouter.HandleFunc("/networks/{networkId}/balance", h.Balance).Methods("GET")
	authRouter.HandleFunc("/networks/{networkId}/billers", h.Billers).Methods("GET")
	authRouter.HandleFunc("/accounts", h.ListAccounts).Methods("GET")
	authRouter.HandleFunc("/accounts", h.CreateAccount).Methods("POST")
	authRouter.HandleFunc("/accounts/{networkId}/{accountId}", h.DeleteAccount).Methods("DELETE")
	authRouter.HandleFunc("/sim-assignments", h.SimAssignments).Methods("GET")
	authRouter.HandleFunc("/sim-assignments", h.AssignSim).Methods("PUT")
	authRouter.HandleFunc("/transactions", h.ListTransactions).Methods("GET")
	authRouter.HandleFunc("/transactions/cash-in", h.CashIn).Methods("POST")
	authRouter.HandleFunc("/transactions/cash-out", h.CashOut).Methods("POST")
	authRouter.HandleFunc("/transactions/send", h.SendMoney).Methods("POST")
	authRouter.HandleFunc("/transactions/airtime", h.BuyAirtime).Methods("POST")
	authRouter.HandleFunc("/transactions/pay-bill", h.PayBill).Methods("POST")
	authRouter.HandleFunc("/transactions/{networkId}/{transactionId}/status", h.TransactionStatus).Methods("GET")
	authRouter.HandleFunc("/balances", h.Balances).Methods("POST")
	authRouter.HandleFunc("/reports/summary", h.ReportSummary).Methods("GET")
	authRouter.HandleFunc("/reports/statement.xml", h.ReportStatement).Methods("GET")
	authRouter.HandleFunc("/pin", h.ChangePIN).Methods("PUT")
	authRouter.HandleFunc("/profile", h.Profile).Methods("GET")
	authRouter.HandleFunc("/profile", h.UpdateProfile).Methods("PUT")
	authRouter.HandleFunc("/security-settings", h.SecuritySettings).Methods("GET")
	authRouter.HandleFunc("/security-settings", h.UpdateSecuritySettings).Methods("PUT")

	// Start server
	addr := fmt.Sprintf(":%s", cfg.Port)
	server := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 35 * time.Second,
	}
	logger.Infof("Starting server on %s", addr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Fatalf("Server failed: %v", err)
	}
	st.Flush()
}
