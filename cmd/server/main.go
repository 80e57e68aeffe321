package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"invoicing-platform/backend/internal/audit"
	auditrepo "invoicing-platform/backend/internal/audit/repository"
	"invoicing-platform/backend/internal/config"
	"invoicing-platform/backend/internal/db"
	"invoicing-platform/backend/internal/directory"
	invoicerepo "invoicing-platform/backend/internal/invoice/repository"
	"invoicing-platform/backend/internal/pairing"
	"invoicing-platform/backend/internal/pairing/bridge"
	"invoicing-platform/backend/internal/policy/engine"
	"invoicing-platform/backend/internal/security"
	"invoicing-platform/backend/internal/server"
	"invoicing-platform/backend/internal/server/middleware"
	"invoicing-platform/backend/internal/telemetry"
	"invoicing-platform/backend/internal/telemetry/otel"
	"invoicing-platform/backend/internal/telemetry/producer"
	userrepo "invoicing-platform/backend/internal/user/repository"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	ctx := context.Background()

	database, err := db.Open(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("db: %v", err)
	}
	defer database.Close()

	tokens, err := buildTokenProvider(cfg)
	if err != nil {
		log.Fatalf("jwt: %v", err)
	}

	providers, err := otel.NewProviders(ctx, cfg.OTLPEndpoint, "ivp-server", cfg.OTLPInsecure)
	if err != nil {
		log.Fatalf("otel: %v", err)
	}
	providers.SetGlobal()

	topic := cfg.TelemetryKafkaTopic
	if topic == "" {
		topic = "ivp-telemetry"
	}
	kafkaProducer, err := producer.NewKafkaProducer(cfg.TelemetryKafkaBrokersList(), topic)
	if err != nil {
		log.Fatalf("kafka: %v", err)
	}

	if cfg.PairingBridgeURL == "" {
		log.Println("server: PAIRING_BRIDGE_URL is not set; pairing sessions will fail to start")
	}
	pairingFactory := bridge.NewClient(cfg.PairingBridgeURL).Factory()

	users := userrepo.NewPostgresRepository(database)
	invoices := invoicerepo.NewPostgresRepository(database)
	audits := auditrepo.NewPostgresRepository(database)
	auditLogger := audit.NewLogger(audits, middleware.GetClientIP)
	evaluator := engine.NewOPAEvaluator()

	pairingSvc := pairing.NewService(pairingFactory, users, pairing.Config{
		WaitTimeout:   cfg.PairingWait(),
		TeardownGrace: cfg.PairingGrace(),
	}, auditLogger)

	var telemetryProducer producer.Producer
	if kafkaProducer != nil {
		telemetryProducer = kafkaProducer
		defer kafkaProducer.Close()
	}

	router := server.NewRouter(server.Deps{
		Tokens:              tokens,
		UserRepo:            users,
		InvoiceRepo:         invoices,
		Directory:           directory.NewPostgresDirectory(database, security.NewHasher(cfg.BcryptCost)),
		Policy:              evaluator,
		Pairing:             pairingSvc,
		AuditRepo:           audits,
		AuditLogger:         auditLogger,
		Telemetry:           telemetryProducer,
		HealthPinger:        database,
		HealthPolicyChecker: evaluator,
	})

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		// No write timeout: pairing starts block up to the pairing wait timeout.
	}

	go func() {
		log.Printf("HTTP server listening on %s", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("serve: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	log.Println("shutting down HTTP server...")
	shutdownCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("shutdown: %v", err)
	}

	// Let in-flight async telemetry emits drain before the providers go away.
	time.Sleep(telemetry.ShutdownDrainDuration)
	if err := providers.Shutdown(shutdownCtx); err != nil {
		log.Printf("otel shutdown: %v", err)
	}
	log.Println("HTTP server stopped")
}

// buildTokenProvider parses the configured keys. The public key is required;
// the private key is optional (the API only validates tokens, issuing is done
// by the seed tool).
func buildTokenProvider(cfg *config.Config) (*security.TokenProvider, error) {
	pub, err := security.ParsePublicKey(cfg.JWTPublicKey)
	if err != nil {
		return nil, err
	}
	if cfg.JWTPrivateKey == "" {
		return security.NewTokenProvider(nil, pub, cfg.JWTIssuer, cfg.JWTAudience, cfg.AccessTTL()), nil
	}
	priv, err := security.ParsePrivateKey(cfg.JWTPrivateKey)
	if err != nil {
		return nil, err
	}
	return security.NewTokenProvider(priv, pub, cfg.JWTIssuer, cfg.JWTAudience, cfg.AccessTTL()), nil
}
