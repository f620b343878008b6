// Bridge keeps one WebSocket connection to the vendor telematics feed, normalizes each
// message into telematic_data_streams, and serves /health, /connect and gRPC health.
package main

import (
	"context"
	"errors"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/moveo-mobility/aws-websocket-bridge/internal/bridge"
	"github.com/moveo-mobility/aws-websocket-bridge/internal/config"
	"github.com/moveo-mobility/aws-websocket-bridge/internal/db"
	"github.com/moveo-mobility/aws-websocket-bridge/internal/db/migrate"
	healthhandler "github.com/moveo-mobility/aws-websocket-bridge/internal/health/handler"
	"github.com/moveo-mobility/aws-websocket-bridge/internal/security"
	"github.com/moveo-mobility/aws-websocket-bridge/internal/server"
	"github.com/moveo-mobility/aws-websocket-bridge/internal/session"
	sessionrepo "github.com/moveo-mobility/aws-websocket-bridge/internal/session/repository"
	telematicsrepo "github.com/moveo-mobility/aws-websocket-bridge/internal/telematics/repository"
	"github.com/moveo-mobility/aws-websocket-bridge/internal/telemetry"
	otelsetup "github.com/moveo-mobility/aws-websocket-bridge/internal/telemetry/otel"
	"github.com/moveo-mobility/aws-websocket-bridge/internal/telemetry/producer"
	"github.com/moveo-mobility/aws-websocket-bridge/internal/transport/websocket"
)

const serviceName = "aws-websocket-bridge"

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	ctx := context.Background()
	providers, err := otelsetup.NewProviders(ctx, otelsetup.Config{
		Endpoint:    cfg.OTLPEndpoint,
		ServiceName: serviceName,
		Insecure:    cfg.OTLPInsecure,
	})
	if err != nil {
		log.Fatalf("otel: %v", err)
	}
	providers.SetGlobal()

	emitter := telemetry.Fanout{otelsetup.NewEventEmitter(providers.LoggerProvider)}
	var kafkaProducer *producer.KafkaProducer
	if brokers := cfg.TelemetryKafkaBrokersList(); len(brokers) > 0 {
		kafkaProducer = producer.NewKafkaProducer(brokers, cfg.TelemetryKafkaTopic)
		emitter = append(emitter, kafkaProducer)
		log.Printf("bridge events: kafka topic %s", cfg.TelemetryKafkaTopic)
	}

	var (
		records  telematicsrepo.Repository
		sessions sessionrepo.Repository
	)
	if cfg.DatabaseURL != "" {
		if cfg.RunMigrations {
			if err := migrate.Run(cfg.DatabaseURL, "up"); err != nil && !errors.Is(err, migrate.ErrNoChange) {
				log.Fatalf("migrate: %v", err)
			}
		}
		sqlDB, err := db.Open(cfg.DatabaseURL)
		if err != nil {
			log.Fatalf("db: %v", err)
		}
		defer sqlDB.Close()
		records = telematicsrepo.NewPostgresRepository(sqlDB)
		sessions = sessionrepo.NewPostgresRepository(sqlDB)
	} else {
		log.Println("DATABASE_URL not set; messages and sessions will not be persisted")
	}

	var verifier *security.Verifier
	if cfg.ControlAuthEnabled() {
		pub, err := security.ParsePublicKey(cfg.ControlJWTPublicKey)
		if err != nil {
			log.Fatalf("control key: %v", err)
		}
		verifier = security.NewVerifier(pub, cfg.ControlJWTIssuer, cfg.ControlJWTAudience)
	}

	var reporter *healthhandler.Reporter
	var grpcServer interface{ GracefulStop() }
	if cfg.GRPCAddr != "" {
		s, hs := server.NewGRPCServer(server.Deps{
			Emitter:  emitter,
			TenantID: cfg.TenantID,
			SkipEvents: map[string]bool{
				healthpb.Health_Check_FullMethodName: true,
			},
		})
		reporter = healthhandler.NewReporter(hs)
		lis, err := net.Listen("tcp", cfg.GRPCAddr)
		if err != nil {
			log.Fatalf("listen: %v", err)
		}
		go func() {
			log.Printf("gRPC health listening on %s", cfg.GRPCAddr)
			if err := s.Serve(lis); err != nil {
				log.Printf("grpc serve: %v", err)
			}
		}()
		grpcServer = s
	}

	mgr := bridge.NewManager(bridge.Options{
		URL:          cfg.UpstreamURL,
		TenantID:     cfg.TenantID,
		Dialer:       &websocket.Dialer{},
		Records:      records,
		Sessions:     session.NewRecorder(sessions, cfg.TenantID, cfg.UpstreamURL, nil),
		Emitter:      emitter,
		MaxAttempts:  cfg.ReconnectMaxAttempts,
		BaseDelay:    cfg.ReconnectBaseDelay,
		MaxDelay:     cfg.ReconnectMaxDelay,
		PingInterval: cfg.PingInterval,
		SinkTimeout:  cfg.SinkTimeout,
		MaxInFlight:  cfg.SinkMaxInFlight,
		OnStateChange: func(s bridge.State) {
			if reporter != nil {
				reporter.Observe(s)
			}
		},
	})

	httpServer := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           healthhandler.NewHTTP(mgr, verifier, nil).Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		log.Printf("HTTP listening on %s", cfg.HTTPAddr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("http serve: %v", err)
		}
	}()

	initial := time.AfterFunc(cfg.InitialConnectDelay, func() { mgr.Connect(ctx) })

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit
	log.Println("shutting down...")
	initial.Stop()

	shutdownCtx, cancel := context.WithTimeout(ctx, cfg.ShutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Printf("http shutdown: %v", err)
	}
	if err := mgr.Shutdown(shutdownCtx); err != nil {
		log.Printf("bridge shutdown: %v", err)
	}
	if reporter != nil {
		reporter.Shutdown()
	}
	if grpcServer != nil {
		grpcServer.GracefulStop()
	}

	// Let async emits finish before tearing down their exporters.
	time.Sleep(telemetry.ShutdownDrainDuration)
	if err := kafkaProducer.Close(); err != nil {
		log.Printf("kafka close: %v", err)
	}
	if err := providers.Shutdown(context.Background()); err != nil {
		log.Printf("otel shutdown: %v", err)
	}
	log.Println("stopped")
}
