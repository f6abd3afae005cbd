package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	"google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	grpcapi "voxguardian/internal/api/grpc"
	"voxguardian/internal/app"
	"voxguardian/internal/config"
	"voxguardian/internal/events"
	httpapi "voxguardian/internal/http"
	"voxguardian/internal/observability"
	"voxguardian/internal/observability/logging"
	"voxguardian/internal/observability/metrics"
	"voxguardian/internal/scoring"
	"voxguardian/internal/service/analysis"
	"voxguardian/internal/service/audio"
	"voxguardian/internal/service/stt"
	"voxguardian/internal/service/stt/google"
	"voxguardian/internal/service/stt/mock"
	"voxguardian/internal/service/stt/whisper"
	"voxguardian/internal/store"
)

const shutdownTimeout = 15 * time.Second

func main() {
	cfg := config.Load()

	logging.Init(logging.Config{
		Level:      cfg.Observability.LogLevel,
		Format:     cfg.Observability.LogFormat,
		TimeFormat: time.RFC3339,
		Service:    cfg.Service.Name,
	})

	if err := run(cfg); err != nil {
		log.Fatal().Err(err).Msg("VoxGuardian exited with error")
	}
}

func run(cfg *config.Configuration) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	m := metrics.DefaultMetrics

	engine, err := newEngine(cfg.Scoring)
	if err != nil {
		return err
	}

	callStore, closeStore, err := newStore(ctx, cfg.Database)
	if err != nil {
		return err
	}
	defer closeStore()

	// Kafka publisher with separate topics for scored calls and emergencies
	publisher := events.New(&events.Config{
		Enabled:        cfg.Kafka.Enabled,
		Brokers:        cfg.Kafka.Brokers,
		TopicScored:    cfg.Kafka.TopicScored,
		TopicEmergency: cfg.Kafka.TopicEmergency,
		Principal:      cfg.Kafka.Principal,
	}, m)
	defer publisher.Close()

	transcriber, closeTranscriber, err := newTranscriber(ctx, cfg.STT)
	if err != nil {
		return err
	}
	defer closeTranscriber()

	intake, err := audio.NewIntake(cfg.Audio.UploadDir, audio.Limits{
		MaxBytes:          cfg.Audio.MaxUploadBytes,
		AllowedExtensions: audio.DefaultLimits().AllowedExtensions,
		AllowedMIMETypes:  audio.DefaultLimits().AllowedMIMETypes,
	}, m)
	if err != nil {
		return err
	}

	analyzer := analysis.New(analysis.Deps{
		Transcoder:  audio.NewFFmpegTranscoder(cfg.Audio.FFmpegPath, cfg.Audio.TargetSampleRate),
		Transcriber: transcriber,
		Store:       callStore,
		Publisher:   publisher,
		Engine:      engine,
		Metrics:     m,
	}, analysis.Config{TranscribeTimeout: cfg.STT.Timeout})

	checks := []observability.Check{{Name: "store", Probe: callStore.Ping}}

	application := app.New(cfg, app.Services{
		Engine:   engine,
		Analyzer: analyzer,
		Intake:   intake,
		Store:    callStore,
		Metrics:  m,
		Checks:   checks,
	})
	if err := application.Start(); err != nil {
		return err
	}
	defer application.Shutdown()

	obs := observability.NewServer(cfg.Service.MetricsAddr, prometheus.DefaultGatherer, checks...)
	obs.Start()

	httpServer := &http.Server{
		Addr:              ":" + cfg.Service.HTTPPort,
		Handler:           httpapi.NewRouter(application),
		ReadHeaderTimeout: 10 * time.Second,
	}

	lis, err := net.Listen("tcp", ":"+cfg.Service.GRPCPort)
	if err != nil {
		return fmt.Errorf("listen grpc: %w", err)
	}
	grpcServer := grpc.NewServer(grpc.UnaryInterceptor(observability.UnaryServerInterceptor(m)))

	// Register gRPC health check service
	healthServer := health.NewServer()
	grpc_health_v1.RegisterHealthServer(grpcServer, healthServer)
	healthServer.SetServingStatus("", grpc_health_v1.HealthCheckResponse_SERVING)
	healthServer.SetServingStatus(grpcapi.ServiceName, grpc_health_v1.HealthCheckResponse_SERVING)

	grpcapi.Register(grpcServer, engine, m)

	// Enable gRPC reflection for debugging tools like grpcurl
	reflection.Register(grpcServer)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Info().Str("addr", httpServer.Addr).Msg("VoxGuardian HTTP API started")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http serve: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		log.Info().Str("addr", lis.Addr().String()).Msg("VoxGuardian gRPC API started")
		if err := grpcServer.Serve(lis); err != nil {
			return fmt.Errorf("grpc serve: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		log.Info().Msg("Shutting down servers")

		healthServer.SetServingStatus("", grpc_health_v1.HealthCheckResponse_NOT_SERVING)
		grpcServer.GracefulStop()

		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := httpServer.Shutdown(sctx); err != nil {
			log.Warn().Err(err).Msg("HTTP shutdown incomplete")
		}
		if err := obs.Shutdown(sctx); err != nil {
			log.Warn().Err(err).Msg("Observability shutdown incomplete")
		}
		return nil
	})

	return g.Wait()
}

func newEngine(cfg config.ScoringConfig) (*scoring.Engine, error) {
	if cfg.PolicyFile == "" {
		return scoring.NewEngine(), nil
	}
	policy, vocab, err := scoring.LoadPolicyFile(cfg.PolicyFile)
	if err != nil {
		return nil, err
	}
	log.Info().Str("policyFile", cfg.PolicyFile).Msg("Loaded scoring policy")
	return scoring.NewEngine(scoring.WithPolicy(policy), scoring.WithVocabulary(vocab)), nil
}

func newStore(ctx context.Context, cfg config.DatabaseConfig) (store.CallStore, func(), error) {
	if !cfg.Enabled() {
		log.Warn().Msg("No database configured, keeping calls in memory")
		return store.NewMemoryStore(0), func() {}, nil
	}

	pool, err := pgxpool.New(ctx, cfg.DSN())
	if err != nil {
		return nil, nil, fmt.Errorf("connect database: %w", err)
	}
	s := store.NewPostgresStore(pool)
	if err := s.Migrate(ctx); err != nil {
		pool.Close()
		return nil, nil, err
	}
	log.Info().Str("database", cfg.String()).Msg("Connected to database")
	return s, pool.Close, nil
}

func newTranscriber(ctx context.Context, cfg config.STTConfig) (stt.Transcriber, func(), error) {
	noop := func() {}

	switch cfg.Provider {
	case "mock", "":
		return mock.New(), noop, nil
	case "whisper":
		a, err := whisper.New(cfg.WhisperURL,
			whisper.WithModel(cfg.WhisperModel),
			whisper.WithLanguage(cfg.LanguageCode),
		)
		if err != nil {
			return nil, nil, err
		}
		return a, noop, nil
	case "google":
		a, err := google.New(ctx, google.Config{
			LanguageCode:  cfg.LanguageCode,
			SampleRateHz:  int32(cfg.SampleRateHz),
			AudioEncoding: cfg.AudioEncoding,
		})
		if err != nil {
			return nil, nil, err
		}
		return a, func() { _ = a.Close() }, nil
	default:
		return nil, nil, fmt.Errorf("unknown STT provider %q", cfg.Provider)
	}
}
