package app

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"voxguardian/internal/config"
	"voxguardian/internal/observability"
	"voxguardian/internal/observability/logging"
	"voxguardian/internal/observability/metrics"
	"voxguardian/internal/schema"
	"voxguardian/internal/scoring"
	"voxguardian/internal/service/analysis"
	"voxguardian/internal/service/audio"
	"voxguardian/internal/store"
)

// Services are the wired components the transports serve.
type Services struct {
	Engine    *scoring.Engine
	Analyzer  *analysis.Analyzer
	Intake    *audio.Intake
	Store     store.CallStore
	Validator *schema.Validator
	Metrics   *metrics.Metrics
	Checks    []observability.Check
}

// Application holds process-wide state for the service.
type Application struct {
	StartupTime time.Time
	Logger      zerolog.Logger
	Cfg         *config.Configuration
	Services
}

// New constructs a new Application from the provided configuration and
// services. Missing Engine, Validator and Metrics are defaulted.
func New(cfg *config.Configuration, svc Services) *Application {
	if svc.Engine == nil {
		svc.Engine = scoring.NewEngine()
	}
	if svc.Validator == nil {
		svc.Validator = schema.New()
	}
	if svc.Metrics == nil {
		svc.Metrics = metrics.DefaultMetrics
	}

	a := &Application{
		Cfg:      cfg,
		Services: svc,
		Logger: logging.WithComponent("application").With().
			Str("service", cfg.Service.Name).
			Logger(),
	}

	a.Logger.Info().
		Str("method", "New").
		Str("environment", cfg.Service.Environment).
		Str("database", cfg.Database.String()).
		Str("sttProvider", cfg.STT.Provider).
		Msg("VoxGuardian application created")
	return a
}

// Ready runs the readiness checks.
func (a *Application) Ready(ctx context.Context) (map[string]string, bool) {
	return observability.Ready(ctx, a.Checks)
}

// Start performs any startup work required before serving traffic.
func (a *Application) Start() error {
	a.StartupTime = time.Now().UTC()
	a.Logger.Info().
		Str("method", "Start").
		Time("startupTime", a.StartupTime).
		Msg("VoxGuardian service starting")
	return nil
}

// Shutdown performs a best-effort cleanup before process exit.
func (a *Application) Shutdown() {
	a.Logger.Info().
		Str("method", "Shutdown").
		Dur("uptime", time.Since(a.StartupTime)).
		Msg("VoxGuardian service shutting down")
}
