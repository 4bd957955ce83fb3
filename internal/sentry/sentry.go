package sentry

import (
	"context"
	"time"

	"github.com/flexprice/invoicer/internal/config"
	"github.com/flexprice/invoicer/internal/logger"
	"github.com/getsentry/sentry-go"
	"go.uber.org/fx"
)

const flushTimeout = 2 * time.Second

// Service owns the process wide sentry client
type Service struct {
	cfg    *config.Configuration
	logger *logger.Logger
}

func NewSentryService(cfg *config.Configuration, log *logger.Logger) *Service {
	return &Service{cfg: cfg, logger: log}
}

// Init configures the global hub. It is a no-op when sentry is disabled.
func (s *Service) Init() error {
	if !s.cfg.Sentry.Enabled {
		s.logger.Debugw("sentry disabled")
		return nil
	}

	err := sentry.Init(sentry.ClientOptions{
		Dsn:              s.cfg.Sentry.DSN,
		Environment:      s.cfg.Sentry.Environment,
		EnableTracing:    true,
		TracesSampleRate: s.cfg.Sentry.SampleRate,
		AttachStacktrace: true,
	})
	if err != nil {
		return err
	}

	s.logger.Infow("sentry initialized", "environment", s.cfg.Sentry.Environment)
	return nil
}

func (s *Service) Flush() {
	if s.cfg.Sentry.Enabled {
		sentry.Flush(flushTimeout)
	}
}

// RegisterHooks ties Init and Flush to the application lifecycle
func RegisterHooks(lc fx.Lifecycle, s *Service) {
	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			return s.Init()
		},
		OnStop: func(context.Context) error {
			s.Flush()
			return nil
		},
	})
}
