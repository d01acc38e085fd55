// Package main starts the seopilot dashboard service.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/dmitrymomot/seopilot/internal/app"
	"github.com/dmitrymomot/seopilot/internal/web"
	"github.com/dmitrymomot/seopilot/pkg/clientip"
	"github.com/dmitrymomot/seopilot/pkg/config"
	"github.com/dmitrymomot/seopilot/pkg/environment"
	"github.com/dmitrymomot/seopilot/pkg/logger"
	"github.com/dmitrymomot/seopilot/pkg/supabase"
)

func main() {
	var cfg app.Config
	if err := config.Load(&cfg); err != nil {
		logger.New().Error("failed to load configuration", logger.Error(err))
		os.Exit(1)
	}

	log := logger.New(
		logger.WithEnvironment(environment.Parse(cfg.Env), cfg.Name),
		logger.WithContextExtractors(append(web.LogExtractors(),
			clientip.LoggerExtractor(),
			environment.LoggerExtractor(),
		)...),
	)
	logger.SetAsDefault(log)

	var opts []app.Option
	if cfg.AuthProvider == app.ProviderSupabase {
		var sb supabase.Config
		if err := config.Load(&sb); err != nil {
			log.Error("failed to load supabase configuration", logger.Error(err))
			os.Exit(1)
		}
		opts = append(opts, app.WithSupabase(sb))
	}

	a, err := app.New(cfg, log, opts...)
	if err != nil {
		log.Error("failed to build service", logger.Error(err))
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Info("starting service",
		logger.Component("main"),
		logger.Provider(cfg.AuthProvider))
	if err := a.Run(ctx); err != nil {
		log.Error("server stopped with error", logger.Error(err))
		stop()
		os.Exit(1)
	}
}
