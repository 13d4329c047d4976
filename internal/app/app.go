// Package app wires configuration, the Genkit model client, the tool
// registry, and the session store into a ready-to-use container for the
// CLI and HTTP entry points.
package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/firebase/genkit/go/genkit"
	"github.com/firebase/genkit/go/plugins/googlegenai"
	"golang.org/x/time/rate"

	"github.com/evihealth/evi/internal/config"
	"github.com/evihealth/evi/internal/llm"
	"github.com/evihealth/evi/internal/log"
	"github.com/evihealth/evi/internal/session"
	"github.com/evihealth/evi/internal/tools"
)

// purgeInterval is how often idle sessions are swept.
const purgeInterval = 5 * time.Minute

// App is the application container.
type App struct {
	Config   *config.Config
	Logger   log.Logger
	Genkit   *genkit.Genkit
	Registry *tools.Registry
	Model    *llm.Client
	Store    *session.Store

	stopPurge chan struct{}
	purgeDone chan struct{}
}

// Setup initializes every component. The Gemini API key must be present;
// the googlegenai plugin reads it from the environment.
func Setup(ctx context.Context, cfg *config.Config) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}
	if err := cfg.RequireAPIKey(); err != nil {
		return nil, err
	}

	logger := log.New(log.Config{Level: cfg.SlogLevel(), JSON: cfg.LogJSON})

	g := genkit.Init(ctx, genkit.WithPlugins(&googlegenai.GoogleAI{}))
	if g == nil {
		return nil, errors.New("initializing genkit with gemini provider")
	}
	logger.Info("initialized Genkit with gemini provider", "model", cfg.ModelName)

	registry := tools.NewRegistry()

	model, err := llm.New(llm.Config{
		Genkit:    g,
		Registry:  registry,
		Logger:    logger,
		ModelName: cfg.ModelName,
	})
	if err != nil {
		return nil, fmt.Errorf("creating model client: %w", err)
	}

	store, err := session.NewStore(session.Config{
		Model:    model,
		Registry: registry,
		Logger:   logger,
		Limiter:  rate.NewLimiter(rate.Limit(cfg.ModelRPS), cfg.ModelBurst),
	})
	if err != nil {
		return nil, fmt.Errorf("creating session store: %w", err)
	}

	a := &App{
		Config:    cfg,
		Logger:    logger,
		Genkit:    g,
		Registry:  registry,
		Model:     model,
		Store:     store,
		stopPurge: make(chan struct{}),
		purgeDone: make(chan struct{}),
	}
	go a.purgeLoop(cfg.SessionIdleTTL)

	return a, nil
}

// purgeLoop sweeps idle sessions until Close is called.
func (a *App) purgeLoop(maxIdle time.Duration) {
	defer close(a.purgeDone)
	ticker := time.NewTicker(purgeInterval)
	defer ticker.Stop()
	for {
		select {
		case <-a.stopPurge:
			return
		case <-ticker.C:
			if n := a.Store.PurgeIdle(maxIdle); n > 0 {
				a.Logger.Info("purged idle sessions", "count", n)
			}
		}
	}
}

// Close stops background work. Safe to call once.
func (a *App) Close() error {
	close(a.stopPurge)
	<-a.purgeDone
	a.Logger.Info("application shut down")
	return nil
}
