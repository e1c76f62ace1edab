package cmd

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/emailzen/emailzen/internal/analyzer"
	"github.com/emailzen/emailzen/internal/engine"
	"github.com/emailzen/emailzen/internal/gmail"
	"github.com/emailzen/emailzen/internal/google"
	"github.com/emailzen/emailzen/internal/logging"
	"github.com/emailzen/emailzen/internal/rules"
	"github.com/emailzen/emailzen/internal/scheduler"
	"github.com/emailzen/emailzen/internal/storage"
)

// app wires the store, the Gmail client stack and the domain services
// together. Every command builds one from the persistent flags.
type app struct {
	store     storage.Store
	logger    *slog.Logger
	auth      *google.Authenticator
	gmail     gmail.Service
	rules     *rules.Store
	stats     *storage.StatsRepo
	history   *storage.HistoryRepo
	labels    *engine.LabelCache
	engine    *engine.Engine
	analyzer  *analyzer.Analyzer
	scheduler *scheduler.Scheduler
}

// openStore resolves the data directory and opens the file store. Used
// directly by commands that never touch the Gmail API.
func openStore() (*storage.FileStore, *slog.Logger, error) {
	dir := dataDir
	if dir == "" {
		var err error
		dir, err = storage.DefaultDir()
		if err != nil {
			return nil, nil, err
		}
	}
	store, err := storage.NewFileStore(dir)
	if err != nil {
		return nil, nil, err
	}
	return store, logging.New(debugMode), nil
}

// newAuthenticator builds the OAuth authenticator over the store using
// credentials from the environment.
func newAuthenticator(store storage.Store) (*google.Authenticator, error) {
	clientID, clientSecret, err := google.CredentialsFromEnv()
	if err != nil {
		return nil, err
	}
	return google.NewAuthenticator(store, clientID, clientSecret), nil
}

// newApp builds the full service stack: authenticated Gmail client with
// retry handling, rule store, engine, analyzer and scheduler.
func newApp(ctx context.Context) (*app, error) {
	store, logger, err := openStore()
	if err != nil {
		return nil, err
	}

	auth, err := newAuthenticator(store)
	if err != nil {
		return nil, err
	}
	if !auth.HasToken() {
		return nil, fmt.Errorf("not authenticated, run 'emailzen auth' first")
	}

	base, err := gmail.NewGoogleService(ctx, google.TokenSource(ctx, auth))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gmail client: %w", err)
	}
	svc := gmail.NewRetryingService(base, auth, logger)

	ruleStore := rules.NewStore(store)
	stats := storage.NewStatsRepo(store)
	history := storage.NewHistoryRepo(store)
	labels := engine.NewLabelCache(svc, store, logger)
	eng := engine.New(svc, ruleStore, labels, stats, history, logger)

	return &app{
		store:     store,
		logger:    logger,
		auth:      auth,
		gmail:     svc,
		rules:     ruleStore,
		stats:     stats,
		history:   history,
		labels:    labels,
		engine:    eng,
		analyzer:  analyzer.New(svc, ruleStore, store, logger),
		scheduler: scheduler.New(eng, store, logger),
	}, nil
}
