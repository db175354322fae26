package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/kozaktomas/faceauth/internal/config"
	"github.com/kozaktomas/faceauth/internal/database"
	"github.com/kozaktomas/faceauth/internal/database/filestore"
	"github.com/kozaktomas/faceauth/internal/enrollment"
	"github.com/kozaktomas/faceauth/internal/extractor"
	"github.com/kozaktomas/faceauth/internal/logging"
)

// errAccessDenied makes a rejected authentication exit non-zero.
var errAccessDenied = errors.New("access denied")

// app bundles what every command needs.
type app struct {
	cfg    *config.Config
	log    *zap.Logger
	enroll *enrollment.EnrollmentStore
	auth   *enrollment.AuthorizationStore
}

// newApp resolves configuration (defaults, file, env, flags) and opens both stores.
func newApp(cmd *cobra.Command) (*app, error) {
	path := mustGetString(cmd, "config")
	if path == "" {
		path = os.Getenv("FACEAUTH_CONFIG")
	}
	cfg, err := config.LoadFile(path)
	if err != nil {
		return nil, err
	}

	if v := mustGetString(cmd, "enroll-dir"); v != "" {
		cfg.Store.EnrollDir = v
	}
	if v := mustGetString(cmd, "auth-dir"); v != "" {
		cfg.Store.AuthDir = v
	}
	if v := mustGetString(cmd, "log-level"); v != "" {
		cfg.Log.Level = v
	}
	if v := mustGetString(cmd, "log-format"); v != "" {
		cfg.Log.Format = v
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	logger, err := logging.NewWithWriter(cmd.ErrOrStderr(), cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return nil, err
	}

	enrollDB := filestore.New(cfg.Store.EnrollDir, logger)
	authDB := filestore.New(cfg.Store.AuthDir, logger)

	return &app{
		cfg:    cfg,
		log:    logger,
		enroll: enrollment.NewEnrollmentStore(enrollDB, cfg.Store.Dimension, logger),
		auth:   enrollment.NewAuthorizationStore(enrollDB, authDB, logger),
	}, nil
}

func (a *app) close() {
	_ = logging.Sync(a.log)
}

// commandContext returns a context cancelled on SIGINT/SIGTERM.
func commandContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	parent := cmd.Context()
	if parent == nil {
		parent = context.Background()
	}
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}

// newExtractor builds the provider chain in the configured order.
func (a *app) newExtractor() *extractor.Chain {
	ec := a.cfg.Extractor
	var strategies []extractor.Strategy

	for _, name := range ec.Providers {
		switch name {
		case "command":
			strategies = append(strategies, extractor.Strategy{
				Name: "command",
				Acquire: func(ctx context.Context) (extractor.Provider, error) {
					return extractor.DiscoverCommandProvider(ec.Interpreters, ec.Scripts, ec.MinDetScore)
				},
			})
		case "http":
			strategies = append(strategies, extractor.Strategy{
				Name: "http",
				Acquire: func(ctx context.Context) (extractor.Provider, error) {
					return extractor.NewHTTPProvider(ec.URL, ec.MinDetScore, ec.Timeout()), nil
				},
			})
		}
	}
	return extractor.NewChain(a.log, strategies...)
}

// extractFile loads an image from disk and extracts its feature vector.
func (a *app) extractFile(ctx context.Context, ex extractor.Extractor, path string) (database.FeatureVector, error) {
	data, err := extractor.LoadImage(path, a.cfg.Extractor.MaxImageSize)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	vec, err := ex.Extract(ctx, data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return vec, nil
}
