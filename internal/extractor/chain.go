package extractor

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/kozaktomas/faceauth/internal/database"
)

// Strategy is one way of obtaining a working provider.
type Strategy struct {
	Name    string
	Acquire func(ctx context.Context) (Provider, error)
}

// Chain tries strategies in order and keeps the first provider that passes its
// probe for the rest of the process.
type Chain struct {
	strategies []Strategy
	log        *zap.Logger

	mu     sync.Mutex
	active Provider
}

// NewChain creates a chain over strategies.
func NewChain(logger *zap.Logger, strategies ...Strategy) *Chain {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Chain{strategies: strategies, log: logger.Named("extractor")}
}

// Acquire returns the cached provider or walks the strategies to find one.
// When every strategy fails the error names each of them and its reason.
func (c *Chain) Acquire(ctx context.Context) (Provider, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.active != nil {
		return c.active, nil
	}

	var errs error
	for _, s := range c.strategies {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		p, err := s.Acquire(ctx)
		if err == nil {
			err = p.Probe(ctx)
		}
		if err != nil {
			c.log.Debug("extractor strategy failed", zap.String("strategy", s.Name), zap.Error(err))
			errs = multierr.Append(errs, fmt.Errorf("%s: %w", s.Name, err))
			continue
		}

		c.log.Info("extractor ready", zap.String("strategy", s.Name), zap.String("provider", p.Name()))
		c.active = p
		return p, nil
	}

	if errs == nil {
		return nil, fmt.Errorf("%w: no strategies configured", ErrNoProvider)
	}
	return nil, fmt.Errorf("%w: %w", ErrNoProvider, errs)
}

// Extract acquires a provider if needed and delegates to it.
func (c *Chain) Extract(ctx context.Context, image []byte) (database.FeatureVector, error) {
	p, err := c.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	return p.Extract(ctx, image)
}

var _ Extractor = (*Chain)(nil)
