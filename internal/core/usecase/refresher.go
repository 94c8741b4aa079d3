package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/finqlabs/finretriever/internal/core/index"
	"github.com/finqlabs/finretriever/internal/core/ports"
)

// IndexRefresher rebuilds the table index snapshot from persisted entities
// and publishes it with an atomic swap. Rebuilds never touch the live
// snapshot; queries in flight keep the generation they started with.
type IndexRefresher struct {
	entities ports.EntityRepository
	provider *index.Provider
	logger   *slog.Logger
	interval time.Duration
	onSwap   func(entityCount int)
}

// SetSnapshotObserver installs a hook called with the entity count of each
// swapped-in generation. Install before Run.
func (r *IndexRefresher) SetSnapshotObserver(fn func(entityCount int)) {
	r.onSwap = fn
}

func NewIndexRefresher(
	entities ports.EntityRepository,
	provider *index.Provider,
	logger *slog.Logger,
	interval time.Duration,
) *IndexRefresher {
	if logger == nil {
		logger = slog.Default()
	}
	if interval <= 0 {
		interval = 30 * time.Second
	}
	return &IndexRefresher{
		entities: entities,
		provider: provider,
		logger:   logger,
		interval: interval,
	}
}

// Refresh builds one new generation off to the side and swaps it in.
func (r *IndexRefresher) Refresh(ctx context.Context) error {
	entities, err := r.entities.ListAll(ctx)
	if err != nil {
		return fmt.Errorf("list table entities: %w", err)
	}
	r.provider.Swap(index.New(entities))
	if r.onSwap != nil {
		r.onSwap(len(entities))
	}
	return nil
}

// Run refreshes once immediately, then on the configured interval until the
// context is cancelled.
func (r *IndexRefresher) Run(ctx context.Context) {
	if err := r.Refresh(ctx); err != nil {
		r.logger.Warn("index_refresh_failed", "error", err)
	}

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := r.Refresh(ctx); err != nil {
				r.logger.Warn("index_refresh_failed", "error", err)
				continue
			}
			r.logger.Debug("index_refreshed", "entities", r.provider.Current().Len())
		}
	}
}
