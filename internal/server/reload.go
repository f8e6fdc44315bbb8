package server

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

var ErrReloadInProgress = errors.New("reload already in progress")

// Invalidator drops memoized constituent tables.
type Invalidator interface {
	Invalidate() int
	Cached() int
}

// Warmer loads the constituent table again after a flush.
type Warmer func(ctx context.Context) error

// Notifier is told how many tables were dropped by a reload.
type Notifier interface {
	Invalidated(count int)
}

// ReloadManager flushes the constituent cache, reloads the table and tells
// connected sessions to rerun.
type ReloadManager struct {
	cache    Invalidator
	warm     Warmer
	notifier Notifier
	logger   *zap.Logger

	isReloading atomic.Bool
	reloadMu    sync.Mutex

	loadedAt time.Time
	stateMu  sync.RWMutex
}

// NewReloadManager creates a ReloadManager. warm and notifier may be nil.
func NewReloadManager(cache Invalidator, warm Warmer, notifier Notifier, logger *zap.Logger) *ReloadManager {
	return &ReloadManager{
		cache:    cache,
		warm:     warm,
		notifier: notifier,
		logger:   logger,
		loadedAt: time.Now(),
	}
}

// IsReloading returns true if a reload is currently in progress.
func (rm *ReloadManager) IsReloading() bool {
	return rm.isReloading.Load()
}

// Cached returns how many constituent tables are memoized.
func (rm *ReloadManager) Cached() int {
	return rm.cache.Cached()
}

// LoadedAt returns when the cache was last flushed.
func (rm *ReloadManager) LoadedAt() time.Time {
	rm.stateMu.RLock()
	defer rm.stateMu.RUnlock()
	return rm.loadedAt
}

type ReloadResult struct {
	Dropped  int
	LoadedAt time.Time
	Warmed   bool
}

// Reload flushes the cache and warms it again. A failed warm-up is logged
// and reported in the result; the next rerun retries the load.
func (rm *ReloadManager) Reload(ctx context.Context) (*ReloadResult, error) {
	if !rm.reloadMu.TryLock() {
		return nil, ErrReloadInProgress
	}
	defer rm.reloadMu.Unlock()

	rm.isReloading.Store(true)
	defer rm.isReloading.Store(false)

	dropped := rm.cache.Invalidate()

	rm.stateMu.Lock()
	rm.loadedAt = time.Now()
	loadedAt := rm.loadedAt
	rm.stateMu.Unlock()

	warmed := false
	if rm.warm != nil {
		if err := rm.warm(ctx); err != nil {
			rm.logger.Warn("reloading constituents failed", zap.Error(err))
		} else {
			warmed = true
		}
	}

	if rm.notifier != nil {
		rm.notifier.Invalidated(dropped)
	}

	rm.logger.Info("constituent cache reloaded",
		zap.Int("dropped", dropped),
		zap.Bool("warmed", warmed),
		zap.Time("loadedAt", loadedAt),
	)

	return &ReloadResult{
		Dropped:  dropped,
		LoadedAt: loadedAt,
		Warmed:   warmed,
	}, nil
}
