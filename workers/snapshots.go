// Package workers contains background processes run by the serve command.
package workers

import (
	"context"

	"github.com/lola-testbed/pub/models"
	"golang.org/x/exp/slog"
	"gorm.io/gorm"
)

// A Fetcher fetches a snapshot of the remote actor at a URL.
type Fetcher interface {
	FetchActor(ctx context.Context, handle string) (*models.Remote, error)
}

// RefreshStats counts the outcome of a refresh pass.
type RefreshStats struct {
	Refreshed int
	Failed    int
}

func (s RefreshStats) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Int("refreshed", s.Refreshed),
		slog.Int("failed", s.Failed),
	)
}

// RefreshSnapshots makes one pass through the active relationships with
// remote actors, replacing each stored snapshot with a fresh copy. Actors
// which cannot be fetched keep their previous snapshot.
func RefreshSnapshots(ctx context.Context, db *gorm.DB, fetcher Fetcher, logger *slog.Logger) (RefreshStats, error) {
	r := &refresher{fetcher: fetcher, logger: logger}
	db = db.WithContext(ctx)
	if err := process(db, remoteScope, r.following); err != nil {
		return r.stats, err
	}
	if err := process(db, remoteScope, r.follower); err != nil {
		return r.stats, err
	}
	return r.stats, nil
}

func remoteScope(db *gorm.DB) *gorm.DB {
	return db.Where("target_url IS NOT NULL AND status = ?", models.StatusActive)
}

type refresher struct {
	fetcher Fetcher
	logger  *slog.Logger
	stats   RefreshStats
}

func (r *refresher) following(tx *gorm.DB, rel *models.Following) error {
	snap, ok := r.fetch(tx.Statement.Context, *rel.TargetURL)
	if !ok {
		return nil
	}
	rel.TargetData = snap
	return tx.Model(rel).Select("TargetData").Updates(rel).Error
}

func (r *refresher) follower(tx *gorm.DB, rel *models.Follower) error {
	snap, ok := r.fetch(tx.Statement.Context, *rel.TargetURL)
	if !ok {
		return nil
	}
	rel.TargetData = snap
	return tx.Model(rel).Select("TargetData").Updates(rel).Error
}

func (r *refresher) fetch(ctx context.Context, url string) (models.Snapshot, bool) {
	remote, err := r.fetcher.FetchActor(ctx, url)
	if err != nil {
		r.logger.Warn("refresh snapshot", "url", url, "error", err)
		r.stats.Failed++
		return nil, false
	}
	r.stats.Refreshed++
	return remote.Data, true
}

// process makes one pass through the rows matching the scope, calling fn for each one.
// fn is passed db, not the batch query, so its writes carry none of the scope's conditions.
func process[T any](db *gorm.DB, scope func(*gorm.DB) *gorm.DB, fn func(*gorm.DB, T) error) error {
	var rows []T
	return db.Scopes(scope).FindInBatches(&rows, 100, func(_ *gorm.DB, batch int) error {
		return forEach(rows, func(row T) error {
			return fn(db, row)
		})
	}).Error
}

func forEach[T any](a []T, fn func(T) error) error {
	for _, v := range a {
		if err := fn(v); err != nil {
			return err
		}
	}
	return nil
}
