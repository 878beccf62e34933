package yonote

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/vladmir0512/deadline-bot/internal/domain"
	"github.com/vladmir0512/deadline-bot/internal/store"
)

const sourceName = "yonote"

// Fetcher is the part of Client the syncer needs.
type Fetcher interface {
	FetchRecords(ctx context.Context) ([]Record, error)
}

// Syncer mirrors Yonote deadline records into the local store for every
// registered user.
type Syncer struct {
	repo    store.Repo
	fetcher Fetcher
	log     *zap.Logger
}

func NewSyncer(repo store.Repo, fetcher Fetcher, log *zap.Logger) *Syncer {
	return &Syncer{repo: repo, fetcher: fetcher, log: log}
}

// SyncAll fetches the export once and applies it to every registered
// user. A failing user does not stop the rest.
func (s *Syncer) SyncAll(ctx context.Context) (created, updated int, err error) {
	users, err := s.repo.ListRegisteredUsers(ctx)
	if err != nil {
		return 0, 0, err
	}
	if len(users) == 0 {
		return 0, 0, nil
	}

	records, err := s.fetcher.FetchRecords(ctx)
	if err != nil {
		return 0, 0, err
	}

	for _, u := range users {
		c, up, err := s.applyRecords(ctx, &u, records)
		if err != nil {
			s.log.Error("sync user failed", zap.Error(err), zap.Int64("userID", u.ID))
			continue
		}
		created += c
		updated += up
	}
	return created, updated, nil
}

// SyncUser fetches the export and applies the rows assigned to one
// user. Users without a registered nick are skipped.
func (s *Syncer) SyncUser(ctx context.Context, u *domain.User) (created, updated int, err error) {
	if u.Username == "" {
		return 0, 0, nil
	}
	records, err := s.fetcher.FetchRecords(ctx)
	if err != nil {
		return 0, 0, err
	}
	return s.applyRecords(ctx, u, records)
}

func (s *Syncer) applyRecords(ctx context.Context, u *domain.User, records []Record) (created, updated int, err error) {
	// Rows in the export have no stable id, so the title is the sync
	// identity. A renumbered export must never remap stored rows: that
	// would re-anchor created_at and last_notified_at to the wrong
	// deadline.
	var titles []string
	for _, rec := range records {
		if !assignedTo(rec, u) {
			continue
		}
		titles = append(titles, rec.Title)

		d := &domain.Deadline{
			UserID:      u.ID,
			Title:       rec.Title,
			Description: rec.Description,
			DueAt:       rec.DueAt,
			Status:      domain.StatusActive,
			Source:      sourceName,
		}
		isNew, err := s.repo.UpsertDeadline(ctx, d)
		if err != nil {
			return created, updated, err
		}
		if isNew {
			created++
		} else {
			updated++
		}
	}

	// A deadline that disappeared from the export is no longer assigned
	// to this user; drop it so it stops notifying.
	removed, err := s.repo.DeleteMissingDeadlines(ctx, u.ID, sourceName, titles)
	if err != nil {
		return created, updated, err
	}

	s.log.Debug("sync applied",
		zap.Int64("userID", u.ID),
		zap.Int("created", created),
		zap.Int("updated", updated),
		zap.Int64("removed", removed),
	)
	return created, updated, nil
}

// assignedTo matches a record to a user by nick or email substring,
// case-insensitive. Matching is loose on purpose: the export renders
// people fields inconsistently.
func assignedTo(rec Record, u *domain.User) bool {
	nick := strings.ToLower(u.Username)
	email := strings.ToLower(u.Email)
	for _, a := range rec.Assignees {
		a = strings.ToLower(a)
		if nick != "" && strings.Contains(a, nick) {
			return true
		}
		if email != "" && strings.Contains(a, email) {
			return true
		}
	}
	return false
}

// PruneExpired removes deadlines whose due date passed more than the
// given grace period ago.
func (s *Syncer) PruneExpired(ctx context.Context, grace time.Duration) (int64, error) {
	return s.repo.DeleteExpiredDeadlines(ctx, time.Now().UTC().Add(-grace))
}
