package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	// Registers the "sqlite" driver (pure Go).
	_ "modernc.org/sqlite"

	"github.com/vladmir0512/deadline-bot/internal/domain"
)

// ErrNotFound is returned when a requested row does not exist.
var ErrNotFound = errors.New("not found")

// SQLiteRepo implements Repo using an embedded SQLite database.
type SQLiteRepo struct{ db *sql.DB }

// OpenSQLite opens (or creates) the SQLite database at the given path,
// applies PRAGMAs, runs migrations, and returns a repository.
func OpenSQLite(ctx context.Context, path string) (*SQLiteRepo, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}

	// Single-writer engine; keep the pool tiny.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := applyPragmas(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("apply pragmas: %w", err)
	}
	if err := runMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrations: %w", err)
	}

	return &SQLiteRepo{db: db}, nil
}

func applyPragmas(ctx context.Context, db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA busy_timeout=5000;",
		"PRAGMA foreign_keys=ON;",
	}
	for _, p := range pragmas {
		if _, err := db.ExecContext(ctx, p); err != nil {
			return err
		}
	}
	return nil
}

// Close releases the underlying database resources.
func (r *SQLiteRepo) Close() error {
	return r.db.Close()
}

// --- Users ---

func scanUser(row interface{ Scan(...any) error }) (*domain.User, error) {
	var (
		id         int64
		telegramID int64
		username   sql.NullString
		email      sql.NullString
		createdAt  int64
	)
	if err := row.Scan(&id, &telegramID, &username, &email, &createdAt); err != nil {
		return nil, err
	}
	return &domain.User{
		ID:         id,
		TelegramID: telegramID,
		Username:   username.String,
		Email:      email.String,
		CreatedAt:  time.Unix(createdAt, 0).UTC(),
	}, nil
}

const userColumns = "id, telegram_id, username, email, created_at"

// GetOrCreateUser returns the user for a Telegram id, inserting a fresh
// row on first contact.
func (r *SQLiteRepo) GetOrCreateUser(ctx context.Context, telegramID int64) (*domain.User, error) {
	u, err := r.GetUserByTelegramID(ctx, telegramID)
	if err == nil {
		return u, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, err
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO users (telegram_id, created_at) VALUES (?, ?)
		ON CONFLICT(telegram_id) DO NOTHING`,
		telegramID, time.Now().UTC().Unix(),
	)
	if err != nil {
		return nil, err
	}
	return r.GetUserByTelegramID(ctx, telegramID)
}

func (r *SQLiteRepo) GetUser(ctx context.Context, id int64) (*domain.User, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = ?`, id)
	u, err := scanUser(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return u, err
}

func (r *SQLiteRepo) GetUserByTelegramID(ctx context.Context, telegramID int64) (*domain.User, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE telegram_id = ?`, telegramID)
	u, err := scanUser(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return u, err
}

// SetUsername stores the Yonote nick used to match deadlines during
// sync. An empty username unregisters the user.
func (r *SQLiteRepo) SetUsername(ctx context.Context, telegramID int64, username string) error {
	var v sql.NullString
	if username != "" {
		v = sql.NullString{String: username, Valid: true}
	}
	res, err := r.db.ExecContext(ctx,
		`UPDATE users SET username = ? WHERE telegram_id = ?`, v, telegramID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err == nil && n == 0 {
		return ErrNotFound
	}
	return err
}

func (r *SQLiteRepo) SetEmail(ctx context.Context, telegramID int64, email string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE users SET email = ? WHERE telegram_id = ?`, email, telegramID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err == nil && n == 0 {
		return ErrNotFound
	}
	return err
}

// ListRegisteredUsers returns users that registered a Yonote nick and
// are therefore eligible for deadline sync.
func (r *SQLiteRepo) ListRegisteredUsers(ctx context.Context) ([]domain.User, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE username IS NOT NULL AND username != '' ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var res []domain.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, *u)
	}
	return res, rows.Err()
}

// --- Deadlines ---

const deadlineColumns = "id, user_id, title, description, due_at, status, source, source_id, created_at, updated_at, last_notified_at"

func scanDeadline(row interface{ Scan(...any) error }) (*domain.Deadline, error) {
	var (
		id         int64
		userID     int64
		title      string
		descr      string
		dueAt      sql.NullInt64
		status     string
		source     string
		sourceID   string
		createdAt  int64
		updatedAt  int64
		notifiedAt sql.NullInt64
	)
	if err := row.Scan(&id, &userID, &title, &descr, &dueAt, &status,
		&source, &sourceID, &createdAt, &updatedAt, &notifiedAt); err != nil {
		return nil, err
	}
	return &domain.Deadline{
		ID:          id,
		UserID:      userID,
		Title:       title,
		Description: descr,
		DueAt:       fromNullInt64(dueAt),
		Status:      status,
		Source:      source,
		SourceID:    sourceID,
		CreatedAt:   time.Unix(createdAt, 0).UTC(),
		UpdatedAt:   time.Unix(updatedAt, 0).UTC(),
		NotifiedAt:  fromNullInt64(notifiedAt),
	}, nil
}

// UpsertDeadline inserts a deadline or updates an existing one matched
// by (user, source, source id), falling back to the title when the
// external source carries no stable id. Returns whether a new row was
// created. The created_at of an existing row is preserved so the
// half-life midpoint stays anchored to first sight.
func (r *SQLiteRepo) UpsertDeadline(ctx context.Context, d *domain.Deadline) (bool, error) {
	if d == nil {
		return false, errors.New("nil deadline")
	}

	now := time.Now().UTC()
	var existingID int64
	var err error
	if d.SourceID != "" {
		err = r.db.QueryRowContext(ctx, `
			SELECT id FROM deadlines
			WHERE user_id = ? AND source = ? AND source_id = ?`,
			d.UserID, d.Source, d.SourceID,
		).Scan(&existingID)
	} else {
		err = r.db.QueryRowContext(ctx, `
			SELECT id FROM deadlines
			WHERE user_id = ? AND source = ? AND title = ?`,
			d.UserID, d.Source, d.Title,
		).Scan(&existingID)
	}

	switch {
	case err == nil:
		_, err = r.db.ExecContext(ctx, `
			UPDATE deadlines
			SET title = ?, description = ?, due_at = ?, updated_at = ?
			WHERE id = ?`,
			d.Title, d.Description, toNullInt64(d.DueAt), now.Unix(), existingID,
		)
		d.ID = existingID
		return false, err

	case errors.Is(err, sql.ErrNoRows):
		created := d.CreatedAt
		if created.IsZero() {
			created = now
		}
		status := d.Status
		if status == "" {
			status = domain.StatusActive
		}
		res, err := r.db.ExecContext(ctx, `
			INSERT INTO deadlines (user_id, title, description, due_at, status,
			                       source, source_id, created_at, updated_at, last_notified_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			d.UserID, d.Title, d.Description, toNullInt64(d.DueAt), status,
			d.Source, d.SourceID, created.Unix(), now.Unix(), toNullInt64(d.NotifiedAt),
		)
		if err != nil {
			return false, err
		}
		d.ID, err = res.LastInsertId()
		return true, err

	default:
		return false, err
	}
}

func (r *SQLiteRepo) GetDeadline(ctx context.Context, id int64) (*domain.Deadline, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+deadlineColumns+` FROM deadlines WHERE id = ?`, id)
	d, err := scanDeadline(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return d, err
}

// ListActiveFutureDeadlines returns a user's active deadlines that are
// either undated or due at/after now, ordered by due date with undated
// ones last.
func (r *SQLiteRepo) ListActiveFutureDeadlines(ctx context.Context, userID int64, now time.Time) ([]domain.Deadline, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+deadlineColumns+` FROM deadlines
		WHERE user_id = ? AND status = ?
		  AND (due_at IS NULL OR due_at >= ?)
		ORDER BY due_at IS NULL, due_at ASC`,
		userID, domain.StatusActive, now.UTC().Unix(),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var res []domain.Deadline
	for rows.Next() {
		d, err := scanDeadline(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, *d)
	}
	return res, rows.Err()
}

// MarkNotified records the time of a successful notification.
func (r *SQLiteRepo) MarkNotified(ctx context.Context, deadlineID int64, at time.Time) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE deadlines SET last_notified_at = ? WHERE id = ?`,
		at.UTC().Unix(), deadlineID,
	)
	return err
}

func (r *SQLiteRepo) SetDeadlineStatus(ctx context.Context, deadlineID int64, status string) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE deadlines SET status = ?, updated_at = ? WHERE id = ?`,
		status, time.Now().UTC().Unix(), deadlineID,
	)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err == nil && n == 0 {
		return ErrNotFound
	}
	return err
}

// DeleteMissingDeadlines drops a user's deadlines from the given source
// whose titles are not in keepTitles. An empty keepTitles removes every
// deadline of that source for the user.
func (r *SQLiteRepo) DeleteMissingDeadlines(ctx context.Context, userID int64, source string, keepTitles []string) (int64, error) {
	query := `DELETE FROM deadlines WHERE user_id = ? AND source = ?`
	args := []any{userID, source}
	if len(keepTitles) > 0 {
		query += ` AND title NOT IN (?` + strings.Repeat(", ?", len(keepTitles)-1) + `)`
		for _, t := range keepTitles {
			args = append(args, t)
		}
	}

	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// DeleteExpiredDeadlines drops dated deadlines whose due date passed
// before the given cutoff. Undated deadlines are never deleted.
func (r *SQLiteRepo) DeleteExpiredDeadlines(ctx context.Context, before time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, `
		DELETE FROM deadlines WHERE due_at IS NOT NULL AND due_at < ?`,
		before.UTC().Unix(),
	)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// --- Subscriptions ---

func (r *SQLiteRepo) GetSubscription(ctx context.Context, userID int64, subType string) (*domain.Subscription, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, user_id, sub_type, active, created_at
		FROM subscriptions WHERE user_id = ? AND sub_type = ?`,
		userID, subType,
	)
	var (
		id        int64
		uid       int64
		st        string
		active    int
		createdAt int64
	)
	if err := row.Scan(&id, &uid, &st, &active, &createdAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &domain.Subscription{
		ID:        id,
		UserID:    uid,
		Type:      st,
		Active:    active != 0,
		CreatedAt: time.Unix(createdAt, 0).UTC(),
	}, nil
}

// ToggleSubscription flips a user's subscription, creating an active
// one if none exists. Returns the new active state.
func (r *SQLiteRepo) ToggleSubscription(ctx context.Context, userID int64, subType string) (bool, error) {
	sub, err := r.GetSubscription(ctx, userID, subType)
	if errors.Is(err, ErrNotFound) {
		_, err := r.db.ExecContext(ctx, `
			INSERT INTO subscriptions (user_id, sub_type, active, created_at)
			VALUES (?, ?, 1, ?)`,
			userID, subType, time.Now().UTC().Unix(),
		)
		return true, err
	}
	if err != nil {
		return false, err
	}

	next := !sub.Active
	_, err = r.db.ExecContext(ctx, `
		UPDATE subscriptions SET active = ? WHERE id = ?`,
		boolToInt(next), sub.ID,
	)
	return next, err
}

// ListActiveSubscribers returns the users behind every active
// subscription of the given type.
func (r *SQLiteRepo) ListActiveSubscribers(ctx context.Context, subType string) ([]domain.User, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT u.id, u.telegram_id, u.username, u.email, u.created_at
		FROM subscriptions s
		JOIN users u ON u.id = s.user_id
		WHERE s.sub_type = ? AND s.active = 1
		ORDER BY u.id`,
		subType,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var res []domain.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, *u)
	}
	return res, rows.Err()
}

// --- Notification settings ---

const settingsColumns = "user_id, enabled, notify_hour, quiet_start, quiet_end, daily_enabled, weekly_enabled, halfway_enabled, weekly_days, days_before_warning, created_at, updated_at"

func scanSettings(row interface{ Scan(...any) error }) (domain.Settings, error) {
	var (
		userID     int64
		enabled    int
		notifyHour int
		quietStart string
		quietEnd   string
		daily      int
		weekly     int
		halfway    int
		weeklyDays string
		daysBefore int
		createdAt  int64
		updatedAt  int64
	)
	if err := row.Scan(&userID, &enabled, &notifyHour, &quietStart, &quietEnd,
		&daily, &weekly, &halfway, &weeklyDays, &daysBefore, &createdAt, &updatedAt); err != nil {
		return domain.Settings{}, err
	}
	return domain.Settings{
		UserID:            userID,
		Enabled:           enabled != 0,
		NotifyHour:        notifyHour,
		QuietStart:        quietStart,
		QuietEnd:          quietEnd,
		DailyEnabled:      daily != 0,
		WeeklyEnabled:     weekly != 0,
		HalfwayEnabled:    halfway != 0,
		WeeklyDays:        decodeWeekdays(weeklyDays),
		DaysBeforeWarning: daysBefore,
		CreatedAt:         time.Unix(createdAt, 0).UTC(),
		UpdatedAt:         time.Unix(updatedAt, 0).UTC(),
	}, nil
}

// GetOrCreateSettings always returns a usable settings value, inserting
// defaults on first access.
func (r *SQLiteRepo) GetOrCreateSettings(ctx context.Context, userID int64) (domain.Settings, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+settingsColumns+` FROM notification_settings WHERE user_id = ?`, userID)
	s, err := scanSettings(row)
	if err == nil {
		return s, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return domain.Settings{}, err
	}

	def := domain.DefaultSettings(userID)
	now := time.Now().UTC().Unix()
	_, err = r.db.ExecContext(ctx, `
		INSERT INTO notification_settings (user_id, enabled, notify_hour, quiet_start, quiet_end,
		                                   daily_enabled, weekly_enabled, halfway_enabled,
		                                   weekly_days, days_before_warning, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(user_id) DO NOTHING`,
		userID, boolToInt(def.Enabled), def.NotifyHour, def.QuietStart, def.QuietEnd,
		boolToInt(def.DailyEnabled), boolToInt(def.WeeklyEnabled), boolToInt(def.HalfwayEnabled),
		encodeWeekdays(def.WeeklyDays), def.DaysBeforeWarning, now, now,
	)
	if err != nil {
		return domain.Settings{}, err
	}

	row = r.db.QueryRowContext(ctx,
		`SELECT `+settingsColumns+` FROM notification_settings WHERE user_id = ?`, userID)
	return scanSettings(row)
}

// UpdateSettings applies a typed patch to a user's settings row,
// creating it with defaults first if missing.
func (r *SQLiteRepo) UpdateSettings(ctx context.Context, userID int64, upd SettingsUpdate) error {
	if _, err := r.GetOrCreateSettings(ctx, userID); err != nil {
		return err
	}

	set := []string{"updated_at = ?"}
	args := []any{time.Now().UTC().Unix()}
	add := func(col string, v any) {
		set = append(set, col+" = ?")
		args = append(args, v)
	}

	if upd.Enabled != nil {
		add("enabled", boolToInt(*upd.Enabled))
	}
	if upd.NotifyHour != nil {
		add("notify_hour", *upd.NotifyHour)
	}
	if upd.QuietStart != nil {
		add("quiet_start", *upd.QuietStart)
	}
	if upd.QuietEnd != nil {
		add("quiet_end", *upd.QuietEnd)
	}
	if upd.DailyEnabled != nil {
		add("daily_enabled", boolToInt(*upd.DailyEnabled))
	}
	if upd.WeeklyEnabled != nil {
		add("weekly_enabled", boolToInt(*upd.WeeklyEnabled))
	}
	if upd.HalfwayEnabled != nil {
		add("halfway_enabled", boolToInt(*upd.HalfwayEnabled))
	}
	if upd.WeeklyDays != nil {
		add("weekly_days", encodeWeekdays(upd.WeeklyDays))
	}

	args = append(args, userID)
	query := "UPDATE notification_settings SET " + strings.Join(set, ", ") + " WHERE user_id = ?"
	_, err := r.db.ExecContext(ctx, query, args...)
	return err
}

// ResetSettings restores a user's settings to the defaults.
func (r *SQLiteRepo) ResetSettings(ctx context.Context, userID int64) error {
	def := domain.DefaultSettings(userID)
	return r.UpdateSettings(ctx, userID, SettingsUpdate{
		Enabled:        &def.Enabled,
		NotifyHour:     &def.NotifyHour,
		QuietStart:     &def.QuietStart,
		QuietEnd:       &def.QuietEnd,
		DailyEnabled:   &def.DailyEnabled,
		WeeklyEnabled:  &def.WeeklyEnabled,
		HalfwayEnabled: &def.HalfwayEnabled,
		WeeklyDays:     def.WeeklyDays,
	})
}

// --- Moderation ---

func (r *SQLiteRepo) BlockUser(ctx context.Context, telegramID int64, reason string, blockedBy int64) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO blocked_users (telegram_id, reason, blocked_by, created_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(telegram_id) DO UPDATE SET
			reason     = excluded.reason,
			blocked_by = excluded.blocked_by`,
		telegramID, reason, blockedBy, time.Now().UTC().Unix(),
	)
	return err
}

func (r *SQLiteRepo) UnblockUser(ctx context.Context, telegramID int64) (bool, error) {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM blocked_users WHERE telegram_id = ?`, telegramID)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

func (r *SQLiteRepo) IsBlocked(ctx context.Context, telegramID int64) (bool, error) {
	var one int
	err := r.db.QueryRowContext(ctx,
		`SELECT 1 FROM blocked_users WHERE telegram_id = ?`, telegramID).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	return err == nil, err
}

func (r *SQLiteRepo) ListBlockedUsers(ctx context.Context) ([]domain.BlockedUser, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, telegram_id, reason, blocked_by, created_at
		FROM blocked_users ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var res []domain.BlockedUser
	for rows.Next() {
		var (
			id         int64
			telegramID int64
			reason     string
			blockedBy  int64
			createdAt  int64
		)
		if err := rows.Scan(&id, &telegramID, &reason, &blockedBy, &createdAt); err != nil {
			return nil, err
		}
		res = append(res, domain.BlockedUser{
			ID:         id,
			TelegramID: telegramID,
			Reason:     reason,
			BlockedBy:  blockedBy,
			CreatedAt:  time.Unix(createdAt, 0).UTC(),
		})
	}
	return res, rows.Err()
}

// --- Verifications ---

func (r *SQLiteRepo) CreateVerification(ctx context.Context, deadlineID, userID int64, comment string) (*domain.Verification, error) {
	now := time.Now().UTC()
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO deadline_verifications (deadline_id, user_id, status, user_comment, created_at)
		VALUES (?, ?, ?, ?, ?)`,
		deadlineID, userID, domain.VerificationPending, comment, now.Unix(),
	)
	if err != nil {
		return nil, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}
	return &domain.Verification{
		ID:          id,
		DeadlineID:  deadlineID,
		UserID:      userID,
		Status:      domain.VerificationPending,
		UserComment: comment,
		CreatedAt:   now,
	}, nil
}

func (r *SQLiteRepo) ListPendingVerifications(ctx context.Context) ([]domain.Verification, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, deadline_id, user_id, status, user_comment, admin_comment,
		       verified_by, created_at, verified_at
		FROM deadline_verifications
		WHERE status = ?
		ORDER BY created_at ASC`,
		domain.VerificationPending,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var res []domain.Verification
	for rows.Next() {
		var (
			id           int64
			deadlineID   int64
			userID       int64
			status       string
			userComment  string
			adminComment string
			verifiedBy   sql.NullInt64
			createdAt    int64
			verifiedAt   sql.NullInt64
		)
		if err := rows.Scan(&id, &deadlineID, &userID, &status, &userComment,
			&adminComment, &verifiedBy, &createdAt, &verifiedAt); err != nil {
			return nil, err
		}
		v := domain.Verification{
			ID:           id,
			DeadlineID:   deadlineID,
			UserID:       userID,
			Status:       status,
			UserComment:  userComment,
			AdminComment: adminComment,
			CreatedAt:    time.Unix(createdAt, 0).UTC(),
			VerifiedAt:   fromNullInt64(verifiedAt),
		}
		if verifiedBy.Valid {
			by := verifiedBy.Int64
			v.VerifiedBy = &by
		}
		res = append(res, v)
	}
	return res, rows.Err()
}

// ResolveVerification records an admin decision on a pending request
// and returns the resolved row. ErrNotFound means the request does not
// exist or was already resolved.
func (r *SQLiteRepo) ResolveVerification(ctx context.Context, id int64, status string, adminID int64, comment string) (*domain.Verification, error) {
	var (
		deadlineID  int64
		userID      int64
		userComment string
		createdAt   int64
	)
	err := r.db.QueryRowContext(ctx, `
		SELECT deadline_id, user_id, user_comment, created_at
		FROM deadline_verifications
		WHERE id = ? AND status = ?`,
		id, domain.VerificationPending,
	).Scan(&deadlineID, &userID, &userComment, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	_, err = r.db.ExecContext(ctx, `
		UPDATE deadline_verifications
		SET status = ?, admin_comment = ?, verified_by = ?, verified_at = ?
		WHERE id = ?`,
		status, comment, adminID, now.Unix(), id,
	)
	if err != nil {
		return nil, err
	}

	verifiedAt := now
	return &domain.Verification{
		ID:           id,
		DeadlineID:   deadlineID,
		UserID:       userID,
		Status:       status,
		UserComment:  userComment,
		AdminComment: comment,
		VerifiedBy:   &adminID,
		CreatedAt:    time.Unix(createdAt, 0).UTC(),
		VerifiedAt:   &verifiedAt,
	}, nil
}
