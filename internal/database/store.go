package database

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"
)

// AppendOutcome classifies the result of storing a message.
type AppendOutcome int

const (
	// MessageStored means a new row was written.
	MessageStored AppendOutcome = iota
	// MessageDuplicate means a row with the same message id already exists;
	// nothing was written. This is an expected condition, not an error.
	MessageDuplicate
)

// AttendanceOutcome classifies the result of an attendance check-in attempt.
type AttendanceOutcome int

const (
	// AttendanceRecorded means this was the sender's first message of the day
	// and a new attendance entry was created.
	AttendanceRecorded AttendanceOutcome = iota
	// AttendanceExists means an entry for this sender and date already exists;
	// nothing was written.
	AttendanceExists
)

// Store defines the interface for database operations.
// Methods accept context.Context for cancellation and timeouts. All
// uniqueness guarantees are enforced by SQLite constraints, so concurrent
// callers racing on the same message id or (sender, date) key resolve to
// exactly one write.
type Store interface {
	// Ping checks the database connection.
	Ping(ctx context.Context) error

	// AppendMessage inserts a message, reporting MessageDuplicate when a row
	// with the same message id already exists. Duplicates perform no mutation.
	AppendMessage(ctx context.Context, message *Message) (AppendOutcome, error)

	// RecordAttendance inserts an attendance entry for the sender on the
	// calendar date of occurredAt unless one already exists. The returned
	// entry is non-nil only when a new row was created; existing entries are
	// never modified, even if occurredAt is earlier than their first_seen_at.
	RecordAttendance(ctx context.Context, senderID, displayName string, occurredAt time.Time) (AttendanceOutcome, *AttendanceEntry, error)

	// GetSummary returns the aggregate counters for the reporting client.
	GetSummary(ctx context.Context) (*Summary, error)

	// GetRecentAttendance returns entries dated on or after since, newest first.
	GetRecentAttendance(ctx context.Context, since string, limit int) ([]AttendanceEntry, error)

	// GetDailyCounts returns per-date check-in counts for dates on or after since.
	GetDailyCounts(ctx context.Context, since string) ([]DailyCount, error)

	// GetTopAttendees returns display names ranked by number of check-ins.
	GetTopAttendees(ctx context.Context, limit int) ([]SenderCount, error)

	// GetTopSenders returns display names ranked by number of stored messages.
	GetTopSenders(ctx context.Context, limit int) ([]SenderCount, error)

	// DateOf returns the calendar date of t under the store's timezone policy.
	DateOf(t time.Time) string

	// RunSQLMaintenance performs database maintenance tasks like VACUUM.
	RunSQLMaintenance(ctx context.Context) error
}

// sqlxStore provides an implementation of the Store interface using sqlx.
type sqlxStore struct {
	db     *sqlx.DB
	loc    *time.Location
	logger *slog.Logger
}

// NewStore creates a new Store implementation backed by sqlx. loc determines
// which calendar day a message timestamp falls on and must not be nil.
func NewStore(db *sqlx.DB, loc *time.Location, logger *slog.Logger) Store {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if loc == nil {
		loc = time.UTC
	}
	return &sqlxStore{
		db:     db,
		loc:    loc,
		logger: logger.With("component", "store"),
	}
}

// Ping checks the database connection.
func (s *sqlxStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// DateOf returns the calendar date of t in the store's configured location,
// formatted as YYYY-MM-DD.
func (s *sqlxStore) DateOf(t time.Time) string {
	return t.In(s.loc).Format(time.DateOnly)
}

// AppendMessage inserts a message row. The uniqueness check and the insert
// are a single statement, so concurrent appends of the same message id yield
// exactly one MessageStored.
func (s *sqlxStore) AppendMessage(ctx context.Context, message *Message) (AppendOutcome, error) {
	if message == nil {
		return MessageDuplicate, fmt.Errorf("cannot append nil message")
	}
	if message.MessageID == "" {
		return MessageDuplicate, fmt.Errorf("message must have a non-empty message_id")
	}
	if message.SenderID == "" {
		return MessageDuplicate, fmt.Errorf("message must have a non-empty sender_id")
	}
	if message.ReceivedAt.IsZero() {
		message.ReceivedAt = time.Now().UTC()
	}

	query := `
        INSERT INTO messages (message_id, sender_id, display_name, body, occurred_at, received_at)
        VALUES (:message_id, :sender_id, :display_name, :body, :occurred_at, :received_at)
        ON CONFLICT (message_id) DO NOTHING;
    `

	result, err := s.db.NamedExecContext(ctx, query, message)
	if err != nil {
		s.logger.ErrorContext(ctx, "Error appending message",
			"message_id", message.MessageID, "sender_id", message.SenderID, "error", err)
		return MessageDuplicate, fmt.Errorf("failed to append message %s: %w", message.MessageID, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return MessageDuplicate, fmt.Errorf("failed to read rows affected for message %s: %w", message.MessageID, err)
	}
	if affected == 0 {
		s.logger.DebugContext(ctx, "Duplicate message ignored", "message_id", message.MessageID)
		return MessageDuplicate, nil
	}

	if id, err := result.LastInsertId(); err == nil {
		message.ID = uint(id) //nolint:gosec // sqlite rowids fit
	}

	s.logger.DebugContext(ctx, "Message stored",
		"message_id", message.MessageID, "sender_id", message.SenderID)
	return MessageStored, nil
}

// RecordAttendance performs the first-of-day check and insert as a single
// conditional statement guarded by the UNIQUE(sender_id, date) constraint.
func (s *sqlxStore) RecordAttendance(ctx context.Context, senderID, displayName string, occurredAt time.Time) (AttendanceOutcome, *AttendanceEntry, error) {
	if senderID == "" {
		return AttendanceExists, nil, fmt.Errorf("sender_id cannot be empty")
	}

	entry := &AttendanceEntry{
		SenderID:    senderID,
		DisplayName: displayName,
		Date:        s.DateOf(occurredAt),
		FirstSeenAt: occurredAt,
		CreatedAt:   time.Now().UTC(),
	}

	query := `
        INSERT INTO attendance (sender_id, display_name, date, first_seen_at, created_at)
        VALUES (:sender_id, :display_name, :date, :first_seen_at, :created_at)
        ON CONFLICT (sender_id, date) DO NOTHING;
    `

	result, err := s.db.NamedExecContext(ctx, query, entry)
	if err != nil {
		s.logger.ErrorContext(ctx, "Error recording attendance",
			"sender_id", senderID, "date", entry.Date, "error", err)
		return AttendanceExists, nil, fmt.Errorf("failed to record attendance for %s on %s: %w", senderID, entry.Date, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return AttendanceExists, nil, fmt.Errorf("failed to read rows affected for attendance %s/%s: %w", senderID, entry.Date, err)
	}
	if affected == 0 {
		s.logger.DebugContext(ctx, "Attendance already recorded",
			"sender_id", senderID, "date", entry.Date)
		return AttendanceExists, nil, nil
	}

	if id, err := result.LastInsertId(); err == nil {
		entry.ID = uint(id) //nolint:gosec // sqlite rowids fit
	}

	s.logger.InfoContext(ctx, "Attendance recorded",
		"sender_id", senderID, "display_name", displayName, "date", entry.Date)
	return AttendanceRecorded, entry, nil
}

// GetSummary returns the aggregate counters for the reporting client.
func (s *sqlxStore) GetSummary(ctx context.Context) (*Summary, error) {
	today := s.DateOf(time.Now())

	var summary Summary
	query := `
        SELECT
            (SELECT COUNT(DISTINCT sender_id) FROM attendance) AS members,
            (SELECT COUNT(*) FROM attendance WHERE date = ?)   AS today_checkins,
            (SELECT COUNT(*) FROM attendance)                  AS total_checkins,
            (SELECT COUNT(*) FROM messages)                    AS total_messages;
    `
	if err := s.db.GetContext(ctx, &summary, query, today); err != nil {
		return nil, fmt.Errorf("failed to get summary: %w", err)
	}
	return &summary, nil
}

// GetRecentAttendance returns entries dated on or after since, newest first.
func (s *sqlxStore) GetRecentAttendance(ctx context.Context, since string, limit int) ([]AttendanceEntry, error) {
	limit = capLimit(limit)

	var entries []AttendanceEntry
	query := `
        SELECT id, sender_id, display_name, date, first_seen_at, created_at
        FROM attendance
        WHERE date >= ?
        ORDER BY date DESC, first_seen_at DESC
        LIMIT ?;
    `
	if err := s.db.SelectContext(ctx, &entries, query, since, limit); err != nil {
		return nil, fmt.Errorf("failed to get recent attendance since %s: %w", since, err)
	}
	return entries, nil
}

// GetDailyCounts returns per-date check-in counts for dates on or after since.
func (s *sqlxStore) GetDailyCounts(ctx context.Context, since string) ([]DailyCount, error) {
	var counts []DailyCount
	query := `
        SELECT date, COUNT(*) AS count
        FROM attendance
        WHERE date >= ?
        GROUP BY date
        ORDER BY date;
    `
	if err := s.db.SelectContext(ctx, &counts, query, since); err != nil {
		return nil, fmt.Errorf("failed to get daily counts since %s: %w", since, err)
	}
	return counts, nil
}

// GetTopAttendees returns display names ranked by number of check-ins.
func (s *sqlxStore) GetTopAttendees(ctx context.Context, limit int) ([]SenderCount, error) {
	limit = capLimit(limit)

	var rows []SenderCount
	query := `
        SELECT display_name, COUNT(*) AS count
        FROM attendance
        GROUP BY display_name
        ORDER BY count DESC
        LIMIT ?;
    `
	if err := s.db.SelectContext(ctx, &rows, query, limit); err != nil {
		return nil, fmt.Errorf("failed to get top attendees: %w", err)
	}
	return rows, nil
}

// GetTopSenders returns display names ranked by number of stored messages.
func (s *sqlxStore) GetTopSenders(ctx context.Context, limit int) ([]SenderCount, error) {
	limit = capLimit(limit)

	var rows []SenderCount
	query := `
        SELECT display_name, COUNT(*) AS count
        FROM messages
        GROUP BY display_name
        ORDER BY count DESC
        LIMIT ?;
    `
	if err := s.db.SelectContext(ctx, &rows, query, limit); err != nil {
		return nil, fmt.Errorf("failed to get top senders: %w", err)
	}
	return rows, nil
}

// RunSQLMaintenance executes VACUUM and ANALYZE on the SQLite database.
func (s *sqlxStore) RunSQLMaintenance(ctx context.Context) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}

	s.logger.InfoContext(ctx, "Starting database maintenance (VACUUM/ANALYZE)...")

	// VACUUM must run outside a transaction in SQLite
	if _, err := s.db.ExecContext(ctx, "VACUUM;"); err != nil {
		return fmt.Errorf("vacuum failed: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, "ANALYZE;"); err != nil {
		return fmt.Errorf("analyze failed: %w", err)
	}

	s.logger.InfoContext(ctx, "Database maintenance completed")
	return nil
}

// capLimit clamps query limits to a sane range to prevent excessive queries.
func capLimit(limit int) int {
	switch {
	case limit <= 0:
		return 10
	case limit > 100:
		return 100
	default:
		return limit
	}
}
