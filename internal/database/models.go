package database

import (
	"time"
)

// Message is the stored form of a normalized inbound message. Rows are
// immutable once written; MessageID carries the provider's unique id, or a
// generated surrogate when the provider omitted one.
type Message struct {
	ID          uint      `db:"id"`
	MessageID   string    `db:"message_id"`
	SenderID    string    `db:"sender_id"`
	DisplayName string    `db:"display_name"`
	Body        string    `db:"body"`
	OccurredAt  time.Time `db:"occurred_at"`
	ReceivedAt  time.Time `db:"received_at"`
}

// AttendanceEntry marks a sender as present on a calendar date, timestamped
// by their first qualifying message that day. Exactly one row exists per
// (sender_id, date); rows are never updated after insertion.
type AttendanceEntry struct {
	ID          uint      `db:"id"`
	SenderID    string    `db:"sender_id"`
	DisplayName string    `db:"display_name"`
	Date        string    `db:"date"`
	FirstSeenAt time.Time `db:"first_seen_at"`
	CreatedAt   time.Time `db:"created_at"`
}

// Summary holds the aggregate counters shown at the top of the dashboard.
type Summary struct {
	Members       int64 `db:"members"`
	TodayCheckins int64 `db:"today_checkins"`
	TotalCheckins int64 `db:"total_checkins"`
	TotalMessages int64 `db:"total_messages"`
}

// DailyCount is the number of check-ins recorded on a single date.
type DailyCount struct {
	Date  string `db:"date"  json:"date"`
	Count int64  `db:"count" json:"count"`
}

// SenderCount pairs a display name with a row count, used for the
// most-active-members and most-messages rankings.
type SenderCount struct {
	DisplayName string `db:"display_name" json:"display_name"`
	Count       int64  `db:"count"        json:"count"`
}
