package server

import (
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/goccy/go-json"

	"github.com/noviciado/attendance-tracker/internal/ingest"
	"github.com/noviciado/attendance-tracker/internal/metrics"
)

// maxWebhookBody caps the webhook request body at 1 MiB; provider payloads
// are a few KiB at most.
const maxWebhookBody = 1 << 20

const (
	defaultWindowDays = 30
	defaultTopLimit   = 10
)

// handleRoot serves the service banner.
func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"service": "attendance-tracker",
		"status":  "ready",
	})
}

// handleHealthz is the liveness probe.
func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

// handleWebhook ingests one webhook delivery. The response is always HTTP
// 200 with a semantic status field; returning transport-level errors here
// would trigger duplicate re-delivery storms from the provider.
func (s *Server) handleWebhook(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	body, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
	if err != nil {
		respondJSON(w, http.StatusOK, ingest.Response{
			Status:  ingest.StatusError,
			Message: "failed to read request body",
		})
		return
	}

	resp := s.ingester.Ingest(r.Context(), body)
	metrics.WebhookRequestDuration.Observe(time.Since(start).Seconds())
	respondJSON(w, http.StatusOK, resp)
}

// handleStats serves the aggregate counters.
func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	summary, err := s.store.GetSummary(r.Context())
	if err != nil {
		s.respondStoreError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]int64{
		"members":        summary.Members,
		"today_checkins": summary.TodayCheckins,
		"total_checkins": summary.TotalCheckins,
		"total_messages": summary.TotalMessages,
	})
}

// handleRecentAttendance serves check-ins within the requested day window.
func (s *Server) handleRecentAttendance(w http.ResponseWriter, r *http.Request) {
	since := s.sinceDate(queryInt(r, "days", defaultWindowDays))
	limit := queryInt(r, "limit", 100)

	entries, err := s.store.GetRecentAttendance(r.Context(), since, limit)
	if err != nil {
		s.respondStoreError(w, r, err)
		return
	}

	type entryJSON struct {
		Date        string    `json:"date"`
		DisplayName string    `json:"display_name"`
		SenderID    string    `json:"sender_id"`
		FirstSeenAt time.Time `json:"first_seen_at"`
	}
	out := make([]entryJSON, 0, len(entries))
	for _, e := range entries {
		out = append(out, entryJSON{
			Date:        e.Date,
			DisplayName: e.DisplayName,
			SenderID:    e.SenderID,
			FirstSeenAt: e.FirstSeenAt,
		})
	}
	respondJSON(w, http.StatusOK, map[string]any{"entries": out})
}

// handleDailyCounts serves the per-day check-in trend.
func (s *Server) handleDailyCounts(w http.ResponseWriter, r *http.Request) {
	since := s.sinceDate(queryInt(r, "days", defaultWindowDays))

	counts, err := s.store.GetDailyCounts(r.Context(), since)
	if err != nil {
		s.respondStoreError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"daily": counts})
}

// handleTopAttendees serves the most-active-members ranking.
func (s *Server) handleTopAttendees(w http.ResponseWriter, r *http.Request) {
	rows, err := s.store.GetTopAttendees(r.Context(), queryInt(r, "limit", defaultTopLimit))
	if err != nil {
		s.respondStoreError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"top": rows})
}

// handleTopSenders serves the most-messages ranking.
func (s *Server) handleTopSenders(w http.ResponseWriter, r *http.Request) {
	rows, err := s.store.GetTopSenders(r.Context(), queryInt(r, "limit", defaultTopLimit))
	if err != nil {
		s.respondStoreError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"top": rows})
}

// sinceDate returns the calendar date `days` days before now, under the
// store's timezone policy.
func (s *Server) sinceDate(days int) string {
	if days <= 0 {
		days = defaultWindowDays
	}
	return s.store.DateOf(time.Now().AddDate(0, 0, -days))
}

func (s *Server) respondStoreError(w http.ResponseWriter, r *http.Request, err error) {
	s.logger.ErrorContext(r.Context(), "Stats query failed", "path", r.URL.Path, "error", err)
	respondJSON(w, http.StatusInternalServerError, map[string]string{"error": "query failed"})
}

func queryInt(r *http.Request, name string, fallback int) int {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return fallback
	}
	return n
}

func respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	// Headers are already sent; an encode failure here means the client went
	// away and there is nothing useful left to do.
	_ = json.NewEncoder(w).Encode(payload)
}
