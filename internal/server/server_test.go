package server

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/goccy/go-json"

	"github.com/noviciado/attendance-tracker/internal/config"
	"github.com/noviciado/attendance-tracker/internal/database"
	"github.com/noviciado/attendance-tracker/internal/ingest"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()

	db, err := database.NewDB(filepath.Join(t.TempDir(), "test.db"), time.Second)
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	t.Cleanup(func() { database.CloseDB(db) })

	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	store := database.NewStore(db, time.UTC, log)
	ingester := ingest.NewService(log, store, 5*time.Second)

	cfg := &config.ServerConfig{
		ListenAddr:      ":0",
		ReadTimeout:     5 * time.Second,
		WriteTimeout:    5 * time.Second,
		ShutdownTimeout: 5 * time.Second,
	}

	srv := New(log, cfg, store, ingester)
	ts := httptest.NewServer(srv.routes())
	t.Cleanup(ts.Close)
	return ts
}

func postWebhook(t *testing.T, ts *httptest.Server, body string) ingest.Response {
	t.Helper()

	resp, err := http.Post(ts.URL+"/webhook", "application/json", strings.NewReader(body))
	if err != nil {
		t.Fatalf("webhook request failed: %v", err)
	}
	defer resp.Body.Close()

	// The webhook endpoint always answers 200; the status field carries the
	// semantic result.
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("got HTTP %d, want 200", resp.StatusCode)
	}

	var out ingest.Response
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	return out
}

func TestHealthz(t *testing.T) {
	t.Parallel()

	ts := newTestServer(t)

	resp, err := http.Get(ts.URL + "/healthz")
	if err != nil {
		t.Fatalf("healthz request failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("got HTTP %d, want 200", resp.StatusCode)
	}

	var out map[string]bool
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if !out["ok"] {
		t.Fatalf("got %v, want ok=true", out)
	}
}

func TestRootBanner(t *testing.T) {
	t.Parallel()

	ts := newTestServer(t)

	resp, err := http.Get(ts.URL + "/")
	if err != nil {
		t.Fatalf("root request failed: %v", err)
	}
	defer resp.Body.Close()

	var out map[string]string
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if out["service"] != "attendance-tracker" || out["status"] != "ready" {
		t.Fatalf("unexpected banner: %v", out)
	}
}

func TestWebhookEndToEnd(t *testing.T) {
	t.Parallel()

	ts := newTestServer(t)
	base := time.Date(2024, 6, 10, 9, 0, 0, 0, time.UTC).Unix()

	payload := func(id string, at int64) string {
		return `{"event":"message","payload":{"id":"` + id + `","from":"5511999999@c.us","fromMe":false,` +
			`"body":"checking in","timestamp":` + jsonInt(at) + `,"_data":{"notifyName":"Alice"}}}`
	}

	out := postWebhook(t, ts, payload("m-1", base))
	if out.Status != ingest.StatusSuccess || out.Attendance == nil || !*out.Attendance || out.Contact != "Alice" {
		t.Fatalf("first delivery: got %+v, want success/attendance=true/contact=Alice", out)
	}

	out = postWebhook(t, ts, payload("m-2", base+60))
	if out.Status != ingest.StatusSuccess || out.Attendance == nil || *out.Attendance {
		t.Fatalf("repeat visit: got %+v, want success/attendance=false", out)
	}

	out = postWebhook(t, ts, payload("m-1", base))
	if out.Status != ingest.StatusDuplicate {
		t.Fatalf("redelivery: got %+v, want duplicate", out)
	}

	out = postWebhook(t, ts, `{"event":"battery","payload":{}}`)
	if out.Status != ingest.StatusIgnored || out.Reason != "not a message event" {
		t.Fatalf("non-message event: got %+v, want ignored", out)
	}

	// Stats reflect the two committed writes.
	resp, err := http.Get(ts.URL + "/api/v1/stats")
	if err != nil {
		t.Fatalf("stats request failed: %v", err)
	}
	defer resp.Body.Close()

	var stats map[string]int64
	if err := json.NewDecoder(resp.Body).Decode(&stats); err != nil {
		t.Fatalf("failed to decode stats: %v", err)
	}
	if stats["members"] != 1 {
		t.Errorf("got %d members, want 1", stats["members"])
	}
	if stats["total_messages"] != 2 {
		t.Errorf("got %d total messages, want 2", stats["total_messages"])
	}
	if stats["total_checkins"] != 1 {
		t.Errorf("got %d total check-ins, want 1", stats["total_checkins"])
	}
}

func TestAttendanceReadAPI(t *testing.T) {
	t.Parallel()

	ts := newTestServer(t)
	now := time.Now().UTC().Unix()

	out := postWebhook(t, ts,
		`{"event":"message","payload":{"id":"m-1","from":"111@c.us","fromMe":false,"body":"oi",`+
			`"timestamp":`+jsonInt(now)+`,"_data":{"notifyName":"Alice"}}}`)
	if out.Status != ingest.StatusSuccess {
		t.Fatalf("seed delivery failed: %+v", out)
	}

	resp, err := http.Get(ts.URL + "/api/v1/attendance/recent?days=7")
	if err != nil {
		t.Fatalf("recent request failed: %v", err)
	}
	defer resp.Body.Close()

	var recent struct {
		Entries []struct {
			Date        string `json:"date"`
			DisplayName string `json:"display_name"`
			SenderID    string `json:"sender_id"`
		} `json:"entries"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&recent); err != nil {
		t.Fatalf("failed to decode recent: %v", err)
	}
	if len(recent.Entries) != 1 || recent.Entries[0].SenderID != "111" || recent.Entries[0].DisplayName != "Alice" {
		t.Fatalf("unexpected recent entries: %+v", recent.Entries)
	}

	topResp, err := http.Get(ts.URL + "/api/v1/attendance/top")
	if err != nil {
		t.Fatalf("top request failed: %v", err)
	}
	defer topResp.Body.Close()

	var top struct {
		Top []struct {
			DisplayName string `json:"display_name"`
			Count       int64  `json:"count"`
		} `json:"top"`
	}
	if err := json.NewDecoder(topResp.Body).Decode(&top); err != nil {
		t.Fatalf("failed to decode top: %v", err)
	}
	if len(top.Top) != 1 || top.Top[0].Count != 1 {
		t.Fatalf("unexpected top attendees: %+v", top.Top)
	}
}

func jsonInt(n int64) string {
	return strconv.FormatInt(n, 10)
}
