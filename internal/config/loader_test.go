package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/noviciado/attendance-tracker/internal/config"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := config.LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("load with missing file failed: %v", err)
	}

	if cfg.Log.Level != config.DefaultLogLevel {
		t.Errorf("got log level %q, want %q", cfg.Log.Level, config.DefaultLogLevel)
	}
	if cfg.Server.ListenAddr != config.DefaultServerListenAddr {
		t.Errorf("got listen addr %q, want %q", cfg.Server.ListenAddr, config.DefaultServerListenAddr)
	}
	if cfg.Database.OperationTimeout != config.DefaultDBOperationTimeout {
		t.Errorf("got operation timeout %v, want %v", cfg.Database.OperationTimeout, config.DefaultDBOperationTimeout)
	}
	if cfg.Attendance.Timezone != "UTC" || cfg.Attendance.Location != time.UTC {
		t.Errorf("got timezone %q / %v, want UTC", cfg.Attendance.Timezone, cfg.Attendance.Location)
	}
	if task, ok := cfg.Scheduler.Tasks["sql_maintenance"]; !ok || !task.Enabled {
		t.Errorf("expected default sql_maintenance task, got %+v", cfg.Scheduler.Tasks)
	}
}

func TestLoadConfigFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")

	yaml := `
log:
  level: debug
  json: false
server:
  listen_addr: ":9090"
database:
  path: /tmp/att.db
attendance:
  timezone: America/Sao_Paulo
`
	if err := os.WriteFile(path, []byte(yaml), 0o600); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}

	cfg, err := config.LoadConfig(path)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}

	if cfg.Log.Level != "debug" || cfg.Log.JSON {
		t.Errorf("unexpected log config: %+v", cfg.Log)
	}
	if cfg.Server.ListenAddr != ":9090" {
		t.Errorf("got listen addr %q, want :9090", cfg.Server.ListenAddr)
	}
	if cfg.Database.Path != "/tmp/att.db" {
		t.Errorf("got db path %q", cfg.Database.Path)
	}
	if cfg.Attendance.Location == nil || cfg.Attendance.Location.String() != "America/Sao_Paulo" {
		t.Errorf("got location %v, want America/Sao_Paulo", cfg.Attendance.Location)
	}
	// Untouched keys keep their defaults
	if cfg.Server.ReadTimeout != config.DefaultServerReadTimeout {
		t.Errorf("got read timeout %v, want default", cfg.Server.ReadTimeout)
	}
}

func TestLoadConfigRejectsBadValues(t *testing.T) {
	dir := t.TempDir()

	testCases := []struct {
		name string
		yaml string
	}{
		{
			name: "bad log level",
			yaml: "log:\n  level: loud\n",
		},
		{
			name: "bad timezone",
			yaml: "attendance:\n  timezone: Mars/Olympus\n",
		},
		{
			name: "operation timeout too large",
			yaml: "database:\n  operation_timeout: 10m\n",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			path := filepath.Join(dir, tc.name+".yaml")
			if err := os.WriteFile(path, []byte(tc.yaml), 0o600); err != nil {
				t.Fatalf("failed to write config file: %v", err)
			}
			if _, err := config.LoadConfig(path); err == nil {
				t.Fatal("expected an error, got nil")
			}
		})
	}
}
