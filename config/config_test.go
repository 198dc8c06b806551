package config

import (
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/hanwen/go-ptp/ptp"
)

func writeConfig(t *testing.T, content string) string {
	path := filepath.Join(t.TempDir(), "ptp.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	return path
}

func TestLoadNoConfigFile(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got, want := cfg.SessionOptions(), ptp.DefaultOptions(); got != want {
		t.Errorf("got options %+v, want %+v", got, want)
	}
	if cfg.Transport != "usb" {
		t.Errorf("got transport %q, want usb", cfg.Transport)
	}
	if cfg.EventPollInterval != time.Second {
		t.Errorf("got poll interval %v", cfg.EventPollInterval)
	}
}

func TestLoadFile(t *testing.T) {
	path := writeConfig(t, `
timeout: 5s
response_retries: 0
prop_cache_time: 500ms
transport: ptpip
address: 192.168.1.1
debug:
  usb: true
  cache: true
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Timeout != 5*time.Second {
		t.Errorf("got timeout %v", cfg.Timeout)
	}
	if cfg.ResponseRetries != 0 {
		t.Errorf("explicit zero retries overridden: %d", cfg.ResponseRetries)
	}
	if cfg.PropCacheTime != 500*time.Millisecond {
		t.Errorf("got prop cache time %v", cfg.PropCacheTime)
	}
	if cfg.MaxStaleReplies != 32 {
		t.Errorf("got max stale %d, want default 32", cfg.MaxStaleReplies)
	}
	if !cfg.Debug.USB || !cfg.Debug.Cache || cfg.Debug.PTP {
		t.Errorf("got debug flags %+v", cfg.Debug)
	}
}

func TestLoadEnvOverride(t *testing.T) {
	path := writeConfig(t, "timeout: 5s\n")
	t.Setenv("PTP_TIMEOUT", "7s")
	t.Setenv("PTP_DEBUG_EVENT", "true")
	t.Setenv("PTP_FUZZING", "true")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Timeout != 7*time.Second {
		t.Errorf("got timeout %v, want 7s", cfg.Timeout)
	}
	if !cfg.Debug.Event {
		t.Error("PTP_DEBUG_EVENT ignored")
	}
	if !cfg.SessionOptions().Fuzzing {
		t.Error("PTP_FUZZING ignored")
	}
}

func TestLoadInvalid(t *testing.T) {
	for name, content := range map[string]string{
		"transport":   "transport: bluetooth\n",
		"address":     "transport: ptpip\n",
		"retries":     "response_retries: -1\n",
		"duration":    "timeout: soon\n",
		"unparseable": "timeout: [\n",
	} {
		t.Run(name, func(t *testing.T) {
			if _, err := Load(writeConfig(t, content)); err == nil {
				t.Errorf("Load(%q) succeeded", content)
			}
		})
	}
}

func TestSaveRoundTrip(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Transport = "ptpip"
	cfg.Address = "cam.local:15740"
	cfg.RetryDelay = 20 * time.Millisecond
	cfg.Debug.Data = true

	path := filepath.Join(t.TempDir(), "sub", "ptp.yaml")
	if err := Save(cfg, path); err != nil {
		t.Fatalf("Save: %v", err)
	}

	st, err := os.Stat(path)
	if err != nil {
		t.Fatalf("Stat: %v", err)
	}
	if st.Mode().Perm() != 0600 {
		t.Errorf("got mode %v", st.Mode())
	}
	data, _ := os.ReadFile(path)
	if !strings.Contains(string(data), "retry_delay: 20ms") {
		t.Errorf("durations not human readable:\n%s", data)
	}

	got, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !reflect.DeepEqual(got, cfg) {
		t.Errorf("got %+v, want %+v", got, cfg)
	}
}
