package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoad_DefaultsWithoutFile(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if cfg.Addr != ":8080" {
		t.Fatalf("unexpected default addr %q", cfg.Addr)
	}
	interval, ttl := cfg.Reaper()
	if ttl != 30*time.Minute || interval != time.Minute {
		t.Fatalf("unexpected reaper defaults: ttl=%s interval=%s", ttl, interval)
	}

	answer, reveal, gameOver, readyPrompt, fetch, grace := cfg.Timings.Durations()
	if answer != 20*time.Second || reveal != 3*time.Second || gameOver != 2*time.Second {
		t.Fatalf("unexpected timing defaults: answer=%s reveal=%s gameOver=%s", answer, reveal, gameOver)
	}
	if readyPrompt != 3*time.Second || fetch != 5*time.Second || grace != 60*time.Second {
		t.Fatalf("unexpected timing defaults: readyPrompt=%s fetch=%s grace=%s", readyPrompt, fetch, grace)
	}
}

func TestLoad_MissingFileIsNotAnError(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.yaml")); err != nil {
		t.Fatalf("missing config file should fall back to defaults, got %v", err)
	}
}

func TestLoad_YAMLFileOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := []byte(`
addr: ":9090"
spectator_key: "s3cret"
timings:
  answer_window_sec: 15
  reconnect_grace_sec: 90
`)
	if err := os.WriteFile(path, data, 0o600); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if cfg.Addr != ":9090" {
		t.Fatalf("addr not overridden: %q", cfg.Addr)
	}
	if cfg.SpectatorKey != "s3cret" {
		t.Fatalf("spectator key not overridden: %q", cfg.SpectatorKey)
	}
	if cfg.Timings.AnswerWindowSec != 15 || cfg.Timings.ReconnectGraceSec != 90 {
		t.Fatalf("timings not overridden: %+v", cfg.Timings)
	}
	// Untouched keys keep their defaults.
	if cfg.Timings.RevealDelaySec != 3 {
		t.Fatalf("unrelated timing changed: %+v", cfg.Timings)
	}
}

func TestLoad_EnvironmentWinsOverFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(`addr: ":9090"`), 0o600); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}

	t.Setenv("PORT", "7000")
	t.Setenv("QUESTION_URL", "https://questions.example.com/next")
	t.Setenv("ANSWER_WINDOW_SEC", "25")
	t.Setenv("IDLE_TTL_SEC", "600")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if cfg.Addr != ":7000" {
		t.Fatalf("PORT override ignored: %q", cfg.Addr)
	}
	if cfg.QuestionURL != "https://questions.example.com/next" {
		t.Fatalf("QUESTION_URL override ignored: %q", cfg.QuestionURL)
	}
	if cfg.Timings.AnswerWindowSec != 25 {
		t.Fatalf("ANSWER_WINDOW_SEC override ignored: %d", cfg.Timings.AnswerWindowSec)
	}
	if cfg.IdleTTLSec != 600 {
		t.Fatalf("IDLE_TTL_SEC override ignored: %d", cfg.IdleTTLSec)
	}

	t.Setenv("ANSWER_WINDOW_SEC", "not-a-number")
	cfg, err = Load(path)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if cfg.Timings.AnswerWindowSec != 20 {
		t.Fatalf("malformed env value should fall back to default, got %d", cfg.Timings.AnswerWindowSec)
	}
}
