package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the server configuration, loaded from an optional YAML file
// with environment variable overrides on top.
type Config struct {
	Addr         string `yaml:"addr"`
	PublicURL    string `yaml:"public_url"`
	SpectatorKey string `yaml:"spectator_key"`

	// QuestionURL points at the external question pipeline. Empty means
	// the built-in static question set.
	QuestionURL string `yaml:"question_url"`

	// NATSURL enables the event relay when set.
	NATSURL string `yaml:"nats_url"`

	Timings Timings `yaml:"timings"`

	IdleTTLSec        int `yaml:"idle_ttl_sec"`
	ReaperIntervalSec int `yaml:"reaper_interval_sec"`
}

// Timings are the duel timing constants, in seconds in the YAML file.
type Timings struct {
	AnswerWindowSec     int `yaml:"answer_window_sec"`
	RevealDelaySec      int `yaml:"reveal_delay_sec"`
	GameOverDelaySec    int `yaml:"game_over_delay_sec"`
	ReadyPromptDelaySec int `yaml:"ready_prompt_delay_sec"`
	FetchTimeoutSec     int `yaml:"fetch_timeout_sec"`
	ReconnectGraceSec   int `yaml:"reconnect_grace_sec"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Addr:              ":8080",
		PublicURL:         "http://localhost:8080",
		IdleTTLSec:        1800,
		ReaperIntervalSec: 60,
		Timings: Timings{
			AnswerWindowSec:     20,
			RevealDelaySec:      3,
			GameOverDelaySec:    2,
			ReadyPromptDelaySec: 3,
			FetchTimeoutSec:     5,
			ReconnectGraceSec:   60,
		},
	}
}

// Load reads the YAML file at path (skipped when path is empty or the
// file does not exist) and applies environment overrides.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if !os.IsNotExist(err) {
				return Config{}, fmt.Errorf("failed to read config file: %w", err)
			}
		} else if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("failed to parse config: %w", err)
		}
	}

	cfg.Addr = getEnv("ADDR", cfg.Addr)
	if port := os.Getenv("PORT"); port != "" {
		cfg.Addr = ":" + port
	}
	cfg.PublicURL = getEnv("PUBLIC_URL", cfg.PublicURL)
	cfg.SpectatorKey = getEnv("SPECTATOR_KEY", cfg.SpectatorKey)
	cfg.QuestionURL = getEnv("QUESTION_URL", cfg.QuestionURL)
	cfg.NATSURL = getEnv("NATS_URL", cfg.NATSURL)

	cfg.Timings.AnswerWindowSec = getEnvAsInt("ANSWER_WINDOW_SEC", cfg.Timings.AnswerWindowSec)
	cfg.Timings.RevealDelaySec = getEnvAsInt("REVEAL_DELAY_SEC", cfg.Timings.RevealDelaySec)
	cfg.Timings.GameOverDelaySec = getEnvAsInt("GAME_OVER_DELAY_SEC", cfg.Timings.GameOverDelaySec)
	cfg.Timings.ReadyPromptDelaySec = getEnvAsInt("READY_PROMPT_DELAY_SEC", cfg.Timings.ReadyPromptDelaySec)
	cfg.Timings.FetchTimeoutSec = getEnvAsInt("FETCH_TIMEOUT_SEC", cfg.Timings.FetchTimeoutSec)
	cfg.Timings.ReconnectGraceSec = getEnvAsInt("RECONNECT_GRACE_SEC", cfg.Timings.ReconnectGraceSec)

	cfg.IdleTTLSec = getEnvAsInt("IDLE_TTL_SEC", cfg.IdleTTLSec)
	cfg.ReaperIntervalSec = getEnvAsInt("REAPER_INTERVAL_SEC", cfg.ReaperIntervalSec)

	return cfg, nil
}

// Reaper returns the idle reaper interval and session TTL.
func (c Config) Reaper() (interval, ttl time.Duration) {
	return time.Duration(c.ReaperIntervalSec) * time.Second,
		time.Duration(c.IdleTTLSec) * time.Second
}

// Durations converts the timing seconds into time.Durations.
func (t Timings) Durations() (answer, reveal, gameOver, readyPrompt, fetch, grace time.Duration) {
	return time.Duration(t.AnswerWindowSec) * time.Second,
		time.Duration(t.RevealDelaySec) * time.Second,
		time.Duration(t.GameOverDelaySec) * time.Second,
		time.Duration(t.ReadyPromptDelaySec) * time.Second,
		time.Duration(t.FetchTimeoutSec) * time.Second,
		time.Duration(t.ReconnectGraceSec) * time.Second
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}
