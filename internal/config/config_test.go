package config

import (
	"strings"
	"testing"

	"github.com/F3Joule/subsocial-v2/internal/scoring"
	"github.com/F3Joule/subsocial-v2/internal/validation"
)

func TestLoadAppliesDefaults(t *testing.T) {
	configViper := NewViper()
	configViper.Set("auth.signing_secret", "secret")

	cfg, err := Load(configViper)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.DatabasePath != defaultDatabasePath {
		t.Fatalf("unexpected database path %q", cfg.DatabasePath)
	}
	if cfg.Limits != validation.DefaultLimits() {
		t.Fatalf("unexpected limits %+v", cfg.Limits)
	}
	if cfg.Weights != scoring.DefaultWeights() {
		t.Fatalf("unexpected weights %+v", cfg.Weights)
	}
	if cfg.MaxCommentDepth != 10 {
		t.Fatalf("unexpected max comment depth %d", cfg.MaxCommentDepth)
	}
	if !cfg.RequireTokens {
		t.Fatalf("tokens should be required by default")
	}
	if cfg.LedgerConfig().Weights != cfg.Weights {
		t.Fatalf("ledger config lost weights")
	}
	key, err := cfg.SigningKey()
	if err != nil || string(key) != "secret" {
		t.Fatalf("unexpected signing key %q: %v", key, err)
	}
}

func TestSigningKeyRequiresSecret(t *testing.T) {
	cfg, err := Load(NewViper())
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if _, err := cfg.SigningKey(); err == nil || !strings.Contains(err.Error(), "auth.signing_secret") {
		t.Fatalf("expected missing secret error, got %v", err)
	}
}

func TestLoadReadsEnvironment(t *testing.T) {
	t.Setenv("SUBSOCIAL_AUTH_REQUIRE_TOKENS", "false")
	t.Setenv("SUBSOCIAL_WEIGHTS_UPVOTE_POST", "9")
	t.Setenv("SUBSOCIAL_LIMITS_HANDLE_MIN", "3")
	t.Setenv("SUBSOCIAL_DATABASE_PATH", "custom.db")

	cfg, err := Load(NewViper())
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.RequireTokens {
		t.Fatalf("expected tokens to be optional")
	}
	if cfg.Weights.UpvotePost != 9 {
		t.Fatalf("expected upvote weight 9, got %d", cfg.Weights.UpvotePost)
	}
	if cfg.Limits.HandleMinLength != 3 {
		t.Fatalf("expected handle min 3, got %d", cfg.Limits.HandleMinLength)
	}
	if cfg.DatabasePath != "custom.db" {
		t.Fatalf("unexpected database path %q", cfg.DatabasePath)
	}
}

func TestLoadRejectsInvalidConfiguration(t *testing.T) {
	testCases := []struct {
		name      string
		overrides map[string]any
		message   string
	}{
		{
			name:      "empty database path",
			overrides: map[string]any{"auth.signing_secret": "secret", "database.path": " "},
			message:   "database.path",
		},
		{
			name:      "inverted handle limits",
			overrides: map[string]any{"auth.signing_secret": "secret", "limits.handle_min": 60},
			message:   "limits.handle_min",
		},
		{
			name:      "weight overflow",
			overrides: map[string]any{"auth.signing_secret": "secret", "weights.share_post": 40000},
			message:   "weights.share_post",
		},
		{
			name:      "unknown encoding",
			overrides: map[string]any{"auth.signing_secret": "secret", "log.encoding": "xml"},
			message:   "log.encoding",
		},
		{
			name:      "zero comment depth",
			overrides: map[string]any{"auth.signing_secret": "secret", "limits.max_comment_depth": 0},
			message:   "limits.max_comment_depth",
		},
	}

	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			configViper := NewViper()
			for key, value := range testCase.overrides {
				configViper.Set(key, value)
			}
			_, err := Load(configViper)
			if err == nil {
				t.Fatalf("expected error")
			}
			if !strings.Contains(err.Error(), testCase.message) {
				t.Fatalf("expected error mentioning %q, got %v", testCase.message, err)
			}
		})
	}
}
