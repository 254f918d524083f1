package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/F3Joule/subsocial-v2/internal/config"
	"go.uber.org/zap"
)

const testContent = "QmRAQB6YaCyidP37UdDnjFY5vQuiBrcqdyoW1CuDgwxkD4"

type sequenceIDs struct {
	next int
}

func (s *sequenceIDs) NewID() (string, error) {
	s.next++
	return "run-" + string(rune('0'+s.next)), nil
}

func testAppConfig(t *testing.T, mutate func(*config.AppConfig)) config.AppConfig {
	t.Helper()
	configViper := config.NewViper()
	configViper.Set("database.path", filepath.Join(t.TempDir(), "ledger.db"))
	configViper.Set("auth.require_tokens", false)
	appConfig, err := config.Load(configViper)
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if mutate != nil {
		mutate(&appConfig)
	}
	return appConfig
}

func writeScript(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "script.yaml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write script: %v", err)
	}
	return path
}

func fixedClock() func() time.Time {
	now := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	return func() time.Time {
		now = now.Add(time.Second)
		return now
	}
}

func TestApplyPersistsAcrossRuns(t *testing.T) {
	metricsPath := filepath.Join(t.TempDir(), "subsocial.prom")
	appConfig := testAppConfig(t, func(cfg *config.AppConfig) {
		cfg.MetricsTextfile = metricsPath
	})
	ids := &sequenceIDs{}
	ctx := context.Background()

	first := writeScript(t, `
operations:
  - op: create_space
    actor: alice
    handle: alice_space
    content: `+testContent+`
  - op: create_post
    actor: alice
    space: 1
    content: `+testContent+`
`)
	var out bytes.Buffer
	if err := runApply(ctx, appConfig, zap.NewNop(), first, applyOptions{idProvider: ids, clock: fixedClock()}, &out); err != nil {
		t.Fatalf("first apply: %v", err)
	}
	if !strings.Contains(out.String(), "applied 2, rejected 0, denied 0") || !strings.Contains(out.String(), "run run-1 persisted") {
		t.Fatalf("unexpected first report:\n%s", out.String())
	}

	second := writeScript(t, `
operations:
  - op: create_reaction
    actor: bobby
    post: 1
    vote: upvote
  - op: follow_space
    actor: alice
    space: 1
`)
	out.Reset()
	if err := runApply(ctx, appConfig, zap.NewNop(), second, applyOptions{idProvider: ids, clock: fixedClock()}, &out); err != nil {
		t.Fatalf("second apply: %v", err)
	}
	if !strings.Contains(out.String(), "applied 1, rejected 1, denied 0") {
		t.Fatalf("unexpected second report:\n%s", out.String())
	}

	out.Reset()
	if err := runInspect(ctx, appConfig, zap.NewNop(), "post", "1", &out); err != nil {
		t.Fatalf("inspect post: %v", err)
	}
	for _, expected := range []string{"kind: regular_post", "upvotes_count: 1", "score: 5", "owner: bobby"} {
		if !strings.Contains(out.String(), expected) {
			t.Fatalf("expected %q in post view:\n%s", expected, out.String())
		}
	}

	out.Reset()
	if err := runInspect(ctx, appConfig, zap.NewNop(), "account", "alice", &out); err != nil {
		t.Fatalf("inspect account: %v", err)
	}
	if !strings.Contains(out.String(), "reputation: 6") {
		t.Fatalf("expected alice reputation 6:\n%s", out.String())
	}

	out.Reset()
	if err := runRuns(ctx, appConfig, zap.NewNop(), 10, &out); err != nil {
		t.Fatalf("runs: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	if len(lines) != 3 || !strings.HasPrefix(lines[1], "run-2") {
		t.Fatalf("unexpected runs listing:\n%s", out.String())
	}

	metrics, err := os.ReadFile(metricsPath)
	if err != nil {
		t.Fatalf("read metrics: %v", err)
	}
	if !strings.Contains(string(metrics), `subsocial_operations_total{operation="follow_space",outcome="rejected"} 1`) {
		t.Fatalf("expected rejected follow in metrics:\n%s", metrics)
	}
}

func TestApplyFailFastPersistsNothing(t *testing.T) {
	appConfig := testAppConfig(t, nil)
	ctx := context.Background()
	path := writeScript(t, `
operations:
  - op: create_space
    actor: alice
  - op: unfollow_space
    actor: alice
    space: 1
`)

	var out bytes.Buffer
	err := runApply(ctx, appConfig, zap.NewNop(), path, applyOptions{failFast: true, idProvider: &sequenceIDs{}}, &out)
	if err == nil || !strings.Contains(err.Error(), "script.run.operation_failed") {
		t.Fatalf("expected fail-fast error, got %v", err)
	}

	out.Reset()
	if err := runInspect(ctx, appConfig, zap.NewNop(), "space", "1", &out); err == nil {
		t.Fatalf("expected space to be absent after fail-fast run:\n%s", out.String())
	}
}

func TestApplyWithTokens(t *testing.T) {
	appConfig := testAppConfig(t, func(cfg *config.AppConfig) {
		cfg.RequireTokens = true
		cfg.SigningSecret = "cli-secret"
	})
	ctx := context.Background()
	clock := func() time.Time { return time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC) }

	var tokenOut bytes.Buffer
	if err := runToken(ctx, appConfig, "alice", clock, &tokenOut); err != nil {
		t.Fatalf("issue token: %v", err)
	}
	token := strings.SplitN(tokenOut.String(), "\n", 2)[0]

	path := writeScript(t, `
operations:
  - op: create_space
    token: `+token+`
  - op: create_space
    actor: mallory
`)
	var out bytes.Buffer
	if err := runApply(ctx, appConfig, zap.NewNop(), path, applyOptions{dryRun: true, clock: clock}, &out); err != nil {
		t.Fatalf("apply: %v", err)
	}
	if !strings.Contains(out.String(), "applied 1, rejected 0, denied 1") || !strings.Contains(out.String(), "dry run") {
		t.Fatalf("unexpected report:\n%s", out.String())
	}

	if err := runToken(ctx, appConfig, "a!", clock, &tokenOut); err == nil {
		t.Fatalf("expected invalid account to be rejected")
	}
}

func TestFactorCommand(t *testing.T) {
	appConfig := testAppConfig(t, nil)
	var out bytes.Buffer
	if err := runFactor(appConfig.Weights, "21", "follow_account", &out); err != nil {
		t.Fatalf("factor: %v", err)
	}
	if out.String() != "factor 5\nweight 3\ndiff 15\n" {
		t.Fatalf("unexpected factor output %q", out.String())
	}
	if err := runFactor(appConfig.Weights, "-1", "follow_account", &out); err == nil {
		t.Fatalf("expected negative magnitude to fail")
	}
	if err := runFactor(appConfig.Weights, "1", "boost", &out); err == nil {
		t.Fatalf("expected unknown action to fail")
	}
}
