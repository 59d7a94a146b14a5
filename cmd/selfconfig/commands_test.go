package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const degradedSnapshot = `
response_time_ms: 250
memory_usage_mb: 2500
cache_hit_rate: 0.7
error_rate: 0.02
user_satisfaction: 0.85
`

func writeSnapshot(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "snapshot.yaml")
	if err := os.WriteFile(path, []byte(degradedSnapshot), 0o600); err != nil {
		t.Fatalf("write snapshot: %v", err)
	}
	return path
}

func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCommand(&out)
	cmd.SetArgs(args)
	cmd.SetErr(&bytes.Buffer{})
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestHealthCommandJSON(t *testing.T) {
	out, err := runCLI(t, "health", "--source", "static", "--snapshot", writeSnapshot(t), "-o", "json")
	if err != nil {
		t.Fatalf("health error = %v", err)
	}

	var payload struct {
		HealthScore int    `json:"health_score"`
		HealthBand  string `json:"health_band"`
	}
	if err := json.Unmarshal([]byte(out), &payload); err != nil {
		t.Fatalf("decode output: %v\n%s", err, out)
	}
	if payload.HealthScore != 50 || payload.HealthBand != "poor" {
		t.Fatalf("unexpected health %+v", payload)
	}
}

func TestAnalyzeCommandText(t *testing.T) {
	out, err := runCLI(t, "analyze", "--source", "static", "--snapshot", writeSnapshot(t))
	if err != nil {
		t.Fatalf("analyze error = %v", err)
	}
	if !strings.Contains(out, "Health score: 50/100 (poor)") {
		t.Errorf("missing health line:\n%s", out)
	}
	if !strings.Contains(out, "Recommendations:") {
		t.Errorf("missing recommendations:\n%s", out)
	}
}

func TestOptimizeCommandJSON(t *testing.T) {
	out, err := runCLI(t, "optimize", "--source", "static", "--snapshot", writeSnapshot(t), "--output", "json")
	if err != nil {
		t.Fatalf("optimize error = %v", err)
	}

	var payload struct {
		ProfileID string   `json:"profile_id"`
		Applied   []string `json:"applied"`
	}
	if err := json.Unmarshal([]byte(out), &payload); err != nil {
		t.Fatalf("decode output: %v\n%s", err, out)
	}
	if payload.ProfileID == "" || len(payload.Applied) == 0 {
		t.Fatalf("expected applied optimizations, got %+v", payload)
	}
}

func TestChatCommandJoinsArgs(t *testing.T) {
	out, err := runCLI(t, "chat", "--source", "random", "--seed", "7", "-o", "json", "what", "is", "the", "status")
	if err != nil {
		t.Fatalf("chat error = %v", err)
	}

	var reply struct {
		Intent string `json:"intent"`
		Text   string `json:"text"`
	}
	if err := json.Unmarshal([]byte(out), &reply); err != nil {
		t.Fatalf("decode output: %v\n%s", err, out)
	}
	if reply.Intent != "check_status" || reply.Text == "" {
		t.Fatalf("unexpected reply %+v", reply)
	}
}

func TestCommandErrors(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		wantErr string
	}{
		{"chat without message", []string{"chat"}, "requires at least 1 arg"},
		{"unknown source", []string{"health", "--source", "magic"}, "unsupported metrics source"},
		{"static without snapshot", []string{"health", "--source", "static"}, "snapshot path"},
		{"bad output", []string{"health", "-o", "xml"}, "unsupported output format"},
		{"analyze with args", []string{"analyze", "extra"}, "unknown command"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := runCLI(t, tt.args...)
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("expected error containing %q, got %v", tt.wantErr, err)
			}
		})
	}
}
