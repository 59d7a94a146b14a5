package collector

import (
	"os"
	"path/filepath"
	"testing"
)

func TestNewSource(t *testing.T) {
	fixture := filepath.Join(t.TempDir(), "snapshot.yaml")
	data := []byte("response_time_ms: 250\nmemory_usage_mb: 1800\ncache_hit_rate: 0.85\nerror_rate: 0.005\nuser_satisfaction: 0.92\n")
	if err := os.WriteFile(fixture, data, 0o600); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	tests := []struct {
		name    string
		opts    SourceOptions
		want    string
		wantErr bool
	}{
		{"random", SourceOptions{Kind: "random", Seed: 7}, "*collector.RandomSource", false},
		{"random unseeded", SourceOptions{Kind: "random"}, "*collector.RandomSource", false},
		{"static", SourceOptions{Kind: "static", SnapshotPath: fixture}, "*collector.StaticSource", false},
		{"runtime default", SourceOptions{}, "*collector.RuntimeSource", false},
		{"static without path", SourceOptions{Kind: "static"}, "", true},
		{"missing fixture", SourceOptions{Kind: "static", SnapshotPath: filepath.Join(t.TempDir(), "none.yaml")}, "", true},
		{"unknown", SourceOptions{Kind: "magic"}, "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			source, err := NewSource(tt.opts)
			if (err != nil) != tt.wantErr {
				t.Fatalf("NewSource() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			if got := typeName(source); got != tt.want {
				t.Fatalf("expected %s, got %s", tt.want, got)
			}
		})
	}
}

func typeName(v interface{}) string {
	switch v.(type) {
	case *RandomSource:
		return "*collector.RandomSource"
	case *StaticSource:
		return "*collector.StaticSource"
	case *RuntimeSource:
		return "*collector.RuntimeSource"
	default:
		return "unknown"
	}
}
