package s3

import (
	"testing"
	"time"
)

func TestConfigNormalize(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
		check   func(t *testing.T, cfg Config)
	}{
		{
			name: "defaults",
			cfg:  Config{Bucket: " reports "},
			check: func(t *testing.T, cfg Config) {
				if cfg.Bucket != "reports" || cfg.Region != "us-east-1" || cfg.URLMode != URLModePresigned {
					t.Errorf("unexpected defaults: %+v", cfg)
				}
				if cfg.PresignedTTL != 15*time.Minute {
					t.Errorf("PresignedTTL = %v", cfg.PresignedTTL)
				}
			},
		},
		{
			name: "public mode derives endpoint",
			cfg:  Config{Bucket: "reports", Region: "eu-west-1", URLMode: URLModePublic},
			check: func(t *testing.T, cfg Config) {
				if cfg.Endpoint != "https://s3.eu-west-1.amazonaws.com" {
					t.Errorf("Endpoint = %s", cfg.Endpoint)
				}
			},
		},
		{name: "missing bucket", cfg: Config{}, wantErr: true},
		{name: "half credentials", cfg: Config{Bucket: "b", AccessKeyID: "id"}, wantErr: true},
		{name: "bad url mode", cfg: Config{Bucket: "b", URLMode: "signed"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := tt.cfg
			err := cfg.normalize()
			if (err != nil) != tt.wantErr {
				t.Fatalf("normalize() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.check != nil {
				tt.check(t, cfg)
			}
		})
	}
}

func TestPublicURL(t *testing.T) {
	key := "reports/2026/10/19/20261019T120000Z_abc.md"

	pathStyle := &ReportArchive{bucket: "health", endpoint: "http://localhost:4566", usePathStyle: true}
	if got := pathStyle.publicURL(key); got != "http://localhost:4566/health/"+key {
		t.Errorf("path-style URL = %s", got)
	}

	virtualHost := &ReportArchive{bucket: "health", endpoint: "https://s3.eu-west-1.amazonaws.com"}
	if got := virtualHost.publicURL(key); got != "https://health.s3.eu-west-1.amazonaws.com/"+key {
		t.Errorf("virtual-host URL = %s", got)
	}
}

func TestClampLimit(t *testing.T) {
	tests := []struct{ in, want int }{
		{0, defaultListLimit},
		{-5, defaultListLimit},
		{10, 10},
		{1000, maxListLimit},
	}
	for _, tt := range tests {
		if got := clampLimit(tt.in); got != tt.want {
			t.Errorf("clampLimit(%d) = %d, want %d", tt.in, got, tt.want)
		}
	}
}
