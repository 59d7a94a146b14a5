package logger

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/dreschagin/self-configuration/internal/application/port"
)

type recordingPublisher struct {
	entries []port.LogEntry
}

func (p *recordingPublisher) Publish(_ context.Context, entry port.LogEntry) error {
	p.entries = append(p.entries, entry)
	return nil
}

func (p *recordingPublisher) PublishBatch(_ context.Context, entries []port.LogEntry) error {
	p.entries = append(p.entries, entries...)
	return nil
}

func (p *recordingPublisher) Flush(context.Context) error { return nil }

func TestLoggerLevels(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter("warn", &buf)

	log.Debug("hidden debug")
	log.Info("hidden info")
	log.Warn("visible warn", "metric", "response_time")
	log.Error("visible error", errors.New("boom"), "kind", "gc_optimization")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Fatalf("unexpected low-level output: %s", out)
	}
	if !strings.Contains(out, "[WARN] visible warn | metric=response_time") {
		t.Errorf("missing warn line: %s", out)
	}
	if !strings.Contains(out, "kind=gc_optimization error=boom") {
		t.Errorf("missing error fields: %s", out)
	}
}

func TestLoggerPublishesEntries(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter("info", &buf)
	publisher := &recordingPublisher{}
	log.SetLogPublisher(publisher)

	log.Info("profile analyzed", "score", 90, "profile_id", "p-1")
	log.Debug("skipped")

	if len(publisher.entries) != 1 {
		t.Fatalf("expected 1 published entry, got %d", len(publisher.entries))
	}
	entry := publisher.entries[0]
	if entry.Level != port.LogLevelInfo || entry.Message != "profile analyzed" || entry.Fields["score"] != 90 || entry.ProfileID != "p-1" {
		t.Errorf("unexpected entry: %+v", entry)
	}

	log.SetLogPublisher(nil)
	log.Info("not published")
	if len(publisher.entries) != 1 {
		t.Error("publisher should be detached")
	}
}
