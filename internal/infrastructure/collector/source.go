package collector

import (
	"fmt"

	"github.com/dreschagin/self-configuration/internal/application/port"
	"github.com/dreschagin/self-configuration/internal/infrastructure/telemetry"
	"github.com/dreschagin/self-configuration/pkg/logger"
)

// SourceOptions описывает выбор источника метрик
type SourceOptions struct {
	// Kind - random, static или runtime
	Kind         string
	SnapshotPath string
	// Seed 0 означает генератор от текущего времени
	Seed     int64
	Recorder *telemetry.Recorder
	Hits     port.HitCounter
	Logger   *logger.Logger
}

// NewSource создает источник метрик по имени
func NewSource(opts SourceOptions) (port.MetricsSource, error) {
	switch opts.Kind {
	case "random":
		if opts.Seed == 0 {
			return NewRandomSource(nil), nil
		}
		return NewSeededRandomSource(opts.Seed), nil
	case "static":
		if opts.SnapshotPath == "" {
			return nil, fmt.Errorf("static source requires a snapshot path")
		}
		return LoadStaticSource(opts.SnapshotPath)
	case "runtime", "":
		return NewRuntimeSource(NewProcessMemoryCollector(), opts.Recorder, opts.Hits, opts.Logger), nil
	default:
		return nil, fmt.Errorf("unsupported metrics source %q", opts.Kind)
	}
}
