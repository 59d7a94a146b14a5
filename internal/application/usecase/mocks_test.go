package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/dreschagin/self-configuration/internal/application/dto"
	"github.com/dreschagin/self-configuration/internal/application/port"
	"github.com/dreschagin/self-configuration/internal/domain/entity"
	"github.com/dreschagin/self-configuration/internal/domain/repository"
	"github.com/dreschagin/self-configuration/internal/domain/valueobject"
)

func staticSource(snapshot *entity.MetricsSnapshot) port.MetricsSource {
	return port.MetricsSourceFunc(func(context.Context) (*entity.MetricsSnapshot, error) {
		return snapshot, nil
	})
}

type mockProfileRepository struct {
	mu       sync.Mutex
	profiles map[string]*entity.OptimizationProfile
	saveErr  error
	findErr  error
	saves    int
}

func newMockProfileRepository() *mockProfileRepository {
	return &mockProfileRepository{profiles: make(map[string]*entity.OptimizationProfile)}
}

func (m *mockProfileRepository) Save(_ context.Context, profile *entity.OptimizationProfile) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.saveErr != nil {
		return m.saveErr
	}
	m.saves++
	m.profiles[profile.ID()] = profile
	return nil
}

func (m *mockProfileRepository) FindByID(_ context.Context, id string) (*entity.OptimizationProfile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if p, ok := m.profiles[id]; ok {
		return p, nil
	}
	return nil, repository.ErrProfileNotFound
}

func (m *mockProfileRepository) FindLatest(ctx context.Context) (*entity.OptimizationProfile, error) {
	recent, err := m.FindRecent(ctx, 1)
	if err != nil {
		return nil, err
	}
	if len(recent) == 0 {
		return nil, repository.ErrProfileNotFound
	}
	return recent[0], nil
}

func (m *mockProfileRepository) FindRecent(_ context.Context, limit int) ([]*entity.OptimizationProfile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.findErr != nil {
		return nil, m.findErr
	}
	result := make([]*entity.OptimizationProfile, 0, len(m.profiles))
	for _, p := range m.profiles {
		result = append(result, p)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Timestamp().After(result[j].Timestamp()) })
	if len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

type publishedEvent struct {
	subject string
	event   interface{}
}

type mockEventPublisher struct {
	mu     sync.Mutex
	events []publishedEvent
}

func (m *mockEventPublisher) PublishEvent(_ context.Context, subject string, event interface{}) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, publishedEvent{subject: subject, event: event})
	return nil
}

func (m *mockEventPublisher) Close() error { return nil }

func (m *mockEventPublisher) subjects() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	subjects := make([]string, len(m.events))
	for i, e := range m.events {
		subjects[i] = e.subject
	}
	return subjects
}

type mockNotifier struct {
	profiles []*dto.ProfileDTO
	alerts   []*dto.AlertDTO
}

func (m *mockNotifier) BroadcastProfile(profile *dto.ProfileDTO) { m.profiles = append(m.profiles, profile) }
func (m *mockNotifier) BroadcastAlert(alert *dto.AlertDTO)       { m.alerts = append(m.alerts, alert) }
func (m *mockNotifier) ClientCount() int                         { return 1 }

type mockMetricsPublisher struct {
	scores []valueobject.HealthScore
}

func (m *mockMetricsPublisher) PublishSnapshot(_ context.Context, _ *entity.MetricsSnapshot, score valueobject.HealthScore) error {
	m.scores = append(m.scores, score)
	return nil
}

func (m *mockMetricsPublisher) Flush(context.Context) error { return nil }

type mockObserver struct {
	profiles      int
	optimizations map[valueobject.OptimizationKind]bool
}

func (m *mockObserver) ObserveProfile(*entity.OptimizationProfile, valueobject.HealthScore) { m.profiles++ }

func (m *mockObserver) ObserveOptimization(kind valueobject.OptimizationKind, success bool) {
	if m.optimizations == nil {
		m.optimizations = make(map[valueobject.OptimizationKind]bool)
	}
	m.optimizations[kind] = success
}

type mockVault struct {
	mu    sync.Mutex
	items  map[string][]byte
	hits   int64
	misses int64
}

func newMockVault() *mockVault {
	return &mockVault{items: make(map[string][]byte)}
}

func (m *mockVault) Store(_ context.Context, key string, value interface{}) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items[key] = data
	return nil
}

func (m *mockVault) Retrieve(_ context.Context, key string, dest interface{}) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.items[key]
	if !ok {
		m.misses++
		return port.ErrVaultItemNotFound
	}
	m.hits++
	return json.Unmarshal(data, dest)
}

func (m *mockVault) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.items, key)
	return nil
}

func (m *mockVault) Has(_ context.Context, key string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.items[key]
	return ok, nil
}

func (m *mockVault) Clear(context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items = make(map[string][]byte)
	return nil
}

func (m *mockVault) Stats(context.Context) (port.VaultStats, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return port.VaultStats{ItemCount: len(m.items)}, nil
}

func (m *mockVault) HitStats() port.HitStats {
	m.mu.Lock()
	defer m.mu.Unlock()
	return port.HitStats{Hits: m.hits, Misses: m.misses}
}

type mockCache struct {
	mu       sync.Mutex
	data     map[string][]byte
	sets     chan string
	patterns []string
}

func newMockCache() *mockCache {
	return &mockCache{data: make(map[string][]byte), sets: make(chan string, 8)}
}

func (m *mockCache) Get(_ context.Context, key string, dest interface{}) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.data[key]
	if !ok {
		return port.ErrCacheMiss
	}
	return json.Unmarshal(data, dest)
}

func (m *mockCache) Set(_ context.Context, key string, value interface{}) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	m.mu.Lock()
	m.data[key] = data
	m.mu.Unlock()
	m.sets <- key
	return nil
}

func (m *mockCache) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	return nil
}

func (m *mockCache) DeletePattern(_ context.Context, pattern string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.patterns = append(m.patterns, pattern)
	return nil
}

func (m *mockCache) Close() error { return nil }

func (m *mockCache) waitSet(t *testing.T) string {
	t.Helper()
	select {
	case key := <-m.sets:
		return key
	case <-time.After(2 * time.Second):
		t.Fatalf("cache was not populated")
		return ""
	}
}

type putCall struct {
	key         string
	contentType string
	body        []byte
}

type mockReportArchive struct {
	calls           []putCall
	putErr          error
	objectsByPrefix map[string][]port.ReportObject
	listErr         error
	lastPrefix      string
	lastLimit       int
}

func (m *mockReportArchive) PutObject(_ context.Context, key, contentType string, body []byte) (string, error) {
	m.calls = append(m.calls, putCall{key: key, contentType: contentType, body: body})
	if m.putErr != nil {
		return "", m.putErr
	}
	return "https://example.com/" + key, nil
}

func (m *mockReportArchive) ListObjects(_ context.Context, prefix string, limit int) ([]port.ReportObject, error) {
	m.lastPrefix = prefix
	m.lastLimit = limit
	if m.listErr != nil {
		return nil, m.listErr
	}
	return m.objectsByPrefix[prefix], nil
}

func (m *mockReportArchive) GetObjectURL(_ context.Context, key string) (string, error) {
	return "https://signed.example.com/" + key, nil
}

type mockReportIndex struct {
	records   []port.ReportMetadata
	page      port.ReportListPage
	putErr    error
	listErr   error
	lastQuery port.ReportListQuery
}

func (m *mockReportIndex) Put(_ context.Context, record port.ReportMetadata) error {
	if m.putErr != nil {
		return m.putErr
	}
	m.records = append(m.records, record)
	return nil
}

func (m *mockReportIndex) List(_ context.Context, query port.ReportListQuery) (port.ReportListPage, error) {
	m.lastQuery = query
	if m.listErr != nil {
		return port.ReportListPage{}, m.listErr
	}
	return m.page, nil
}

var errBoom = errors.New("boom")
