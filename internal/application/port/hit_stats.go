package port

// HitStats содержит счетчики попаданий и промахов чтения
type HitStats struct {
	Hits   int64 `json:"hits"`
	Misses int64 `json:"misses"`
}

// HitRate возвращает долю попаданий. Без обращений возвращает 1.
func (s HitStats) HitRate() float64 {
	total := s.Hits + s.Misses
	if total == 0 {
		return 1
	}
	return float64(s.Hits) / float64(total)
}

// Add складывает счетчики
func (s HitStats) Add(other HitStats) HitStats {
	return HitStats{Hits: s.Hits + other.Hits, Misses: s.Misses + other.Misses}
}

// HitCounter отдает счетчики попаданий хранилища или кеша
type HitCounter interface {
	HitStats() HitStats
}
