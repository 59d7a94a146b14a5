package service

import (
	"fmt"
	"math/rand"
	"strings"
	"time"

	"github.com/dreschagin/self-configuration/internal/domain/entity"
	"github.com/dreschagin/self-configuration/internal/domain/valueobject"
)

// TrendPool содержит фиксированный набор фраз для анализа тренда
var TrendPool = []string{
	"Performance has been consistently stable",
	"I've noticed gradual improvements in response times",
	"Cache efficiency has increased by 5% this week",
	"Error rates remain well below target thresholds",
}

// Picker выбирает индекс в диапазоне [0, n)
type Picker func(n int) int

// Clock возвращает текущее время
type Clock func() time.Time

// NarrativeSynthesizer превращает профиль оптимизации в текст на естественном языке (Domain Service)
// Детерминирован, кроме выбора фразы тренда
type NarrativeSynthesizer struct {
	engine *RecommendationEngine
	pick   Picker
	now    Clock
}

// NewNarrativeSynthesizer создает синтезатор. nil picker или clock заменяются стандартными.
func NewNarrativeSynthesizer(engine *RecommendationEngine, pick Picker, now Clock) *NarrativeSynthesizer {
	if engine == nil {
		engine = NewRecommendationEngine()
	}
	if pick == nil {
		pick = rand.Intn
	}
	if now == nil {
		now = time.Now
	}

	return &NarrativeSynthesizer{
		engine: engine,
		pick:   pick,
		now:    now,
	}
}

// Synthesize формирует рассказ о состоянии системы по профилю
func (s *NarrativeSynthesizer) Synthesize(profile *entity.OptimizationProfile) string {
	snapshot := profile.Snapshot()
	score := s.engine.HealthScore(snapshot)

	var b strings.Builder
	fmt.Fprintf(&b, "Based on my analysis of your system over the past %s, ", s.period(profile.Timestamp()))
	b.WriteString(openingFor(score.Band()))
	b.WriteString(metricInsights(snapshot))

	if recs := profile.Recommendations(); len(recs) > 0 {
		fmt.Fprintf(&b, "\n\nI recommend implementing %d optimizations that could further improve performance. ", len(recs))
		fmt.Fprintf(&b, "The most impactful would be %s, which could reduce response times by up to 15%%.", strings.ToLower(recs[0]))
	}

	fmt.Fprintf(&b, "\n\nTrend analysis: %s.", s.Trend())
	return b.String()
}

// Trend выбирает фразу тренда из TrendPool
func (s *NarrativeSynthesizer) Trend() string {
	idx := s.pick(len(TrendPool))
	if idx < 0 || idx >= len(TrendPool) {
		idx = 0
	}
	return TrendPool[idx]
}

// SynthesizeOptimizationSuccess формирует отчет об успешно примененных оптимизациях
func (s *NarrativeSynthesizer) SynthesizeOptimizationSuccess(applied []string) string {
	lines := make([]string, len(applied))
	for i, opt := range applied {
		lines[i] = fmt.Sprintf("%d. ✅ %s", i+1, opt)
	}

	return fmt.Sprintf("Great news! I've successfully applied %d optimizations to your system:\n\n%s\n\n"+
		"These improvements should result in:\n"+
		"• Faster response times (10-15%% improvement expected)\n"+
		"• Better resource utilization\n"+
		"• Enhanced system stability\n"+
		"• Improved user experience\n\n"+
		"I'll continue monitoring the impact of these changes and will let you know if any adjustments are needed. "+
		"The system is now running more efficiently than before!",
		len(applied), strings.Join(lines, "\n"))
}

// SynthesizeAlreadyInEffect формирует рассказ об оптимизациях, которые уже действовали
func (s *NarrativeSynthesizer) SynthesizeAlreadyInEffect(unchanged []string) string {
	lines := make([]string, len(unchanged))
	for i, opt := range unchanged {
		lines[i] = "• " + opt
	}

	return fmt.Sprintf("%d of the recommended optimizations were already in effect, so I left them as they are:\n\n%s\n\n"+
		"The metrics have not been re-measured since they were applied, "+
		"so the next analysis will show whether they need a different approach.",
		len(unchanged), strings.Join(lines, "\n"))
}

// SynthesizeErrorRecovery формирует рассказ о восстановлении после неудачной оптимизации
func (s *NarrativeSynthesizer) SynthesizeErrorRecovery(err error) string {
	message := "Temporary optimization conflict"
	if err != nil && err.Error() != "" {
		message = err.Error()
	}

	return "I noticed an issue while optimizing the system, but don't worry - I've handled it gracefully:\n\n" +
		"**What happened**: " + message + "\n" +
		"**What I did**: Rolled back the change and identified an alternative approach\n" +
		"**Current status**: System remains stable and fully operational\n\n" +
		"I'll try a different optimization strategy that's more suitable for your current configuration. " +
		"Your system continues to run smoothly without any interruption to users."
}

// period возвращает человекочитаемый период с момента анализа
func (s *NarrativeSynthesizer) period(timestamp time.Time) string {
	hours := int(s.now().Sub(timestamp).Hours())
	if hours < 0 {
		hours = 0
	}

	if hours < 24 {
		return fmt.Sprintf("%d hours", hours)
	}

	days := hours / 24
	if days > 1 {
		return fmt.Sprintf("%d days", days)
	}
	return fmt.Sprintf("%d day", days)
}

func openingFor(band valueobject.HealthBand) string {
	switch band {
	case valueobject.BandExcellent:
		return "everything is running exceptionally well! Your system is performing at peak efficiency with optimal response times and resource usage. "
	case valueobject.BandGood:
		return "your system is performing well overall, though I've identified a few areas where we can improve. "
	default:
		return "I've noticed some performance concerns that we should address to ensure optimal user experience. "
	}
}

func metricInsights(snapshot *entity.MetricsSnapshot) string {
	insights := make([]string, 0, 3)

	switch rt := snapshot.ResponseTimeMs(); {
	case rt <= 150:
		insights = append(insights, "Response times are exceptional, providing users with a seamless experience")
	case rt <= 200:
		insights = append(insights, "Response times are within target, ensuring smooth interactions")
	default:
		insights = append(insights, "Response times could be improved to enhance user experience")
	}

	switch hit := snapshot.CacheHitRate(); {
	case hit >= 0.85:
		insights = append(insights, "Cache performance is excellent, minimizing vector_store load")
	case hit >= 0.8:
		insights = append(insights, "Cache is performing well, though there's room for improvement")
	default:
		insights = append(insights, "Cache optimization could significantly improve performance")
	}

	switch sat := snapshot.UserSatisfaction(); {
	case sat >= 0.95:
		insights = append(insights, "User satisfaction is outstanding")
	case sat >= 0.9:
		insights = append(insights, "Users are highly satisfied with the system")
	default:
		insights = append(insights, "There are opportunities to improve user satisfaction")
	}

	return "\n\nKey observations:\n• " + strings.Join(insights, "\n• ")
}
