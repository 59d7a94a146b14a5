package conversation

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/dreschagin/self-configuration/internal/application/optimization"
	"github.com/dreschagin/self-configuration/internal/application/usecase"
	"github.com/dreschagin/self-configuration/internal/domain/entity"
	"github.com/dreschagin/self-configuration/internal/domain/service"
	"github.com/dreschagin/self-configuration/pkg/logger"
)

// Analyzer выполняет новый анализ
type Analyzer interface {
	Execute(ctx context.Context) (*entity.OptimizationProfile, error)
}

// Optimizer анализирует систему и применяет рекомендации
type Optimizer interface {
	Execute(ctx context.Context) (*usecase.ApplyResult, error)
}

// ProfileProvider возвращает последний профиль
type ProfileProvider interface {
	LatestProfile(ctx context.Context) (*entity.OptimizationProfile, error)
}

// FeedbackRecorder принимает неявную оценку пользователя
type FeedbackRecorder interface {
	RecordFeedback(positive bool)
}

// SettingsProvider возвращает текущие настройки тюнинга
type SettingsProvider func() optimization.Settings

// Request представляет одно сообщение в разговоре
type Request struct {
	SessionID string                 `json:"session_id,omitempty"`
	Message   string                 `json:"message,omitempty"`
	Intent    string                 `json:"intent,omitempty"`
	Context   map[string]interface{} `json:"context,omitempty"`
}

// Reply представляет ответ движка
type Reply struct {
	Intent    Intent `json:"intent"`
	Text      string `json:"text"`
	ProfileID string `json:"profile_id,omitempty"`
}

// Engine ведет разговор о конфигурации системы поверх use case'ов
type Engine struct {
	analyzer  Analyzer
	optimizer Optimizer
	profiles  ProfileProvider
	engine    *service.RecommendationEngine
	feedback  FeedbackRecorder
	settings  SettingsProvider
	logger    *logger.Logger

	mu       sync.Mutex
	sessions map[string]map[string]interface{}
}

// NewEngine создает движок разговора. feedback и settings могут быть nil.
func NewEngine(
	analyzer Analyzer,
	optimizer Optimizer,
	profiles ProfileProvider,
	feedback FeedbackRecorder,
	settings SettingsProvider,
	logger *logger.Logger,
) *Engine {
	return &Engine{
		analyzer:  analyzer,
		optimizer: optimizer,
		profiles:  profiles,
		engine:    service.NewRecommendationEngine(),
		feedback:  feedback,
		settings:  settings,
		logger:    logger,
		sessions:  make(map[string]map[string]interface{}),
	}
}

// Process обрабатывает одно сообщение
func (e *Engine) Process(ctx context.Context, req Request) (Reply, error) {
	e.rememberContext(req.SessionID, req.Context)
	e.recordFeedback(req.Message)

	intent := Intent(req.Intent)
	if intent != IntentConfigurationStart {
		intent = DetectIntent(req.Message)
	}

	e.logger.Debug("Processing chat message", "intent", intent, "session_id", req.SessionID)

	var (
		text    string
		profile *entity.OptimizationProfile
		err     error
	)

	switch intent {
	case IntentConfigurationStart:
		profile, err = e.profiles.LatestProfile(ctx)
		if err == nil {
			text = e.greeting(profile)
		}
	case IntentOptimizePerformance:
		profile, err = e.analyzer.Execute(ctx)
		if err == nil {
			text = optimizationOpportunities(profile)
		}
	case IntentCheckStatus:
		profile, err = e.profiles.LatestProfile(ctx)
		if err == nil {
			text = statusReport(profile)
		}
	case IntentExplainSettings:
		text = e.explainSettings()
	case IntentApplyRecommendation:
		var result *usecase.ApplyResult
		result, err = e.optimizer.Execute(ctx)
		if err == nil {
			profile = result.Profile
			text = result.Narrative
		}
	case IntentSystemHealth:
		profile, err = e.profiles.LatestProfile(ctx)
		if err == nil {
			text = e.healthReport(profile)
		}
	default:
		text = generalHelp(req.Message)
	}

	if err != nil {
		e.logger.Error("Failed to process chat message", err, "intent", intent)
		return Reply{}, fmt.Errorf("failed to handle %s: %w", intent, err)
	}

	reply := Reply{Intent: intent, Text: text}
	if profile != nil {
		reply.ProfileID = profile.ID()
	}
	return reply, nil
}

// SessionContext возвращает копию контекста сессии
func (e *Engine) SessionContext(sessionID string) map[string]interface{} {
	e.mu.Lock()
	defer e.mu.Unlock()

	result := make(map[string]interface{}, len(e.sessions[sessionID]))
	for k, v := range e.sessions[sessionID] {
		result[k] = v
	}
	return result
}

// ForgetSession удаляет контекст сессии и возвращает число забытых ключей
func (e *Engine) ForgetSession(sessionID string) int {
	e.mu.Lock()
	defer e.mu.Unlock()

	forgotten := len(e.sessions[sessionID])
	delete(e.sessions, sessionID)
	return forgotten
}

func (e *Engine) rememberContext(sessionID string, values map[string]interface{}) {
	if len(values) == 0 {
		return
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	session, ok := e.sessions[sessionID]
	if !ok {
		session = make(map[string]interface{}, len(values))
		e.sessions[sessionID] = session
	}
	for k, v := range values {
		session[k] = v
	}
}

func (e *Engine) recordFeedback(message string) {
	if e.feedback == nil {
		return
	}
	switch DetectSentiment(message) {
	case SentimentPositive:
		e.feedback.RecordFeedback(true)
	case SentimentNegative:
		e.feedback.RecordFeedback(false)
	}
}

func (e *Engine) greeting(profile *entity.OptimizationProfile) string {
	snapshot := profile.Snapshot()
	score := e.engine.HealthScore(snapshot)

	return fmt.Sprintf("Hi! I'm your system configuration assistant. I continuously monitor and optimize the system to keep it at peak performance.\n\n"+
		"Right now:\n"+
		"- Response time: %.0fms (target: <=200ms)\n"+
		"- Cache efficiency: %.1f%%\n"+
		"- System health: %s %d/100 (%s)\n\n"+
		"I can help you:\n"+
		"• Optimize performance automatically\n"+
		"• Explain current settings\n"+
		"• Apply specific improvements\n"+
		"• Monitor system health\n\n"+
		"What would you like to know or adjust?",
		snapshot.ResponseTimeMs(), snapshot.CacheHitRate()*100, score.Band().Emoji(), score.Int(), score.Band())
}

func optimizationOpportunities(profile *entity.OptimizationProfile) string {
	recs := profile.Recommendations()
	if len(recs) == 0 {
		return "Great news! Your system is already optimally configured. All performance metrics are within target ranges:\n\n" +
			"✅ Response times are excellent\n" +
			"✅ Memory usage is efficient\n" +
			"✅ Cache performance is optimal\n" +
			"✅ Error rates are minimal\n" +
			"✅ User satisfaction is high\n\n" +
			"I'll continue monitoring and will let you know if any optimization opportunities arise."
	}

	lines := make([]string, len(recs))
	for i, rec := range recs {
		lines[i] = fmt.Sprintf("%d. %s", i+1, rec)
	}

	return fmt.Sprintf("I've analyzed your system performance and found %d optimization opportunities:\n\n%s\n\n"+
		"Would you like me to apply these optimizations automatically? I can also explain what each one does if you'd prefer to understand them first.",
		len(recs), strings.Join(lines, "\n"))
}

func mark(ok bool) string {
	if ok {
		return "✅"
	}
	return "⚠️"
}

func statusReport(profile *entity.OptimizationProfile) string {
	s := profile.Snapshot()

	var b strings.Builder
	b.WriteString("Here's your current system status:\n\n📊 **Performance Metrics**\n")
	fmt.Fprintf(&b, "• Response Time: %.0fms %s\n", s.ResponseTimeMs(), mark(s.ResponseTimeMs() <= 200))
	fmt.Fprintf(&b, "• Memory Usage: %.0fMB / 2048MB %s\n", s.MemoryUsageMb(), mark(s.MemoryUsageMb() <= 2048))
	fmt.Fprintf(&b, "• Cache Hit Rate: %.1f%% %s\n", s.CacheHitRate()*100, mark(s.CacheHitRate() >= 0.8))
	fmt.Fprintf(&b, "• Error Rate: %.2f%% %s\n", s.ErrorRate()*100, mark(s.ErrorRate() <= 0.01))
	fmt.Fprintf(&b, "• User Satisfaction: %.1f%% %s\n", s.UserSatisfaction()*100, mark(s.UserSatisfaction() >= 0.9))

	if applied := profile.AppliedOptimizations(); len(applied) > 0 {
		if len(applied) > 3 {
			applied = applied[len(applied)-3:]
		}
		b.WriteString("\n📈 **Recent Optimizations**\n")
		for _, opt := range applied {
			fmt.Fprintf(&b, "• %s\n", opt)
		}
	}

	if profile.HasRecommendations() {
		fmt.Fprintf(&b, "\nI see %d possible improvements. Ask me to optimize the system if you'd like to review them.", len(profile.Recommendations()))
	} else {
		b.WriteString("\nEverything is running smoothly! Is there anything specific you'd like to improve?")
	}
	return b.String()
}

func (e *Engine) explainSettings() string {
	var b strings.Builder
	b.WriteString("Let me explain how I manage your system configuration:\n\n")
	b.WriteString("**🧠 Self-Configuration Approach**\n")
	b.WriteString("1. **Continuous Monitoring**: I take a snapshot of five metrics on every analysis\n")
	b.WriteString("2. **Fixed Targets**: each metric is compared against its target\n")
	b.WriteString("3. **Automatic Optimization**: breached targets map to concrete tuning changes\n")
	b.WriteString("4. **Natural Language Control**: you can ask for any of this through conversation\n\n")

	b.WriteString("**Targets**\n")
	for _, threshold := range e.engine.Thresholds() {
		fmt.Fprintf(&b, "• %s\n", threshold)
	}

	if e.settings != nil {
		s := e.settings()
		b.WriteString("\n**Current Tuning**\n")
		fmt.Fprintf(&b, "• Caching: aggressive=%t, TTL %s, distributed=%t, predictive warmup=%t\n",
			s.AggressiveCaching, s.CacheTTL, s.DistributedCache, s.PredictiveWarmup)
		fmt.Fprintf(&b, "• Resources: pool size %d, GC target %d%%, low-priority cache %dMB, batch size %d\n",
			s.PoolSize, s.GCPercent, s.LowPriorityCacheMB, s.BatchSize)
		fmt.Fprintf(&b, "• Reliability: circuit breakers=%t, retries %d (base backoff %s), graceful degradation=%t\n",
			s.CircuitBreaker, s.RetryMaxAttempts, s.RetryBaseBackoff, s.GracefulDegradation)
		fmt.Fprintf(&b, "• Conversation: pre-computed replies=%t, context window %d, proactive assistance=%t\n",
			s.PrecomputeReplies, s.ContextWindow, s.ProactiveAssist)
	}

	b.WriteString("\nWould you like to adjust any specific aspect? Just tell me what you need!")
	return b.String()
}

func (e *Engine) healthReport(profile *entity.OptimizationProfile) string {
	snapshot := profile.Snapshot()
	score := e.engine.HealthScore(snapshot)

	var b strings.Builder
	fmt.Fprintf(&b, "System health check complete! Overall health score: %d/100 %s\n\n**Detailed Analysis:**\n",
		score.Int(), score.Band().Emoji())

	for _, threshold := range e.engine.Thresholds() {
		value := snapshot.MetricValue(threshold.Metric())
		status := "within target"
		if threshold.IsBreached(value.Raw()) {
			status = fmt.Sprintf("outside target (-%d)", threshold.Penalty())
		}
		fmt.Fprintf(&b, "• %s: %s, %s\n", threshold.Metric(), value, status)
	}

	if score < 90 {
		b.WriteString("\nI recommend running performance optimization to improve the health score.")
	} else {
		b.WriteString("\nYour system is in excellent health! No action needed.")
	}
	return b.String()
}

func generalHelp(message string) string {
	return fmt.Sprintf("I understand you're asking about %q. Let me help you with that.\n\n"+
		"All configuration happens through our conversation. There are no settings pages or forms to navigate.\n\n"+
		"Here are some things you might want to know:\n"+
		"• To improve performance: Just ask me to \"optimize the system\"\n"+
		"• To check status: Say \"how is the system doing?\"\n"+
		"• To understand the setup: Ask me to explain the settings\n"+
		"• To apply improvements: Say \"apply the recommendations\"\n\n"+
		"What specific aspect of the system would you like to configure or learn about?", message)
}
