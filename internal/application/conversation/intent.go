package conversation

import "strings"

// Intent представляет распознанное намерение пользователя
type Intent string

const (
	IntentConfigurationStart  Intent = "configuration_start"
	IntentOptimizePerformance Intent = "optimize_performance"
	IntentCheckStatus         Intent = "check_status"
	IntentExplainSettings     Intent = "explain_settings"
	IntentApplyRecommendation Intent = "apply_recommendation"
	IntentSystemHealth        Intent = "system_health"
	IntentGeneral             Intent = "general"
)

// intentKeywords проверяются по порядку, первое совпадение выигрывает
var intentKeywords = []struct {
	intent   Intent
	keywords []string
}{
	{IntentOptimizePerformance, []string{"optimize", "performance"}},
	{IntentCheckStatus, []string{"status", "how", "doing"}},
	{IntentExplainSettings, []string{"explain", "settings"}},
	{IntentApplyRecommendation, []string{"apply", "recommendations"}},
	{IntentSystemHealth, []string{"health", "check"}},
}

// DetectIntent определяет намерение по ключевым словам сообщения
func DetectIntent(message string) Intent {
	lower := strings.ToLower(message)
	for _, rule := range intentKeywords {
		for _, keyword := range rule.keywords {
			if strings.Contains(lower, keyword) {
				return rule.intent
			}
		}
	}
	return IntentGeneral
}

var (
	positivePhrases = []string{"thank", "great", "perfect", "awesome", "helpful", "excellent", "love it", "nice"}
	negativePhrases = []string{"slow", "wrong", "useless", "broken", "not working", "frustrat", "terrible", "bad"}
)

// Sentiment представляет неявную оценку из текста сообщения
type Sentiment int

const (
	SentimentNeutral Sentiment = iota
	SentimentPositive
	SentimentNegative
)

// DetectSentiment ищет в сообщении фразы одобрения или недовольства.
// Негативные фразы проверяются первыми.
func DetectSentiment(message string) Sentiment {
	lower := strings.ToLower(message)
	for _, phrase := range negativePhrases {
		if strings.Contains(lower, phrase) {
			return SentimentNegative
		}
	}
	for _, phrase := range positivePhrases {
		if strings.Contains(lower, phrase) {
			return SentimentPositive
		}
	}
	return SentimentNeutral
}
