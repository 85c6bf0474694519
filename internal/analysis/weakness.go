package analysis

import (
	"fmt"
	"sort"
	"strings"

	"github.com/example/learnbot/pkg/models"
)

// Accuracy thresholds below which a topic counts as weak
const (
	SevereBelow   = 50.0
	ModerateBelow = 60.0
	MildBelow     = 70.0
)

// Error categories reported in WeaknessArea.CommonErrors
const (
	ConceptConfusion = "concept-confusion"
	KnowledgeGap     = "knowledge-gap"
	GeneralError     = "general-error"
)

const maxCommonErrors = 3

// SeverityFor grades an accuracy. ok is false when the topic is not weak.
func SeverityFor(accuracy float64) (severity models.Severity, ok bool) {
	switch {
	case accuracy < SevereBelow:
		return models.Severe, true
	case accuracy < ModerateBelow:
		return models.Moderate, true
	case accuracy < MildBelow:
		return models.Mild, true
	default:
		return "", false
	}
}

// ErrorCategory is the coarse reason assigned to an incorrect answer of the given type.
func ErrorCategory(t models.QuestionType) string {
	switch normalizeType(t) {
	case models.MultipleChoice:
		return ConceptConfusion
	case models.TrueFalse:
		return KnowledgeGap
	default:
		return GeneralError
	}
}

func normalizeType(t models.QuestionType) models.QuestionType {
	s := strings.ToLower(strings.TrimSpace(string(t)))
	s = strings.NewReplacer("_", "-", " ", "-").Replace(s)
	switch s {
	case "multiple-choice", "mcq", "choice":
		return models.MultipleChoice
	case "true-false", "truefalse", "boolean":
		return models.TrueFalse
	}
	return models.QuestionType(s)
}

// ClassifyWeaknesses emits a WeaknessArea for every topic under 70% accuracy,
// most severe first and, within a severity, weakest first.
func ClassifyWeaknesses(topics []models.TopicPerformance, history []models.ResponseEvent) []models.WeaknessArea {
	var out []models.WeaknessArea
	for _, tp := range topics {
		severity, weak := SeverityFor(tp.Accuracy)
		if !weak {
			continue
		}
		out = append(out, models.WeaknessArea{
			Domain:              tp.Domain,
			Topic:               tp.TopicName,
			Accuracy:            tp.Accuracy,
			Severity:            severity,
			CommonErrors:        commonErrors(tp, history),
			RecommendedPractice: recommendPractice(tp.TopicName, severity),
		})
	}

	sort.SliceStable(out, func(i, j int) bool {
		ri, rj := out[i].Severity.Rank(), out[j].Severity.Rank()
		if ri != rj {
			return ri > rj
		}
		return out[i].Accuracy < out[j].Accuracy
	})
	return out
}

// commonErrors returns up to three error categories of the topic's incorrect
// answers, most frequent first. Ties keep the order they were first seen in.
func commonErrors(tp models.TopicPerformance, history []models.ResponseEvent) []string {
	counts := make(map[string]int)
	var order []string
	for _, e := range history {
		if e.IsCorrect || e.Topic != tp.TopicName || e.Domain != tp.Domain {
			continue
		}
		c := ErrorCategory(e.QuestionType)
		if counts[c] == 0 {
			order = append(order, c)
		}
		counts[c]++
	}

	sort.SliceStable(order, func(i, j int) bool {
		return counts[order[i]] > counts[order[j]]
	})
	if len(order) > maxCommonErrors {
		order = order[:maxCommonErrors]
	}
	return order
}

func recommendPractice(topic string, severity models.Severity) string {
	switch severity {
	case models.Severe:
		return fmt.Sprintf("Revisit the fundamentals of %s with beginner questions and explanations", topic)
	case models.Moderate:
		return fmt.Sprintf("Practice %s with a mix of beginner and intermediate questions", topic)
	default:
		return fmt.Sprintf("Reinforce %s with intermediate questions", topic)
	}
}

// TopWeakTopics returns the topic names of the first n weaknesses.
func TopWeakTopics(weaknesses []models.WeaknessArea, n int) []string {
	if n > len(weaknesses) {
		n = len(weaknesses)
	}
	out := make([]string, 0, n)
	for _, w := range weaknesses[:n] {
		out = append(out, w.Topic)
	}
	return out
}
