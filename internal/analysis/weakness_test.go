package analysis

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/learnbot/pkg/models"
)

func TestSeverityFor(t *testing.T) {
	tests := []struct {
		accuracy float64
		want     models.Severity
		weak     bool
	}{
		{0, models.Severe, true},
		{45, models.Severe, true},
		{50, models.Moderate, true},
		{59.9, models.Moderate, true},
		{60, models.Mild, true},
		{65, models.Mild, true},
		{70, "", false},
		{72, "", false},
	}
	for _, tt := range tests {
		got, weak := SeverityFor(tt.accuracy)
		assert.Equal(t, tt.weak, weak, "accuracy %v", tt.accuracy)
		assert.Equal(t, tt.want, got, "accuracy %v", tt.accuracy)
	}
}

func TestErrorCategory(t *testing.T) {
	assert.Equal(t, ConceptConfusion, ErrorCategory(models.MultipleChoice))
	assert.Equal(t, ConceptConfusion, ErrorCategory("multiple_choice"))
	assert.Equal(t, KnowledgeGap, ErrorCategory(models.TrueFalse))
	assert.Equal(t, KnowledgeGap, ErrorCategory("True_False"))
	assert.Equal(t, GeneralError, ErrorCategory(models.Coding))
	assert.Equal(t, GeneralError, ErrorCategory(""))
}

func TestClassifyWeaknessesOrdering(t *testing.T) {
	topics := []models.TopicPerformance{
		{Domain: "math", TopicName: "mild", Accuracy: 65},
		{Domain: "math", TopicName: "strong", Accuracy: 72},
		{Domain: "math", TopicName: "severe-45", Accuracy: 45},
		{Domain: "math", TopicName: "moderate", Accuracy: 55},
		{Domain: "math", TopicName: "severe-20", Accuracy: 20},
	}

	got := ClassifyWeaknesses(topics, nil)
	require.Len(t, got, 4)

	names := []string{got[0].Topic, got[1].Topic, got[2].Topic, got[3].Topic}
	assert.Equal(t, []string{"severe-20", "severe-45", "moderate", "mild"}, names)
	assert.Equal(t, models.Severe, got[1].Severity)
	assert.Equal(t, models.Mild, got[3].Severity)
	assert.Contains(t, got[0].RecommendedPractice, "severe-20")
}

func TestClassifyWeaknessesCommonErrors(t *testing.T) {
	mk := func(qt models.QuestionType, correct bool) models.ResponseEvent {
		e := ev("math", "algebra", correct)
		e.QuestionType = qt
		return e
	}
	history := []models.ResponseEvent{
		mk(models.Coding, false),
		mk(models.TrueFalse, false),
		mk(models.MultipleChoice, false),
		mk(models.TrueFalse, false),
		mk(models.MultipleChoice, true),
		mk(models.TrueFalse, true),
		{Domain: "math", Topic: "geometry", QuestionType: models.MultipleChoice},
	}
	topics := AggregateResponses(history).Topics()

	got := ClassifyWeaknesses(topics, history)
	require.Len(t, got, 2)

	var algebra models.WeaknessArea
	for _, w := range got {
		if w.Topic == "algebra" {
			algebra = w
		}
	}
	assert.Equal(t, []string{KnowledgeGap, GeneralError, ConceptConfusion}, algebra.CommonErrors)
	assert.Equal(t, models.Severe, algebra.Severity)
}

func TestClassifyWeaknessesNoneWeak(t *testing.T) {
	got := ClassifyWeaknesses([]models.TopicPerformance{{TopicName: "x", Accuracy: 100}}, nil)
	assert.Empty(t, got)
}
