package bot

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/example/learnbot/internal/analysis"
	"github.com/example/learnbot/internal/learning"
	"github.com/example/learnbot/pkg/models"
)

// parseTestArgs reads "/test <type> [count]". A missing count returns 0.
func parseTestArgs(args string, maxCount int) (models.TestType, int, error) {
	fields := strings.Fields(args)
	testType := models.TestMixedReview
	if len(fields) > 0 {
		testType = analysis.ParseTestType(fields[0])
	}
	if len(fields) < 2 {
		return testType, 0, nil
	}
	count, err := strconv.Atoi(fields[1])
	if err != nil || count < 1 || count > maxCount {
		return "", 0, fmt.Errorf("question count must be a number from 1 to %d", maxCount)
	}
	return testType, count, nil
}

func questionOptions(q models.Question) []string {
	if len(q.Options) > 0 {
		return q.Options
	}
	if q.Type == models.TrueFalse {
		return []string{"True", "False"}
	}
	return nil
}

func formatQuestion(q models.Question, test *testRun) string {
	var sb strings.Builder
	if test != nil {
		fmt.Fprintf(&sb, "Question %d/%d\n", test.Index+1, len(test.Questions))
	}
	fmt.Fprintf(&sb, "📚 %s › %s (%s)\n\n%s", q.Domain, q.Topic, q.Difficulty, q.Prompt)
	if len(questionOptions(q)) == 0 {
		sb.WriteString("\n\nType your answer.")
	}
	if test != nil && test.Strategy.AdaptiveSettings.IncreaseTimeLimit && q.ExpectedSeconds > 0 {
		fmt.Fprintf(&sb, "\n⏱ Take your time, about %d min.", (q.ExpectedSeconds*3/2+59)/60)
	}
	return sb.String()
}

func formatFeedback(sess *session, showExplanation bool) string {
	var sb strings.Builder
	if sess.AutoScore >= 1 {
		sb.WriteString("✅ Correct!")
	} else {
		fmt.Fprintf(&sb, "❌ Not quite. The answer is: %s", sess.Question.CorrectAnswer)
	}
	if showExplanation && sess.Question.Explanation != "" {
		fmt.Fprintf(&sb, "\n\n%s", sess.Question.Explanation)
	}
	return sb.String()
}

func formatOutcome(out *learning.ReviewOutcome, now time.Time) string {
	if out.Duplicate {
		return "This review was already recorded."
	}
	days := int(out.State.NextReviewDate.Sub(now).Hours()/24 + 0.5)
	next := "tomorrow"
	if days != 1 {
		next = fmt.Sprintf("in %d days", days)
	}
	text := fmt.Sprintf("Quality %.2f. Next review %s.", out.Quality, next)
	if out.ShouldReset {
		text += " This one starts over."
	}
	return text
}

func formatStats(r *learning.Report) string {
	p := r.Profile
	var sb strings.Builder
	sb.WriteString("📊 Your progress\n\n")
	fmt.Fprintf(&sb, "Answered: %d\n", p.TotalQuestionsAttempted)
	fmt.Fprintf(&sb, "Accuracy: %.1f%%\n", p.OverallAccuracy)
	fmt.Fprintf(&sb, "Improvement: %+.1f\n", p.ImprovementRate)
	fmt.Fprintf(&sb, "Consistency: %.1f\n", p.ConsistencyScore)
	fmt.Fprintf(&sb, "Avg time: %.0fs\n", p.AverageTimePerQuestion)
	fmt.Fprintf(&sb, "Readiness: %s\n", p.ReadinessLevel)

	levels := make([]string, 0, len(p.DifficultyAccuracy))
	for _, d := range models.Difficulties {
		if acc, ok := p.DifficultyAccuracy[d]; ok {
			levels = append(levels, fmt.Sprintf("%s %.0f%%", d, acc))
		}
	}
	if len(levels) > 0 {
		fmt.Fprintf(&sb, "By level: %s\n", strings.Join(levels, ", "))
	}

	for _, d := range r.Domains {
		fmt.Fprintf(&sb, "\n%s: %.1f%% (%d)\n", d.Domain, d.Accuracy, d.QuestionsAttempted)
		topics := append([]models.TopicPerformance(nil), d.Topics...)
		sort.SliceStable(topics, func(i, j int) bool { return topics[i].Accuracy < topics[j].Accuracy })
		for _, t := range topics {
			fmt.Fprintf(&sb, "  • %s: %.1f%% (%d)\n", t.TopicName, t.Accuracy, t.QuestionsAttempted)
		}
	}
	return strings.TrimRight(sb.String(), "\n")
}

func formatWeaknesses(w []models.WeaknessArea) string {
	if len(w) == 0 {
		return "🎉 No weak topics right now."
	}
	var sb strings.Builder
	sb.WriteString("🎯 Topics to work on\n")
	for _, area := range w {
		fmt.Fprintf(&sb, "\n%s %s › %s: %.1f%%\n", severityIcon(area.Severity), area.Domain, area.Topic, area.Accuracy)
		if len(area.CommonErrors) > 0 {
			fmt.Fprintf(&sb, "  Errors: %s\n", strings.Join(area.CommonErrors, ", "))
		}
		fmt.Fprintf(&sb, "  %s\n", area.RecommendedPractice)
	}
	return strings.TrimRight(sb.String(), "\n")
}

func severityIcon(s models.Severity) string {
	switch s {
	case models.Severe:
		return "🔴"
	case models.Moderate:
		return "🟠"
	default:
		return "🟡"
	}
}

func formatTestIntro(s models.TestStrategy, questions int) string {
	d := s.DifficultyDistribution
	text := fmt.Sprintf("📝 %s test, %d questions (beginner %d%%, intermediate %d%%, advanced %d%%)",
		s.TestType, questions, d.Beginner, d.Intermediate, d.Advanced)
	if len(s.TopicFocus) > 0 {
		text += "\nFocus: " + strings.Join(s.TopicFocus, ", ")
	}
	if s.AdaptiveSettings.ProvideHints {
		text += "\nHints are available."
	}
	return text
}

func formatTestSummary(run *testRun) string {
	total := len(run.Questions)
	pct := 0.0
	if total > 0 {
		pct = float64(run.Correct) * 100 / float64(total)
	}
	return fmt.Sprintf("🏁 Test finished: %d/%d correct (%.0f%%).", run.Correct, total, pct)
}

func reminderText(count int) string {
	noun := "questions"
	if count == 1 {
		noun = "question"
	}
	return fmt.Sprintf("⏰ You have %d %s due for review. Tap Review to start.", count, noun)
}
