package cmd

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var analyzeLearner int64

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Show a learner's performance profile and weak topics",
	RunE: func(cmd *cobra.Command, args []string) error {
		report, err := current.service.Analyze(cmd.Context(), analyzeLearner)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		if asJSON {
			return printJSON(out, report)
		}

		p := report.Profile
		fmt.Fprintf(out, "📊 Learner %d\n\n", analyzeLearner)
		fmt.Fprintf(out, "Answered:     %d\n", p.TotalQuestionsAttempted)
		fmt.Fprintf(out, "Accuracy:     %.1f%%\n", p.OverallAccuracy)
		fmt.Fprintf(out, "Improvement:  %+.1f\n", p.ImprovementRate)
		fmt.Fprintf(out, "Consistency:  %.1f\n", p.ConsistencyScore)
		fmt.Fprintf(out, "Avg time:     %.1fs\n", p.AverageTimePerQuestion)
		fmt.Fprintf(out, "Readiness:    %s\n\n", p.ReadinessLevel)

		w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "Domain\tTopic\tAccuracy\tAnswered")
		fmt.Fprintln(w, "------\t-----\t--------\t--------")
		for _, d := range report.Domains {
			for _, t := range d.Topics {
				fmt.Fprintf(w, "%s\t%s\t%.1f%%\t%d\n", d.Domain, t.TopicName, t.Accuracy, t.QuestionsAttempted)
			}
		}
		w.Flush()

		if len(report.Weaknesses) == 0 {
			fmt.Fprintln(out, "\n✅ No weak topics.")
			return nil
		}
		fmt.Fprintln(out, "\n🎯 Weak topics:")
		for _, wa := range report.Weaknesses {
			fmt.Fprintf(out, "- [%s] %s/%s %.1f%%", wa.Severity, wa.Domain, wa.Topic, wa.Accuracy)
			if len(wa.CommonErrors) > 0 {
				fmt.Fprintf(out, " errors: %s", strings.Join(wa.CommonErrors, ", "))
			}
			fmt.Fprintf(out, "\n  %s\n", wa.RecommendedPractice)
		}
		return nil
	},
}

func init() {
	analyzeCmd.Flags().Int64Var(&analyzeLearner, "learner", 0, "learner ID")
	analyzeCmd.MarkFlagRequired("learner")
	addJSONFlag(analyzeCmd)
	rootCmd.AddCommand(analyzeCmd)
}
